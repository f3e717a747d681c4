/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 14:02:45 2019 mstenber
 * Last modified: Wed Mar 20 14:20:31 2019 mstenber
 * Edit time:     14 min
 *
 */

package main

import (
	"context"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/rofuse"
	"github.com/fingon/go-readfs/util"
	"github.com/hanwen/go-fuse/fuse"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func init() {
	var allowOther bool
	cmd := &cobra.Command{
		Use:   "mount MOUNTPOINT",
		Short: "Mount the image in the configured backend with FUSE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mountBackend()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			var wg util.SimpleWaitGroup
			wg.Go(func() {
				m.sched.Run(ctx)
			})
			stop := func() error {
				cancel()
				wg.Wait()
				return m.Close()
			}

			opts := &fuse.MountOptions{AllowOther: allowOther,
				Name: "readfs", Options: []string{"ro"}}
			fuseServer, err := rofuse.Mount(m.fs, args[0], opts)
			if err != nil {
				return multierr.Append(err, stop())
			}
			go func() {
				waitSignal()
				mlog.Printf2("cmd/readfs/mount", "unmounting %s", args[0])
				if err := fuseServer.Unmount(); err != nil {
					mlog.Printf("Unmount failed: %v", err)
				}
			}()

			// loop is here
			fuseServer.Serve()
			return stop()
		},
	}
	cmd.Flags().BoolVar(&allowOther, "allow-other", false, "Allow other users to access the mount")
	rootCmd.AddCommand(cmd)
}

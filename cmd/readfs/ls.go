/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 13:10:31 2019 mstenber
 * Last modified: Wed Mar 20 13:25:02 2019 mstenber
 * Edit time:     7 min
 *
 */

package main

import (
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/fingon/go-readfs/fs"
	"github.com/spf13/cobra"
)

func listEntries(w io.Writer, f *fs.Fs, long bool) error {
	entries, err := f.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if long {
			fmt.Fprintf(w, "%08x %10s %s\n", e.Address,
				units.HumanSize(float64(e.Size)), e.Name)
		} else {
			fmt.Fprintln(w, e.Name)
		}
	}
	return nil
}

func init() {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the files in the image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			m, err := mountBackend()
			if err != nil {
				return
			}
			defer func() {
				if cerr := m.Close(); err == nil {
					err = cerr
				}
			}()
			return listEntries(cmd.OutOrStdout(), m.fs, long)
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show address and size")
	rootCmd.AddCommand(cmd)
}

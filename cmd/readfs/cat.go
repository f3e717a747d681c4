/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 13:12:48 2019 mstenber
 * Last modified: Wed Mar 20 13:47:19 2019 mstenber
 * Edit time:     18 min
 *
 */

package main

import (
	"io"

	"github.com/fingon/go-readfs/fs"
	"github.com/spf13/cobra"
)

type catOptions struct {
	offset, size uint32
	chunk        int
	direct       bool
}

// catFile writes the file (or its [offset, offset+size) range) to w,
// chunk bytes per read.
func catFile(w io.Writer, f *fs.Fs, name string, opts catOptions) error {
	file, err := f.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	if opts.offset > 0 {
		if err = file.Seek(opts.offset); err != nil {
			return err
		}
	}
	left := file.Size() - file.Offset()
	if opts.size > 0 && opts.size < left {
		left = opts.size
	}
	if opts.chunk <= 0 {
		opts.chunk = 4096
	}
	buf := make([]byte, opts.chunk)
	for left > 0 {
		b := buf
		if uint32(len(b)) > left {
			b = b[:left]
		}
		var n int
		if opts.direct {
			n, err = file.DirectRead(b)
		} else {
			n, err = file.Read(b)
		}
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		if _, err = w.Write(b[:n]); err != nil {
			return err
		}
		left -= uint32(n)
	}
	return nil
}

func init() {
	var opts catOptions
	cmd := &cobra.Command{
		Use:   "cat NAME",
		Short: "Write the named file to standard output",
		Args:  cobra.ExactArgs(1),
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
			return catFile(cmd.OutOrStdout(), m.fs, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.Uint32Var(&opts.offset, "offset", 0, "Offset to start from")
	f.Uint32Var(&opts.size, "size", 0, "Number of bytes to write (0 = rest of file)")
	f.IntVar(&opts.chunk, "chunk", 4096, "Read size")
	f.BoolVar(&opts.direct, "direct", false, "Bypass the cache window")
	rootCmd.AddCommand(cmd)
}

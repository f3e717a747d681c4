/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 13:02:11 2019 mstenber
 * Last modified: Wed Mar 20 13:22:50 2019 mstenber
 * Edit time:     9 min
 *
 */

package main

import (
	"github.com/docker/go-units"
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/storage"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func importImage(be storage.Backend, image []byte) error {
	imp, ok := be.(storage.Importer)
	if !ok {
		return errors.Wrap(storage.ErrUnsupported, "backend does not support import")
	}
	mlog.Printf2("cmd/readfs/import", "importing %s", units.HumanSize(float64(len(image))))
	return imp.Import(image)
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "import IMAGE",
		Short: "Store IMAGE in the configured backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := afero.ReadFile(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}
			be, err := openBackend()
			if err != nil {
				return err
			}
			return multierr.Append(importImage(be, image), be.Close())
		},
	})
}

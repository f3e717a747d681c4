/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 12:40:02 2019 mstenber
 * Last modified: Wed Mar 20 13:31:45 2019 mstenber
 * Edit time:     38 min
 *
 */

package main

import (
	"path/filepath"

	"github.com/docker/go-units"
	"github.com/fingon/go-readfs/fs"
	"github.com/fingon/go-readfs/mlog"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

// manifest lists the files of an image explicitly, instead of taking
// everything below a directory.
type manifest struct {
	HeaderOffset uint32         `yaml:"header_offset"`
	Align        uint32         `yaml:"align"`
	Files        []manifestFile `yaml:"files"`
}

type manifestFile struct {
	// Name in the image; defaults to Path.
	Name string `yaml:"name"`

	// Path relative to the source directory.
	Path string `yaml:"path"`
}

func readManifest(afs afero.Fs, path string) (m manifest, err error) {
	data, err := afero.ReadFile(afs, path)
	if err != nil {
		return
	}
	err = yaml.UnmarshalStrict(data, &m)
	err = errors.Wrapf(err, "parse %s", path)
	return
}

type buildOptions struct {
	manifest     string
	headerOffset uint32
	align        uint32
}

func buildImage(afs afero.Fs, srcdir, out string, opts buildOptions) error {
	b := fs.ImageBuilder{HeaderOffset: opts.headerOffset, Align: opts.align}
	if opts.manifest != "" {
		m, err := readManifest(afs, opts.manifest)
		if err != nil {
			return err
		}
		if m.HeaderOffset != 0 {
			b.HeaderOffset = m.HeaderOffset
		}
		if m.Align != 0 {
			b.Align = m.Align
		}
		for _, f := range m.Files {
			name := f.Name
			if name == "" {
				name = filepath.ToSlash(f.Path)
			}
			data, err := afero.ReadFile(afs, filepath.Join(srcdir, f.Path))
			if err != nil {
				return err
			}
			if err = b.Add(name, data); err != nil {
				return err
			}
		}
	} else if err := b.AddFromFs(afs, srcdir); err != nil {
		return err
	}
	image, err := b.Bytes()
	if err != nil {
		return err
	}
	mlog.Printf2("cmd/readfs/build", "writing %d files to %s (%s)", b.Len(), out,
		units.HumanSize(float64(len(image))))
	return afero.WriteFile(afs, out, image, 0644)
}

func init() {
	var opts buildOptions
	cmd := &cobra.Command{
		Use:   "build SRCDIR OUT",
		Short: "Build an image from the files below SRCDIR",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildImage(afero.NewOsFs(), args[0], args[1], opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.manifest, "manifest", "", "YAML manifest listing the files (paths relative to SRCDIR)")
	f.Uint32Var(&opts.headerOffset, "header-offset", fs.DefaultHeaderOffset, "Where the header is placed")
	f.Uint32Var(&opts.align, "align", 8, "Alignment of file data")
	rootCmd.AddCommand(cmd)
}

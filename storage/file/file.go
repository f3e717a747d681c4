/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 15:44:41 2018 mstenber
 * Last modified: Thu Mar 14 18:02:13 2019 mstenber
 * Edit time:     109 min
 *
 */

package file

import (
	"io"
	"os"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/util"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// fileBackend serves the image from a single (raw) image file.
//
// The file is opened lazily, and reopened after Import replaces it.
type fileBackend struct {
	fs   afero.Fs
	path string

	lock util.MutexLocked
	f    afero.File
	size uint32
}

var _ storage.Backend = &fileBackend{}
var _ storage.Importer = &fileBackend{}

func NewFileBackend(config storage.BackendConfiguration) (storage.Backend, error) {
	if config.Path == "" {
		return nil, errors.New("file backend requires path")
	}
	self := &fileBackend{fs: config.GetFs(), path: config.Path}
	defer self.lock.Locked()()
	err := self.open()
	if err != nil && !os.IsNotExist(errors.Cause(err)) {
		return nil, err
	}
	return self, nil
}

func (self *fileBackend) open() error {
	f, err := self.fs.Open(self.path)
	if err != nil {
		return errors.Wrapf(err, "open %s", self.path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "stat %s", self.path)
	}
	if fi.Size() > int64(^uint32(0)) {
		f.Close()
		return errors.Errorf("%s too large (%d b)", self.path, fi.Size())
	}
	mlog.Printf2("storage/file/file", "fb.open %s: %d b", self.path, fi.Size())
	self.f = f
	self.size = uint32(fi.Size())
	return nil
}

func (self *fileBackend) closeFile() (err error) {
	if self.f != nil {
		err = self.f.Close()
		self.f = nil
		self.size = 0
	}
	return
}

func (self *fileBackend) Close() error {
	defer self.lock.Locked()()
	return self.closeFile()
}

func (self *fileBackend) Import(image []byte) error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/file/file", "fb.Import %s: %d b", self.path, len(image))
	err := self.closeFile()
	if err != nil {
		return err
	}
	tmp := self.path + ".tmp"
	err = afero.WriteFile(self.fs, tmp, image, 0600)
	if err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	err = self.fs.Rename(tmp, self.path)
	if err != nil {
		return errors.Wrapf(err, "rename %s", tmp)
	}
	return self.open()
}

func (self *fileBackend) ReadAt(p []byte, addr uint32) (n int, err error) {
	defer self.lock.Locked()()
	if self.f == nil {
		err = storage.ErrNotImported
		return
	}
	want, short, err := storage.CheckRange(p, addr, self.size)
	if err != nil {
		return
	}
	n, err = self.f.ReadAt(p[:want], int64(addr))
	if err == io.EOF && n == want {
		err = nil
	}
	if err == nil && short {
		err = io.EOF
	}
	return
}

func (self *fileBackend) Size() uint32 {
	defer self.lock.Locked()()
	return self.size
}

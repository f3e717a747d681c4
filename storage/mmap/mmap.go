/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar 15 08:30:12 2019 mstenber
 * Last modified: Fri Mar 15 09:20:48 2019 mstenber
 * Edit time:     31 min
 *
 */

// mmap backend maps the image file read-only into memory; reads are
// plain copies out of the mapping.
package mmap

import (
	"io"
	"os"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/util"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type mmapBackend struct {
	lock util.MutexLocked
	data []byte
}

var _ storage.Backend = &mmapBackend{}

func NewMmapBackend(config storage.BackendConfiguration) (storage.Backend, error) {
	f, err := os.Open(config.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "stat")
	}
	size := fi.Size()
	if size > int64(^uint32(0)) {
		return nil, errors.Errorf("%s too large (%d b)", config.Path, size)
	}
	self := &mmapBackend{}
	if size > 0 {
		// mapping survives closing of the file
		self.data, err = unix.Mmap(int(f.Fd()), 0, int(size),
			unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			return nil, errors.Wrap(err, "unix.Mmap")
		}
	}
	mlog.Printf2("storage/mmap/mmap", "mb.New %s: %d b", config.Path, size)
	return self, nil
}

func (self *mmapBackend) Close() (err error) {
	defer self.lock.Locked()()
	if self.data != nil {
		err = unix.Munmap(self.data)
		self.data = nil
	}
	return
}

func (self *mmapBackend) ReadAt(p []byte, addr uint32) (n int, err error) {
	defer self.lock.Locked()()
	want, short, err := storage.CheckRange(p, addr, uint32(len(self.data)))
	if err != nil {
		return
	}
	n = copy(p[:want], self.data[addr:])
	if short {
		err = io.EOF
	}
	return
}

func (self *mmapBackend) Size() uint32 {
	defer self.lock.Locked()()
	return uint32(len(self.data))
}

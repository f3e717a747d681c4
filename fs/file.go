/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 14:01:12 2019 mstenber
 * Last modified: Mon Mar 18 14:11:32 2019 mstenber
 * Edit time:     41 min
 *
 */

package fs

import (
	"github.com/fingon/go-readfs/mlog"
	"github.com/pkg/errors"
)

// File is an open file. It is owned by whoever opened it, and all
// operations on it must happen on the scheduler goroutine (see
// Request for the way to use it from elsewhere).
//
// At most one read may be outstanding per File; use separate handles
// for concurrent reads of the same file.
type File struct {
	fs     *Fs
	name   string
	base   uint32
	size   uint32
	offset uint32
	closed bool

	// cache window over storage [cacheAddress, cacheAddress+CacheWindow)
	cache        [CacheWindow]byte
	cacheAddress uint32
	cacheValid   bool

	pending *pendingRead
}

func (self *File) Name() string {
	return self.name
}

// Address returns the storage address of the first byte of the file.
func (self *File) Address() uint32 {
	return self.base
}

func (self *File) Size() uint32 {
	return self.size
}

// Offset returns the current logical position.
func (self *File) Offset() uint32 {
	return self.offset
}

// Pending returns true if a read is outstanding.
func (self *File) Pending() bool {
	return self.pending != nil
}

// Seek moves the logical position to offset, which must be within the
// file. It must not be called while a read is pending.
func (self *File) Seek(offset uint32) error {
	if self.closed {
		return ErrClosed
	}
	if offset >= self.size {
		return errors.Wrapf(ErrOutOfRange, "%d >= %d", offset, self.size)
	}
	mlog.Printf2("fs/file", "f.Seek %q %d", self.name, offset)
	self.offset = offset
	return nil
}

// Close releases the file. The cache window is invalidated.
func (self *File) Close() error {
	if self.closed {
		return ErrClosed
	}
	if self.pending != nil {
		return ErrReadPending
	}
	mlog.Printf2("fs/file", "f.Close %q", self.name)
	self.closed = true
	self.invalidateCache()
	return nil
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 09:20:29 2019 mstenber
 * Last modified: Mon Mar 18 14:02:44 2019 mstenber
 * Edit time:     88 min
 *
 */

// fs package implements a minimal read-only file system on top of
// raw addressable storage.
//
// The image is laid out as follows (all words little endian):
//
//   0:                 header offset (8 bytes, low 32 bits used)
//   header offset:     header size (8 bytes, low 32 bits used)
//   header offset + 8: descriptor table of header size bytes:
//                      entry count (4 bytes), followed by packed
//                      {address, size, path size, path} records
//
// Everything runs on a sched.Scheduler: operations either complete
// synchronously, or issue a storage transfer and continue when its
// completion is run by the scheduler. Each operation has a blocking
// variant that drives the scheduler until it is done.
package fs

import (
	"log"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/sched"
	"github.com/pkg/errors"
)

// Storage is the asynchronous transfer primitive the file system
// consumes. storage.Device implements it.
type Storage interface {
	// ReadAsync transfers len(dest) bytes from addr into dest,
	// and completes done (via the scheduler) with the number of
	// bytes transferred or an error.
	ReadAsync(addr uint32, dest []byte, done *sched.Task)
}

type Config struct {
	Storage Storage

	// Scheduler is the executor both the file system and the
	// storage complete on.
	Scheduler *sched.Scheduler

	// MaxTableSize is the largest descriptor table accepted;
	// DefaultMaxTableSize if zero.
	MaxTableSize uint32
}

// Fs is a mounted file system. After mount it is immutable apart
// from Unmount.
type Fs struct {
	storage Storage
	sched   *sched.Scheduler
	table   []byte
	mounted bool
}

// MountAsync starts mounting the image in config.Storage. done is
// completed once the mount has finished or failed; the returned Fs
// is usable only if it succeeded.
func MountAsync(config Config, done *sched.Task) *Fs {
	if config.Storage == nil || config.Scheduler == nil {
		log.Panicf("MountAsync requires Storage and Scheduler")
	}
	mlog.Printf2("fs/fs", "MountAsync")
	self := &Fs{storage: config.Storage, sched: config.Scheduler}
	max := config.MaxTableSize
	if max == 0 {
		max = DefaultMaxTableSize
	}
	m := &mounter{fs: self, done: done,
		state: mountState{maxTableSize: max}}
	m.resume(mountEvent{})
	return self
}

// Mount mounts the image in config.Storage, driving the scheduler
// until it is done.
func Mount(config Config) (*Fs, error) {
	done := sched.NewTask(nil)
	self := MountAsync(config, done)
	err := config.Scheduler.Wait(done)
	if err != nil {
		return nil, err
	}
	return self, nil
}

// Unmount releases the descriptor table. Files already open keep
// working; new ones can not be opened.
func (self *Fs) Unmount() error {
	mlog.Printf2("fs/fs", "fs.Unmount")
	if !self.mounted {
		return ErrNotMounted
	}
	self.mounted = false
	self.table = nil
	return nil
}

func (self *Fs) Scheduler() *sched.Scheduler {
	return self.sched
}

// Entries returns all descriptors in the table, in table order.
func (self *Fs) Entries() ([]Entry, error) {
	if !self.mounted {
		return nil, ErrNotMounted
	}
	var ret []Entry
	iterateTable(self.table, func(e entryView) bool {
		ret = append(ret, e.Entry())
		return true
	})
	return ret, nil
}

// Lookup returns the descriptor with exactly the given name.
func (self *Fs) Lookup(name string) (e Entry, err error) {
	if !self.mounted {
		err = ErrNotMounted
		return
	}
	v, ok := findEntry(self.table, name)
	if !ok {
		err = errors.Wrapf(ErrNotFound, "%q", name)
		return
	}
	e = v.Entry()
	return
}

// Open returns a new handle to the named file, with empty cache
// window and offset 0.
func (self *Fs) Open(name string) (*File, error) {
	e, err := self.Lookup(name)
	if err != nil {
		return nil, err
	}
	mlog.Printf2("fs/fs", "fs.Open %q: %x+%d", name, e.Address, e.Size)
	return &File{fs: self, name: e.Name, base: e.Address, size: e.Size}, nil
}

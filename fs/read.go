/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 12 11:40:19 2019 mstenber
 * Last modified: Mon Mar 18 15:31:47 2019 mstenber
 * Edit time:     96 min
 *
 */

package fs

import (
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/sched"
	"github.com/pkg/errors"
)

// pendingRead is the state of one caller-visible read between its
// start and its completion.
type pendingRead struct {
	// rest of the destination, and where it comes from
	dest []byte
	addr uint32

	total uint32
	done  *sched.Task
}

func (self *File) startRead(p []byte, done *sched.Task) (uint32, error) {
	if self.closed {
		return 0, ErrClosed
	}
	if self.pending != nil {
		return 0, ErrReadPending
	}
	size := self.size - self.offset
	if uint64(len(p)) < uint64(size) {
		size = uint32(len(p))
	}
	self.pending = &pendingRead{dest: p[:size], addr: self.base + self.offset,
		total: size, done: done}
	self.offset += size
	return size, nil
}

// ReadAsync starts reading into p from the current offset; at most
// the rest of the file is read. The offset is advanced immediately.
// done is completed with the number of bytes read once p has been
// filled, or with an error. It returns the number of bytes the read
// will produce.
//
// If an error is returned, done is never completed.
func (self *File) ReadAsync(p []byte, done *sched.Task) (uint32, error) {
	size, err := self.startRead(p, done)
	if err != nil {
		return 0, err
	}
	mlog.Printf2("fs/read", "f.ReadAsync %q %d b at %x", self.name, size, self.pending.addr)
	self.continueRead()
	return size, nil
}

// Read is the blocking ReadAsync.
func (self *File) Read(p []byte) (int, error) {
	done := sched.NewTask(nil)
	_, err := self.ReadAsync(p, done)
	if err != nil {
		return 0, err
	}
	err = self.fs.sched.Wait(done)
	return done.Result(), err
}

// DirectReadAsync is ReadAsync without the cache: the whole read is
// one storage transfer straight into p.
func (self *File) DirectReadAsync(p []byte, done *sched.Task) (uint32, error) {
	size, err := self.startRead(p, done)
	if err != nil {
		return 0, err
	}
	pr := self.pending
	mlog.Printf2("fs/read", "f.DirectReadAsync %q %d b at %x", self.name, size, pr.addr)
	if size == 0 {
		self.finishRead(nil)
		return 0, nil
	}
	dest := pr.dest
	pr.dest = nil
	self.fs.storage.ReadAsync(pr.addr, dest, sched.NewTask(self.transferDone))
	return size, nil
}

// DirectRead is the blocking DirectReadAsync.
func (self *File) DirectRead(p []byte) (int, error) {
	done := sched.NewTask(nil)
	_, err := self.DirectReadAsync(p, done)
	if err != nil {
		return 0, err
	}
	err = self.fs.sched.Wait(done)
	return done.Result(), err
}

// continueRead serves the next chunk of the pending read. A chunk
// served straight from the cache does not recurse; the rest of the
// read is posted to the scheduler instead.
func (self *File) continueRead() {
	pr := self.pending
	if len(pr.dest) == 0 {
		self.finishRead(nil)
		return
	}
	n, pending := self.readChunk(pr.dest, pr.addr)
	pr.dest = pr.dest[n:]
	pr.addr += n
	switch {
	case pending:
	case len(pr.dest) == 0:
		self.finishRead(nil)
	default:
		self.fs.sched.Post(self.continueRead)
	}
}

// transferDone is the completion of every storage transfer a read
// issues.
func (self *File) transferDone(t *sched.Task) {
	if err := t.Err(); err != nil {
		mlog.Printf2("fs/read", "f.transferDone %q failed: %v", self.name, err)
		self.finishRead(errors.Wrapf(ErrStorageFailure, "%v", err))
		return
	}
	self.continueRead()
}

func (self *File) finishRead(err error) {
	pr := self.pending
	self.pending = nil
	if err != nil {
		self.fs.sched.Complete(pr.done, 0, err)
		return
	}
	mlog.Printf2("fs/read", "f.finishRead %q %d b", self.name, pr.total)
	self.fs.sched.Complete(pr.done, int(pr.total), nil)
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 13 15:10:44 2019 mstenber
 * Last modified: Fri Mar 15 10:31:52 2019 mstenber
 * Edit time:     64 min
 *
 */

package storage

import (
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/sched"
	"github.com/fingon/go-readfs/util"
	"github.com/pkg/errors"
)

// DeviceStats describes what a Device has done so far.
type DeviceStats struct {
	Transfers, Failures int
	Bytes               uint64
}

// Device turns a Backend into an asynchronous transfer device.
//
// Each ReadAsync runs the backend read in the background (bounded by
// Limiter), and completes the task through Scheduler with the number
// of bytes transferred. Reads that start inside the image but run
// past its end get the tail zero-filled, the way erased flash reads
// back; reads starting at or past the end fail with ErrOutOfBounds.
type Device struct {
	Backend   Backend
	Scheduler *sched.Scheduler

	// Limiter bounds the number of concurrent background transfers.
	Limiter util.ParallelLimiter

	// Synchronous makes the transfer happen on the calling
	// goroutine. Completion is still delivered via the scheduler.
	Synchronous bool

	wg    util.SimpleWaitGroup
	lock  util.MutexLocked
	stats DeviceStats
}

func (self Device) Init() *Device {
	if self.Scheduler == nil {
		self.Scheduler = &sched.Scheduler{}
	}
	return &self
}

func (self *Device) Size() uint32 {
	return self.Backend.Size()
}

// Stats returns copy of the current statistics.
func (self *Device) Stats() DeviceStats {
	defer self.lock.Locked()()
	return self.stats
}

func (self *Device) transfer(addr uint32, dest []byte) (n int, err error) {
	size := self.Backend.Size()
	if addr >= size {
		err = errors.Wrapf(ErrOutOfBounds, "read at %x >= %x", addr, size)
		return
	}
	n, err = self.Backend.ReadAt(dest, addr)
	if n < len(dest) && uint64(addr)+uint64(len(dest)) > uint64(size) &&
		n == int(size-addr) {
		// Ran past the end; rest reads as zero
		for i := n; i < len(dest); i++ {
			dest[i] = 0
		}
		n = len(dest)
		err = nil
	}
	if err == nil && n < len(dest) {
		err = errors.Errorf("short read %d < %d", n, len(dest))
	}
	return
}

func (self *Device) run(addr uint32, dest []byte, done *sched.Task) {
	n, err := self.transfer(addr, dest)
	mlog.Printf2("storage/device", "d.run %x %d b => %d %v", addr, len(dest), n, err)
	self.lock.Lock()
	self.stats.Transfers++
	if err != nil {
		self.stats.Failures++
	} else {
		self.stats.Bytes += uint64(n)
	}
	self.lock.Unlock()
	if err != nil {
		err = errors.Wrapf(err, "transfer %d b at %x", len(dest), addr)
		n = 0
	}
	self.Scheduler.Complete(done, n, err)
}

// ReadAsync starts transfer of len(dest) bytes from addr to dest;
// done is completed once it has finished. dest must not be touched
// until then.
func (self *Device) ReadAsync(addr uint32, dest []byte, done *sched.Task) {
	mlog.Printf2("storage/device", "d.ReadAsync %x %d b", addr, len(dest))
	if self.Synchronous {
		self.run(addr, dest, done)
		return
	}
	unlock := self.Limiter.Limited()
	self.wg.Go(func() {
		defer unlock()
		self.run(addr, dest, done)
	})
}

// Close waits for transfers in flight and closes the backend.
func (self *Device) Close() error {
	self.wg.Wait()
	return self.Backend.Close()
}

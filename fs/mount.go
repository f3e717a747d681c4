/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 10:02:31 2019 mstenber
 * Last modified: Mon Mar 18 13:40:22 2019 mstenber
 * Edit time:     142 min
 *
 */

package fs

import (
	"encoding/binary"
	"fmt"
	"log"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/sched"
	"github.com/fingon/go-readfs/util"
	"github.com/pkg/errors"
)

// mountStep is the step of the mount sequence whose storage read is
// in flight. Steps only ever advance.
type mountStep int

const (
	mountInit mountStep = iota

	// 1: 8 bytes at 0 (header offset)
	mountReadOffset

	// 2: 8 bytes at header offset (header size)
	mountReadSize

	// 3: descriptor table after the header size word
	mountReadTable

	// 4: done
	mountComplete

	mountFailed
)

var mountStepNames = []string{"init", "read-offset", "read-size", "read-table", "complete", "failed"}

func (self mountStep) String() string {
	if int(self) < len(mountStepNames) {
		return mountStepNames[self]
	}
	return fmt.Sprintf("mountStep(%d)", int(self))
}

type mountState struct {
	step         mountStep
	maxTableSize uint32

	headerOffset uint32
	headerSize   uint32

	// buf is the destination of the read in flight
	buf []byte

	// table is the loaded descriptor table (headerSize bytes)
	table []byte

	err error
}

// mountEvent is the outcome of the previously requested read.
type mountEvent struct {
	n   int
	err error
}

// mountEffect is what the driver has to do next: either issue a read,
// or (at terminal state) report the result.
type mountEffect struct {
	read bool
	addr uint32
	dest []byte
}

func (self mountState) fail(err error) (mountState, mountEffect) {
	self.step = mountFailed
	self.err = err
	self.buf = nil
	self.table = nil
	return self, mountEffect{}
}

func (self mountState) read(step mountStep, addr uint32, dest []byte) (mountState, mountEffect) {
	self.step = step
	self.buf = dest
	return self, mountEffect{read: true, addr: addr, dest: dest}
}

// resumeMount is the mount sequencer transition function. Given the
// state and the outcome of the read it asked for, it returns the next
// state and the next effect. It has no side effects.
func resumeMount(s mountState, ev mountEvent) (mountState, mountEffect) {
	switch s.step {
	case mountComplete, mountFailed:
		log.Panicf("resumeMount called in terminal state %v", s.step)
	case mountInit:
		return s.read(mountReadOffset, 0, make([]byte, headerWordSize))
	}
	if ev.err != nil {
		return s.fail(errors.Wrapf(ErrStorageFailure, "mount %v: %v", s.step, ev.err))
	}
	if ev.n != len(s.buf) {
		return s.fail(errors.Wrapf(ErrStorageFailure, "mount %v: short read %d < %d",
			s.step, ev.n, len(s.buf)))
	}
	switch s.step {
	case mountReadOffset:
		s.headerOffset = binary.LittleEndian.Uint32(s.buf)
		return s.read(mountReadSize, s.headerOffset, make([]byte, headerWordSize))
	case mountReadSize:
		s.headerSize = binary.LittleEndian.Uint32(s.buf)
		if s.headerSize > s.maxTableSize {
			return s.fail(errors.Wrapf(ErrOutOfMemory, "descriptor table of %d b (limit %d)",
				s.headerSize, s.maxTableSize))
		}
		addr := uint64(s.headerOffset) + headerWordSize
		if addr+uint64(s.headerSize) > 1<<32 {
			return s.fail(errors.Wrapf(ErrInvalidTable, "table at %x+%d past address space",
				addr, s.headerSize))
		}
		s.table = make([]byte, util.RoundUp8(s.headerSize))
		return s.read(mountReadTable, uint32(addr), s.table)
	case mountReadTable:
		s.table = s.table[:s.headerSize]
		if err := validateTable(s.table); err != nil {
			return s.fail(err)
		}
		s.step = mountComplete
		s.buf = nil
		return s, mountEffect{}
	}
	log.Panicf("invalid mount step %v", s.step)
	return s, mountEffect{}
}

// mounter drives resumeMount: performs the reads it asks for, and
// feeds the outcomes back, one step per completion.
type mounter struct {
	fs    *Fs
	state mountState
	done  *sched.Task
}

func (self *mounter) resume(ev mountEvent) {
	var eff mountEffect
	prev := self.state.step
	self.state, eff = resumeMount(self.state, ev)
	mlog.Printf2("fs/mount", "m.resume %v => %v", prev, self.state.step)
	if eff.read {
		mlog.Printf2("fs/mount", " reading %d b at %x", len(eff.dest), eff.addr)
		self.fs.storage.ReadAsync(eff.addr, eff.dest, sched.NewTask(func(t *sched.Task) {
			self.resume(mountEvent{n: t.Result(), err: t.Err()})
		}))
		return
	}
	switch self.state.step {
	case mountComplete:
		self.fs.table = self.state.table
		self.fs.mounted = true
		mlog.Printf2("fs/mount", " mounted, %d b table", len(self.fs.table))
		self.fs.sched.Complete(self.done, 0, nil)
	case mountFailed:
		mlog.Printf2("fs/mount", " mount failed: %v", self.state.err)
		self.fs.sched.Complete(self.done, 0, self.state.err)
	default:
		log.Panicf("no effect in non-terminal state %v", self.state.step)
	}
}

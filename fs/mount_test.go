/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 15:20:02 2019 mstenber
 * Last modified: Mon Mar 18 17:40:51 2019 mstenber
 * Edit time:     52 min
 *
 */

package fs

import (
	"encoding/binary"
	"testing"

	"github.com/fingon/go-readfs/sched"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

// feed fills the effect destination from image, and returns the
// matching event.
func feed(image []byte, eff mountEffect) mountEvent {
	n := copy(eff.dest, image[eff.addr:])
	return mountEvent{n: n}
}

func TestResumeMount(t *testing.T) {
	t.Parallel()
	image := buildImage(0x1000, testEntry{0x2000, "a.bin", testData(100, 0)})
	s := mountState{maxTableSize: DefaultMaxTableSize}

	s, eff := resumeMount(s, mountEvent{})
	assert.Equal(t, s.step, mountReadOffset)
	assert.True(t, eff.read)
	assert.Equal(t, eff.addr, uint32(0))
	assert.Equal(t, len(eff.dest), 8)

	s, eff = resumeMount(s, feed(image, eff))
	assert.Equal(t, s.step, mountReadSize)
	assert.Equal(t, s.headerOffset, uint32(0x1000))
	assert.Equal(t, eff.addr, uint32(0x1000))
	assert.Equal(t, len(eff.dest), 8)

	s, eff = resumeMount(s, feed(image, eff))
	assert.Equal(t, s.step, mountReadTable)
	assert.Equal(t, s.headerSize, uint32(4+12+5))
	assert.Equal(t, eff.addr, uint32(0x1008))
	assert.Equal(t, len(eff.dest), 24)

	s, eff = resumeMount(s, feed(image, eff))
	assert.Equal(t, s.step, mountComplete)
	assert.False(t, eff.read)
	assert.Nil(t, s.err)
	assert.Equal(t, len(s.table), 21)

	defer func() {
		assert.True(t, recover() != nil)
	}()
	resumeMount(s, mountEvent{})
}

func TestResumeMountStorageFailure(t *testing.T) {
	t.Parallel()
	image := buildImage(0x100, testEntry{0x200, "a", testData(10, 0)})
	// Fail each of the three steps in turn
	for fail := 0; fail < 3; fail++ {
		s := mountState{maxTableSize: DefaultMaxTableSize}
		s, eff := resumeMount(s, mountEvent{})
		for i := 0; eff.read; i++ {
			ev := feed(image, eff)
			if i == fail {
				ev = mountEvent{err: errFake}
			}
			s, eff = resumeMount(s, ev)
		}
		assert.Equal(t, s.step, mountFailed)
		assert.Equal(t, errors.Cause(s.err), ErrStorageFailure)
		assert.Nil(t, s.table)
	}

	// Short read is a failure too
	s := mountState{maxTableSize: DefaultMaxTableSize}
	s, _ = resumeMount(s, mountEvent{})
	s, _ = resumeMount(s, mountEvent{n: 4})
	assert.Equal(t, s.step, mountFailed)
	assert.Equal(t, errors.Cause(s.err), ErrStorageFailure)
}

func TestResumeMountOutOfMemory(t *testing.T) {
	t.Parallel()
	image := buildImage(0x100, testEntry{0x200, "abcdefgh", testData(10, 0)})
	s := mountState{maxTableSize: 16}
	s, eff := resumeMount(s, mountEvent{})
	s, eff = resumeMount(s, feed(image, eff))
	s, eff = resumeMount(s, feed(image, eff))
	// table is 4+12+8 > 16: no third read is issued
	assert.False(t, eff.read)
	assert.Equal(t, s.step, mountFailed)
	assert.Equal(t, errors.Cause(s.err), ErrOutOfMemory)
}

func TestResumeMountInvalidTable(t *testing.T) {
	t.Parallel()
	image := buildImage(0x100, testEntry{0x200, "abc", testData(10, 0)})
	// Claim two entries while there is only one
	binary.LittleEndian.PutUint32(image[0x108:], 2)
	s := mountState{maxTableSize: DefaultMaxTableSize}
	s, eff := resumeMount(s, mountEvent{})
	for eff.read {
		s, eff = resumeMount(s, feed(image, eff))
	}
	assert.Equal(t, s.step, mountFailed)
	assert.Equal(t, errors.Cause(s.err), ErrInvalidTable)
}

func TestMountOneStepPerTurn(t *testing.T) {
	t.Parallel()
	image := buildImage(0x1000, testEntry{0x2000, "a.bin", testData(100, 0)})
	s := &sched.Scheduler{}
	st := &fakeStorage{image: image, sched: s}
	called := 0
	var got error
	fs := MountAsync(Config{Storage: st, Scheduler: s}, sched.NewCallback(func(err error) {
		called++
		got = err
	}))
	assert.Equal(t, len(st.transfers), 1)
	assert.True(t, s.RunOnce())
	assert.Equal(t, len(st.transfers), 2)
	assert.True(t, s.RunOnce())
	assert.Equal(t, len(st.transfers), 3)
	assert.Equal(t, called, 0)
	_, err := fs.Entries()
	assert.Equal(t, err, ErrNotMounted)

	// Table arrives; completion is queued, and then called once
	assert.True(t, s.RunOnce())
	assert.Equal(t, called, 0)
	assert.True(t, s.RunOnce())
	assert.Equal(t, called, 1)
	assert.Nil(t, got)
	assert.False(t, s.RunOnce())
	assert.Equal(t, st.transfers, []transfer{{0, 8}, {0x1000, 8}, {0x1008, 24}})

	entries, err := fs.Entries()
	assert.Nil(t, err)
	assert.Equal(t, entries, []Entry{{0x2000, 100, "a.bin"}})
}

func TestMountFailure(t *testing.T) {
	t.Parallel()
	image := buildImage(0x1000, testEntry{0x2000, "a.bin", testData(100, 0)})
	s := &sched.Scheduler{}
	st := &fakeStorage{image: image, sched: s, fail: func(addr uint32, size int) error {
		if addr == 0x1000 {
			return errFake
		}
		return nil
	}}
	fs, err := Mount(Config{Storage: st, Scheduler: s})
	assert.Nil(t, fs)
	assert.Equal(t, errors.Cause(err), ErrStorageFailure)
	// No retry
	assert.Equal(t, len(st.transfers), 2)

	// Table limit
	st.fail = nil
	_, err = Mount(Config{Storage: st, Scheduler: s, MaxTableSize: 8})
	assert.Equal(t, errors.Cause(err), ErrOutOfMemory)

	// Header pointing past the storage
	st.image = buildImage(0x1000)
	binary.LittleEndian.PutUint32(st.image, 0x100000)
	_, err = Mount(Config{Storage: st, Scheduler: s})
	assert.Equal(t, errors.Cause(err), ErrStorageFailure)
}

func TestUnmount(t *testing.T) {
	t.Parallel()
	image := buildImage(0x10, testEntry{0x100, "x", testData(20, 0)})
	fs, _ := mountTest(t, image)
	f, err := fs.Open("x")
	assert.Nil(t, err)
	assert.Nil(t, fs.Unmount())
	assert.Equal(t, fs.Unmount(), ErrNotMounted)
	_, err = fs.Open("x")
	assert.Equal(t, errors.Cause(err), ErrNotMounted)
	_, err = fs.Entries()
	assert.Equal(t, err, ErrNotMounted)

	// Already open file still works
	buf := make([]byte, 20)
	n, err := f.Read(buf)
	assert.Nil(t, err)
	assert.Equal(t, n, 20)
	assert.Equal(t, buf, testData(20, 0))
}

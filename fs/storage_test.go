/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 12 16:40:31 2019 mstenber
 * Last modified: Mon Mar 18 17:12:20 2019 mstenber
 * Edit time:     36 min
 *
 */

package fs

import (
	"encoding/binary"
	"testing"

	"github.com/fingon/go-readfs/sched"
	"github.com/fingon/go-readfs/util"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

type transfer struct {
	addr uint32
	size int
}

// fakeStorage records every transfer, and completes them through the
// scheduler like a real device would.
type fakeStorage struct {
	image     []byte
	sched     *sched.Scheduler
	transfers []transfer

	// fail, if set, decides whether a transfer fails
	fail func(addr uint32, size int) error
}

var errFake = errors.New("fake failure")

func (self *fakeStorage) ReadAsync(addr uint32, dest []byte, done *sched.Task) {
	self.transfers = append(self.transfers, transfer{addr, len(dest)})
	if self.fail != nil {
		if err := self.fail(addr, len(dest)); err != nil {
			self.sched.Complete(done, 0, err)
			return
		}
	}
	if int(addr) >= len(self.image) {
		self.sched.Complete(done, 0, errFake)
		return
	}
	n := copy(dest, self.image[addr:])
	for i := n; i < len(dest); i++ {
		dest[i] = 0
	}
	self.sched.Complete(done, len(dest), nil)
}

func (self *fakeStorage) reset() {
	self.transfers = nil
}

func (self *fakeStorage) transferred() (sum int) {
	for _, t := range self.transfers {
		sum += t.size
	}
	return
}

type testEntry struct {
	addr uint32
	name string
	data []byte
}

// buildImage lays out image by hand, with files at given addresses.
func buildImage(headerOffset uint32, entries ...testEntry) []byte {
	table := util.Uint32LEBytes(uint32(len(entries)))
	end := int(headerOffset) + 8
	for _, e := range entries {
		table = util.ConcatBytes(table,
			util.Uint32LEBytes(e.addr),
			util.Uint32LEBytes(uint32(len(e.data))),
			util.Uint32LEBytes(uint32(len(e.name))),
			[]byte(e.name))
		if fend := int(e.addr) + len(e.data); fend > end {
			end = fend
		}
	}
	if tend := int(headerOffset) + 8 + int(util.RoundUp8(uint32(len(table)))); tend > end {
		end = tend
	}
	image := make([]byte, end)
	binary.LittleEndian.PutUint32(image, headerOffset)
	binary.LittleEndian.PutUint32(image[headerOffset:], uint32(len(table)))
	copy(image[headerOffset+8:], table)
	for _, e := range entries {
		copy(image[e.addr:], e.data)
	}
	return image
}

func testData(size int, seed int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i*13 + seed)
	}
	return b
}

// phased returns buffer of size bytes whose first byte is at the given
// phase within a word.
func phased(size int, phase uint32) []byte {
	b := make([]byte, size+util.WordSize)
	for i := 0; i < util.WordSize; i++ {
		if util.AddrPhase(b[i:]) == phase {
			return b[i : i+size]
		}
	}
	panic("unable to produce phased buffer")
}

func mountTest(t *testing.T, image []byte) (*Fs, *fakeStorage) {
	s := &sched.Scheduler{}
	st := &fakeStorage{image: image, sched: s}
	fs, err := Mount(Config{Storage: st, Scheduler: s})
	assert.Nil(t, err)
	st.reset()
	return fs, st
}

func TestPhased(t *testing.T) {
	t.Parallel()
	for i := uint32(0); i < util.WordSize; i++ {
		b := phased(3, i)
		assert.Equal(t, len(b), 3)
		assert.Equal(t, util.AddrPhase(b), i)
	}
}

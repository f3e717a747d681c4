/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 12 09:02:41 2019 mstenber
 * Last modified: Mon Mar 18 15:20:02 2019 mstenber
 * Edit time:     161 min
 *
 */

package fs

import (
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/sched"
	"github.com/fingon/go-readfs/util"
)

func (self *File) invalidateCache() {
	self.cacheValid = false
	self.cache = [CacheWindow]byte{}
}

// cacheCovers returns true if the populated window contains
// [addr, addr+size).
func (self *File) cacheCovers(addr, size uint32) bool {
	return self.cacheValid && addr >= self.cacheAddress &&
		uint64(addr)+uint64(size) <= uint64(self.cacheAddress)+CacheWindow
}

// readCached serves (a prefix of) dest from the cache window. On a
// miss the window is reloaded starting at the 8 byte boundary at or
// below addr; nothing is handled until the reload completes and the
// read is resumed.
func (self *File) readCached(dest []byte, addr uint32) (handled uint32, pending bool) {
	size := util.UMin32(uint32(len(dest)), CacheWindow-util.Phase(addr))
	if self.cacheCovers(addr, size) {
		mlog.Printf2("fs/cache", "f.readCached hit %x+%d", addr, size)
		copy(dest[:size], self.cache[addr-self.cacheAddress:])
		return size, false
	}
	self.cacheAddress = util.AlignDown8(addr)
	self.cacheValid = false
	mlog.Printf2("fs/cache", "f.readCached miss %x+%d, reloading at %x", addr, size, self.cacheAddress)
	self.fs.storage.ReadAsync(self.cacheAddress, self.cache[:], sched.NewTask(func(t *sched.Task) {
		if t.Err() == nil {
			self.cacheValid = true
		}
		self.transferDone(t)
	}))
	return 0, true
}

// readChunk handles one chunk of a read: the start of dest, from
// storage address addr.
//
// Small reads, and reads whose source and destination are not in the
// same phase within a word, go through the cache. Other reads bypass
// it: any unaligned prefix is served via the cache first, then the
// word-aligned bulk is transferred directly into dest. The remaining
// (less than a word) tail is left for a later chunk.
//
// handled is the number of bytes of dest done or in flight; pending
// means a transfer is in flight and the read resumes on its
// completion.
func (self *File) readChunk(dest []byte, addr uint32) (handled uint32, pending bool) {
	size := uint32(len(dest))
	phase := util.Phase(addr)
	if size <= CacheSmallThreshold || phase != util.AddrPhase(dest) {
		return self.readCached(dest, addr)
	}
	if phase != 0 {
		prefix := util.WordSize - phase
		handled, pending = self.readCached(dest[:prefix], addr)
		if pending {
			return
		}
		dest = dest[prefix:]
		addr += prefix
		size -= prefix
	}
	block := util.AlignDown8(size)
	mlog.Printf2("fs/cache", "f.readChunk direct %x+%d (prefix %d)", addr, block, handled)
	self.fs.storage.ReadAsync(addr, dest[:block], sched.NewTask(self.transferDone))
	return handled + block, true
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 09:03:12 2019 mstenber
 * Last modified: Wed Mar 20 13:36:02 2019 mstenber
 * Edit time:     21 min
 *
 */

package util

import (
	"encoding/binary"
	"unsafe"
)

// WordSize is the granularity at which storage transfers are
// considered aligned.
const WordSize = 8

const wordMask = WordSize - 1

// RoundUp8 rounds n up to the next multiple of WordSize.
func RoundUp8(n uint32) uint32 {
	return (n + wordMask) &^ wordMask
}

// AlignDown8 rounds n down to the previous multiple of WordSize.
func AlignDown8(n uint32) uint32 {
	return n &^ wordMask
}

// Phase returns the position of n within its word.
func Phase(n uint32) uint32 {
	return n & wordMask
}

// AddrPhase returns the position of the first byte of b within its
// word in memory. Transfers between two locations with different
// phases cannot be done as whole words.
func AddrPhase(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0])) & wordMask)
}

func UMin32(i uint32, ints ...uint32) uint32 {
	for _, v := range ints {
		if v < i {
			i = v
		}
	}
	return i
}

func ConcatBytes(bytes ...[]byte) []byte {
	nl := 0
	for _, b := range bytes {
		nl += len(b)
	}
	r := make([]byte, 0, nl)
	for _, b := range bytes {
		r = append(r, b...)
	}
	return r
}

// Uint32LEBytes encodes n the way the image headers store words.
func Uint32LEBytes(n uint32) []byte {
	nb := make([]byte, 4)
	binary.LittleEndian.PutUint32(nb, n)
	return nb
}

func Uint32BEBytes(n uint32) []byte {
	nb := make([]byte, 4)
	binary.BigEndian.PutUint32(nb, n)
	return nb
}

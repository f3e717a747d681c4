/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 13:12:02 2019 mstenber
 * Last modified: Mon Mar 18 12:32:11 2019 mstenber
 * Edit time:     37 min
 *
 */

package fs

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// Entry describes one file of the image.
type Entry struct {
	Address, Size uint32
	Name          string
}

// entryView is a descriptor record within the table blob.
type entryView []byte

func (self entryView) Address() uint32 {
	return binary.LittleEndian.Uint32(self)
}

func (self entryView) Size() uint32 {
	return binary.LittleEndian.Uint32(self[4:])
}

func (self entryView) Name() []byte {
	return self[tableEntryFixedSize:]
}

func (self entryView) Entry() Entry {
	return Entry{Address: self.Address(), Size: self.Size(), Name: string(self.Name())}
}

func tableCount(table []byte) uint32 {
	return binary.LittleEndian.Uint32(table)
}

// iterateTable calls cb for entries of a validated table until it
// returns false.
func iterateTable(table []byte, cb func(e entryView) bool) {
	pos := uint32(4)
	count := tableCount(table)
	for i := uint32(0); i < count; i++ {
		l := binary.LittleEndian.Uint32(table[pos+8:])
		end := pos + tableEntryFixedSize + l
		if !cb(entryView(table[pos:end])) {
			return
		}
		pos = end
	}
}

// findEntry scans the table for exact byte match of name.
func findEntry(table []byte, name string) (found entryView, ok bool) {
	bname := []byte(name)
	iterateTable(table, func(e entryView) bool {
		if bytes.Equal(e.Name(), bname) {
			found = e
			ok = true
			return false
		}
		return true
	})
	return
}

// validateTable ensures every record the entry count promises is
// within the table.
func validateTable(table []byte) error {
	if len(table) < 4 {
		return errors.Wrapf(ErrInvalidTable, "table of %d b", len(table))
	}
	count := tableCount(table)
	pos := uint64(4)
	size := uint64(len(table))
	for i := uint32(0); i < count; i++ {
		if pos+tableEntryFixedSize > size {
			return errors.Wrapf(ErrInvalidTable, "entry %d/%d at %d past end %d", i, count, pos, size)
		}
		l := uint64(binary.LittleEndian.Uint32(table[pos+8:]))
		pos += tableEntryFixedSize + l
		if pos > size {
			return errors.Wrapf(ErrInvalidTable, "entry %d/%d name past end %d", i, count, size)
		}
	}
	return nil
}

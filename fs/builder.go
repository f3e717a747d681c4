/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 13 13:21:09 2019 mstenber
 * Last modified: Mon Mar 18 16:44:30 2019 mstenber
 * Edit time:     58 min
 *
 */

package fs

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/util"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// DefaultHeaderOffset places the header right after the header
// offset word.
const DefaultHeaderOffset = headerWordSize

var ErrDuplicate = errors.New("duplicate name")

type builderEntry struct {
	name string
	data []byte
}

// ImageBuilder produces images the file system can mount. File data
// follows the descriptor table, each file starting at a multiple of
// Align.
type ImageBuilder struct {
	// HeaderOffset is where the header is placed; at least 8.
	// DefaultHeaderOffset if zero.
	HeaderOffset uint32

	// Align is the alignment of file data; 8 if zero.
	Align uint32

	entries []builderEntry
	names   map[string]bool
}

// Add appends a file to the image. The data is not copied.
func (self *ImageBuilder) Add(name string, data []byte) error {
	if self.names == nil {
		self.names = make(map[string]bool)
	}
	if self.names[name] {
		return errors.Wrapf(ErrDuplicate, "%q", name)
	}
	self.names[name] = true
	self.entries = append(self.entries, builderEntry{name: name, data: data})
	return nil
}

// Len returns the number of files added so far.
func (self *ImageBuilder) Len() int {
	return len(self.entries)
}

// AddFromFs adds every regular file below root, named by its path
// relative to root (with / as separator).
func (self *ImageBuilder) AddFromFs(fs afero.Fs, root string) error {
	return afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// MemMapFs directories may lack ModeDir
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		mlog.Printf2("fs/builder", "ib.AddFromFs %s: %d b", path, len(data))
		return self.Add(filepath.ToSlash(rel), data)
	})
}

func roundUp(n, align uint64) uint64 {
	return (n + align - 1) / align * align
}

// Bytes returns the image.
func (self *ImageBuilder) Bytes() ([]byte, error) {
	headerOffset := self.HeaderOffset
	if headerOffset == 0 {
		headerOffset = DefaultHeaderOffset
	}
	if headerOffset < headerWordSize {
		return nil, errors.Errorf("header offset %d overlaps header offset word", headerOffset)
	}
	align := uint64(self.Align)
	if align == 0 {
		align = util.WordSize
	}

	tableSize := uint64(4)
	for _, e := range self.entries {
		tableSize += tableEntryFixedSize + uint64(len(e.name))
	}
	tableStart := uint64(headerOffset) + headerWordSize
	pos := roundUp(tableStart+tableSize, align)
	addrs := make([]uint64, len(self.entries))
	for i, e := range self.entries {
		addrs[i] = pos
		pos = roundUp(pos+uint64(len(e.data)), align)
	}
	if len(self.entries) > 0 {
		last := len(self.entries) - 1
		pos = addrs[last] + uint64(len(self.entries[last].data))
	}
	if pos > 1<<32-1 {
		return nil, errors.Errorf("image too large (%d b)", pos)
	}
	mlog.Printf2("fs/builder", "ib.Bytes %d files, table %d b, image %d b", len(self.entries), tableSize, pos)

	image := make([]byte, pos)
	binary.LittleEndian.PutUint32(image, headerOffset)
	binary.LittleEndian.PutUint32(image[headerOffset:], uint32(tableSize))
	table := image[tableStart:]
	binary.LittleEndian.PutUint32(table, uint32(len(self.entries)))
	tpos := 4
	for i, e := range self.entries {
		binary.LittleEndian.PutUint32(table[tpos:], uint32(addrs[i]))
		binary.LittleEndian.PutUint32(table[tpos+4:], uint32(len(e.data)))
		binary.LittleEndian.PutUint32(table[tpos+8:], uint32(len(e.name)))
		tpos += tableEntryFixedSize
		tpos += copy(table[tpos:], e.name)
		copy(image[addrs[i]:], e.data)
	}
	return image, nil
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 11:14:11 2018 mstenber
 * Last modified: Wed Mar 13 15:02:21 2019 mstenber
 * Edit time:     38 min
 *
 */

// storage package provides the raw addressable storage a read-only
// image lives in.
//
// Backend is the synchronous, byte-addressed view of some medium
// (memory, file, mmap, key-value store, remote server). Device wraps
// a Backend into the asynchronous transfer primitive the file system
// consumes: transfers run in the background and complete through the
// scheduler.
package storage

import (
	"github.com/fingon/go-readfs/codec"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Backend is the shadow behind the throne; it actually handles the
// low-level reading of bytes of the image.
type Backend interface {
	// ReadAt reads len(p) bytes starting at addr. Semantics are
	// those of io.ReaderAt: n < len(p) only with an error, which
	// is io.EOF when the image ends.
	ReadAt(p []byte, addr uint32) (n int, err error)

	// Size returns the size of the image in bytes.
	Size() uint32

	// Close the backend
	Close() error
}

// Importer is implemented by backends that can be provisioned with
// an image. Import replaces any previous image.
type Importer interface {
	Import(image []byte) error
}

type BackendConfiguration struct {
	// Directory is where the on-disk backends keep their files.
	Directory string

	// Path is the image file (file, mmap backends).
	Path string

	// Address is the server address (remote backend).
	Address string

	// Family is the network family for Address; default tcp.
	Family string

	// PageSize is the size of pages in the paged backends; 0 means
	// DefaultPageSize.
	PageSize int

	// Codec is applied to pages of the paged backends; nil means
	// pages are stored as-is.
	Codec codec.Codec

	// Fs is the file system the file backend uses; nil means the
	// OS one.
	Fs afero.Fs
}

func (self *BackendConfiguration) GetFs() afero.Fs {
	if self.Fs == nil {
		return afero.NewOsFs()
	}
	return self.Fs
}

func (self *BackendConfiguration) GetPageSize() int {
	if self.PageSize <= 0 {
		return DefaultPageSize
	}
	return self.PageSize
}

const DefaultPageSize = 4096

var (
	ErrOutOfBounds = errors.New("address out of bounds")
	ErrChecksum    = errors.New("checksum mismatch")
	ErrNotImported = errors.New("no image imported")
	ErrUnsupported = errors.New("unsupported operation")
)

// ReadFull is ReadAt that treats the end of image as error too.
func ReadFull(be Backend, p []byte, addr uint32) error {
	n, err := be.ReadAt(p, addr)
	if n == len(p) {
		return nil
	}
	if err == nil {
		err = errors.Errorf("short read %d < %d", n, len(p))
	}
	return errors.Wrapf(err, "read %d b at %x", len(p), addr)
}

// ReadAll returns the whole image.
func ReadAll(be Backend) ([]byte, error) {
	buf := make([]byte, be.Size())
	err := ReadFull(be, buf, 0)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// CheckRange clamps [addr, addr+len(p)) to an image of size
// bytes. It returns how many bytes can be read, and whether the
// request runs past the end (the read should then return io.EOF).
func CheckRange(p []byte, addr, size uint32) (n int, short bool, err error) {
	if addr > size {
		err = errors.Wrapf(ErrOutOfBounds, "%x > %x", addr, size)
		return
	}
	n = len(p)
	if uint64(addr)+uint64(n) > uint64(size) {
		n = int(size - addr)
		short = true
	}
	return
}

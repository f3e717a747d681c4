/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 13:40:02 2019 mstenber
 * Last modified: Fri Mar 15 09:51:10 2019 mstenber
 * Edit time:     33 min
 *
 */

// storagetest provides the shared conformance checks every
// storage.Backend implementation is run through.
package storagetest

import (
	"io"
	"testing"

	"github.com/fingon/go-readfs/storage"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

// Image returns deterministic test image of size bytes.
func Image(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i*7 + i/256)
	}
	return b
}

// ProdImage checks that be serves exactly image.
func ProdImage(t *testing.T, be storage.Backend, image []byte) {
	size := uint32(len(image))
	assert.Equal(t, be.Size(), size)

	// Whole image
	all, err := storage.ReadAll(be)
	assert.Nil(t, err)
	assert.Equal(t, all, image)

	// Odd sized reads at odd offsets
	for _, addr := range []uint32{0, 1, 7, 4095, 4096, 4097, size / 2} {
		for _, l := range []int{1, 8, 136, 5000} {
			if addr >= size {
				continue
			}
			p := make([]byte, l)
			n, err := be.ReadAt(p, addr)
			want := l
			if int(addr)+l > len(image) {
				want = len(image) - int(addr)
				assert.Equal(t, err, io.EOF)
			} else {
				assert.Nil(t, err)
			}
			assert.Equal(t, n, want)
			assert.Equal(t, p[:n], image[addr:int(addr)+want])
		}
	}

	// At the end: nothing, EOF
	n, err := be.ReadAt(make([]byte, 1), size)
	assert.Equal(t, n, 0)
	assert.Equal(t, err, io.EOF)

	// Past the end: error
	_, err = be.ReadAt(make([]byte, 1), size+1)
	assert.Equal(t, errors.Cause(err), storage.ErrOutOfBounds)
}

// ProdBackend imports test images into be (which must be
// storage.Importer) and checks they are served correctly, and then
// closes it.
func ProdBackend(t *testing.T, be storage.Backend) {
	imp, ok := be.(storage.Importer)
	assert.True(t, ok)

	image := Image(10000)
	err := imp.Import(image)
	assert.Nil(t, err)
	ProdImage(t, be, image)

	// Reimport replaces, also when shrinking
	image2 := Image(5000)
	image2[0] = 42
	err = imp.Import(image2)
	assert.Nil(t, err)
	ProdImage(t, be, image2)

	err = be.Close()
	assert.Nil(t, err)
}

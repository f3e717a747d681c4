/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 17 22:20:08 2017 mstenber
 * Last modified: Thu Mar 14 14:02:45 2019 mstenber
 * Edit time:     81 min
 *
 */

package inmemory

import (
	"io"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/util"
)

// inMemoryBackend provides In-memory storage; the image is just a
// byte slice.
type inMemoryBackend struct {
	image []byte
	lock  util.MutexLocked
}

var _ storage.Backend = &inMemoryBackend{}
var _ storage.Importer = &inMemoryBackend{}

func NewInMemoryBackend() storage.Backend {
	return &inMemoryBackend{}
}

// NewInMemoryBackendWithImage returns backend serving image. The
// slice is used as-is, not copied.
func NewInMemoryBackendWithImage(image []byte) storage.Backend {
	return &inMemoryBackend{image: image}
}

func (self *inMemoryBackend) Close() error {
	return nil
}

func (self *inMemoryBackend) Import(image []byte) error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/inmemory/inmemory", "im.Import %d b", len(image))
	self.image = append([]byte(nil), image...)
	return nil
}

func (self *inMemoryBackend) ReadAt(p []byte, addr uint32) (n int, err error) {
	defer self.lock.Locked()()
	want, short, err := storage.CheckRange(p, addr, uint32(len(self.image)))
	if err != nil {
		return
	}
	n = copy(p[:want], self.image[addr:])
	if short {
		err = io.EOF
	}
	return
}

func (self *inMemoryBackend) Size() uint32 {
	defer self.lock.Locked()()
	return uint32(len(self.image))
}

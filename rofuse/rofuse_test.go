/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 10:31:55 2019 mstenber
 * Last modified: Wed Mar 20 11:11:02 2019 mstenber
 * Edit time:     21 min
 *
 */

package rofuse

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/fingon/go-readfs/fs"
	"github.com/fingon/go-readfs/fstest"
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/sched"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/storage/inmemory"
	"github.com/fingon/go-readfs/util"
	"github.com/hanwen/go-fuse/fuse"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

func testData(size, seed int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i*seed + i/7)
	}
	return b
}

func mountFiles(t *testing.T, files map[string][]byte) (*fs.Fs, func()) {
	b := fs.ImageBuilder{}
	for name, data := range files {
		assert.Nil(t, b.Add(name, data))
	}
	image, err := b.Bytes()
	assert.Nil(t, err)

	s := &sched.Scheduler{}
	d := storage.Device{Backend: inmemory.NewInMemoryBackendWithImage(image),
		Scheduler: s}.Init()
	f, err := fs.Mount(fs.Config{Storage: d, Scheduler: s})
	assert.Nil(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	var wg util.SimpleWaitGroup
	wg.Go(func() {
		s.Run(ctx)
	})
	return f, func() {
		cancel()
		wg.Wait()
		assert.Nil(t, d.Close())
	}
}

func TestFileSystem(t *testing.T) {
	t.Parallel()
	files := map[string][]byte{
		"empty": []byte{},
		"small": testData(5, 3),
		"mid":   testData(1000, 5),
		"large": testData(70000, 11),
	}
	f, stop := mountFiles(t, files)
	defer stop()
	pfs, err := NewFileSystem(f)
	assert.Nil(t, err)
	fstest.ProdFs(t, pfs, files)

	got, err := fstest.NewFSUser(pfs).ReadFile("empty", 10)
	assert.Nil(t, err)
	assert.Equal(t, got, []byte{})
}

func TestNames(t *testing.T) {
	t.Parallel()
	f, stop := mountFiles(t, map[string][]byte{
		"/abs":    testData(3, 1),
		"dir/sub": testData(3, 2),
		"/":       testData(3, 3),
	})
	defer stop()
	pfs, err := NewFileSystem(f)
	assert.Nil(t, err)
	u := fstest.NewFSUser(pfs)
	l, err := u.ListDir("/")
	assert.Nil(t, err)
	assert.Equal(t, l, []string{"abs"})
	got, err := u.ReadFile("abs", 10)
	assert.Nil(t, err)
	assert.Equal(t, got, testData(3, 1))
	_, err = u.Stat("dir/sub")
	assert.Equal(t, err, fstest.ErrNok)
}

func TestOpen(t *testing.T) {
	t.Parallel()
	data := testData(300, 7)
	f, stop := mountFiles(t, map[string][]byte{"f": data})
	defer stop()
	pfs, err := NewFileSystem(f)
	assert.Nil(t, err)

	_, status := pfs.Open("f", uint32(os.O_RDWR), nil)
	assert.Equal(t, status, fuse.EPERM)
	_, status = pfs.OpenDir("f", nil)
	assert.Equal(t, status, fuse.ENOTDIR)

	h, status := pfs.Open("f", uint32(os.O_RDONLY), nil)
	assert.Equal(t, status, fuse.OK)
	defer h.Release()
	var attr fuse.Attr
	assert.Equal(t, h.GetAttr(&attr), fuse.OK)
	assert.Equal(t, attr.Size, uint64(300))

	// Out of order reads from the same handle
	buf := make([]byte, 50)
	for _, off := range []int64{200, 13, 299, 0, 300, 1000} {
		rr, status := h.Read(buf, off)
		assert.Equal(t, status, fuse.OK)
		b, _ := rr.Bytes(buf)
		if off >= 300 {
			assert.Equal(t, len(b), 0)
			continue
		}
		end := off + 50
		if end > 300 {
			end = 300
		}
		assert.Equal(t, b, data[off:end])
	}
}

func TestToStatus(t *testing.T) {
	t.Parallel()
	assert.Equal(t, toStatus(nil), fuse.OK)
	assert.Equal(t, toStatus(errors.Wrap(fs.ErrNotFound, "x")), fuse.ENOENT)
	assert.Equal(t, toStatus(fs.ErrStorageFailure), fuse.EIO)
	assert.Equal(t, toStatus(fs.ErrOutOfMemory), fuse.EIO)
	assert.Equal(t, toStatus(fs.ErrReadPending), fuse.EBUSY)
}

func TestConcurrentReads(t *testing.T) {
	t.Parallel()
	data := testData(5000, 13)
	f, stop := mountFiles(t, map[string][]byte{"f": data})
	defer stop()
	pfs, err := NewFileSystem(f)
	assert.Nil(t, err)
	h, status := pfs.Open("f", uint32(os.O_RDONLY), nil)
	assert.Equal(t, status, fuse.OK)
	defer h.Release()

	var wg util.SimpleWaitGroup
	for i := 0; i < 10; i++ {
		off := int64(i * 450)
		wg.Go(func() {
			buf := make([]byte, 123)
			rr, status := h.Read(buf, off)
			assert.Equal(t, status, fuse.OK)
			b, _ := rr.Bytes(buf)
			assert.Equal(t, b, data[off:off+123])
		})
	}
	wg.Wait()
}

func TestReleaseLogsCloseFailure(t *testing.T) {
	f, stop := mountFiles(t, map[string][]byte{"f": testData(10, 1)})
	defer stop()
	pfs, err := NewFileSystem(f)
	assert.Nil(t, err)
	h, status := pfs.Open("f", uint32(os.O_RDONLY), nil)
	assert.Equal(t, status, fuse.OK)

	var b bytes.Buffer
	defer mlog.SetLogger(log.New(&b, "", 0))()
	defer mlog.SetPattern("^rofuse/")()
	h.Release()
	assert.False(t, bytes.Contains(b.Bytes(), []byte("close failed")), b.String())
	h.Release()
	assert.True(t, bytes.Contains(b.Bytes(), []byte("close failed")), b.String())
}

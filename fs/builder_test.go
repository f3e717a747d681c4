/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 13 14:20:02 2019 mstenber
 * Last modified: Tue Mar 19 11:30:40 2019 mstenber
 * Edit time:     21 min
 *
 */

package fs

import (
	"sort"
	"testing"

	"github.com/fingon/go-readfs/sched"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/storage/inmemory"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stvp/assert"
)

func TestBuilder(t *testing.T) {
	t.Parallel()
	b := &ImageBuilder{}
	files := map[string][]byte{
		"a":       testData(1, 1),
		"b.txt":   testData(1000, 2),
		"c":       nil,
		"d/e.bin": testData(137, 3),
	}
	for _, name := range []string{"a", "b.txt", "c", "d/e.bin"} {
		assert.Nil(t, b.Add(name, files[name]))
	}
	assert.Equal(t, errors.Cause(b.Add("a", nil)), ErrDuplicate)
	assert.Equal(t, b.Len(), 4)
	image, err := b.Bytes()
	assert.Nil(t, err)

	s := &sched.Scheduler{}
	d := storage.Device{Backend: inmemory.NewInMemoryBackendWithImage(image),
		Scheduler: s}.Init()
	fs, err := Mount(Config{Storage: d, Scheduler: s})
	assert.Nil(t, err)
	entries, err := fs.Entries()
	assert.Nil(t, err)
	assert.Equal(t, len(entries), 4)
	for _, e := range entries {
		assert.Equal(t, e.Address%8, uint32(0))
		f, err := fs.Open(e.Name)
		assert.Nil(t, err)
		buf := make([]byte, e.Size+10)
		n, err := f.Read(buf)
		assert.Nil(t, err)
		assert.Equal(t, n, len(files[e.Name]))
		assert.Equal(t, string(buf[:n]), string(files[e.Name]))
	}
	assert.Nil(t, d.Close())
}

func TestBuilderHeaderOffset(t *testing.T) {
	t.Parallel()
	b := &ImageBuilder{HeaderOffset: 4}
	_, err := b.Bytes()
	assert.True(t, err != nil)

	// Empty image still mounts
	b = &ImageBuilder{HeaderOffset: 64, Align: 512}
	image, err := b.Bytes()
	assert.Nil(t, err)
	fs, _ := mountTest(t, image)
	entries, err := fs.Entries()
	assert.Nil(t, err)
	assert.Equal(t, len(entries), 0)
}

func TestBuilderAddFromFs(t *testing.T) {
	t.Parallel()
	afs := afero.NewMemMapFs()
	assert.Nil(t, afero.WriteFile(afs, "/src/x", []byte("hello"), 0644))
	assert.Nil(t, afero.WriteFile(afs, "/src/sub/y", []byte("world!"), 0644))
	assert.Nil(t, afero.WriteFile(afs, "/other/z", []byte("no"), 0644))
	assert.Nil(t, afs.MkdirAll("/src/empty/deeper", 0755))
	b := &ImageBuilder{}
	assert.Nil(t, b.AddFromFs(afs, "/src"))
	image, err := b.Bytes()
	assert.Nil(t, err)
	fs, _ := mountTest(t, image)
	entries, err := fs.Entries()
	assert.Nil(t, err)
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	assert.Equal(t, names, []string{"sub/y", "x"})
	f, err := fs.Open("sub/y")
	assert.Nil(t, err)
	buf := make([]byte, 10)
	n, err := f.Read(buf)
	assert.Nil(t, err)
	assert.Equal(t, string(buf[:n]), "world!")

	assert.True(t, b.AddFromFs(afs, "/missing") != nil)
}

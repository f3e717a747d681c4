/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 20 10:40:12 2019 mstenber
 * Last modified: Wed Mar 20 11:04:31 2019 mstenber
 * Edit time:     12 min
 *
 */

package fstest

import (
	"bytes"
	"os"
	"testing"

	"github.com/hanwen/go-fuse/fuse/pathfs"
	"github.com/stvp/assert"
)

// ProdFs exercises a flat read-only filesystem which should contain
// exactly the given files.
func ProdFs(t *testing.T, fs pathfs.FileSystem, files map[string][]byte) {
	root := NewFSUser(fs)
	fi, err := root.Stat("/")
	assert.Nil(t, err)
	assert.True(t, fi.IsDir())

	arr, err := root.ReadDir("/")
	assert.Nil(t, err)
	assert.Equal(t, len(arr), len(files))
	for _, fi := range arr {
		data, ok := files[fi.Name()]
		assert.True(t, ok, "unexpected ", fi.Name())
		assert.Equal(t, fi.Size(), int64(len(data)))
		assert.False(t, fi.IsDir())
		assert.Equal(t, fi.Mode().Perm(), os.FileMode(0444))
	}
	for name, data := range files {
		for _, chunk := range []int{1, 7, 100, 4096} {
			got, err := root.ReadFile(name, chunk)
			assert.Nil(t, err)
			assert.Equal(t, len(got), len(data), name, " ", chunk)
			assert.True(t, bytes.Equal(got, data), name, " ", chunk)
		}
	}

	_, err = root.Stat("/nonexistent")
	assert.Equal(t, err, ErrNok)
	_, err = root.ReadFile("/nonexistent", 1)
	assert.Equal(t, err, ErrNok)
	_, err = root.ListDir("/nonexistent")
	assert.Equal(t, err, ErrNok)
}

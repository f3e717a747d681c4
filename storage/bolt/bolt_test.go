/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 16:22:40 2019 mstenber
 * Last modified: Thu Mar 14 16:41:02 2019 mstenber
 * Edit time:     6 min
 *
 */

package bolt

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/storage/storagetest"
	"github.com/stvp/assert"
)

func TestBolt(t *testing.T) {
	t.Parallel()
	dir, err := ioutil.TempDir("", "bolt")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	config := storage.BackendConfiguration{Directory: dir, PageSize: 512}
	be, err := NewBoltBackend(config)
	assert.Nil(t, err)
	storagetest.ProdBackend(t, be)

	// Persisted across reopen
	be, err = NewBoltBackend(config)
	assert.Nil(t, err)
	assert.Equal(t, be.Size(), uint32(5000))
	assert.Nil(t, be.Close())
}

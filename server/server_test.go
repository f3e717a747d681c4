/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Fri Mar 15 16:35:02 2019 mstenber
 * Last modified: Fri Mar 15 16:58:40 2019 mstenber
 * Edit time:     13 min
 *
 */

package server_test

import (
	"testing"

	"github.com/fingon/go-readfs/server"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/storage/inmemory"
	"github.com/fingon/go-readfs/storage/remote"
	"github.com/fingon/go-readfs/storage/storagetest"
	"github.com/stvp/assert"
)

func TestServerRemote(t *testing.T) {
	t.Parallel()
	image := storagetest.Image(3000000)
	be := inmemory.NewInMemoryBackendWithImage(image)
	s, err := server.Server{Address: "127.0.0.1:0", Backend: be}.Init()
	assert.Nil(t, err)

	rbe, err := remote.NewRemoteBackend(storage.BackendConfiguration{Address: s.Addr().String()})
	assert.Nil(t, err)
	storagetest.ProdImage(t, rbe, image)
	assert.Nil(t, rbe.Close())
	assert.Nil(t, s.Close())

	_, err = remote.NewRemoteBackend(storage.BackendConfiguration{Address: s.Addr().String()})
	assert.True(t, err != nil)
}

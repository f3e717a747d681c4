/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:22:52 2018 mstenber
 * Last modified: Mon Mar 18 09:32:40 2019 mstenber
 * Edit time:     61 min
 *
 */

package factory

import (
	"sort"

	"github.com/fingon/go-readfs/codec"
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/storage/badger"
	"github.com/fingon/go-readfs/storage/bolt"
	"github.com/fingon/go-readfs/storage/file"
	"github.com/fingon/go-readfs/storage/inmemory"
	"github.com/fingon/go-readfs/storage/mmap"
	"github.com/fingon/go-readfs/storage/remote"
	"github.com/pkg/errors"
)

type factoryCallback func(config storage.BackendConfiguration) (storage.Backend, error)

type backendFactory struct {
	create factoryCallback

	// paged backends store pages through codec
	paged bool
}

var backendFactories = map[string]backendFactory{
	"inmemory": {create: func(config storage.BackendConfiguration) (storage.Backend, error) {
		return inmemory.NewInMemoryBackend(), nil
	}},
	"file":   {create: file.NewFileBackend},
	"mmap":   {create: mmap.NewMmapBackend},
	"remote": {create: remote.NewRemoteBackend},
	"bolt":   {create: bolt.NewBoltBackend, paged: true},
	"badger": {create: badger.NewBadgerBackend, paged: true},
}

var ErrUnknownBackend = errors.New("unknown backend")

func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func New(name string, config storage.BackendConfiguration) (storage.Backend, error) {
	mlog.Printf2("storage/factory/factory", "f.New %v %v", name, config)
	f, ok := backendFactories[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", name)
	}
	return f.create(config)
}

type Configuration struct {
	storage.BackendConfiguration
	BackendName    string
	Password, Salt string
	Iterations     int

	// Compression is the codec.CompressionType name; empty means
	// none.
	Compression string
}

const defaultSalt = "asdf"

// Codec returns the page codec described by the configuration, or
// nil if neither encryption nor compression is wanted.
func (self *Configuration) Codec() (codec.Codec, error) {
	ct, err := codec.ParseCompressionType(self.Compression)
	if err != nil {
		return nil, err
	}
	codecs := []codec.Codec{}
	if self.Password != "" {
		salt := self.Salt
		if salt == "" {
			salt = defaultSalt
		}
		mlog.Printf2("storage/factory/factory", " with encryption")
		codecs = append(codecs, codec.EncryptingCodec{}.Init([]byte(self.Password), []byte(salt), self.Iterations))
	}
	if ct != codec.CompressionType_UNSET {
		mlog.Printf2("storage/factory/factory", " with compression %v", ct)
		codecs = append(codecs, &codec.CompressingCodec{Type: ct})
	}
	if len(codecs) == 0 {
		return nil, nil
	}
	return codec.CodecChain{}.Init(codecs...), nil
}

// NewWithConfig creates the named backend, with codec chain
// assembled from the password and compression settings.
func NewWithConfig(config Configuration) (storage.Backend, error) {
	mlog.Printf2("storage/factory/factory", "f.NewWithConfig %v", config.BackendName)
	f, ok := backendFactories[config.BackendName]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", config.BackendName)
	}
	c, err := config.Codec()
	if err != nil {
		return nil, err
	}
	if c != nil && !f.paged {
		return nil, errors.Wrapf(storage.ErrUnsupported,
			"%s backend does not support encryption or compression", config.BackendName)
	}
	beconfig := config.BackendConfiguration
	beconfig.Codec = c
	return f.create(beconfig)
}

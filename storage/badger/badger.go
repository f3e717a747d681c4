/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Thu Mar 14 17:05:31 2019 mstenber
 * Edit time:     183 min
 *
 */

package badger

import (
	"github.com/dgraph-io/badger"
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/util"
	"github.com/pkg/errors"
)

var infoKey = []byte("i")
var pagePrefix = []byte("p")

// badgerPageStore provides on-disk storage.
//
// - key i -> info record
// - key prefix p + big-endian page index -> page record
type badgerPageStore struct {
	db *badger.DB
}

var _ storage.PageStore = &badgerPageStore{}

func NewBadgerBackend(config storage.BackendConfiguration) (storage.Backend, error) {
	dir := config.Directory
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "badger.Open")
	}
	self := &badgerPageStore{db: db}
	be, err := storage.NewPagedBackend(self, config)
	if err != nil {
		db.Close()
		return nil, err
	}
	return be, nil
}

func (self *badgerPageStore) Close() error {
	return self.db.Close()
}

func pageKey(index uint32) []byte {
	return util.ConcatBytes(pagePrefix, util.Uint32BEBytes(index))
}

func (self *badgerPageStore) get(k []byte) (v []byte, err error) {
	err = self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(k)
		if err == nil {
			v, err = i.ValueCopy(nil)
		}
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	return
}

func (self *badgerPageStore) set(k, v []byte) error {
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (self *badgerPageStore) delete(k []byte) error {
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

func (self *badgerPageStore) GetInfo() ([]byte, error) {
	return self.get(infoKey)
}

func (self *badgerPageStore) GetPage(index uint32) ([]byte, error) {
	mlog.Printf2("storage/badger/badger", "bad.GetPage %d", index)
	return self.get(pageKey(index))
}

// pageKeys returns all page keys currently present.
func (self *badgerPageStore) pageKeys() (keys [][]byte, err error) {
	err = self.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(pagePrefix); it.ValidForPrefix(pagePrefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return
}

// Replace uses one transaction per page; the info record goes last.
func (self *badgerPageStore) Replace(info []byte, pages [][]byte) error {
	mlog.Printf2("storage/badger/badger", "bad.Replace %d pages", len(pages))
	err := self.delete(infoKey)
	if err != nil {
		return err
	}
	keys, err := self.pageKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err = self.delete(k); err != nil {
			return errors.Wrap(err, "txn.Delete")
		}
	}
	for i, page := range pages {
		if err = self.set(pageKey(uint32(i)), page); err != nil {
			return errors.Wrap(err, "txn.Set")
		}
	}
	return self.set(infoKey, info)
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 22:49:15 2018 mstenber
 * Last modified: Thu Mar 14 16:20:11 2019 mstenber
 * Edit time:     61 min
 *
 */

package bolt

import (
	"os"
	"path/filepath"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/storage"
	"github.com/fingon/go-readfs/util"
	"github.com/pkg/errors"
	bbolt "go.etcd.io/bbolt"
)

var infoBucket = []byte("info")
var pagesBucket = []byte("pages")
var infoKey = []byte("info")

// boltPageStore provides on-disk storage.
//
// - info bucket: info key -> info record
// - pages bucket: big-endian page index -> page record
type boltPageStore struct {
	db *bbolt.DB
}

var _ storage.PageStore = &boltPageStore{}

func NewBoltBackend(config storage.BackendConfiguration) (storage.Backend, error) {
	dir := config.Directory
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return nil, errors.Wrap(err, "MkdirAll")
	}
	db, err := bbolt.Open(filepath.Join(dir, "bbolt.db"), 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "bbolt.Open")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(infoBucket)
		if err != nil {
			return err
		}
		_, err = tx.CreateBucketIfNotExists(pagesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	self := &boltPageStore{db: db}
	be, err := storage.NewPagedBackend(self, config)
	if err != nil {
		db.Close()
		return nil, err
	}
	return be, nil
}

func (self *boltPageStore) Close() error {
	return self.db.Close()
}

func (self *boltPageStore) get(bucket, key []byte) (v []byte, err error) {
	err = self.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket).Get(key)
		if b != nil {
			// only valid during the transaction
			v = append([]byte(nil), b...)
		}
		return nil
	})
	return
}

func (self *boltPageStore) GetInfo() ([]byte, error) {
	return self.get(infoBucket, infoKey)
}

func (self *boltPageStore) GetPage(index uint32) ([]byte, error) {
	mlog.Printf2("storage/bolt/bolt", "bbolt.GetPage %d", index)
	return self.get(pagesBucket, util.Uint32BEBytes(index))
}

func (self *boltPageStore) Replace(info []byte, pages [][]byte) error {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Replace %d pages", len(pages))
	return self.db.Update(func(tx *bbolt.Tx) error {
		err := tx.DeleteBucket(pagesBucket)
		if err != nil {
			return err
		}
		b, err := tx.CreateBucket(pagesBucket)
		if err != nil {
			return err
		}
		for i, page := range pages {
			err = b.Put(util.Uint32BEBytes(uint32(i)), page)
			if err != nil {
				return err
			}
		}
		return tx.Bucket(infoBucket).Put(infoKey, info)
	})
}

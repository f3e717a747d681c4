/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 09:12:30 2019 mstenber
 * Last modified: Fri Mar 15 12:40:08 2019 mstenber
 * Edit time:     97 min
 *
 */

package storage

import (
	"bytes"
	"io"

	"github.com/fingon/go-readfs/codec"
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/util"
	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	ugorji "github.com/ugorji/go/codec"
)

// PageStore is the key-value medium underneath PagedBackend.
type PageStore interface {
	// GetInfo returns the info record, or nil if there is none.
	GetInfo() ([]byte, error)

	// GetPage returns the page record, or nil if there is none.
	GetPage(index uint32) ([]byte, error)

	// Replace stores new info record and pages, dropping the
	// old ones.
	Replace(info []byte, pages [][]byte) error

	Close() error
}

type PageInfo struct {
	Size     uint32
	PageSize uint32
}

type pageRecord struct {
	// Sum is sha256 of Data
	Sum  []byte
	Data []byte
}

var infoAD = []byte("info")

var mh ugorji.MsgpackHandle

func encodeMsg(v interface{}) (buf []byte, err error) {
	enc := ugorji.NewEncoderBytes(&buf, &mh)
	err = enc.Encode(v)
	return
}

func decodeMsg(buf []byte, v interface{}) error {
	dec := ugorji.NewDecoderBytes(buf, &mh)
	return dec.Decode(v)
}

// PagedBackend stores the image in fixed size pages within a
// PageStore. Each page is stored as a checksummed record passed
// through the Codec (if any), with the page index as additional
// data so pages can not be swapped around.
type PagedBackend struct {
	store    PageStore
	codec    codec.Codec
	pageSize int

	lock util.MutexLocked
	info *PageInfo

	// infoErr is why the stored info record could not be decoded
	// (e.g. other codec); cleared by Import.
	infoErr error

	// most recently decoded page
	lastIndex uint32
	lastPage  []byte
}

var _ Backend = &PagedBackend{}
var _ Importer = &PagedBackend{}

func NewPagedBackend(store PageStore, config BackendConfiguration) (*PagedBackend, error) {
	self := &PagedBackend{store: store, codec: config.Codec,
		pageSize: config.GetPageSize()}
	if self.codec == nil {
		self.codec = &codec.CodecChain{}
	}
	err := self.loadInfo()
	if err != nil {
		return nil, err
	}
	return self, nil
}

func (self *PagedBackend) loadInfo() error {
	b, err := self.store.GetInfo()
	if err != nil {
		return errors.Wrap(err, "GetInfo")
	}
	if b == nil {
		mlog.Printf2("storage/paged", "pb.loadInfo - nothing imported yet")
		return nil
	}
	info, err := self.decodeInfo(b)
	if err != nil {
		mlog.Printf2("storage/paged", "pb.loadInfo failed: %v", err)
		self.infoErr = err
		return nil
	}
	mlog.Printf2("storage/paged", "pb.loadInfo %v", info)
	self.info = info
	return nil
}

func (self *PagedBackend) decodeInfo(b []byte) (*PageInfo, error) {
	b, err := self.codec.DecodeBytes(b, infoAD)
	if err != nil {
		return nil, errors.Wrap(err, "decoding info")
	}
	var info PageInfo
	err = decodeMsg(b, &info)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal info")
	}
	if info.PageSize == 0 {
		return nil, errors.Errorf("invalid page size in info %v", info)
	}
	return &info, nil
}

// Info returns the current image geometry, or nil if no image has
// been imported.
func (self *PagedBackend) Info() *PageInfo {
	defer self.lock.Locked()()
	if self.info == nil {
		return nil
	}
	info := *self.info
	return &info
}

func (self *PagedBackend) Size() uint32 {
	defer self.lock.Locked()()
	if self.info == nil {
		return 0
	}
	return self.info.Size
}

func (self *PagedBackend) getPage(index uint32) ([]byte, error) {
	if self.lastPage != nil && self.lastIndex == index {
		return self.lastPage, nil
	}
	b, err := self.store.GetPage(index)
	if err != nil {
		return nil, errors.Wrapf(err, "GetPage %d", index)
	}
	if b == nil {
		return nil, errors.Errorf("page %d missing", index)
	}
	b, err = self.codec.DecodeBytes(b, util.Uint32BEBytes(index))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding page %d", index)
	}
	var rec pageRecord
	err = decodeMsg(b, &rec)
	if err != nil {
		return nil, errors.Wrapf(err, "unmarshal page %d", index)
	}
	sum := sha256.Sum256(rec.Data)
	if !bytes.Equal(sum[:], rec.Sum) {
		return nil, errors.Wrapf(ErrChecksum, "page %d", index)
	}
	self.lastIndex = index
	self.lastPage = rec.Data
	return rec.Data, nil
}

func (self *PagedBackend) ReadAt(p []byte, addr uint32) (n int, err error) {
	defer self.lock.Locked()()
	if self.infoErr != nil {
		err = self.infoErr
		return
	}
	if self.info == nil {
		err = ErrNotImported
		return
	}
	want, short, err := CheckRange(p, addr, self.info.Size)
	if err != nil {
		return
	}
	ps := self.info.PageSize
	for n < want {
		pos := addr + uint32(n)
		page, err2 := self.getPage(pos / ps)
		if err2 != nil {
			err = err2
			return
		}
		ofs := pos % ps
		if int(ofs) >= len(page) {
			err = errors.Wrapf(ErrChecksum, "page %d too short", pos/ps)
			return
		}
		n += copy(p[n:want], page[ofs:])
	}
	if short {
		err = io.EOF
	}
	return
}

func (self *PagedBackend) Import(image []byte) error {
	if uint64(len(image)) > uint64(^uint32(0)) {
		return errors.Errorf("image too large (%d b)", len(image))
	}
	ps := self.pageSize
	info := PageInfo{Size: uint32(len(image)), PageSize: uint32(ps)}
	mlog.Printf2("storage/paged", "pb.Import %v", info)
	pages := make([][]byte, 0, (len(image)+ps-1)/ps)
	for i := 0; i*ps < len(image); i++ {
		end := (i + 1) * ps
		if end > len(image) {
			end = len(image)
		}
		data := image[i*ps : end]
		sum := sha256.Sum256(data)
		b, err := encodeMsg(&pageRecord{Sum: sum[:], Data: data})
		if err != nil {
			return err
		}
		b, err = self.codec.EncodeBytes(b, util.Uint32BEBytes(uint32(i)))
		if err != nil {
			return errors.Wrapf(err, "encoding page %d", i)
		}
		pages = append(pages, b)
	}
	ib, err := encodeMsg(&info)
	if err != nil {
		return err
	}
	ib, err = self.codec.EncodeBytes(ib, infoAD)
	if err != nil {
		return errors.Wrap(err, "encoding info")
	}
	defer self.lock.Locked()()
	err = self.store.Replace(ib, pages)
	if err != nil {
		return errors.Wrap(err, "Replace")
	}
	self.info = &info
	self.infoErr = nil
	self.lastPage = nil
	return nil
}

func (self *PagedBackend) Close() error {
	return self.store.Close()
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 24 16:42:12 2017 mstenber
 * Last modified: Wed Mar 13 11:52:40 2019 mstenber
 * Edit time:     121 min
 *
 */

// codec library is responsible for transforming data + additionalData
// to different kind of data. This means in practise either
// encrypting/decrypting, or compressing/uncompressing on case-by-case
// basis.
//
// CodecChain makes it possible to combine multiple Codecs that do the
// particular sub-EncodeBytes/DecodeBytes steps.
package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"log"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/sha256-simd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// Codec
//
// Single transformation of byte slices.
type Codec interface {
	DecodeBytes(data, additionalData []byte) (ret []byte, err error)
	EncodeBytes(data, additionalData []byte) (ret []byte, err error)
}

var ErrCorrupt = errors.New("corrupt encoded data")

// EncryptingCodec
//
// AES GCM based encrypting/decrypting (+authenticating) Codec. The
// output is nonce followed by the sealed data.
type EncryptingCodec struct {
	gcm cipher.AEAD
	// Main key
	mk []byte
}

const DefaultIterations = 12345

func (self EncryptingCodec) Init(password, salt []byte, iter int) *EncryptingCodec {
	if iter == 0 {
		iter = DefaultIterations
	}
	self.mk = pbkdf2.Key(password, salt, iter, 32, sha256.New)
	block, err := aes.NewCipher(self.mk)
	if err != nil {
		log.Panic(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		log.Panic(err)
	}
	self.gcm = gcm
	return &self
}

func (self *EncryptingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ns := self.gcm.NonceSize()
	if len(data) < ns+self.gcm.Overhead() {
		err = errors.Wrapf(ErrCorrupt, "encrypted data too short (%d b)", len(data))
		return
	}
	ret, err = self.gcm.Open(nil, data[:ns], data[ns:], additionalData)
	if err != nil {
		err = errors.Wrap(err, "gcm.Open")
	}
	return
}

func (self *EncryptingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ns := self.gcm.NonceSize()
	nonce := make([]byte, ns, ns+len(data)+self.gcm.Overhead())
	if _, err = rand.Read(nonce); err != nil {
		return
	}
	ret = self.gcm.Seal(nonce, nonce, data, additionalData)
	return
}

// CompressingCodec
//
// On-the-fly compressing Codec. If the result does not improve, the
// result is marked to be plaintext and passed as-is (at cost of 1
// byte). Type is the algorithm used when encoding; decoding handles
// whatever is found in the data.
type CompressingCodec struct {
	Type CompressionType
}

// largest decoded size we are willing to produce; pages are small.
const largestCompressionSize = 1024000000

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		log.Panic(err)
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		log.Panic(err)
	}
}

func (self *CompressingCodec) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	if len(data) == 0 {
		err = errors.Wrap(ErrCorrupt, "empty compressed data")
		return
	}
	ct := CompressionType(data[0])
	data = data[1:]
	switch ct {
	case CompressionType_PLAIN:
		ret = data
	case CompressionType_SNAPPY:
		ret, err = snappy.Decode(nil, data)
	case CompressionType_LZ4:
		if len(data) < 4 {
			err = errors.Wrap(ErrCorrupt, "lz4 header")
			return
		}
		size := int(binary.LittleEndian.Uint32(data))
		if size > largestCompressionSize {
			err = errors.Wrapf(ErrCorrupt, "lz4 size %d", size)
			return
		}
		ret = make([]byte, size)
		var n int
		n, err = lz4.UncompressBlock(data[4:], ret)
		if err == nil && n != size {
			err = errors.Wrapf(ErrCorrupt, "lz4 got %d != %d", n, size)
		}
	case CompressionType_ZSTD:
		ret, err = zstdDecoder.DecodeAll(data, nil)
	default:
		err = errors.Wrapf(ErrUnknownCompression, "type %d", ct)
	}
	if err != nil {
		ret = nil
		err = errors.Wrapf(err, "decode %v", ct)
	}
	return
}

func (self *CompressingCodec) compress(data []byte) (ret []byte, err error) {
	ct := self.Type
	switch ct {
	case CompressionType_UNSET, CompressionType_SNAPPY:
		ct = CompressionType_SNAPPY
		ret = snappy.Encode(nil, data)
	case CompressionType_LZ4:
		buf := make([]byte, 4+lz4.CompressBlockBound(len(data)))
		binary.LittleEndian.PutUint32(buf, uint32(len(data)))
		var n int
		n, err = lz4.CompressBlock(data, buf[4:], nil)
		if err != nil || n == 0 {
			// n == 0 means incompressible
			return
		}
		ret = buf[:4+n]
	case CompressionType_ZSTD:
		ret = zstdEncoder.EncodeAll(data, nil)
	case CompressionType_PLAIN:
	default:
		err = errors.Wrapf(ErrUnknownCompression, "type %d", ct)
	}
	if ret != nil {
		ret = append([]byte{byte(ct)}, ret...)
	}
	return
}

func (self *CompressingCodec) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret, err = self.compress(data)
	if err != nil {
		return
	}
	if ret == nil || len(ret) > len(data) {
		ret = append([]byte{byte(CompressionType_PLAIN)}, data...)
	}
	return
}

type CodecChain struct {
	codecs, reverseCodecs []Codec
}

// Init method initializes the codec chain.
//
// codecs are given in decryption order, so e.g.
// encrypting one should be given before compressing one.
func (self CodecChain) Init(codecs ...Codec) *CodecChain {
	self.codecs = codecs
	// Reverse the codec slice for encryption purposes
	rc := make([]Codec, len(codecs))
	for i, c := range codecs {
		rc[len(codecs)-i-1] = c
	}
	self.reverseCodecs = rc
	return &self
}

func (self *CodecChain) DecodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.codecs {
		ret, err = c.DecodeBytes(data, additionalData)
		if err != nil {
			return
		}
		data = ret
	}
	return
}

func (self *CodecChain) EncodeBytes(data, additionalData []byte) (ret []byte, err error) {
	ret = data
	for _, c := range self.reverseCodecs {
		ret, err = c.EncodeBytes(data, additionalData)
		if err != nil {
			return
		}
		data = ret
	}
	return
}

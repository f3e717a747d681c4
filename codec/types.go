/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 13 09:42:58 2019 mstenber
 * Last modified: Wed Mar 13 10:21:46 2019 mstenber
 * Edit time:     12 min
 *
 */

package codec

import (
	"strings"

	"github.com/pkg/errors"
)

// CompressionType is the first byte of CompressingCodec output.
type CompressionType byte

const (
	CompressionType_UNSET CompressionType = iota

	// The data has not been compressed.
	CompressionType_PLAIN

	// The data is compressed with Snappy.
	CompressionType_SNAPPY

	// The data is a LZ4 block, preceded by 4 byte (little endian)
	// uncompressed length.
	CompressionType_LZ4

	// The data is a zstd frame.
	CompressionType_ZSTD
)

var compressionNames = map[CompressionType]string{
	CompressionType_UNSET:  "none",
	CompressionType_PLAIN:  "plain",
	CompressionType_SNAPPY: "snappy",
	CompressionType_LZ4:    "lz4",
	CompressionType_ZSTD:   "zstd",
}

func (self CompressionType) String() string {
	s, ok := compressionNames[self]
	if !ok {
		return "unknown"
	}
	return s
}

var ErrUnknownCompression = errors.New("unknown compression type")

// ParseCompressionType maps user-visible name to CompressionType. Empty
// string means no compression at all.
func ParseCompressionType(name string) (CompressionType, error) {
	name = strings.ToLower(name)
	if name == "" {
		return CompressionType_UNSET, nil
	}
	for k, v := range compressionNames {
		if v == name {
			return k, nil
		}
	}
	return CompressionType_UNSET, errors.Wrapf(ErrUnknownCompression, "%q", name)
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 24 17:15:30 2017 mstenber
 * Last modified: Wed Mar 13 12:20:02 2019 mstenber
 * Edit time:     79 min
 *
 */

package codec

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

const compressible = "123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789"

func ProdCodecOnce(text string, c Codec, t *testing.T) {
	p := []byte(text)
	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	dec, err := c.DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.Equal(t, p, dec)

}

func ProdCodec(c Codec, t *testing.T) {
	ProdCodecOnce("foo", c, t)
	ProdCodecOnce(compressible, c, t)
	ProdCodecOnce(string(make([]byte, 4096)), c, t)
}

func TestEncryptingCodec(t *testing.T) {
	t.Parallel()
	p := []byte("data")
	ad := []byte("ad")

	c := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)

	// 'any codec' handling
	ProdCodec(c, t)

	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)

	// Ensure we can't mess around with additional data
	_, err2 := c.DecodeBytes(enc, ad)
	assert.True(t, err2 != nil)

	// Ensure same payload does not encrypt the same way
	enc2, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	assert.NotEqual(t, enc, enc2)

	// But it still can be decrypted
	dec, err := c.DecodeBytes(enc2, nil)
	assert.Nil(t, err)
	assert.Equal(t, p, dec)

	// Ensure we're good with additional data too
	enc3, err := c.EncodeBytes(p, ad)
	assert.Nil(t, err)
	dec, err = c.DecodeBytes(enc3, ad)
	assert.Nil(t, err)
	assert.Equal(t, p, dec)

	// Truncated data is refused, not panicked on
	_, err = c.DecodeBytes(enc3[:5], ad)
	assert.Equal(t, errors.Cause(err), ErrCorrupt)

	// Wrong password does not decode
	c2 := EncryptingCodec{}.Init([]byte("bar"), []byte("salt"), 64)
	_, err = c2.DecodeBytes(enc3, ad)
	assert.True(t, err != nil)
}

func TestCompressingCodec(t *testing.T) {
	t.Parallel()
	for _, ct := range []CompressionType{CompressionType_UNSET, CompressionType_SNAPPY, CompressionType_LZ4, CompressionType_ZSTD, CompressionType_PLAIN} {
		ct := ct
		t.Run(ct.String(), func(t *testing.T) {
			c := &CompressingCodec{Type: ct}
			ProdCodec(c, t)

			p := []byte(compressible)
			enc, err := c.EncodeBytes(p, nil)
			assert.Nil(t, err)
			if ct == CompressionType_PLAIN {
				assert.Equal(t, len(enc), len(p)+1)
				assert.Equal(t, CompressionType(enc[0]), CompressionType_PLAIN)
			} else {
				assert.True(t, len(enc) < len(compressible)/2)
			}
		})
	}
}

func TestCompressingCodecRandom(t *testing.T) {
	t.Parallel()
	p := make([]byte, 1024)
	_, err := rand.Read(p)
	assert.Nil(t, err)
	c := &CompressingCodec{Type: CompressionType_LZ4}
	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	// incompressible input costs one byte
	assert.Equal(t, CompressionType(enc[0]), CompressionType_PLAIN)
	assert.Equal(t, len(enc), len(p)+1)
	dec, err := c.DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(dec, p))
}

func TestCompressingCodecCrossDecode(t *testing.T) {
	t.Parallel()
	// Decoding does not depend on configured Type
	enc, err := (&CompressingCodec{Type: CompressionType_ZSTD}).EncodeBytes([]byte(compressible), nil)
	assert.Nil(t, err)
	dec, err := (&CompressingCodec{Type: CompressionType_LZ4}).DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.Equal(t, string(dec), compressible)
}

func TestCompressingCodecCorrupt(t *testing.T) {
	t.Parallel()
	c := &CompressingCodec{}
	_, err := c.DecodeBytes(nil, nil)
	assert.Equal(t, errors.Cause(err), ErrCorrupt)
	_, err = c.DecodeBytes([]byte{42, 1, 2}, nil)
	assert.Equal(t, errors.Cause(err), ErrUnknownCompression)
	_, err = c.DecodeBytes([]byte{byte(CompressionType_LZ4), 1}, nil)
	assert.Equal(t, errors.Cause(err), ErrCorrupt)
}

func TestParseCompressionType(t *testing.T) {
	t.Parallel()
	ct, err := ParseCompressionType("")
	assert.Nil(t, err)
	assert.Equal(t, ct, CompressionType_UNSET)
	ct, err = ParseCompressionType("LZ4")
	assert.Nil(t, err)
	assert.Equal(t, ct, CompressionType_LZ4)
	ct, err = ParseCompressionType("zstd")
	assert.Nil(t, err)
	assert.Equal(t, ct, CompressionType_ZSTD)
	_, err = ParseCompressionType("gzip")
	assert.Equal(t, errors.Cause(err), ErrUnknownCompression)
}

func TestNopCodecChain(t *testing.T) {
	t.Parallel()
	c := &CodecChain{}
	ProdCodec(c, t)
}

func TestCodecChain(t *testing.T) {
	t.Parallel()
	c1 := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	c2 := &CompressingCodec{}
	c := CodecChain{}.Init(c1, c2)
	ProdCodec(c, t)

	p := []byte(compressible)
	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	// compressed before encryption, so still smaller than input
	assert.True(t, len(enc) < len(compressible))
}

func BenchmarkCodec(b *testing.B) {
	runEncode := func(b *testing.B, c Codec, p []byte) {
		b.SetBytes(int64(len(p)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			enc, err := c.EncodeBytes(p, nil)
			if err != nil || enc == nil {
				log.Panic(err)
			}

		}
	}
	runDecode := func(b *testing.B, c Codec, p []byte) {
		b.SetBytes(int64(len(p)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			dec, err := c.DecodeBytes(p, nil)
			if err != nil || dec == nil {
				log.Panic(err)
			}

		}
	}
	add := func(c Codec, prefix string) {
		p1 := make([]byte, 4096)
		_, err := rand.Read(p1)
		if err != nil {
			log.Panic(err)
		}
		b.Run(fmt.Sprintf("Encode-%s-Random", prefix), func(b *testing.B) {
			runEncode(b, c, p1)
		})
		p1e, _ := c.EncodeBytes(p1, nil)
		b.Run(fmt.Sprintf("Decode-%s-Random", prefix), func(b *testing.B) {
			runDecode(b, c, p1e)
		})

		// Zero hero variant
		p2 := make([]byte, 4096)
		b.Run(fmt.Sprintf("Encode-%s-Zeros", prefix), func(b *testing.B) {
			runEncode(b, c, p2)
		})
		p2e, _ := c.EncodeBytes(p2, nil)
		b.Run(fmt.Sprintf("Decode-%s-Zeros", prefix), func(b *testing.B) {
			runDecode(b, c, p2e)
		})

	}
	c1 := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	add(c1, "AES")
	for _, ct := range []CompressionType{CompressionType_SNAPPY, CompressionType_LZ4, CompressionType_ZSTD} {
		c2 := &CompressingCodec{Type: ct}
		add(c2, ct.String())
		add(CodecChain{}.Init(c1, c2), "AES+"+ct.String())
	}
}

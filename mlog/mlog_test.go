/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 14:31:18 2019 mstenber
 * Last modified: Fri Mar 22 09:38:47 2019 mstenber
 * Edit time:     14 min
 *
 */

package mlog

import (
	"bytes"
	"log"
	"testing"

	"github.com/stvp/assert"
)

func TestMlog(t *testing.T) {
	SetGoroutineIDs(false)
	defer SetGoroutineIDs(true)
	add := func(pattern string, outputted bool) {
		t.Run(pattern, func(t *testing.T) {
			var b bytes.Buffer
			logger := log.New(&b, "", 0)
			defer SetLogger(logger)()
			defer SetPattern(pattern)()
			Printf("foo %s", "bar")
			assert.Equal(t, b.Len() > 0, outputted)
			if outputted {
				assert.Equal(t, b.String(), "foo bar\n")
			}
		})
	}
	add("", false)
	add("zzzglorb", false)
	add("mlog_test", true)
}

func TestPrintf2(t *testing.T) {
	SetGoroutineIDs(false)
	defer SetGoroutineIDs(true)
	var b bytes.Buffer
	defer SetLogger(log.New(&b, "", 0))()
	defer SetPattern("^fs/")()
	Printf2("storage/device", "not shown")
	Printf2("fs/cache", "shown %d", 42)
	assert.Equal(t, b.String(), "shown 42\n")
}

func TestMlogRecursion(t *testing.T) {
	SetGoroutineIDs(false)
	defer SetGoroutineIDs(true)
	var b bytes.Buffer
	logger := log.New(&b, "", 0)
	Reset()
	defer SetLogger(logger)()
	defer SetPattern(".")()
	Printf("d0")
	func() {
		Printf("d1")
		func() {
			Printf("d2")
		}()
		Printf("D1")
	}()
	Printf("D0")
	assert.Equal(t, b.String(), "d0\n.d1\n..d2\n.D1\nD0\n")
}

func BenchmarkMlogDisabled(b *testing.B) {
	defer SetPattern("")()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf("x")
	}
}

func BenchmarkMlogDisabled2(b *testing.B) {
	defer SetPattern("")()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf2("x", "y", 42)
	}
}

func BenchmarkMlogNotMatching(b *testing.B) {
	defer SetPattern("zzglorb")()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Printf("x")
	}
}

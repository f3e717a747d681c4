/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 12:49:31 2019 mstenber
 * Last modified: Mon Mar 11 12:58:02 2019 mstenber
 * Edit time:     4 min
 *
 */

// gid provides the (officially unavailable) goroutine id. It is
// used only for debug output, where knowing which goroutine drove
// the executor is handy.
package gid

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// GetGoroutineID parses the id out of the first line of the current
// goroutine's stack trace. Returns 0 if the format is unexpected.
func GetGoroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	if !bytes.HasPrefix(b, goroutinePrefix) {
		return 0
	}
	b = b[len(goroutinePrefix):]
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return 0
	}
	n, err := strconv.ParseUint(string(b[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 09:31:10 2019 mstenber
 * Last modified: Mon Mar 18 12:10:52 2019 mstenber
 * Edit time:     5 min
 *
 */

package fs

import "github.com/pkg/errors"

var (
	// ErrOutOfMemory is returned by mount when the descriptor
	// table can not be allocated.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrStorageFailure wraps any failed storage transfer.
	ErrStorageFailure = errors.New("storage failure")

	ErrNotFound     = errors.New("file not found")
	ErrOutOfRange   = errors.New("offset out of range")
	ErrReadPending  = errors.New("read already pending")
	ErrNotMounted   = errors.New("file system not mounted")
	ErrInvalidTable = errors.New("invalid descriptor table")
	ErrClosed       = errors.New("file closed")
)

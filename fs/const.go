/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 09:19:42 2019 mstenber
 * Last modified: Mon Mar 18 12:07:39 2019 mstenber
 * Edit time:     6 min
 *
 */

package fs

// Reads of at most this many bytes always go through the cache.
const CacheSmallThreshold = 16

// CacheWindowAligned is the granularity of the cache window.
const CacheWindowAligned = 128

// CacheWindow is the size of the per-file cache window: the aligned
// part and slack for an unaligned start.
const CacheWindow = CacheWindowAligned + 8

// headerWordSize is the size of the header offset and header size
// words on storage; only the low 32 bits are meaningful.
const headerWordSize = 8

// tableEntryFixedSize is address + size + path size of a descriptor.
const tableEntryFixedSize = 12

// DefaultMaxTableSize is the largest descriptor table mount will
// allocate.
const DefaultMaxTableSize = 1 << 20

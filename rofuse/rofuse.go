/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 19 13:02:40 2019 mstenber
 * Last modified: Wed Mar 20 10:21:12 2019 mstenber
 * Edit time:     74 min
 *
 */

// rofuse exposes a mounted image as a read-only FUSE file system.
//
// Every descriptor becomes a regular file in the (only) root
// directory. Each open FUSE handle has a fs.File of its own, so
// handles do not share cache windows. The fs.Fs scheduler must be
// run by someone (e.g. Scheduler.Run in a goroutine) while the
// file system is being served.
package rofuse

import (
	"math"
	"strings"

	"github.com/fingon/go-readfs/fs"
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/util"
	"github.com/hanwen/go-fuse/fuse"
	"github.com/hanwen/go-fuse/fuse/nodefs"
	"github.com/hanwen/go-fuse/fuse/pathfs"
	"github.com/pkg/errors"
)

type fileSystem struct {
	pathfs.FileSystem
	fs      *fs.Fs
	entries map[string]fs.Entry
	names   []string
}

var _ pathfs.FileSystem = &fileSystem{}

// NewFileSystem returns pathfs view of the mounted fs. Descriptor
// names have leading / stripped; names that would need
// subdirectories are not visible.
func NewFileSystem(f *fs.Fs) (pathfs.FileSystem, error) {
	entries, err := f.Entries()
	if err != nil {
		return nil, err
	}
	self := &fileSystem{FileSystem: pathfs.NewDefaultFileSystem(), fs: f,
		entries: make(map[string]fs.Entry)}
	for _, e := range entries {
		name := strings.TrimLeft(e.Name, "/")
		if name == "" || strings.Contains(name, "/") {
			mlog.Printf2("rofuse/rofuse", "skipping %q", e.Name)
			continue
		}
		if _, ok := self.entries[name]; ok {
			continue
		}
		self.entries[name] = e
		self.names = append(self.names, name)
	}
	return self, nil
}

func (self *fileSystem) String() string {
	return "readfs"
}

func fileAttr(e fs.Entry) *fuse.Attr {
	return &fuse.Attr{Mode: fuse.S_IFREG | 0444, Size: uint64(e.Size), Nlink: 1}
}

func (self *fileSystem) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	mlog.Printf2("rofuse/rofuse", "GetAttr %q", name)
	if name == "" {
		return &fuse.Attr{Mode: fuse.S_IFDIR | 0555, Nlink: 2}, fuse.OK
	}
	e, ok := self.entries[name]
	if !ok {
		return nil, fuse.ENOENT
	}
	return fileAttr(e), fuse.OK
}

func (self *fileSystem) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	mlog.Printf2("rofuse/rofuse", "OpenDir %q", name)
	if name != "" {
		if _, ok := self.entries[name]; ok {
			return nil, fuse.ENOTDIR
		}
		return nil, fuse.ENOENT
	}
	ret := make([]fuse.DirEntry, 0, len(self.names))
	for _, name := range self.names {
		ret = append(ret, fuse.DirEntry{Name: name, Mode: fuse.S_IFREG})
	}
	return ret, fuse.OK
}

func (self *fileSystem) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	mlog.Printf2("rofuse/rofuse", "Open %q %x", name, flags)
	e, ok := self.entries[name]
	if !ok {
		return nil, fuse.ENOENT
	}
	if flags&fuse.O_ANYWRITE != 0 {
		return nil, fuse.EPERM
	}
	f, err := self.fs.SubmitOpen(e.Name).Wait()
	if err != nil {
		return nil, toStatus(err)
	}
	return &file{File: nodefs.NewDefaultFile(), f: f, entry: e}, fuse.OK
}

func toStatus(err error) fuse.Status {
	switch errors.Cause(err) {
	case nil:
		return fuse.OK
	case fs.ErrNotFound, fs.ErrNotMounted:
		return fuse.ENOENT
	case fs.ErrOutOfRange:
		return fuse.EINVAL
	case fs.ErrReadPending:
		return fuse.EBUSY
	case fs.ErrClosed:
		return fuse.EBADF
	}
	return fuse.EIO
}

// file is one open FUSE handle. The kernel may issue reads on a
// handle concurrently; fs.File takes one at a time.
type file struct {
	nodefs.File
	f     *fs.File
	entry fs.Entry
	lock  util.MutexLocked
}

func (self *file) String() string {
	return "readfs:" + self.entry.Name
}

func (self *file) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	mlog.Printf2("rofuse/rofuse", "Read %q %d b at %d", self.entry.Name, len(dest), off)
	if off < 0 || off >= int64(self.entry.Size) || off > math.MaxUint32 {
		return fuse.ReadResultData(nil), fuse.OK
	}
	defer self.lock.Locked()()
	n, err := self.f.SubmitReadAt(dest, uint32(off)).Wait()
	if err != nil {
		mlog.Printf2("rofuse/rofuse", " read failed: %v", err)
		return nil, toStatus(err)
	}
	return fuse.ReadResultData(dest[:n]), fuse.OK
}

func (self *file) GetAttr(out *fuse.Attr) fuse.Status {
	*out = *fileAttr(self.entry)
	return fuse.OK
}

func (self *file) Release() {
	mlog.Printf2("rofuse/rofuse", "Release %q", self.entry.Name)
	defer self.lock.Locked()()
	if _, err := self.f.SubmitClose().Wait(); err != nil {
		mlog.Printf2("rofuse/rofuse", " close failed: %v", err)
	}
}

// Mount serves fs at mountpoint. opts may be nil. The returned server
// is not yet serving; call its Serve method.
func Mount(f *fs.Fs, mountpoint string, opts *fuse.MountOptions) (*fuse.Server, error) {
	pfs, err := NewFileSystem(f)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &fuse.MountOptions{Name: "readfs", Options: []string{"ro"}}
	}
	if mlog.IsEnabled() {
		opts.Debug = true
	}
	nfs := pathfs.NewPathNodeFs(pfs, nil)
	conn := nodefs.NewFileSystemConnector(nfs.Root(), nil)
	server, err := fuse.NewServer(conn.RawFS(), mountpoint, opts)
	if err != nil {
		return nil, errors.Wrap(err, "fuse.NewServer")
	}
	return server, nil
}

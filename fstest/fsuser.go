/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 15:39:36 2017 mstenber
 * Last modified: Wed Mar 20 11:02:19 2019 mstenber
 * Edit time:     71 min
 *
 */

// fstest provides ~os module functionality on top of pathfs file
// systems.
//
// This does NOT intentionally really mount the filesystem for
// obvious reasons (parallel testing, no root needed).
package fstest

import (
	"errors"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/hanwen/go-fuse/fuse"
	"github.com/hanwen/go-fuse/fuse/pathfs"
)

var ErrNok = errors.New("Non-zero fuse value")

func s2e(status fuse.Status) error {
	if !status.Ok() {
		return ErrNok
	}
	return nil
}

type FSUser struct {
	fuse.Context
	fs pathfs.FileSystem
}

type fileInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	mtime time.Time
}

func (self *fileInfo) Name() string {
	return self.name
}

func (self *fileInfo) Size() int64 {
	return self.size
}

func (self *fileInfo) Mode() os.FileMode {
	return self.mode
}

func (self *fileInfo) ModTime() time.Time {
	return self.mtime
}

func (self *fileInfo) IsDir() bool {
	return self.Mode().IsDir()
}

func (self *fileInfo) Sys() interface{} {
	return nil
}

func NewFSUser(fs pathfs.FileSystem) *FSUser {
	return &FSUser{fs: fs}
}

func cleanPath(path string) string {
	return strings.Trim(path, "/")
}

func fileMode(mode uint32) os.FileMode {
	ret := os.FileMode(mode & 0777)
	if mode&fuse.S_IFDIR != 0 {
		ret |= os.ModeDir
	}
	return ret
}

func (self *FSUser) Stat(path string) (os.FileInfo, error) {
	path = cleanPath(path)
	attr, status := self.fs.GetAttr(path, &self.Context)
	if err := s2e(status); err != nil {
		return nil, err
	}
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	return &fileInfo{name: name,
		size:  int64(attr.Size),
		mode:  fileMode(attr.Mode),
		mtime: time.Unix(int64(attr.Mtime), int64(attr.Mtimensec))}, nil
}

func (self *FSUser) ListDir(name string) (ret []string, err error) {
	l, status := self.fs.OpenDir(cleanPath(name), &self.Context)
	err = s2e(status)
	if err != nil {
		return
	}
	for _, de := range l {
		ret = append(ret, de.Name)
	}
	sort.Strings(ret)
	return
}

func (self *FSUser) ReadDir(dirname string) (ret []os.FileInfo, err error) {
	l, err := self.ListDir(dirname)
	if err != nil {
		return
	}
	ret = make([]os.FileInfo, len(l))
	for i, n := range l {
		ret[i], err = self.Stat(cleanPath(dirname) + "/" + n)
		if err != nil {
			return
		}
	}
	return
}

// ReadFile reads the whole file with reads of chunkSize bytes.
func (self *FSUser) ReadFile(path string, chunkSize int) (ret []byte, err error) {
	f, status := self.fs.Open(cleanPath(path), uint32(os.O_RDONLY), &self.Context)
	err = s2e(status)
	if err != nil {
		return
	}
	defer f.Release()
	ret = []byte{}
	buf := make([]byte, chunkSize)
	for {
		rr, status := f.Read(buf, int64(len(ret)))
		err = s2e(status)
		if err != nil {
			return
		}
		b, status := rr.Bytes(buf)
		err = s2e(status)
		if err != nil {
			return
		}
		if len(b) == 0 {
			return
		}
		ret = append(ret, b...)
	}
}

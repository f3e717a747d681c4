/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 10:12:55 2019 mstenber
 * Last modified: Mon Mar 18 16:02:19 2019 mstenber
 * Edit time:     44 min
 *
 */

package fs

import (
	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/sched"
)

// Request is an operation submitted from some other goroutine than
// the one running the scheduler. The operation itself runs on the
// scheduler (which must be driven by someone, e.g. Scheduler.Run);
// Wait blocks the submitter until it is done.
type Request struct {
	done   chan struct{}
	result int
	err    error
}

func newRequest() *Request {
	return &Request{done: make(chan struct{})}
}

func (self *Request) finish(result int, err error) {
	self.result = result
	self.err = err
	close(self.done)
}

// task returns completion that finishes the request.
func (self *Request) task() *sched.Task {
	return sched.NewTask(func(t *sched.Task) {
		self.finish(t.Result(), t.Err())
	})
}

// Wait blocks until the request is done, and returns its result.
func (self *Request) Wait() (int, error) {
	<-self.done
	return self.result, self.err
}

// Done returns channel that is closed once the request is done.
func (self *Request) Done() <-chan struct{} {
	return self.done
}

func (self *Fs) submit(f func(r *Request)) *Request {
	r := newRequest()
	self.sched.Post(func() {
		f(r)
	})
	return r
}

// OpenRequest is a submitted Open.
type OpenRequest struct {
	*Request
	file *File
}

// Wait blocks until the file has been opened.
func (self *OpenRequest) Wait() (*File, error) {
	_, err := self.Request.Wait()
	return self.file, err
}

// SubmitOpen is Open from another goroutine.
func (self *Fs) SubmitOpen(name string) *OpenRequest {
	or := &OpenRequest{}
	or.Request = self.submit(func(r *Request) {
		f, err := self.Open(name)
		or.file = f
		r.finish(0, err)
	})
	return or
}

// SubmitRead is ReadAsync from another goroutine.
func (self *File) SubmitRead(p []byte) *Request {
	return self.fs.submit(func(r *Request) {
		_, err := self.ReadAsync(p, r.task())
		if err != nil {
			r.finish(0, err)
		}
	})
}

// SubmitDirectRead is DirectReadAsync from another goroutine.
func (self *File) SubmitDirectRead(p []byte) *Request {
	return self.fs.submit(func(r *Request) {
		_, err := self.DirectReadAsync(p, r.task())
		if err != nil {
			r.finish(0, err)
		}
	})
}

// SubmitSeek is Seek from another goroutine.
func (self *File) SubmitSeek(offset uint32) *Request {
	return self.fs.submit(func(r *Request) {
		r.finish(0, self.Seek(offset))
	})
}

// SubmitReadAt seeks to offset and reads into p, as one operation.
// Reading at or past the end of the file reads nothing.
func (self *File) SubmitReadAt(p []byte, offset uint32) *Request {
	return self.fs.submit(func(r *Request) {
		mlog.Printf2("fs/request", "f.SubmitReadAt %q %d b at %d", self.name, len(p), offset)
		if offset >= self.size {
			r.finish(0, nil)
			return
		}
		err := self.Seek(offset)
		if err == nil {
			_, err = self.ReadAsync(p, r.task())
		}
		if err != nil {
			r.finish(0, err)
		}
	})
}

// SubmitClose is Close from another goroutine.
func (self *File) SubmitClose() *Request {
	return self.fs.submit(func(r *Request) {
		r.finish(0, self.Close())
	})
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 12 14:30:02 2019 mstenber
 * Last modified: Mon Mar 18 11:02:40 2019 mstenber
 * Edit time:     71 min
 *
 */

// sched is the cooperative executor the file system runs on.
//
// There is no parallelism in the logic driven by the scheduler: all
// task callbacks run on whichever goroutine currently drives it
// (Wait, RunReady or Run), one at a time. Other goroutines (storage
// transfers, request submitters) only ever hand work over with
// Complete or Post.
//
// Continuations that would otherwise recurse (a read served from
// cache that wants to serve its next chunk) are posted instead, and
// the drive loop keeps invoking ready tasks until none remain; so the
// stack depth stays constant no matter how many chunks a read has.
package sched

import (
	"context"
	"log"
	"sync"

	"github.com/fingon/go-readfs/mlog"
	"github.com/fingon/go-readfs/util"
)

type Scheduler struct {
	lock  util.MutexLocked
	cond  sync.Cond
	queue TaskList

	// Ran is the number of tasks run so far. Touched only by the
	// driving goroutine.
	Ran int
}

// NewScheduler is provided for symmetry; zero value is usable too.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (self *Scheduler) init() {
	if self.cond.L == nil {
		self.cond.L = &self.lock
	}
}

// Complete records the outcome of t and queues it for the executor.
// Safe to call from any goroutine. A task may be completed only once.
func (self *Scheduler) Complete(t *Task, result int, err error) {
	defer self.lock.Locked()()
	self.init()
	if t.completed {
		log.Panicf("task %p completed twice", t)
	}
	t.completed = true
	t.result = result
	t.err = err
	self.queue.PushBack(t)
	self.cond.Broadcast()
}

// Post queues f to be run on the executor. Safe to call from any
// goroutine.
func (self *Scheduler) Post(f func()) {
	self.Complete(NewTask(func(*Task) {
		f()
	}), 0, nil)
}

// Pending returns the number of queued tasks.
func (self *Scheduler) Pending() int {
	defer self.lock.Locked()()
	return self.queue.Length
}

func (self *Scheduler) pop(block bool, stop func() bool) *Task {
	defer self.lock.Locked()()
	self.init()
	for {
		t := self.queue.PopFront()
		if t != nil || !block {
			return t
		}
		if stop != nil && stop() {
			return nil
		}
		self.cond.Wait()
	}
}

func (self *Scheduler) run(t *Task) {
	self.Ran++
	t.run()
}

// RunOnce runs the first queued task, if any. It returns false if
// nothing was ready.
func (self *Scheduler) RunOnce() bool {
	t := self.pop(false, nil)
	if t == nil {
		return false
	}
	self.run(t)
	return true
}

// RunReady runs queued tasks until none remain ready, including the
// ones queued by the tasks themselves. It returns the number of
// tasks run.
func (self *Scheduler) RunReady() int {
	n := 0
	for {
		t := self.pop(false, nil)
		if t == nil {
			return n
		}
		self.run(t)
		n++
	}
}

// Wait drives the executor on the calling goroutine until t has been
// processed, sleeping while nothing is ready. It returns the task
// error.
func (self *Scheduler) Wait(t *Task) error {
	mlog.Printf2("sched/scheduler", "Wait %p", t)
	for !t.done {
		self.run(self.pop(true, nil))
	}
	mlog.Printf2("sched/scheduler", " Wait %p done: %v", t, t.err)
	return t.err
}

// Run drives the executor until ctx is cancelled. Anything submitted
// with Post or Complete from other goroutines runs here.
func (self *Scheduler) Run(ctx context.Context) error {
	stopped := false
	go func() {
		<-ctx.Done()
		defer self.lock.Locked()()
		self.init()
		stopped = true
		self.cond.Broadcast()
	}()
	stop := func() bool {
		// called with lock held
		return stopped
	}
	for {
		t := self.pop(true, stop)
		if t == nil {
			return ctx.Err()
		}
		self.run(t)
	}
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 12 07:40:22 2019 mstenber
 * Last modified: Thu Mar 14 13:34:46 2019 mstenber
 * Edit time:     19 min
 *
 */

package util

import (
	"runtime"
	"sync"
)

const DefaultPerCPU = 2

// ParallelLimiter ensures that at most N transfers are in flight at
// the same time. It is essentially a semaphore with trivial API
// (either defer Limited()(), or Go(func)).
type ParallelLimiter struct {
	// How many things are allowed per CPU (defaults to DefaultPerCPU)
	LimitPerCPU int

	// How many things are allowed by total (by default using
	// LimitPerCPU to calculate this)
	LimitTotal int

	lock        MutexLocked
	cond        sync.Cond
	running     int
	initialized bool
}

func (self *ParallelLimiter) init() {
	if self.LimitTotal == 0 {
		if self.LimitPerCPU == 0 {
			self.LimitPerCPU = DefaultPerCPU
		}
		self.LimitTotal = runtime.NumCPU() * self.LimitPerCPU
	}
	self.cond.L = &self.lock
	self.initialized = true
}

// Limited reserves one execution slot, blocking until one is
// available. The returned function releases it.
func (self *ParallelLimiter) Limited() func() {
	defer self.lock.Locked()()
	if !self.initialized {
		self.init()
	}
	for self.running >= self.LimitTotal {
		self.cond.Wait()
	}
	self.running++
	return func() {
		defer self.lock.Locked()()
		self.running--
		self.cond.Signal()
	}
}

// Go runs cb in a new goroutine once a slot is available.
func (self *ParallelLimiter) Go(cb func()) {
	unlock := self.Limited()
	go func() {
		defer unlock()
		cb()
	}()
}

// Running returns the number of currently reserved slots.
func (self *ParallelLimiter) Running() int {
	defer self.lock.Locked()()
	return self.running
}

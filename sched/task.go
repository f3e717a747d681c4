/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 12 14:02:51 2019 mstenber
 * Last modified: Mon Mar 18 10:11:09 2019 mstenber
 * Edit time:     34 min
 *
 */

package sched

// TaskCallback is called on the executor once the task completes.
type TaskCallback func(t *Task)

// Task is a completion: it is completed exactly once, with a result
// count and an error. A task with callback gets the callback run on
// the executor; a task without one is meant to be waited on with
// Scheduler.Wait.
type Task struct {
	callback TaskCallback
	result   int
	err      error

	// set by Complete
	completed bool

	// set once the executor has processed the completion
	done bool
}

// NewTask returns a fresh task. cb may be nil for blocking use.
func NewTask(cb TaskCallback) *Task {
	return &Task{callback: cb}
}

// NewCallback is shorthand for tasks that care only about the error.
func NewCallback(cb func(err error)) *Task {
	return NewTask(func(t *Task) {
		cb(t.err)
	})
}

// Err returns the error the task was completed with.
func (self *Task) Err() error {
	return self.err
}

// Result returns the result count the task was completed with (for
// reads, the number of bytes transferred).
func (self *Task) Result() int {
	return self.result
}

// Done returns true once the executor has processed the completion.
// Only meaningful on the executor goroutine.
func (self *Task) Done() bool {
	return self.done
}

func (self *Task) run() {
	self.done = true
	if self.callback != nil {
		self.callback(self)
	}
}

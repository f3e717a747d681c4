/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Tue Mar 12 10:19:05 2019 mstenber
 * Last modified: Tue Mar 12 10:28:22 2019 mstenber
 * Edit time:     2 min
 *
 */

package util

import "sync"

// SimpleWaitGroup is sync.WaitGroup that also knows how to start
// the goroutines it waits for.
type SimpleWaitGroup struct {
	sync.WaitGroup
}

func (self *SimpleWaitGroup) Go(cb func()) {
	self.Add(1)
	go func() {
		defer self.Done()
		cb()
	}()
}

/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 11 12:21:40 2019 mstenber
 * Last modified: Mon Mar 11 13:05:52 2019 mstenber
 * Edit time:     7 min
 *
 */

package util

import "sync"

// MutexLocked is sync.Mutex with convenience feature of being able
// to just defer x.Locked()().
type MutexLocked sync.Mutex

func (self *MutexLocked) Lock() {
	(*sync.Mutex)(self).Lock()
}

func (self *MutexLocked) Unlock() {
	(*sync.Mutex)(self).Unlock()
}

func (self *MutexLocked) Locked() (unlock func()) {
	mut := (*sync.Mutex)(self)
	mut.Lock()
	return mut.Unlock
}

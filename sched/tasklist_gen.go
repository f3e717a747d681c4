package sched

import "fmt"

// TaskList provides doubly linked list which does not have inefficient
// operations, is typesafe, and does minimum amount of extra
// allocations needed. This is accomplished by sticking the freed
// items to a freelist instead of freeing them directly. The list is
// obviously not threadsafe.
type TaskList struct {
	Back, Front *TaskListElement
	freeList    *TaskListElement
	Length      int
}

type TaskListElement struct {
	Prev, Next *TaskListElement
	Value      *Task
}

func (self *TaskList) getElement(v *Task) (e *TaskListElement) {
	if self.freeList == nil {
		return &TaskListElement{Value: v}
	}
	e = self.freeList
	self.freeList = e.Next
	e.Value = v
	return e
}

func (self *TaskList) Iterate(cb func(v *Task)) {
	for e := self.Front; e != nil; e = e.Next {
		cb(e.Value)
	}
}

func (self *TaskList) PushBackElement(e *TaskListElement) {
	e.Next = nil
	e.Prev = self.Back
	if self.Back != nil {
		self.Back.Next = e
	}
	if self.Front == nil {
		self.Front = e
	}
	self.Back = e
	self.Length++
}

func (self *TaskList) PushBack(v *Task) *TaskListElement {
	e := self.getElement(v)
	self.PushBackElement(e)
	return e
}

func (self *TaskList) RemoveElement(e *TaskListElement) {
	if e.Prev != nil {
		e.Prev.Next = e.Next
	} else {
		self.Front = e.Next
	}
	if e.Next != nil {
		e.Next.Prev = e.Prev
	} else {
		self.Back = e.Prev
	}
	self.Length--
}

func (self *TaskList) Remove(e *TaskListElement) {
	self.RemoveElement(e)
	e.Prev = nil
	e.Value = nil
	e.Next = self.freeList
	self.freeList = e
}

// PopFront removes and returns the first value, or nil if empty.
func (self *TaskList) PopFront() *Task {
	e := self.Front
	if e == nil {
		return nil
	}
	v := e.Value
	self.Remove(e)
	return v
}

func (self *TaskList) String() string {
	llen := func(l *TaskListElement) int {
		len := 0
		for ; l != nil; l = l.Next {
			len++
		}
		return len
	}

	return fmt.Sprintf("TaskList<%d entries/%d free>", llen(self.Front), llen(self.freeList))

}

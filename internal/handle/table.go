package handle

import (
	"sync"
)

// ID is a handle as seen by the module.
type ID = uint32

// Null is the absent handle.
const Null ID = 0

type slot[T any] struct {
	value T
	live  bool
}

// Table is an append-only arena of host objects indexed by ID.
type Table[T comparable] struct {
	mu    sync.RWMutex
	slots []slot[T]
	live  int
}

// NewTable creates an empty table.
func NewTable[T comparable]() *Table[T] {
	return &Table[T]{}
}

// Add appends v and returns its id, which is the new table length.
func (t *Table[T]) Add(v T) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.slots = append(t.slots, slot[T]{value: v, live: true})
	t.live++
	return ID(len(t.slots))
}

// Get returns the object for id. Null, unknown and deleted ids report false.
func (t *Table[T]) Get(id ID) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var zero T
	if id == Null || int(id) > len(t.slots) {
		return zero, false
	}
	s := t.slots[id-1]
	if !s.live {
		return zero, false
	}
	return s.value, true
}

// Delete clears the slot for id and returns the object it held.
func (t *Table[T]) Delete(id ID) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	if id == Null || int(id) > len(t.slots) || !t.slots[id-1].live {
		return zero, false
	}
	v := t.slots[id-1].value
	t.slots[id-1] = slot[T]{}
	t.live--
	return v, true
}

// IndexOf returns the id holding v, or Null.
func (t *Table[T]) IndexOf(v T) ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, s := range t.slots {
		if s.live && s.value == v {
			return ID(i + 1)
		}
	}
	return Null
}

// Len returns the number of slots ever allocated, deleted ones included.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// Live returns the number of slots still holding an object.
func (t *Table[T]) Live() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

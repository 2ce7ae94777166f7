// Package dlist implements a generic doubly linked list.
//
// It backs the hashtable buckets, the LRU recency order and the per-shard
// work queues. Elements are owned by exactly one list at a time.
package dlist

// Element is a node of a List
type Element[T any] struct {
	next, prev *Element[T]
	list       *List[T]

	Value T
}

// Next returns the next list element or nil
func (e *Element[T]) Next() *Element[T] {
	return e.next
}

// Prev returns the previous list element or nil
func (e *Element[T]) Prev() *Element[T] {
	return e.prev
}

// List is a doubly linked list with head and tail pointers.
// The zero value is an empty list ready to use.
type List[T any] struct {
	head *Element[T]
	tail *Element[T]
	len  int
}

// New creates an empty list
func New[T any]() *List[T] {
	return &List[T]{}
}

// Len returns the number of elements
func (l *List[T]) Len() int {
	return l.len
}

// Front returns the head element or nil
func (l *List[T]) Front() *Element[T] {
	return l.head
}

// Back returns the tail element or nil
func (l *List[T]) Back() *Element[T] {
	return l.tail
}

// PushFront inserts v at the head
func (l *List[T]) PushFront(v T) *Element[T] {
	e := &Element[T]{Value: v}
	l.linkFront(e)
	return e
}

// PushBack inserts v at the tail
func (l *List[T]) PushBack(v T) *Element[T] {
	e := &Element[T]{Value: v, list: l}
	if l.tail == nil {
		l.head = e
		l.tail = e
	} else {
		e.prev = l.tail
		l.tail.next = e
		l.tail = e
	}
	l.len++
	return e
}

// PopFront removes the head element and returns its value
func (l *List[T]) PopFront() (T, bool) {
	if l.head == nil {
		var zero T
		return zero, false
	}
	return l.Remove(l.head), true
}

// PopBack removes the tail element and returns its value
func (l *List[T]) PopBack() (T, bool) {
	if l.tail == nil {
		var zero T
		return zero, false
	}
	return l.Remove(l.tail), true
}

// Remove unlinks e from the list and returns its value.
// Removing an element of another list is a no-op.
func (l *List[T]) Remove(e *Element[T]) T {
	if e.list != l {
		return e.Value
	}
	l.unlink(e)
	return e.Value
}

// MoveToFront relinks e at the head. No-op if e is already the head.
func (l *List[T]) MoveToFront(e *Element[T]) {
	if e.list != l || l.head == e {
		return
	}
	l.unlink(e)
	l.linkFront(e)
}

// Find returns the first element whose value satisfies match.
// The head is checked first, then the tail, then the chain from head.next.
func (l *List[T]) Find(match func(T) bool) *Element[T] {
	if l.head == nil {
		return nil
	}
	if match(l.head.Value) {
		return l.head
	}
	if match(l.tail.Value) {
		return l.tail
	}
	for e := l.head.next; e != nil; e = e.next {
		if match(e.Value) {
			return e
		}
	}
	return nil
}

// Each calls fn for every value from head to tail
func (l *List[T]) Each(fn func(T)) {
	for e := l.head; e != nil; e = e.next {
		fn(e.Value)
	}
}

// Values returns the values from head to tail
func (l *List[T]) Values() []T {
	out := make([]T, 0, l.len)
	l.Each(func(v T) {
		out = append(out, v)
	})
	return out
}

// Clear drops every element
func (l *List[T]) Clear() {
	for e := l.head; e != nil; {
		next := e.next
		e.next, e.prev, e.list = nil, nil, nil
		e = next
	}
	l.head, l.tail, l.len = nil, nil, 0
}

func (l *List[T]) linkFront(e *Element[T]) {
	e.list = l
	e.prev = nil
	e.next = l.head
	if l.head != nil {
		l.head.prev = e
	} else {
		l.tail = e
	}
	l.head = e
	l.len++
}

func (l *List[T]) unlink(e *Element[T]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.next, e.prev, e.list = nil, nil, nil
	l.len--
}

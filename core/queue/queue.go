// Package queue distributes accepted connections across worker shards.
//
// A Queue is a blocking FIFO: idle consumers sleep on a condition variable
// instead of polling. A Manager owns ceil(P/B) queues and pins each worker
// rank to one of them.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/searchktools/fastserve/core/dlist"
)

// ErrClosed is returned by Enqueue after Close
var ErrClosed = errors.New("queue: closed")

// Queue is a mutex-guarded FIFO safe for many producers and consumers
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  *dlist.List[T]
	closed bool
}

// New creates an empty queue
func New[T any]() *Queue[T] {
	q := &Queue[T]{items: dlist.New[T]()}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends v at the tail and wakes one waiting consumer
func (q *Queue[T]) Enqueue(v T) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		var zero T
		return zero, ErrClosed
	}
	q.items.PushBack(v)
	q.cond.Signal()
	return v, nil
}

// TryDequeue removes the head without waiting
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.PopFront()
}

// Dequeue blocks until an item is available. It returns false once the
// queue is closed and empty, or when ctx is done.
// Items enqueued before Close are still handed out.
func (q *Queue[T]) Dequeue(ctx context.Context) (T, bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.items.Len() == 0 && !q.closed && ctx.Err() == nil {
		q.cond.Wait()
	}
	if ctx.Err() != nil {
		var zero T
		return zero, false
	}
	return q.items.PopFront()
}

// Len returns the number of queued items
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close stops accepting new items and wakes every consumer
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether Close was called
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain removes and returns everything still queued
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items.Values()
	q.items.Clear()
	return out
}

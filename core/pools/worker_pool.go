package pools

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/searchktools/fastserve/core/queue"
)

// Stats are the traffic counters a worker accumulates locally.
// They reach the pool total only when the worker exits.
type Stats struct {
	Requests    uint64 // requests served
	GetRequests uint64
	BytesRecv   uint64
	BytesSent   uint64
	CacheHits   uint64
	CacheMisses uint64
	Errors      uint64 // receive/parse failures
	NotFound    uint64
}

// Merge adds o into s
func (s *Stats) Merge(o Stats) {
	s.Requests += o.Requests
	s.GetRequests += o.GetRequests
	s.BytesRecv += o.BytesRecv
	s.BytesSent += o.BytesSent
	s.CacheHits += o.CacheHits
	s.CacheMisses += o.CacheMisses
	s.Errors += o.Errors
	s.NotFound += o.NotFound
}

// Worker is one long-lived pool member, pinned to a shard by rank
type Worker struct {
	Rank  int
	Shard int
	Stats Stats // owned by the worker goroutine; no locking
}

// Handler processes one task on w
type Handler[T any] func(w *Worker, task T)

// WorkerPool runs a fixed number of workers over a queue manager.
// Worker rank r always dequeues from shard r/B.
type WorkerPool[T any] struct {
	manager *queue.Manager[T]
	handler Handler[T]
	size    int
	lockOS  bool

	wg      sync.WaitGroup
	started atomic.Bool
	running atomic.Int32
	tasks   atomic.Uint64

	mu     sync.Mutex
	total  Stats
	merged int
}

// NewWorkerPool creates a pool with one worker per rank of m
func NewWorkerPool[T any](m *queue.Manager[T], h Handler[T]) *WorkerPool[T] {
	return &WorkerPool[T]{
		manager: m,
		handler: h,
		size:    m.PoolSize(),
	}
}

// LockOSThread pins every worker goroutine to its own OS thread.
// Must be called before Start.
func (p *WorkerPool[T]) LockOSThread() {
	p.lockOS = true
}

// Start launches the workers. Workers exit when their shard is closed and
// empty, or when ctx is done; in-flight tasks always complete.
func (p *WorkerPool[T]) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for rank := 0; rank < p.size; rank++ {
		w := &Worker{Rank: rank, Shard: p.manager.ShardFor(rank)}
		p.wg.Add(1)
		p.running.Add(1)
		go p.run(ctx, w)
	}
}

func (p *WorkerPool[T]) run(ctx context.Context, w *Worker) {
	if p.lockOS {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	defer p.wg.Done()
	defer p.running.Add(-1)
	defer p.merge(w)

	for {
		task, ok := p.manager.AssignDequeue(ctx, w.Rank)
		if !ok {
			return
		}
		p.handler(w, task)
		p.tasks.Add(1)
	}
}

func (p *WorkerPool[T]) merge(w *Worker) {
	p.mu.Lock()
	p.total.Merge(w.Stats)
	p.merged++
	p.mu.Unlock()
}

// Wait blocks until every worker has exited
func (p *WorkerPool[T]) Wait() {
	p.wg.Wait()
}

// Stats returns the merged counters of exited workers.
// The total is exact once Wait returns.
func (p *WorkerPool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}

// WorkerPoolStats describes the pool itself
type WorkerPoolStats struct {
	NumWorkers     int
	Running        int
	Merged         int
	TasksCompleted uint64
	TasksPending   int
	Locked         bool // workers pinned to OS threads
}

// PoolStats returns pool statistics
func (p *WorkerPool[T]) PoolStats() WorkerPoolStats {
	p.mu.Lock()
	merged := p.merged
	p.mu.Unlock()

	return WorkerPoolStats{
		NumWorkers:     p.size,
		Running:        int(p.running.Load()),
		Merged:         merged,
		TasksCompleted: p.tasks.Load(),
		TasksPending:   p.manager.Pending(),
		Locked:         p.lockOS,
	}
}

// Size returns the number of workers
func (p *WorkerPool[T]) Size() int {
	return p.size
}

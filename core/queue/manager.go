package queue

import (
	"context"
	"sync"
)

// WrapFactor bounds the round-robin counter at WrapFactor*Shards
const WrapFactor = 1000

// Manager owns the queue shards. Workers are grouped into blocks of
// blockSize ranks and every block shares one shard.
type Manager[T any] struct {
	shards    []*Queue[T]
	poolSize  int
	blockSize int

	mu      sync.Mutex
	counter int
	wrap    int
}

// NewManager creates ceil(poolSize/blockSize) shards.
// Non-positive sizes are treated as 1.
func NewManager[T any](poolSize, blockSize int) *Manager[T] {
	if poolSize < 1 {
		poolSize = 1
	}
	if blockSize < 1 {
		blockSize = 1
	}
	n := (poolSize + blockSize - 1) / blockSize

	m := &Manager[T]{
		shards:    make([]*Queue[T], n),
		poolSize:  poolSize,
		blockSize: blockSize,
		wrap:      WrapFactor * n,
	}
	for i := range m.shards {
		m.shards[i] = New[T]()
	}
	return m
}

// AssignEnqueue places task on the next shard in round-robin order
// and returns the shard index it went to.
func (m *Manager[T]) AssignEnqueue(task T) (int, error) {
	m.mu.Lock()
	shard := m.counter % len(m.shards)
	m.counter++
	if m.counter >= m.wrap {
		m.counter = 0
	}
	m.mu.Unlock()

	if _, err := m.shards[shard].Enqueue(task); err != nil {
		return shard, err
	}
	return shard, nil
}

// AssignDequeue blocks on the shard pinned to rank
func (m *Manager[T]) AssignDequeue(ctx context.Context, rank int) (T, bool) {
	return m.shards[m.ShardFor(rank)].Dequeue(ctx)
}

// ShardFor returns the shard index pinned to a worker rank
func (m *Manager[T]) ShardFor(rank int) int {
	return rank / m.blockSize
}

// Shard returns shard i
func (m *Manager[T]) Shard(i int) *Queue[T] {
	return m.shards[i]
}

// ShardLen returns the number of tasks waiting on shard i
func (m *Manager[T]) ShardLen(i int) int {
	return m.shards[i].Len()
}

// Shards returns the shard count
func (m *Manager[T]) Shards() int {
	return len(m.shards)
}

// PoolSize returns the number of worker ranks the manager was built for
func (m *Manager[T]) PoolSize() int {
	return m.poolSize
}

// BlockSize returns the number of ranks per shard
func (m *Manager[T]) BlockSize() int {
	return m.blockSize
}

// Pending returns the total number of queued tasks
func (m *Manager[T]) Pending() int {
	n := 0
	for _, q := range m.shards {
		n += q.Len()
	}
	return n
}

// Close closes every shard. Workers still receive what was queued before.
func (m *Manager[T]) Close() {
	for _, q := range m.shards {
		q.Close()
	}
}

// Drain empties every shard and returns the leftovers in shard order
func (m *Manager[T]) Drain() []T {
	var out []T
	for _, q := range m.shards {
		out = append(out, q.Drain()...)
	}
	return out
}

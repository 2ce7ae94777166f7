// Package lru implements the response cache: a hashtable index over a
// doubly linked recency list (head = most recently used, tail = least).
//
// Every operation runs as one critical section under the cache mutex, so the
// list and the index never disagree, even with many workers sharing a cache.
package lru

import (
	"errors"
	"sync"

	"github.com/searchktools/fastserve/core/dlist"
	"github.com/searchktools/fastserve/core/hashtable"
)

var (
	ErrNilKey     = errors.New("lru: key is required")
	ErrNilContent = errors.New("lru: content is required")
	ErrClosed     = errors.New("lru: cache is closed")
)

// Entry is a cached response body. Entries are never mutated after Put;
// the cache owns Content and callers must not modify it.
type Entry struct {
	Key         string
	ContentType string
	Content     []byte
}

// ContentLength returns len(Content)
func (e *Entry) ContentLength() int {
	return len(e.Content)
}

// Options configures a Cache. Zero values get defaults in New:
//   - Buckets < 1 => hashtable.DefaultSize
//   - nil Hash    => hashtable.DefaultHash
//   - nil Metrics => NoopMetrics
type Options struct {
	MaxSize int
	Buckets int
	Hash    hashtable.HashFunc
	Metrics Metrics
}

// Cache is a bounded LRU cache of response bodies, safe for concurrent use
type Cache struct {
	mu      sync.Mutex
	index   *hashtable.Table[*dlist.Element[*Entry]]
	order   *dlist.List[*Entry]
	maxSize int
	bytes   int64
	metrics Metrics
	closed  bool
}

// New creates a cache holding at most opt.MaxSize entries
func New(opt Options) *Cache {
	if opt.MaxSize <= 0 {
		panic("lru: MaxSize must be > 0")
	}
	if opt.Metrics == nil {
		opt.Metrics = NoopMetrics{}
	}
	return &Cache{
		index:   hashtable.New[*dlist.Element[*Entry]](opt.Buckets, opt.Hash),
		order:   dlist.New[*Entry](),
		maxSize: opt.MaxSize,
		metrics: opt.Metrics,
	}
}

// Put stores content under key and makes it the most recently used entry.
// Ownership of content moves to the cache. When the cache is full the tail
// entry is evicted first. Putting an existing key replaces its entry.
func (c *Cache) Put(key, contentType string, content []byte) (*Entry, error) {
	if key == "" {
		return nil, ErrNilKey
	}
	if content == nil {
		return nil, ErrNilContent
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if old, ok := c.index.GetString(key); ok {
		c.removeLocked(old)
	} else if c.order.Len() >= c.maxSize {
		if tail := c.order.Back(); tail != nil {
			c.removeLocked(tail)
			c.metrics.Evict()
		}
	}

	e := &Entry{Key: key, ContentType: contentType, Content: content}
	c.index.PutString(key, c.order.PushFront(e))
	c.bytes += int64(len(content))
	c.metrics.Size(c.order.Len(), c.bytes)
	return e, nil
}

// Get returns the entry for key and promotes it to the head
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, false
	}

	el, ok := c.index.GetString(key)
	if !ok {
		c.metrics.Miss()
		return nil, false
	}
	c.order.MoveToFront(el)
	c.metrics.Hit()
	return el.Value, true
}

// Contains reports whether key is cached without touching recency
func (c *Cache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.index.GetString(key)
	return ok
}

// Remove drops key from the cache
func (c *Cache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index.GetString(key)
	if !ok {
		return false
	}
	c.removeLocked(el)
	c.metrics.Size(c.order.Len(), c.bytes)
	return true
}

// Keys returns the cached keys from most to least recently used
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	c.order.Each(func(e *Entry) {
		keys = append(keys, e.Key)
	})
	return keys
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cap returns the maximum number of entries
func (c *Cache) Cap() int {
	return c.maxSize
}

// Bytes returns the total size of cached content
func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Buckets returns the index bucket count
func (c *Cache) Buckets() int {
	return c.index.Buckets()
}

// Load returns the index load factor
func (c *Cache) Load() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Load()
}

// Close releases every entry. Later Puts fail and Gets miss.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.index.Clear()
	c.order.Clear()
	c.bytes = 0
	c.metrics.Size(0, 0)
	return nil
}

// removeLocked unlinks el from the list and deletes its index entry
func (c *Cache) removeLocked(el *dlist.Element[*Entry]) {
	e := c.order.Remove(el)
	c.index.DeleteString(e.Key)
	c.bytes -= int64(len(e.Content))
}

// Package hashtable provides an open-chaining hash table keyed by byte strings.
//
// Buckets are dlist chains. Put never overwrites: entries with equal keys may
// coexist in one chain and the first match found by a lookup shadows the rest.
// The table never resizes, so the load factor may grow past 1.0 and lookups
// degrade to the chain length.
package hashtable

import (
	"bytes"

	"github.com/cespare/xxhash/v2"

	"github.com/searchktools/fastserve/core/dlist"
)

// DefaultSize is the bucket count used when New receives a size below 1
const DefaultSize = 128

// HashFunc maps a key onto a bucket index in [0, buckets)
type HashFunc func(key []byte, buckets int) int

// DefaultHash is the multiplicative string hash: h = (h*31 + b) mod buckets
func DefaultHash(key []byte, buckets int) int {
	const r = 31
	h := 0
	for _, b := range key {
		h = (r*h + int(b)) % buckets
	}
	return h
}

// XXHash spreads keys with xxHash64; useful for large or skewed key sets
func XXHash(key []byte, buckets int) int {
	return int(xxhash.Sum64(key) % uint64(buckets))
}

type entry[V any] struct {
	key    []byte
	hashed int
	data   V
}

// Table is an open-chaining hash table. It is not safe for concurrent use;
// callers serialize access (the LRU cache does so under its own mutex).
type Table[V any] struct {
	buckets []*dlist.List[entry[V]]
	hash    HashFunc
	entries int
	load    float64
}

// New creates a table with size buckets. A nil hash selects DefaultHash.
func New[V any](size int, hash HashFunc) *Table[V] {
	if size < 1 {
		size = DefaultSize
	}
	if hash == nil {
		hash = DefaultHash
	}

	t := &Table[V]{
		buckets: make([]*dlist.List[entry[V]], size),
		hash:    hash,
	}
	for i := range t.buckets {
		t.buckets[i] = dlist.New[entry[V]]()
	}
	return t
}

// Put appends key→v to its bucket chain and returns v.
// The key bytes are copied; an existing entry with the same key is not replaced.
func (t *Table[V]) Put(key []byte, v V) V {
	idx := t.index(key)
	k := make([]byte, len(key))
	copy(k, key)

	t.buckets[idx].PushBack(entry[V]{key: k, hashed: idx, data: v})
	t.addEntries(1)
	return v
}

// Get returns the value of the first entry matching key
func (t *Table[V]) Get(key []byte) (V, bool) {
	e := t.buckets[t.index(key)].Find(matchKey[V](key))
	if e == nil {
		var zero V
		return zero, false
	}
	return e.Value.data, true
}

// Delete removes the first entry matching key and returns its value
func (t *Table[V]) Delete(key []byte) (V, bool) {
	chain := t.buckets[t.index(key)]
	e := chain.Find(matchKey[V](key))
	if e == nil {
		var zero V
		return zero, false
	}
	removed := chain.Remove(e)
	t.addEntries(-1)
	return removed.data, true
}

// PutString is Put for string keys
func (t *Table[V]) PutString(key string, v V) V {
	return t.Put([]byte(key), v)
}

// GetString is Get for string keys
func (t *Table[V]) GetString(key string) (V, bool) {
	return t.Get([]byte(key))
}

// DeleteString is Delete for string keys
func (t *Table[V]) DeleteString(key string) (V, bool) {
	return t.Delete([]byte(key))
}

// Len returns the number of entries
func (t *Table[V]) Len() int {
	return t.entries
}

// Buckets returns the bucket count
func (t *Table[V]) Buckets() int {
	return len(t.buckets)
}

// Load returns entries / buckets
func (t *Table[V]) Load() float64 {
	return t.load
}

// Each calls fn for every entry, bucket by bucket
func (t *Table[V]) Each(fn func(key []byte, v V)) {
	for _, chain := range t.buckets {
		chain.Each(func(e entry[V]) {
			fn(e.key, e.data)
		})
	}
}

// Clear drops all entries but keeps the buckets
func (t *Table[V]) Clear() {
	for _, chain := range t.buckets {
		chain.Clear()
	}
	t.entries = 0
	t.load = 0
}

func (t *Table[V]) index(key []byte) int {
	idx := t.hash(key, len(t.buckets))
	// guard against custom hashes returning out-of-range values
	if idx < 0 || idx >= len(t.buckets) {
		idx = ((idx % len(t.buckets)) + len(t.buckets)) % len(t.buckets)
	}
	return idx
}

func (t *Table[V]) addEntries(d int) {
	t.entries += d
	t.load = float64(t.entries) / float64(len(t.buckets))
}

func matchKey[V any](key []byte) func(entry[V]) bool {
	return func(e entry[V]) bool {
		return len(e.key) == len(key) && bytes.Equal(e.key, key)
	}
}

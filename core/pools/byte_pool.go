package pools

import (
	"sync"
	"sync/atomic"
)

// BytePool pools byte slices in capacity tiers
type BytePool struct {
	pools []*sync.Pool
	sizes []int

	gets     atomic.Uint64
	oversize atomic.Uint64
}

// Read buffer tiers; the default request buffer is 8 KiB
var readSizes = []int{
	512,
	2048,
	8192,
	32768,
}

// Response assembly tiers
var responseSizes = []int{
	2 * 1024,
	8 * 1024,
	32 * 1024,
	256 * 1024,
}

// NewBytePool creates a pool with one tier per size, smallest first
func NewBytePool(sizes ...int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}
	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, sz)
				return &buf
			},
		}
	}
	return bp
}

// Get returns a buffer with len(*buf) == size
func (bp *BytePool) Get(size int) *[]byte {
	bp.gets.Add(1)
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			buf := bp.pools[i].Get().(*[]byte)
			*buf = (*buf)[:size]
			return buf
		}
	}

	bp.oversize.Add(1)
	buf := make([]byte, size)
	return &buf
}

// Put returns buf to its tier. Buffers that grew or never came from a
// tier are left to the GC.
func (bp *BytePool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	capacity := cap(*buf)
	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			*buf = (*buf)[:capacity]
			bp.pools[i].Put(buf)
			return
		}
	}
}

// BytePoolStats counts pool traffic
type BytePoolStats struct {
	Gets     uint64
	Oversize uint64
}

// Stats returns pool statistics
func (bp *BytePool) Stats() BytePoolStats {
	return BytePoolStats{
		Gets:     bp.gets.Load(),
		Oversize: bp.oversize.Load(),
	}
}

var (
	readPool     = NewBytePool(readSizes...)
	responsePool = NewBytePool(responseSizes...)
)

// GetBytes returns a read buffer of length size
func GetBytes(size int) *[]byte {
	return readPool.Get(size)
}

// PutBytes returns a read buffer
func PutBytes(buf *[]byte) {
	readPool.Put(buf)
}

// AcquireBuffer returns an empty response buffer with room for size bytes
// when size fits a tier
func AcquireBuffer(size int) *[]byte {
	buf := responsePool.Get(size)
	*buf = (*buf)[:0]
	return buf
}

// ReleaseBuffer returns a response buffer
func ReleaseBuffer(buf *[]byte) {
	responsePool.Put(buf)
}

// ReadPoolStats returns statistics for request read buffers
func ReadPoolStats() BytePoolStats {
	return readPool.Stats()
}

// ResponsePoolStats returns statistics for response buffers
func ResponsePoolStats() BytePoolStats {
	return responsePool.Stats()
}

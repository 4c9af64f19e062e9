// Package pool provides pooled read buffers for the connection read loops.
package pool

import (
	"sync"
)

const (
	// DefaultBufferSize is the scratch size used by socket read loops.
	DefaultBufferSize = 4096

	// LargeBufferSize is the largest pooled capacity. Anything bigger is
	// allocated directly and left to the GC.
	LargeBufferSize = 65536
)

// BufferPool provides pooled byte slices to reduce allocation overhead.
// It maintains two size classes so oversized buffers are not pinned by
// small reads.
type BufferPool struct {
	defaultPool sync.Pool
	largePool   sync.Pool
}

// NewBufferPool creates a new buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		defaultPool: sync.Pool{
			New: func() any {
				buf := make([]byte, 0, DefaultBufferSize)
				return &buf
			},
		},
		largePool: sync.Pool{
			New: func() any {
				buf := make([]byte, 0, LargeBufferSize)
				return &buf
			},
		},
	}
}

// Get returns a buffer with at least the specified capacity.
// The returned buffer has length 0 but sufficient capacity.
// Call Put when done to return the buffer to the pool.
func (p *BufferPool) Get(size int) *[]byte {
	if size <= DefaultBufferSize {
		buf := p.defaultPool.Get().(*[]byte)
		*buf = (*buf)[:0]
		return buf
	}
	if size <= LargeBufferSize {
		buf := p.largePool.Get().(*[]byte)
		*buf = (*buf)[:0]
		return buf
	}
	// For very large buffers, allocate directly (don't pool)
	buf := make([]byte, 0, size)
	return &buf
}

// Put returns a buffer to the pool.
// The buffer should not be used after calling Put.
func (p *BufferPool) Put(buf *[]byte) {
	if buf == nil {
		return
	}
	c := cap(*buf)
	*buf = (*buf)[:0] // Reset length

	// Return to appropriate pool based on capacity
	if c <= DefaultBufferSize {
		p.defaultPool.Put(buf)
	} else if c <= LargeBufferSize {
		p.largePool.Put(buf)
	}
	// Very large buffers are not pooled, let GC handle them
}

// global is the default global buffer pool.
var global = NewBufferPool()

// Get returns a buffer from the global pool with at least the specified capacity.
func Get(size int) *[]byte {
	return global.Get(size)
}

// Put returns a buffer to the global pool.
func Put(buf *[]byte) {
	global.Put(buf)
}

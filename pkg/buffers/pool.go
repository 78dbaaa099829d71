// Package buffers pools the fixed-size byte slices that receive loops read
// frames into.
package buffers

import (
	"sync"
)

const (
	// FrameSize fits a jumbo-free Ethernet frame with VLAN tag and
	// leaves headroom for TUN/TAP devices configured with a larger MTU.
	FrameSize = 2048

	// MinSize is the smallest pool size accepted: one Ethernet header.
	MinSize = 14
)

// Pool hands out slices of exactly Size() bytes.
type Pool struct {
	pool sync.Pool
	size int
}

// NewPool creates a pool of size-byte buffers. Sizes below MinSize are
// raised to MinSize.
func NewPool(size int) *Pool {
	size = max(size, MinSize)
	return &Pool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
		size: size,
	}
}

func (p *Pool) Size() int { return p.size }

// Get returns a buffer of Size() bytes. Its contents are whatever the last
// user left there.
func (p *Pool) Get() []byte {
	buffer := *(p.pool.Get().(*[]byte))
	if cap(buffer) < p.size {
		return make([]byte, p.size)
	}
	return buffer[:p.size]
}

// Put returns a buffer to the pool. Buffers from elsewhere that are too
// small are dropped.
func (p *Pool) Put(buffer []byte) {
	if cap(buffer) < p.size {
		return
	}
	buffer = buffer[:p.size]
	p.pool.Put(&buffer)
}

// Frames is the shared pool for frame-sized buffers.
var Frames = NewPool(FrameSize)

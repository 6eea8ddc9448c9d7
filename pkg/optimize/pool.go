package optimize

import (
	"sync"
)

// BytePool is a pool of fixed-size byte slices, used for datagram receive buffers
type BytePool struct {
	pool sync.Pool
	size int
}

// NewBytePool creates a new byte pool with specified size
func NewBytePool(size int) *BytePool {
	return &BytePool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Size returns the length of slices handed out by Get
func (p *BytePool) Size() int {
	return p.size
}

// Get gets a byte slice from the pool
func (p *BytePool) Get() []byte {
	return *(p.pool.Get().(*[]byte))
}

// Put returns a byte slice to the pool
func (p *BytePool) Put(b []byte) {
	// Only put back if it's the right size
	if cap(b) >= p.size {
		b = b[:p.size]
		p.pool.Put(&b)
	}
}

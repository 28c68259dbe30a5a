package pools

import (
	"sync"
)

// Float64SlicePool is a pool of float64 scratch buffers
type Float64SlicePool struct {
	pool sync.Pool
	size int
}

// NewFloat64SlicePool creates a pool whose fresh buffers have capacity size
func NewFloat64SlicePool(size int) *Float64SlicePool {
	return &Float64SlicePool{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]float64, 0, size)
				return &buf
			},
		},
		size: size,
	}
}

// Get retrieves a buffer of length n. Contents are unspecified.
func (p *Float64SlicePool) Get(n int) []float64 {
	buf := *(p.pool.Get().(*[]float64))
	if cap(buf) < n {
		return make([]float64, n)
	}
	return buf[:n]
}

// Put returns a buffer to the pool
func (p *Float64SlicePool) Put(f []float64) {
	if cap(f) >= p.size {
		f = f[:0]
		p.pool.Put(&f)
	}
	// Smaller buffers are left to the GC
}

package pools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFloat64SlicePool(t *testing.T) {
	p := NewFloat64SlicePool(16)

	buf := p.Get(10)
	assert.Len(t, buf, 10)
	assert.GreaterOrEqual(t, cap(buf), 16)
	p.Put(buf)

	large := p.Get(64)
	assert.Len(t, large, 64)
	p.Put(large)

	// undersized buffers are dropped rather than pooled
	p.Put(make([]float64, 4))
	assert.Len(t, p.Get(8), 8)
}

package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytePool_GetBufferHasFixedLength(t *testing.T) {
	p := NewBytePool(1024)
	assert.Equal(t, 1024, p.Size())

	b := p.GetBuffer()
	require.NotNil(t, b)
	assert.Len(t, b.B, 1024)

	copy(b.B, "dirty")
	p.PutBuffer(b)

	b2 := p.GetBuffer()
	assert.Len(t, b2.B, 1024)
	p.PutBuffer(b2)
}

func TestBytePool_DefaultSize(t *testing.T) {
	p := NewBytePool(0)
	assert.Equal(t, DefaultBufferSize, p.Size())
	assert.Len(t, p.GetBuffer().B, DefaultBufferSize)
}

func TestBytePool_PutNil(t *testing.T) {
	p := NewBytePool(8)
	assert.NotPanics(t, func() { p.PutBuffer(nil) })
}

// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>

package pool

import (
	"github.com/valyala/bytebufferpool"
)

// DefaultBufferSize is the scratch size used when none is configured.
const DefaultBufferSize = 16 * 1024

// BytePool hands out fixed-length scratch buffers for socket pumps.
type BytePool struct {
	pool bytebufferpool.Pool
	size int
}

// NewBytePool creates a pool of size-byte buffers. Non-positive sizes fall
// back to DefaultBufferSize.
func NewBytePool(size int) *BytePool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &BytePool{size: size}
}

// Size returns the length of every buffer returned by GetBuffer.
func (p *BytePool) Size() int { return p.size }

// GetBuffer returns a buffer whose B field has length Size().
func (p *BytePool) GetBuffer() *bytebufferpool.ByteBuffer {
	b := p.pool.Get()
	if cap(b.B) < p.size {
		b.B = make([]byte, p.size)
	} else {
		b.B = b.B[:p.size]
	}
	return b
}

// PutBuffer returns b to the pool. b must not be used afterwards.
func (p *BytePool) PutBuffer(b *bytebufferpool.ByteBuffer) {
	if b == nil {
		return
	}
	b.Reset()
	p.pool.Put(b)
}

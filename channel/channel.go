// File: channel/channel.go
// Author: momentics <momentics@gmail.com>

package channel

import (
	"context"
	"io"
	"sync"

	"github.com/smallnest/ringbuffer"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/control"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 64 * 1024

// UnknownTotal marks a transfer whose size is not known in advance.
const UnknownTotal int64 = -1

// ByteChannel is a single-producer single-consumer bounded byte pipe.
type ByteChannel struct {
	mu       sync.Mutex
	ring     *ringbuffer.RingBuffer
	capacity int
	closed   bool
	cause    error
	written  int64

	// Capacity-1 signals; a stale token only costs one extra loop.
	dataReady  chan struct{}
	spaceReady chan struct{}
	done       chan struct{}

	progress api.ProgressListener
	expected int64
	metrics  *control.Metrics
}

var (
	_ api.ByteReadChannel  = (*ByteChannel)(nil)
	_ api.ByteWriteChannel = (*ByteChannel)(nil)
)

// New creates an open channel buffering at most capacity bytes.
func New(capacity int, opts ...Option) *ByteChannel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &ByteChannel{
		ring:       ringbuffer.New(capacity),
		capacity:   capacity,
		dataReady:  make(chan struct{}, 1),
		spaceReady: make(chan struct{}, 1),
		done:       make(chan struct{}),
		expected:   UnknownTotal,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// WriteContext copies p into the channel, suspending while it is full.
// It returns len(p) on success. If ctx ends or the channel closes first the
// bytes already accepted are reported along with the error.
func (c *ByteChannel) WriteContext(ctx context.Context, p []byte) (int, error) {
	written := 0
	for {
		c.mu.Lock()
		if c.closed {
			err := c.cause
			c.mu.Unlock()
			if err == nil {
				err = api.ErrChannelClosed
			}
			return written, err
		}
		if written == len(p) {
			c.mu.Unlock()
			return written, nil
		}
		if free := c.ring.Free(); free > 0 {
			chunk := p[written:]
			if len(chunk) > free {
				chunk = chunk[:free]
			}
			n, _ := c.ring.Write(chunk)
			written += n
			c.written += int64(n)
			soFar, fn := c.written, c.progress
			c.mu.Unlock()

			notify(c.dataReady)
			if fn != nil && n > 0 {
				fn(soFar, c.expected)
			}
			continue
		}
		c.mu.Unlock()

		c.metrics.ChannelSuspended("write")
		select {
		case <-c.spaceReady:
		case <-c.done:
		case <-ctx.Done():
			return written, ctx.Err()
		}
	}
}

// Write implements io.Writer.
func (c *ByteChannel) Write(p []byte) (int, error) {
	return c.WriteContext(context.Background(), p)
}

// ReadContext copies buffered bytes into p, suspending only while the channel
// is empty and open. A drained channel returns io.EOF, or the close cause.
func (c *ByteChannel) ReadContext(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		c.mu.Lock()
		if c.ring.Length() > 0 {
			n, _ := c.ring.Read(p)
			c.mu.Unlock()
			notify(c.spaceReady)
			return n, nil
		}
		if c.closed {
			err := c.cause
			c.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		c.mu.Unlock()

		c.metrics.ChannelSuspended("read")
		select {
		case <-c.dataReady:
		case <-c.done:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// Read implements io.Reader.
func (c *ByteChannel) Read(p []byte) (int, error) {
	return c.ReadContext(context.Background(), p)
}

// Close marks the end of the stream. Buffered bytes stay readable.
func (c *ByteChannel) Close() error {
	return c.CloseWithError(nil)
}

// CloseWithError closes the channel for writing and records cause, which the
// reader observes after draining. Only the first close has effect.
func (c *ByteChannel) CloseWithError(cause error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cause = cause
	close(c.done)
	fn := c.progress
	emptyStream := cause == nil && c.written == 0
	c.mu.Unlock()

	if fn != nil && emptyStream {
		fn(0, c.expected)
	}
	return nil
}

// Done is closed once the channel is closed for writing.
func (c *ByteChannel) Done() <-chan struct{} { return c.done }

// IsClosedForWrite reports whether Close or CloseWithError was called.
func (c *ByteChannel) IsClosedForWrite() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// IsClosedForRead reports whether the channel is closed and drained.
func (c *ByteChannel) IsClosedForRead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed && c.ring.Length() == 0
}

// Cause returns the error passed to CloseWithError, or nil.
func (c *ByteChannel) Cause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cause
}

// Available returns the number of buffered bytes.
func (c *ByteChannel) Available() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ring.Length()
}

// Capacity returns the ring size.
func (c *ByteChannel) Capacity() int { return c.capacity }

// TotalWritten returns the number of bytes accepted since creation.
func (c *ByteChannel) TotalWritten() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

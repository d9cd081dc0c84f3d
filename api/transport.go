// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Byte channel contracts: the bounded, suspendable pipes that bridge
// non-blocking sockets to sequential consumers.

package api

import (
	"context"
	"io"
)

// ProgressListener receives (bytesSoFar, total) after each transferred batch.
// total is -1 when the expected length is unknown.
type ProgressListener func(bytesSoFar, total int64)

// ByteReadChannel is the consuming side of a byte channel.
type ByteReadChannel interface {
	io.Reader

	// ReadContext copies buffered bytes into p, suspending while the channel is
	// empty and open. A drained channel closed without cause yields io.EOF;
	// one closed with a cause yields that cause.
	ReadContext(ctx context.Context, p []byte) (int, error)

	// IsClosedForRead reports that the channel is closed and fully drained.
	IsClosedForRead() bool

	// Cause returns the terminal failure, nil for an orderly close or open channel.
	Cause() error

	// Available returns the number of bytes readable without suspending.
	Available() int
}

// ByteWriteChannel is the producing side of a byte channel.
type ByteWriteChannel interface {
	io.Writer
	io.Closer

	// WriteContext copies all of p, suspending while the buffer is full.
	WriteContext(ctx context.Context, p []byte) (int, error)

	// CloseWithError closes the channel; a non-nil cause is observed by the reader.
	CloseWithError(cause error) error

	// IsClosedForWrite reports that no further writes are accepted.
	IsClosedForWrite() bool
}

// ByteChannel exposes both sides of one pipe.
type ByteChannel interface {
	ByteReadChannel
	ByteWriteChannel
}

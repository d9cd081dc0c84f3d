// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Readiness interests and the selector contract used by non-blocking sockets
// to park until a descriptor can make progress.

package api

import "context"

// Interest names the operation a descriptor is waiting to perform.
type Interest uint8

const (
	InterestRead Interest = iota
	InterestWrite
	InterestAccept
	InterestConnect

	// InterestCount is the number of distinct interests.
	InterestCount = 4
)

func (i Interest) String() string {
	switch i {
	case InterestRead:
		return "read"
	case InterestWrite:
		return "write"
	case InterestAccept:
		return "accept"
	case InterestConnect:
		return "connect"
	}
	return "unknown"
}

// Output reports whether the interest belongs to the output direction.
// Read and Accept wait for input readiness, Write and Connect for output.
func (i Interest) Output() bool {
	return i == InterestWrite || i == InterestConnect
}

// Selector parks callers until a descriptor becomes ready for an interest.
type Selector interface {
	// Select suspends until fd is ready for interest. It returns ErrClosed when
	// the registration is cancelled, ErrSelectorClosed when the selector shuts
	// down and ctx.Err() when ctx is done first.
	Select(ctx context.Context, fd int, interest Interest) error

	// Cancel removes every registration of fd and wakes its waiters with ErrClosed.
	// Owners call it before releasing the descriptor.
	Cancel(fd int)
}

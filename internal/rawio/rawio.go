// File: internal/rawio/rawio.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Raw I/O adapter: one syscall attempt per call, with the return value
// classified into Completed, WouldBlock, Interrupted or Fatal. Retry policy
// belongs to the socket layer.

package rawio

import (
	"errors"
	"syscall"
)

// Kind classifies the outcome of a single syscall attempt.
type Kind uint8

const (
	// Completed means N bytes moved; N == 0 on a read is end-of-stream.
	Completed Kind = iota
	// WouldBlock means the caller must wait for readiness before retrying.
	WouldBlock
	// Interrupted means the call was cut short by a signal; retry immediately.
	Interrupted
	// Fatal carries an errno the caller must surface.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Completed:
		return "completed"
	case WouldBlock:
		return "would_block"
	case Interrupted:
		return "interrupted"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Result is the classified outcome of one attempt.
type Result struct {
	Kind  Kind
	N     int
	Errno syscall.Errno
}

// Classify converts a raw (n, err) syscall return into a Result.
// Negative counts are never surfaced and N is clamped to [0, requested].
func Classify(n int, err error, requested int) Result {
	if err != nil {
		var errno syscall.Errno
		if !errors.As(err, &errno) {
			errno = syscall.EIO
		}
		switch errno {
		case syscall.EAGAIN, syscall.EINPROGRESS, syscall.EALREADY:
			return Result{Kind: WouldBlock}
		case syscall.EINTR:
			return Result{Kind: Interrupted}
		}
		if errno == syscall.EWOULDBLOCK {
			return Result{Kind: WouldBlock}
		}
		return Result{Kind: Fatal, Errno: errno}
	}
	if n < 0 {
		n = 0
	}
	if requested >= 0 && n > requested {
		n = requested
	}
	return Result{Kind: Completed, N: n}
}

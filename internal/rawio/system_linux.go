//go:build linux
// +build linux

// File: internal/rawio/system_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux syscall backend for the raw I/O adapter.

package rawio

import (
	"golang.org/x/sys/unix"
)

// IO performs single non-blocking syscall attempts on a descriptor.
// Implementations must never loop internally.
type IO interface {
	Read(fd int, p []byte) Result
	Write(fd int, p []byte) Result
	// Accept returns the new descriptor, already non-blocking and close-on-exec.
	Accept(fd int) (int, unix.Sockaddr, Result)
	Connect(fd int, sa unix.Sockaddr) Result
	// ConnectResult reports the outcome of a pending connect via SO_ERROR.
	ConnectResult(fd int) Result
}

// System is the production IO backed by golang.org/x/sys/unix.
type System struct{}

var _ IO = System{}

// Read performs one read(2).
func (System) Read(fd int, p []byte) Result {
	if len(p) == 0 {
		return Result{Kind: Completed}
	}
	n, err := unix.Read(fd, p)
	return Classify(n, err, len(p))
}

// Write performs one send(2) with MSG_NOSIGNAL so a reset peer yields EPIPE
// instead of killing the process.
func (System) Write(fd int, p []byte) Result {
	if len(p) == 0 {
		return Result{Kind: Completed}
	}
	n, err := unix.SendmsgN(fd, p, nil, nil, unix.MSG_NOSIGNAL)
	return Classify(n, err, len(p))
}

// Accept performs one accept4(2).
func (System) Accept(fd int) (int, unix.Sockaddr, Result) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, nil, Classify(-1, err, 0)
	}
	return nfd, sa, Result{Kind: Completed}
}

// Connect performs one connect(2). EINPROGRESS classifies as WouldBlock.
func (System) Connect(fd int, sa unix.Sockaddr) Result {
	err := unix.Connect(fd, sa)
	return Classify(0, err, 0)
}

// ConnectResult reads SO_ERROR after the descriptor became writable.
func (System) ConnectResult(fd int) Result {
	soerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return Classify(0, err, 0)
	}
	if soerr != 0 {
		return Classify(0, unix.Errno(soerr), 0)
	}
	return Result{Kind: Completed}
}

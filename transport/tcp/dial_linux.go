//go:build linux
// +build linux

// File: transport/tcp/dial_linux.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/rawio"
)

// Connect opens a connection to address, suspending on sel until the
// handshake completes. A refused connection fails with api.ErrConnectionRefused.
func Connect(ctx context.Context, sel api.Selector, address string, opts ...Option) (*Conn, error) {
	cfg := newConfig(opts)

	sa, family, err := resolveSockaddr(address)
	if err != nil {
		return nil, errors.WithMessagef(err, "connect %s", address)
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.WithMessagef(sysError("socket", err), "connect %s", address)
	}

	if err := connect(ctx, sel, cfg.io, fd, sa); err != nil {
		sel.Cancel(fd)
		_ = unix.Close(fd)
		return nil, errors.WithMessagef(err, "connect %s", address)
	}

	c := newConn(fd, sel, cfg, nil)
	c.logger.Debug().Stringer("remote", addrStringer{c.remote}).Msg("connection established")
	return c, nil
}

func connect(ctx context.Context, sel api.Selector, io rawio.IO, fd int, sa unix.Sockaddr) error {
	res := io.Connect(fd, sa)
	switch res.Kind {
	case rawio.Completed:
		return nil
	case rawio.WouldBlock, rawio.Interrupted:
		// An interrupted connect keeps going in the background, like EINPROGRESS.
	default:
		return api.ErrorFromErrno("connect", res.Errno)
	}

	for {
		if err := sel.Select(ctx, fd, api.InterestConnect); err != nil {
			return err
		}
		res = io.ConnectResult(fd)
		switch res.Kind {
		case rawio.Completed:
			return nil
		case rawio.WouldBlock, rawio.Interrupted:
			continue
		default:
			return api.ErrorFromErrno("connect", res.Errno)
		}
	}
}

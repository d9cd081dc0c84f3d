//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp - non-blocking listening socket.

package tcp

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/internal/rawio"
)

// Listener accepts connections on a non-blocking listening socket.
type Listener struct {
	fd    int
	sel   api.Selector
	cfg   *config
	local net.Addr

	acceptMu  sync.Mutex // held for the whole of Accept
	closed    atomic.Bool
	life      context.Context
	kill      context.CancelFunc
	closeOnce sync.Once
}

// Bind creates a listening socket on address. A non-positive backlog uses
// the system maximum.
func Bind(sel api.Selector, address string, backlog int, opts ...Option) (*Listener, error) {
	cfg := newConfig(opts)

	sa, family, err := resolveSockaddr(address)
	if err != nil {
		return nil, errors.WithMessagef(err, "bind %s", address)
	}
	fd, err := unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, errors.WithMessagef(sysError("socket", err), "bind %s", address)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return nil, errors.WithMessagef(sysError("setsockopt", err), "bind %s", address)
	}
	if err := unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return nil, errors.WithMessagef(sysError("bind", err), "bind %s", address)
	}
	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return nil, errors.WithMessagef(sysError("listen", err), "bind %s", address)
	}

	var local net.Addr
	if lsa, err := unix.Getsockname(fd); err == nil {
		local = tcpAddr(lsa)
	}

	life, kill := context.WithCancel(context.Background())
	l := &Listener{fd: fd, sel: sel, cfg: cfg, local: local, life: life, kill: kill}
	cfg.logger.Info().Stringer("addr", addrStringer{local}).Int("backlog", backlog).Msg("listener bound")
	return l, nil
}

// LocalAddr returns the bound address, including the kernel-chosen port.
func (l *Listener) LocalAddr() net.Addr { return l.local }

// Accept waits for the next connection. Only one Accept may run at a time;
// a concurrent call fails with api.ErrInvalidState. Accept returns
// api.ErrClosed once the listener is closed.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	if !l.acceptMu.TryLock() {
		return nil, api.ErrInvalidState
	}
	defer l.acceptMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(l.life, cancel)
	defer stop()

	for {
		if l.closed.Load() {
			return nil, api.ErrClosed
		}
		nfd, sa, res := l.cfg.io.Accept(l.fd)
		switch res.Kind {
		case rawio.Completed:
			sel := l.sel
			if l.cfg.selectorFor != nil {
				if s := l.cfg.selectorFor(); s != nil {
					sel = s
				}
			}
			c := newConn(nfd, sel, l.cfg, tcpAddr(sa))
			l.cfg.metrics.Accepted()
			c.logger.Debug().Stringer("remote", addrStringer{c.remote}).Msg("connection accepted")
			return c, nil
		case rawio.WouldBlock:
			if err := l.sel.Select(ctx, l.fd, api.InterestAccept); err != nil {
				if l.closed.Load() {
					return nil, api.ErrClosed
				}
				return nil, err
			}
		case rawio.Interrupted:
			continue
		default:
			err := api.ErrorFromErrno("accept", res.Errno)
			l.cfg.metrics.AcceptError(err.Code.String())
			return nil, err
		}
	}
}

// Close stops accepting. A suspended Accept wakes with api.ErrClosed.
// Close is idempotent.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.kill()
		l.sel.Cancel(l.fd)

		// Wait for an in-flight Accept so the descriptor number is not reused under it.
		l.acceptMu.Lock()
		defer l.acceptMu.Unlock()
		_ = unix.Shutdown(l.fd, unix.SHUT_RDWR)
		if cerr := unix.Close(l.fd); cerr != nil {
			err = sysError("close", cerr)
		}
		l.cfg.logger.Info().Stringer("addr", addrStringer{l.local}).Msg("listener closed")
	})
	return err
}

// addrStringer renders a possibly nil net.Addr.
type addrStringer struct{ net.Addr }

func (a addrStringer) String() string {
	if a.Addr == nil {
		return "<unknown>"
	}
	return a.Addr.String()
}

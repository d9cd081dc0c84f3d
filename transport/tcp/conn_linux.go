//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp - non-blocking connected socket.

package tcp

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/channel"
	"github.com/momentics/hioload-net/internal/rawio"
)

var connSeq atomic.Uint64

// Conn is a connected non-blocking TCP socket.
//
// At most one read and one write may be outstanding. Once Inbound or Outbound
// is called, a pump goroutine owns that direction and the direct Read or
// Write fails with api.ErrInvalidState.
type Conn struct {
	id     uint64
	fd     int
	sel    api.Selector
	cfg    *config
	logger zerolog.Logger
	local  net.Addr
	remote net.Addr

	readMu  sync.Mutex
	writeMu sync.Mutex

	closed    atomic.Bool
	life      context.Context
	kill      context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}

	attachMu sync.Mutex
	inbound  *channel.ByteChannel
	outbound *channel.ByteChannel
	flushed  chan struct{} // closed when the outbound pump exits
	pumps    sync.WaitGroup
}

func newConn(fd int, sel api.Selector, cfg *config, remote net.Addr) *Conn {
	id := connSeq.Add(1)
	if cfg.noDelay {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	}
	var local net.Addr
	if sa, err := unix.Getsockname(fd); err == nil {
		local = tcpAddr(sa)
	}
	if remote == nil {
		if sa, err := unix.Getpeername(fd); err == nil {
			remote = tcpAddr(sa)
		}
	}
	life, kill := context.WithCancel(context.Background())
	c := &Conn{
		id:     id,
		fd:     fd,
		sel:    sel,
		cfg:    cfg,
		logger: cfg.logger.With().Uint64("conn", id).Logger(),
		local:  local,
		remote: remote,
		life:   life,
		kill:   kill,
		done:   make(chan struct{}),
	}
	cfg.metrics.ConnOpened()
	return c
}

// ID returns the process-unique connection number.
func (c *Conn) ID() uint64 { return c.id }

// LocalAddr returns the local socket address.
func (c *Conn) LocalAddr() net.Addr { return c.local }

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.remote }

// Done is closed after the connection has been closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// bind ties ctx to the connection lifetime.
func (c *Conn) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// wait parks on the selector and turns wake-ups caused by Close into api.ErrClosed.
func (c *Conn) wait(ctx context.Context, interest api.Interest) error {
	if err := c.sel.Select(ctx, c.fd, interest); err != nil {
		if c.closed.Load() {
			return api.ErrClosed
		}
		return err
	}
	return nil
}

// Read reads up to len(p) bytes, suspending until data arrives. It returns
// io.EOF once the peer has closed its side.
func (c *Conn) Read(ctx context.Context, p []byte) (int, error) {
	c.attachMu.Lock()
	attached := c.inbound != nil
	c.attachMu.Unlock()
	if attached || !c.readMu.TryLock() {
		return 0, api.ErrInvalidState
	}
	defer c.readMu.Unlock()
	return c.readLocked(ctx, p)
}

// readLocked runs the read retry loop. Must hold readMu.
func (c *Conn) readLocked(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	ctx, cancel := c.bind(ctx)
	defer cancel()
	for {
		if c.closed.Load() {
			return 0, api.ErrClosed
		}
		res := c.cfg.io.Read(c.fd, p)
		switch res.Kind {
		case rawio.Completed:
			if res.N == 0 {
				return 0, io.EOF
			}
			c.cfg.metrics.BytesRead(res.N)
			return res.N, nil
		case rawio.WouldBlock:
			if err := c.wait(ctx, api.InterestRead); err != nil {
				return 0, err
			}
		case rawio.Interrupted:
			continue
		default:
			return 0, api.ErrorFromErrno("read", res.Errno)
		}
	}
}

// Write sends a prefix of p, suspending until the socket accepts at least one
// byte. Partial writes are legal; the caller resubmits the remainder.
func (c *Conn) Write(ctx context.Context, p []byte) (int, error) {
	c.attachMu.Lock()
	attached := c.outbound != nil
	c.attachMu.Unlock()
	if attached || !c.writeMu.TryLock() {
		return 0, api.ErrInvalidState
	}
	defer c.writeMu.Unlock()
	return c.writeLocked(ctx, p)
}

// writeLocked runs the write retry loop. Must hold writeMu.
func (c *Conn) writeLocked(ctx context.Context, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	ctx, cancel := c.bind(ctx)
	defer cancel()
	for {
		if c.closed.Load() {
			return 0, api.ErrClosed
		}
		res := c.cfg.io.Write(c.fd, p)
		switch res.Kind {
		case rawio.Completed:
			if res.N == 0 {
				return 0, io.ErrShortWrite
			}
			c.cfg.metrics.BytesWritten(res.N)
			return res.N, nil
		case rawio.WouldBlock:
			if err := c.wait(ctx, api.InterestWrite); err != nil {
				return 0, err
			}
		case rawio.Interrupted:
			continue
		default:
			return 0, api.ErrorFromErrno("write", res.Errno)
		}
	}
}

// writeAll resubmits partial writes until p is sent.
func (c *Conn) writeAll(ctx context.Context, p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	for len(p) > 0 {
		n, err := c.writeLocked(ctx, p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

// closeWrite half-closes the socket after the outbound stream ended.
func (c *Conn) closeWrite() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed.Load() {
		return
	}
	if err := unix.Shutdown(c.fd, unix.SHUT_WR); err != nil {
		c.logger.Debug().Err(err).Msg("shutdown write failed")
	}
}

// Close wakes every suspended operation, releases the descriptor, closes the
// channels and waits for the pumps. The inbound channel ends without cause;
// the outbound channel fails further writes with api.ErrClosed. If the
// outbound stream was already ended by its producer, Close first lets the
// pump flush it for up to the linger time.
func (c *Conn) Close() error {
	c.awaitFlush()
	err := c.shutdown()
	c.pumps.Wait()
	return err
}

func (c *Conn) awaitFlush() {
	if c.cfg.linger <= 0 || c.closed.Load() {
		return
	}
	c.attachMu.Lock()
	out, flushed := c.outbound, c.flushed
	c.attachMu.Unlock()
	if out == nil || flushed == nil || !out.IsClosedForWrite() || out.Cause() != nil {
		return
	}
	t := time.NewTimer(c.cfg.linger)
	defer t.Stop()
	select {
	case <-flushed:
	case <-t.C:
		c.logger.Debug().Dur("linger", c.cfg.linger).Msg("outbound not flushed before close")
	}
}

// shutdown releases the descriptor without waiting for the pumps, so the
// pumps themselves may call it.
func (c *Conn) shutdown() error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.kill()
		c.sel.Cancel(c.fd)

		// In-flight syscalls finish before the descriptor number is released.
		c.readMu.Lock()
		c.writeMu.Lock()
		_ = unix.Shutdown(c.fd, unix.SHUT_RDWR)
		if cerr := unix.Close(c.fd); cerr != nil {
			err = sysError("close", cerr)
		}
		c.writeMu.Unlock()
		c.readMu.Unlock()

		c.attachMu.Lock()
		if c.inbound != nil {
			_ = c.inbound.Close()
		}
		if c.outbound != nil {
			_ = c.outbound.CloseWithError(api.ErrClosed)
		}
		c.attachMu.Unlock()

		c.cfg.metrics.ConnClosed()
		c.logger.Debug().Msg("connection closed")
		close(c.done)
	})
	return err
}

//go:build linux
// +build linux

// File: transport/tcp/pump_linux.go
// Author: momentics <momentics@gmail.com>
//
// Socket <-> channel pumps.

package tcp

import (
	"errors"
	"io"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/channel"
)

// Inbound returns the channel carrying bytes received from the peer.
// The first call starts the inbound pump.
func (c *Conn) Inbound() api.ByteReadChannel {
	c.attachMu.Lock()
	defer c.attachMu.Unlock()
	if c.inbound == nil {
		c.inbound = channel.New(c.cfg.channelCapacity, channel.WithMetrics(c.cfg.metrics))
		if c.closed.Load() {
			_ = c.inbound.Close()
		} else {
			c.pumps.Add(1)
			go c.pumpInbound(c.inbound)
		}
	}
	return c.inbound
}

// Outbound returns the channel whose bytes are sent to the peer. Closing it
// without cause half-closes the socket; closing it with a cause closes the
// connection. The first call starts the outbound pump.
func (c *Conn) Outbound() api.ByteWriteChannel {
	c.attachMu.Lock()
	defer c.attachMu.Unlock()
	if c.outbound == nil {
		c.outbound = channel.New(c.cfg.channelCapacity, channel.WithMetrics(c.cfg.metrics))
		if c.closed.Load() {
			_ = c.outbound.CloseWithError(api.ErrClosed)
		} else {
			c.flushed = make(chan struct{})
			c.pumps.Add(1)
			go c.pumpOutbound(c.outbound, c.flushed)
		}
	}
	return c.outbound
}

func (c *Conn) pumpInbound(in *channel.ByteChannel) {
	defer c.pumps.Done()
	buf := c.cfg.bytePool.GetBuffer()
	defer c.cfg.bytePool.PutBuffer(buf)

	for {
		c.readMu.Lock()
		n, err := c.readLocked(c.life, buf.B)
		c.readMu.Unlock()

		if n > 0 {
			if _, werr := in.WriteContext(c.life, buf.B[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if c.closed.Load() {
				return
			}
			if errors.Is(err, io.EOF) {
				_ = in.Close()
			} else {
				c.logger.Debug().Err(err).Msg("inbound pump failed")
				_ = in.CloseWithError(err)
			}
			return
		}
	}
}

func (c *Conn) pumpOutbound(out *channel.ByteChannel, flushed chan struct{}) {
	defer c.pumps.Done()
	defer close(flushed)
	buf := c.cfg.bytePool.GetBuffer()
	defer c.cfg.bytePool.PutBuffer(buf)

	for {
		n, rerr := out.ReadContext(c.life, buf.B)
		if n > 0 {
			if err := c.writeAll(c.life, buf.B[:n]); err != nil {
				if !c.closed.Load() {
					c.logger.Debug().Err(err).Msg("outbound pump failed")
					_ = out.CloseWithError(err)
				}
				return
			}
		}
		if rerr != nil {
			if c.closed.Load() {
				return
			}
			if errors.Is(rerr, io.EOF) {
				c.closeWrite()
				return
			}
			c.logger.Debug().Err(rerr).Msg("outbound stream aborted, closing connection")
			_ = c.shutdown()
			return
		}
	}
}

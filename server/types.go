// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"runtime"
	"time"

	"github.com/momentics/hioload-net/channel"
	"github.com/momentics/hioload-net/pool"
)

// Config holds all server-side configuration parameters.
type Config struct {
	ListenAddr       string        // TCP bind address, e.g. ":9000"
	Backlog          int           // listen backlog, <= 0 uses SOMAXCONN
	Selectors        int           // number of poll loops connections are spread over
	ChannelCapacity  int           // ring size of each connection channel
	IOBufferSize     int           // scratch buffer size used by the pumps
	MaxConnections   int           // live connection cap, 0 = unlimited
	HandlerWorkers   int           // size of the handler goroutine pool
	ShutdownTimeout  time.Duration // graceful shutdown timeout
	PollIdleTimeout  time.Duration // poll timeout while a selector has no registrations
	AcceptBackoffMax time.Duration // upper bound of the accept retry delay on resource exhaustion
	LogLevel         string        // zerolog level name
	PinSelectors     bool          // pin selector i to CPU i mod NumCPU
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:       ":9000",
		Backlog:          0,
		Selectors:        runtime.NumCPU(),
		ChannelCapacity:  channel.DefaultCapacity,
		IOBufferSize:     pool.DefaultBufferSize,
		MaxConnections:   0,
		HandlerWorkers:   1024,
		ShutdownTimeout:  30 * time.Second,
		PollIdleTimeout:  time.Second,
		AcceptBackoffMax: time.Second,
		LogLevel:         "info",
	}
}

// normalize replaces zero values with defaults.
func (c *Config) normalize() {
	d := DefaultConfig()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.Selectors <= 0 {
		c.Selectors = d.Selectors
	}
	if c.ChannelCapacity <= 0 {
		c.ChannelCapacity = d.ChannelCapacity
	}
	if c.IOBufferSize <= 0 {
		c.IOBufferSize = d.IOBufferSize
	}
	if c.HandlerWorkers <= 0 {
		c.HandlerWorkers = d.HandlerWorkers
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.PollIdleTimeout <= 0 {
		c.PollIdleTimeout = d.PollIdleTimeout
	}
	if c.AcceptBackoffMax <= 0 {
		c.AcceptBackoffMax = d.AcceptBackoffMax
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

//go:build linux
// +build linux

// File: transport/tcp/options_linux.go
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/channel"
	"github.com/momentics/hioload-net/control"
	"github.com/momentics/hioload-net/internal/rawio"
	"github.com/momentics/hioload-net/pool"
)

// config collects the settings shared by a listener and its connections.
type config struct {
	channelCapacity int
	bufferSize      int
	logger          zerolog.Logger
	metrics         *control.Metrics
	io              rawio.IO
	bytePool        *pool.BytePool
	noDelay         bool
	selectorFor     func() api.Selector
	linger          time.Duration
}

// DefaultLinger bounds how long Close waits for an ended outbound stream to drain.
const DefaultLinger = 5 * time.Second

// Option configures listeners and connections.
type Option func(*config)

func newConfig(opts []Option) *config {
	cfg := &config{
		channelCapacity: channel.DefaultCapacity,
		bufferSize:      pool.DefaultBufferSize,
		logger:          zerolog.Nop(),
		io:              rawio.System{},
		noDelay:         true,
		linger:          DefaultLinger,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.bytePool == nil {
		cfg.bytePool = pool.NewBytePool(cfg.bufferSize)
	}
	return cfg
}

// WithChannelCapacity sets the ring size of inbound and outbound channels.
func WithChannelCapacity(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.channelCapacity = n
		}
	}
}

// WithBufferSize sets the scratch buffer size used by the pumps.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufferSize = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *control.Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithIO replaces the syscall adapter.
func WithIO(io rawio.IO) Option {
	return func(c *config) {
		if io != nil {
			c.io = io
		}
	}
}

// WithBytePool shares a scratch buffer pool between connections.
func WithBytePool(p *pool.BytePool) Option {
	return func(c *config) { c.bytePool = p }
}

// WithNoDelay toggles TCP_NODELAY on new connections. Enabled by default.
func WithNoDelay(on bool) Option {
	return func(c *config) { c.noDelay = on }
}

// WithSelectorFor picks the selector serving each accepted connection.
// By default accepted connections share the listener's selector.
func WithSelectorFor(fn func() api.Selector) Option {
	return func(c *config) { c.selectorFor = fn }
}

// WithLinger sets how long Close waits for the outbound pump to flush a
// stream that was already closed without cause. Zero disables the wait.
func WithLinger(d time.Duration) Option {
	return func(c *config) {
		if d >= 0 {
			c.linger = d
		}
	}
}

//go:build linux
// +build linux

// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server facade: N selectors, one listener, a handler worker pool and
// graceful shutdown.

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/heptiolabs/healthcheck"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/control"
	"github.com/momentics/hioload-net/pool"
	"github.com/momentics/hioload-net/reactor"
	"github.com/momentics/hioload-net/transport/tcp"
)

// Handler serves one accepted connection. The server closes the connection
// when ServeConn returns.
type Handler interface {
	ServeConn(ctx context.Context, conn *tcp.Conn) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, conn *tcp.Conn) error

// ServeConn calls f.
func (f HandlerFunc) ServeConn(ctx context.Context, conn *tcp.Conn) error {
	return f(ctx, conn)
}

// Server is the high-level facade encapsulating selectors, listener and workers.
type Server struct {
	cfg       *Config
	logger    zerolog.Logger
	loggerSet bool
	registry  *prometheus.Registry
	metrics   *control.Metrics
	probes    *control.DebugProbes
	tracer    trace.Tracer
	bytePool  *pool.BytePool
	health    healthcheck.Handler

	listenerOpts []tcp.Option

	mu        sync.Mutex
	selectors []*reactor.Selector
	listener  *tcp.Listener
	workers   *ants.Pool

	conns   cmap.ConcurrentMap[uint64, *tcp.Conn]
	next    atomic.Uint64
	started atomic.Bool
	running atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

var _ api.Control = (*Server)(nil)

// NewServer validates cfg and prepares a server. Nothing is bound until Run.
func NewServer(cfg *Config, opts ...ServerOption) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := *cfg
	s := &Server{
		cfg:        &c,
		probes:     control.NewDebugProbes(),
		tracer:     noop.NewTracerProvider().Tracer("github.com/momentics/hioload-net/server"),
		conns:      cmap.NewWithCustomShardingFunction[uint64, *tcp.Conn](func(id uint64) uint32 { return uint32(id) }),
		ready:      make(chan struct{}),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg.normalize()

	if !s.loggerSet {
		level, err := zerolog.ParseLevel(s.cfg.LogLevel)
		if err != nil {
			return nil, api.NewError(api.ErrCodeInvalid, "unknown log level").WithContext("level", s.cfg.LogLevel)
		}
		s.logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = control.NewMetrics(s.registry)
	s.bytePool = pool.NewBytePool(s.cfg.IOBufferSize)

	s.health = healthcheck.NewHandler()
	s.health.AddLivenessCheck("selectors", func() error {
		if !s.running.Load() {
			return errors.New("server not running")
		}
		return nil
	})
	s.health.AddReadinessCheck("listener", func() error {
		if s.Addr() == nil {
			return errors.New("listener not bound")
		}
		return nil
	})

	control.RegisterPlatformProbes(s.probes)
	s.probes.RegisterProbe("server.connections", func() any { return s.conns.Count() })
	s.probes.RegisterProbe("server.selectors", func() any {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := make(map[string]int, len(s.selectors))
		for _, sel := range s.selectors {
			out[sel.Name()] = sel.Registrations()
		}
		return out
	})
	s.probes.RegisterProbe("server.workers.running", func() any {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.workers == nil {
			return 0
		}
		return s.workers.Running()
	})
	return s, nil
}

// Addr returns the bound listener address, or nil before Run binds it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.LocalAddr()
}

// Ready is closed once Run has bound the listener, or once Run has given up
// before binding. Addr is nil in the second case.
func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// ActiveConnections returns the number of connections being served.
func (s *Server) ActiveConnections() int { return s.conns.Count() }

// HealthHandler serves /live and /ready.
func (s *Server) HealthHandler() http.Handler { return s.health }

// MetricsRegistry returns the registry holding the server collectors.
func (s *Server) MetricsRegistry() *prometheus.Registry { return s.registry }

// DebugState runs every debug probe.
func (s *Server) DebugState() map[string]any { return s.probes.DumpState() }

// Stats implements api.Control.
func (s *Server) Stats() map[string]any { return s.DebugState() }

// RegisterDebugProbe implements api.Control.
func (s *Server) RegisterDebugProbe(name string, fn func() any) {
	s.probes.RegisterProbe(name, fn)
}

// Shutdown signals Run to stop accepting and tear down.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}

// nextSelector spreads accepted connections round-robin.
func (s *Server) nextSelector() api.Selector {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.selectors) == 0 {
		return nil
	}
	return s.selectors[s.next.Add(1)%uint64(len(s.selectors))]
}

// antsLogger routes worker pool messages to zerolog.
type antsLogger struct{ l zerolog.Logger }

func (a antsLogger) Printf(format string, args ...any) {
	a.l.Warn().Msgf(format, args...)
}

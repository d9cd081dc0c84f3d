// File: server/options.go
// Package server defines functional options for the Server facade.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/momentics/hioload-net/transport/tcp"
)

// ServerOption customizes server initialization.
type ServerOption func(*Server)

// WithLogger replaces the logger built from Config.LogLevel.
func WithLogger(l zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
		s.loggerSet = true
	}
}

// WithRegistry registers the server metrics with reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *Server) { s.registry = reg }
}

// WithTracer traces every connection with t. The default tracer is a no-op.
func WithTracer(t trace.Tracer) ServerOption {
	return func(s *Server) { s.tracer = t }
}

// WithSelectors overrides Config.Selectors.
func WithSelectors(n int) ServerOption {
	return func(s *Server) { s.cfg.Selectors = n }
}

// WithHandlerWorkers overrides Config.HandlerWorkers.
func WithHandlerWorkers(n int) ServerOption {
	return func(s *Server) { s.cfg.HandlerWorkers = n }
}

// WithMaxConnections overrides Config.MaxConnections.
func WithMaxConnections(n int) ServerOption {
	return func(s *Server) { s.cfg.MaxConnections = n }
}

// WithListenerOptions appends tcp options applied to the listener and every
// accepted connection, after the ones derived from Config.
func WithListenerOptions(opts ...tcp.Option) ServerOption {
	return func(s *Server) { s.listenerOpts = append(s.listenerOpts, opts...) }
}

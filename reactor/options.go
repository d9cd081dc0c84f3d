// File: reactor/options.go
// Author: momentics <momentics@gmail.com>

package reactor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/control"
)

const (
	defaultIdleTimeout = time.Second
	defaultMaxEvents   = 128
)

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Selector) { s.logger = l }
}

// WithMetrics attaches the collectors updated by the poll loop.
func WithMetrics(m *control.Metrics) Option {
	return func(s *Selector) { s.metrics = m }
}

// WithIdleTimeout bounds a poll while the registration table is empty.
// Non-positive values keep the default.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Selector) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithMaxEvents sets how many ready descriptors one poll may return.
func WithMaxEvents(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.maxEvents = n
		}
	}
}

// WithName labels the selector in logs.
func WithName(name string) Option {
	return func(s *Selector) { s.name = name }
}

// withPoller replaces the OS backend; tests use it to script readiness.
func withPoller(p poller) Option {
	return func(s *Selector) { s.poller = p }
}

// WithCPU pins the poll loop's OS thread to cpu. Negative values disable pinning.
func WithCPU(cpu int) Option {
	return func(s *Selector) { s.cpu = cpu }
}

//go:build linux
// +build linux

// File: server/run.go
// Package server implements the server startup, accept loop, connection
// dispatch and graceful shutdown.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/reactor"
	"github.com/momentics/hioload-net/transport/tcp"
)

// Run starts the selectors, binds the listener and serves connections with h
// until ctx is done or Shutdown is called. It returns nil after a graceful
// stop and the first fatal error otherwise.
func (s *Server) Run(ctx context.Context, h Handler) error {
	if !s.started.CompareAndSwap(false, true) {
		return api.ErrInvalidState
	}
	s.running.Store(true)
	defer s.running.Store(false)
	defer s.markReady()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.shutdownCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	workers, err := ants.NewPool(s.cfg.HandlerWorkers,
		ants.WithLogger(antsLogger{s.logger}),
		ants.WithPanicHandler(func(p any) {
			s.logger.Error().Interface("panic", p).Msg("handler panicked")
		}),
	)
	if err != nil {
		return fmt.Errorf("handler pool: %w", err)
	}

	sels := make([]*reactor.Selector, 0, s.cfg.Selectors)
	for i := 0; i < s.cfg.Selectors; i++ {
		opts := []reactor.Option{
			reactor.WithName(fmt.Sprintf("selector-%d", i)),
			reactor.WithLogger(s.logger),
			reactor.WithMetrics(s.metrics),
			reactor.WithIdleTimeout(s.cfg.PollIdleTimeout),
		}
		if s.cfg.PinSelectors {
			opts = append(opts, reactor.WithCPU(i%runtime.NumCPU()))
		}
		sel, err := reactor.New(opts...)
		if err != nil {
			for _, prev := range sels {
				_ = prev.Close()
			}
			workers.Release()
			return fmt.Errorf("selector %d: %w", i, err)
		}
		sels = append(sels, sel)
	}
	s.mu.Lock()
	s.selectors = sels
	s.workers = workers
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	selCtx, stopSelectors := context.WithCancel(context.Background())
	defer stopSelectors()
	for _, sel := range sels {
		sel := sel
		g.Go(func() error { return sel.Run(selCtx) })
	}

	lopts := append([]tcp.Option{
		tcp.WithLogger(s.logger),
		tcp.WithMetrics(s.metrics),
		tcp.WithChannelCapacity(s.cfg.ChannelCapacity),
		tcp.WithBytePool(s.bytePool),
		tcp.WithSelectorFor(s.nextSelector),
		tcp.WithLinger(min(tcp.DefaultLinger, s.cfg.ShutdownTimeout)),
	}, s.listenerOpts...)
	ln, err := tcp.Bind(sels[0], s.cfg.ListenAddr, s.cfg.Backlog, lopts...)
	if err != nil {
		stopSelectors()
		_ = g.Wait()
		workers.Release()
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.markReady()
	s.logger.Info().Str("addr", addrString(ln.LocalAddr())).Int("selectors", len(sels)).Msg("server started")

	g.Go(func() error { return s.acceptLoop(gctx, ln, h) })
	g.Go(func() error {
		<-gctx.Done()
		s.drain(ln, workers)
		stopSelectors()
		return nil
	})

	err = g.Wait()
	s.logger.Info().Err(err).Msg("server stopped")
	return err
}

// acceptLoop accepts until the listener is closed. Resource exhaustion backs
// off, per-connection failures are skipped, and a broken listener ends the loop.
func (s *Server) acceptLoop(ctx context.Context, ln *tcp.Listener, h Handler) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Millisecond
	bo.MaxInterval = s.cfg.AcceptBackoffMax
	bo.MaxElapsedTime = 0
	bo.Reset()

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			switch {
			case errors.Is(err, api.ErrResourceExhausted):
				d := bo.NextBackOff()
				s.logger.Warn().Err(err).Dur("backoff", d).Msg("accept: resources exhausted")
				select {
				case <-time.After(d):
				case <-ctx.Done():
					return nil
				}
			case api.IsListenerFatal(err):
				s.logger.Error().Err(err).Msg("accept: listener unusable")
				return fmt.Errorf("accept: %w", err)
			default:
				s.logger.Warn().Err(err).Msg("accept failed, continuing")
			}
			continue
		}
		bo.Reset()
		s.dispatch(ctx, conn, h)
	}
}

// dispatch registers conn and hands it to the worker pool.
func (s *Server) dispatch(ctx context.Context, conn *tcp.Conn, h Handler) {
	if limit := s.cfg.MaxConnections; limit > 0 && s.conns.Count() >= limit {
		s.logger.Warn().Uint64("conn", conn.ID()).Int("max", limit).Msg("connection limit reached, closing")
		_ = conn.Close()
		return
	}
	s.conns.Set(conn.ID(), conn)
	if err := s.workers.Submit(func() { s.handle(ctx, conn, h) }); err != nil {
		s.logger.Warn().Err(err).Uint64("conn", conn.ID()).Msg("handler pool rejected connection")
		s.conns.Remove(conn.ID())
		_ = conn.Close()
	}
}

func (s *Server) handle(ctx context.Context, conn *tcp.Conn, h Handler) {
	ctx, span := s.tracer.Start(ctx, "hioload.conn",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int64("hioload.conn.id", int64(conn.ID())),
			attribute.String("net.peer.addr", addrString(conn.RemoteAddr())),
		),
	)
	defer span.End()
	defer func() {
		s.conns.Remove(conn.ID())
		_ = conn.Close()
	}()

	if err := h.ServeConn(ctx, conn); err != nil && !errors.Is(err, api.ErrClosed) && !errors.Is(err, context.Canceled) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug().Err(err).Uint64("conn", conn.ID()).Msg("handler returned error")
	}
}

// drain closes the listener and live connections, then waits for handlers.
func (s *Server) drain(ln *tcp.Listener, workers *ants.Pool) {
	if err := ln.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("listener close failed")
	}
	// Each close may linger on an ended outbound stream; close them together.
	var closers errgroup.Group
	for _, conn := range s.conns.Items() {
		closers.Go(conn.Close)
	}
	_ = closers.Wait()
	if err := workers.ReleaseTimeout(s.cfg.ShutdownTimeout); err != nil {
		s.logger.Warn().Err(err).Dur("timeout", s.cfg.ShutdownTimeout).Msg("handlers still running after shutdown timeout")
	}
}

func addrString(a interface{ String() string }) string {
	if a == nil {
		return ""
	}
	return a.String()
}

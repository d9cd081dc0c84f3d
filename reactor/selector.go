// File: reactor/selector.go
// Author: momentics <momentics@gmail.com>
//
// Readiness selector with an explicit per-instance registration table.

package reactor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/eapache/queue"
	"github.com/rs/zerolog"

	"github.com/momentics/hioload-net/affinity"
	"github.com/momentics/hioload-net/api"
	"github.com/momentics/hioload-net/control"
)

// waiter is one parked Select call. result has room for exactly one value so
// the poll loop never blocks on delivery.
type waiter struct {
	result chan error
	fired  bool
}

func (w *waiter) fire(err error) {
	if w.fired {
		return
	}
	w.fired = true
	w.result <- err
}

// registration holds the FIFO waiter queues of one descriptor.
type registration struct {
	fd      int
	mask    readiness // mask currently installed in the backend
	waiters [api.InterestCount]*queue.Queue
}

func (r *registration) pending(i api.Interest) int {
	if q := r.waiters[i]; q != nil {
		return q.Length()
	}
	return 0
}

func (r *registration) enqueue(i api.Interest, w *waiter) {
	if r.waiters[i] == nil {
		r.waiters[i] = queue.New()
	}
	r.waiters[i].Add(w)
}

// dequeue pops the oldest waiter for i, or nil.
func (r *registration) dequeue(i api.Interest) *waiter {
	q := r.waiters[i]
	if q == nil || q.Length() == 0 {
		return nil
	}
	return q.Remove().(*waiter)
}

// withdraw removes w from the queue of i preserving the order of the rest.
func (r *registration) withdraw(i api.Interest, w *waiter) bool {
	q := r.waiters[i]
	if q == nil {
		return false
	}
	found := false
	for n := q.Length(); n > 0; n-- {
		x := q.Remove().(*waiter)
		if x == w && !found {
			found = true
			continue
		}
		q.Add(x)
	}
	return found
}

// wanted is the backend mask implied by the queued waiters.
func (r *registration) wanted() readiness {
	var m readiness
	for i := api.Interest(0); i < api.InterestCount; i++ {
		if r.pending(i) == 0 {
			continue
		}
		if i.Output() {
			m |= writable
		} else {
			m |= readable
		}
	}
	return m
}

// drain fires every queued waiter with err and returns how many were woken.
func (r *registration) drain(err error) int {
	n := 0
	for i := api.Interest(0); i < api.InterestCount; i++ {
		for w := r.dequeue(i); w != nil; w = r.dequeue(i) {
			w.fire(err)
			n++
		}
	}
	return n
}

// Selector implements api.Selector on top of a poll backend.
//
// Every registration lives in the table of the selector that created it.
// A descriptor is present in the backend exactly while it has waiters.
type Selector struct {
	name      string
	poller    poller
	logger    zerolog.Logger
	metrics   *control.Metrics
	idle      time.Duration
	maxEvents int
	cpu       int

	mu       sync.Mutex
	table    map[int]*registration
	reported int // table size last added to the registrations gauge
	closed   bool
	started  bool

	done      chan struct{}
	closeOnce sync.Once
}

var _ api.Selector = (*Selector)(nil)

// New creates a Selector. Run must be called to drive it.
func New(opts ...Option) (*Selector, error) {
	s := &Selector{
		name:      "selector",
		logger:    zerolog.Nop(),
		idle:      defaultIdleTimeout,
		maxEvents: defaultMaxEvents,
		cpu:       -1,
		table:     make(map[int]*registration),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.poller == nil {
		p, err := newPoller()
		if err != nil {
			return nil, err
		}
		s.poller = p
	}
	s.logger = s.logger.With().Str("selector", s.name).Logger()
	return s, nil
}

// Name returns the label given by WithName.
func (s *Selector) Name() string { return s.name }

// Registrations returns the number of descriptors with parked waiters.
func (s *Selector) Registrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table)
}

// Select parks the caller until fd is ready for interest.
func (s *Selector) Select(ctx context.Context, fd int, interest api.Interest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if interest >= api.InterestCount {
		return api.NewError(api.ErrCodeInvalid, "unknown interest").WithContext("interest", uint8(interest))
	}

	w := &waiter{result: make(chan error, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return api.ErrSelectorClosed
	}
	reg := s.table[fd]
	if reg == nil {
		reg = &registration{fd: fd}
		s.table[fd] = reg
	}
	if reg.pending(interest) > 0 {
		s.logger.Warn().Int("fd", fd).Stringer("interest", interest).
			Msg("descriptor already has a waiter for this interest")
	}
	reg.enqueue(interest, w)
	if err := s.syncMask(reg); err != nil {
		reg.withdraw(interest, w)
		_ = s.syncMask(reg)
		s.mu.Unlock()
		return err
	}
	s.publishRegistrations()
	s.mu.Unlock()

	s.metrics.SelectorWait()

	select {
	case err := <-w.result:
		return err
	case <-ctx.Done():
	}

	s.mu.Lock()
	if w.fired {
		s.mu.Unlock()
		return <-w.result
	}
	if reg := s.table[fd]; reg != nil && reg.withdraw(interest, w) {
		_ = s.syncMask(reg)
		s.publishRegistrations()
	}
	s.mu.Unlock()
	return ctx.Err()
}

// syncMask makes the backend match reg's waiters. Must hold s.mu.
func (s *Selector) syncMask(reg *registration) error {
	want := reg.wanted()
	if want == reg.mask {
		if want == 0 {
			delete(s.table, reg.fd)
		}
		return nil
	}

	var err error
	switch {
	case want == 0:
		err = s.poller.remove(reg.fd)
		if err != nil {
			// The descriptor may already be closed; the kernel dropped it.
			s.logger.Debug().Err(err).Int("fd", reg.fd).Msg("backend remove failed")
			err = nil
		}
		delete(s.table, reg.fd)
	case reg.mask == 0:
		err = s.poller.add(reg.fd, want)
	default:
		err = s.poller.modify(reg.fd, want)
	}
	if err != nil {
		if reg.mask == 0 && reg.wanted() == 0 {
			delete(s.table, reg.fd)
		}
		return registerError(err)
	}
	reg.mask = want
	return nil
}

func registerError(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return api.ErrorFromErrno("select", errno)
	}
	var e *api.Error
	if errors.As(err, &e) {
		return err
	}
	return api.NewError(api.ErrCodeUnknown, err.Error()).WithContext("op", "select")
}

// Cancel drops every registration of fd and wakes its waiters with api.ErrClosed.
func (s *Selector) Cancel(fd int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg := s.table[fd]
	if reg == nil {
		return
	}
	n := reg.drain(api.ErrClosed)
	if reg.mask != 0 {
		_ = s.poller.remove(fd)
	}
	delete(s.table, fd)
	s.metrics.SelectorCancelled(n)
	s.publishRegistrations()
	s.logger.Debug().Int("fd", fd).Int("woken", n).Msg("registration cancelled")
}

// Run drives the poll loop until ctx is done or Close is called.
// A selector closed before Run was ever called stops cleanly: Run returns nil.
// Running a selector a second time fails.
func (s *Selector) Run(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed && !s.started:
		s.started = true
		s.mu.Unlock()
		return nil
	case s.closed:
		s.mu.Unlock()
		return api.ErrSelectorClosed
	case s.started:
		s.mu.Unlock()
		return api.ErrInvalidState
	}
	s.started = true
	s.mu.Unlock()
	defer close(s.done)

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	if s.cpu >= 0 {
		unpin, err := affinity.Pin(s.cpu)
		defer unpin()
		if err != nil {
			s.logger.Warn().Err(err).Int("cpu", s.cpu).Msg("poll loop not pinned")
		}
	}

	s.logger.Debug().Msg("poll loop started")
	events := make([]readyEvent, s.maxEvents)
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			s.logger.Debug().Msg("poll loop stopped")
			return nil
		}
		timeout := time.Duration(-1)
		if len(s.table) == 0 {
			timeout = s.idle
		}
		s.mu.Unlock()

		n, err := s.poller.wait(events, timeout)
		if err != nil {
			s.logger.Error().Err(err).Msg("poll failed")
			s.fail()
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if n == 0 {
			s.metrics.SpuriousPoll()
			continue
		}
		s.dispatch(events[:n])
	}
}

// dispatch resumes one waiter per ready (descriptor, interest) pair.
func (s *Selector) dispatch(events []readyEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		reg := s.table[ev.fd]
		if reg == nil {
			continue
		}
		for i := api.Interest(0); i < api.InterestCount; i++ {
			if !ev.ready.wakes(i) {
				continue
			}
			if w := reg.dequeue(i); w != nil {
				w.fire(nil)
				s.metrics.SelectorWakeup()
			}
		}
		if err := s.syncMask(reg); err != nil {
			s.logger.Warn().Err(err).Int("fd", ev.fd).Msg("backend update failed")
			s.metrics.SelectorCancelled(reg.drain(err))
			delete(s.table, ev.fd)
		}
	}
	s.publishRegistrations()
}

// fail closes the selector after a fatal backend error, from inside the loop.
func (s *Selector) fail() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.drainAll()
		s.mu.Unlock()
		_ = s.poller.close()
	})
}

// drainAll wakes every waiter with api.ErrSelectorClosed. Must hold s.mu.
func (s *Selector) drainAll() {
	n := 0
	for fd, reg := range s.table {
		n += reg.drain(api.ErrSelectorClosed)
		delete(s.table, fd)
	}
	s.metrics.SelectorCancelled(n)
	s.publishRegistrations()
}

// publishRegistrations reports the change in table size since the last call.
// Must hold s.mu.
func (s *Selector) publishRegistrations() {
	if d := len(s.table) - s.reported; d != 0 {
		s.metrics.AddRegistrations(d)
		s.reported = len(s.table)
	}
}

// Close stops the poll loop, wakes all waiters with api.ErrSelectorClosed
// and releases the backend. It is safe to call more than once.
func (s *Selector) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.drainAll()
		started := s.started
		s.mu.Unlock()

		if started {
			if werr := s.poller.wake(); werr != nil {
				s.logger.Warn().Err(werr).Msg("wake failed")
			}
			<-s.done
		}
		err = s.poller.close()
	})
	return err
}

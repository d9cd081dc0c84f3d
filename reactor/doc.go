// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness selector: one poll loop per worker
// that parks operations on (descriptor, interest) pairs and resumes exactly
// one waiter per pair when the kernel reports readiness.
//
// Registrations live in a per-selector table rather than in global state, so
// cancelling a descriptor is a table removal that wakes its waiters with
// api.ErrClosed. The Linux backend is level-triggered epoll plus an eventfd
// used to interrupt the poll on close; other platforms report
// api.ErrNotSupported.
package reactor

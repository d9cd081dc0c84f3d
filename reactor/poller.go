// File: reactor/poller.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral poll backend contract used by Selector.

package reactor

import (
	"time"

	"github.com/momentics/hioload-net/api"
)

// readiness is the backend-neutral event mask.
type readiness uint8

const (
	readable readiness = 1 << iota
	writable
	// hangup covers error and hang-up conditions; it wakes both directions so
	// the retried syscall can surface the failure.
	hangup
)

// wakes reports whether r resumes waiters parked on interest i.
func (r readiness) wakes(i api.Interest) bool {
	if r&hangup != 0 {
		return true
	}
	if i.Output() {
		return r&writable != 0
	}
	return r&readable != 0
}

// readyEvent is one descriptor reported ready by the backend.
type readyEvent struct {
	fd    int
	ready readiness
}

// poller is the OS readiness facility behind a Selector.
// Only the Selector's poll loop calls wait; the rest is called under the
// Selector lock.
type poller interface {
	add(fd int, mask readiness) error
	modify(fd int, mask readiness) error
	remove(fd int) error
	// wait blocks up to timeout (negative: indefinitely) and fills events.
	// Interrupted waits and wake-ups return (0, nil).
	wait(events []readyEvent, timeout time.Duration) (int, error)
	// wake interrupts a blocked wait.
	wake() error
	close() error
}

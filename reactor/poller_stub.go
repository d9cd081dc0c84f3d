//go:build !linux
// +build !linux

// File: reactor/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"github.com/momentics/hioload-net/api"
)

func newPoller() (poller, error) {
	return nil, api.ErrNotSupported
}

//go:build linux
// +build linux

package reactor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-net/api"
)

func socketPair(t *testing.T) (int, int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

func startEpollSelector(t *testing.T) *Selector {
	t.Helper()
	s, err := New(WithName("epoll-test"), WithIdleTimeout(10*time.Millisecond))
	require.NoError(t, err)
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(context.Background()) }()
	t.Cleanup(func() {
		require.NoError(t, s.Close())
		select {
		case err := <-runErr:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("poll loop did not stop")
		}
	})
	return s
}

func TestEpollSelector_ReadReadiness(t *testing.T) {
	s := startEpollSelector(t)
	a, b := socketPair(t)

	res := selectAsync(s, context.Background(), a, api.InterestRead)
	waitPending(t, s, a, api.InterestRead, 1)
	expectParked(t, res)

	_, err := unix.Write(b, []byte("ping"))
	require.NoError(t, err)
	require.NoError(t, expectResult(t, res))

	buf := make([]byte, 8)
	n, err := unix.Read(a, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))
	require.Eventually(t, func() bool { return s.Registrations() == 0 }, time.Second, time.Millisecond)
}

func TestEpollSelector_WriteReadinessIsImmediate(t *testing.T) {
	s := startEpollSelector(t)
	a, _ := socketPair(t)

	res := selectAsync(s, context.Background(), a, api.InterestWrite)
	require.NoError(t, expectResult(t, res))
}

func TestEpollSelector_PeerCloseWakesReader(t *testing.T) {
	s := startEpollSelector(t)
	a, b := socketPair(t)

	res := selectAsync(s, context.Background(), a, api.InterestRead)
	waitPending(t, s, a, api.InterestRead, 1)

	require.NoError(t, unix.Shutdown(b, unix.SHUT_WR))
	require.NoError(t, expectResult(t, res))
}

func TestEpollSelector_CancelBeforeClose(t *testing.T) {
	s := startEpollSelector(t)
	a, _ := socketPair(t)

	res := selectAsync(s, context.Background(), a, api.InterestRead)
	waitPending(t, s, a, api.InterestRead, 1)

	s.Cancel(a)
	assert.ErrorIs(t, expectResult(t, res), api.ErrClosed)
}

func TestEpollSelector_ClosedDescriptorRejected(t *testing.T) {
	s := startEpollSelector(t)
	err := s.Select(context.Background(), 1<<20, api.InterestRead)
	assert.ErrorIs(t, err, api.ErrInvalid)
	assert.Equal(t, 0, s.Registrations())
}

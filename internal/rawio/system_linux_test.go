//go:build linux

package rawio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
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

func TestSystem_ReadWouldBlockThenCompleted(t *testing.T) {
	a, b := socketPair(t)
	var sys System
	buf := make([]byte, 8)

	assert.Equal(t, WouldBlock, sys.Read(a, buf).Kind)

	res := sys.Write(b, []byte("hello"))
	require.Equal(t, Completed, res.Kind)
	assert.Equal(t, 5, res.N)

	res = sys.Read(a, buf)
	require.Equal(t, Completed, res.Kind)
	assert.Equal(t, "hello", string(buf[:res.N]))
}

func TestSystem_ReadEOF(t *testing.T) {
	a, b := socketPair(t)
	require.NoError(t, unix.Shutdown(b, unix.SHUT_WR))

	res := System{}.Read(a, make([]byte, 4))
	assert.Equal(t, Result{Kind: Completed, N: 0}, res)
}

func TestSystem_ZeroLength(t *testing.T) {
	a, _ := socketPair(t)
	assert.Equal(t, Result{Kind: Completed}, System{}.Read(a, nil))
	assert.Equal(t, Result{Kind: Completed}, System{}.Write(a, nil))
}

func TestSystem_FatalOnClosedDescriptor(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	require.NoError(t, err)
	require.NoError(t, unix.Close(fds[0]))
	defer unix.Close(fds[1])

	res := System{}.Read(fds[0], make([]byte, 4))
	assert.Equal(t, Fatal, res.Kind)
	assert.Equal(t, unix.EBADF, res.Errno)
}

func TestSystem_AcceptWouldBlock(t *testing.T) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	require.NoError(t, err)
	defer unix.Close(fd)
	require.NoError(t, unix.Bind(fd, &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}))
	require.NoError(t, unix.Listen(fd, 8))

	nfd, sa, res := System{}.Accept(fd)
	assert.Equal(t, WouldBlock, res.Kind)
	assert.Equal(t, -1, nfd)
	assert.Nil(t, sa)
}

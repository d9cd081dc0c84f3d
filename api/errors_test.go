package api_test

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-net/api"
)

func TestErrorFromErrno(t *testing.T) {
	cases := []struct {
		errno syscall.Errno
		want  error
	}{
		{syscall.EADDRINUSE, api.ErrAddressInUse},
		{syscall.EMFILE, api.ErrResourceExhausted},
		{syscall.ENFILE, api.ErrResourceExhausted},
		{syscall.ENOBUFS, api.ErrResourceExhausted},
		{syscall.ECONNABORTED, api.ErrConnectionAborted},
		{syscall.ECONNRESET, api.ErrConnectionReset},
		{syscall.EPIPE, api.ErrConnectionReset},
		{syscall.ECONNREFUSED, api.ErrConnectionRefused},
		{syscall.EINTR, api.ErrInterrupted},
		{syscall.ETIMEDOUT, api.ErrTimeout},
		{syscall.EBADF, api.ErrInvalid},
		{syscall.ENOTSOCK, api.ErrInvalid},
	}
	for _, tc := range cases {
		err := api.ErrorFromErrno("accept", tc.errno)
		assert.ErrorIs(t, err, tc.want, tc.errno.Error())
		assert.ErrorIs(t, err, tc.errno, "raw errno stays reachable")
		assert.Equal(t, "accept", err.Op)
	}
}

func TestErrorFromErrno_UnknownKeepsCode(t *testing.T) {
	err := api.ErrorFromErrno("read", syscall.EPROTO)
	assert.Equal(t, api.ErrCodeUnknown, err.Code)
	assert.Equal(t, syscall.EPROTO, err.Errno)
	assert.Contains(t, err.Error(), "read")
	assert.Contains(t, err.Error(), fmt.Sprintf("errno %d", int(syscall.EPROTO)))
}

func TestError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("conn 7: %w", api.ErrorFromErrno("write", syscall.ECONNRESET))
	assert.True(t, errors.Is(wrapped, api.ErrConnectionReset))
	assert.False(t, errors.Is(wrapped, api.ErrClosed))

	// All closed sentinels share one code.
	assert.ErrorIs(t, api.ErrSelectorClosed, api.ErrClosed)
	assert.ErrorIs(t, api.ErrChannelClosed, api.ErrClosed)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, api.ErrCodeOK, api.CodeOf(nil))
	assert.Equal(t, api.ErrCodeUnknown, api.CodeOf(errors.New("foreign")))
	assert.Equal(t, api.ErrCodeInvalidState, api.CodeOf(fmt.Errorf("x: %w", api.ErrInvalidState)))
	assert.Equal(t, "resource_exhausted", api.ErrCodeResourceExhausted.String())
}

func TestIsListenerFatal(t *testing.T) {
	assert.True(t, api.IsListenerFatal(api.ErrClosed))
	assert.True(t, api.IsListenerFatal(api.ErrorFromErrno("accept", syscall.EBADF)))
	assert.False(t, api.IsListenerFatal(api.ErrorFromErrno("accept", syscall.ECONNABORTED)))
	assert.False(t, api.IsListenerFatal(api.ErrorFromErrno("accept", syscall.EMFILE)))
	assert.False(t, api.IsListenerFatal(api.ErrorFromErrno("accept", syscall.EPROTO)))
}

func TestError_WithContext(t *testing.T) {
	err := api.NewError(api.ErrCodeInvalid, "bad address").WithContext("address", "x")
	assert.Contains(t, err.Error(), "address")
}

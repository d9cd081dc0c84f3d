// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by the selector, sockets and channels.
// Transient conditions (would-block, EINTR) never leave the socket layer;
// everything else is surfaced as *Error and matched with errors.Is.

package api

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeClosed
	ErrCodeConnectionAborted
	ErrCodeConnectionReset
	ErrCodeConnectionRefused
	ErrCodeAddressInUse
	ErrCodeResourceExhausted
	ErrCodeInvalidState
	ErrCodeInvalid
	ErrCodeInterrupted
	ErrCodeTimeout
	ErrCodeNotSupported
	ErrCodeUnknown
)

var codeNames = [...]string{
	ErrCodeOK:                "ok",
	ErrCodeClosed:            "closed",
	ErrCodeConnectionAborted: "connection_aborted",
	ErrCodeConnectionReset:   "connection_reset",
	ErrCodeConnectionRefused: "connection_refused",
	ErrCodeAddressInUse:      "address_in_use",
	ErrCodeResourceExhausted: "resource_exhausted",
	ErrCodeInvalidState:      "invalid_state",
	ErrCodeInvalid:           "invalid",
	ErrCodeInterrupted:       "interrupted",
	ErrCodeTimeout:           "timeout",
	ErrCodeNotSupported:      "not_supported",
	ErrCodeUnknown:           "unknown",
}

// String returns the snake_case name used in logs and metric labels.
func (c ErrorCode) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Op      string        // operation that failed: "accept", "read", "connect", ...
	Errno   syscall.Errno // raw OS code, zero when the error did not come from a syscall
	Message string
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Errno != 0 {
		msg = fmt.Sprintf("%s (errno %d: %s)", msg, int(e.Errno), e.Errno.Error())
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Is matches any *Error carrying the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Unwrap exposes the raw errno so callers can still test for e.g. syscall.EMFILE.
func (e *Error) Unwrap() error {
	if e.Errno == 0 {
		return nil
	}
	return e.Errno
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Common errors used across the library.
var (
	ErrClosed            = NewError(ErrCodeClosed, "use of closed descriptor")
	ErrChannelClosed     = NewError(ErrCodeClosed, "channel closed for write")
	ErrSelectorClosed    = NewError(ErrCodeClosed, "selector closed")
	ErrConnectionAborted = NewError(ErrCodeConnectionAborted, "connection aborted")
	ErrConnectionReset   = NewError(ErrCodeConnectionReset, "connection reset by peer")
	ErrConnectionRefused = NewError(ErrCodeConnectionRefused, "connection refused")
	ErrAddressInUse      = NewError(ErrCodeAddressInUse, "address already in use")
	ErrResourceExhausted = NewError(ErrCodeResourceExhausted, "resource exhausted")
	ErrInvalidState      = NewError(ErrCodeInvalidState, "operation not permitted in current socket state")
	ErrInvalid           = NewError(ErrCodeInvalid, "invalid descriptor or argument")
	ErrInterrupted       = NewError(ErrCodeInterrupted, "interrupted system call")
	ErrTimeout           = NewError(ErrCodeTimeout, "operation timeout")
	ErrNotSupported      = NewError(ErrCodeNotSupported, "operation not supported")
)

// ErrorFromErrno maps an OS error number onto the taxonomy.
func ErrorFromErrno(op string, errno syscall.Errno) *Error {
	code, msg := classifyErrno(errno)
	return &Error{Code: code, Op: op, Errno: errno, Message: msg}
}

func classifyErrno(errno syscall.Errno) (ErrorCode, string) {
	switch errno {
	case syscall.EADDRINUSE:
		return ErrCodeAddressInUse, "address already in use"
	case syscall.EADDRNOTAVAIL:
		return ErrCodeInvalid, "address not available"
	case syscall.EMFILE:
		return ErrCodeResourceExhausted, "process descriptor table is full"
	case syscall.ENFILE:
		return ErrCodeResourceExhausted, "system descriptor table is full"
	case syscall.ENOMEM, syscall.ENOBUFS:
		return ErrCodeResourceExhausted, "out of memory"
	case syscall.ECONNABORTED:
		return ErrCodeConnectionAborted, "connection aborted"
	case syscall.ECONNRESET, syscall.EPIPE:
		return ErrCodeConnectionReset, "connection reset by peer"
	case syscall.ECONNREFUSED:
		return ErrCodeConnectionRefused, "connection refused"
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout, "connection timed out"
	case syscall.EINTR:
		return ErrCodeInterrupted, "interrupted by signal"
	case syscall.EBADF:
		return ErrCodeInvalid, "descriptor invalid"
	case syscall.EFAULT:
		return ErrCodeInvalid, "address is not writable part of user address space"
	case syscall.EINVAL:
		return ErrCodeInvalid, "socket is unwilling to accept"
	case syscall.ENOTSOCK:
		return ErrCodeInvalid, "descriptor is not a socket"
	case syscall.EOPNOTSUPP:
		return ErrCodeInvalid, "not a stream socket"
	}
	return ErrCodeUnknown, "unknown error"
}

// CodeOf extracts the taxonomy code of err, ErrCodeUnknown for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

// IsListenerFatal reports whether an accept error means the listening
// descriptor itself can no longer be used.
func IsListenerFatal(err error) bool {
	switch CodeOf(err) {
	case ErrCodeClosed, ErrCodeInvalid:
		return true
	}
	return false
}

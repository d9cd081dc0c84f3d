// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are
// located in separate files guarded by build tags.

package affinity

import "runtime"

// SetAffinity pins the current OS thread to a given logical CPU on supported
// platforms. On unsupported platforms it returns an error.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// Pin locks the calling goroutine to its OS thread and pins that thread to
// cpuID. The returned function undoes the lock; it is valid even when the
// pinning itself failed.
func Pin(cpuID int) (unpin func(), err error) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread, SetAffinity(cpuID)
}

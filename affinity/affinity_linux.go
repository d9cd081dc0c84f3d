//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-net/api"
)

// maxCPU is the number of CPUs a unix.CPUSet can describe.
const maxCPU = len(unix.CPUSet{}) * 64

// setAffinityPlatform sets the calling thread's affinity to a given CPU.
func setAffinityPlatform(cpuID int) error {
	if cpuID < 0 || cpuID >= maxCPU {
		return api.NewError(api.ErrCodeInvalid, "cpu out of range").WithContext("cpu", cpuID)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		if errno, ok := err.(syscall.Errno); ok {
			return api.ErrorFromErrno("sched_setaffinity", errno)
		}
		return err
	}
	return nil
}

//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux platform probes: CPU count and open descriptor usage.

package control

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/process"
)

// RegisterPlatformProbes sets Linux-specific debug metrics.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return
	}
	dp.RegisterProbe("process.open_fds", func() any {
		n, err := proc.NumFDs()
		if err != nil {
			return -1
		}
		return n
	})
}

//go:build linux
// +build linux

// File: internal/affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation of thread CPU pinning via sched_setaffinity.

package affinity

import "golang.org/x/sys/unix"

// pinPlatform sets the calling thread's affinity mask to the single
// CPU cpuID, using the same golang.org/x/sys/unix dependency the rest
// of the daemon already relies on rather than cgo.
func pinPlatform(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	return unix.SchedSetaffinity(0, &set)
}

//go:build !linux && !windows
// +build !linux,!windows

// File: internal/affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub for platforms without a pinning implementation.

package affinity

import "errors"

func pinPlatform(cpuID int) error {
	return errors.New("affinity: not supported on this platform")
}

// File: internal/affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for pinning the calling OS thread to one CPU
// core. The multiplexor loop is single-threaded and cooperative (spec
// §5): pinning it to a fixed core keeps poll(2) wait/fire timing free
// of cross-core migration jitter, which matters for the reconnect
// back-off and reset-watchdog timers tpoll drives off the same clock.
// Platform-specific implementations live in separate files guarded by
// build tags.
package affinity

import "runtime"

// Pin pins the calling OS thread to cpuID. It does not lock the
// goroutine to that thread: the caller must already have called
// runtime.LockOSThread, since affinity is a thread property, not a
// goroutine property.
func Pin(cpuID int) error {
	return pinPlatform(cpuID)
}

// ValidIndex clamps a configured CPU index against runtime.NumCPU(),
// falling back to core 0 if the configured value is out of range —
// an operator typo in cpuAffinity should degrade to "pin to core 0",
// never panic the daemon at startup.
func ValidIndex(requested int) int {
	maxCPUs := runtime.NumCPU()
	if maxCPUs < 1 || requested < 0 || requested >= maxCPUs {
		return 0
	}
	return requested
}

// File: internal/tpoll/global.go
// Global holds the process-wide tpoll handle (spec §6/§9's tp_global):
// a single lazily-initialized service so timer-scheduling helpers
// (timestamp scheduler, reset watchdog) need not thread a *Poll through
// every call site. Init/Teardown are each called exactly once from the
// main setup/shutdown path.
//
// Author: momentics <momentics@gmail.com>
package tpoll

var global *Poll

// Init installs the process-wide tpoll instance.
func Init(p *Poll) { global = p }

// Global returns the process-wide instance, or nil before Init/after Teardown.
func Global() *Poll { return global }

// Teardown clears the process-wide handle.
func Teardown() { global = nil }

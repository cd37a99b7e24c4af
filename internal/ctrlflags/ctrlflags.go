// Package ctrlflags implements the daemon's signal/control plane: the
// two word-sized atomic flags (done, reconfig) and a self-pipe that
// feeds the same readiness wait the multiplexor already blocks on,
// per spec §9 ("Signal handlers... Replace with a self-pipe or
// signal-fd pattern feeding the same tpoll wait").
//
// Only this package's signal handler and the SIGCHLD reaper run outside
// the loop thread; both are restricted to async-signal-safe operations.
//
// Author: momentics <momentics@gmail.com>
package ctrlflags

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Flags holds the process-wide control state. There is exactly one
// instance, constructed by New and owned by the main setup path, mirroring
// tp_global's single lazily-initialized lifecycle (spec §9).
type Flags struct {
	done     atomic.Bool
	reconfig atomic.Bool

	selfPipeR *os.File
	selfPipeW *os.File

	sigCh chan os.Signal
}

// New creates the control plane and installs signal handlers for
// SIGINT/SIGTERM (orderly exit), SIGHUP (reconfig), SIGCHLD (reap) and
// ignores SIGPIPE, matching spec §6's CLI surface.
func New() (*Flags, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(int(r.Fd()), true); err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(int(w.Fd()), true); err != nil {
		return nil, err
	}

	f := &Flags{
		selfPipeR: r,
		selfPipeW: w,
		sigCh:     make(chan os.Signal, 8),
	}

	signal.Notify(f.sigCh,
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP,
		syscall.SIGCHLD, syscall.SIGPIPE)

	go f.dispatch()

	return f, nil
}

// dispatch runs in its own goroutine and only ever performs atomic
// writes and a best-effort pipe kick, exactly as an async-signal-safe
// C handler would; it never touches object state or buffers.
func (f *Flags) dispatch() {
	for sig := range f.sigCh {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			f.done.Store(true)
		case syscall.SIGHUP:
			f.reconfig.Store(true)
		case syscall.SIGCHLD:
			reapChildren()
		case syscall.SIGPIPE:
			// ignored, as in server.c's posix_signal(SIGPIPE, SIG_IGN)
			continue
		}
		f.kick()
	}
}

// kick writes a single byte to the self-pipe so a blocked tpoll.Wait
// returns promptly instead of riding out its full timeout.
func (f *Flags) kick() {
	_, _ = f.selfPipeW.Write([]byte{0})
}

// ReadFD returns the read end of the self-pipe for registration with
// tpoll as an always-readable interest.
func (f *Flags) ReadFD() int {
	return int(f.selfPipeR.Fd())
}

// Drain consumes any pending self-pipe bytes; called once per tick
// after the fd the self-pipe is registered under reports readable.
func (f *Flags) Drain() {
	var buf [64]byte
	for {
		n, err := f.selfPipeR.Read(buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Done reports whether an orderly shutdown has been requested.
func (f *Flags) Done() bool { return f.done.Load() }

// Reconfig reports and is not cleared here; the loop clears it after
// completing the SIGHUP reopen path (spec §4.E step 1).
func (f *Flags) Reconfig() bool { return f.reconfig.Load() }

// ClearReconfig is called by the loop once the reopen cycle completes.
func (f *Flags) ClearReconfig() { f.reconfig.Store(false) }

// RequestShutdown lets the daemon shut itself down programmatically
// (used by tests and by an administrative control surface).
func (f *Flags) RequestShutdown() {
	f.done.Store(true)
	f.kick()
}

// Close releases the self-pipe and stops signal delivery.
func (f *Flags) Close() {
	signal.Stop(f.sigCh)
	close(f.sigCh)
	_ = f.selfPipeR.Close()
	_ = f.selfPipeW.Close()
}

// reapChildren performs a non-blocking wait-any loop, collecting every
// terminated child (reset-command subshells) so none become zombies
// (spec §8 property 5). Async-signal-safe: only a syscall, no logging.
func reapChildren() {
	var ws unix.WaitStatus
	for {
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG, nil)
		if pid <= 0 || err != nil {
			return
		}
	}
}

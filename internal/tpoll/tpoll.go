// Package tpoll implements the unified readiness-and-timer service of
// spec.md §4.B: fd interest bits and a timer list share one wait call,
// so timestamp scheduling, telnet reconnect back-off, and reset-command
// watchdogs need no separate thread.
//
// Grounded on the teacher's reactor/reactor_linux.go, which drives
// golang.org/x/sys/unix directly for epoll. tpoll uses the same
// dependency but calls unix.Poll instead of epoll: spec §4.B's
// zero_fds/set/is_set contract rebuilds the entire interest set every
// tick (it has no notion of a sticky kernel-side registration), which
// maps directly onto poll(2)'s per-call pollfd slice and not onto
// epoll's add/mod/del registration model.
//
// Author: momentics <momentics@gmail.com>
package tpoll

import (
	"sort"
	"time"

	"golang.org/x/sys/unix"
)

// Events is a bitmask of readiness conditions, matching POLLIN/POLLOUT.
type Events int16

const (
	Readable Events = unix.POLLIN
	Writable Events = unix.POLLOUT
	// ErrOrHup covers POLLERR/POLLHUP: a socket or serial line dropped
	// out from under the caller without ever reporting POLLIN, so the
	// dispatch loop must still route it through a read to learn why.
	ErrOrHup Events = unix.POLLERR | unix.POLLHUP
)

// Callback is invoked from the main loop once its timer's deadline has
// passed, per spec §4.B: "never from signal context".
type Callback func(arg any)

type timer struct {
	id       uint64
	deadline time.Time
	cb       Callback
	arg      any
	valid    bool
}

// Poll is one tpoll instance. The zero value is not usable; use New.
type Poll struct {
	interest map[int]Events
	revents  map[int]Events

	timers   []*timer
	byID     map[uint64]*timer
	nextID   uint64
}

// New constructs an empty tpoll instance.
func New() *Poll {
	return &Poll{
		interest: make(map[int]Events),
		revents:  make(map[int]Events),
		byID:     make(map[uint64]*timer),
	}
}

// ZeroFDs clears all fd interest for this tick; timers are untouched,
// per spec §4.B.
func (p *Poll) ZeroFDs() {
	for fd := range p.interest {
		delete(p.interest, fd)
	}
}

// Set unions events into fd's interest set for this tick.
func (p *Poll) Set(fd int, events Events) {
	if fd < 0 {
		return
	}
	p.interest[fd] |= events
}

// IsSet reports whether any of events fired on fd during the last Wait.
func (p *Poll) IsSet(fd int, events Events) bool {
	return p.revents[fd]&events != 0
}

// Wait blocks until an interest fd is ready, the next timer's deadline
// elapses, or timeoutMs passes, then fires every expired timer in
// deadline order (ties broken by insertion order, i.e. ascending id).
// It returns the number of fds reported ready by the kernel. A
// unix.EINTR is surfaced as an error so the caller can re-check its
// control flags and retry, per spec §4.B.
func (p *Poll) Wait(timeoutMs int) (int, error) {
	if d, ok := p.nextDeadline(); ok {
		if ms := int(time.Until(d).Milliseconds()); ms < timeoutMs {
			if ms < 0 {
				ms = 0
			}
			timeoutMs = ms
		}
	}

	fds := make([]unix.PollFd, 0, len(p.interest))
	index := make([]int, 0, len(p.interest))
	for fd, ev := range p.interest {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: int16(ev)})
		index = append(index, fd)
	}

	n, err := unix.Poll(fds, timeoutMs)

	for fd := range p.revents {
		delete(p.revents, fd)
	}
	if err == nil {
		for i, pfd := range fds {
			if pfd.Revents != 0 {
				p.revents[index[i]] = Events(pfd.Revents)
			}
		}
	}

	p.fireExpired()

	if err == unix.EINTR {
		return 0, err
	}
	return n, err
}

// fireExpired dispatches every timer whose deadline has passed, in
// deadline order. Wait calls it after capturing revents and before
// returning, so timer callbacks run before the loop's fd dispatch for
// that tick, not after it; the loop then dispatches fd readiness from
// the revents already captured.
func (p *Poll) fireExpired() {
	now := time.Now()
	sort.SliceStable(p.timers, func(i, j int) bool {
		return p.timers[i].deadline.Before(p.timers[j].deadline)
	})
	var remaining []*timer
	for _, t := range p.timers {
		if !t.valid {
			delete(p.byID, t.id)
			continue
		}
		if t.deadline.After(now) {
			remaining = append(remaining, t)
			continue
		}
		delete(p.byID, t.id)
		t.cb(t.arg)
	}
	p.timers = remaining
}

func (p *Poll) nextDeadline() (time.Time, bool) {
	var best time.Time
	found := false
	for _, t := range p.timers {
		if !t.valid {
			continue
		}
		if !found || t.deadline.Before(best) {
			best, found = t.deadline, true
		}
	}
	return best, found
}

// TimerAbsolute schedules cb(arg) to fire at deadline.
func (p *Poll) TimerAbsolute(deadline time.Time, cb Callback, arg any) uint64 {
	p.nextID++
	t := &timer{id: p.nextID, deadline: deadline, cb: cb, arg: arg, valid: true}
	p.timers = append(p.timers, t)
	p.byID[t.id] = t
	return t.id
}

// TimerRelative schedules cb(arg) to fire after delay.
func (p *Poll) TimerRelative(delay time.Duration, cb Callback, arg any) uint64 {
	return p.TimerAbsolute(time.Now().Add(delay), cb, arg)
}

// TimerCancel is best-effort: a race with firing is resolved by the
// validity bit, per spec §4.B.
func (p *Poll) TimerCancel(id uint64) {
	if t, ok := p.byID[id]; ok {
		t.valid = false
	}
}

// PendingTimers reports how many timers are still armed (tests only).
func (p *Poll) PendingTimers() int {
	return len(p.byID)
}

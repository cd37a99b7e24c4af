// Package timestamp implements the timestamp scheduler of spec.md §4.F:
// on a configurable cadence, write a timestamp line into every
// logfile's output buffer; the next deadline is computed from the
// intended previous deadline so timer-firing skew does not accumulate.
//
// Author: momentics <momentics@gmail.com>
package timestamp

import (
	"time"

	"github.com/momentics/consoled/internal/obj"
	"github.com/momentics/consoled/internal/tpoll"
)

const (
	msgPrefix = "conman-like console service, "
	msgSuffix = ""
)

// Scheduler owns the cadence and the registry it stamps.
type Scheduler struct {
	minutes int
	reg     *obj.Registry
	next    time.Time
}

// New constructs a scheduler for the given cadence in minutes. minutes
// must be > 0; callers should not construct a Scheduler otherwise
// (tStampMinutes == 0 means the feature is disabled, per spec §6).
func New(reg *obj.Registry, minutes int) *Scheduler {
	return &Scheduler{minutes: minutes, reg: reg}
}

// Start computes the first deadline as the next wall-clock instant that
// is a multiple of `minutes` minutes past local midnight, and arms the
// first timer (spec §4.F).
func (s *Scheduler) Start() {
	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	elapsed := int(now.Sub(midnight).Minutes())
	completed := elapsed / s.minutes
	s.next = midnight.Add(time.Duration(completed+1) * time.Duration(s.minutes) * time.Minute)
	s.arm()
}

// arm schedules exactly one absolute timer for s.next; the timer id is
// not retained because, per spec §4.F, it is never canceled.
func (s *Scheduler) arm() {
	tp := tpoll.Global()
	if tp == nil {
		return
	}
	tp.TimerAbsolute(s.next, func(any) { s.fire() }, nil)
}

// fire writes a timestamp line to every logfile object's output buffer,
// then reschedules from the previous intended deadline, never from
// "now" — this is what keeps timer-jitter from accumulating drift
// (spec §4.F, §8 property 4).
func (s *Scheduler) fire() {
	now := s.next
	line := longTimeString(now)
	var gotLogs bool
	for _, o := range s.reg.All() {
		if o.Kind != obj.KindLogfile {
			continue
		}
		console := s.reg.Get(o.Logfile.ConsoleID)
		name := o.Name
		if console != nil {
			name = console.Name
		}
		msg := msgPrefix + "Console [" + name + "] log at " + line + msgSuffix + "\r\n"
		o.Out.Enqueue(o.Name, []byte(msg))
		gotLogs = true
	}

	s.next = s.next.Add(time.Duration(s.minutes) * time.Minute)
	if gotLogs {
		s.arm()
	}
}

func longTimeString(t time.Time) string {
	return t.Format("Mon Jan  2 15:04:05 2006")
}

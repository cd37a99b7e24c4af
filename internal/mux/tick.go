// File: internal/mux/tick.go
// One iteration of the multiplexor loop, implementing spec.md §4.E's
// eight-step contract verbatim.
//
// Author: momentics <momentics@gmail.com>
package mux

import (
	"os"
	"runtime"

	"github.com/momentics/consoled/internal/affinity"
	"github.com/momentics/consoled/internal/config"
	"github.com/momentics/consoled/internal/engine"
	"github.com/momentics/consoled/internal/logfile"
	"github.com/momentics/consoled/internal/logging"
	"github.com/momentics/consoled/internal/obj"
	"github.com/momentics/consoled/internal/reset"
	"github.com/momentics/consoled/internal/telnet"
	"github.com/momentics/consoled/internal/tpoll"
)

// Run executes the multiplexor loop until flags.Done(). It is the
// heart of the daemon (spec §4.E).
func (l *Loop) Run() {
	if l.cfg.CPUAffinity >= 0 {
		runtime.LockOSThread()
		cpu := affinity.ValidIndex(l.cfg.CPUAffinity)
		if err := affinity.Pin(cpu); err != nil {
			logging.Warningf("unable to pin loop thread to cpu %d: %v", cpu, err)
		}
	}

	selfPipeFD := l.flags.ReadFD()

	for !l.flags.Done() {
		// Step 1: SIGHUP reopen path.
		if l.flags.Reconfig() {
			l.reopenLogfiles()
			l.flags.ClearReconfig()
		}

		l.drainPromotions()

		// Step 2: zero interest, register listener + self-pipe.
		l.tp.ZeroFDs()
		l.tp.Set(l.listenerFD, tpoll.Readable)
		l.tp.Set(selfPipeFD, tpoll.Readable)

		// Step 3: register interest for every live object.
		for _, o := range l.reg.All() {
			if o.GotReset {
				reset.Run(o, l.cfg.ResetCmd)
			}
			if o.FD < 0 {
				continue
			}
			if (o.Kind == obj.KindTelnet && o.Telnet.State == obj.TelnetUp) ||
				o.Kind == obj.KindSerial || o.Kind == obj.KindClient {
				l.tp.Set(o.FD, tpoll.Readable)
			}
			if (!o.Out.Empty() || o.GotEOF) && !o.Suspended() {
				l.tp.Set(o.FD, tpoll.Writable)
			}
			if o.Kind == obj.KindTelnet && o.Telnet.State == obj.TelnetPending {
				l.tp.Set(o.FD, tpoll.Readable|tpoll.Writable)
			}
		}

		// Step 4/5: wait, retrying on EINTR after re-checking control flags.
		n, err := l.tp.Wait(1000)
		if err != nil {
			continue
		}
		if n <= 0 {
			continue
		}

		if l.tp.IsSet(selfPipeFD, tpoll.Readable) {
			l.flags.Drain()
		}

		// Step 6: accept.
		if l.tp.IsSet(l.listenerFD, tpoll.Readable) {
			l.acceptClients()
		}

		l.metrics.Add("ticks", 1)

		// Step 7: dispatch reads before writes, so bytes fan out within the same tick.
		l.dispatch()
	}
}

// dispatch is spec §4.E step 7: for each object, advance a PENDING
// telnet connect, else read then write, reacting to each verdict by
// removing or reconnecting as appropriate. The master list can only be
// mutated here, in the loop thread.
func (l *Loop) dispatch() {
	for _, o := range l.reg.All() {
		if o.FD < 0 {
			continue
		}

		if o.Kind == obj.KindTelnet && o.Telnet.State == obj.TelnetPending &&
			l.tp.IsSet(o.FD, tpoll.Readable|tpoll.Writable) {
			telnet.AdvancePending(o)
			continue
		}

		if l.tp.IsSet(o.FD, tpoll.Readable) || hasErrOrHup(l.tp, o.FD) {
			l.metrics.Add("reads_dispatched", 1)
			if !l.react(o, engine.ReadFromObj(l.reg, o)) {
				continue
			}
			if o.FD < 0 {
				continue
			}
		}

		if l.tp.IsSet(o.FD, tpoll.Writable) {
			l.metrics.Add("writes_dispatched", 1)
			if !l.react(o, engine.WriteToObj(o)) {
				continue
			}
		}
	}
}

func hasErrOrHup(tp *tpoll.Poll, fd int) bool {
	return tp.IsSet(fd, tpoll.ErrOrHup)
}

// react applies a verdict from the engine, returning false if the
// object was destroyed or disconnected and the caller should stop
// processing it for this tick.
func (l *Loop) react(o *obj.Object, v engine.Verdict) bool {
	switch v {
	case engine.VerdictOK:
		return true
	case engine.VerdictReconnect:
		l.metrics.Add("reconnects_scheduled", 1)
		telnet.Disconnect(o)
		return false
	case engine.VerdictDispose:
		l.metrics.Add("objects_disposed", 1)
		l.disposeObject(o)
		return false
	default:
		return true
	}
}

func (l *Loop) disposeObject(o *obj.Object) {
	logging.Noticef("console/client [%s]: removed", o.Name)
	teardown(o)
	l.reg.Remove(o.ID)
}

// reopenLogfiles implements spec §4.E step 1 / server.c's
// reopen_logfiles: reopen every logfile object in append mode (never
// truncating on reconfig), and the daemon logfile.
//
// A reconfig does not resurrect downed serial objects and does not
// reset telnet back-off counters (server.c does neither), and no
// configuration option changes this (see DESIGN.md Open Question).
func (l *Loop) reopenLogfiles() {
	for _, o := range l.reg.All() {
		if o.Kind != obj.KindLogfile {
			continue
		}
		if err := logfile.Open(o, false); err != nil {
			logging.Warningf("reopen logfile [%s]: %v", o.Name, err)
		}
	}
	if l.cfg.LogFileName != "" {
		f, err := os.OpenFile(l.cfg.LogFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logging.Warningf("reopen log file %s: %v", l.cfg.LogFileName, err)
		} else {
			logging.SetOutput(f, config.LevelFromString(l.cfg.LogFileLevel))
		}
	}
	logging.Noticef("performing reconfig")
}

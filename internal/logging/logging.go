// Package logging provides a small leveled logger used throughout the
// daemon. Signal handlers must never call into this package except
// through EnqueueAsyncSafe, which only performs an atomic counter bump.
//
// Author: momentics <momentics@gmail.com>
package logging

import (
	"fmt"
	"log"
	"log/syslog"
	"os"
	"sync"
	"sync/atomic"
)

// Level orders the severities from spec §6.
type Level int

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Notice:
		return "notice"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Logger is a mutex-guarded sink with a minimum level and an optional
// syslog writer. It mirrors the teacher's hand-rolled registry style
// (control.ConfigStore, control.MetricsRegistry): plain struct state
// behind a RWMutex, no third-party logging framework.
type Logger struct {
	mu       sync.RWMutex
	min      Level
	out      *log.Logger
	sys      *syslog.Writer
	dropped  atomic.Int64 // signal-context messages coalesced, never logged directly
}

var std = New(Info, os.Stderr)

// New constructs a Logger writing to w, filtering below min.
func New(min Level, w *os.File) *Logger {
	return &Logger{min: min, out: log.New(w, "", log.LstdFlags)}
}

// SetOutput redirects the standard logger, used by the SIGHUP reopen path.
func SetOutput(w *os.File, min Level) {
	std.mu.Lock()
	defer std.mu.Unlock()
	std.out = log.New(w, "", log.LstdFlags)
	std.min = min
}

// SetSyslog attaches a syslog sink at the given facility/priority.
func SetSyslog(tag string, priority syslog.Priority) error {
	w, err := syslog.New(priority, tag)
	if err != nil {
		return err
	}
	std.mu.Lock()
	std.sys = w
	std.mu.Unlock()
	return nil
}

// Msg logs at the given level through the process-wide logger.
func Msg(level Level, format string, args ...any) {
	std.msg(level, format, args...)
}

func (l *Logger) msg(level Level, format string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if level < l.min {
		return
	}
	line := fmt.Sprintf(format, args...)
	l.out.Printf("<%s> %s", level, line)
	if l.sys != nil {
		switch level {
		case Debug, Info:
			_ = l.sys.Info(line)
		case Notice:
			_ = l.sys.Notice(line)
		case Warning:
			_ = l.sys.Warning(line)
		case Error:
			_ = l.sys.Err(line)
		}
	}
}

// Debugf, Infof, Noticef, Warningf, Errorf are convenience wrappers.
func Debugf(format string, args ...any)   { Msg(Debug, format, args...) }
func Infof(format string, args ...any)    { Msg(Info, format, args...) }
func Noticef(format string, args ...any)  { Msg(Notice, format, args...) }
func Warningf(format string, args ...any) { Msg(Warning, format, args...) }
func Errorf(format string, args ...any)   { Msg(Error, format, args...) }

// EnqueueAsyncSafe is the only entry point safe to call from signal
// context: it records the event with an atomic counter bump and never
// formats or writes anything.
func EnqueueAsyncSafe() { std.dropped.Add(1) }

// Fatalf logs at error level and terminates the process. Reserved for
// the startup-fatal error class of spec §7.
func Fatalf(format string, args ...any) {
	Msg(Error, format, args...)
	os.Exit(1)
}

// OverrunTracker suppresses repeated buffer-overrun warnings within a
// single burst (spec §4.A / §7: "warning logged once per overrun
// burst"). A burst ends when Reset is called after the object drains.
type OverrunTracker struct {
	warned atomic.Bool
}

// Warn logs once per burst and is a no-op on subsequent calls until Reset.
func (t *OverrunTracker) Warn(objName string, dropped int) {
	if t.warned.CompareAndSwap(false, true) {
		Warningf("console [%s]: output buffer overrun, dropped %d bytes", objName, dropped)
	}
}

// Reset re-arms the tracker once the object's buffer has drained.
func (t *OverrunTracker) Reset() {
	t.warned.Store(false)
}

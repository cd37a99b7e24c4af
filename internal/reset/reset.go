// Package reset implements the reset-subprocess supervisor of
// spec.md §4.F: fork a process-group leader that execs
// "/bin/sh -c <expanded-cmd>" with std{in,out,err} attached to
// /dev/null (os/exec's handling of a nil Stdin/Stdout/Stderr; the
// descriptors are not closed), and arm a
// watchdog timer that SIGKILLs the entire process group if the command
// overruns its time limit.
//
// This deliberately stays on os/exec plus syscall.SysProcAttr rather
// than any higher-level subprocess library: spec §9 calls out that the
// reset command "is not a candidate for any high-level subprocess
// abstraction that buffers output", and no pack example offers a
// process-group-aware supervisor — os/exec's Start (not Output/Run) is
// the non-buffering primitive the standard library itself provides for
// exactly this, composed with syscall.SysProcAttr{Setpgid: true} for
// the process-group trick server.c relies on.
//
// Author: momentics <momentics@gmail.com>
package reset

import (
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/consoled/internal/logging"
	"github.com/momentics/consoled/internal/obj"
	"github.com/momentics/consoled/internal/tpoll"
)

// TimeoutSeconds is RESET_CMD_TIMEOUT from server.c.
var TimeoutSeconds = 30

// ExpandCmd expands %N (console name) in the reset command template,
// mirroring logfile.ExpandTemplate's %N handling for format_obj_string.
func ExpandCmd(tmpl string, consoleName string) string {
	return strings.ReplaceAll(tmpl, "%N", consoleName)
}

// Run forks the reset command for console, arms the watchdog, and
// clears GotReset. It does not block: the subshell's lifetime is
// supervised entirely via the watchdog timer and the SIGCHLD reaper
// (internal/ctrlflags), matching spec §5's "every other operation is
// non-blocking by construction".
func Run(console *obj.Object, cmdTmpl string) {
	console.GotReset = false
	cmd := ExpandCmd(cmdTmpl, console.Name)

	c := exec.Command("/bin/sh", "-c", cmd)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := c.Start(); err != nil {
		logging.Noticef("console [%s]: unable to reset: %v", console.Name, err)
		return
	}
	pid := c.Process.Pid

	// Both the exec'd child (via SysProcAttr.Setpgid) and the parent
	// call setpgid; one call is redundant but together they close the
	// race window server.c's comment (APUE 9.4) warns about.
	_ = unix.Setpgid(pid, pid)

	logging.Infof("console [%s]: reset command pid=%d started", console.Name, pid)

	tp := tpoll.Global()
	if tp == nil {
		return
	}
	console.Process.PID = pid
	console.Process.DeadlineMonotonic = time.Now().Add(time.Duration(TimeoutSeconds) * time.Second)
	console.Process.WatchdogTimerID = tp.TimerRelative(
		time.Duration(TimeoutSeconds)*time.Second,
		func(arg any) { watchdogFire(arg.(int), console.Name) },
		pid,
	)
}

// watchdogFire SIGKILLs the entire process group if pid is still
// running, so runaway descendants are reaped too (spec §4.F, §8
// property 5/scenario 6).
func watchdogFire(pid int, consoleName string) {
	if err := unix.Kill(pid, 0); err != nil {
		return // process already gone
	}
	if err := unix.Kill(-pid, syscall.SIGKILL); err == nil {
		logging.Noticef("console [%s]: reset command pid=%d exceeded %ds time limit",
			consoleName, pid, TimeoutSeconds)
	}
}

// File: internal/telnet/connect.go
// Opener/Connector for telnet consoles (spec.md §4.C): non-blocking
// connect, PENDING -> UP/DOWN transition on the first tick the socket
// reports readable or writable, and bounded exponential reconnect
// back-off reset to the floor on every successful UP transition.
//
// Author: momentics <momentics@gmail.com>
package telnet

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/consoled/internal/logging"
	"github.com/momentics/consoled/internal/obj"
	"github.com/momentics/consoled/internal/tpoll"
)

// BackoffSchedule is the bounded exponential delay schedule of spec §4.C
// and §8 scenario 3: 1s, 2s, 4s, 8s, ... capped at 60s.
var BackoffSchedule = []time.Duration{
	1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
	16 * time.Second, 32 * time.Second, 60 * time.Second,
}

func backoffFor(step int) time.Duration {
	if step < 0 {
		step = 0
	}
	if step >= len(BackoffSchedule) {
		step = len(BackoffSchedule) - 1
	}
	return BackoffSchedule[step]
}

// Connect issues a non-blocking connect and transitions the object to
// TelnetPending. On immediate failure (no route, refused synchronously)
// it schedules a reconnect instead of returning an error, since every
// telnet transient is handled the same way (spec §4.C/§7: "telnet
// connect failed... keep object, schedule reconnect with back-off").
func Connect(o *obj.Object) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		logging.Warningf("console [%s]: socket: %v", o.Name, err)
		ScheduleReconnect(o)
		return
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		ScheduleReconnect(o)
		return
	}
	setCloseOnExec(fd)

	addr, err := resolveIPv4(o.Telnet.Host, o.Telnet.Port)
	if err != nil {
		_ = unix.Close(fd)
		logging.Warningf("console [%s]: resolve %s: %v", o.Name, o.Telnet.Host, err)
		ScheduleReconnect(o)
		return
	}

	err = unix.Connect(fd, addr)
	if err != nil && err != unix.EINPROGRESS {
		_ = unix.Close(fd)
		logging.Warningf("console [%s]: connect: %v", o.Name, err)
		ScheduleReconnect(o)
		return
	}

	o.FD = fd
	o.Telnet.State = obj.TelnetPending
	o.Telnet.IACState = obj.IACState{}
}

// AdvancePending is called once the loop observes the telnet fd ready
// either readable or writable (spec §4.E step 7). It inspects SO_ERROR
// to decide success vs. failure.
func AdvancePending(o *obj.Object) {
	soErr, err := unix.GetsockoptInt(o.FD, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil || soErr != 0 {
		_ = unix.Close(o.FD)
		o.FD = -1
		o.Telnet.State = obj.TelnetDown
		logging.Noticef("console [%s]: connect failed: errno=%d", o.Name, soErr)
		ScheduleReconnect(o)
		return
	}
	o.Telnet.State = obj.TelnetUp
	o.Telnet.BackoffStep = 0
	logging.Infof("console [%s]: connection established to %s:%d",
		o.Name, o.Telnet.Host, o.Telnet.Port)
}

// Disconnect is called when the read/write engine reports a hard error
// or EOF on an UP telnet object: it tears down the fd and schedules
// reconnect rather than disposing of the object, per spec §4.C/§3
// invariant 2.
func Disconnect(o *obj.Object) {
	if o.FD >= 0 {
		_ = unix.Close(o.FD)
	}
	o.FD = -1
	o.Telnet.State = obj.TelnetDown
	o.GotEOF = false
	ScheduleReconnect(o)
}

// ScheduleReconnect arms exactly one reconnect timer (spec §3 invariant
// 2: "at most one outstanding reconnect timer"), canceling any prior
// one first.
func ScheduleReconnect(o *obj.Object) {
	tp := tpoll.Global()
	if tp == nil {
		return
	}
	if o.Telnet.ReconnectID != 0 {
		tp.TimerCancel(o.Telnet.ReconnectID)
	}
	delay := backoffFor(o.Telnet.BackoffStep)
	o.Telnet.BackoffStep++
	o.Telnet.ReconnectID = tp.TimerRelative(delay, func(arg any) {
		target := arg.(*obj.Object)
		target.Telnet.ReconnectID = 0
		Connect(target)
	}, o)
}

func setCloseOnExec(fd int) {
	_, _, _ = unix.Syscall(unix.SYS_FCNTL, uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC)
}

func resolveIPv4(host string, port int) (unix.Sockaddr, error) {
	ips, err := lookupHost(host)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("no address for %s", host)
	}
	var addr [4]byte
	copy(addr[:], ips[0].To4())
	return &unix.SockaddrInet4{Port: port, Addr: addr}, nil
}

// Package mux implements the Multiplexor Loop of spec.md §4.E — the
// heart of the daemon: builds the interest set each tick, calls tpoll,
// dispatches readiness, accepts clients, and reaps dead objects.
//
// Grounded on server.c's mux_io (the C original this spec distills)
// and on the teacher's server/run.go Run() method for the overall
// shape of "register -> poll -> dispatch -> accept -> teardown".
//
// Author: momentics <momentics@gmail.com>
package mux

import (
	"fmt"
	"net"
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/consoled/internal/clientproto"
	"github.com/momentics/consoled/internal/config"
	"github.com/momentics/consoled/internal/ctrlflags"
	"github.com/momentics/consoled/internal/logfile"
	"github.com/momentics/consoled/internal/logging"
	"github.com/momentics/consoled/internal/obj"
	"github.com/momentics/consoled/internal/serial"
	"github.com/momentics/consoled/internal/stats"
	"github.com/momentics/consoled/internal/telnet"
	"github.com/momentics/consoled/internal/timestamp"
	"github.com/momentics/consoled/internal/tpoll"
)

// AccessFilter is the filter-hook stand-in for spec §1's "host-based
// access control" non-goal: invoked from acceptClients with the remote
// address, returning false refuses the connection. The default is a
// no-op that allows everything.
type AccessFilter func(remote net.Addr) bool

// Loop is the multiplexor: the single owner of every Object's state
// and buffers, per spec §5.
type Loop struct {
	cfg   *config.ServerConfig
	reg   *obj.Registry
	tp    *tpoll.Poll
	flags *ctrlflags.Flags

	listenerFD int
	filter     AccessFilter

	ts *timestamp.Scheduler

	metrics *stats.Registry
	probes  *stats.Probes

	// promote holds client-handshake results completed by worker
	// goroutines, drained at the top of each tick (spec §6 external
	// interface: process_client "constructs and appends a client
	// object to the master list" from a worker, but only the loop
	// thread is allowed to mutate the registry — eapache/queue is the
	// teacher's own declared but previously-unwired dependency, wired
	// here as this hand-off FIFO).
	promoteMu sync.Mutex
	promote   *queue.Queue
}

type promotedClient struct {
	conn    net.Conn
	result  clientproto.Result
}

// New builds a Loop from a parsed configuration. It does not open any
// objects or sockets yet; call OpenAll and CreateListenSocket first.
func New(cfg *config.ServerConfig, flags *ctrlflags.Flags) *Loop {
	l := &Loop{
		cfg:        cfg,
		reg:        obj.NewRegistry(),
		tp:         tpoll.New(),
		flags:      flags,
		listenerFD: -1,
		filter:     func(net.Addr) bool { return true },
		promote:    queue.New(),
		metrics:    stats.New(),
		probes:     stats.NewProbes(),
	}
	tpoll.Init(l.tp)
	l.probes.Register("objects", func() any {
		names := make([]string, 0, len(l.reg.All()))
		for _, o := range l.reg.All() {
			names = append(names, o.Kind.String()+":"+o.Name)
		}
		return names
	})
	return l
}

// Stats returns a snapshot of the loop's runtime counters (ticks,
// reads/writes dispatched, objects disposed, reconnects scheduled), for
// an operator or a test to
// inspect without reaching into loop-thread-owned state.
func (l *Loop) Stats() map[string]any { return l.metrics.Snapshot() }

// DebugState evaluates every registered debug probe (currently just
// "objects", a live-object inventory) and returns the results.
func (l *Loop) DebugState() map[string]any { return l.probes.DumpState() }

// SetAccessFilter installs the filter hook described in SPEC_FULL.md's
// TCP-wrappers-equivalent supplement.
func (l *Loop) SetAccessFilter(f AccessFilter) { l.filter = f }

// Registry exposes the object arena, primarily for tests.
func (l *Loop) Registry() *obj.Registry { return l.reg }

// CreateListenSocket creates and binds the listening socket per spec
// §4.C/server.c's create_listen_socket.
func (l *Loop) CreateListenSocket() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("create listen socket: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return err
	}
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)

	addr := unix.SockaddrInet4{Port: l.cfg.Port}
	if l.cfg.EnableLoopBack {
		addr.Addr = [4]byte{127, 0, 0, 1}
	}
	if err := unix.Bind(fd, &addr); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("bind port %d: %w", l.cfg.Port, err)
	}
	if err := unix.Listen(fd, 10); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("listen port %d: %w", l.cfg.Port, err)
	}
	l.listenerFD = fd
	return nil
}

// OpenAll opens every configured object per spec §4.C/server.c's
// open_objs, raising the file-descriptor soft limit first (spec §5
// "File-descriptor budget", SPEC_FULL.md supplement 3).
func (l *Loop) OpenAll() error {
	raiseFDLimit(len(l.cfg.Objects))

	bySelector := make(map[string]obj.ID)

	for _, def := range l.cfg.Objects {
		bufCap := def.BufferSize
		if bufCap == 0 {
			bufCap = l.cfg.DefaultBufferSize
		}

		switch def.Kind {
		case "serial":
			o := l.reg.Add(def.Name, obj.KindSerial, bufCap)
			o.Serial = obj.SerialAux{Device: def.Device, Baud: def.Baud, DataBits: def.DataBits, Parity: def.Parity, FlowCtl: def.FlowCtl}
			if err := serial.Open(o); err != nil {
				logging.Warningf("console [%s]: %v", o.Name, err)
			}
			bySelector[def.Name] = o.ID

		case "telnet":
			o := l.reg.Add(def.Name, obj.KindTelnet, bufCap)
			o.Telnet = obj.TelnetAux{Host: def.Host, Port: def.Port, State: obj.TelnetDown}
			telnet.Connect(o)
			bySelector[def.Name] = o.ID

		case "logfile":
			o := l.reg.Add(def.Name+".log", obj.KindLogfile, bufCap)
			o.Logfile = obj.LogfileAux{FilenameTmpl: def.LogFilename, TruncateOnStart: l.cfg.EnableZeroLogs}
			if err := logfile.Open(o, l.cfg.EnableZeroLogs); err != nil {
				logging.Warningf("logfile [%s]: %v", o.Name, err)
				continue
			}
			if consoleID, ok := bySelector[def.Name]; ok {
				o.Logfile.ConsoleID = consoleID
				l.reg.Link(consoleID, o.ID)
			}

		default:
			return fmt.Errorf("unrecognized object %q: kind=%q", def.Name, def.Kind)
		}
	}

	if l.cfg.TStampMinutes > 0 {
		l.ts = timestamp.New(l.reg, l.cfg.TStampMinutes)
		l.ts.Start()
	}

	return nil
}

func raiseFDLimit(objCount int) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
		logging.Warningf("unable to get the num open file limit: %v", err)
		return
	}
	want := uint64(objCount * 2)
	if limit.Max > want {
		want = limit.Max
	}
	if limit.Cur < want {
		limit.Cur, limit.Max = want, want
		if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &limit); err != nil {
			logging.Errorf("unable to set the num open file limit to %d", want)
		} else {
			logging.Infof("increased the num open file limit to %d", want)
		}
	}
}

// Close tears down every object and the listener, in that order, with
// the listener closed last (spec §5 "Cancellation and timeouts").
func (l *Loop) Close() {
	for _, o := range l.reg.All() {
		teardown(o)
	}
	if l.listenerFD >= 0 {
		_ = unix.Close(l.listenerFD)
		l.listenerFD = -1
	}
	tpoll.Teardown()
}

func teardown(o *obj.Object) {
	if o.FD < 0 {
		return
	}
	switch o.Kind {
	case obj.KindSerial:
		serial.Close(o)
	case obj.KindClient:
		// The descriptor belongs to the client's net.Conn (see fdOf).
		if o.Client.Conn != nil {
			_ = o.Client.Conn.Close()
		} else {
			_ = unix.Close(o.FD)
		}
		o.FD = -1
	default:
		_ = unix.Close(o.FD)
		o.FD = -1
	}
}

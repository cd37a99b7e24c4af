// File: internal/obj/object.go
// Author: momentics <momentics@gmail.com>
package obj

import (
	"net"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the object taxonomy of spec.md §3.
type Kind int

const (
	KindListener Kind = iota
	KindClient
	KindSerial
	KindTelnet
	KindLogfile
	KindProcess
)

func (k Kind) String() string {
	switch k {
	case KindListener:
		return "listener"
	case KindClient:
		return "client"
	case KindSerial:
		return "serial"
	case KindTelnet:
		return "telnet"
	case KindLogfile:
		return "logfile"
	case KindProcess:
		return "process"
	default:
		return "unknown"
	}
}

// TelnetState is the connect-state sub-machine of a telnet object.
type TelnetState int

const (
	TelnetDown TelnetState = iota
	TelnetPending
	TelnetUp
)

// ID is a stable, arena-local identity distinct from the fd (which is
// reused by the kernel once closed). Peer lists reference objects by
// ID, never by pointer equality alone, so identity survives a telnet
// object's fd cycling through DOWN/PENDING/UP (spec §3 invariant 5).
type ID uint64

// SerialAux holds serial-specific auxiliary state (spec §3).
type SerialAux struct {
	Device   string
	Baud     int
	DataBits int
	Parity   string // "N", "E", "O"
	FlowCtl  string // "none", "hardware", "software"
	Saved    any    // *unix.Termios, restored on close
}

// TelnetAux holds telnet-specific auxiliary state.
type TelnetAux struct {
	Host         string
	Port         int
	State        TelnetState
	IACState     IACState
	ReconnectID  uint64 // tpoll timer id of the pending reconnect, 0 if none
	BackoffStep  int    // index into the bounded exponential schedule
}

// LogfileAux holds logfile-specific auxiliary state.
type LogfileAux struct {
	ConsoleID       ID
	FilenameTmpl    string
	TruncateOnStart bool
	PendingStamp    bool
}

// ClientAux holds interactive-client auxiliary state.
type ClientAux struct {
	RemoteAddr string
	SessionID  uuid.UUID
	GotSuspend bool
	Escape     EscapeState

	// Conn keeps the client's net.Conn alive and is used only for
	// Close(); all buffer I/O goes through Object.FD directly via the
	// read/write engine, not through Conn's own Read/Write.
	Conn net.Conn
}

// ProcessAux holds reset-subprocess supervision state.
type ProcessAux struct {
	PID              int
	DeadlineMonotonic time.Time
	WatchdogTimerID  uint64
}

// Object is the central entity of spec.md §3: a named, buffered,
// typed endpoint with reader/writer peer lists.
//
// Object does not embed a mutex: spec §5 states the loop thread is the
// exclusive mutator of object state (besides the two atomic control
// flags, which live in ctrlflags, and a handshake worker's brief,
// pre-handoff ownership of a not-yet-registered client object).
type Object struct {
	ID   ID
	Name string
	Kind Kind

	FD int // -1 when closed / awaiting reconnect

	In  *Ring
	Out *Ring

	GotEOF     bool
	GotReset   bool

	Serial  SerialAux
	Telnet  TelnetAux
	Logfile LogfileAux
	Client  ClientAux
	Process ProcessAux

	// ReaderPeers: objects this object's input is fanned out to.
	// WriterPeers: objects whose input is fanned into this object.
	// Both are non-owning identity references (spec §3 invariant 5,
	// §9 "peer graph is cyclic").
	ReaderPeers []ID
	WriterPeers []ID
}

// New allocates an Object with ring buffers of the given capacity. FD
// starts at -1: per spec invariant §3.1, an object is polled only once
// its opener assigns a real descriptor.
func New(id ID, name string, kind Kind, bufCap int) *Object {
	return &Object{
		ID:   id,
		Name: name,
		Kind: kind,
		FD:   -1,
		In:   NewRing(bufCap),
		Out:  NewRing(bufCap),
	}
}

// IsConsole reports whether the object is a console source (serial or
// telnet), matching server.c's is_console_obj.
func (o *Object) IsConsole() bool {
	return o.Kind == KindSerial || o.Kind == KindTelnet
}

// Suspended reports whether output flow to this object is paused by
// client command (spec §3/§4.E: writable interest is suppressed).
func (o *Object) Suspended() bool {
	return o.Kind == KindClient && o.Client.GotSuspend
}

// Package engine implements the Read/Write Engine of spec.md §4.D: one
// non-blocking read or write per object per tick, peer fan-out subject
// to the ring buffer's overrun policy, and EOF/error disposition.
//
// Author: momentics <momentics@gmail.com>
package engine

import (
	"golang.org/x/sys/unix"

	"github.com/momentics/consoled/internal/clientproto"
	"github.com/momentics/consoled/internal/logging"
	"github.com/momentics/consoled/internal/obj"
	"github.com/momentics/consoled/internal/telnet"
)

// Verdict is the disposition the loop must act on after a read or
// write, per spec §7's propagation policy: the engine only surfaces a
// verdict, the loop is the sole mutator of the master object list.
type Verdict int

const (
	// VerdictOK: keep polling the object as before.
	VerdictOK Verdict = iota
	// VerdictDispose: remove the object from the master list and tear it down.
	VerdictDispose
	// VerdictReconnect: a telnet object hit a hard error; it is retained
	// and the caller (mux) is expected to invoke telnet.Disconnect to
	// begin its back-off cycle rather than destroying the object.
	VerdictReconnect
)

const readChunk = 4096

// ReadFromObj issues one non-blocking read into o's input buffer and
// fans the bytes out to every reader peer, honoring each peer's ring
// buffer overrun policy (spec §4.A/§4.D). Telnet sources are filtered
// through the IAC state machine first; client sources are filtered
// through the escape-character state machine, which can toggle
// suspend/resume or quit the session before any bytes reach the
// attached console.
func ReadFromObj(reg *obj.Registry, o *obj.Object) Verdict {
	var chunk [readChunk]byte
	n, err := unix.Read(o.FD, chunk[:])

	switch {
	case n > 0:
		data := chunk[:n]
		switch o.Kind {
		case obj.KindTelnet:
			var reply []byte
			data = telnet.FilterIAC(&o.Telnet.IACState, data, &reply)
			if len(reply) > 0 {
				o.Out.Enqueue(o.Name, reply)
			}
		case obj.KindClient:
			var cmd clientproto.EscapeCommand
			data, cmd = clientproto.Scan(&o.Client.Escape, data)
			switch cmd {
			case clientproto.EscapeQuit:
				fanOut(reg, o, data)
				return VerdictDispose
			case clientproto.EscapeToggleSuspend:
				o.Client.GotSuspend = !o.Client.GotSuspend
				fanOut(reg, o, data)
				return VerdictOK
			}
		}
		fanOut(reg, o, data)
		return VerdictOK

	case n == 0:
		o.GotEOF = true
		return drainThenClose(o)

	case err == unix.EAGAIN || err == unix.EWOULDBLOCK:
		return VerdictOK

	case err == unix.EINTR:
		return VerdictOK

	default:
		logging.Noticef("console [%s]: read error: %v", o.Name, err)
		return hardError(o)
	}
}

// fanOut copies data into the output buffer of every reader peer
// (source.ReaderPeers, the objects source's input is fanned out to), in
// registration order, so a slow peer never blocks a fast one (spec
// §4.D "Fan-out ordering").
func fanOut(reg *obj.Registry, source *obj.Object, data []byte) {
	for _, id := range source.ReaderPeers {
		peer := reg.Get(id)
		if peer == nil {
			continue
		}
		peer.Out.Enqueue(peer.Name, data)
	}
}

// WriteToObj issues one non-blocking write from o's output buffer. If
// the buffer empties and gotEOF was set by the paired reader, it
// signals dispose (spec §4.D).
func WriteToObj(o *obj.Object) Verdict {
	var chunk [readChunk]byte
	n := o.Out.Peek(chunk[:])
	if n == 0 {
		if o.GotEOF {
			return drainThenClose(o)
		}
		return VerdictOK
	}

	written, err := unix.Write(o.FD, chunk[:n])
	if written > 0 {
		o.Out.Advance(written)
	}

	switch {
	case err == nil || err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR:
		if o.Out.Empty() && o.GotEOF {
			return drainThenClose(o)
		}
		return VerdictOK
	default:
		logging.Noticef("console [%s]: write error: %v", o.Name, err)
		return hardError(o)
	}
}

// drainThenClose implements spec §4.D's EOF handling: the object's
// output drain is still allowed to complete, but once drained (no
// more buffered output) the object should be disposed/reconnected.
// Since output may still be non-empty, the caller re-checks GotEOF
// each subsequent write tick; this function itself only decides
// whether draining is already finished.
func drainThenClose(o *obj.Object) Verdict {
	if !o.Out.Empty() {
		return VerdictOK
	}
	return hardError(o)
}

// hardError returns the verdict appropriate to the object's kind: a
// telnet object is retained and scheduled for reconnect, any other
// kind is disposed (spec §4.C/§7: "a telnet object that flushes its
// buffer after a hard error is retained; a non-telnet object... is
// destroyed").
func hardError(o *obj.Object) Verdict {
	if o.Kind == obj.KindTelnet {
		return VerdictReconnect
	}
	return VerdictDispose
}

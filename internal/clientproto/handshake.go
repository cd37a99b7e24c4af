// Package clientproto implements the client handshake entry point of
// spec.md §6: process_client(sd, conf), invoked per accepted fd from a
// worker goroutine, blocking only on the handshake itself and handing
// a fully built client Object back to the loop before any buffer
// traffic begins (spec §5: "hand the object back to the loop before
// any buffer traffic begins").
//
// The user-facing wire protocol (greeting banner text, console
// selection menu, monitor-vs-write mode negotiation) is explicitly out
// of scope per spec §1; this package implements only the minimal
// handshake needed to produce a populated client Object: read the
// requested console name as a single newline-terminated line, or fall
// back to a sole configured console if there is exactly one.
//
// Author: momentics <momentics@gmail.com>
package clientproto

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/momentics/consoled/internal/obj"
)

// Greeting is the banner sent to a newly accepted client before it
// selects a console. It is plain text and does not carry the
// msgPrefix/msgSuffix framing of internal/timestamp's log lines.
const Greeting = "consoled ready; console name, then newline:\r\n"

// Result carries everything the loop needs to register a client
// Object: its name for the master list, the console it attaches to,
// and whether it was granted write access or read-only monitor mode.
type Result struct {
	ClientName string
	ConsoleName string
	Writable    bool
	SessionID   uuid.UUID
}

// Handshake performs the blocking greeting exchange on sd and resolves
// which console the client wants. It never touches any Object's
// buffers; it returns only enough information for the loop to build
// and wire a new client Object on its own thread (spec §5).
func Handshake(conn net.Conn, soleConsole string, timeout time.Duration) (Result, error) {
	_ = conn.SetDeadline(time.Now().Add(timeout))
	defer conn.SetDeadline(time.Time{})

	if _, err := conn.Write([]byte(Greeting)); err != nil {
		return Result{}, fmt.Errorf("write greeting: %w", err)
	}

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	if err != nil {
		return Result{}, fmt.Errorf("read console selection: %w", err)
	}
	line = strings.TrimSpace(line)

	writable := true
	if strings.HasPrefix(line, "-") {
		writable = false
		line = strings.TrimPrefix(line, "-")
	}
	if line == "" {
		line = soleConsole
	}
	if line == "" {
		return Result{}, fmt.Errorf("no console specified and none configured as default")
	}

	return Result{
		ClientName:  fmt.Sprintf("client:%s", conn.RemoteAddr()),
		ConsoleName: line,
		Writable:    writable,
		SessionID:   uuid.New(),
	}, nil
}

// escapePrefix arms the client's escape-character state machine (spec
// §3's "escape-character state machine", supplementing the distilled
// spec per SPEC_FULL.md); the byte after it selects a command ('.'
// quit, '&' suspend/resume). See Scan.
const escapePrefix = '\x05' // ctrl-E, a conventional conman-style escape prefix

type EscapeCommand int

const (
	EscapeNone EscapeCommand = iota
	EscapeQuit
	EscapeToggleSuspend
)

// Scan consumes in, returning the pass-through bytes plus at most one
// recognized command (the first one found). Scanning stops at that
// command: the bytes of in that follow it are neither returned nor
// kept in st, so they never reach the console.
func Scan(st *obj.EscapeState, in []byte) (passthrough []byte, cmd EscapeCommand) {
	out := make([]byte, 0, len(in))
	for i := 0; i < len(in); i++ {
		b := in[i]
		if st.Armed {
			st.Armed = false
			switch b {
			case '.':
				return out, EscapeQuit
			case '&':
				return out, EscapeToggleSuspend
			case escapePrefix:
				out = append(out, escapePrefix) // escaped literal
			default:
				out = append(out, escapePrefix, b)
			}
			continue
		}
		if b == escapePrefix {
			st.Armed = true
			continue
		}
		out = append(out, b)
	}
	return out, EscapeNone
}

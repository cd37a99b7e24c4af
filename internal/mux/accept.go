// File: internal/mux/accept.go
// accept_client: accepts pending connections on the listening socket
// and hands each to a worker goroutine that performs the blocking
// greeting handshake, matching spec.md §4.E step 6 and §6's
// process_client contract. The worker never touches another object's
// buffers (spec §5) — it only produces a promotedClient, queued for
// the loop thread to turn into a real Object.
//
// Author: momentics <momentics@gmail.com>
package mux

import (
	"fmt"
	"net"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/consoled/internal/clientproto"
	"github.com/momentics/consoled/internal/logging"
	"github.com/momentics/consoled/internal/obj"
)

const handshakeTimeout = 10 * time.Second

// acceptClients accepts as many pending connections as possible,
// non-blocking until EAGAIN, matching server.c's accept_client loop
// and its rationale comment about why accept must happen inside the
// poll loop rather than in the spawned worker.
func (l *Loop) acceptClients() {
	for {
		sd, _, err := unix.Accept(l.listenerFD)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.ECONNABORTED {
				return
			}
			logging.Errorf("unable to accept new connection: %v", err)
			return
		}

		if l.cfg.EnableKeepAlive {
			_ = unix.SetsockoptInt(sd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
		}

		f := os.NewFile(uintptr(sd), "client")
		conn, err := net.FileConn(f)
		// FileConn dups the fd internally, so we close the original
		// regardless of outcome.
		_ = f.Close()
		if err != nil {
			logging.Warningf("unable to wrap accepted fd: %v", err)
			continue
		}

		if !l.filter(conn.RemoteAddr()) {
			_ = conn.Close()
			continue
		}

		go l.handshakeWorker(conn)
	}
}

// handshakeWorker performs the blocking greeting exchange and pushes a
// promotedClient for the loop to drain; it never mutates a registry
// Object directly.
func (l *Loop) handshakeWorker(conn net.Conn) {
	sole := l.soleConsoleName()
	result, err := clientproto.Handshake(conn, sole, handshakeTimeout)
	if err != nil {
		logging.Noticef("client handshake failed: %v", err)
		_ = conn.Close()
		return
	}

	l.promoteMu.Lock()
	l.promote.Add(promotedClient{conn: conn, result: result})
	l.promoteMu.Unlock()
}

func (l *Loop) soleConsoleName() string {
	name := ""
	count := 0
	for _, def := range l.cfg.Objects {
		if def.Kind == "serial" || def.Kind == "telnet" {
			name = def.Name
			count++
		}
	}
	if count == 1 {
		return name
	}
	return ""
}

// drainPromotions turns every queued promotedClient into a live client
// Object, wired to its chosen console. The raw fd is used as is: it is
// already non-blocking, as net.FileConn leaves it. Only the loop thread calls
// this (top of each tick), satisfying spec §3's mutation rule.
func (l *Loop) drainPromotions() {
	l.promoteMu.Lock()
	n := l.promote.Length()
	batch := make([]promotedClient, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, l.promote.Remove().(promotedClient))
	}
	l.promoteMu.Unlock()

	for _, pc := range batch {
		l.promoteOne(pc)
	}
}

func (l *Loop) promoteOne(pc promotedClient) {
	fd, err := fdOf(pc.conn)
	if err != nil {
		logging.Warningf("unable to recover fd for client: %v", err)
		_ = pc.conn.Close()
		return
	}

	consoleID, found := l.reg.FindByName(pc.result.ConsoleName)
	if !found {
		logging.Noticef("client requested unknown console %q", pc.result.ConsoleName)
		_ = pc.conn.Close()
		return
	}

	bufCap := l.cfg.DefaultBufferSize
	client := l.reg.Add(pc.result.ClientName, obj.KindClient, bufCap)
	client.FD = fd
	client.Client.RemoteAddr = pc.conn.RemoteAddr().String()
	client.Client.SessionID = pc.result.SessionID
	client.Client.Conn = pc.conn

	// The console's output fans out to this client...
	l.reg.Link(consoleID, client.ID)
	if pc.result.Writable {
		// ...and, for a read-write session, the client's input fans
		// into the console, giving it write access (spec §1's
		// "read-write session (with cooperative write locking)" —
		// cooperative locking itself is a client-protocol concern
		// out of this spec's scope per §1).
		l.reg.Link(client.ID, consoleID)
	}

	logging.Infof("client %s attached to console [%s] (writable=%v)",
		client.Client.RemoteAddr, pc.result.ConsoleName, pc.result.Writable)
}

// fdOf recovers the underlying file descriptor from conn without
// duplicating it: the descriptor remains owned by conn (closed only
// via conn.Close in teardown), while the read/write engine uses it
// directly through raw syscalls rather than conn's own Read/Write.
func fdOf(conn net.Conn) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return -1, fmt.Errorf("connection does not expose a raw fd")
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	ctrlErr := raw.Control(func(f uintptr) { fd = int(f) })
	if ctrlErr != nil {
		return -1, ctrlErr
	}
	return fd, nil
}

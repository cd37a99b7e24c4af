package clientproto

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/momentics/consoled/internal/obj"
)

func TestHandshakeSelectsRequestedConsole(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	done := make(chan struct{})
	var result Result
	var err error
	go func() {
		result, err = Handshake(serverSide, "", time.Second)
		close(done)
	}()

	r := bufio.NewReader(clientSide)
	if _, rerr := r.ReadString(':'); rerr != nil {
		t.Fatalf("read greeting: %v", rerr)
	}
	if _, werr := clientSide.Write([]byte("console0\n")); werr != nil {
		t.Fatalf("write selection: %v", werr)
	}
	<-done

	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if result.ConsoleName != "console0" || !result.Writable {
		t.Fatalf("result = %+v, want console0/writable", result)
	}
}

func TestHandshakeReadOnlyPrefix(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	done := make(chan struct{})
	var result Result
	go func() {
		result, _ = Handshake(serverSide, "", time.Second)
		close(done)
	}()

	r := bufio.NewReader(clientSide)
	_, _ = r.ReadString(':')
	_, _ = clientSide.Write([]byte("-console0\n"))
	<-done

	if result.Writable {
		t.Fatalf("leading '-' should request read-only (monitor) mode")
	}
}

func TestHandshakeFallsBackToSoleConsole(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()

	done := make(chan struct{})
	var result Result
	go func() {
		result, _ = Handshake(serverSide, "onlyone", time.Second)
		close(done)
	}()

	r := bufio.NewReader(clientSide)
	_, _ = r.ReadString(':')
	_, _ = clientSide.Write([]byte("\n"))
	<-done

	if result.ConsoleName != "onlyone" {
		t.Fatalf("ConsoleName = %q, want fallback %q", result.ConsoleName, "onlyone")
	}
}

func TestScanRecognizesQuitAndSuspendCommands(t *testing.T) {
	var st obj.EscapeState

	out, cmd := Scan(&st, []byte{0x05, '.'})
	if len(out) != 0 || cmd != EscapeQuit {
		t.Fatalf("Scan(ctrl-E .) = %v,%v, want empty,EscapeQuit", out, cmd)
	}

	out, cmd = Scan(&st, []byte{0x05, '&'})
	if len(out) != 0 || cmd != EscapeToggleSuspend {
		t.Fatalf("Scan(ctrl-E &) = %v,%v, want empty,EscapeToggleSuspend", out, cmd)
	}
}

func TestScanPassesThroughOrdinaryBytes(t *testing.T) {
	var st obj.EscapeState
	out, cmd := Scan(&st, []byte("hello"))
	if string(out) != "hello" || cmd != EscapeNone {
		t.Fatalf("Scan(hello) = %q,%v, want hello,EscapeNone", out, cmd)
	}
}

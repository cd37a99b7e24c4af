package engine

import (
	"os"
	"testing"

	"github.com/momentics/consoled/internal/obj"
)

func TestReadFromObjTogglesSuspendOnEscapeAndStripsCommand(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	reg := obj.NewRegistry()
	console := reg.Add("console0", obj.KindSerial, 64)
	client := reg.Add("client0", obj.KindClient, 64)
	client.FD = int(r.Fd())
	reg.Link(client.ID, console.ID)

	if _, err := w.Write([]byte("hi\x05&bye")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if v := ReadFromObj(reg, client); v != VerdictOK {
		t.Fatalf("verdict = %v, want VerdictOK", v)
	}
	if !client.Client.GotSuspend {
		t.Fatalf("escape '&' should have toggled GotSuspend")
	}
	if got := string(console.Out.View()); got != "hi" {
		t.Fatalf("console.Out = %q, want %q (escape command must not reach the console)", got, "hi")
	}
}

func TestReadFromObjQuitEscapeDisposesClient(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	reg := obj.NewRegistry()
	console := reg.Add("console0", obj.KindSerial, 64)
	client := reg.Add("client0", obj.KindClient, 64)
	client.FD = int(r.Fd())
	reg.Link(client.ID, console.ID)

	if _, err := w.Write([]byte("\x05.")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if v := ReadFromObj(reg, client); v != VerdictDispose {
		t.Fatalf("verdict = %v, want VerdictDispose", v)
	}
}

func TestReadFromObjFansOutToReaderPeers(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	reg := obj.NewRegistry()
	source := reg.Add("console0", obj.KindSerial, 64)
	source.FD = int(r.Fd())
	peerA := reg.Add("peerA", obj.KindClient, 64)
	peerB := reg.Add("peerB", obj.KindClient, 64)
	reg.Link(source.ID, peerA.ID)
	reg.Link(source.ID, peerB.ID)

	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if v := ReadFromObj(reg, source); v != VerdictOK {
		t.Fatalf("ReadFromObj verdict = %v, want VerdictOK", v)
	}

	if got := string(peerA.Out.View()); got != "hello" {
		t.Fatalf("peerA.Out = %q, want %q", got, "hello")
	}
	if got := string(peerB.Out.View()); got != "hello" {
		t.Fatalf("peerB.Out = %q, want %q", got, "hello")
	}
}

func TestWriteToObjDrainsOutputBuffer(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	o := obj.New(1, "client0", obj.KindClient, 64)
	o.FD = int(w.Fd())
	o.Out.Enqueue(o.Name, []byte("payload"))

	if v := WriteToObj(o); v != VerdictOK {
		t.Fatalf("WriteToObj verdict = %v, want VerdictOK", v)
	}
	if !o.Out.Empty() {
		t.Fatalf("Out buffer should be drained")
	}

	buf := make([]byte, 7)
	n, err := r.Read(buf)
	if err != nil || n != 7 || string(buf) != "payload" {
		t.Fatalf("read back = %q,%v, want %q", buf[:n], err, "payload")
	}
}

func TestReadFromObjEOFDisposesNonTelnetObject(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	if err := w.Close(); err != nil {
		t.Fatalf("close write end: %v", err)
	}

	reg := obj.NewRegistry()
	o := reg.Add("console0", obj.KindSerial, 64)
	o.FD = int(r.Fd())

	if v := ReadFromObj(reg, o); v != VerdictDispose {
		t.Fatalf("ReadFromObj verdict on EOF = %v, want VerdictDispose", v)
	}
	if !o.GotEOF {
		t.Fatalf("GotEOF should be set after EOF read")
	}
}

func TestReadFromObjEOFRetainsTelnetObjectForReconnect(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	if err := w.Close(); err != nil {
		t.Fatalf("close write end: %v", err)
	}

	reg := obj.NewRegistry()
	o := reg.Add("console0", obj.KindTelnet, 64)
	o.FD = int(r.Fd())

	if v := ReadFromObj(reg, o); v != VerdictReconnect {
		t.Fatalf("ReadFromObj verdict on EOF = %v, want VerdictReconnect", v)
	}
}

func TestReadFromObjStripsIACFromTelnetStream(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	reg := obj.NewRegistry()
	source := reg.Add("console0", obj.KindTelnet, 64)
	source.FD = int(r.Fd())
	peer := reg.Add("peer", obj.KindClient, 64)
	reg.Link(source.ID, peer.ID)

	// IAC DO ECHO (option 1), then plain data.
	if _, err := w.Write([]byte{255, 253, 1, 'h', 'i'}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if v := ReadFromObj(reg, source); v != VerdictOK {
		t.Fatalf("verdict = %v, want VerdictOK", v)
	}
	if got := string(peer.Out.View()); got != "hi" {
		t.Fatalf("peer.Out = %q, want %q (IAC sequence should be stripped)", got, "hi")
	}
	// The DO should have been answered with a WONT in source.Out.
	if source.Out.Empty() {
		t.Fatalf("expected a WONT reply queued in source.Out")
	}
}

package telnet

import (
	"bytes"
	"testing"

	"github.com/momentics/consoled/internal/obj"
)

func TestFilterIACStripsOptionNegotiation(t *testing.T) {
	var st obj.IACState
	var reply []byte

	in := []byte{'a', IAC, DO, 1, 'b', 'c', IAC, WILL, 3, 'd'}
	out := FilterIAC(&st, in, &reply)

	if string(out) != "abcd" {
		t.Fatalf("FilterIAC data = %q, want %q", out, "abcd")
	}
	want := []byte{IAC, WONT, 1, IAC, DONT, 3}
	if !bytes.Equal(reply, want) {
		t.Fatalf("FilterIAC reply = %v, want %v", reply, want)
	}
}

func TestFilterIACResumesAcrossCalls(t *testing.T) {
	var st obj.IACState
	var reply []byte

	// Split the IAC DO sequence across two reads.
	out1 := FilterIAC(&st, []byte{'x', IAC}, &reply)
	out2 := FilterIAC(&st, []byte{DO, 1, 'y'}, &reply)

	if string(out1)+string(out2) != "xy" {
		t.Fatalf("resumed FilterIAC data = %q+%q, want %q+%q", out1, out2, "x", "y")
	}
	if len(reply) != 3 {
		t.Fatalf("reply after resumed sequence = %v, want a 3-byte WONT", reply)
	}
}

func TestFilterIACEscapedLiteral255(t *testing.T) {
	var st obj.IACState
	var reply []byte

	out := FilterIAC(&st, []byte{IAC, IAC}, &reply)
	if !bytes.Equal(out, []byte{255}) {
		t.Fatalf("escaped IAC literal = %v, want [255]", out)
	}
	if len(reply) != 0 {
		t.Fatalf("escaped IAC literal should not trigger a reply, got %v", reply)
	}
}

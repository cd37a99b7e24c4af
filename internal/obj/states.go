// File: internal/obj/states.go
// Small state-machine scratch fields kept on Object itself so the
// telnet IAC filter and the client escape-character scanner (spec §3's
// "option-negotiation sub-state" / "escape-character state machine")
// can resume byte-by-byte parsing across read_from_obj calls without
// an import cycle back from internal/telnet or internal/clientproto.
//
// Author: momentics <momentics@gmail.com>
package obj

// IACState tracks progress through a telnet IAC (0xFF) escape
// sequence while scanning a source object's freshly read bytes.
type IACState struct {
	InIAC   bool // last byte was IAC
	InOpt   bool // awaiting the option byte of DO/DONT/WILL/WONT
	Verb    byte // DO, DONT, WILL, or WONT, once known
}

// EscapeState tracks progress through a client's escape-character
// sequence (prefix ctrl-E, see internal/clientproto; spec §3's
// "escape-character state machine").
type EscapeState struct {
	Armed bool // previous byte was the escape prefix
}

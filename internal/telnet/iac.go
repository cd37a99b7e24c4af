// Package telnet implements the telnet connector (spec.md §4.C) and the
// IAC option-negotiation filter referenced by the read/write engine
// (spec §4.D: "for telnet sources, filter through the IAC state machine
// first; strip/respond to option negotiation; preserve the data
// stream").
//
// The IAC byte constants are grounded on other_examples'
// johnsonjh-dps8m-proxy__main.go, the one file in the retrieval pack
// that hand-rolls telnet option negotiation.
//
// Author: momentics <momentics@gmail.com>
package telnet

import "github.com/momentics/consoled/internal/obj"

// Telnet protocol bytes (RFC 854 / arpa/telnet.h).
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240
)

// FilterIAC scans in, stripping and responding to option-negotiation
// sequences, and returns the data bytes that remain for fan-out. Replies
// (DONT/WONT for any DO/WILL we receive, i.e. refuse every option) are
// appended to replyOut.
//
// The state machine resumes across calls via st, which lives on the
// telnet Object itself (obj.IACState) so a sequence split across two
// non-blocking reads is handled correctly.
func FilterIAC(st *obj.IACState, in []byte, replyOut *[]byte) []byte {
	data := make([]byte, 0, len(in))
	for _, b := range in {
		switch {
		case st.InOpt:
			st.InOpt = false
			respondRefuse(st.Verb, b, replyOut)
			st.Verb = 0
		case st.InIAC:
			st.InIAC = false
			switch b {
			case DO, DONT, WILL, WONT:
				st.InOpt = true
				st.Verb = b
			case IAC:
				data = append(data, IAC) // escaped literal 0xFF
			case SB:
				// Subnegotiation body is not interpreted; bytes up to
				// IAC SE are passed through untouched by this filter,
				// matching spec's "preserve the data stream" for
				// anything beyond basic DO/DONT/WILL/WONT framing.
			default:
				// Other IAC-prefixed commands (NOP, AYT, ...) are dropped.
			}
		case b == IAC:
			st.InIAC = true
		default:
			data = append(data, b)
		}
	}
	return data
}

// respondRefuse always answers DO/WILL with WONT/DONT: the daemon does
// not negotiate any telnet option (binary mode, echo, etc.), matching
// spec's minimal-negotiation scope.
func respondRefuse(verb, opt byte, out *[]byte) {
	var reply byte
	switch verb {
	case DO:
		reply = WONT
	case WILL:
		reply = DONT
	default:
		return // DONT/WONT from the peer needs no reply
	}
	*out = append(*out, IAC, reply, opt)
}

// Package obj implements the Buffered Object model of spec.md §3/§4.A:
// named, typed endpoints with fixed-size wrap-around ring buffers and
// non-owning peer references.
//
// Grounded on the teacher's pool.RingBuffer concept (pool/ring.go-style
// generic ring) and api.Buffer's Bytes()/Release() contract, adapted from
// a reference-counted zero-copy byte-slice view to a plain copying
// wrap-around byte ring, since spec §4.A calls for fixed-size per-object
// storage with an explicit overrun-drop policy rather than pooled
// variable-size allocations.
//
// Author: momentics <momentics@gmail.com>
package obj

import "github.com/momentics/consoled/internal/logging"

// Ring is a fixed-capacity byte ring buffer. "Full" and "empty" are
// distinguished by tracking a count alongside head/tail, per spec §4.A.
type Ring struct {
	buf   []byte
	head  int // next byte to read
	count int // bytes currently stored

	overrun logging.OverrunTracker
}

// NewRing allocates a ring of the given capacity.
func NewRing(capacity int) *Ring {
	return &Ring{buf: make([]byte, capacity)}
}

// Len returns the number of unread bytes.
func (r *Ring) Len() int { return r.count }

// Cap returns the ring's fixed capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Empty reports whether there is nothing to drain.
func (r *Ring) Empty() bool { return r.count == 0 }

// Full reports whether the ring has no room for further writes.
func (r *Ring) Full() bool { return r.count == len(r.buf) }

// Enqueue writes p into the ring, dropping the oldest unread bytes on
// overrun per spec §4.A's policy ("consoles must never be able to stall
// the daemon"). objName is used for the once-per-burst warning.
func (r *Ring) Enqueue(objName string, p []byte) {
	if len(r.buf) == 0 || len(p) == 0 {
		return
	}
	overran := false
	if len(p) > len(r.buf) {
		// Only the tail fits; the rest is an overrun of the oldest data.
		dropped := len(p) - len(r.buf)
		r.overrun.Warn(objName, dropped)
		p = p[dropped:]
		r.head = 0
		r.count = 0
		overran = true
	}
	free := len(r.buf) - r.count
	if need := len(p) - free; need > 0 {
		r.advanceRead(need)
		r.overrun.Warn(objName, need)
	} else if r.count == 0 && !overran {
		r.overrun.Reset()
	}
	tail := (r.head + r.count) % len(r.buf)
	n := copy(r.buf[tail:], p)
	if n < len(p) {
		copy(r.buf[:], p[n:])
	}
	r.count += len(p)
}

// advanceRead discards n oldest bytes without returning them, used
// internally to make room on overrun.
func (r *Ring) advanceRead(n int) {
	if n > r.count {
		n = r.count
	}
	r.head = (r.head + n) % len(r.buf)
	r.count -= n
}

// View returns a contiguous slice of the currently readable bytes
// without copying past the wrap point; callers that need the full
// readable region call View twice (spec §4.A dequeue_input_view/
// advance_input split).
func (r *Ring) View() []byte {
	if r.count == 0 {
		return nil
	}
	end := r.head + r.count
	if end <= len(r.buf) {
		return r.buf[r.head:end]
	}
	return r.buf[r.head:]
}

// Advance consumes n bytes already handed out via View.
func (r *Ring) Advance(n int) {
	if n <= 0 {
		return
	}
	r.advanceRead(n)
	if r.count == 0 {
		r.overrun.Reset()
	}
}

// Peek copies up to len(dst) readable bytes, honoring wraparound,
// without consuming them. Used by write_to_obj to hand a contiguous
// chunk to a non-blocking write syscall.
func (r *Ring) Peek(dst []byte) int {
	if r.count == 0 {
		return 0
	}
	n := 0
	for n < len(dst) && n < r.count {
		dst[n] = r.buf[(r.head+n)%len(r.buf)]
		n++
	}
	return n
}

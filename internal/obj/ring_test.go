package obj

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingEnqueueViewAdvance(t *testing.T) {
	r := NewRing(8)
	r.Enqueue("c1", []byte("hello"))
	require.Equal(t, 5, r.Len())
	require.Equal(t, "hello", string(r.View()))
	r.Advance(5)
	require.True(t, r.Empty(), "ring should be empty after Advance(5)")
}

func TestRingWraparound(t *testing.T) {
	r := NewRing(4)
	r.Enqueue("c1", []byte("ab"))
	r.Advance(2)
	r.Enqueue("c1", []byte("cdef")) // wraps: head was at 2, writes cd at [2:4], ef at [0:2]
	require.Equal(t, 4, r.Len())

	got := make([]byte, 0, 4)
	for len(got) < 4 {
		v := r.View()
		got = append(got, v...)
		r.Advance(len(v))
	}
	require.Equal(t, "cdef", string(got))
}

func TestRingOverrunDropsOldest(t *testing.T) {
	r := NewRing(4)
	r.Enqueue("c1", []byte("abcd"))
	r.Enqueue("c1", []byte("ef")) // overruns by 2: drops "ab"

	got := make([]byte, 0, 4)
	for !r.Empty() {
		v := r.View()
		got = append(got, v...)
		r.Advance(len(v))
	}
	require.Equal(t, "cdef", string(got))
}

func TestRingEnqueueLargerThanCapacity(t *testing.T) {
	r := NewRing(3)
	r.Enqueue("c1", []byte("abcdef")) // only the last 3 bytes ("def") survive
	require.Equal(t, 3, r.Len())
	require.Equal(t, "def", string(r.View()))
}

func TestRingPeekDoesNotConsume(t *testing.T) {
	r := NewRing(8)
	r.Enqueue("c1", []byte("xyz"))
	dst := make([]byte, 2)
	n := r.Peek(dst)
	require.Equal(t, 2, n)
	require.Equal(t, "xy", string(dst))
	require.Equal(t, 3, r.Len(), "Peek must not consume")
}

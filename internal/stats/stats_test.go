package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAddAccumulates(t *testing.T) {
	r := New()
	r.Add("reads_dispatched", 3)
	r.Add("reads_dispatched", 4)

	snap := r.Snapshot()
	require.Equal(t, int64(7), snap["reads_dispatched"])
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := New()
	r.Set("objects", 2)
	snap := r.Snapshot()
	snap["objects"] = 99

	require.Equal(t, 2, r.Snapshot()["objects"], "mutating a snapshot must not leak into the registry")
}

func TestProbesDumpStateEvaluatesEveryProbe(t *testing.T) {
	p := NewProbes()
	p.Register("a", func() any { return 1 })
	p.Register("b", func() any { return "two" })

	got := p.DumpState()
	require.Equal(t, 1, got["a"])
	require.Equal(t, "two", got["b"])
}

package telnet

import (
	"testing"
	"time"
)

func TestBackoffForIsBoundedExponential(t *testing.T) {
	cases := []struct {
		step int
		want time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{6, 60 * time.Second},
		{100, 60 * time.Second}, // capped, never exceeds the schedule's last step
	}
	for _, c := range cases {
		if got := backoffFor(c.step); got != c.want {
			t.Errorf("backoffFor(%d) = %v, want %v", c.step, got, c.want)
		}
	}
}

func TestBackoffForNegativeStepClampsToFloor(t *testing.T) {
	if got := backoffFor(-1); got != BackoffSchedule[0] {
		t.Fatalf("backoffFor(-1) = %v, want %v", got, BackoffSchedule[0])
	}
}

package tpoll

import (
	"os"
	"testing"
	"time"
)

func TestWaitReportsReadableFD(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	defer r.Close()
	defer w.Close()

	p := New()
	fd := int(r.Fd())
	p.Set(fd, Readable)

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	n, err := p.Wait(1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n != 1 {
		t.Fatalf("Wait() = %d, want 1", n)
	}
	if !p.IsSet(fd, Readable) {
		t.Fatalf("IsSet(fd, Readable) = false, want true")
	}
}

func TestZeroFDsClearsInterestNotTimers(t *testing.T) {
	p := New()
	p.Set(5, Readable)
	p.TimerRelative(time.Hour, func(any) {}, nil)

	p.ZeroFDs()

	if p.PendingTimers() != 1 {
		t.Fatalf("PendingTimers() = %d after ZeroFDs, want 1", p.PendingTimers())
	}
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	p := New()
	var order []int

	// Schedule out of order; all deadlines are already in the past so
	// the very next Wait fires every one of them.
	past := time.Now().Add(-time.Second)
	p.TimerAbsolute(past.Add(30*time.Millisecond), func(any) { order = append(order, 3) }, nil)
	p.TimerAbsolute(past, func(any) { order = append(order, 1) }, nil)
	p.TimerAbsolute(past.Add(10*time.Millisecond), func(any) { order = append(order, 2) }, nil)

	if _, err := p.Wait(0); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("fire order = %v, want [1 2 3]", order)
	}
	if p.PendingTimers() != 0 {
		t.Fatalf("PendingTimers() = %d after firing, want 0", p.PendingTimers())
	}
}

func TestTimerCancelPreventsFiring(t *testing.T) {
	p := New()
	fired := false
	id := p.TimerAbsolute(time.Now().Add(-time.Second), func(any) { fired = true }, nil)
	p.TimerCancel(id)

	if _, err := p.Wait(0); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if fired {
		t.Fatalf("canceled timer fired")
	}
}

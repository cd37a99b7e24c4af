package timestamp

import (
	"strings"
	"testing"
	"time"

	"github.com/momentics/consoled/internal/obj"
)

func TestFireReschedulesFromIntendedDeadlineNotNow(t *testing.T) {
	reg := obj.NewRegistry()
	console := reg.Add("console0", obj.KindSerial, 64)
	logf := reg.Add("console0.log", obj.KindLogfile, 64)
	logf.Logfile.ConsoleID = console.ID

	intended := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	s := &Scheduler{minutes: 5, reg: reg, next: intended}

	s.fire()

	if got := s.next; !got.Equal(intended.Add(5 * time.Minute)) {
		t.Fatalf("next deadline = %v, want %v (computed from the intended deadline, not now)",
			got, intended.Add(5*time.Minute))
	}
}

func TestFireWritesTimestampLineToEveryLogfile(t *testing.T) {
	reg := obj.NewRegistry()
	console := reg.Add("console0", obj.KindSerial, 64)
	logf := reg.Add("console0.log", obj.KindLogfile, 64)
	logf.Logfile.ConsoleID = console.ID

	s := &Scheduler{minutes: 1, reg: reg, next: time.Now()}
	s.fire()

	got := string(logf.Out.View())
	if !strings.Contains(got, "Console [console0]") {
		t.Fatalf("timestamp line = %q, missing console name", got)
	}
}

func TestFireSkipsNonLogfileObjects(t *testing.T) {
	reg := obj.NewRegistry()
	client := reg.Add("client0", obj.KindClient, 64)

	s := &Scheduler{minutes: 1, reg: reg, next: time.Now()}
	s.fire()

	if !client.Out.Empty() {
		t.Fatalf("non-logfile object should never receive a timestamp line")
	}
}

package logfile

import (
	"strings"
	"testing"
	"time"
)

func TestExpandTemplateSubstitutesNameAndDate(t *testing.T) {
	got := ExpandTemplate("/var/log/%N-%D.log", "switch0")
	want := "/var/log/switch0-" + time.Now().Format("20060102") + ".log"
	if got != want {
		t.Fatalf("ExpandTemplate = %q, want %q", got, want)
	}
}

func TestExpandTemplateWithoutConversions(t *testing.T) {
	got := ExpandTemplate("/var/log/fixed.log", "switch0")
	if got != "/var/log/fixed.log" {
		t.Fatalf("ExpandTemplate = %q, want unchanged template", got)
	}
}

func TestExpandTemplateRepeatedName(t *testing.T) {
	got := ExpandTemplate("%N/%N.log", "r1")
	if !strings.HasPrefix(got, "r1/r1") {
		t.Fatalf("ExpandTemplate = %q, want both occurrences substituted", got)
	}
}

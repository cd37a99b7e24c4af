package mux

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchesFileAllowsConfiguredHost(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.allow")
	if err := os.WriteFile(path, []byte("consoled : 10.0.0.5, 10.0.0.6\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !matchesFile(path, "10.0.0.5") {
		t.Fatalf("expected 10.0.0.5 to match")
	}
	if matchesFile(path, "10.0.0.9") {
		t.Fatalf("expected 10.0.0.9 not to match")
	}
}

func TestMatchesFileWildcardALL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.deny")
	if err := os.WriteFile(path, []byte("consoled : ALL\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !matchesFile(path, "192.168.1.1") {
		t.Fatalf("ALL should match any host")
	}
}

func TestMatchesFileIgnoresOtherDaemons(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.allow")
	if err := os.WriteFile(path, []byte("sshd : 10.0.0.5\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if matchesFile(path, "10.0.0.5") {
		t.Fatalf("entries for other daemons must not match consoled")
	}
}

func TestMatchesFileMissingFileIsNoMatch(t *testing.T) {
	if matchesFile(filepath.Join(t.TempDir(), "nope"), "10.0.0.5") {
		t.Fatalf("a missing file should never match")
	}
}

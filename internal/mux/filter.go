// File: internal/mux/filter.go
// TCP-wrappers-equivalent access filter (SPEC_FULL.md supplement 4): a
// minimal stand-in for libwrap's hosts_ctl, consulting /etc/hosts.allow
// and /etc/hosts.deny for a "consoled" entry using the same
// daemon:address,address,... line format, without linking libwrap
// itself (no pack example talks to libwrap; this keeps the dependency
// surface in Go).
//
// Author: momentics <momentics@gmail.com>
package mux

import (
	"bufio"
	"net"
	"os"
	"strings"

	"github.com/momentics/consoled/internal/logging"
)

const wrapDaemonName = "consoled"

// TCPWrapFilter builds an AccessFilter consulting /etc/hosts.allow then
// /etc/hosts.deny, defaulting to allow if neither file grants or denies
// explicitly (libwrap's own default policy).
func TCPWrapFilter() AccessFilter {
	return func(remote net.Addr) bool {
		host := hostOf(remote)
		if host == "" {
			return true
		}
		if matchesFile("/etc/hosts.allow", host) {
			return true
		}
		if matchesFile("/etc/hosts.deny", host) {
			logging.Noticef("refused connection from %s: denied by hosts.deny", host)
			return false
		}
		return true
	}
}

func hostOf(a net.Addr) string {
	tcp, ok := a.(*net.TCPAddr)
	if !ok {
		return ""
	}
	return tcp.IP.String()
}

// matchesFile scans a hosts.allow/hosts.deny-style file for a line of
// the form "daemon-list : client-list" naming wrapDaemonName and host,
// or the wildcard ALL in either list.
func matchesFile(path, host string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if !fieldMatches(parts[0], wrapDaemonName) {
			continue
		}
		if fieldMatches(parts[1], host) {
			return true
		}
	}
	return false
}

func fieldMatches(field, target string) bool {
	for _, item := range strings.FieldsFunc(field, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		if item == "ALL" || item == target {
			return true
		}
	}
	return false
}

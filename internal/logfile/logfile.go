// Package logfile implements the logfile opener of spec.md §4.C:
// filename template expansion, append-mode open (truncate exactly once
// at daemon start if requested), an advisory write lock (fatal if
// another instance holds it), and close-on-exec.
//
// Author: momentics <momentics@gmail.com>
package logfile

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/momentics/consoled/internal/obj"
)

// ExpandTemplate expands %N (console name) and %D (date, YYYYMMDD) in
// tmpl, matching spec §4.C's "filename templates... expanded before
// open" and the conversion-specifier expansion of server.c's
// format_obj_string.
func ExpandTemplate(tmpl, consoleName string) string {
	now := time.Now()
	out := strings.ReplaceAll(tmpl, "%N", consoleName)
	out = strings.ReplaceAll(out, "%D", now.Format("20060102"))
	return out
}

// Open opens o's logfile, truncating exactly once if truncateOnStart is
// true, and otherwise always opening in append mode (including on
// SIGHUP reopen, per spec §4.C: "do not truncate the logfile" there).
// It acquires an advisory write lock and is fatal-for-this-object if
// another instance already holds it.
func Open(o *obj.Object, truncateOnStart bool) error {
	// Logfile objects are registered as "<console>.log" (internal/mux),
	// so %N expands to the object name with that suffix removed.
	path := ExpandTemplate(o.Logfile.FilenameTmpl, strings.TrimSuffix(o.Name, ".log"))

	flags := unix.O_RDWR | unix.O_CREAT
	if truncateOnStart {
		flags |= unix.O_TRUNC
	} else {
		flags |= unix.O_APPEND
	}

	fd, err := unix.Open(path, flags, 0640)
	if err != nil {
		return fmt.Errorf("open logfile %s: %w", path, err)
	}

	lock := unix.Flock_t{Type: unix.F_WRLCK, Whence: 0, Start: 0, Len: 0}
	if err := unix.FcntlFlock(uintptr(fd), unix.F_SETLK, &lock); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("logfile %s is locked by another instance: %w", path, err)
	}

	setCloseOnExec(fd)

	if o.FD >= 0 {
		_ = unix.Close(o.FD)
	}
	o.FD = fd
	return nil
}

func setCloseOnExec(fd int) {
	_, _, _ = unix.Syscall(unix.SYS_FCNTL, uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC)
}

// daemon/daemon.go
// Author: momentics <momentics@gmail.com>
//
// Daemonization handshake and startup-configuration summary, ported
// from server.c's begin_daemonize/end_daemonize/display_configuration
// (server.c:144-346). Go cannot safely fork(2) a multi-threaded
// process with goroutines already running, so the double-fork dance
// is replaced with a re-exec of the same binary with an internal
// "child" marker env var; the parent-to-grandchild status pipe and the
// block-until-ready contract are preserved exactly.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/momentics/consoled/internal/config"
	"github.com/momentics/consoled/internal/logging"
)

const reexecEnv = "CONSOLED_DAEMON_CHILD"

// Begin implements begin_daemonize: if the process was not launched as
// the re-exec'd child, it spawns itself with reexecEnv set and a status
// pipe wired to fd 3, then blocks on that pipe and exits with the
// child's reported status, exactly mirroring the C original's "control
// does not return to the shell until end_daemonize" contract. If it was
// launched as the child, Begin returns the write end of the pipe for
// the caller to pass to End once startup succeeds.
//
// foreground skips the whole dance (the -F CLI flag).
func Begin(foreground bool) (statusFD int, isChild bool, err error) {
	if foreground {
		return -1, true, nil
	}
	if os.Getenv(reexecEnv) == "1" {
		return 3, true, nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return -1, false, fmt.Errorf("create daemonize pipe: %w", err)
	}
	defer w.Close()

	exe, err := os.Executable()
	if err != nil {
		return -1, false, fmt.Errorf("resolve executable: %w", err)
	}

	cmd := exec.Command(exe, os.Args[1:]...)
	cmd.Env = append(os.Environ(), reexecEnv+"=1")
	cmd.ExtraFiles = []*os.File{w}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		r.Close()
		return -1, false, fmt.Errorf("spawn daemon child: %w", err)
	}
	w.Close()

	var status [1]byte
	n, readErr := r.Read(status[:])
	r.Close()
	if readErr != nil || n != 1 || status[0] != 0 {
		os.Exit(1)
	}
	os.Exit(0)
	panic("unreachable") // satisfies the compiler about control flow past os.Exit
}

// End implements end_daemonize: redirects stdio to /dev/null, changes
// to / so the daemon never pins a mount, and signals the waiting
// parent by writing a single success byte (or, on a startup error,
// Fail should be called instead so the parent exits non-zero).
func End(statusFD int) {
	if statusFD < 0 {
		return
	}
	if err := unix.Chdir("/"); err != nil {
		logging.Warningf("unable to chdir to /: %v", err)
	}

	devnull, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err == nil {
		_ = unix.Dup2(int(devnull.Fd()), int(os.Stdin.Fd()))
		_ = unix.Dup2(int(devnull.Fd()), int(os.Stdout.Fd()))
		_ = unix.Dup2(int(devnull.Fd()), int(os.Stderr.Fd()))
		_ = devnull.Close()
	}

	f := os.NewFile(uintptr(statusFD), "daemonize-status")
	_, _ = f.Write([]byte{0})
	_ = f.Close()
}

// Fail signals the waiting parent that startup failed, so it exits
// with status 1 instead of 0 (server.c's implicit contract via
// log_err writing a nonzero byte through log_daemonize_fd).
func Fail(statusFD int) {
	if statusFD < 0 {
		return
	}
	f := os.NewFile(uintptr(statusFD), "daemonize-status")
	_, _ = f.Write([]byte{1})
	_ = f.Close()
}

// DisplayConfiguration writes the verbose startup summary to stderr,
// gated by cfg.EnableVerbose (server.c:286-346, display_configuration).
// It must run before End redirects stdio to /dev/null (server.c calls
// display_configuration at server.c:108-109, well before end_daemonize
// at server.c:123), so it counts consoles from the parsed configuration
// itself (conf->objs) rather than from an opened registry.
func DisplayConfiguration(cfg *config.ServerConfig, confFileName string) {
	if !cfg.EnableVerbose {
		return
	}

	consoles := 0
	for _, def := range cfg.Objects {
		if def.Kind == "serial" || def.Kind == "telnet" {
			consoles++
		}
	}

	fmt.Fprintf(os.Stderr, "\nStarting consoled daemon (pid %d)\n", os.Getpid())
	fmt.Fprintf(os.Stderr, "Configuration: %s\n", confFileName)
	fmt.Fprint(os.Stderr, "Options:")

	got := 0
	opt := func(name string, on bool) {
		if on {
			fmt.Fprintf(os.Stderr, " %s", name)
			got++
		}
	}
	opt("KeepAlive", cfg.EnableKeepAlive)
	opt("LogFile", cfg.LogFileName != "")
	opt("LoopBack", cfg.EnableLoopBack)
	opt("ResetCmd", cfg.ResetCmd != "")
	opt("SysLog", cfg.SyslogFacility >= 0)
	opt("TCP-Wrappers", cfg.EnableTCPWrap)
	if cfg.TStampMinutes > 0 {
		fmt.Fprintf(os.Stderr, " TimeStamp=%dm", cfg.TStampMinutes)
		got++
	}
	opt("ZeroLogs", cfg.EnableZeroLogs)
	if got == 0 {
		fmt.Fprint(os.Stderr, " None")
	}
	fmt.Fprintln(os.Stderr)

	fmt.Fprintf(os.Stderr, "Listening on port %d\n", cfg.Port)
	plural := "s"
	if consoles == 1 {
		plural = ""
	}
	fmt.Fprintf(os.Stderr, "Monitoring %d console%s\n\n", consoles, plural)
}

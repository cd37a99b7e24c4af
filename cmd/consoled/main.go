// cmd/consoled/main.go
// Author: momentics <momentics@gmail.com>
//
// Entrypoint wiring: parse flags, load configuration, daemonize (unless
// run in the foreground), open every configured object, and drive the
// multiplexor loop until a shutdown signal arrives. Mirrors server.c's
// main() sequence (server.c:100-140).
package main

import (
	"fmt"
	"log/syslog"
	"os"

	"github.com/momentics/consoled/internal/config"
	"github.com/momentics/consoled/internal/ctrlflags"
	"github.com/momentics/consoled/internal/daemon"
	"github.com/momentics/consoled/internal/logging"
	"github.com/momentics/consoled/internal/mux"
)

func main() {
	fs := config.NewFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	confPath, _ := fs.GetString("config")
	foreground, _ := fs.GetBool("foreground")

	cfg, err := config.Load(confPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "consoled: %v\n", err)
		os.Exit(1)
	}

	statusFD, isChild, err := daemon.Begin(foreground)
	if err != nil {
		fmt.Fprintf(os.Stderr, "consoled: %v\n", err)
		os.Exit(1)
	}
	if !isChild {
		// daemon.Begin never returns control to the original process
		// past this point; this branch only exists for readability.
		return
	}

	if err := run(cfg); err != nil {
		logging.Errorf("%v", err)
		daemon.Fail(statusFD)
		os.Exit(1)
	}
	daemon.DisplayConfiguration(cfg, confPath)
	daemon.End(statusFD)

	logging.Noticef("starting consoled daemon (pid %d)", os.Getpid())
	runLoop(cfg)
	logging.Noticef("stopping consoled daemon (pid %d)", os.Getpid())
}

// run performs every startup step that can still fail loudly to the
// launching shell (log file / syslog setup), before end_daemonize
// redirects stdio to /dev/null.
func run(cfg *config.ServerConfig) error {
	if cfg.LogFileName != "" {
		f, err := os.OpenFile(cfg.LogFileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.LogFileName, err)
		}
		logging.SetOutput(f, config.LevelFromString(cfg.LogFileLevel))
	}
	if cfg.SyslogFacility >= 0 {
		prio := syslog.Priority(cfg.SyslogFacility<<3) | syslog.LOG_INFO
		if err := logging.SetSyslog("consoled", prio); err != nil {
			logging.Warningf("unable to open syslog: %v", err)
		}
	}
	return nil
}

func runLoop(cfg *config.ServerConfig) {
	flags, err := ctrlflags.New()
	if err != nil {
		logging.Fatalf("unable to set up control plane: %v", err)
	}
	defer flags.Close()

	l := mux.New(cfg, flags)
	defer l.Close()

	if cfg.EnableTCPWrap {
		l.SetAccessFilter(mux.TCPWrapFilter())
	}

	if err := l.CreateListenSocket(); err != nil {
		logging.Fatalf("%v", err)
	}
	if err := l.OpenAll(); err != nil {
		logging.Fatalf("%v", err)
	}

	l.Run()
}

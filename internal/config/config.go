// Package config implements the external collaborator of spec.md §6's
// "server configuration record": a YAML console-definition file parsed
// with gopkg.in/yaml.v3 (direct dependency of bureau-foundation-bureau,
// grounding this choice), plus CLI flags via github.com/spf13/pflag
// (also a bureau-foundation-bureau direct dependency) that override
// config-file values.
//
// Config syntax itself is explicitly out of scope per spec §1; this
// package exists only to hand the core a fully populated object list
// plus the enumerated server options, as §6 requires.
//
// Author: momentics <momentics@gmail.com>
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/momentics/consoled/internal/logging"
)

// ObjectDef is one console/logfile/listener definition from the config
// file, prior to being opened into a live obj.Object.
type ObjectDef struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "serial" | "telnet" | "logfile"

	// serial
	Device   string `yaml:"device,omitempty"`
	Baud     int    `yaml:"baud,omitempty"`
	DataBits int    `yaml:"dataBits,omitempty"`
	Parity   string `yaml:"parity,omitempty"`
	FlowCtl  string `yaml:"flowControl,omitempty"`

	// telnet
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`

	// logfile
	LogFilename string `yaml:"logFile,omitempty"`

	BufferSize int `yaml:"bufferSize,omitempty"`
}

// ServerConfig mirrors spec §6's enumerated server configuration
// record verbatim.
type ServerConfig struct {
	EnableKeepAlive bool   `yaml:"enableKeepAlive"`
	EnableLoopBack  bool   `yaml:"enableLoopBack"`
	EnableTCPWrap   bool   `yaml:"enableTCPWrap"`
	EnableZeroLogs  bool   `yaml:"enableZeroLogs"`
	EnableVerbose   bool   `yaml:"enableVerbose"`
	Port            int    `yaml:"port"`
	LogFileName     string `yaml:"logFileName"`
	LogFmtName      string `yaml:"logFmtName"`
	LogFileLevel    string `yaml:"logFileLevel"`
	SyslogFacility  int    `yaml:"syslogFacility"`
	ResetCmd        string `yaml:"resetCmd"`
	TStampMinutes   int    `yaml:"tStampMinutes"`
	CPUAffinity     int    `yaml:"cpuAffinity"` // -1: let the scheduler place the loop thread

	DefaultBufferSize int `yaml:"defaultBufferSize"`

	Objects []ObjectDef `yaml:"objects"`
}

// DefaultConfig mirrors the C source's compiled-in defaults.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:              7890,
		DefaultBufferSize: 1 << 15, // "low tens of KiB per object", spec §4.A
		SyslogFacility:    -1,
		CPUAffinity:       -1,
	}
}

// Load reads and parses path, then applies any pflag overrides already
// parsed into fs. The path itself is not stored in the returned
// ServerConfig; callers that report it (daemon.DisplayConfiguration)
// receive it separately.
func Load(path string, fs *pflag.FlagSet) (*ServerConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyFlagOverrides(cfg, fs)

	if len(cfg.Objects) == 0 {
		return nil, fmt.Errorf("configuration %q has no consoles defined", path)
	}
	return cfg, nil
}

// NewFlagSet declares the CLI surface (spec §6's peripheral CLI
// surface), returning a flag set the caller parses with os.Args.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("consoled", pflag.ExitOnError)
	fs.StringP("config", "c", "/etc/consoled.yaml", "path to configuration file")
	fs.IntP("port", "p", 0, "override listening port")
	fs.BoolP("verbose", "V", false, "display configuration summary at startup")
	fs.BoolP("zero-logs", "z", false, "truncate all logfiles at startup")
	fs.BoolP("foreground", "F", false, "do not daemonize")
	return fs
}

func applyFlagOverrides(cfg *ServerConfig, fs *pflag.FlagSet) {
	if fs == nil {
		return
	}
	if port, err := fs.GetInt("port"); err == nil && port != 0 {
		cfg.Port = port
	}
	if v, err := fs.GetBool("verbose"); err == nil && v {
		cfg.EnableVerbose = true
	}
	if z, err := fs.GetBool("zero-logs"); err == nil && z {
		cfg.EnableZeroLogs = true
	}
}

// LevelFromString maps a config string to a logging.Level, defaulting
// to Info on an unrecognized value (and warning about it).
func LevelFromString(s string) logging.Level {
	switch s {
	case "debug":
		return logging.Debug
	case "info":
		return logging.Info
	case "notice":
		return logging.Notice
	case "warning":
		return logging.Warning
	case "error":
		return logging.Error
	case "":
		return logging.Info
	default:
		logging.Warningf("unrecognized log level %q, defaulting to info", s)
		return logging.Info
	}
}

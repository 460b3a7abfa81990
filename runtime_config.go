// runtime_config.go - Command-line configuration for the emuprobe binary

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ProbeConfig is everything main needs to assemble a host, engine and
// transports.
type ProbeConfig struct {
	Listen        string
	NoSocket      bool
	MailboxDir    string
	CommandFile   string
	ResponseFile  string
	StateFile     string
	StateInterval int
	TraceCapacity int
	HitCapacity   int
	MaxFreezes    int
	AutoPause     bool
	FPS           int
	Program       string
	PRG           string
	LogLevel      string
	StatsView     string
	ScriptTimeout time.Duration
}

func DefaultProbeConfig() ProbeConfig {
	limits := DefaultProbeLimits()
	return ProbeConfig{
		Listen:        "127.0.0.1:9876",
		MailboxDir:    ".",
		CommandFile:   "debug_commands.json",
		ResponseFile:  "debug_response.json",
		StateFile:     "debug_state.json",
		StateInterval: 30,
		TraceCapacity: limits.TraceCapacity,
		HitCapacity:   limits.HitCapacity,
		MaxFreezes:    limits.MaxFreezes,
		FPS:           60,
		LogLevel:      "info",
		ScriptTimeout: limits.ScriptTimeout,
	}
}

// parseConfig fills a ProbeConfig from args. flag.ErrHelp is returned
// unchanged after printing usage.
func parseConfig(args []string, usageOut io.Writer) (ProbeConfig, error) {
	cfg := DefaultProbeConfig()

	flagSet := flag.NewFlagSet("emuprobe", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&cfg.Listen, "listen", cfg.Listen, "TCP address for the socket transport")
	flagSet.BoolVar(&cfg.NoSocket, "no-socket", false, "Disable the socket transport (mailbox only)")
	flagSet.StringVar(&cfg.MailboxDir, "mailbox-dir", cfg.MailboxDir, "Directory holding the command, response and state files")
	flagSet.StringVar(&cfg.CommandFile, "command-file", cfg.CommandFile, "Mailbox command file name")
	flagSet.StringVar(&cfg.ResponseFile, "response-file", cfg.ResponseFile, "Mailbox response file name")
	flagSet.StringVar(&cfg.StateFile, "state-file", cfg.StateFile, "Status broadcast file name (empty disables)")
	flagSet.IntVar(&cfg.StateInterval, "state-interval", cfg.StateInterval, "Ticks between status broadcasts")
	flagSet.IntVar(&cfg.TraceCapacity, "trace-capacity", cfg.TraceCapacity, "Trace ring capacity")
	flagSet.IntVar(&cfg.HitCapacity, "hit-capacity", cfg.HitCapacity, "Breakpoint hit queue capacity")
	flagSet.IntVar(&cfg.MaxFreezes, "max-freezes", cfg.MaxFreezes, "Maximum simultaneous freezes")
	flagSet.BoolVar(&cfg.AutoPause, "auto-pause", false, "Pause on every breakpoint hit")
	flagSet.IntVar(&cfg.FPS, "fps", cfg.FPS, "Ticks per second")
	flagSet.StringVar(&cfg.Program, "program", "", "Lua frame program for the headless host")
	flagSet.StringVar(&cfg.PRG, "prg", "", "Binary image loaded into PRG ROM")
	flagSet.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flagSet.StringVar(&cfg.StatsView, "statsview", "", "Address for the runtime stats viewer (statsview builds only)")
	flagSet.DurationVar(&cfg.ScriptTimeout, "script-timeout", cfg.ScriptTimeout, "Limit for one script.eval")

	flagSet.Usage = func() {
		flagSet.SetOutput(usageOut)
		fmt.Fprintln(usageOut, "Usage: emuprobe [flags] [program.lua | image.prg]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			flagSet.Usage()
		}
		return cfg, err
	}
	switch flagSet.NArg() {
	case 0:
	case 1:
		if err := cfg.assignAsset(flagSet.Arg(0)); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unexpected argument %q", flagSet.Arg(1))
	}
	return cfg, cfg.validate()
}

// assignAsset routes a positional file to -program or -prg by extension.
func (c *ProbeConfig) assignAsset(path string) error {
	kind, err := assetKindFromExtension(path)
	if err != nil {
		return err
	}
	target := &c.PRG
	if kind == assetProgram {
		target = &c.Program
	}
	if *target != "" {
		return fmt.Errorf("%s given twice: %q and %q", kind, *target, path)
	}
	*target = path
	return nil
}

func (c ProbeConfig) validate() error {
	switch {
	case c.FPS < 1 || c.FPS > 1000:
		return fmt.Errorf("-fps must be 1-1000, got %d", c.FPS)
	case c.StateInterval < 1:
		return fmt.Errorf("-state-interval must be positive, got %d", c.StateInterval)
	case c.TraceCapacity < 1:
		return fmt.Errorf("-trace-capacity must be positive, got %d", c.TraceCapacity)
	case c.HitCapacity < 1:
		return fmt.Errorf("-hit-capacity must be positive, got %d", c.HitCapacity)
	case c.MaxFreezes < 1:
		return fmt.Errorf("-max-freezes must be positive, got %d", c.MaxFreezes)
	case c.CommandFile == "" || c.ResponseFile == "":
		return fmt.Errorf("-command-file and -response-file are required")
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c ProbeConfig) Limits() ProbeLimits {
	return ProbeLimits{
		TraceCapacity: c.TraceCapacity,
		HitCapacity:   c.HitCapacity,
		MaxFreezes:    c.MaxFreezes,
		AutoPause:     c.AutoPause,
		ScriptTimeout: c.ScriptTimeout,
	}
}

// mailboxPath resolves a mailbox file name against MailboxDir.
func (c ProbeConfig) mailboxPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.MailboxDir, name)
}

func (c ProbeConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("-log-level: %w", err)
	}
	return level, nil
}

// newLogger builds the process logger. Components add a "component"
// attribute.
func newLogger(w io.Writer, level string) *slog.Logger {
	lvl, err := parseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

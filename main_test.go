package main

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9876" || cfg.NoSocket {
		t.Fatalf("socket defaults = %q no-socket=%v", cfg.Listen, cfg.NoSocket)
	}
	if cfg.StateInterval != 30 || cfg.FPS != 60 {
		t.Fatalf("expected interval 30 and 60 fps, got %d and %d", cfg.StateInterval, cfg.FPS)
	}
	if cfg.Limits() != DefaultProbeLimits() {
		t.Fatalf("default limits = %+v", cfg.Limits())
	}
	if cfg.TickInterval() != time.Second/60 {
		t.Fatalf("tick interval = %v", cfg.TickInterval())
	}
}

func TestParseConfig_Flags(t *testing.T) {
	args := []string{
		"-listen", "127.0.0.1:0", "-no-socket", "-mailbox-dir", "/tmp/box",
		"-state-interval", "5", "-trace-capacity", "64", "-hit-capacity", "8",
		"-max-freezes", "3", "-auto-pause", "-fps", "50", "-log-level", "debug",
		"-script-timeout", "250ms",
	}
	cfg, err := parseConfig(args, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	want := ProbeLimits{TraceCapacity: 64, HitCapacity: 8, MaxFreezes: 3, AutoPause: true, ScriptTimeout: 250 * time.Millisecond}
	if cfg.Limits() != want {
		t.Fatalf("limits = %+v, want %+v", cfg.Limits(), want)
	}
	if !cfg.NoSocket || cfg.StateInterval != 5 || cfg.TickInterval() != 20*time.Millisecond {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := cfg.mailboxPath(cfg.CommandFile); got != filepath.Join("/tmp/box", "debug_commands.json") {
		t.Fatalf("command path = %q", got)
	}
	if got := cfg.mailboxPath("/abs/resp.json"); got != "/abs/resp.json" {
		t.Fatalf("absolute path rewritten to %q", got)
	}
	if got := cfg.mailboxPath(""); got != "" {
		t.Fatalf("empty state file resolved to %q", got)
	}
}

func TestParseConfig_PositionalAsset(t *testing.T) {
	cfg, err := parseConfig([]string{"game.LUA"}, &bytes.Buffer{})
	if err != nil || cfg.Program != "game.LUA" || cfg.PRG != "" {
		t.Fatalf("lua positional: %+v, %v", cfg, err)
	}
	cfg, err = parseConfig([]string{"-program", "a.lua", "rom.prg"}, &bytes.Buffer{})
	if err != nil || cfg.Program != "a.lua" || cfg.PRG != "rom.prg" {
		t.Fatalf("prg positional: %+v, %v", cfg, err)
	}
	if _, err := parseConfig([]string{"-program", "a.lua", "b.lua"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected duplicate program to be rejected")
	}
	if _, err := parseConfig([]string{"notes.txt"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected unsupported extension to be rejected")
	}
	if _, err := parseConfig([]string{"a.lua", "b.prg"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected a second positional argument to be rejected")
	}
}

func TestParseConfig_Rejects(t *testing.T) {
	for _, args := range [][]string{
		{"-fps", "0"},
		{"-fps", "5000"},
		{"-state-interval", "0"},
		{"-trace-capacity", "0"},
		{"-max-freezes", "-1"},
		{"-command-file", ""},
		{"-log-level", "chatty"},
		{"-bogus"},
	} {
		if _, err := parseConfig(args, &bytes.Buffer{}); err == nil {
			t.Errorf("parseConfig(%v) accepted", args)
		}
	}
}

func TestParseConfig_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := parseConfig([]string{"-h"}, &out)
	if !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("expected flag.ErrHelp, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage: emuprobe") || !strings.Contains(out.String(), "-listen") {
		t.Fatalf("usage output missing: %q", out.String())
	}
}

func TestAssetKindFromExtension(t *testing.T) {
	tests := map[string]string{
		"frame.lua":  assetProgram,
		"game.prg":   assetImage,
		"dump.BIN":   assetImage,
		"cart.rom":   assetImage,
		"demo.ie65":  assetImage,
		"readme.txt": "",
		"noext":      "",
	}
	for path, want := range tests {
		got, err := assetKindFromExtension(path)
		if got != want || (want == "") != (err != nil) {
			t.Errorf("assetKindFromExtension(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
}

func TestCreateHeadlessHost(t *testing.T) {
	dir := t.TempDir()
	prg := filepath.Join(dir, "reset.prg")
	image := make([]byte, 0x100)
	image[0xFC], image[0xFD] = 0x34, 0x92 // mirrored to $FFFC
	if err := os.WriteFile(prg, image, 0644); err != nil {
		t.Fatal(err)
	}
	prog := filepath.Join(dir, "frame.lua")
	src := "start_pc = cpu.get(\"PC\")\nfunction frame() mem.write(0x10, start_pc % 256) end\n"
	if err := os.WriteFile(prog, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	host, err := createHeadlessHost(ProbeConfig{PRG: prg, Program: prog})
	if err != nil {
		t.Fatalf("createHeadlessHost: %v", err)
	}
	defer host.Close()
	if host.PC() != 0x9234 {
		t.Fatalf("PC = $%04X, want reset vector $9234", host.PC())
	}
	if err := host.FrameAdvance(); err != nil {
		t.Fatalf("FrameAdvance: %v", err)
	}
	if host.ram[0x10] != 0x34 {
		t.Fatalf("frame program saw PC low byte %02X, want 34", host.ram[0x10])
	}

	if _, err := createHeadlessHost(ProbeConfig{PRG: filepath.Join(dir, "missing.prg")}); err == nil {
		t.Fatal("expected missing image to fail")
	}
	bad := filepath.Join(dir, "bad.lua")
	os.WriteFile(bad, []byte("x = 1"), 0644)
	if _, err := createHeadlessHost(ProbeConfig{Program: bad}); err == nil {
		t.Fatal("expected program without frame() to fail")
	}
}

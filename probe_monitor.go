// probe_monitor.go - Instrumentation engine: owns every subsystem and dispatches commands

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
	"log/slog"
	"time"
)

// ProbeLimits sizes the engine's bounded structures.
type ProbeLimits struct {
	TraceCapacity int
	HitCapacity   int
	MaxFreezes    int
	AutoPause     bool
	ScriptTimeout time.Duration
}

func DefaultProbeLimits() ProbeLimits {
	return ProbeLimits{
		TraceCapacity: 1000,
		HitCapacity:   256,
		MaxFreezes:    16,
		ScriptTimeout: 2 * time.Second,
	}
}

// Probe is the engine. Every table, queue and counter lives here and is
// only touched from the tick that drives it.
type Probe struct {
	host   HostEmulator
	logger *slog.Logger
	limits ProbeLimits

	mem     *MemoryAccess
	exec    *ExecutionController
	bps     *BreakpointManager
	dis     *Disassembler
	trace   *TraceRecorder
	watches *WatchList
	freezes *FreezeEngine
	script  *ScriptEngine

	commands commandRegistry
	lastID   int64
	accepted uint64
	failed   uint64

	// stateChanged is set whenever pause state flips so the status
	// publisher can write outside its interval.
	stateChanged bool
	started      time.Time
}

func NewProbe(host HostEmulator, limits ProbeLimits, logger *slog.Logger) *Probe {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	def := DefaultProbeLimits()
	if limits.TraceCapacity <= 0 {
		limits.TraceCapacity = def.TraceCapacity
	}
	if limits.HitCapacity <= 0 {
		limits.HitCapacity = def.HitCapacity
	}
	if limits.MaxFreezes <= 0 {
		limits.MaxFreezes = def.MaxFreezes
	}
	if limits.ScriptTimeout <= 0 {
		limits.ScriptTimeout = def.ScriptTimeout
	}

	p := &Probe{
		host:     host,
		logger:   logger,
		limits:   limits,
		commands: newCommandRegistry(),
		started:  time.Now(),
	}
	p.mem = NewMemoryAccess(host, DomainSystemBus, DomainRAM)
	p.exec = NewExecutionController(host)
	p.exec.beforeFrame = p.frameStages
	p.exec.afterFrame = p.afterFrame
	p.exec.onChange = func(s ExecState) {
		p.stateChanged = true
		p.logger.Info("execution state changed", "component", "exec", "state", s)
	}
	p.dis = NewDisassembler(p.mem, host.PC)
	p.bps = NewBreakpointManager(host, p.mem, p.exec, limits.HitCapacity, logger.With("component", "breakpoint"))
	p.bps.SetAutoPause(limits.AutoPause)
	p.trace = NewTraceRecorder(host, p.dis, limits.TraceCapacity)
	p.watches = NewWatchList(p.mem)
	p.freezes = NewFreezeEngine(p.mem, limits.MaxFreezes, logger.With("component", "freeze"))
	p.script = NewScriptEngine(p, limits.ScriptTimeout)
	return p
}

// Close releases host taps and the script state.
func (p *Probe) Close() {
	p.bps.Clear()
	p.script.Close()
}

// LastCommandID is the id of the newest accepted command.
func (p *Probe) LastCommandID() int64 { return p.lastID }

// Dispatch handles one raw record. It returns nil when the record is
// dropped: unparseable, missing an id, or not newer than the last accepted
// command.
func (p *Probe) Dispatch(data []byte) *Response {
	cmd, err := parseCommand(data)
	if err != nil {
		return nil
	}
	if cmd.ID <= p.lastID {
		p.logger.Debug("stale command dropped", "component", "dispatch", "id", cmd.ID, "last", p.lastID)
		return nil
	}
	p.lastID = cmd.ID
	p.accepted++

	resp := p.execute(cmd)
	if !resp.Success {
		p.failed++
		p.logger.Debug("command failed", "component", "dispatch", "id", cmd.ID, "action", cmd.Action, "code", resp.ErrorCode, "err", resp.Error)
	}
	return resp
}

// execute runs an accepted command. A panicking handler fails its own
// command only.
func (p *Probe) execute(cmd Command) (resp *Response) {
	if cmd.Action == "" {
		return errorResponse(cmd, probeErrorf(CodeMalformedCommand, "command %d has no action", cmd.ID))
	}
	h, ok := p.commands.lookup(cmd.Action)
	if !ok {
		return errorResponse(cmd, probeErrorf(CodeUnknownAction, "unknown action: %s", cmd.Action))
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("handler panic", "component", "dispatch", "action", cmd.Action, "panic", r)
			resp = errorResponse(cmd, probeErrorf(CodeHostError, "internal error in %s: %v", cmd.Action, r))
		}
	}()
	data, err := h.run(p, cmd.Raw)
	if err != nil {
		return errorResponse(cmd, err)
	}
	return okResponse(cmd, data)
}

// frameStages are the per-frame stages that precede an advancing frame:
// trace capture, then freeze application.
func (p *Probe) frameStages() {
	p.trace.Capture()
	p.freezes.Apply()
}

// afterFrame re-pins frozen values over whatever the frame wrote, so reads
// between frames always see the pinned value.
func (p *Probe) afterFrame() {
	p.freezes.Apply()
}

// takeStateChange reports and resets the pause-state change flag.
func (p *Probe) takeStateChange() bool {
	changed := p.stateChanged
	p.stateChanged = false
	return changed
}

// cpuFlags6502 decodes the 6502 status register.
func cpuFlags6502(p uint64) map[string]bool {
	return map[string]bool{
		"N": p&0x80 != 0,
		"V": p&0x40 != 0,
		"U": p&0x20 != 0,
		"B": p&0x10 != 0,
		"D": p&0x08 != 0,
		"I": p&0x04 != 0,
		"Z": p&0x02 != 0,
		"C": p&0x01 != 0,
	}
}

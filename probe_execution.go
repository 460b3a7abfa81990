// probe_execution.go - RUNNING/PAUSED state machine and frame/instruction stepping

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
	"strings"
)

type ExecState int

const (
	ExecRunning ExecState = iota
	ExecPaused
)

func (s ExecState) String() string {
	if s == ExecPaused {
		return "PAUSED"
	}
	return "RUNNING"
}

// StepMode selects the granularity of execution.step.
type StepMode int

const (
	StepFrame StepMode = iota
	StepInstruction
)

// ParseStepMode maps the wire stepType. An empty mode means frame.
func ParseStepMode(s string) (StepMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "frame", "frames":
		return StepFrame, true
	case "instruction", "instr", "insn":
		return StepInstruction, true
	}
	return 0, false
}

func (m StepMode) String() string {
	if m == StepInstruction {
		return "instruction"
	}
	return "frame"
}

// StepResult reports what a step did.
type StepResult struct {
	Stepped    int    `json:"stepped"`
	StepType   string `json:"stepType"`
	PCBefore   string `json:"pcBefore"`
	PCAfter    string `json:"pcAfter"`
	FrameCount uint64 `json:"frameCount"`
	State      string `json:"state"`
}

// ExecutionController owns the pause state. It never blocks: while paused
// the tick driver keeps running and yields instead of advancing.
type ExecutionController struct {
	host  HostEmulator
	state ExecState

	// beforeFrame and afterFrame bracket every frame the controller
	// advances on its own (execution.step).
	beforeFrame func()
	afterFrame  func()
	onChange    func(ExecState)

	// interrupted is set by forcePause and stops a step in progress.
	interrupted bool
}

func NewExecutionController(host HostEmulator) *ExecutionController {
	return &ExecutionController{host: host, state: ExecRunning}
}

func (e *ExecutionController) State() ExecState { return e.state }
func (e *ExecutionController) Paused() bool     { return e.state == ExecPaused }

func (e *ExecutionController) setState(s ExecState) bool {
	if e.state == s {
		return false
	}
	e.state = s
	if e.onChange != nil {
		e.onChange(s)
	}
	return true
}

// Pause enters PAUSED. It reports whether the state changed; pausing while
// paused is not an error.
func (e *ExecutionController) Pause() bool {
	return e.setState(ExecPaused)
}

// Resume enters RUNNING, symmetric to Pause.
func (e *ExecutionController) Resume() bool {
	return e.setState(ExecRunning)
}

// forcePause is used from inside a host access tap. The host is asked to
// stop the frame in progress when it supports that.
func (e *ExecutionController) forcePause() {
	e.interrupted = true
	e.setState(ExecPaused)
	if p, ok := e.host.(Pauser); ok {
		p.RequestPause()
	}
}

// maxStepCount bounds one execution.step so a command cannot hold the tick
// driver for longer than a minute of emulated time.
const maxStepCount = 3600

// Step advances count frames or instructions. Instruction granularity
// needs an InstructionStepper host; there is no silent fallback. A forced
// pause from a breakpoint ends the step after the frame or instruction
// that hit it.
func (e *ExecutionController) Step(count int, mode StepMode) (StepResult, error) {
	if !within(count, 1, maxStepCount) {
		return StepResult{}, probeErrorf(CodeInvalidValue, "count must be between 1 and %d", maxStepCount)
	}
	e.interrupted = false
	res := StepResult{
		StepType: mode.String(),
		PCBefore: formatAddress(e.host.PC()),
	}

	switch mode {
	case StepFrame:
		for range count {
			if e.beforeFrame != nil {
				e.beforeFrame()
			}
			err := e.host.FrameAdvance()
			if e.afterFrame != nil {
				e.afterFrame()
			}
			if err != nil {
				return res, hostError("frame advance", err)
			}
			res.Stepped++
			if e.interrupted {
				break
			}
		}
	case StepInstruction:
		stepper, ok := e.host.(InstructionStepper)
		if !ok {
			return res, probeErrorf(CodeUnsupportedStepMode, "host cannot step single instructions; use stepType frame")
		}
		for range count {
			if err := stepper.StepInstruction(); err != nil {
				return res, hostError("instruction step", err)
			}
			res.Stepped++
			if e.interrupted {
				break
			}
		}
	}

	res.PCAfter = formatAddress(e.host.PC())
	res.FrameCount = e.host.FrameCount()
	res.State = e.state.String()
	return res, nil
}

// ExecStatus is the getState result.
type ExecStatus struct {
	State      string `json:"state"`
	IsPaused   bool   `json:"isPaused"`
	FrameCount uint64 `json:"frameCount"`
}

func (e *ExecutionController) Status() ExecStatus {
	return ExecStatus{
		State:      e.state.String(),
		IsPaused:   e.Paused(),
		FrameCount: e.host.FrameCount(),
	}
}

// probe_interface.go - Host emulator capabilities consumed by the instrumentation engine

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
	"fmt"
	"io"
	"strings"
)

// Well-known domain names. The host decides which domains exist; these are
// the names the engine falls back to when a command omits one.
const (
	DomainSystemBus = "System Bus"
	DomainRAM       = "RAM"
	DomainPRGROM    = "PRG ROM"
	DomainCHR       = "CHR"
)

// AccessKind selects which kind of memory access a tap observes.
type AccessKind int

const (
	AccessRead AccessKind = iota
	AccessWrite
	AccessExecute
)

func (k AccessKind) String() string {
	switch k {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessExecute:
		return "execute"
	}
	return fmt.Sprintf("AccessKind(%d)", int(k))
}

// ParseAccessKind maps the wire spelling of a breakpoint type.
func ParseAccessKind(s string) (AccessKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "r":
		return AccessRead, true
	case "write", "w":
		return AccessWrite, true
	case "execute", "exec", "x":
		return AccessExecute, true
	}
	return 0, false
}

// RegisterInfo describes a single CPU register.
type RegisterInfo struct {
	Name     string `json:"name"`
	BitWidth int    `json:"bitWidth"`
	Value    uint64 `json:"value"`
	Group    string `json:"group,omitempty"`
}

// MemoryDomain is a read-only descriptor of a host memory region.
type MemoryDomain struct {
	Name string `json:"name"`
	Size uint64 `json:"size"`
}

// AccessFunc is called synchronously by the host when a tap fires, before
// the triggering access completes. value is the byte being read or written
// (the opcode for execute taps).
type AccessFunc func(addr uint64, value byte)

// AccessHandle is a live tap registration. Closing it unregisters the tap.
type AccessHandle interface {
	io.Closer
}

// HostEmulator is the set of primitives the engine orchestrates. The engine
// never reimplements any of them.
type HostEmulator interface {
	Domains() []MemoryDomain
	CurrentDomain() string
	UseDomain(name string) error
	ReadByte(addr uint64) (byte, error)
	WriteByte(addr uint64, value byte) error

	Registers() []RegisterInfo
	PC() uint64
	FrameCount() uint64

	// FrameAdvance runs exactly one emulated frame. Yield returns control to
	// the host for one tick without advancing emulation.
	FrameAdvance() error
	Yield()

	OnMemoryAccess(kind AccessKind, addr uint64, domain string, fn AccessFunc) (AccessHandle, error)

	SaveState(slot int, path string) error
	LoadState(slot int, path string) error
	SetInput(player int, buttons map[string]bool) error
}

// InstructionStepper is implemented by hosts that can execute exactly one
// CPU instruction on request.
type InstructionStepper interface {
	StepInstruction() error
}

// Pauser is implemented by hosts that can stop the frame in progress when a
// breakpoint forces a pause.
type Pauser interface {
	RequestPause()
}

// registerValue returns a named register from a snapshot.
func registerValue(regs []RegisterInfo, name string) (uint64, bool) {
	for _, r := range regs {
		if strings.EqualFold(r.Name, name) {
			return r.Value, true
		}
	}
	return 0, false
}

// hexRegisters renders a register snapshot the way the monitor prints it.
func hexRegisters(regs []RegisterInfo) map[string]string {
	out := make(map[string]string, len(regs))
	for _, r := range regs {
		digits := max(r.BitWidth/4, 2)
		out[r.Name] = fmt.Sprintf("$%0*X", digits, r.Value)
	}
	return out
}

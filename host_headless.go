// host_headless.go - Headless 6502 host: memory domains, registers, access taps and input

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
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	headlessBusSize = 0x10000
	headlessRAMSize = 0x0800
	headlessRAMEnd  = 0x1FFF // RAM mirrors through here
	headlessPRGBase = 0x8000
	headlessPRGSize = 0x8000
	headlessCHRSize = 0x2000
)

// errPauseRequested unwinds the frame program when a tap forces a pause.
var errPauseRequested = errors.New("pause requested")

// cpuState6502 is the register file of the headless host.
type cpuState6502 struct {
	A, X, Y, SP byte
	PC          uint16
	P           byte
}

type tapKey struct {
	kind   AccessKind
	domain string
	addr   uint64
}

type tapEntry struct {
	id int
	fn AccessFunc
}

// HeadlessHost is a display-less host. A Lua frame program stands in for
// the CPU: its bus accesses fire the same taps a real core would.
type HeadlessHost struct {
	ram [headlessRAMSize]byte
	io  [headlessPRGBase - headlessRAMEnd - 1]byte
	prg [headlessPRGSize]byte
	chr [headlessCHRSize]byte

	domain string
	cpu    cpuState6502
	frame  uint64

	taps      map[tapKey][]tapEntry
	nextTapID int

	input          map[int]map[string]bool
	slots          map[int][]byte
	program        *FrameProgram
	pauseRequested bool
}

func NewHeadlessHost() *HeadlessHost {
	h := &HeadlessHost{
		domain: DomainSystemBus,
		taps:   make(map[tapKey][]tapEntry),
		input:  make(map[int]map[string]bool),
		slots:  make(map[int][]byte),
	}
	h.Reset()
	return h
}

// Reset puts the CPU in its power-on state with PC at the reset vector.
func (h *HeadlessHost) Reset() {
	h.cpu = cpuState6502{SP: 0xFD, P: 0x24}
	h.cpu.PC = uint16(h.prg[0xFFFC-headlessPRGBase]) | uint16(h.prg[0xFFFD-headlessPRGBase])<<8
}

// LoadPRG copies a program image into PRG ROM and resets the CPU.
func (h *HeadlessHost) LoadPRG(data []byte) error {
	if len(data) == 0 || len(data) > headlessPRGSize {
		return fmt.Errorf("prg image must be 1-%d bytes, got %d", headlessPRGSize, len(data))
	}
	clear(h.prg[:])
	// Smaller images are mirrored so the vectors land at the top.
	for off := 0; off < headlessPRGSize; off += len(data) {
		copy(h.prg[off:], data)
	}
	h.Reset()
	return nil
}

// SetProgram installs the frame program run by FrameAdvance.
func (h *HeadlessHost) SetProgram(p *FrameProgram) {
	if h.program != nil {
		h.program.Close()
	}
	h.program = p
}

func (h *HeadlessHost) Close() {
	if h.program != nil {
		h.program.Close()
		h.program = nil
	}
}

// ---------------------------------------------------------------------------
// Domains
// ---------------------------------------------------------------------------

func (h *HeadlessHost) Domains() []MemoryDomain {
	return []MemoryDomain{
		{Name: DomainSystemBus, Size: headlessBusSize},
		{Name: DomainRAM, Size: headlessRAMSize},
		{Name: DomainPRGROM, Size: headlessPRGSize},
		{Name: DomainCHR, Size: headlessCHRSize},
	}
}

func (h *HeadlessHost) domainSize(name string) (uint64, bool) {
	for _, d := range h.Domains() {
		if d.Name == name {
			return d.Size, true
		}
	}
	return 0, false
}

func (h *HeadlessHost) CurrentDomain() string { return h.domain }

func (h *HeadlessHost) UseDomain(name string) error {
	if _, ok := h.domainSize(name); !ok {
		return fmt.Errorf("no memory domain %q", name)
	}
	h.domain = name
	return nil
}

// ReadByte reads the active domain. Host-side reads never fire taps.
func (h *HeadlessHost) ReadByte(addr uint64) (byte, error) {
	switch h.domain {
	case DomainRAM:
		if addr < headlessRAMSize {
			return h.ram[addr], nil
		}
	case DomainPRGROM:
		if addr < headlessPRGSize {
			return h.prg[addr], nil
		}
	case DomainCHR:
		if addr < headlessCHRSize {
			return h.chr[addr], nil
		}
	case DomainSystemBus:
		if addr < headlessBusSize {
			return h.busPeek(uint16(addr)), nil
		}
	}
	return 0, fmt.Errorf("address $%X outside %s", addr, h.domain)
}

// WriteByte writes the active domain. PRG ROM is writable through its own
// domain but not through the bus.
func (h *HeadlessHost) WriteByte(addr uint64, value byte) error {
	switch h.domain {
	case DomainRAM:
		if addr < headlessRAMSize {
			h.ram[addr] = value
			return nil
		}
	case DomainPRGROM:
		if addr < headlessPRGSize {
			h.prg[addr] = value
			return nil
		}
	case DomainCHR:
		if addr < headlessCHRSize {
			h.chr[addr] = value
			return nil
		}
	case DomainSystemBus:
		if addr < headlessBusSize {
			h.busPoke(uint16(addr), value)
			return nil
		}
	}
	return fmt.Errorf("address $%X outside %s", addr, h.domain)
}

func (h *HeadlessHost) busPeek(addr uint16) byte {
	switch {
	case addr <= headlessRAMEnd:
		return h.ram[addr&(headlessRAMSize-1)]
	case addr < headlessPRGBase:
		return h.io[addr-headlessRAMEnd-1]
	default:
		return h.prg[addr-headlessPRGBase]
	}
}

func (h *HeadlessHost) busPoke(addr uint16, value byte) {
	switch {
	case addr <= headlessRAMEnd:
		h.ram[addr&(headlessRAMSize-1)] = value
	case addr < headlessPRGBase:
		h.io[addr-headlessRAMEnd-1] = value
	}
}

// ---------------------------------------------------------------------------
// CPU-side bus accesses (frame program)
// ---------------------------------------------------------------------------

// fire calls every tap registered for kind at a bus address, including taps
// on the RAM or PRG ROM domain the address maps to.
func (h *HeadlessHost) fire(kind AccessKind, addr uint16, value byte) {
	h.fireKey(tapKey{kind, DomainSystemBus, uint64(addr)}, uint64(addr), value)
	switch {
	case addr <= headlessRAMEnd:
		off := uint64(addr & (headlessRAMSize - 1))
		h.fireKey(tapKey{kind, DomainRAM, off}, off, value)
	case addr >= headlessPRGBase:
		off := uint64(addr - headlessPRGBase)
		h.fireKey(tapKey{kind, DomainPRGROM, off}, off, value)
	}
}

func (h *HeadlessHost) fireKey(key tapKey, addr uint64, value byte) {
	// Copy so a callback may add or remove taps.
	for _, t := range slices.Clone(h.taps[key]) {
		t.fn(addr, value)
	}
}

func (h *HeadlessHost) cpuRead(addr uint16) byte {
	v := h.busPeek(addr)
	h.fire(AccessRead, addr, v)
	return v
}

func (h *HeadlessHost) cpuWrite(addr uint16, value byte) {
	h.fire(AccessWrite, addr, value)
	h.busPoke(addr, value)
}

// cpuExec moves PC to addr and fetches the opcode there.
func (h *HeadlessHost) cpuExec(addr uint16) byte {
	h.cpu.PC = addr
	op := h.busPeek(addr)
	h.fire(AccessExecute, addr, op)
	return op
}

// ---------------------------------------------------------------------------
// Registers and execution
// ---------------------------------------------------------------------------

func (h *HeadlessHost) Registers() []RegisterInfo {
	c := h.cpu
	return []RegisterInfo{
		{Name: "A", BitWidth: 8, Value: uint64(c.A), Group: "general"},
		{Name: "X", BitWidth: 8, Value: uint64(c.X), Group: "general"},
		{Name: "Y", BitWidth: 8, Value: uint64(c.Y), Group: "general"},
		{Name: "SP", BitWidth: 8, Value: uint64(c.SP), Group: "general"},
		{Name: "PC", BitWidth: 16, Value: uint64(c.PC), Group: "general"},
		{Name: "P", BitWidth: 8, Value: uint64(c.P), Group: "flags"},
	}
}

// SetRegister updates one register by name. SR is accepted for P.
func (h *HeadlessHost) SetRegister(name string, value uint64) bool {
	c := &h.cpu
	switch strings.ToUpper(name) {
	case "A":
		c.A = byte(value)
	case "X":
		c.X = byte(value)
	case "Y":
		c.Y = byte(value)
	case "SP":
		c.SP = byte(value)
	case "PC":
		c.PC = uint16(value)
	case "P", "SR":
		c.P = byte(value)
	default:
		return false
	}
	return true
}

func (h *HeadlessHost) PC() uint64         { return uint64(h.cpu.PC) }
func (h *HeadlessHost) FrameCount() uint64 { return h.frame }

// FrameAdvance runs the frame program once. A pause forced by a tap cuts
// the frame short; the frame still counts.
func (h *HeadlessHost) FrameAdvance() error {
	h.pauseRequested = false
	defer func() { h.frame++ }()
	if h.program == nil {
		return nil
	}
	err := h.program.RunFrame()
	if err != nil && h.pauseRequested {
		return nil
	}
	return err
}

// Yield does nothing in a headless host; there is no window to service.
func (h *HeadlessHost) Yield() {}

// RequestPause stops the frame program at its next bus access.
func (h *HeadlessHost) RequestPause() { h.pauseRequested = true }

// ---------------------------------------------------------------------------
// Taps
// ---------------------------------------------------------------------------

type tapHandle struct {
	host *HeadlessHost
	key  tapKey
	id   int
}

func (t *tapHandle) Close() error {
	entries := t.host.taps[t.key]
	i := slices.IndexFunc(entries, func(e tapEntry) bool { return e.id == t.id })
	if i < 0 {
		return fmt.Errorf("tap %d already removed", t.id)
	}
	entries = slices.Delete(entries, i, i+1)
	if len(entries) == 0 {
		delete(t.host.taps, t.key)
	} else {
		t.host.taps[t.key] = entries
	}
	return nil
}

func (h *HeadlessHost) OnMemoryAccess(kind AccessKind, addr uint64, domain string, fn AccessFunc) (AccessHandle, error) {
	size, ok := h.domainSize(domain)
	if !ok {
		return nil, fmt.Errorf("no memory domain %q", domain)
	}
	if addr >= size {
		return nil, fmt.Errorf("address $%X outside %s", addr, domain)
	}
	if domain == DomainCHR {
		return nil, fmt.Errorf("%s is not on the CPU bus", domain)
	}
	h.nextTapID++
	key := tapKey{kind: kind, domain: domain, addr: addr}
	h.taps[key] = append(h.taps[key], tapEntry{id: h.nextTapID, fn: fn})
	return &tapHandle{host: h, key: key, id: h.nextTapID}, nil
}

// tapCount is the number of live taps.
func (h *HeadlessHost) tapCount() int {
	n := 0
	for _, entries := range h.taps {
		n += len(entries)
	}
	return n
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

// SetInput replaces a player's held buttons. Button names are case
// insensitive.
func (h *HeadlessHost) SetInput(player int, buttons map[string]bool) error {
	if player < 1 || player > 4 {
		return fmt.Errorf("player must be 1-4, got %d", player)
	}
	held := make(map[string]bool, len(buttons))
	for name, down := range buttons {
		held[strings.ToLower(name)] = down
	}
	h.input[player] = held
	return nil
}

func (h *HeadlessHost) buttonDown(player int, button string) bool {
	return h.input[player][strings.ToLower(button)]
}

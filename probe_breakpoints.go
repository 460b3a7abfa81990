// probe_breakpoints.go - Access taps, hit records and the bounded hit queue

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
	"slices"
	"time"
)

// Breakpoint is an active access tap.
type Breakpoint struct {
	ID        int
	Type      AccessKind
	Address   uint64
	Domain    string
	Enabled   bool
	HitCount  uint64
	Condition *BreakpointCondition

	// arrivals counts every firing, recorded or not; hitcount conditions
	// test against it.
	arrivals uint64
	handle   AccessHandle
}

// BreakpointInfo is the wire form of a breakpoint.
type BreakpointInfo struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	Address   string `json:"address"`
	Domain    string `json:"domain"`
	Enabled   bool   `json:"enabled"`
	HitCount  uint64 `json:"hitCount"`
	Condition string `json:"condition,omitempty"`
}

func (bp *Breakpoint) Info() BreakpointInfo {
	return BreakpointInfo{
		ID:        bp.ID,
		Type:      bp.Type.String(),
		Address:   formatAddress(bp.Address),
		Domain:    bp.Domain,
		Enabled:   bp.Enabled,
		HitCount:  bp.HitCount,
		Condition: bp.Condition.String(),
	}
}

// BreakpointHit is an immutable record of one recorded tap firing.
type BreakpointHit struct {
	BreakpointID int               `json:"breakpointId"`
	Type         string            `json:"type"`
	Address      string            `json:"address"`
	Domain       string            `json:"domain"`
	Value        byte              `json:"value"`
	PC           string            `json:"PC"`
	Registers    map[string]uint64 `json:"registers"`
	Frame        uint64            `json:"frame"`
	Timestamp    int64             `json:"timestamp"`
}

// registerMap flattens a register snapshot for JSON.
func registerMap(regs []RegisterInfo) map[string]uint64 {
	out := make(map[string]uint64, len(regs))
	for _, r := range regs {
		out[r.Name] = r.Value
	}
	return out
}

// BreakpointManager owns breakpoint records and the hit queue.
type BreakpointManager struct {
	host   HostEmulator
	mem    *MemoryAccess
	exec   *ExecutionController
	logger *slog.Logger
	now    func() time.Time

	breakpoints map[int]*Breakpoint
	nextID      int
	hits        *ringBuffer[BreakpointHit]
	autoPause   bool
	dropped     uint64
}

func NewBreakpointManager(host HostEmulator, mem *MemoryAccess, exec *ExecutionController, hitCapacity int, logger *slog.Logger) *BreakpointManager {
	return &BreakpointManager{
		host:        host,
		mem:         mem,
		exec:        exec,
		logger:      logger,
		now:         time.Now,
		breakpoints: make(map[int]*Breakpoint),
		nextID:      1,
		hits:        newRingBuffer[BreakpointHit](hitCapacity),
	}
}

// Add registers a tap and returns the new breakpoint.
func (m *BreakpointManager) Add(kind AccessKind, addr uint64, domain string, cond *BreakpointCondition) (*Breakpoint, error) {
	d, err := m.mem.resolveDomain(domain)
	if err != nil {
		return nil, err
	}
	if addr >= d.Size {
		return nil, probeErrorf(CodeInvalidAddress, "address %s outside %s (size %d)", formatAddress(addr), d.Name, d.Size)
	}

	bp := &Breakpoint{
		ID:        m.nextID,
		Type:      kind,
		Address:   addr,
		Domain:    d.Name,
		Enabled:   true,
		Condition: cond,
	}
	handle, err := m.host.OnMemoryAccess(kind, addr, d.Name, func(a uint64, v byte) {
		m.fire(bp, a, v)
	})
	if err != nil {
		return nil, hostError("register tap", err)
	}
	bp.handle = handle
	m.nextID++
	m.breakpoints[bp.ID] = bp
	m.logger.Debug("breakpoint added", "id", bp.ID, "type", kind, "address", formatAddress(addr), "domain", d.Name)
	return bp, nil
}

// fire runs synchronously inside the host's access, before the access
// completes.
func (m *BreakpointManager) fire(bp *Breakpoint, addr uint64, value byte) {
	if _, live := m.breakpoints[bp.ID]; !live {
		return
	}
	bp.arrivals++
	if !bp.Enabled {
		return
	}

	regs := m.host.Registers()
	env := conditionEnv{
		registers: regs,
		arrivals:  bp.arrivals,
		value:     value,
		readByte: func(a uint64) (byte, bool) {
			b, err := m.mem.Read(a, "")
			return b, err == nil
		},
	}
	if !bp.Condition.Holds(env) {
		return
	}

	hit := BreakpointHit{
		BreakpointID: bp.ID,
		Type:         bp.Type.String(),
		Address:      formatAddress(addr),
		Domain:       bp.Domain,
		Value:        value,
		PC:           formatAddress(m.host.PC()),
		Registers:    registerMap(regs),
		Frame:        m.host.FrameCount(),
		Timestamp:    m.now().UnixMilli(),
	}
	if m.hits.Push(hit) {
		m.dropped++
	}
	bp.HitCount++

	if m.autoPause {
		m.exec.forcePause()
	}
}

// Remove unregisters one breakpoint.
func (m *BreakpointManager) Remove(id int) error {
	bp, ok := m.breakpoints[id]
	if !ok {
		return probeErrorf(CodeBreakpointNotFound, "breakpoint %d not found", id)
	}
	delete(m.breakpoints, id)
	if err := bp.handle.Close(); err != nil {
		return hostError("unregister tap", err)
	}
	return nil
}

// Clear unregisters every breakpoint and returns how many were removed.
// Ids are not reset.
func (m *BreakpointManager) Clear() int {
	n := len(m.breakpoints)
	for id, bp := range m.breakpoints {
		delete(m.breakpoints, id)
		if err := bp.handle.Close(); err != nil {
			m.logger.Warn("unregister tap failed", "id", id, "err", err)
		}
	}
	return n
}

// SetEnabled toggles recording for a breakpoint without touching its tap.
func (m *BreakpointManager) SetEnabled(id int, enabled bool) (*Breakpoint, error) {
	bp, ok := m.breakpoints[id]
	if !ok {
		return nil, probeErrorf(CodeBreakpointNotFound, "breakpoint %d not found", id)
	}
	bp.Enabled = enabled
	return bp, nil
}

// List returns every breakpoint in id order.
func (m *BreakpointManager) List() []BreakpointInfo {
	ids := make([]int, 0, len(m.breakpoints))
	for id := range m.breakpoints {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]BreakpointInfo, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.breakpoints[id].Info())
	}
	return out
}

func (m *BreakpointManager) Count() int { return len(m.breakpoints) }

func (m *BreakpointManager) SetAutoPause(enabled bool) { m.autoPause = enabled }
func (m *BreakpointManager) AutoPause() bool           { return m.autoPause }

// Hits returns the queue oldest first.
func (m *BreakpointManager) Hits() []BreakpointHit { return m.hits.Items() }

// LastHit returns the newest hit, or false when the queue is empty.
func (m *BreakpointManager) LastHit() (BreakpointHit, bool) { return m.hits.Last() }

// ClearHits empties the queue and returns how many hits were discarded.
func (m *BreakpointManager) ClearHits() int {
	n := m.hits.Len()
	m.hits.Clear()
	return n
}

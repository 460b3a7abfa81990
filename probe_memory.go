// probe_memory.go - Domain-aware memory access, search, snapshot and diff

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
	"maps"
	"slices"
	"strings"
)

// CompareFilter selects which addresses a snapshot comparison reports.
type CompareFilter int

const (
	FilterChanged CompareFilter = iota
	FilterIncreased
	FilterDecreased
	FilterSame
)

// ParseCompareFilter maps the wire spelling of a compare filter. An empty
// filter means "changed".
func ParseCompareFilter(s string) (CompareFilter, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "changed":
		return FilterChanged, true
	case "increased":
		return FilterIncreased, true
	case "decreased":
		return FilterDecreased, true
	case "same", "unchanged":
		return FilterSame, true
	}
	return 0, false
}

func (f CompareFilter) matches(diff int) bool {
	switch f {
	case FilterChanged:
		return diff != 0
	case FilterIncreased:
		return diff > 0
	case FilterDecreased:
		return diff < 0
	case FilterSame:
		return diff == 0
	}
	return false
}

// MemoryChange is one address reported by a snapshot comparison.
type MemoryChange struct {
	Address uint64 `json:"address"`
	Hex     string `json:"hex"`
	Old     byte   `json:"old"`
	New     byte   `json:"new"`
	Diff    int    `json:"diff"`
}

// MemoryAccess is the engine's only path to host memory. Every operation
// that selects a domain restores the host's previously active domain before
// returning.
type MemoryAccess struct {
	host          HostEmulator
	defaultDomain string
	workDomain    string
	snapshots     map[string][]byte
}

func NewMemoryAccess(host HostEmulator, defaultDomain, workDomain string) *MemoryAccess {
	if defaultDomain == "" {
		defaultDomain = DomainSystemBus
	}
	if workDomain == "" {
		workDomain = DomainRAM
	}
	return &MemoryAccess{
		host:          host,
		defaultDomain: defaultDomain,
		workDomain:    workDomain,
		snapshots:     make(map[string][]byte),
	}
}

// Domains lists the host's memory domains.
func (m *MemoryAccess) Domains() []MemoryDomain {
	return m.host.Domains()
}

// resolveDomain maps an omitted domain to the default and looks up its size.
func (m *MemoryAccess) resolveDomain(domain string) (MemoryDomain, error) {
	if domain == "" {
		domain = m.defaultDomain
	}
	for _, d := range m.host.Domains() {
		if strings.EqualFold(d.Name, domain) {
			return d, nil
		}
	}
	return MemoryDomain{}, probeErrorf(CodeInvalidDomain, "unknown memory domain: %s", domain)
}

// withDomain runs fn with domain active on the host, restoring the previous
// domain afterwards.
func (m *MemoryAccess) withDomain(domain string, fn func(d MemoryDomain) error) (err error) {
	d, err := m.resolveDomain(domain)
	if err != nil {
		return err
	}
	prev := m.host.CurrentDomain()
	if prev != d.Name {
		if err := m.host.UseDomain(d.Name); err != nil {
			return hostError("select domain", err)
		}
		defer func() {
			if rerr := m.host.UseDomain(prev); rerr != nil && err == nil {
				err = hostError("restore domain", rerr)
			}
		}()
	}
	return fn(d)
}

// Read returns one byte.
func (m *MemoryAccess) Read(addr uint64, domain string) (byte, error) {
	var v byte
	err := m.withDomain(domain, func(d MemoryDomain) error {
		if addr >= d.Size {
			return probeErrorf(CodeInvalidAddress, "address %s outside %s (size %d)", formatAddress(addr), d.Name, d.Size)
		}
		b, err := m.host.ReadByte(addr)
		if err != nil {
			return hostError("read", err)
		}
		v = b
		return nil
	})
	return v, err
}

// Write stores one byte.
func (m *MemoryAccess) Write(addr uint64, value byte, domain string) error {
	return m.withDomain(domain, func(d MemoryDomain) error {
		if addr >= d.Size {
			return probeErrorf(CodeInvalidAddress, "address %s outside %s (size %d)", formatAddress(addr), d.Name, d.Size)
		}
		if err := m.host.WriteByte(addr, value); err != nil {
			return hostError("write", err)
		}
		return nil
	})
}

// ReadRange returns length bytes starting at addr.
func (m *MemoryAccess) ReadRange(addr uint64, length int, domain string) ([]byte, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	var out []byte
	err := m.withDomain(domain, func(d MemoryDomain) error {
		if addr >= d.Size {
			return probeErrorf(CodeInvalidAddress, "address %s outside %s (size %d)", formatAddress(addr), d.Name, d.Size)
		}
		if uint64(length) > d.Size-addr {
			return probeErrorf(CodeInvalidLength, "range %s+%d runs past the end of %s", formatAddress(addr), length, d.Name)
		}
		buf := make([]byte, length)
		for i := range buf {
			b, err := m.host.ReadByte(addr + uint64(i))
			if err != nil {
				return hostError("read", err)
			}
			buf[i] = b
		}
		out = buf
		return nil
	})
	return out, err
}

// readAvailable reads up to n bytes at addr, stopping silently at the end of
// the domain. It is used by the disassembler, which must make progress even
// at the top of memory.
func (m *MemoryAccess) readAvailable(addr uint64, n int, domain string) ([]byte, error) {
	var out []byte
	err := m.withDomain(domain, func(d MemoryDomain) error {
		if addr >= d.Size {
			return probeErrorf(CodeInvalidAddress, "address %s outside %s (size %d)", formatAddress(addr), d.Name, d.Size)
		}
		n = int(min(uint64(n), d.Size-addr))
		out = make([]byte, 0, n)
		for i := range n {
			b, err := m.host.ReadByte(addr + uint64(i))
			if err != nil {
				return hostError("read", err)
			}
			out = append(out, b)
		}
		return nil
	})
	return out, err
}

// dump copies an entire domain.
func (m *MemoryAccess) dump(domain string) ([]byte, error) {
	var out []byte
	err := m.withDomain(domain, func(d MemoryDomain) error {
		buf := make([]byte, d.Size)
		for i := range buf {
			b, err := m.host.ReadByte(uint64(i))
			if err != nil {
				return hostError("read", err)
			}
			buf[i] = b
		}
		out = buf
		return nil
	})
	return out, err
}

// Search returns every working-RAM offset holding value.
func (m *MemoryAccess) Search(value byte) ([]uint64, error) {
	return m.SearchRange(value, value)
}

// SearchRange returns every working-RAM offset whose byte lies in [lo, hi].
func (m *MemoryAccess) SearchRange(lo, hi byte) ([]uint64, error) {
	if lo > hi {
		return nil, probeErrorf(CodeInvalidValue, "min $%02X is greater than max $%02X", lo, hi)
	}
	mem, err := m.dump(m.workDomain)
	if err != nil {
		return nil, err
	}
	matches := []uint64{}
	for i, b := range mem {
		if within(b, lo, hi) {
			matches = append(matches, uint64(i))
		}
	}
	return matches, nil
}

// Snapshot copies working RAM under name, replacing any previous snapshot
// with that name. It returns the number of bytes captured.
func (m *MemoryAccess) Snapshot(name string) (int, error) {
	if name == "" {
		name = "default"
	}
	mem, err := m.dump(m.workDomain)
	if err != nil {
		return 0, err
	}
	m.snapshots[name] = mem
	return len(mem), nil
}

// Compare diffs working RAM against a snapshot. The four filters partition
// the domain: changed = increased + decreased, same is its complement.
func (m *MemoryAccess) Compare(name string, filter CompareFilter) ([]MemoryChange, error) {
	if name == "" {
		name = "default"
	}
	base, ok := m.snapshots[name]
	if !ok {
		return nil, probeErrorf(CodeSnapshotNotFound, "snapshot not found: %s", name)
	}
	cur, err := m.dump(m.workDomain)
	if err != nil {
		return nil, err
	}
	changes := []MemoryChange{}
	for i := range min(len(base), len(cur)) {
		diff := int(cur[i]) - int(base[i])
		if !filter.matches(diff) {
			continue
		}
		changes = append(changes, MemoryChange{
			Address: uint64(i),
			Hex:     formatAddress(uint64(i)),
			Old:     base[i],
			New:     cur[i],
			Diff:    diff,
		})
	}
	return changes, nil
}

// SnapshotNames lists stored snapshots in name order.
func (m *MemoryAccess) SnapshotNames() []string {
	return slices.Sorted(maps.Keys(m.snapshots))
}

// probe_freeze.go - Pinned address/value pairs re-asserted every tick

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
)

// Freeze is a pinned address/value pair.
type Freeze struct {
	ID      int    `json:"id"`
	Address uint64 `json:"-"`
	Hex     string `json:"address"`
	Domain  string `json:"domain,omitempty"`
	Value   byte   `json:"value"`
	Label   string `json:"label,omitempty"`
}

// FreezeSelector picks what freeze.remove removes. Exactly one field must
// be set.
type FreezeSelector struct {
	ID      *int
	Address *uint64
	All     bool
}

type FreezeEngine struct {
	mem    *MemoryAccess
	logger *slog.Logger
	limit  int
	nextID int
	byID   map[int]*Freeze
	byAddr map[uint64]int
}

func NewFreezeEngine(mem *MemoryAccess, limit int, logger *slog.Logger) *FreezeEngine {
	return &FreezeEngine{
		mem:    mem,
		logger: logger,
		limit:  limit,
		nextID: 1,
		byID:   make(map[int]*Freeze),
		byAddr: make(map[uint64]int),
	}
}

// Add pins addr to value. A second freeze on the same address is refused
// with the existing id so callers can treat add as idempotent.
func (f *FreezeEngine) Add(addr uint64, value byte, label, domain string) (*Freeze, error) {
	if id, ok := f.byAddr[addr]; ok {
		return nil, &ProbeError{
			Code: CodeFreezeAlreadyExists,
			Msg:  "address " + formatAddress(addr) + " is already frozen",
			Data: map[string]int{"id": id},
		}
	}
	if len(f.byID) >= f.limit {
		return nil, probeErrorf(CodeFreezeLimitExceeded, "freeze limit of %d reached", f.limit)
	}
	if err := f.mem.Write(addr, value, domain); err != nil {
		return nil, err
	}

	fr := &Freeze{
		ID:      f.nextID,
		Address: addr,
		Hex:     formatAddress(addr),
		Domain:  domain,
		Value:   value,
		Label:   label,
	}
	f.nextID++
	f.byID[fr.ID] = fr
	f.byAddr[addr] = fr.ID
	return fr, nil
}

// Remove deletes the freezes sel selects and returns their ids.
func (f *FreezeEngine) Remove(sel FreezeSelector) ([]int, error) {
	n := 0
	if sel.ID != nil {
		n++
	}
	if sel.Address != nil {
		n++
	}
	if sel.All {
		n++
	}
	if n != 1 {
		return nil, probeErrorf(CodeMalformedCommand, "freeze.remove needs exactly one of freezeId, address or removeAll")
	}

	switch {
	case sel.All:
		ids := f.ids()
		clear(f.byID)
		clear(f.byAddr)
		return ids, nil
	case sel.ID != nil:
		fr, ok := f.byID[*sel.ID]
		if !ok {
			return nil, probeErrorf(CodeFreezeNotFound, "freeze %d not found", *sel.ID)
		}
		f.drop(fr)
		return []int{fr.ID}, nil
	default:
		id, ok := f.byAddr[*sel.Address]
		if !ok {
			return nil, probeErrorf(CodeFreezeNotFound, "no freeze at %s", formatAddress(*sel.Address))
		}
		f.drop(f.byID[id])
		return []int{id}, nil
	}
}

func (f *FreezeEngine) drop(fr *Freeze) {
	delete(f.byID, fr.ID)
	delete(f.byAddr, fr.Address)
}

func (f *FreezeEngine) ids() []int {
	ids := make([]int, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// List returns active freezes in id order.
func (f *FreezeEngine) List() []Freeze {
	out := make([]Freeze, 0, len(f.byID))
	for _, id := range f.ids() {
		out = append(out, *f.byID[id])
	}
	return out
}

func (f *FreezeEngine) Len() int   { return len(f.byID) }
func (f *FreezeEngine) Limit() int { return f.limit }

// Apply rewrites every pinned address. A failing write is logged and the
// remaining freezes are still applied.
func (f *FreezeEngine) Apply() int {
	applied := 0
	for _, id := range f.ids() {
		fr := f.byID[id]
		if err := f.mem.Write(fr.Address, fr.Value, fr.Domain); err != nil {
			f.logger.Warn("freeze apply failed", "id", fr.ID, "address", fr.Hex, "err", err)
			continue
		}
		applied++
	}
	return applied
}

package main

import (
	"errors"
	"testing"
)

// ---------------------------------------------------------------------------
// Address parsing
// ---------------------------------------------------------------------------

func TestProbeAddressParsing(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
		ok    bool
	}{
		{"$1000", 0x1000, true},
		{"0x1000", 0x1000, true},
		{"0X00ff", 0xFF, true},
		{"4096", 4096, true},
		{"#4096", 4096, true},
		{"DEAD", 0xDEAD, true},
		{"  $10  ", 0x10, true},
		{"", 0, false},
		{"$", 0, false},
		{"0xZZ", 0, false},
		{"-5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAddress(tt.input)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseAddress(%q) = (%X, %v), want (%X, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMemoryRead_AddressForms(t *testing.T) {
	r := newProbeTestRig(t)
	r.pokeRAM(0x10, 0x42)

	for _, addr := range []any{16, "16", "0x10", "$10", "$0010"} {
		got := decodeAs[int](t, r.mustOK(t, "memory.read", map[string]any{"address": addr}))
		if got != 0x42 {
			t.Errorf("memory.read(%v) = %d, want 0x42", addr, got)
		}
	}
}

func TestMemoryRead_Errors(t *testing.T) {
	r := newProbeTestRig(t)
	r.mustFail(t, "memory.read", map[string]any{}, CodeInvalidAddress)
	r.mustFail(t, "memory.read", map[string]any{"address": "nowhere"}, CodeInvalidAddress)
	r.mustFail(t, "memory.read", map[string]any{"address": 1.5}, CodeInvalidAddress)
	r.mustFail(t, "memory.read", map[string]any{"address": 0x10000}, CodeInvalidAddress)
	r.mustFail(t, "memory.read", map[string]any{"address": 0x800, "domain": "RAM"}, CodeInvalidAddress)
	r.mustFail(t, "memory.read", map[string]any{"address": 0, "domain": "VRAM"}, CodeInvalidDomain)
}

func TestMemoryWrite_DomainsAndMirror(t *testing.T) {
	r := newProbeTestRig(t)

	r.mustOK(t, "memory.write", map[string]any{"address": "$0810", "value": 7})
	if r.host.ram[0x10] != 7 {
		t.Fatalf("bus write to mirror $0810 did not reach RAM $10 (got %d)", r.host.ram[0x10])
	}
	got := decodeAs[int](t, r.mustOK(t, "memory.read", map[string]any{"address": "$10", "domain": "RAM"}))
	if got != 7 {
		t.Errorf("RAM read = %d, want 7", got)
	}

	r.mustOK(t, "memory.write", map[string]any{"address": 0, "value": "$AB", "domain": "CHR"})
	if r.host.chr[0] != 0xAB {
		t.Errorf("CHR[0] = %02X, want AB", r.host.chr[0])
	}

	r.mustFail(t, "memory.write", map[string]any{"address": 0, "value": 256}, CodeInvalidValue)
	r.mustFail(t, "memory.write", map[string]any{"address": 0, "value": -1}, CodeInvalidValue)
	r.mustFail(t, "memory.write", map[string]any{"address": 0}, CodeInvalidValue)
}

func TestMemoryAccess_RestoresHostDomain(t *testing.T) {
	r := newProbeTestRig(t)
	if err := r.host.UseDomain(DomainCHR); err != nil {
		t.Fatalf("UseDomain: %v", err)
	}
	r.mustOK(t, "memory.read", map[string]any{"address": 1, "domain": "RAM"})
	r.mustFail(t, "memory.read", map[string]any{"address": 0xFFFF, "domain": "RAM"}, CodeInvalidAddress)
	if d := r.host.CurrentDomain(); d != DomainCHR {
		t.Errorf("host domain after reads = %q, want %q", d, DomainCHR)
	}
}

func TestMemoryReadRange(t *testing.T) {
	r := newProbeTestRig(t)
	r.pokeRAM(0x20, 0x0A, 0x0B, 0x0C)

	type rangeData struct {
		Address string `json:"address"`
		Length  int    `json:"length"`
		Values  []int  `json:"values"`
		Hex     string `json:"hex"`
	}
	got := decodeAs[rangeData](t, r.mustOK(t, "memory.readRange", map[string]any{"address": "$20", "length": 3}))
	if got.Address != "$0020" || got.Length != 3 || got.Hex != "0A 0B 0C" {
		t.Errorf("readRange = %+v", got)
	}
	if len(got.Values) != 3 || got.Values[2] != 0x0C {
		t.Errorf("values = %v", got.Values)
	}

	for _, length := range []any{0, -4, 2.5, "ten", nil} {
		r.mustFail(t, "memory.readRange", map[string]any{"address": 0, "length": length}, CodeInvalidLength)
	}
	r.mustFail(t, "memory.readRange", map[string]any{"address": "$7FF", "length": 2, "domain": "RAM"}, CodeInvalidLength)
	r.mustFail(t, "memory.readRange", map[string]any{"address": "$800", "length": 1, "domain": "RAM"}, CodeInvalidAddress)
}

func TestMemoryGetDomains(t *testing.T) {
	r := newProbeTestRig(t)
	domains := decodeAs[[]MemoryDomain](t, r.mustOK(t, "memory.getDomains", nil))
	want := map[string]uint64{
		DomainSystemBus: 0x10000,
		DomainRAM:       0x800,
		DomainPRGROM:    0x8000,
		DomainCHR:       0x2000,
	}
	if len(domains) != len(want) {
		t.Fatalf("domains = %+v", domains)
	}
	for _, d := range domains {
		if want[d.Name] != d.Size {
			t.Errorf("domain %s size %d, want %d", d.Name, d.Size, want[d.Name])
		}
	}
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestMemorySearch_Exact(t *testing.T) {
	r := newProbeTestRig(t)
	for i := range r.host.ram {
		r.host.ram[i] = byte(i % 7)
	}

	type searchData struct {
		Count     int      `json:"count"`
		Addresses []uint64 `json:"addresses"`
	}
	got := decodeAs[searchData](t, r.mustOK(t, "memory.search", map[string]any{"value": 3}))
	want := 0
	for i, b := range r.host.ram {
		if b == 3 {
			if want >= len(got.Addresses) || got.Addresses[want] != uint64(i) {
				t.Fatalf("search result missing or out of order at offset %d", i)
			}
			want++
		}
	}
	if got.Count != want || len(got.Addresses) != want {
		t.Errorf("search count = %d (%d addresses), want %d", got.Count, len(got.Addresses), want)
	}

	ranged := decodeAs[searchData](t, r.mustOK(t, "memory.searchRange", map[string]any{"min": 5, "max": 6}))
	for _, a := range ranged.Addresses {
		if v := r.host.ram[a]; v < 5 || v > 6 {
			t.Errorf("searchRange returned $%X holding %d", a, v)
		}
	}
	r.mustFail(t, "memory.searchRange", map[string]any{"min": 6, "max": 5}, CodeInvalidValue)
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

func TestMemoryCompare_Partition(t *testing.T) {
	r := newProbeTestRig(t)
	r.pokeRAM(0x00, 10, 10, 10, 10)
	r.mustOK(t, "memory.snapshot", map[string]any{"name": "before"})
	r.pokeRAM(0x00, 11, 9, 10, 200)

	counts := map[string]int{}
	for _, filter := range []string{"changed", "increased", "decreased", "same"} {
		changes := decodeAs[[]MemoryChange](t, r.mustOK(t, "memory.compare", map[string]any{"name": "before", "filter": filter}))
		counts[filter] = len(changes)
		for _, c := range changes {
			if c.Diff != int(c.New)-int(c.Old) {
				t.Errorf("%s: diff %d at $%X, want %d", filter, c.Diff, c.Address, int(c.New)-int(c.Old))
			}
		}
	}
	if counts["changed"] != 3 || counts["increased"] != 2 || counts["decreased"] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if counts["changed"]+counts["same"] != len(r.host.ram) {
		t.Errorf("changed+same = %d, want %d", counts["changed"]+counts["same"], len(r.host.ram))
	}
}

func TestMemorySnapshot_DefaultNameAndOverwrite(t *testing.T) {
	r := newProbeTestRig(t)
	r.mustOK(t, "memory.snapshot", nil)
	r.pokeRAM(5, 1)
	if got := decodeAs[[]MemoryChange](t, r.mustOK(t, "memory.compare", nil)); len(got) != 1 {
		t.Fatalf("compare against default = %d changes, want 1", len(got))
	}
	r.mustOK(t, "memory.snapshot", map[string]any{"name": "default"})
	if got := decodeAs[[]MemoryChange](t, r.mustOK(t, "memory.compare", nil)); len(got) != 0 {
		t.Errorf("compare after overwrite = %d changes, want 0", len(got))
	}
}

func TestMemoryCompare_Errors(t *testing.T) {
	r := newProbeTestRig(t)
	r.mustFail(t, "memory.compare", map[string]any{"name": "missing"}, CodeSnapshotNotFound)
	r.mustOK(t, "memory.snapshot", nil)
	r.mustFail(t, "memory.compare", map[string]any{"filter": "sideways"}, CodeInvalidFilter)

	_, err := r.probe.mem.Compare("nope", FilterChanged)
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Compare error = %v, want ErrSnapshotNotFound", err)
	}
}

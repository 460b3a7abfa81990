package main

import (
	"testing"
)

type lastHitData struct {
	HasHit  bool           `json:"hasHit"`
	Hit     *BreakpointHit `json:"hit"`
	Message string         `json:"message"`
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

func TestBreakpointAdd_WriteHit(t *testing.T) {
	r := newProbeTestRig(t)
	r.loadProgram(t, `function frame() mem.write(0x10, 5) end`)

	info := decodeAs[BreakpointInfo](t, r.mustOK(t, "breakpoint.add", map[string]any{"type": "write", "address": "$0010"}))
	if info.ID != 1 || info.Type != "write" || info.Address != "$0010" || info.Domain != DomainSystemBus || !info.Enabled {
		t.Fatalf("breakpoint.add = %+v", info)
	}

	if err := r.host.FrameAdvance(); err != nil {
		t.Fatalf("FrameAdvance: %v", err)
	}
	hits := decodeAs[[]BreakpointHit](t, r.mustOK(t, "breakpoint.getHits", nil))
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	h := hits[0]
	if h.Address != "$0010" || h.BreakpointID != 1 || h.Value != 5 || h.Type != "write" {
		t.Errorf("hit = %+v", h)
	}
	if _, ok := h.Registers["A"]; !ok {
		t.Errorf("hit registers missing A: %v", h.Registers)
	}

	list := decodeAs[[]BreakpointInfo](t, r.mustOK(t, "breakpoint.list", nil))
	if len(list) != 1 || list[0].HitCount != 1 {
		t.Errorf("list = %+v, want one breakpoint with hitCount 1", list)
	}
}

func TestBreakpointAdd_Errors(t *testing.T) {
	r := newProbeTestRig(t)
	r.mustFail(t, "breakpoint.add", map[string]any{"type": "jump", "address": 0x10}, CodeInvalidBreakpointType)
	r.mustFail(t, "breakpoint.add", map[string]any{"address": 0x10}, CodeInvalidBreakpointType)
	r.mustFail(t, "breakpoint.add", map[string]any{"type": "read", "address": "zz"}, CodeInvalidAddress)
	r.mustFail(t, "breakpoint.add", map[string]any{"type": "read", "address": 0x800, "domain": "RAM"}, CodeInvalidAddress)
	r.mustFail(t, "breakpoint.add", map[string]any{"type": "read", "address": 0, "domain": "Nope"}, CodeInvalidDomain)
	r.mustFail(t, "breakpoint.add", map[string]any{"type": "read", "address": 0, "condition": "A"}, CodeInvalidCondition)
	if n := r.host.tapCount(); n != 0 {
		t.Errorf("failed adds left %d taps", n)
	}
}

func TestBreakpointIDsNeverReused(t *testing.T) {
	r := newProbeTestRig(t)
	add := func() int {
		return decodeAs[BreakpointInfo](t, r.mustOK(t, "breakpoint.add", map[string]any{"type": "read", "address": 1})).ID
	}
	first := add()
	r.mustOK(t, "breakpoint.remove", map[string]any{"breakpointId": first})
	second := add()
	r.mustOK(t, "breakpoint.clear", nil)
	third := add()
	if first != 1 || second != 2 || third != 3 {
		t.Errorf("ids = %d, %d, %d, want 1, 2, 3", first, second, third)
	}
}

func TestBreakpointRemove(t *testing.T) {
	r := newProbeTestRig(t)
	r.loadProgram(t, `function frame() mem.write(0x10, 1) end`)
	r.mustOK(t, "breakpoint.add", map[string]any{"type": "write", "address": 0x10})

	r.mustFail(t, "breakpoint.remove", map[string]any{"breakpointId": 99}, CodeBreakpointNotFound)
	r.mustFail(t, "breakpoint.remove", nil, CodeMalformedCommand)
	r.mustOK(t, "breakpoint.remove", map[string]any{"breakpointId": 1})
	if n := r.host.tapCount(); n != 0 {
		t.Fatalf("tap still registered after remove (%d)", n)
	}
	r.host.FrameAdvance()
	if n := len(r.probe.bps.Hits()); n != 0 {
		t.Errorf("removed breakpoint recorded %d hits", n)
	}
}

func TestBreakpointExecuteAndDomainTaps(t *testing.T) {
	r := newProbeTestRig(t)
	r.loadProgram(t, `function frame() cpu.exec(0x8000); mem.read(0x0810) end`)
	r.mustOK(t, "breakpoint.add", map[string]any{"type": "execute", "address": "$8000"})
	r.mustOK(t, "breakpoint.add", map[string]any{"type": "read", "address": "$10", "domain": "RAM"})

	r.host.FrameAdvance()
	hits := r.probe.bps.Hits()
	if len(hits) != 2 {
		t.Fatalf("hits = %+v, want execute and read", hits)
	}
	if hits[0].Type != "execute" || hits[0].PC != "$8000" {
		t.Errorf("execute hit = %+v", hits[0])
	}
	if hits[1].Type != "read" || hits[1].Domain != DomainRAM || hits[1].Address != "$0010" {
		t.Errorf("mirrored RAM read hit = %+v", hits[1])
	}
}

// ---------------------------------------------------------------------------
// Hit queue
// ---------------------------------------------------------------------------

func TestBreakpointGetLastHit(t *testing.T) {
	r := newProbeTestRig(t)
	got := decodeAs[lastHitData](t, r.mustOK(t, "breakpoint.getLastHit", nil))
	if got.HasHit || got.Hit != nil || got.Message != "no hits" {
		t.Fatalf("empty getLastHit = %+v", got)
	}

	r.loadProgram(t, `function frame() mem.write(0x10, 1); mem.write(0x10, 2) end`)
	r.mustOK(t, "breakpoint.add", map[string]any{"type": "write", "address": 0x10})
	r.host.FrameAdvance()

	got = decodeAs[lastHitData](t, r.mustOK(t, "breakpoint.getLastHit", nil))
	if !got.HasHit || got.Hit == nil || got.Hit.Value != 2 {
		t.Fatalf("getLastHit = %+v, want newest hit with value 2", got)
	}

	cleared := decodeAs[map[string]int](t, r.mustOK(t, "breakpoint.clearHits", nil))
	if cleared["cleared"] != 2 {
		t.Errorf("clearHits = %v, want 2", cleared)
	}
	got = decodeAs[lastHitData](t, r.mustOK(t, "breakpoint.getLastHit", nil))
	if got.HasHit {
		t.Errorf("getLastHit after clear = %+v", got)
	}
}

func TestBreakpointHitQueueBounded(t *testing.T) {
	limits := DefaultProbeLimits()
	limits.HitCapacity = 4
	r := newProbeTestRigWithLimits(t, limits)
	r.loadProgram(t, `function frame() for i = 0, 9 do mem.write(0x10, i) end end`)
	r.mustOK(t, "breakpoint.add", map[string]any{"type": "write", "address": 0x10})
	r.host.FrameAdvance()

	hits := r.probe.bps.Hits()
	if len(hits) != 4 {
		t.Fatalf("hit queue holds %d, want 4", len(hits))
	}
	for i, h := range hits {
		if want := byte(6 + i); h.Value != want {
			t.Errorf("hit %d value = %d, want %d (oldest evicted first)", i, h.Value, want)
		}
	}
	if r.probe.bps.breakpoints[1].HitCount != 10 {
		t.Errorf("hitCount = %d, want 10", r.probe.bps.breakpoints[1].HitCount)
	}
}

// ---------------------------------------------------------------------------
// Auto-pause, enable and conditions
// ---------------------------------------------------------------------------

func TestBreakpointAutoPauseStopsFrame(t *testing.T) {
	r := newProbeTestRig(t)
	r.loadProgram(t, `function frame() mem.write(0x10, 1); mem.write(0x11, 1) end`)
	r.mustOK(t, "breakpoint.add", map[string]any{"type": "write", "address": 0x10})
	r.mustOK(t, "breakpoint.setAutoMode", map[string]any{"enabled": true})

	if err := r.host.FrameAdvance(); err != nil {
		t.Fatalf("FrameAdvance after forced pause: %v", err)
	}
	if !r.probe.exec.Paused() {
		t.Fatal("execution not paused by breakpoint")
	}
	if r.host.ram[0x10] != 1 {
		t.Error("triggering write did not complete")
	}
	if r.host.ram[0x11] != 0 {
		t.Error("frame kept running after the forced pause")
	}
	if !r.probe.takeStateChange() {
		t.Error("forced pause not reported as a state change")
	}
}

func TestBreakpointEnableToggle(t *testing.T) {
	r := newProbeTestRig(t)
	r.loadProgram(t, `function frame() mem.write(0x10, 1) end`)
	r.mustOK(t, "breakpoint.add", map[string]any{"type": "write", "address": 0x10})

	info := decodeAs[BreakpointInfo](t, r.mustOK(t, "breakpoint.enable", map[string]any{"breakpointId": 1, "enabled": false}))
	if info.Enabled {
		t.Fatal("breakpoint still enabled")
	}
	r.host.FrameAdvance()
	if n := len(r.probe.bps.Hits()); n != 0 {
		t.Fatalf("disabled breakpoint recorded %d hits", n)
	}

	r.mustOK(t, "breakpoint.enable", map[string]any{"breakpointId": 1})
	r.host.FrameAdvance()
	if n := len(r.probe.bps.Hits()); n != 1 {
		t.Errorf("re-enabled breakpoint recorded %d hits, want 1", n)
	}
	r.mustFail(t, "breakpoint.enable", map[string]any{"breakpointId": 7}, CodeBreakpointNotFound)
}

func TestBreakpointConditions(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		program   string
		setup     func(r *probeTestRig)
		wantHits  []byte
	}{
		{
			name:      "value",
			condition: "value==$09",
			program:   `function frame() mem.write(0x10, 5); mem.write(0x10, 9) end`,
			wantHits:  []byte{9},
		},
		{
			name:      "hitcount",
			condition: "hitcount>=2",
			program:   `function frame() mem.write(0x10, 1); mem.write(0x10, 2); mem.write(0x10, 3) end`,
			wantHits:  []byte{2, 3},
		},
		{
			name:      "register",
			condition: "A==$05",
			program:   `function frame() mem.write(0x10, 1); cpu.set("A", 5); mem.write(0x10, 2) end`,
			wantHits:  []byte{2},
		},
		{
			name:      "memory",
			condition: "[$0020]>3",
			program:   `function frame() mem.write(0x10, 1); mem.write(0x20, 4); mem.write(0x10, 2) end`,
			wantHits:  []byte{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newProbeTestRig(t)
			r.loadProgram(t, tt.program)
			info := decodeAs[BreakpointInfo](t, r.mustOK(t, "breakpoint.add", map[string]any{
				"type": "write", "address": 0x10, "condition": tt.condition,
			}))
			if info.Condition == "" {
				t.Errorf("condition not echoed in %+v", info)
			}
			r.host.FrameAdvance()
			hits := r.probe.bps.Hits()
			if len(hits) != len(tt.wantHits) {
				t.Fatalf("hits = %d, want %d", len(hits), len(tt.wantHits))
			}
			for i, h := range hits {
				if h.Value != tt.wantHits[i] {
					t.Errorf("hit %d value = %d, want %d", i, h.Value, tt.wantHits[i])
				}
			}
		})
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		input   string
		source  ConditionSource
		op      ConditionOp
		value   uint64
		wantErr bool
	}{
		{"A==$05", CondSourceRegister, CondOpEqual, 5, false},
		{"x != 0x10", CondSourceRegister, CondOpNotEqual, 0x10, false},
		{"[$0010]>3", CondSourceMemory, CondOpGreater, 3, false},
		{"hitcount>=2", CondSourceHitCount, CondOpGreaterEqual, 2, false},
		{"value<=#9", CondSourceValue, CondOpLessEqual, 9, false},
		{"SP<$80", CondSourceRegister, CondOpLess, 0x80, false},
		{"", 0, 0, 0, true},
		{"A", 0, 0, 0, true},
		{"==5", 0, 0, 0, true},
		{"A==zz", 0, 0, 0, true},
		{"[nowhere]==1", 0, 0, 0, true},
	}
	for _, tt := range tests {
		cond, err := ParseCondition(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCondition(%q) succeeded, want error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCondition(%q) error: %v", tt.input, err)
			continue
		}
		if cond.Source != tt.source || cond.Op != tt.op || cond.Value != tt.value {
			t.Errorf("ParseCondition(%q) = %+v", tt.input, cond)
		}
		again, err := ParseCondition(cond.String())
		if err != nil || again.Source != cond.Source || again.Op != cond.Op || again.Value != cond.Value {
			t.Errorf("String() %q does not parse back to %+v", cond.String(), cond)
		}
	}
}

package main

import (
	"testing"
)

type traceStateData struct {
	Enabled  bool `json:"enabled"`
	Length   int  `json:"length"`
	Capacity int  `json:"capacity"`
}

func TestRingBuffer(t *testing.T) {
	rb := newRingBuffer[int](3)
	if _, ok := rb.Last(); ok {
		t.Fatal("Last on empty buffer reported a value")
	}
	evicted := 0
	for i := 1; i <= 5; i++ {
		if rb.Push(i) {
			evicted++
		}
	}
	if evicted != 2 || rb.Len() != 3 || rb.Cap() != 3 {
		t.Fatalf("evicted=%d len=%d cap=%d", evicted, rb.Len(), rb.Cap())
	}
	if items := rb.Items(); len(items) != 3 || items[0] != 3 || items[2] != 5 {
		t.Errorf("Items = %v, want [3 4 5]", items)
	}
	if tail := rb.Tail(2); len(tail) != 2 || tail[0] != 4 || tail[1] != 5 {
		t.Errorf("Tail(2) = %v, want [4 5]", tail)
	}
	if tail := rb.Tail(10); len(tail) != 3 {
		t.Errorf("Tail(10) = %v, want all 3", tail)
	}
	if last, _ := rb.Last(); last != 5 {
		t.Errorf("Last = %d, want 5", last)
	}
	rb.Clear()
	if rb.Len() != 0 || len(rb.Items()) != 0 {
		t.Error("Clear left items behind")
	}
}

// ---------------------------------------------------------------------------
// Trace
// ---------------------------------------------------------------------------

func TestTrace_StartCaptureGet(t *testing.T) {
	r := newDisasmTestRig(t)
	r.loadProgram(t, `function frame() cpu.set("PC", cpu.get("PC") + 2) end`)

	r.probe.trace.Capture()
	if r.probe.trace.Len() != 0 {
		t.Fatal("capture recorded while trace disabled")
	}

	st := decodeAs[traceStateData](t, r.mustOK(t, "trace.start", nil))
	if !st.Enabled || st.Length != 0 || st.Capacity != DefaultProbeLimits().TraceCapacity {
		t.Fatalf("trace.start = %+v", st)
	}
	for range 2 {
		r.probe.frameStages()
		r.host.FrameAdvance()
	}

	entries := decodeAs[[]TraceEntry](t, r.mustOK(t, "trace.get", nil))
	if len(entries) != 2 {
		t.Fatalf("trace entries = %d, want 2", len(entries))
	}
	if entries[0].PC != "$8000" || entries[0].Asm != "LDA #$05" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].PC != "$8002" || entries[1].Asm != "STA $10" || entries[1].Frame != 1 {
		t.Errorf("entry 1 = %+v", entries[1])
	}

	st = decodeAs[traceStateData](t, r.mustOK(t, "trace.stop", nil))
	if st.Enabled || st.Length != 2 {
		t.Errorf("trace.stop = %+v, want disabled with buffer kept", st)
	}
	r.probe.frameStages()
	if r.probe.trace.Len() != 2 {
		t.Error("stopped trace kept capturing")
	}

	st = decodeAs[traceStateData](t, r.mustOK(t, "trace.clear", nil))
	if st.Length != 0 {
		t.Errorf("trace.clear = %+v", st)
	}
}

func TestTrace_BoundedNewestFirstOrder(t *testing.T) {
	limits := DefaultProbeLimits()
	limits.TraceCapacity = 5
	r := newProbeTestRigWithLimits(t, limits)
	r.mustOK(t, "trace.start", nil)
	for i := range 12 {
		r.host.cpu.PC = uint16(i)
		r.probe.trace.Capture()
	}
	if r.probe.trace.Len() != 5 {
		t.Fatalf("trace holds %d, want capacity 5", r.probe.trace.Len())
	}

	got := decodeAs[[]TraceEntry](t, r.mustOK(t, "trace.get", map[string]any{"count": 3}))
	want := []string{"$0009", "$000A", "$000B"}
	for i := range want {
		if got[i].PC != want[i] {
			t.Errorf("trace.get(3)[%d] = %s, want %s", i, got[i].PC, want[i])
		}
	}
	r.mustFail(t, "trace.get", map[string]any{"count": -1}, CodeInvalidLength)

	// start clears the previous run.
	r.mustOK(t, "trace.start", nil)
	if r.probe.trace.Len() != 0 {
		t.Error("trace.start did not clear the buffer")
	}
}

// ---------------------------------------------------------------------------
// Watch list
// ---------------------------------------------------------------------------

func TestWatch_AddListRemove(t *testing.T) {
	r := newProbeTestRig(t)
	r.pokeRAM(0x40, 3)

	e := decodeAs[WatchEntry](t, r.mustOK(t, "watch.add", map[string]any{"address": "$40"}))
	if e.Name != "$0040" || e.Hex != "$0040" || e.Value == nil || *e.Value != 3 {
		t.Fatalf("watch.add = %+v", e)
	}
	r.mustOK(t, "watch.add", map[string]any{"address": 0x41, "name": "lives"})
	r.mustOK(t, "watch.add", map[string]any{"address": 0x40, "name": "hp"})

	r.pokeRAM(0x40, 9)
	list := decodeAs[[]WatchEntry](t, r.mustOK(t, "watch.list", nil))
	if len(list) != 2 {
		t.Fatalf("watch.list = %+v, want 2 entries (re-add renames)", list)
	}
	if list[0].Name != "hp" || *list[0].Value != 9 {
		t.Errorf("list[0] = %+v, want hp=9 (value re-read)", list[0])
	}

	type removeData struct {
		Removed bool `json:"removed"`
	}
	if !decodeAs[removeData](t, r.mustOK(t, "watch.remove", map[string]any{"address": 0x41})).Removed {
		t.Error("watch.remove of watched address reported false")
	}
	if decodeAs[removeData](t, r.mustOK(t, "watch.remove", map[string]any{"address": 0x99})).Removed {
		t.Error("watch.remove of unwatched address reported true")
	}

	cleared := decodeAs[map[string]int](t, r.mustOK(t, "watch.clear", nil))
	if cleared["cleared"] != 1 || r.probe.watches.Len() != 0 {
		t.Errorf("watch.clear = %v", cleared)
	}
	r.mustFail(t, "watch.add", map[string]any{"address": 0x10000}, CodeInvalidAddress)
}

// ---------------------------------------------------------------------------
// Freeze
// ---------------------------------------------------------------------------

func TestFreeze_HoldsAcrossWrites(t *testing.T) {
	r := newProbeTestRig(t)
	r.loadProgram(t, `function frame() mem.write(0x075A, 1) end`)

	fr := decodeAs[Freeze](t, r.mustOK(t, "freeze.add", map[string]any{"address": "$075A", "value": 9, "label": "lives"}))
	if fr.ID != 1 || fr.Hex != "$075A" || fr.Value != 9 || fr.Label != "lives" {
		t.Fatalf("freeze.add = %+v", fr)
	}
	if r.host.ram[0x75A] != 9 {
		t.Fatal("freeze.add did not write immediately")
	}

	for range 3 {
		r.probe.frameStages()
		r.host.FrameAdvance()
		r.probe.freezes.Apply()
		if r.host.ram[0x75A] != 9 {
			t.Fatalf("frozen byte = %d after apply, want 9", r.host.ram[0x75A])
		}
	}
}

func TestFreeze_Errors(t *testing.T) {
	limits := DefaultProbeLimits()
	limits.MaxFreezes = 2
	r := newProbeTestRigWithLimits(t, limits)

	r.mustOK(t, "freeze.add", map[string]any{"address": 1, "value": 1})
	dup := r.mustFail(t, "freeze.add", map[string]any{"address": 1, "value": 2}, CodeFreezeAlreadyExists)
	if data := decodeAs[map[string]int](t, dup.Data); data["id"] != 1 {
		t.Errorf("FreezeAlreadyExists data = %v, want existing id 1", dup.Data)
	}
	r.mustOK(t, "freeze.add", map[string]any{"address": 2, "value": 2})
	r.mustFail(t, "freeze.add", map[string]any{"address": 3, "value": 3}, CodeFreezeLimitExceeded)
	// A duplicate at the limit still reports the duplicate.
	r.mustFail(t, "freeze.add", map[string]any{"address": 2, "value": 3}, CodeFreezeAlreadyExists)
	r.mustFail(t, "freeze.add", map[string]any{"address": 4, "value": 300}, CodeInvalidValue)
}

func TestFreeze_RemoveSelectors(t *testing.T) {
	r := newProbeTestRig(t)
	for addr := 1; addr <= 4; addr++ {
		r.mustOK(t, "freeze.add", map[string]any{"address": addr, "value": addr})
	}

	type removeData struct {
		Removed   []int `json:"removed"`
		Remaining int   `json:"remaining"`
	}
	got := decodeAs[removeData](t, r.mustOK(t, "freeze.remove", map[string]any{"freezeId": 2}))
	if len(got.Removed) != 1 || got.Removed[0] != 2 || got.Remaining != 3 {
		t.Errorf("remove by id = %+v", got)
	}
	got = decodeAs[removeData](t, r.mustOK(t, "freeze.remove", map[string]any{"address": "$3"}))
	if len(got.Removed) != 1 || got.Removed[0] != 3 {
		t.Errorf("remove by address = %+v", got)
	}

	r.mustFail(t, "freeze.remove", nil, CodeMalformedCommand)
	r.mustFail(t, "freeze.remove", map[string]any{"freezeId": 1, "address": 1}, CodeMalformedCommand)
	r.mustFail(t, "freeze.remove", map[string]any{"removeAll": false}, CodeMalformedCommand)
	r.mustFail(t, "freeze.remove", map[string]any{"freezeId": 2}, CodeFreezeNotFound)
	r.mustFail(t, "freeze.remove", map[string]any{"address": 3}, CodeFreezeNotFound)

	got = decodeAs[removeData](t, r.mustOK(t, "freeze.remove", map[string]any{"removeAll": true}))
	if len(got.Removed) != 2 || got.Remaining != 0 {
		t.Errorf("removeAll = %+v", got)
	}

	fr := decodeAs[Freeze](t, r.mustOK(t, "freeze.add", map[string]any{"address": 1, "value": 1}))
	if fr.ID != 5 {
		t.Errorf("new freeze id = %d, want 5 (ids never reused)", fr.ID)
	}
	if list := decodeAs[[]Freeze](t, r.mustOK(t, "freeze.list", nil)); len(list) != 1 {
		t.Errorf("freeze.list = %+v", list)
	}
}

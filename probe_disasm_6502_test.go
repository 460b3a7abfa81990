package main

import (
	"testing"
)

var disasmTestProgram = []byte{
	0xA9, 0x05, // $8000 LDA #$05
	0x85, 0x10, // $8002 STA $10
	0x6C, 0x34, 0x12, // $8004 JMP ($1234)
	0x02,       // $8007 undefined
	0xD0, 0xFE, // $8008 BNE $8008
	0xEA, // $800A NOP
}

func newDisasmTestRig(t *testing.T) *probeTestRig {
	t.Helper()
	r := newProbeTestRig(t)
	copy(r.host.prg[:], disasmTestProgram)
	r.host.cpu.PC = 0x8000
	return r
}

func TestDecode6502_Formats(t *testing.T) {
	tests := []struct {
		addr uint64
		data []byte
		text string
		size int
	}{
		{0x8000, []byte{0xA9, 0x05}, "LDA #$05", 2},
		{0x8000, []byte{0x85, 0x10}, "STA $10", 2},
		{0x8000, []byte{0x8D, 0x00, 0x20}, "STA $2000", 3},
		{0x8000, []byte{0x6C, 0x34, 0x12}, "JMP ($1234)", 3},
		{0x8000, []byte{0xB1, 0x20}, "LDA ($20),Y", 2},
		{0x8000, []byte{0xA1, 0x20}, "LDA ($20,X)", 2},
		{0x8000, []byte{0xBD, 0x00, 0x30}, "LDA $3000,X", 3},
		{0x8000, []byte{0xB6, 0x10}, "LDX $10,Y", 2},
		{0x8000, []byte{0x0A}, "ASL A", 1},
		{0x8000, []byte{0xEA}, "NOP", 1},
		{0x8010, []byte{0xD0, 0xFE}, "BNE $8010", 2},
		{0x8010, []byte{0x10, 0x05}, "BPL $8017", 2},
		{0x8000, []byte{0x02}, "???", 1},
		{0x8000, []byte{0xFF, 0x12, 0x34}, "???", 1},
	}
	for _, tt := range tests {
		in := decode6502(tt.addr, tt.data)
		if in.Text() != tt.text || in.Size != tt.size {
			t.Errorf("decode6502(% X) = %q size %d, want %q size %d", tt.data, in.Text(), in.Size, tt.text, tt.size)
		}
	}
}

func TestOpcodeTableSizes(t *testing.T) {
	for op := range 256 {
		info := opcodeTable6502[op]
		size := info.Size()
		if size < 1 || size > 3 {
			t.Errorf("opcode $%02X size %d", op, size)
		}
		if info.name == "" && size != 1 {
			t.Errorf("undefined opcode $%02X has size %d, want 1", op, size)
		}
	}
}

func TestDisasmGet_AdvancesBySize(t *testing.T) {
	r := newDisasmTestRig(t)
	got := decodeAs[[]Instruction](t, r.mustOK(t, "disasm.get", map[string]any{"address": "$8000", "count": 6}))
	wantAddr := []uint64{0x8000, 0x8002, 0x8004, 0x8007, 0x8008, 0x800A}
	wantText := []string{"LDA #$05", "STA $10", "JMP ($1234)", "???", "BNE $8008", "NOP"}
	if len(got) != len(wantAddr) {
		t.Fatalf("decoded %d instructions, want %d", len(got), len(wantAddr))
	}
	for i, in := range got {
		if in.Address != wantAddr[i] || in.Text() != wantText[i] {
			t.Errorf("instruction %d = %s %q, want $%04X %q", i, in.Hex, in.Text(), wantAddr[i], wantText[i])
		}
		if i > 0 && in.Address <= got[i-1].Address {
			t.Errorf("addresses not strictly increasing at %d", i)
		}
	}
	if !got[0].IsPC || got[1].IsPC {
		t.Error("isPC should mark only the instruction at PC")
	}
}

func TestDisasmGet_UndefinedOpcodesProgress(t *testing.T) {
	r := newProbeTestRig(t)
	// $0002 is undefined; RAM is zeroed so BRK follows.
	for i := range 8 {
		r.host.ram[i] = 0x02
	}
	got := decodeAs[[]Instruction](t, r.mustOK(t, "disasm.get", map[string]any{"address": 0, "count": 10}))
	if len(got) != 10 {
		t.Fatalf("decoded %d, want 10", len(got))
	}
	for i, in := range got {
		if in.Address != uint64(i) {
			t.Errorf("instruction %d at $%X, want $%X", i, in.Address, i)
		}
	}
}

func TestDisasmGet_DefaultsAndTopOfMemory(t *testing.T) {
	r := newDisasmTestRig(t)
	got := decodeAs[[]Instruction](t, r.mustOK(t, "disasm.get", nil))
	if len(got) != 20 || got[0].Address != 0x8000 {
		t.Fatalf("default disasm.get = %d instructions from $%X, want 20 from PC", len(got), got[0].Address)
	}

	r.host.prg[0x7FFF] = 0x20 // JSR with no room for its operand
	got = decodeAs[[]Instruction](t, r.mustOK(t, "disasm.get", map[string]any{"address": "$FFFF", "count": 5}))
	if len(got) != 1 || got[0].Size != 1 || got[0].Operand != "?" {
		t.Errorf("top-of-memory decode = %+v", got)
	}

	r.mustFail(t, "disasm.get", map[string]any{"address": 0x10000}, CodeInvalidAddress)
	r.mustFail(t, "disasm.get", map[string]any{"count": 0}, CodeInvalidLength)
}

func TestDisasmGet_CountLimit(t *testing.T) {
	r := newDisasmTestRig(t)
	got := decodeAs[[]Instruction](t, r.mustOK(t, "disasm.get", map[string]any{"address": 0, "count": maxDecodeCount}))
	if len(got) != maxDecodeCount {
		t.Errorf("decoded %d instructions at the limit, want %d", len(got), maxDecodeCount)
	}
	r.mustFail(t, "disasm.get", map[string]any{"address": 0, "count": maxDecodeCount + 1}, CodeInvalidLength)
	r.mustFail(t, "disasm.get", map[string]any{"address": 0, "count": 2147483647}, CodeInvalidLength)
}

func TestDisasmCurrent(t *testing.T) {
	r := newDisasmTestRig(t)
	r.host.cpu.PC = 0x8004
	in := decodeAs[Instruction](t, r.mustOK(t, "disasm.current", nil))
	if in.Text() != "JMP ($1234)" || in.Bytes != "6C 34 12" || !in.IsPC {
		t.Errorf("disasm.current = %+v", in)
	}
}

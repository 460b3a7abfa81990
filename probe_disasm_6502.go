// probe_disasm_6502.go - Linear 6502 disassembler over the memory access layer

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
	"strings"
)

// addrMode6502 is a 6502 addressing mode. Its operand length determines the
// instruction length.
type addrMode6502 uint8

const (
	modeImp  addrMode6502 = iota // Implied
	modeAcc                      // Accumulator
	modeImm                      // #nn
	modeZp                       // nn
	modeZpX                      // nn,X
	modeZpY                      // nn,Y
	modeAbs                      // nnnn
	modeAbsX                     // nnnn,X
	modeAbsY                     // nnnn,Y
	modeInd                      // (nnnn)
	modeIndX                     // (nn,X)
	modeIndY                     // (nn),Y
	modeRel                      // relative
)

func (m addrMode6502) operandBytes() int {
	switch m {
	case modeImp, modeAcc:
		return 0
	case modeAbs, modeAbsX, modeAbsY, modeInd:
		return 2
	}
	return 1
}

type opcode6502 struct {
	name string
	mode addrMode6502
}

// Size is the instruction length. Undefined opcodes are one byte so the
// decoder always makes progress.
func (o opcode6502) Size() int {
	if o.name == "" {
		return 1
	}
	return 1 + o.mode.operandBytes()
}

const undefinedMnemonic = "???"

var opcodeTable6502 = [256]opcode6502{
	0x00: {"BRK", modeImp}, 0x01: {"ORA", modeIndX}, 0x05: {"ORA", modeZp}, 0x06: {"ASL", modeZp},
	0x08: {"PHP", modeImp}, 0x09: {"ORA", modeImm}, 0x0A: {"ASL", modeAcc}, 0x0D: {"ORA", modeAbs},
	0x0E: {"ASL", modeAbs},
	0x10: {"BPL", modeRel}, 0x11: {"ORA", modeIndY}, 0x15: {"ORA", modeZpX}, 0x16: {"ASL", modeZpX},
	0x18: {"CLC", modeImp}, 0x19: {"ORA", modeAbsY}, 0x1D: {"ORA", modeAbsX}, 0x1E: {"ASL", modeAbsX},
	0x20: {"JSR", modeAbs}, 0x21: {"AND", modeIndX}, 0x24: {"BIT", modeZp}, 0x25: {"AND", modeZp},
	0x26: {"ROL", modeZp}, 0x28: {"PLP", modeImp}, 0x29: {"AND", modeImm}, 0x2A: {"ROL", modeAcc},
	0x2C: {"BIT", modeAbs}, 0x2D: {"AND", modeAbs}, 0x2E: {"ROL", modeAbs},
	0x30: {"BMI", modeRel}, 0x31: {"AND", modeIndY}, 0x35: {"AND", modeZpX}, 0x36: {"ROL", modeZpX},
	0x38: {"SEC", modeImp}, 0x39: {"AND", modeAbsY}, 0x3D: {"AND", modeAbsX}, 0x3E: {"ROL", modeAbsX},
	0x40: {"RTI", modeImp}, 0x41: {"EOR", modeIndX}, 0x45: {"EOR", modeZp}, 0x46: {"LSR", modeZp},
	0x48: {"PHA", modeImp}, 0x49: {"EOR", modeImm}, 0x4A: {"LSR", modeAcc}, 0x4C: {"JMP", modeAbs},
	0x4D: {"EOR", modeAbs}, 0x4E: {"LSR", modeAbs},
	0x50: {"BVC", modeRel}, 0x51: {"EOR", modeIndY}, 0x55: {"EOR", modeZpX}, 0x56: {"LSR", modeZpX},
	0x58: {"CLI", modeImp}, 0x59: {"EOR", modeAbsY}, 0x5D: {"EOR", modeAbsX}, 0x5E: {"LSR", modeAbsX},
	0x60: {"RTS", modeImp}, 0x61: {"ADC", modeIndX}, 0x65: {"ADC", modeZp}, 0x66: {"ROR", modeZp},
	0x68: {"PLA", modeImp}, 0x69: {"ADC", modeImm}, 0x6A: {"ROR", modeAcc}, 0x6C: {"JMP", modeInd},
	0x6D: {"ADC", modeAbs}, 0x6E: {"ROR", modeAbs},
	0x70: {"BVS", modeRel}, 0x71: {"ADC", modeIndY}, 0x75: {"ADC", modeZpX}, 0x76: {"ROR", modeZpX},
	0x78: {"SEI", modeImp}, 0x79: {"ADC", modeAbsY}, 0x7D: {"ADC", modeAbsX}, 0x7E: {"ROR", modeAbsX},
	0x81: {"STA", modeIndX}, 0x84: {"STY", modeZp}, 0x85: {"STA", modeZp}, 0x86: {"STX", modeZp},
	0x88: {"DEY", modeImp}, 0x8A: {"TXA", modeImp}, 0x8C: {"STY", modeAbs}, 0x8D: {"STA", modeAbs},
	0x8E: {"STX", modeAbs},
	0x90: {"BCC", modeRel}, 0x91: {"STA", modeIndY}, 0x94: {"STY", modeZpX}, 0x95: {"STA", modeZpX},
	0x96: {"STX", modeZpY}, 0x98: {"TYA", modeImp}, 0x99: {"STA", modeAbsY}, 0x9A: {"TXS", modeImp},
	0x9D: {"STA", modeAbsX},
	0xA0: {"LDY", modeImm}, 0xA1: {"LDA", modeIndX}, 0xA2: {"LDX", modeImm}, 0xA4: {"LDY", modeZp},
	0xA5: {"LDA", modeZp}, 0xA6: {"LDX", modeZp}, 0xA8: {"TAY", modeImp}, 0xA9: {"LDA", modeImm},
	0xAA: {"TAX", modeImp}, 0xAC: {"LDY", modeAbs}, 0xAD: {"LDA", modeAbs}, 0xAE: {"LDX", modeAbs},
	0xB0: {"BCS", modeRel}, 0xB1: {"LDA", modeIndY}, 0xB4: {"LDY", modeZpX}, 0xB5: {"LDA", modeZpX},
	0xB6: {"LDX", modeZpY}, 0xB8: {"CLV", modeImp}, 0xB9: {"LDA", modeAbsY}, 0xBA: {"TSX", modeImp},
	0xBC: {"LDY", modeAbsX}, 0xBD: {"LDA", modeAbsX}, 0xBE: {"LDX", modeAbsY},
	0xC0: {"CPY", modeImm}, 0xC1: {"CMP", modeIndX}, 0xC4: {"CPY", modeZp}, 0xC5: {"CMP", modeZp},
	0xC6: {"DEC", modeZp}, 0xC8: {"INY", modeImp}, 0xC9: {"CMP", modeImm}, 0xCA: {"DEX", modeImp},
	0xCC: {"CPY", modeAbs}, 0xCD: {"CMP", modeAbs}, 0xCE: {"DEC", modeAbs},
	0xD0: {"BNE", modeRel}, 0xD1: {"CMP", modeIndY}, 0xD5: {"CMP", modeZpX}, 0xD6: {"DEC", modeZpX},
	0xD8: {"CLD", modeImp}, 0xD9: {"CMP", modeAbsY}, 0xDD: {"CMP", modeAbsX}, 0xDE: {"DEC", modeAbsX},
	0xE0: {"CPX", modeImm}, 0xE1: {"SBC", modeIndX}, 0xE4: {"CPX", modeZp}, 0xE5: {"SBC", modeZp},
	0xE6: {"INC", modeZp}, 0xE8: {"INX", modeImp}, 0xE9: {"SBC", modeImm}, 0xEA: {"NOP", modeImp},
	0xEC: {"CPX", modeAbs}, 0xED: {"SBC", modeAbs}, 0xEE: {"INC", modeAbs},
	0xF0: {"BEQ", modeRel}, 0xF1: {"SBC", modeIndY}, 0xF5: {"SBC", modeZpX}, 0xF6: {"INC", modeZpX},
	0xF8: {"SED", modeImp}, 0xF9: {"SBC", modeAbsY}, 0xFD: {"SBC", modeAbsX}, 0xFE: {"INC", modeAbsX},
}

// operandFormats maps each mode to its operand template. One-byte operands
// are formatted with %02X, two-byte operands with %04X.
var operandFormats = [...]string{
	modeImp:  "",
	modeAcc:  "A",
	modeImm:  "#$%02X",
	modeZp:   "$%02X",
	modeZpX:  "$%02X,X",
	modeZpY:  "$%02X,Y",
	modeAbs:  "$%04X",
	modeAbsX: "$%04X,X",
	modeAbsY: "$%04X,Y",
	modeInd:  "($%04X)",
	modeIndX: "($%02X,X)",
	modeIndY: "($%02X),Y",
	modeRel:  "$%04X",
}

// Instruction is one decoded instruction.
type Instruction struct {
	Address  uint64 `json:"address"`
	Hex      string `json:"hex"`
	Bytes    string `json:"bytes"`
	Opcode   byte   `json:"opcode"`
	Mnemonic string `json:"mnemonic"`
	Operand  string `json:"operand,omitempty"`
	Size     int    `json:"size"`
	IsPC     bool   `json:"isPC,omitempty"`
}

// Text renders the instruction the way the trace log stores it.
func (in Instruction) Text() string {
	if in.Operand == "" {
		return in.Mnemonic
	}
	return in.Mnemonic + " " + in.Operand
}

// decode6502 decodes the instruction whose bytes start data at addr. data
// may be shorter than the table length at the end of a domain; the
// instruction is then truncated to what was read.
func decode6502(addr uint64, data []byte) Instruction {
	op := data[0]
	info := opcodeTable6502[op]
	size := min(info.Size(), len(data))

	in := Instruction{
		Address: addr,
		Hex:     formatAddress(addr),
		Opcode:  op,
		Size:    size,
	}
	parts := make([]string, size)
	for i := range size {
		parts[i] = fmt.Sprintf("%02X", data[i])
	}
	in.Bytes = strings.Join(parts, " ")

	if info.name == "" {
		in.Mnemonic = undefinedMnemonic
		return in
	}
	in.Mnemonic = info.name
	if size < info.Size() {
		in.Operand = "?"
		return in
	}

	format := operandFormats[info.mode]
	switch info.mode.operandBytes() {
	case 0:
		in.Operand = format
	case 1:
		if info.mode == modeRel {
			target := uint16(addr) + 2 + uint16(int8(data[1]))
			in.Operand = fmt.Sprintf(format, target)
		} else {
			in.Operand = fmt.Sprintf(format, data[1])
		}
	case 2:
		in.Operand = fmt.Sprintf(format, uint16(data[1])|uint16(data[2])<<8)
	}
	return in
}

// Disassembler decodes instructions through the memory access layer.
type Disassembler struct {
	mem *MemoryAccess
	pc  func() uint64
}

func NewDisassembler(mem *MemoryAccess, pc func() uint64) *Disassembler {
	return &Disassembler{mem: mem, pc: pc}
}

// DecodeOne decodes the instruction at addr in the default domain.
func (d *Disassembler) DecodeOne(addr uint64) (Instruction, error) {
	data, err := d.mem.readAvailable(addr, 3, "")
	if err != nil {
		return Instruction{}, err
	}
	in := decode6502(addr, data)
	in.IsPC = addr == d.pc()
	return in, nil
}

// maxDecodeCount bounds one disassembly request.
const maxDecodeCount = 4096

// DecodeMany decodes count consecutive instructions, advancing by each
// instruction's own size. Decoding stops early at the end of the domain.
func (d *Disassembler) DecodeMany(start uint64, count int) ([]Instruction, error) {
	if !within(count, 1, maxDecodeCount) {
		return nil, probeErrorf(CodeInvalidLength, "count must be between 1 and %d", maxDecodeCount)
	}
	out := make([]Instruction, 0, count)
	addr := start
	for range count {
		in, err := d.DecodeOne(addr)
		if err != nil {
			if len(out) > 0 && errors.Is(err, ErrInvalidAddress) {
				break
			}
			return nil, err
		}
		out = append(out, in)
		addr += uint64(in.Size)
	}
	return out, nil
}

// Current decodes the instruction at the program counter.
func (d *Disassembler) Current() (Instruction, error) {
	return d.DecodeOne(d.pc())
}

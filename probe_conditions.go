// probe_conditions.go - Breakpoint condition parser and evaluator

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
	"strings"
)

type ConditionSource int

const (
	CondSourceRegister ConditionSource = iota
	CondSourceMemory
	CondSourceHitCount
	CondSourceValue
)

type ConditionOp int

const (
	CondOpEqual ConditionOp = iota
	CondOpNotEqual
	CondOpLess
	CondOpGreater
	CondOpLessEqual
	CondOpGreaterEqual
)

// Longest operators first so "<=" is not read as "<".
var conditionOps = []struct {
	text string
	op   ConditionOp
}{
	{"==", CondOpEqual},
	{"!=", CondOpNotEqual},
	{"<=", CondOpLessEqual},
	{">=", CondOpGreaterEqual},
	{"<", CondOpLess},
	{">", CondOpGreater},
}

// BreakpointCondition gates whether a tap firing is recorded as a hit.
type BreakpointCondition struct {
	Source  ConditionSource
	RegName string
	MemAddr uint64
	Op      ConditionOp
	Value   uint64
}

// conditionEnv supplies the values a condition can observe at the moment a
// tap fires.
type conditionEnv struct {
	registers []RegisterInfo
	readByte  func(addr uint64) (byte, bool)
	arrivals  uint64
	value     byte
}

// ParseCondition parses a condition string.
//
//	A==$05       - register A
//	[$0010]>3    - byte at $0010 in the default domain
//	hitcount>=2  - times the tap has fired, this time included
//	value==$09   - byte being read or written
func ParseCondition(text string) (*BreakpointCondition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, probeErrorf(CodeInvalidCondition, "empty condition")
	}

	opIdx, opLen := -1, 0
	var op ConditionOp
	for _, candidate := range conditionOps {
		if idx := strings.Index(text, candidate.text); idx >= 0 {
			opIdx, opLen, op = idx, len(candidate.text), candidate.op
			break
		}
	}
	if opIdx < 0 {
		return nil, probeErrorf(CodeInvalidCondition, "no operator in %q (use ==, !=, <, >, <=, >=)", text)
	}

	lhs := strings.TrimSpace(text[:opIdx])
	rhs := strings.TrimSpace(text[opIdx+opLen:])
	if lhs == "" {
		return nil, probeErrorf(CodeInvalidCondition, "missing left-hand side in %q", text)
	}
	value, ok := ParseAddress(rhs)
	if !ok {
		return nil, probeErrorf(CodeInvalidCondition, "invalid value: %s", rhs)
	}
	cond := &BreakpointCondition{Op: op, Value: value}

	switch {
	case strings.HasPrefix(lhs, "[") && strings.HasSuffix(lhs, "]"):
		addr, ok := ParseAddress(lhs[1 : len(lhs)-1])
		if !ok {
			return nil, probeErrorf(CodeInvalidCondition, "invalid memory address: %s", lhs)
		}
		cond.Source = CondSourceMemory
		cond.MemAddr = addr
	case strings.EqualFold(lhs, "hitcount"):
		cond.Source = CondSourceHitCount
	case strings.EqualFold(lhs, "value"):
		cond.Source = CondSourceValue
	default:
		cond.Source = CondSourceRegister
		cond.RegName = strings.ToUpper(lhs)
	}
	return cond, nil
}

// Holds reports whether the condition is satisfied. A nil condition always
// holds; an unknown register or unreadable address never does.
func (c *BreakpointCondition) Holds(env conditionEnv) bool {
	if c == nil {
		return true
	}

	var actual uint64
	switch c.Source {
	case CondSourceRegister:
		v, ok := registerValue(env.registers, c.RegName)
		if !ok {
			return false
		}
		actual = v
	case CondSourceMemory:
		if env.readByte == nil {
			return false
		}
		b, ok := env.readByte(c.MemAddr)
		if !ok {
			return false
		}
		actual = uint64(b)
	case CondSourceHitCount:
		actual = env.arrivals
	case CondSourceValue:
		actual = uint64(env.value)
	}
	return compareValues(actual, c.Op, c.Value)
}

func compareValues(actual uint64, op ConditionOp, expected uint64) bool {
	switch op {
	case CondOpEqual:
		return actual == expected
	case CondOpNotEqual:
		return actual != expected
	case CondOpLess:
		return actual < expected
	case CondOpGreater:
		return actual > expected
	case CondOpLessEqual:
		return actual <= expected
	case CondOpGreaterEqual:
		return actual >= expected
	}
	return false
}

// String renders the condition in the form ParseCondition accepts.
func (c *BreakpointCondition) String() string {
	if c == nil {
		return ""
	}

	var lhs string
	switch c.Source {
	case CondSourceRegister:
		lhs = c.RegName
	case CondSourceMemory:
		lhs = fmt.Sprintf("[$%04X]", c.MemAddr)
	case CondSourceHitCount:
		lhs = "hitcount"
	case CondSourceValue:
		lhs = "value"
	}

	var opStr string
	for _, candidate := range conditionOps {
		if candidate.op == c.Op {
			opStr = candidate.text
			break
		}
	}
	return fmt.Sprintf("%s%s$%X", lhs, opStr, c.Value)
}

// probe_address.go - Address and numeric argument parsing for protocol parameters

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
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// ParseAddress parses an address or value in the protocol's text formats:
// $hex, 0xhex, #decimal, bare decimal, and bare hex when it contains a-f.
func ParseAddress(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// #decimal
	if strings.HasPrefix(s, "#") {
		v, err := strconv.ParseUint(s[1:], 10, 64)
		return v, err == nil
	}

	// $hex
	if strings.HasPrefix(s, "$") {
		v, err := strconv.ParseUint(s[1:], 16, 64)
		return v, err == nil
	}

	// 0x or 0X hex
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 64)
		return v, err == nil
	}

	// bare text: hex only when a hex letter makes it unambiguous
	if strings.ContainsAny(s, "abcdefABCDEF") {
		v, err := strconv.ParseUint(s, 16, 64)
		return v, err == nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

// formatAddress renders an address in the canonical $XXXX form.
func formatAddress(addr uint64) string {
	return fmt.Sprintf("$%04X", addr)
}

// within reports whether lo <= v <= hi.
func within[T constraints.Integer](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// argPresent reports whether a raw parameter carries a non-null value.
func argPresent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// parseIntegerLiteral decodes a JSON number with no fractional part.
func parseIntegerLiteral(raw json.RawMessage) (int64, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := num.Int64(); err == nil {
		return i, true
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// parseNumericArg accepts either a JSON integer or address-style text.
func parseNumericArg(raw json.RawMessage) (int64, bool) {
	t := bytes.TrimSpace(raw)
	if len(t) > 0 && t[0] == '"' {
		var s string
		if err := json.Unmarshal(t, &s); err != nil {
			return 0, false
		}
		v, ok := ParseAddress(s)
		if !ok || v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	}
	return parseIntegerLiteral(t)
}

// parseAddressArg decodes a required address parameter.
func parseAddressArg(raw json.RawMessage) (uint64, error) {
	if !argPresent(raw) {
		return 0, probeErrorf(CodeInvalidAddress, "address is required")
	}
	v, ok := parseNumericArg(raw)
	if !ok || v < 0 {
		return 0, probeErrorf(CodeInvalidAddress, "invalid address: %s", bytes.TrimSpace(raw))
	}
	return uint64(v), nil
}

// parseByteArg decodes a required byte value parameter.
func parseByteArg(raw json.RawMessage, name string) (byte, error) {
	if !argPresent(raw) {
		return 0, probeErrorf(CodeInvalidValue, "%s is required", name)
	}
	v, ok := parseNumericArg(raw)
	if !ok || !within(v, 0, 0xFF) {
		return 0, probeErrorf(CodeInvalidValue, "%s must be 0-255, got %s", name, bytes.TrimSpace(raw))
	}
	return byte(v), nil
}

// parseCountArg decodes an optional positive integer, returning def when the
// parameter is absent.
func parseCountArg(raw json.RawMessage, def int, code ErrorCode, name string) (int, error) {
	if !argPresent(raw) {
		return def, nil
	}
	v, ok := parseIntegerLiteral(raw)
	if !ok || !within(v, 1, math.MaxInt32) {
		return 0, probeErrorf(code, "%s must be a positive integer, got %s", name, bytes.TrimSpace(raw))
	}
	return int(v), nil
}

// domainArg normalises an optional domain parameter; nil and "" both select
// the default domain.
func domainArg(d *string) string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(*d)
}

// probe_errors.go - Error taxonomy surfaced in command responses

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
)

// ErrorCode is the machine-readable error name carried in a response.
type ErrorCode string

const (
	CodeInvalidAddress        ErrorCode = "InvalidAddress"
	CodeInvalidLength         ErrorCode = "InvalidLength"
	CodeInvalidValue          ErrorCode = "InvalidValue"
	CodeInvalidDomain         ErrorCode = "InvalidDomain"
	CodeInvalidFilter         ErrorCode = "InvalidFilter"
	CodeSnapshotNotFound      ErrorCode = "SnapshotNotFound"
	CodeFreezeLimitExceeded   ErrorCode = "FreezeLimitExceeded"
	CodeFreezeAlreadyExists   ErrorCode = "FreezeAlreadyExists"
	CodeFreezeNotFound        ErrorCode = "FreezeNotFound"
	CodeBreakpointNotFound    ErrorCode = "BreakpointNotFound"
	CodeInvalidBreakpointType ErrorCode = "InvalidBreakpointType"
	CodeInvalidCondition      ErrorCode = "InvalidCondition"
	CodeUnsupportedStepMode   ErrorCode = "UnsupportedStepMode"
	CodeUnknownAction         ErrorCode = "UnknownAction"
	CodeMalformedCommand      ErrorCode = "MalformedCommand"
	CodeScriptError           ErrorCode = "ScriptError"
	CodeIncompatibleProtocol  ErrorCode = "IncompatibleProtocol"
	CodeHostError             ErrorCode = "HostError"
)

// ProbeError is a failure attributable to one command. Data, when set, is
// returned alongside the error (FreezeAlreadyExists carries the existing id).
type ProbeError struct {
	Code ErrorCode
	Msg  string
	Data any
}

func (e *ProbeError) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return e.Msg
}

// Is matches on code so sentinel comparisons work on wrapped instances.
func (e *ProbeError) Is(target error) bool {
	t, ok := target.(*ProbeError)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidAddress        = &ProbeError{Code: CodeInvalidAddress, Msg: "invalid address"}
	ErrInvalidLength         = &ProbeError{Code: CodeInvalidLength, Msg: "length must be a positive integer"}
	ErrInvalidValue          = &ProbeError{Code: CodeInvalidValue, Msg: "value must be a byte (0-255)"}
	ErrInvalidDomain         = &ProbeError{Code: CodeInvalidDomain, Msg: "unknown memory domain"}
	ErrInvalidFilter         = &ProbeError{Code: CodeInvalidFilter, Msg: "filter must be changed, increased, decreased or same"}
	ErrSnapshotNotFound      = &ProbeError{Code: CodeSnapshotNotFound, Msg: "snapshot not found"}
	ErrFreezeLimitExceeded   = &ProbeError{Code: CodeFreezeLimitExceeded, Msg: "freeze limit reached"}
	ErrFreezeAlreadyExists   = &ProbeError{Code: CodeFreezeAlreadyExists, Msg: "address already frozen"}
	ErrFreezeNotFound        = &ProbeError{Code: CodeFreezeNotFound, Msg: "freeze not found"}
	ErrBreakpointNotFound    = &ProbeError{Code: CodeBreakpointNotFound, Msg: "breakpoint not found"}
	ErrInvalidBreakpointType = &ProbeError{Code: CodeInvalidBreakpointType, Msg: "breakpoint type must be read, write or execute"}
	ErrInvalidCondition      = &ProbeError{Code: CodeInvalidCondition, Msg: "invalid breakpoint condition"}
	ErrUnsupportedStepMode   = &ProbeError{Code: CodeUnsupportedStepMode, Msg: "step mode not supported by host"}
	ErrUnknownAction         = &ProbeError{Code: CodeUnknownAction, Msg: "unknown action"}
	ErrMalformedCommand      = &ProbeError{Code: CodeMalformedCommand, Msg: "malformed command"}
	ErrScriptError           = &ProbeError{Code: CodeScriptError, Msg: "script error"}
	ErrIncompatibleProtocol  = &ProbeError{Code: CodeIncompatibleProtocol, Msg: "incompatible protocol version"}
	ErrHostError             = &ProbeError{Code: CodeHostError, Msg: "host error"}
)

// probeErrorf builds a ProbeError with a formatted message.
func probeErrorf(code ErrorCode, format string, args ...any) *ProbeError {
	return &ProbeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// hostError wraps a failure of a host primitive.
func hostError(op string, err error) error {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return err
	}
	return &ProbeError{Code: CodeHostError, Msg: fmt.Sprintf("%s: %v", op, err)}
}

// errorCodeOf returns the taxonomy code for err, defaulting to HostError.
func errorCodeOf(err error) (ErrorCode, any) {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Code, pe.Data
	}
	return CodeHostError, nil
}

// probe_protocol.go - Command and response envelopes shared by both transports

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
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ProtocolVersion is reported by session.hello and checked against a
// client's "require" constraint.
const ProtocolVersion = "1.2.0"

var protocolVersion = semver.MustParse(ProtocolVersion)

var (
	errNoCommand = errors.New("no command present")
	errNoID      = errors.New("command has no usable id")
)

// Command is one request. Parameters sit beside id and action in the same
// object; Raw keeps the whole record so handlers decode their own shape.
type Command struct {
	ID     int64
	Action string
	Raw    json.RawMessage
}

// parseCommand decodes one record. Anything that is not a JSON object is
// errNoCommand; an object without an integral positive id is errNoID.
func parseCommand(data []byte) (Command, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return Command{}, errNoCommand
	}
	var head struct {
		ID     json.RawMessage `json:"id"`
		Action json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Command{}, errNoCommand
	}

	id, ok := parseIntegerLiteral(head.ID)
	if !argPresent(head.ID) || !ok || id < 1 {
		return Command{}, errNoID
	}
	cmd := Command{ID: id, Raw: json.RawMessage(data)}
	if argPresent(head.Action) {
		// A non-string action is left empty and reported as malformed.
		_ = json.Unmarshal(head.Action, &cmd.Action)
	}
	return cmd, nil
}

// Response is the reply to one accepted command.
type Response struct {
	CommandID int64     `json:"commandId"`
	Action    string    `json:"action"`
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorCode ErrorCode `json:"errorCode,omitempty"`
}

func okResponse(cmd Command, data any) *Response {
	return &Response{CommandID: cmd.ID, Action: cmd.Action, Success: true, Data: data}
}

func errorResponse(cmd Command, err error) *Response {
	code, data := errorCodeOf(err)
	return &Response{
		CommandID: cmd.ID,
		Action:    cmd.Action,
		Success:   false,
		Data:      data,
		Error:     err.Error(),
		ErrorCode: code,
	}
}

// Encode marshals a response as a single line without the newline.
func (r *Response) Encode() []byte {
	data, err := json.Marshal(r)
	if err != nil {
		// Only handler data can fail to marshal; report that instead.
		fallback := &Response{
			CommandID: r.CommandID,
			Action:    r.Action,
			Error:     fmt.Sprintf("encode response: %v", err),
			ErrorCode: CodeHostError,
		}
		data, _ = json.Marshal(fallback)
	}
	return data
}

// checkProtocol validates a client's semver constraint against
// ProtocolVersion.
func checkProtocol(require string) error {
	if require == "" {
		return nil
	}
	c, err := semver.NewConstraint(require)
	if err != nil {
		return probeErrorf(CodeMalformedCommand, "invalid version constraint %q: %v", require, err)
	}
	if !c.Check(protocolVersion) {
		return probeErrorf(CodeIncompatibleProtocol, "protocol %s does not satisfy %s", ProtocolVersion, require)
	}
	return nil
}

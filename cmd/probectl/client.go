package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Response mirrors the engine's response envelope.
type Response struct {
	CommandID int64           `json:"commandId"`
	Action    string          `json:"action"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"errorCode,omitempty"`
}

var errTimeout = errors.New("timed out waiting for response")

// transport moves one encoded command to the engine and waits for the
// response carrying the same id.
type transport interface {
	roundTrip(id int64, payload []byte, timeout time.Duration) (*Response, error)
	Close() error
}

// Client numbers commands. The engine drops ids that are not newer than
// the last one it accepted, across all clients and restarts of this tool,
// so numbering starts from the wall clock.
type Client struct {
	tr      transport
	nextID  int64
	timeout time.Duration
}

func NewClient(tr transport, timeout time.Duration) *Client {
	return &Client{tr: tr, nextID: time.Now().UnixMicro(), timeout: timeout}
}

// Call sends action with params merged into the top level of the command.
func (c *Client) Call(action string, params map[string]any) (*Response, error) {
	id := c.nextID
	c.nextID++

	cmd := make(map[string]any, len(params)+2)
	for k, v := range params {
		cmd[k] = v
	}
	cmd["id"] = id
	cmd["action"] = action
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", action, err)
	}

	resp, err := c.tr.roundTrip(id, payload, c.timeout)
	if err != nil {
		return nil, err
	}
	// Keep numbering ahead of whatever the engine has seen.
	if resp.Action == "session.hello" && resp.Success {
		var hello struct {
			LastCommandID int64 `json:"lastCommandId"`
		}
		if json.Unmarshal(resp.Data, &hello) == nil && hello.LastCommandID >= c.nextID {
			c.nextID = hello.LastCommandID + 1
		}
	}
	return resp, nil
}

func (c *Client) Close() error { return c.tr.Close() }

// ---------------------------------------------------------------------------
// socket
// ---------------------------------------------------------------------------

type socketTransport struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialSocket(addr string, timeout time.Duration) (*socketTransport, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to %s: %w", addr, err)
	}
	return &socketTransport{conn: conn, reader: bufio.NewReader(conn)}, nil
}

func (s *socketTransport) roundTrip(id int64, payload []byte, timeout time.Duration) (*Response, error) {
	deadline := time.Now().Add(timeout)
	s.conn.SetDeadline(deadline)
	if _, err := s.conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("send failed: %w", err)
	}
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, errTimeout
			}
			return nil, fmt.Errorf("read response failed: %w", err)
		}
		var resp Response
		if err := json.Unmarshal(bytes.TrimSpace(line), &resp); err != nil {
			continue
		}
		if resp.CommandID == id {
			return &resp, nil
		}
	}
}

func (s *socketTransport) Close() error { return s.conn.Close() }

// ---------------------------------------------------------------------------
// mailbox
// ---------------------------------------------------------------------------

type mailboxTransport struct {
	commandPath  string
	responsePath string
	poll         time.Duration
}

func newMailboxTransport(dir string) *mailboxTransport {
	return &mailboxTransport{
		commandPath:  filepath.Join(dir, "debug_commands.json"),
		responsePath: filepath.Join(dir, "debug_response.json"),
		poll:         50 * time.Millisecond,
	}
}

func (m *mailboxTransport) roundTrip(id int64, payload []byte, timeout time.Duration) (*Response, error) {
	tmp := m.commandPath + ".tmp"
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}
	if err := os.Rename(tmp, m.commandPath); err != nil {
		return nil, fmt.Errorf("write command: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(m.responsePath); err == nil {
			var resp Response
			if json.Unmarshal(data, &resp) == nil && resp.CommandID == id {
				return &resp, nil
			}
		}
		time.Sleep(m.poll)
	}
	return nil, errTimeout
}

func (m *mailboxTransport) Close() error { return nil }

// ---------------------------------------------------------------------------
// argument parsing
// ---------------------------------------------------------------------------

// parseParams turns key=value words into command parameters. Values that
// are valid JSON keep their type, so count=5 is a number and
// buttons={"a":true} is an object; anything else is a string.
func parseParams(words []string) (map[string]any, error) {
	params := make(map[string]any, len(words))
	for _, w := range words {
		key, value, ok := strings.Cut(w, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", w)
		}
		if key == "id" || key == "action" {
			return nil, fmt.Errorf("%s is set by probectl", key)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		params[key] = v
	}
	return params, nil
}

// splitCommandLine splits an interactive line on whitespace, keeping
// single- or double-quoted runs together.
func splitCommandLine(line string) ([]string, error) {
	var (
		words []string
		cur   strings.Builder
		quote rune
		inTok bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote, inTok = r, true
		case r == ' ' || r == '\t':
			if inTok {
				words = append(words, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			cur.WriteRune(r)
			inTok = true
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inTok {
		words = append(words, cur.String())
	}
	return words, nil
}

// formatResponse renders a response for humans.
func formatResponse(resp *Response) string {
	if !resp.Success {
		if resp.ErrorCode != "" {
			return fmt.Sprintf("error [%s]: %s", resp.ErrorCode, resp.Error)
		}
		return "error: " + resp.Error
	}
	if len(resp.Data) == 0 {
		return "ok"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, resp.Data, "", "  "); err != nil {
		return string(resp.Data)
	}
	return out.String()
}

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// ============================================================================
// Argument Parsing Tests
// ============================================================================

func TestParseParams_Types(t *testing.T) {
	params, err := parseParams([]string{"address=0x10", "count=5", "enabled=true", `buttons={"a":true}`, "name=$10"})
	if err != nil {
		t.Fatalf("parseParams returned error: %v", err)
	}
	if params["address"] != "0x10" {
		t.Errorf("address = %#v, want string 0x10", params["address"])
	}
	if params["count"] != float64(5) {
		t.Errorf("count = %#v, want number 5", params["count"])
	}
	if params["enabled"] != true {
		t.Errorf("enabled = %#v, want true", params["enabled"])
	}
	if m, ok := params["buttons"].(map[string]any); !ok || m["a"] != true {
		t.Errorf("buttons = %#v, want object", params["buttons"])
	}
	if params["name"] != "$10" {
		t.Errorf("name = %#v, want $10", params["name"])
	}
}

func TestParseParams_Rejects(t *testing.T) {
	for _, words := range [][]string{{"address"}, {"=5"}, {"id=3"}, {"action=x"}} {
		if _, err := parseParams(words); err == nil {
			t.Errorf("parseParams(%q) succeeded, want error", words)
		}
	}
}

func TestSplitCommandLine(t *testing.T) {
	words, err := splitCommandLine(`script.eval code='return 1 + 2'  note="a b"`)
	if err != nil {
		t.Fatalf("splitCommandLine returned error: %v", err)
	}
	want := []string{"script.eval", "code=return 1 + 2", "note=a b"}
	if len(words) != len(want) {
		t.Fatalf("got %q, want %q", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("word %d = %q, want %q", i, words[i], want[i])
		}
	}
	if _, err := splitCommandLine(`broken 'quote`); err == nil {
		t.Error("unterminated quote accepted")
	}
}

func TestFormatResponse(t *testing.T) {
	failed := &Response{Success: false, Error: "no snapshot named x", ErrorCode: "SnapshotNotFound"}
	if got := formatResponse(failed); got != "error [SnapshotNotFound]: no snapshot named x" {
		t.Errorf("formatResponse(failure) = %q", got)
	}
	if got := formatResponse(&Response{Success: true}); got != "ok" {
		t.Errorf("formatResponse(empty) = %q, want ok", got)
	}
	if got := formatResponse(&Response{Success: true, Data: json.RawMessage(`42`)}); got != "42" {
		t.Errorf("formatResponse(42) = %q", got)
	}
}

// ============================================================================
// Socket Transport Tests
// ============================================================================

// fakeEngine answers every command with a stale response first and then
// the real one, so the client must match on commandId.
func fakeEngine(t *testing.T, lastID int64) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var cmd map[string]any
			if json.Unmarshal(scanner.Bytes(), &cmd) != nil {
				return
			}
			id := int64(cmd["id"].(float64))
			action := cmd["action"].(string)
			fmt.Fprintf(conn, `{"commandId":%d,"action":"old","success":true}`+"\n", id-1)
			data := fmt.Sprintf(`{"echo":%q}`, action)
			if action == "session.hello" {
				data = fmt.Sprintf(`{"lastCommandId":%d}`, lastID)
			}
			fmt.Fprintf(conn, `{"commandId":%d,"action":%q,"success":true,"data":%s}`+"\n", id, action, data)
		}
	}()
	return ln.Addr().String()
}

func TestClient_SocketMatchesCommandID(t *testing.T) {
	addr := fakeEngine(t, 0)
	tr, err := dialSocket(addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := NewClient(tr, 2*time.Second)
	defer c.Close()

	first := c.nextID
	resp, err := c.Call("memory.read", map[string]any{"address": "0x10"})
	if err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if resp.CommandID != first || resp.Action != "memory.read" {
		t.Errorf("got response %d/%s, want %d/memory.read", resp.CommandID, resp.Action, first)
	}
	if c.nextID != first+1 {
		t.Errorf("nextID = %d, want %d", c.nextID, first+1)
	}
}

func TestClient_HelloAdvancesNumbering(t *testing.T) {
	far := time.Now().UnixMicro() + 1_000_000_000
	addr := fakeEngine(t, far)
	tr, err := dialSocket(addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := NewClient(tr, 2*time.Second)
	defer c.Close()

	if _, err := c.Call("session.hello", nil); err != nil {
		t.Fatalf("hello: %v", err)
	}
	if c.nextID != far+1 {
		t.Errorf("nextID = %d, want %d", c.nextID, far+1)
	}
}

func TestClient_SocketTimeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(time.Second)
		}
	}()

	tr, err := dialSocket(ln.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	c := NewClient(tr, 100*time.Millisecond)
	defer c.Close()
	if _, err := c.Call("execution.pause", nil); !errors.Is(err, errTimeout) {
		t.Errorf("Call error = %v, want errTimeout", err)
	}
}

// ============================================================================
// Mailbox Transport Tests
// ============================================================================

func TestClient_Mailbox(t *testing.T) {
	dir := t.TempDir()
	tr := newMailboxTransport(dir)
	tr.poll = 5 * time.Millisecond
	c := NewClient(tr, 2*time.Second)

	go func() {
		cmdPath := filepath.Join(dir, "debug_commands.json")
		for range 200 {
			data, err := os.ReadFile(cmdPath)
			if err == nil {
				var cmd struct {
					ID     int64  `json:"id"`
					Action string `json:"action"`
				}
				if json.Unmarshal(data, &cmd) == nil {
					out := fmt.Sprintf(`{"commandId":%d,"action":%q,"success":false,"error":"boom","errorCode":"HostError"}`, cmd.ID, cmd.Action)
					os.WriteFile(filepath.Join(dir, "debug_response.json"), []byte(out), 0644)
					return
				}
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	resp, err := c.Call("state.save", map[string]any{"slot": 1})
	if err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if resp.Success || resp.ErrorCode != "HostError" {
		t.Errorf("response = %+v, want HostError failure", resp)
	}
}

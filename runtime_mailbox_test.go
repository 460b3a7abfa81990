package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newPollingMailbox builds a mailbox without a watcher, so every Poll reads
// the command file.
func newPollingMailbox(dir string) *FileMailbox {
	return &FileMailbox{
		commandPath:  filepath.Join(dir, "debug_commands.json"),
		responsePath: filepath.Join(dir, "debug_response.json"),
		logger:       slog.New(slog.DiscardHandler),
	}
}

func writeCommandFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write command file: %v", err)
	}
}

func readResponseFile(t *testing.T, path string) Response {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read response file: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode response file %q: %v", data, err)
	}
	return resp
}

func TestFileMailbox_PendingOnlyWhenNewer(t *testing.T) {
	mb := newPollingMailbox(t.TempDir())
	if got := mb.Poll(0); got != nil {
		t.Fatalf("Poll with no command file = %q", got)
	}

	writeCommandFile(t, mb.commandPath, `{"id":3,"action":"execution.pause"}`)
	if got := mb.Poll(0); got == nil {
		t.Fatal("command newer than last id not returned")
	}
	if got := mb.Poll(2); got == nil {
		t.Fatal("unconsumed command not returned again")
	}
	if got := mb.Poll(3); got != nil {
		t.Fatal("command already accepted returned again")
	}
	if got := mb.Poll(10); got != nil {
		t.Fatal("stale command returned")
	}
	if _, err := os.Stat(mb.commandPath); err != nil {
		t.Fatalf("command file removed: %v", err)
	}
}

func TestFileMailbox_PartialWriteRetried(t *testing.T) {
	mb := newPollingMailbox(t.TempDir())
	writeCommandFile(t, mb.commandPath, `{"id":4,"act`)
	if got := mb.Poll(0); got != nil {
		t.Fatalf("partial record returned: %q", got)
	}
	if !mb.dirty.Load() {
		t.Error("partial record not marked for re-read")
	}
	writeCommandFile(t, mb.commandPath, `{"id":4,"action":"execution.resume"}`)
	if got := mb.Poll(0); got == nil {
		t.Fatal("completed record not returned")
	}

	writeCommandFile(t, mb.commandPath, `{"action":"execution.resume"}`)
	if got := mb.Poll(0); got != nil {
		t.Fatalf("record without id returned: %q", got)
	}
}

func TestFileMailbox_SendOverwritesResponse(t *testing.T) {
	mb := newPollingMailbox(t.TempDir())
	for id := int64(1); id <= 2; id++ {
		if err := mb.Send(&Response{CommandID: id, Action: "execution.getState", Success: true}); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if resp := readResponseFile(t, mb.responsePath); resp.CommandID != 2 {
		t.Errorf("response file holds id %d, want 2", resp.CommandID)
	}
	if err := mb.Send(nil); err != nil {
		t.Errorf("Send(nil): %v", err)
	}

	bad := newPollingMailbox(filepath.Join(t.TempDir(), "missing"))
	if err := bad.Send(&Response{CommandID: 1}); err == nil {
		t.Error("Send into a missing directory succeeded")
	}
}

func TestFileMailbox_WatcherNoticesCommand(t *testing.T) {
	dir := t.TempDir()
	mb := NewFileMailbox(filepath.Join(dir, "cmd.json"), filepath.Join(dir, "resp.json"), nil)
	defer mb.Close()
	if !mb.Watching() {
		t.Skip("file notifications unavailable")
	}

	if got := mb.Poll(0); got != nil {
		t.Fatalf("initial poll = %q", got)
	}
	writeCommandFile(t, filepath.Join(dir, "cmd.json"), `{"id":1,"action":"execution.pause"}`)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mb.Poll(0) != nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("watched mailbox never returned the command")
}

func TestFileMailbox_UnwatchableDirectoryFallsBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	mb := NewFileMailbox(filepath.Join(dir, "cmd.json"), filepath.Join(dir, "resp.json"), nil)
	defer mb.Close()
	if mb.Watching() {
		t.Fatal("watching a directory that does not exist")
	}

	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeCommandFile(t, filepath.Join(dir, "cmd.json"), `{"id":1,"action":"execution.pause"}`)
	if mb.Poll(0) == nil {
		t.Fatal("polling fallback did not read the command file")
	}
}

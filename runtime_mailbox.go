// runtime_mailbox.go - File mailbox transport: one command file, one response file

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
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// mailboxRescanTicks bounds how long a missed notification can delay a
// command when the watcher is running.
const mailboxRescanTicks = 30

// FileMailbox reads the controller's command file and overwrites the
// response file. The command file is never deleted; a command is pending
// only while its id is newer than the last accepted one.
type FileMailbox struct {
	commandPath  string
	responsePath string
	logger       *slog.Logger

	watcher *fsnotify.Watcher
	dirty   atomic.Bool
	done    chan struct{}
	ticks   int
}

// NewFileMailbox prepares the mailbox. When the directory cannot be
// watched the mailbox falls back to reading the command file every tick.
func NewFileMailbox(commandPath, responsePath string, logger *slog.Logger) *FileMailbox {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &FileMailbox{
		commandPath:  commandPath,
		responsePath: responsePath,
		logger:       logger,
	}
	m.dirty.Store(true)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("file watcher unavailable, polling every tick", "err", err)
		return m
	}
	dir := filepath.Dir(commandPath)
	if err := w.Add(dir); err != nil {
		logger.Warn("cannot watch mailbox directory, polling every tick", "dir", dir, "err", err)
		w.Close()
		return m
	}
	m.watcher = w
	m.done = make(chan struct{})
	go m.watchLoop()
	return m
}

func (m *FileMailbox) watchLoop() {
	defer close(m.done)
	name := filepath.Clean(m.commandPath)
	for {
		select {
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				m.dirty.Store(true)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("file watcher error", "err", err)
			m.dirty.Store(true)
		}
	}
}

// Watching reports whether change notifications are active.
func (m *FileMailbox) Watching() bool { return m.watcher != nil }

// Poll returns the pending command record, or nil. A record that does not
// parse is treated as absent and retried on the next tick, since the
// controller may still be writing it.
func (m *FileMailbox) Poll(lastID int64) []byte {
	m.ticks++
	if m.watcher != nil && !m.dirty.Swap(false) && m.ticks%mailboxRescanTicks != 0 {
		return nil
	}

	data, err := os.ReadFile(m.commandPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			m.logger.Warn("cannot read command file", "path", m.commandPath, "err", err)
		}
		return nil
	}
	cmd, err := parseCommand(data)
	switch {
	case errors.Is(err, errNoCommand):
		m.dirty.Store(true)
		return nil
	case err != nil:
		return nil
	case cmd.ID <= lastID:
		return nil
	}
	return data
}

// Send overwrites the response file atomically.
func (m *FileMailbox) Send(resp *Response) error {
	if resp == nil {
		return nil
	}
	if err := writeFileAtomic(m.responsePath, resp.Encode()); err != nil {
		m.logger.Warn("cannot write response file", "path", m.responsePath, "err", err)
		return fmt.Errorf("mailbox send: %w", err)
	}
	return nil
}

func (m *FileMailbox) Close() error {
	if m.watcher == nil {
		return nil
	}
	err := m.watcher.Close()
	<-m.done
	m.watcher = nil
	return err
}

// runtime_status.go - Status document, periodic state file and the shared last-status store

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
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// ProbeStatus is written to the state file and returned by probe.getStatus.
// timestamp is Unix seconds so controllers can judge liveness by age.
type ProbeStatus struct {
	Timestamp        float64           `json:"timestamp"`
	IsPaused         bool              `json:"isPaused"`
	State            string            `json:"state"`
	FrameCount       uint64            `json:"frameCount"`
	PC               string            `json:"pc"`
	Registers        map[string]uint64 `json:"registers"`
	Watches          []WatchEntry      `json:"watches"`
	BreakpointCount  int               `json:"breakpointCount"`
	FreezeCount      int               `json:"freezeCount"`
	HitCount         int               `json:"hitCount"`
	TraceEnabled     bool              `json:"traceEnabled"`
	AutoPause        bool              `json:"autoPause"`
	LastCommandID    int64             `json:"lastCommandId"`
	CommandsAccepted uint64            `json:"commandsAccepted"`
	CommandsFailed   uint64            `json:"commandsFailed"`
	UptimeSeconds    float64           `json:"uptimeSeconds"`
}

func (p *Probe) Status() ProbeStatus {
	now := time.Now()
	return ProbeStatus{
		Timestamp:        float64(now.UnixMilli()) / 1000,
		IsPaused:         p.exec.Paused(),
		State:            p.exec.State().String(),
		FrameCount:       p.host.FrameCount(),
		PC:               formatAddress(p.host.PC()),
		Registers:        registerMap(p.host.Registers()),
		Watches:          p.watches.List(),
		BreakpointCount:  p.bps.Count(),
		FreezeCount:      p.freezes.Len(),
		HitCount:         len(p.bps.Hits()),
		TraceEnabled:     p.trace.Enabled(),
		AutoPause:        p.bps.AutoPause(),
		LastCommandID:    p.lastID,
		CommandsAccepted: p.accepted,
		CommandsFailed:   p.failed,
		UptimeSeconds:    now.Sub(p.started).Seconds(),
	}
}

// statusStore holds the newest published status for readers outside the
// tick goroutine.
type statusStore struct {
	mu        sync.RWMutex
	last      ProbeStatus
	published uint64
}

func (s *statusStore) set(st ProbeStatus) {
	s.mu.Lock()
	s.last = st
	s.published++
	s.mu.Unlock()
}

func (s *statusStore) snapshot() (ProbeStatus, uint64) {
	s.mu.RLock()
	st, n := s.last, s.published
	s.mu.RUnlock()
	return st, n
}

// StatusPublisher writes the state file every interval ticks and on every
// pause/resume transition.
type StatusPublisher struct {
	path     string
	interval int
	ticks    int
	failing  bool
	logger   *slog.Logger
	store    *statusStore
}

// NewStatusPublisher publishes on the first tick. An empty path keeps the
// store current without touching the filesystem.
func NewStatusPublisher(path string, interval int, logger *slog.Logger) *StatusPublisher {
	if interval < 1 {
		interval = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StatusPublisher{
		path:     path,
		interval: interval,
		ticks:    interval,
		logger:   logger,
		store:    &statusStore{},
	}
}

// Tick publishes when due and reports whether it did.
func (s *StatusPublisher) Tick(p *Probe) bool {
	changed := p.takeStateChange()
	if s.ticks < s.interval && !changed {
		s.ticks++
		return false
	}
	s.ticks = 1
	s.Publish(p.Status())
	return true
}

func (s *StatusPublisher) Publish(st ProbeStatus) {
	s.store.set(st)
	if s.path == "" {
		return
	}
	data, err := json.Marshal(st)
	if err == nil {
		err = writeFileAtomic(s.path, data)
	}
	if err != nil {
		if !s.failing {
			s.logger.Warn("cannot write state file", "path", s.path, "err", err)
		}
		s.failing = true
		return
	}
	if s.failing {
		s.logger.Info("state file writable again", "path", s.path)
	}
	s.failing = false
}

// Last is safe to call from any goroutine.
func (s *StatusPublisher) Last() (ProbeStatus, uint64) { return s.store.snapshot() }

// runtime_tick.go - The tick driver: the only scheduler of engine work

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
	"context"
	"log/slog"
	"time"
)

// TickDriver runs one engine tick per host frame. Order within a tick:
// service IPC, capture trace, apply freezes, publish status, then advance
// the frame or yield when paused. Freezes are applied again after an
// advanced frame.
type TickDriver struct {
	probe    *Probe
	gateway  *Gateway
	status   *StatusPublisher
	logger   *slog.Logger
	interval time.Duration

	ticks      uint64
	lastErr    string
	errRepeats int
}

func NewTickDriver(p *Probe, gateway *Gateway, status *StatusPublisher, interval time.Duration, logger *slog.Logger) *TickDriver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TickDriver{
		probe:    p,
		gateway:  gateway,
		status:   status,
		logger:   logger,
		interval: interval,
	}
}

// Ticks is the number of completed ticks.
func (d *TickDriver) Ticks() uint64 { return d.ticks }

func (d *TickDriver) Tick() {
	d.ticks++
	if d.gateway != nil {
		d.gateway.Step()
	}

	p := d.probe
	if p.exec.Paused() {
		p.freezes.Apply()
	} else {
		p.frameStages()
	}

	if d.status != nil {
		d.status.Tick(p)
	}

	if p.exec.Paused() {
		p.host.Yield()
		return
	}
	d.advance()
	p.afterFrame()
}

// advance runs one host frame. Host failures are logged once per distinct
// message and never stop the driver.
func (d *TickDriver) advance() {
	err := d.probe.host.FrameAdvance()
	if err == nil {
		if d.errRepeats > 1 {
			d.logger.Info("frame advance recovered", "repeats", d.errRepeats)
		}
		d.lastErr, d.errRepeats = "", 0
		return
	}
	msg := err.Error()
	if msg == d.lastErr {
		d.errRepeats++
		return
	}
	d.lastErr, d.errRepeats = msg, 1
	d.logger.Warn("frame advance failed", "frame", d.probe.host.FrameCount(), "err", err)
}

// Run ticks at the configured rate until ctx is cancelled.
func (d *TickDriver) Run(ctx context.Context) error {
	interval := d.interval
	if interval <= 0 {
		interval = time.Second / 60
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logger.Info("tick loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("tick loop stopped", "ticks", d.ticks)
			return nil
		case <-ticker.C:
			d.Tick()
		}
	}
}

// runtime_gateway.go - Routes transport records into the dispatcher and replies on the same transport

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

import "log/slog"

// Gateway services both transports once per tick. Either may be nil.
type Gateway struct {
	probe   *Probe
	socket  *SocketTransport
	mailbox *FileMailbox
	logger  *slog.Logger
}

func NewGateway(p *Probe, socket *SocketTransport, mailbox *FileMailbox, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{probe: p, socket: socket, mailbox: mailbox, logger: logger}
}

// Step processes pending commands and reports how many were accepted. The
// mailbox is consulted only when no socket command was accepted this tick.
func (g *Gateway) Step() int {
	accepted := 0
	if g.socket != nil {
		for _, line := range g.socket.Poll(socketLinesPerTick) {
			resp := g.probe.Dispatch(line)
			if resp == nil {
				continue
			}
			accepted++
			g.socket.Send(resp)
		}
	}
	if accepted > 0 || g.mailbox == nil {
		return accepted
	}
	data := g.mailbox.Poll(g.probe.LastCommandID())
	if data == nil {
		return 0
	}
	if resp := g.probe.Dispatch(data); resp != nil {
		g.mailbox.Send(resp)
		return 1
	}
	return 0
}

// Close shuts both transports down.
func (g *Gateway) Close() {
	if g.socket != nil {
		if err := g.socket.Close(); err != nil {
			g.logger.Debug("socket close", "err", err)
		}
	}
	if g.mailbox != nil {
		if err := g.mailbox.Close(); err != nil {
			g.logger.Debug("mailbox close", "err", err)
		}
	}
}

// runtime_ipc.go - Line-delimited TCP transport for the single controller connection

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
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

const (
	socketMaxLineSize  = 1 << 20
	socketLinesPerTick = 16
	socketWriteTimeout = 2 * time.Second
	socketLineBacklog  = 64
)

// socketLine is one complete line read from a client. gen ties it to the
// connection that produced it so lines from an evicted client are dropped.
type socketLine struct {
	gen  uint64
	data []byte
	eof  bool
}

// SocketTransport owns one TCP listener and at most one live client. The
// accept and read loops run in goroutines and only hand data to the tick
// through channels; the connection itself is only written from the tick.
type SocketTransport struct {
	listener net.Listener
	logger   *slog.Logger

	conns   chan net.Conn
	lines   chan socketLine
	closing chan struct{}
	done    chan struct{}
	once    sync.Once

	conn net.Conn
	gen  uint64
}

// NewSocketTransport binds addr and starts accepting clients.
func NewSocketTransport(addr string, logger *slog.Logger) (*SocketTransport, error) {
	lc := net.ListenConfig{Control: listenControl}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("socket bind failed: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := &SocketTransport{
		listener: ln,
		logger:   logger,
		conns:    make(chan net.Conn),
		lines:    make(chan socketLine, socketLineBacklog),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go t.acceptLoop()
	logger.Info("socket transport listening", "addr", ln.Addr().String())
	return t, nil
}

// Addr is the bound listener address.
func (t *SocketTransport) Addr() net.Addr { return t.listener.Addr() }

// Connected reports whether a client is attached.
func (t *SocketTransport) Connected() bool { return t.conn != nil }

func (t *SocketTransport) acceptLoop() {
	defer close(t.done)
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			return
		}
		select {
		case t.conns <- conn:
		case <-t.closing:
			conn.Close()
			return
		}
	}
}

func (t *SocketTransport) readLoop(conn net.Conn, gen uint64) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), socketMaxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !t.deliver(socketLine{gen: gen, data: bytes.Clone(line)}) {
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		t.logger.Warn("client read failed", "err", err)
	}
	t.deliver(socketLine{gen: gen, eof: true})
}

func (t *SocketTransport) deliver(l socketLine) bool {
	select {
	case t.lines <- l:
		return true
	case <-t.closing:
		return false
	}
}

// adopt makes conn the active client, evicting any previous one.
func (t *SocketTransport) adopt(conn net.Conn) {
	if t.conn != nil {
		t.logger.Info("client replaced", "old", t.conn.RemoteAddr().String(), "new", conn.RemoteAddr().String())
		t.conn.Close()
	} else {
		t.logger.Info("client connected", "remote", conn.RemoteAddr().String())
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		tcp.SetNoDelay(true)
	}
	t.gen++
	t.conn = conn
	go t.readLoop(conn, t.gen)
}

func (t *SocketTransport) detach() {
	if t.conn == nil {
		return
	}
	t.logger.Info("client disconnected", "remote", t.conn.RemoteAddr().String())
	t.conn.Close()
	t.conn = nil
}

// Poll never blocks. It attaches newly accepted clients and returns up to
// max complete lines from the active one.
func (t *SocketTransport) Poll(max int) [][]byte {
	for accepting := true; accepting; {
		select {
		case conn := <-t.conns:
			t.adopt(conn)
		default:
			accepting = false
		}
	}

	var out [][]byte
	for len(out) < max {
		select {
		case l := <-t.lines:
			if l.gen != t.gen {
				continue
			}
			if l.eof {
				t.detach()
				return out
			}
			out = append(out, l.data)
		default:
			return out
		}
	}
	return out
}

// Send writes one response line to the active client. With no client the
// response is discarded.
func (t *SocketTransport) Send(resp *Response) error {
	if t.conn == nil || resp == nil {
		return nil
	}
	payload := append(resp.Encode(), '\n')
	t.conn.SetWriteDeadline(time.Now().Add(socketWriteTimeout))
	if _, err := t.conn.Write(payload); err != nil {
		t.logger.Warn("client write failed", "err", err)
		t.detach()
		return fmt.Errorf("socket send: %w", err)
	}
	return nil
}

// Close stops the listener, drops the client and waits for the accept
// loop to exit.
func (t *SocketTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.closing)
		err = t.listener.Close()
		<-t.done
		t.detach()
	})
	return err
}

// probe_trace.go - Per-tick instruction trace ring

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

// TraceEntry is one captured instruction.
type TraceEntry struct {
	PC        string            `json:"pc"`
	Asm       string            `json:"asm"`
	Bytes     string            `json:"bytes,omitempty"`
	Registers map[string]uint64 `json:"registers"`
	Frame     uint64            `json:"frame"`
}

type TraceRecorder struct {
	host    HostEmulator
	dis     *Disassembler
	enabled bool
	buf     *ringBuffer[TraceEntry]
}

func NewTraceRecorder(host HostEmulator, dis *Disassembler, capacity int) *TraceRecorder {
	return &TraceRecorder{
		host: host,
		dis:  dis,
		buf:  newRingBuffer[TraceEntry](capacity),
	}
}

// Start enables capture and empties the buffer.
func (t *TraceRecorder) Start() {
	t.buf.Clear()
	t.enabled = true
}

// Stop disables capture; the buffer is kept for Get.
func (t *TraceRecorder) Stop() { t.enabled = false }

func (t *TraceRecorder) Clear()        { t.buf.Clear() }
func (t *TraceRecorder) Enabled() bool { return t.enabled }
func (t *TraceRecorder) Len() int      { return t.buf.Len() }
func (t *TraceRecorder) Cap() int      { return t.buf.Cap() }

// Capture records the instruction at the program counter. An undecodable
// PC is still recorded so the trace keeps its cadence.
func (t *TraceRecorder) Capture() {
	if !t.enabled {
		return
	}
	entry := TraceEntry{
		PC:        formatAddress(t.host.PC()),
		Asm:       undefinedMnemonic,
		Registers: registerMap(t.host.Registers()),
		Frame:     t.host.FrameCount(),
	}
	if in, err := t.dis.Current(); err == nil {
		entry.Asm = in.Text()
		entry.Bytes = in.Bytes
	}
	t.buf.Push(entry)
}

// Get returns the newest count entries, oldest first.
func (t *TraceRecorder) Get(count int) []TraceEntry {
	return t.buf.Tail(count)
}

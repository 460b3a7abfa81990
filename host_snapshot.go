// host_snapshot.go - Headless host savestates: numbered slots in memory, gzip files on disk

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
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	savestateMagic   = "EPSS"
	savestateVersion = 1
)

// hostSavestate is everything the headless host restores. PRG ROM is not
// part of it.
type hostSavestate struct {
	Frame     uint64
	Registers []RegisterInfo
	Memory    []byte // RAM, then the $2000-$7FFF window, then CHR
}

func (h *HeadlessHost) captureState() *hostSavestate {
	mem := make([]byte, 0, len(h.ram)+len(h.io)+len(h.chr))
	mem = append(mem, h.ram[:]...)
	mem = append(mem, h.io[:]...)
	mem = append(mem, h.chr[:]...)
	return &hostSavestate{Frame: h.frame, Registers: h.Registers(), Memory: mem}
}

func (h *HeadlessHost) restoreState(s *hostSavestate) error {
	want := len(h.ram) + len(h.io) + len(h.chr)
	if len(s.Memory) != want {
		return fmt.Errorf("savestate memory is %d bytes, want %d", len(s.Memory), want)
	}
	for _, r := range s.Registers {
		h.SetRegister(r.Name, r.Value)
	}
	n := copy(h.ram[:], s.Memory)
	n += copy(h.io[:], s.Memory[n:])
	copy(h.chr[:], s.Memory[n:])
	h.frame = s.Frame
	return nil
}

// SaveState stores the machine in a slot, or in a file when path is set.
func (h *HeadlessHost) SaveState(slot int, path string) error {
	data, err := encodeSavestate(h.captureState())
	if err != nil {
		return err
	}
	if path != "" {
		return writeFileAtomic(path, data)
	}
	h.slots[slot] = data
	return nil
}

// LoadState restores a slot or file written by SaveState.
func (h *HeadlessHost) LoadState(slot int, path string) error {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		data = b
	} else {
		b, ok := h.slots[slot]
		if !ok {
			return fmt.Errorf("slot %d is empty", slot)
		}
		data = b
	}
	s, err := decodeSavestate(data)
	if err != nil {
		return err
	}
	return h.restoreState(s)
}

func encodeSavestate(s *hostSavestate) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(savestateMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(savestateVersion))
	binary.Write(&buf, binary.LittleEndian, s.Frame)

	binary.Write(&buf, binary.LittleEndian, uint32(len(s.Registers)))
	for _, r := range s.Registers {
		buf.WriteByte(byte(len(r.Name)))
		buf.WriteString(r.Name)
		binary.Write(&buf, binary.LittleEndian, r.Value)
		binary.Write(&buf, binary.LittleEndian, uint32(r.BitWidth))
	}

	// Memory: uncompressed length, then gzip-compressed data
	binary.Write(&buf, binary.LittleEndian, uint32(len(s.Memory)))
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(s.Memory); err != nil {
		return nil, fmt.Errorf("compressing memory: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeSavestate(data []byte) (*hostSavestate, error) {
	r := bytes.NewReader(data)

	magic := make([]byte, len(savestateMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("reading magic: %w", err)
	}
	if string(magic) != savestateMagic {
		return nil, fmt.Errorf("invalid savestate magic: %q", string(magic))
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("reading version: %w", err)
	}
	if version != savestateVersion {
		return nil, fmt.Errorf("unsupported savestate version: %d", version)
	}

	s := &hostSavestate{}
	if err := binary.Read(r, binary.LittleEndian, &s.Frame); err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}

	var regCount uint32
	if err := binary.Read(r, binary.LittleEndian, &regCount); err != nil {
		return nil, fmt.Errorf("reading register count: %w", err)
	}
	if regCount > 64 {
		return nil, fmt.Errorf("implausible register count %d", regCount)
	}
	s.Registers = make([]RegisterInfo, regCount)
	for i := range s.Registers {
		nameLen, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("reading register name length: %w", err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("reading register name: %w", err)
		}
		var value uint64
		var width uint32
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return nil, fmt.Errorf("reading register value: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
			return nil, fmt.Errorf("reading register width: %w", err)
		}
		s.Registers[i] = RegisterInfo{Name: string(name), Value: value, BitWidth: int(width)}
	}

	var memLen uint32
	if err := binary.Read(r, binary.LittleEndian, &memLen); err != nil {
		return nil, fmt.Errorf("reading memory length: %w", err)
	}
	if memLen > headlessBusSize {
		return nil, fmt.Errorf("implausible memory length %d", memLen)
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip reader: %w", err)
	}
	defer gz.Close()
	s.Memory = make([]byte, memLen)
	if _, err := io.ReadFull(gz, s.Memory); err != nil {
		return nil, fmt.Errorf("decompressing memory: %w", err)
	}
	return s, nil
}

// writeFileAtomic writes data to a temporary sibling and renames it over
// path, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

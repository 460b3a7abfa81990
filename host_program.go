// host_program.go - Lua frame program driving the headless host

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
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// FrameProgram is a Lua script whose global frame() runs once per emulated
// frame. Its mem and cpu functions go through the host's CPU-side bus, so
// they fire breakpoints exactly like emulated code would.
type FrameProgram struct {
	L     *lua.LState
	frame *lua.LFunction
}

// LoadFrameProgramFile reads a frame program from disk.
func LoadFrameProgramFile(h *HeadlessHost, path string) (*FrameProgram, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("frame program: %w", err)
	}
	return LoadFrameProgram(h, path, string(src))
}

// LoadFrameProgram compiles src, runs its top level once and binds frame().
func LoadFrameProgram(h *HeadlessHost, name, src string) (*FrameProgram, error) {
	L := newSandboxState()

	// stop unwinds the program once a tap has forced a pause.
	stop := func(L *lua.LState) {
		if h.pauseRequested {
			L.RaiseError("%v", errPauseRequested)
		}
	}
	addr16 := func(L *lua.LState, n int) uint16 {
		v := L.CheckInt(n)
		if !within(v, 0, 0xFFFF) {
			L.ArgError(n, fmt.Sprintf("address %d outside $0000-$FFFF", v))
		}
		return uint16(v)
	}

	setModule(L, "mem", map[string]lua.LGFunction{
		"read": func(L *lua.LState) int {
			v := h.cpuRead(addr16(L, 1))
			stop(L)
			L.Push(lua.LNumber(v))
			return 1
		},
		"write": func(L *lua.LState) int {
			h.cpuWrite(addr16(L, 1), luaCheckByte(L, 2))
			stop(L)
			return 0
		},
	})
	setModule(L, "cpu", map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			v, ok := registerValue(h.Registers(), L.CheckString(1))
			if !ok {
				L.ArgError(1, "unknown register")
			}
			L.Push(lua.LNumber(v))
			return 1
		},
		"set": func(L *lua.LState) int {
			if !h.SetRegister(L.CheckString(1), uint64(L.CheckInt64(2))) {
				L.ArgError(1, "unknown register")
			}
			return 0
		},
		"exec": func(L *lua.LState) int {
			op := h.cpuExec(addr16(L, 1))
			stop(L)
			L.Push(lua.LNumber(op))
			return 1
		},
	})
	setModule(L, "input", map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			L.Push(lua.LBool(h.buttonDown(L.CheckInt(1), L.CheckString(2))))
			return 1
		},
	})
	setModule(L, "emu", map[string]lua.LGFunction{
		"framecount": func(L *lua.LState) int {
			L.Push(lua.LNumber(h.frame))
			return 1
		},
	})

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("frame program %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		L.Close()
		return nil, fmt.Errorf("frame program %s: %w", name, err)
	}
	frame, ok := L.GetGlobal("frame").(*lua.LFunction)
	if !ok {
		L.Close()
		return nil, fmt.Errorf("frame program %s: no global function frame()", name)
	}
	return &FrameProgram{L: L, frame: frame}, nil
}

// RunFrame calls frame() once.
func (p *FrameProgram) RunFrame() error {
	return p.L.CallByParam(lua.P{Fn: p.frame, NRet: 0, Protect: true})
}

func (p *FrameProgram) Close() {
	p.L.Close()
}

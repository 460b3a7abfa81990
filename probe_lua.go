// probe_lua.go - Lua evaluation for script.eval

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
	"fmt"
	"math"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// newSandboxState opens the libraries a probe script may use: no io, os or
// package loading.
func newSandboxState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// base opens dofile/loadfile; a script must not reach the filesystem.
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	return L
}

// setModule installs a global table of functions.
func setModule(L *lua.LState, name string, funcs map[string]lua.LGFunction) {
	L.SetGlobal(name, L.SetFuncs(L.NewTable(), funcs))
}

// luaToGo converts a Lua value into something encoding/json can marshal.
// Tables with a 1..n sequence become slices, others maps keyed by the
// string form of the key.
func luaToGo(v lua.LValue) any {
	return luaToGoDepth(v, 0)
}

func luaToGoDepth(v lua.LValue, depth int) any {
	if depth > 32 {
		return nil
	}
	switch lv := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(lv)
	case lua.LString:
		return string(lv)
	case lua.LNumber:
		f := float64(lv)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case *lua.LTable:
		if n := lv.MaxN(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, luaToGoDepth(lv.RawGetInt(i), depth+1))
			}
			return arr
		}
		obj := make(map[string]any)
		lv.ForEach(func(k, val lua.LValue) {
			obj[k.String()] = luaToGoDepth(val, depth+1)
		})
		return obj
	default:
		return v.String()
	}
}

// ScriptEngine keeps one Lua state for the life of the probe, so globals set
// by one script.eval are visible to the next.
type ScriptEngine struct {
	L       *lua.LState
	timeout time.Duration
}

// NewScriptEngine binds memory, cpu, emu and input modules onto a sandboxed
// state.
func NewScriptEngine(p *Probe, timeout time.Duration) *ScriptEngine {
	L := newSandboxState()
	optDomain := func(L *lua.LState, n int) string {
		return L.OptString(n, "")
	}

	setModule(L, "memory", map[string]lua.LGFunction{
		"read": func(L *lua.LState) int {
			v, err := p.mem.Read(uint64(L.CheckInt64(1)), optDomain(L, 2))
			if err != nil {
				L.RaiseError("%s", err.Error())
			}
			L.Push(lua.LNumber(v))
			return 1
		},
		"write": func(L *lua.LState) int {
			if err := p.mem.Write(uint64(L.CheckInt64(1)), luaCheckByte(L, 2), optDomain(L, 3)); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
		"readrange": func(L *lua.LState) int {
			data, err := p.mem.ReadRange(uint64(L.CheckInt64(1)), L.CheckInt(2), optDomain(L, 3))
			if err != nil {
				L.RaiseError("%s", err.Error())
			}
			tbl := L.CreateTable(len(data), 0)
			for _, b := range data {
				tbl.Append(lua.LNumber(b))
			}
			L.Push(tbl)
			return 1
		},
	})
	setModule(L, "cpu", map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			v, ok := registerValue(p.host.Registers(), L.CheckString(1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(v))
			return 1
		},
		"pc": func(L *lua.LState) int {
			L.Push(lua.LNumber(p.host.PC()))
			return 1
		},
	})
	setModule(L, "emu", map[string]lua.LGFunction{
		"framecount": func(L *lua.LState) int {
			L.Push(lua.LNumber(p.host.FrameCount()))
			return 1
		},
		"paused": func(L *lua.LState) int {
			L.Push(lua.LBool(p.exec.Paused()))
			return 1
		},
	})

	setModule(L, "input", map[string]lua.LGFunction{
		"set": func(L *lua.LState) int {
			player := L.CheckInt(1)
			buttons := map[string]bool{}
			L.CheckTable(2).ForEach(func(k, v lua.LValue) {
				if name, ok := k.(lua.LString); ok {
					buttons[string(name)] = lua.LVAsBool(v)
				}
			})
			if err := p.host.SetInput(player, buttons); err != nil {
				L.RaiseError("%s", err.Error())
			}
			return 0
		},
	})

	return &ScriptEngine{L: L, timeout: timeout}
}

// Eval runs code and returns its results converted for JSON. A script that
// runs past the timeout is cancelled.
func (s *ScriptEngine) Eval(code string) ([]any, error) {
	fn, err := s.L.LoadString(code)
	if err != nil {
		return nil, probeErrorf(CodeScriptError, "compile: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	base := s.L.GetTop()
	s.L.Push(fn)
	if err := s.L.PCall(0, lua.MultRet, nil); err != nil {
		s.L.SetTop(base)
		return nil, probeErrorf(CodeScriptError, "%v", err)
	}
	top := s.L.GetTop()
	results := make([]any, 0, top-base)
	for i := base + 1; i <= top; i++ {
		results = append(results, luaToGo(s.L.Get(i)))
	}
	s.L.SetTop(base)
	return results, nil
}

func (s *ScriptEngine) Close() {
	s.L.Close()
}

// luaCheckByte reads a byte argument or raises a Lua argument error.
func luaCheckByte(L *lua.LState, n int) byte {
	v := L.CheckInt(n)
	if !within(v, 0, 0xFF) {
		L.ArgError(n, fmt.Sprintf("value %d outside 0-255", v))
	}
	return byte(v)
}

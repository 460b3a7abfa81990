// probe_commands.go - Action registry and per-command parameter shapes

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
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// commandHandler decodes a command's own parameter shape and runs it.
type commandHandler struct {
	run func(p *Probe, raw json.RawMessage) (any, error)
}

type commandRegistry map[string]commandHandler

func (r commandRegistry) lookup(action string) (commandHandler, bool) {
	h, ok := r[action]
	return h, ok
}

// Actions lists every registered action name, sorted.
func (r commandRegistry) Actions() []string {
	return slices.Sorted(maps.Keys(r))
}

// handle binds a handler to its parameter struct. Parameters sit at the top
// level of the command object, so id and action are simply ignored fields.
func handle[P any](fn func(p *Probe, args P) (any, error)) commandHandler {
	return commandHandler{run: func(p *Probe, raw json.RawMessage) (any, error) {
		var args P
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, probeErrorf(CodeMalformedCommand, "bad parameters: %v", err)
		}
		return fn(p, args)
	}}
}

// noParams is the shape of commands that take nothing.
type noParams struct{}

func newCommandRegistry() commandRegistry {
	return commandRegistry{
		"memory.read":        handle(cmdMemoryRead),
		"memory.write":       handle(cmdMemoryWrite),
		"memory.readRange":   handle(cmdMemoryReadRange),
		"memory.search":      handle(cmdMemorySearch),
		"memory.searchRange": handle(cmdMemorySearchRange),
		"memory.snapshot":    handle(cmdMemorySnapshot),
		"memory.compare":     handle(cmdMemoryCompare),
		"memory.getDomains":  handle(cmdMemoryDomains),

		"cpu.getState":     handle(cmdCPUState),
		"cpu.getRegisters": handle(cmdCPURegisters),

		"execution.pause":        handle(cmdPause),
		"execution.resume":       handle(cmdResume),
		"execution.step":         handle(cmdStep),
		"execution.frameAdvance": handle(cmdFrameAdvance),
		"execution.getState":     handle(cmdExecState),

		"breakpoint.add":         handle(cmdBreakpointAdd),
		"breakpoint.remove":      handle(cmdBreakpointRemove),
		"breakpoint.list":        handle(cmdBreakpointList),
		"breakpoint.clear":       handle(cmdBreakpointClear),
		"breakpoint.enable":      handle(cmdBreakpointEnable),
		"breakpoint.setAutoMode": handle(cmdBreakpointAutoMode),
		"breakpoint.getHits":     handle(cmdBreakpointHits),
		"breakpoint.getLastHit":  handle(cmdBreakpointLastHit),
		"breakpoint.clearHits":   handle(cmdBreakpointClearHits),

		"disasm.get":     handle(cmdDisasmGet),
		"disasm.current": handle(cmdDisasmCurrent),

		"trace.start": handle(cmdTraceStart),
		"trace.stop":  handle(cmdTraceStop),
		"trace.get":   handle(cmdTraceGet),
		"trace.clear": handle(cmdTraceClear),

		"watch.add":    handle(cmdWatchAdd),
		"watch.remove": handle(cmdWatchRemove),
		"watch.list":   handle(cmdWatchList),
		"watch.clear":  handle(cmdWatchClear),

		"freeze.add":    handle(cmdFreezeAdd),
		"freeze.remove": handle(cmdFreezeRemove),
		"freeze.list":   handle(cmdFreezeList),

		"state.save": handle(cmdStateSave),
		"state.load": handle(cmdStateLoad),
		"input.set":  handle(cmdInputSet),

		"script.eval":     handle(cmdScriptEval),
		"session.hello":   handle(cmdSessionHello),
		"probe.getStatus": handle(cmdProbeStatus),
	}
}

// parseIDArg decodes a required positive integer id.
func parseIDArg(raw json.RawMessage, name string) (int, error) {
	if !argPresent(raw) {
		return 0, probeErrorf(CodeMalformedCommand, "%s is required", name)
	}
	v, ok := parseIntegerLiteral(raw)
	if !ok || !within(v, 1, math.MaxInt32) {
		return 0, probeErrorf(CodeMalformedCommand, "%s must be a positive integer", name)
	}
	return int(v), nil
}

// ---------------------------------------------------------------------------
// memory
// ---------------------------------------------------------------------------

type addressParams struct {
	Address json.RawMessage `json:"address"`
	Domain  *string         `json:"domain"`
}

func cmdMemoryRead(p *Probe, args addressParams) (any, error) {
	addr, err := parseAddressArg(args.Address)
	if err != nil {
		return nil, err
	}
	v, err := p.mem.Read(addr, domainArg(args.Domain))
	if err != nil {
		return nil, err
	}
	return int(v), nil
}

type memoryWriteParams struct {
	Address json.RawMessage `json:"address"`
	Value   json.RawMessage `json:"value"`
	Domain  *string         `json:"domain"`
}

func cmdMemoryWrite(p *Probe, args memoryWriteParams) (any, error) {
	addr, err := parseAddressArg(args.Address)
	if err != nil {
		return nil, err
	}
	v, err := parseByteArg(args.Value, "value")
	if err != nil {
		return nil, err
	}
	if err := p.mem.Write(addr, v, domainArg(args.Domain)); err != nil {
		return nil, err
	}
	return map[string]any{"address": formatAddress(addr), "value": int(v)}, nil
}

type readRangeParams struct {
	Address json.RawMessage `json:"address"`
	Length  json.RawMessage `json:"length"`
	Domain  *string         `json:"domain"`
}

func cmdMemoryReadRange(p *Probe, args readRangeParams) (any, error) {
	addr, err := parseAddressArg(args.Address)
	if err != nil {
		return nil, err
	}
	if !argPresent(args.Length) {
		return nil, probeErrorf(CodeInvalidLength, "length is required")
	}
	length, err := parseCountArg(args.Length, 0, CodeInvalidLength, "length")
	if err != nil {
		return nil, err
	}
	data, err := p.mem.ReadRange(addr, length, domainArg(args.Domain))
	if err != nil {
		return nil, err
	}
	values := make([]int, len(data))
	hex := make([]string, len(data))
	for i, b := range data {
		values[i] = int(b)
		hex[i] = fmt.Sprintf("%02X", b)
	}
	return map[string]any{
		"address": formatAddress(addr),
		"length":  length,
		"values":  values,
		"hex":     strings.Join(hex, " "),
	}, nil
}

type searchParams struct {
	Value json.RawMessage `json:"value"`
}

func cmdMemorySearch(p *Probe, args searchParams) (any, error) {
	v, err := parseByteArg(args.Value, "value")
	if err != nil {
		return nil, err
	}
	matches, err := p.mem.Search(v)
	if err != nil {
		return nil, err
	}
	return map[string]any{"value": int(v), "count": len(matches), "addresses": matches}, nil
}

type searchRangeParams struct {
	Min json.RawMessage `json:"min"`
	Max json.RawMessage `json:"max"`
}

func cmdMemorySearchRange(p *Probe, args searchRangeParams) (any, error) {
	lo, err := parseByteArg(args.Min, "min")
	if err != nil {
		return nil, err
	}
	hi, err := parseByteArg(args.Max, "max")
	if err != nil {
		return nil, err
	}
	matches, err := p.mem.SearchRange(lo, hi)
	if err != nil {
		return nil, err
	}
	return map[string]any{"min": int(lo), "max": int(hi), "count": len(matches), "addresses": matches}, nil
}

type snapshotParams struct {
	Name   string `json:"name"`
	Filter string `json:"filter"`
}

func cmdMemorySnapshot(p *Probe, args snapshotParams) (any, error) {
	name := cmp.Or(args.Name, "default")
	size, err := p.mem.Snapshot(name)
	if err != nil {
		return nil, err
	}
	return map[string]any{"name": name, "size": size, "snapshots": p.mem.SnapshotNames()}, nil
}

func cmdMemoryCompare(p *Probe, args snapshotParams) (any, error) {
	filter, ok := ParseCompareFilter(args.Filter)
	if !ok {
		return nil, probeErrorf(CodeInvalidFilter, "unknown filter %q (changed, increased, decreased, same)", args.Filter)
	}
	return p.mem.Compare(cmp.Or(args.Name, "default"), filter)
}

func cmdMemoryDomains(p *Probe, _ noParams) (any, error) {
	return p.mem.Domains(), nil
}

// ---------------------------------------------------------------------------
// cpu / execution
// ---------------------------------------------------------------------------

func cmdCPUState(p *Probe, _ noParams) (any, error) {
	regs := p.host.Registers()
	status, _ := registerValue(regs, "P")
	st := p.exec.Status()
	return map[string]any{
		"registers":  registerMap(regs),
		"pc":         formatAddress(p.host.PC()),
		"flags":      cpuFlags6502(status),
		"state":      st.State,
		"isPaused":   st.IsPaused,
		"frameCount": st.FrameCount,
	}, nil
}

func cmdCPURegisters(p *Probe, _ noParams) (any, error) {
	return hexRegisters(p.host.Registers()), nil
}

func cmdPause(p *Probe, _ noParams) (any, error) {
	changed := p.exec.Pause()
	return map[string]any{"state": p.exec.State().String(), "changed": changed}, nil
}

func cmdResume(p *Probe, _ noParams) (any, error) {
	changed := p.exec.Resume()
	return map[string]any{"state": p.exec.State().String(), "changed": changed}, nil
}

type stepParams struct {
	Count    json.RawMessage `json:"count"`
	StepType string          `json:"stepType"`
}

func cmdStep(p *Probe, args stepParams) (any, error) {
	count, err := parseCountArg(args.Count, 1, CodeInvalidValue, "count")
	if err != nil {
		return nil, err
	}
	mode, ok := ParseStepMode(args.StepType)
	if !ok {
		return nil, probeErrorf(CodeUnsupportedStepMode, "unknown stepType %q (frame, instruction)", args.StepType)
	}
	return p.exec.Step(count, mode)
}

func cmdFrameAdvance(p *Probe, args stepParams) (any, error) {
	count, err := parseCountArg(args.Count, 1, CodeInvalidValue, "count")
	if err != nil {
		return nil, err
	}
	return p.exec.Step(count, StepFrame)
}

func cmdExecState(p *Probe, _ noParams) (any, error) {
	return p.exec.Status(), nil
}

// ---------------------------------------------------------------------------
// breakpoints
// ---------------------------------------------------------------------------

type breakpointAddParams struct {
	Type      string          `json:"type"`
	Address   json.RawMessage `json:"address"`
	Domain    *string         `json:"domain"`
	Condition string          `json:"condition"`
}

func cmdBreakpointAdd(p *Probe, args breakpointAddParams) (any, error) {
	kind, ok := ParseAccessKind(args.Type)
	if !ok {
		return nil, probeErrorf(CodeInvalidBreakpointType, "invalid breakpoint type %q (read, write, execute)", args.Type)
	}
	addr, err := parseAddressArg(args.Address)
	if err != nil {
		return nil, err
	}
	var cond *BreakpointCondition
	if strings.TrimSpace(args.Condition) != "" {
		if cond, err = ParseCondition(args.Condition); err != nil {
			return nil, err
		}
	}
	bp, err := p.bps.Add(kind, addr, domainArg(args.Domain), cond)
	if err != nil {
		return nil, err
	}
	return bp.Info(), nil
}

// The command's own id occupies "id", so targets are named explicitly.
type breakpointIDParams struct {
	ID      json.RawMessage `json:"breakpointId"`
	Enabled *bool           `json:"enabled"`
}

func cmdBreakpointRemove(p *Probe, args breakpointIDParams) (any, error) {
	id, err := parseIDArg(args.ID, "breakpointId")
	if err != nil {
		return nil, err
	}
	if err := p.bps.Remove(id); err != nil {
		return nil, err
	}
	return map[string]any{"breakpointId": id, "removed": true}, nil
}

func cmdBreakpointList(p *Probe, _ noParams) (any, error) {
	return p.bps.List(), nil
}

func cmdBreakpointClear(p *Probe, _ noParams) (any, error) {
	return map[string]any{"removed": p.bps.Clear()}, nil
}

func cmdBreakpointEnable(p *Probe, args breakpointIDParams) (any, error) {
	id, err := parseIDArg(args.ID, "breakpointId")
	if err != nil {
		return nil, err
	}
	enabled := args.Enabled == nil || *args.Enabled
	bp, err := p.bps.SetEnabled(id, enabled)
	if err != nil {
		return nil, err
	}
	return bp.Info(), nil
}

type autoModeParams struct {
	Enabled bool `json:"enabled"`
}

func cmdBreakpointAutoMode(p *Probe, args autoModeParams) (any, error) {
	p.bps.SetAutoPause(args.Enabled)
	return map[string]any{"autoPause": args.Enabled}, nil
}

func cmdBreakpointHits(p *Probe, _ noParams) (any, error) {
	return p.bps.Hits(), nil
}

func cmdBreakpointLastHit(p *Probe, _ noParams) (any, error) {
	hit, ok := p.bps.LastHit()
	if !ok {
		return map[string]any{"hasHit": false, "hit": nil, "message": "no hits"}, nil
	}
	return map[string]any{"hasHit": true, "hit": hit}, nil
}

func cmdBreakpointClearHits(p *Probe, _ noParams) (any, error) {
	return map[string]any{"cleared": p.bps.ClearHits()}, nil
}

// ---------------------------------------------------------------------------
// disassembly / trace
// ---------------------------------------------------------------------------

type disasmParams struct {
	Address json.RawMessage `json:"address"`
	Count   json.RawMessage `json:"count"`
}

func cmdDisasmGet(p *Probe, args disasmParams) (any, error) {
	start := p.host.PC()
	if argPresent(args.Address) {
		addr, err := parseAddressArg(args.Address)
		if err != nil {
			return nil, err
		}
		start = addr
	}
	count, err := parseCountArg(args.Count, 20, CodeInvalidLength, "count")
	if err != nil {
		return nil, err
	}
	return p.dis.DecodeMany(start, count)
}

func cmdDisasmCurrent(p *Probe, _ noParams) (any, error) {
	return p.dis.Current()
}

func traceState(p *Probe) map[string]any {
	return map[string]any{"enabled": p.trace.Enabled(), "length": p.trace.Len(), "capacity": p.trace.Cap()}
}

func cmdTraceStart(p *Probe, _ noParams) (any, error) {
	p.trace.Start()
	return traceState(p), nil
}

func cmdTraceStop(p *Probe, _ noParams) (any, error) {
	p.trace.Stop()
	return traceState(p), nil
}

func cmdTraceClear(p *Probe, _ noParams) (any, error) {
	p.trace.Clear()
	return traceState(p), nil
}

type countParams struct {
	Count json.RawMessage `json:"count"`
}

func cmdTraceGet(p *Probe, args countParams) (any, error) {
	count, err := parseCountArg(args.Count, 100, CodeInvalidLength, "count")
	if err != nil {
		return nil, err
	}
	return p.trace.Get(count), nil
}

// ---------------------------------------------------------------------------
// watches / freezes
// ---------------------------------------------------------------------------

type watchParams struct {
	Address json.RawMessage `json:"address"`
	Name    string          `json:"name"`
	Domain  *string         `json:"domain"`
}

func cmdWatchAdd(p *Probe, args watchParams) (any, error) {
	addr, err := parseAddressArg(args.Address)
	if err != nil {
		return nil, err
	}
	return p.watches.Add(addr, strings.TrimSpace(args.Name), domainArg(args.Domain))
}

func cmdWatchRemove(p *Probe, args watchParams) (any, error) {
	addr, err := parseAddressArg(args.Address)
	if err != nil {
		return nil, err
	}
	return map[string]any{"address": formatAddress(addr), "removed": p.watches.Remove(addr)}, nil
}

func cmdWatchList(p *Probe, _ noParams) (any, error) {
	return p.watches.List(), nil
}

func cmdWatchClear(p *Probe, _ noParams) (any, error) {
	return map[string]any{"cleared": p.watches.Clear()}, nil
}

type freezeAddParams struct {
	Address json.RawMessage `json:"address"`
	Value   json.RawMessage `json:"value"`
	Label   *string         `json:"label"`
	Domain  *string         `json:"domain"`
}

func cmdFreezeAdd(p *Probe, args freezeAddParams) (any, error) {
	addr, err := parseAddressArg(args.Address)
	if err != nil {
		return nil, err
	}
	v, err := parseByteArg(args.Value, "value")
	if err != nil {
		return nil, err
	}
	label := ""
	if args.Label != nil {
		label = *args.Label
	}
	return p.freezes.Add(addr, v, label, domainArg(args.Domain))
}

type freezeRemoveParams struct {
	ID        json.RawMessage `json:"freezeId"`
	Address   json.RawMessage `json:"address"`
	RemoveAll *bool           `json:"removeAll"`
}

func cmdFreezeRemove(p *Probe, args freezeRemoveParams) (any, error) {
	var sel FreezeSelector
	if argPresent(args.ID) {
		id, err := parseIDArg(args.ID, "freezeId")
		if err != nil {
			return nil, err
		}
		sel.ID = &id
	}
	if argPresent(args.Address) {
		addr, err := parseAddressArg(args.Address)
		if err != nil {
			return nil, err
		}
		sel.Address = &addr
	}
	sel.All = args.RemoveAll != nil && *args.RemoveAll

	removed, err := p.freezes.Remove(sel)
	if err != nil {
		return nil, err
	}
	return map[string]any{"removed": removed, "remaining": p.freezes.Len()}, nil
}

func cmdFreezeList(p *Probe, _ noParams) (any, error) {
	return p.freezes.List(), nil
}

// ---------------------------------------------------------------------------
// host pass-throughs
// ---------------------------------------------------------------------------

const (
	minStateSlot = 1
	maxStateSlot = 10
)

type stateParams struct {
	Slot json.RawMessage `json:"slot"`
	Path *string         `json:"path"`
}

// resolve validates a slot or path selector. A path wins when both
// are given.
func (args stateParams) resolve() (int, string, error) {
	path := domainArg(args.Path)
	if path != "" {
		return 0, path, nil
	}
	if !argPresent(args.Slot) {
		return 0, "", probeErrorf(CodeMalformedCommand, "slot or path is required")
	}
	slot, ok := parseIntegerLiteral(args.Slot)
	if !ok || !within(slot, minStateSlot, maxStateSlot) {
		return 0, "", probeErrorf(CodeInvalidValue, "slot must be %d-%d", minStateSlot, maxStateSlot)
	}
	return int(slot), "", nil
}

func cmdStateSave(p *Probe, args stateParams) (any, error) {
	slot, path, err := args.resolve()
	if err != nil {
		return nil, err
	}
	if err := p.host.SaveState(slot, path); err != nil {
		return nil, hostError("save state", err)
	}
	return map[string]any{"slot": slot, "path": path, "frameCount": p.host.FrameCount()}, nil
}

func cmdStateLoad(p *Probe, args stateParams) (any, error) {
	slot, path, err := args.resolve()
	if err != nil {
		return nil, err
	}
	if err := p.host.LoadState(slot, path); err != nil {
		return nil, hostError("load state", err)
	}
	return map[string]any{"slot": slot, "path": path, "frameCount": p.host.FrameCount()}, nil
}

type inputParams struct {
	Buttons map[string]bool `json:"buttons"`
	Player  json.RawMessage `json:"player"`
}

func cmdInputSet(p *Probe, args inputParams) (any, error) {
	player, err := parseCountArg(args.Player, 1, CodeInvalidValue, "player")
	if err != nil {
		return nil, err
	}
	if args.Buttons == nil {
		args.Buttons = map[string]bool{}
	}
	if err := p.host.SetInput(player, args.Buttons); err != nil {
		return nil, hostError("set input", err)
	}
	return map[string]any{"player": player, "buttons": args.Buttons}, nil
}

// ---------------------------------------------------------------------------
// scripting / session
// ---------------------------------------------------------------------------

type scriptParams struct {
	Code string `json:"code"`
}

func cmdScriptEval(p *Probe, args scriptParams) (any, error) {
	if strings.TrimSpace(args.Code) == "" {
		return nil, probeErrorf(CodeMalformedCommand, "code is required")
	}
	results, err := p.script.Eval(args.Code)
	if err != nil {
		return nil, err
	}
	var first any
	if len(results) > 0 {
		first = results[0]
	}
	return map[string]any{"result": first, "results": results}, nil
}

type helloParams struct {
	ClientVersion string `json:"clientVersion"`
	Require       string `json:"require"`
}

func cmdSessionHello(p *Probe, args helloParams) (any, error) {
	if err := checkProtocol(args.Require); err != nil {
		return nil, err
	}
	p.logger.Info("controller connected", "component", "dispatch", "client", args.ClientVersion)
	return map[string]any{
		"server":          "emuprobe",
		"protocolVersion": ProtocolVersion,
		"actions":         p.commands.Actions(),
		"lastCommandId":   p.lastID,
		"limits": map[string]any{
			"traceCapacity": p.limits.TraceCapacity,
			"hitCapacity":   p.limits.HitCapacity,
			"maxFreezes":    p.freezes.Limit(),
		},
	}, nil
}

func cmdProbeStatus(p *Probe, _ noParams) (any, error) {
	return p.Status(), nil
}

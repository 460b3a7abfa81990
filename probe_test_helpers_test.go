package main

import (
	"encoding/json"
	"testing"
)

type probeTestRig struct {
	host   *HeadlessHost
	probe  *Probe
	nextID int64
}

func newProbeTestRig(t *testing.T) *probeTestRig {
	t.Helper()
	return newProbeTestRigWithLimits(t, DefaultProbeLimits())
}

func newProbeTestRigWithLimits(t *testing.T, limits ProbeLimits) *probeTestRig {
	t.Helper()
	host := NewHeadlessHost()
	probe := NewProbe(host, limits, nil)
	t.Cleanup(func() {
		probe.Close()
		host.Close()
	})
	return &probeTestRig{host: host, probe: probe, nextID: 1}
}

// loadProgram installs a frame program on the rig's host.
func (r *probeTestRig) loadProgram(t *testing.T, src string) {
	t.Helper()
	prog, err := LoadFrameProgram(r.host, "test.lua", src)
	if err != nil {
		t.Fatalf("LoadFrameProgram: %v", err)
	}
	r.host.SetProgram(prog)
}

// encode builds a command record with params at the top level.
func encodeCommand(t *testing.T, id int64, action string, params map[string]any) []byte {
	t.Helper()
	cmd := map[string]any{"id": id, "action": action}
	for k, v := range params {
		cmd[k] = v
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal command: %v", err)
	}
	return data
}

// call dispatches one command with the next id and requires a response.
func (r *probeTestRig) call(t *testing.T, action string, params map[string]any) *Response {
	t.Helper()
	id := r.nextID
	r.nextID++
	resp := r.probe.Dispatch(encodeCommand(t, id, action, params))
	if resp == nil {
		t.Fatalf("%s (id %d): no response", action, id)
	}
	if resp.CommandID != id || resp.Action != action {
		t.Fatalf("%s (id %d): response tagged %d/%s", action, id, resp.CommandID, resp.Action)
	}
	return resp
}

func (r *probeTestRig) mustOK(t *testing.T, action string, params map[string]any) any {
	t.Helper()
	resp := r.call(t, action, params)
	if !resp.Success {
		t.Fatalf("%s failed: [%s] %s", action, resp.ErrorCode, resp.Error)
	}
	return resp.Data
}

func (r *probeTestRig) mustFail(t *testing.T, action string, params map[string]any, code ErrorCode) *Response {
	t.Helper()
	resp := r.call(t, action, params)
	if resp.Success {
		t.Fatalf("%s succeeded, want %s", action, code)
	}
	if resp.ErrorCode != code {
		t.Fatalf("%s error code = %s (%s), want %s", action, resp.ErrorCode, resp.Error, code)
	}
	return resp
}

// decodeAs converts handler data to T through its wire form.
func decodeAs[T any](t *testing.T, data any) T {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return out
}

// pokeRAM writes work RAM directly, bypassing taps.
func (r *probeTestRig) pokeRAM(addr int, values ...byte) {
	copy(r.host.ram[addr:], values)
}

// stepperHost adds single-instruction stepping to the headless host. Each
// step advances PC by one byte and then runs onStep, if set.
type stepperHost struct {
	*HeadlessHost
	steps  int
	onStep func(*stepperHost)
}

func (s *stepperHost) StepInstruction() error {
	s.steps++
	s.cpu.PC++
	if s.onStep != nil {
		s.onStep(s)
	}
	return nil
}

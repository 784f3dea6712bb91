// Package script implements the Script Host: a single embedded Lua runtime
// (github.com/yuin/gopher-lua) that loads, isolates, and invokes one
// environment per monitored topic's script.
//
// Grounded on original_source/monitoringThread.hpp's embedded Lua 5.2
// runtime (one lua_State per process, environments distinguished by a
// private table whose metatable falls through to the shared globals for
// reads). gopher-lua has no registry-keyed-environment primitive like the
// original's Lua registry usage, so environments are tracked in an
// ordinary Go map keyed by script name instead — the natural Go mapping
// for "a handle this process owns," replacing the source's hand-rolled
// indirection with ordinary owned values.
package script

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
)

const (
	onMessageFunc = "onMessage"
	onTimerFunc   = "onTimer"
)

// Host wraps one *lua.LState. It is accessed by at most one goroutine at a
// time — the Engine's dispatch loop — and performs no internal locking;
// callers must honor that invariant themselves.
type Host struct {
	scriptsDir string
	state      *lua.LState
	envs       map[string]*lua.LTable
}

// New constructs a Host that resolves script names under scriptsDir
// ("scripts/<script_name>").
func New(scriptsDir string) *Host {
	return &Host{
		scriptsDir: scriptsDir,
		state:      lua.NewState(),
		envs:       make(map[string]*lua.LTable),
	}
}

// Close releases the underlying Lua state. Call once, at process shutdown.
func (h *Host) Close() {
	h.state.Close()
}

// Load locates scripts/<scriptName>, compiles it, and executes its
// top-level statements inside a fresh environment table whose metatable's
// __index falls through to the shared global table — so the script reads
// globals but its own assignments land only in its private table, keeping
// every topic's script state isolated from every other's.
func (h *Host) Load(scriptName string) error {
	if _, exists := h.envs[scriptName]; exists {
		return fmt.Errorf("%w: %s", ErrScriptAlreadyLoaded, scriptName)
	}

	path := filepath.Join(h.scriptsDir, scriptName)
	src, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrScriptNotFound, path)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}

	fn, err := h.state.LoadString(string(src))
	if err != nil {
		return fmt.Errorf("compiling %s: %w", scriptName, err)
	}

	env := h.state.NewTable()
	mt := h.state.NewTable()
	mt.RawSetString("__index", h.state.G.Global)
	h.state.SetMetatable(env, mt)
	h.state.SetFEnv(fn, env)

	depth := h.state.GetTop()
	h.state.Push(fn)
	if err := h.state.PCall(0, 0, nil); err != nil {
		h.state.SetTop(depth)
		return fmt.Errorf("executing top-level of %s: %w", scriptName, err)
	}

	h.envs[scriptName] = env
	return nil
}

// HasFunction reports whether fnName is a callable defined in scriptName's
// environment (its own table, not a global fall-through — onMessage/onTimer
// must be assigned by the script itself).
func (h *Host) HasFunction(scriptName, fnName string) bool {
	env, ok := h.envs[scriptName]
	if !ok {
		return false
	}
	v := env.RawGetString(fnName)
	_, isFunc := v.(*lua.LFunction)
	return isFunc
}

// InvokeMessage calls onMessage(payload) in scriptName's environment.
func (h *Host) InvokeMessage(scriptName, payload string) error {
	return h.invoke(scriptName, onMessageFunc, lua.LString(payload))
}

// InvokeTimer calls onTimer() in scriptName's environment.
func (h *Host) InvokeTimer(scriptName string) error {
	return h.invoke(scriptName, onTimerFunc)
}

func (h *Host) invoke(scriptName, fnName string, args ...lua.LValue) error {
	env, ok := h.envs[scriptName]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScriptNotLoaded, scriptName)
	}

	fnVal := env.RawGetString(fnName)
	fn, ok := fnVal.(*lua.LFunction)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrFunctionNotCallable, scriptName, fnName)
	}

	depth := h.state.GetTop()
	h.state.Push(fn)
	for _, a := range args {
		h.state.Push(a)
	}
	if err := h.state.PCall(len(args), 0, nil); err != nil {
		// gopher-lua's PCall already unwinds the stack to its pre-call
		// depth on error; SetTop here is defense against any residual
		// left by a pathological C-function error path, restoring the
		// stack-depth invariant unconditionally.
		h.state.SetTop(depth)
		return fmt.Errorf("%s.%s: %w", scriptName, fnName, err)
	}
	return nil
}

// Drop removes scriptName's environment. Subsequent invocations for this
// name fail with ErrScriptNotLoaded.
func (h *Host) Drop(scriptName string) {
	delete(h.envs, scriptName)
}

// Loaded reports whether scriptName currently has a live environment.
func (h *Host) Loaded(scriptName string) bool {
	_, ok := h.envs[scriptName]
	return ok
}

// Env returns scriptName's private environment table, for callers that
// need to inspect script-local state directly (tests, diagnostics).
func (h *Host) Env(scriptName string) (*lua.LTable, bool) {
	env, ok := h.envs[scriptName]
	return env, ok
}

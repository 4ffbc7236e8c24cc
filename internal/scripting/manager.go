package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/samsara/internal/game/dice"
)

// globalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to it when a location has no VM of its own.
const globalScope = "__global__"

// vm is one location's LState. LStates are single-threaded, so every call holds mu.
type vm struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	closed bool
}

func (v *vm) close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.L.Close()
	v.closed = true
}

// Manager owns one sandboxed LState per script scope and dispatches hooks into them.
//
// Manager is safe for concurrent use. Calls into the same scope are serialized;
// different scopes run concurrently.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a Manager with no scopes loaded.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadScope creates a VM for scope, registers the engine module, then runs
// every *.lua file in scriptDir in lexicographic order. An existing VM for the
// same scope is replaced.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: The scope's VM is registered, or an error is returned and nothing changes.
func (m *Manager) LoadScope(scope, scriptDir string, instLimit int) error {
	L := NewSandboxedState()
	m.RegisterModules(L, scope)

	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		L.Close()
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, scope, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, path := range files {
		err := RunBudgeted(L, instLimit, func() error { return L.DoFile(path) })
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, scope, err)
		}
	}

	m.mu.Lock()
	old := m.vms[scope]
	m.vms[scope] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()
	if old != nil {
		old.close()
	}
	return nil
}

// LoadGlobal loads the fallback scope used for locations without scripts.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.LoadScope(globalScope, scriptDir, instLimit)
}

// LoadTree loads every subdirectory of root as a scope named after the
// directory. A subdirectory called "global" becomes the fallback scope.
//
// Postcondition: Returns the scopes loaded, or the first load error.
func (m *Manager) LoadTree(root string, instLimit int) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading script root %q: %w", root, err)
	}
	var loaded []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		scope := e.Name()
		dir := filepath.Join(root, scope)
		if scope == "global" {
			err = m.LoadGlobal(dir, instLimit)
		} else {
			err = m.LoadScope(scope, dir, instLimit)
		}
		if err != nil {
			return loaded, err
		}
		loaded = append(loaded, scope)
	}
	return loaded, nil
}

// HasScope reports whether scope has its own VM.
func (m *Manager) HasScope(scope string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vms[scope]
	return ok
}

// CallHook calls the named global function in scope's VM, falling back to the
// global VM. Returns (LNil, nil) when no VM or no such function exists.
// Lua runtime errors and budget exhaustion are logged at Warn and returned.
//
// Precondition: args must be built by build on the VM's own LState.
// Postcondition: Returns the hook's first return value, or LNil.
func (m *Manager) CallHook(scope, hook string, build func(L *lua.LState) []lua.LValue) (lua.LValue, error) {
	m.mu.RLock()
	v, ok := m.vms[scope]
	if !ok {
		v = m.vms[globalScope]
	}
	m.mu.RUnlock()

	if v == nil {
		m.logger.Debug("scripting: no VM for scope", zap.String("scope", scope), zap.String("hook", hook))
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return lua.LNil, nil
	}

	fn := v.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}
	var args []lua.LValue
	if build != nil {
		args = build(v.L)
	}
	err := RunBudgeted(v.L, v.limit, func() error {
		return v.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, fmt.Errorf("scripting: %s/%s: %w", scope, hook, err)
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for scope, v := range m.vms {
		v.close()
		delete(m.vms, scope)
	}
}

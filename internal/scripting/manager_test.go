package scripting_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/samsara/internal/game/dice"
	"github.com/cory-johannsen/samsara/internal/scripting"
)

func newTestManager(t testing.TB) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	roller := dice.NewLoggedRoller(dice.NewSeededSource(7), logger)
	mgr := scripting.NewManager(roller, logger)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func writeTempLua(t testing.TB, filename, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(src), 0o644))
	return dir
}

func noArgs(*lua.LState) []lua.LValue { return nil }

func TestManager_LoadScope_CallsHook(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "hooks.lua", `function add(a, b) return a + b end`)
	require.NoError(t, mgr.LoadScope("varanasi", dir, 0))
	assert.True(t, mgr.HasScope("varanasi"))

	ret, err := mgr.CallHook("varanasi", "add", func(*lua.LState) []lua.LValue {
		return []lua.LValue{lua.LNumber(3), lua.LNumber(4)}
	})
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestManager_CallHook_MissingHookIsNoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("varanasi", writeTempLua(t, "empty.lua", `-- nothing`), 0))
	ret, err := mgr.CallHook("varanasi", "nonexistent", noArgs)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_UnknownScopeNoGlobal(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret, err := mgr.CallHook("nowhere", "telegraph", noArgs)
	require.NoError(t, err)
	assert.Equal(t, lua.LNil, ret)
}

func TestManager_CallHook_FallsBackToGlobal(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadGlobal(writeTempLua(t, "g.lua", `function where() return "global" end`), 0))
	ret, err := mgr.CallHook("lanka", "where", noArgs)
	require.NoError(t, err)
	assert.Equal(t, lua.LString("global"), ret)
}

func TestManager_CallHook_RuntimeErrorLoggedAndReturned(t *testing.T) {
	mgr, logs := newTestManager(t)
	require.NoError(t, mgr.LoadScope("z", writeTempLua(t, "bad.lua", `function bad() error("boom") end`), 0))
	ret, err := mgr.CallHook("z", "bad", noArgs)
	assert.Error(t, err)
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestManager_CallHook_BudgetExceeded(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("z", writeTempLua(t, "spin.lua", `function spin() while true do end end`), 50))
	_, err := mgr.CallHook("z", "spin", noArgs)
	assert.Error(t, err)
}

func TestManager_LoadScope_BadScript(t *testing.T) {
	mgr, _ := newTestManager(t)
	err := mgr.LoadScope("z", writeTempLua(t, "syntax.lua", `function (`), 0)
	assert.Error(t, err)
	assert.False(t, mgr.HasScope("z"))
}

func TestManager_LoadScope_MissingDir(t *testing.T) {
	mgr, _ := newTestManager(t)
	assert.Error(t, mgr.LoadScope("z", filepath.Join(t.TempDir(), "missing"), 0))
}

func TestManager_Reload_ReplacesVM(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("z", writeTempLua(t, "a.lua", `function v() return 1 end`), 0))
	require.NoError(t, mgr.LoadScope("z", writeTempLua(t, "a.lua", `function v() return 2 end`), 0))
	ret, err := mgr.CallHook("z", "v", noArgs)
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(2), ret)
}

func TestManager_EngineModule(t *testing.T) {
	mgr, logs := newTestManager(t)
	dir := writeTempLua(t, "engine.lua", `
		function check()
			local total = engine.roll("2d6+3")
			assert(total >= 5 and total <= 15, "roll out of range")
			local bad, msg = engine.roll("banana")
			assert(bad == nil and msg ~= nil, "expected parse error")
			local r = engine.random()
			assert(r >= 0 and r < 1, "random out of range")
			engine.log("checked")
			return true
		end
	`)
	require.NoError(t, mgr.LoadScope("z", dir, 0))
	ret, err := mgr.CallHook("z", "check", noArgs)
	require.NoError(t, err)
	assert.Equal(t, lua.LTrue, ret)
	assert.Equal(t, 1, logs.FilterMessage("lua").Len())
}

func TestManager_ConcurrentCallsSameScope(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.LoadScope("z", writeTempLua(t, "c.lua", `n = 0 function inc() n = n + 1 return n end`), 0))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.CallHook("z", "inc", noArgs)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	ret, err := mgr.CallHook("z", "inc", noArgs)
	require.NoError(t, err)
	assert.Equal(t, lua.LNumber(21), ret)
}

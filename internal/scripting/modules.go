package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the engine table into L:
//
//	engine.roll(expr)  -> total of a dice expression, or nil and an error string
//	engine.random()    -> float in [0, 1) from the manager's dice source
//	engine.log(msg)    -> debug log line tagged with the scope
//
// Precondition: L must come from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState, scope string) {
	engine := L.NewTable()
	L.SetFuncs(engine, map[string]lua.LGFunction{
		"roll": func(L *lua.LState) int {
			res, err := m.roller.RollFor("lua:"+scope, L.CheckString(1))
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LNumber(res.Total()))
			return 1
		},
		"random": func(L *lua.LState) int {
			L.Push(lua.LNumber(m.roller.Source().Float64()))
			return 1
		},
		"log": func(L *lua.LState) int {
			m.logger.Debug("lua", zap.String("scope", scope), zap.String("msg", L.CheckString(1)))
			return 0
		},
	})
	L.SetGlobal("engine", engine)
}

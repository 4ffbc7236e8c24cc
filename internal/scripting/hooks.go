package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// HookTelegraph is the Lua global called to pick an enemy's next move.
const HookTelegraph = "telegraph"

// EnemyInfo is a snapshot of an enemy passed to Lua hooks.
type EnemyInfo struct {
	Name     string
	Template string
	Level    int
	HP       int
	MaxHP    int
	Atk      int
	Golden   bool
	Turn     int
	Wave     int
	PlayerHP int
	// PlayerMaxHP lets scripts reason about the player's health fraction.
	PlayerMaxHP int
	// LastMove is the move the enemy telegraphed before this call; empty on the first turn.
	LastMove string
}

func (e EnemyInfo) table(L *lua.LState) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(e.Name))
	t.RawSetString("template", lua.LString(e.Template))
	t.RawSetString("level", lua.LNumber(e.Level))
	t.RawSetString("hp", lua.LNumber(e.HP))
	t.RawSetString("max_hp", lua.LNumber(e.MaxHP))
	t.RawSetString("atk", lua.LNumber(e.Atk))
	t.RawSetString("golden", lua.LBool(e.Golden))
	t.RawSetString("turn", lua.LNumber(e.Turn))
	t.RawSetString("wave", lua.LNumber(e.Wave))
	t.RawSetString("player_hp", lua.LNumber(e.PlayerHP))
	t.RawSetString("player_max_hp", lua.LNumber(e.PlayerMaxHP))
	t.RawSetString("last_move", lua.LString(e.LastMove))
	return t
}

// Telegraph calls the telegraph hook for scope with info as its only argument.
//
// Postcondition: Returns (move, true, nil) when the hook returned a string;
// ("", false, nil) when no hook is defined or it returned nil;
// ("", false, err) on a Lua error or a non-string result.
func (m *Manager) Telegraph(scope string, info EnemyInfo) (string, bool, error) {
	ret, err := m.CallHook(scope, HookTelegraph, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{info.table(L)}
	})
	if err != nil {
		return "", false, err
	}
	s, ok := ret.(lua.LString)
	if !ok {
		if ret != lua.LNil {
			return "", false, fmt.Errorf("scripting: %s/%s returned %s, want string", scope, HookTelegraph, ret.Type())
		}
		return "", false, nil
	}
	return string(s), true, nil
}

package encounter

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/dice"
	"github.com/cory-johannsen/samsara/internal/scripting"
)

// Situation is the combat context a picker may consult.
type Situation struct {
	// Scope is the script scope of the encounter's location.
	Scope       string
	Turn        int
	Wave        int
	PlayerHP    int
	PlayerMaxHP int
}

// MovePicker chooses the move an enemy telegraphs for its next turn.
type MovePicker interface {
	Pick(e *Enemy, s Situation) catalog.Move
}

// ScriptScope returns the script scope for loc: its Script field, or its id.
func ScriptScope(loc *catalog.Location) string {
	if loc.Script != "" {
		return loc.Script
	}
	return loc.ID
}

// UniformPicker picks uniformly from a fixed move list.
type UniformPicker struct {
	moves []catalog.Move
	src   dice.Source
}

// NewUniformPicker creates a UniformPicker.
//
// Precondition: moves must be non-empty.
func NewUniformPicker(moves []catalog.Move, src dice.Source) *UniformPicker {
	return &UniformPicker{moves: moves, src: src}
}

// Pick implements MovePicker.
func (p *UniformPicker) Pick(*Enemy, Situation) catalog.Move {
	return p.moves[p.src.Intn(len(p.moves))]
}

// ScriptedPicker asks the location's Lua telegraph hook and falls back when
// the hook is missing, fails, or names an unknown move.
type ScriptedPicker struct {
	scripts  *scripting.Manager
	fallback MovePicker
	logger   *zap.Logger
}

// NewScriptedPicker creates a ScriptedPicker.
//
// Precondition: scripts, fallback and logger must be non-nil.
func NewScriptedPicker(scripts *scripting.Manager, fallback MovePicker, logger *zap.Logger) *ScriptedPicker {
	return &ScriptedPicker{scripts: scripts, fallback: fallback, logger: logger}
}

// Pick implements MovePicker.
func (p *ScriptedPicker) Pick(e *Enemy, s Situation) catalog.Move {
	name, ok, err := p.scripts.Telegraph(s.Scope, scripting.EnemyInfo{
		Name:        e.Name,
		Template:    e.TemplateID,
		Level:       e.Level,
		HP:          e.HP,
		MaxHP:       e.MaxHP,
		Atk:         e.Atk,
		Golden:      e.Golden,
		Turn:        s.Turn,
		Wave:        s.Wave,
		PlayerHP:    s.PlayerHP,
		PlayerMaxHP: s.PlayerMaxHP,
		LastMove:    string(e.Telegraph),
	})
	if err != nil || !ok {
		return p.fallback.Pick(e, s)
	}
	move := catalog.Move(name)
	if !move.Valid() {
		p.logger.Warn("telegraph hook returned unknown move",
			zap.String("scope", s.Scope),
			zap.String("move", name),
		)
		return p.fallback.Pick(e, s)
	}
	return move
}

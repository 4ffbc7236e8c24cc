// Package encounter generates the enemy for each wave of a multi-wave
// encounter and picks the moves enemies telegraph.
package encounter

import (
	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/dice"
)

// Reward is what clearing an enemy pays before the reward multiplier.
type Reward struct {
	BaseGold float64
	BaseXP   float64
	// Material is the guaranteed drop for this enemy.
	Material string
}

// Enemy is one wave's opponent. It is owned by a single combat session.
type Enemy struct {
	Name       string
	TemplateID string
	Level      int
	HP         int
	MaxHP      int
	Atk        int
	Def        int
	Reward     Reward
	Golden     bool
	// Telegraph is the move the enemy will make on its next turn.
	Telegraph catalog.Move
}

// Alive reports whether the enemy still has hp.
func (e *Enemy) Alive() bool { return e.HP > 0 }

// Generator spawns wave enemies from the catalog.
type Generator struct {
	cat *catalog.Catalog
	src dice.Source
}

// NewGenerator creates a Generator.
//
// Precondition: cat and src must be non-nil.
func NewGenerator(cat *catalog.Catalog, src dice.Source) *Generator {
	return &Generator{cat: cat, src: src}
}

// EnemyLevel returns playerLevel + (wave-1)*step.
func EnemyLevel(rules catalog.Rules, playerLevel, wave int) int {
	return playerLevel + (wave-1)*rules.LevelStepPerWave
}

// Spawn produces the enemy for wave at loc. Exactly one uniform sample decides
// whether the golden variant appears.
//
// Precondition: wave >= 1; loc has at least one enemy and one material.
// Postcondition: Returns an enemy with HP == MaxHP >= 1 and a non-empty material.
func (g *Generator) Spawn(playerLevel, wave int, loc *catalog.Location) *Enemy {
	rules := g.cat.Rules()
	level := EnemyLevel(rules, playerLevel, wave)
	reward := Reward{
		BaseGold: rules.BaseGoldPerLevel * float64(level),
		BaseXP:   rules.BaseXPPerLevel * float64(level),
	}

	if g.src.Float64() < rules.GoldenChance {
		reward.Material = rules.GoldenMaterial
		if loc.RareMaterial != "" {
			reward.Material = loc.RareMaterial
		}
		return &Enemy{
			Name:       rules.GoldenName,
			TemplateID: "golden",
			Level:      level,
			HP:         rules.GoldenHP,
			MaxHP:      rules.GoldenHP,
			Atk:        rules.GoldenAtk,
			Reward:     reward,
			Golden:     true,
		}
	}

	tmpl := loc.Enemies[g.src.Intn(len(loc.Enemies))]
	reward.Material = loc.Materials[g.src.Intn(len(loc.Materials))]
	hp := max(1, tmpl.HP+tmpl.HPPerLevel*(level-1))
	return &Enemy{
		Name:       tmpl.Name,
		TemplateID: tmpl.ID,
		Level:      level,
		HP:         hp,
		MaxHP:      hp,
		Atk:        tmpl.Atk + tmpl.AtkPerLevel*(level-1),
		Def:        tmpl.Def,
		Reward:     reward,
	}
}

// Package progression applies rewards, level-ups, rebirth and the other
// record transitions that happen around combat.
package progression

import (
	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/encounter"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
	"github.com/cory-johannsen/samsara/internal/game/stats"
)

// Reward is what one cleared wave paid out.
type Reward struct {
	Gold     int
	XP       int
	Material string
	Golden   bool
	// LevelsGained is how many level thresholds the xp crossed.
	LevelsGained int
}

// RewardMultiplier folds the golden bonus and the mount gold bonus together.
func RewardMultiplier(rules catalog.Rules, golden bool, goldBonus float64) float64 {
	m := 1.0
	if golden {
		m = rules.GoldenRewardMultiplier
	}
	return m * (1 + goldBonus)
}

// Engine applies progression rules from a catalog.
type Engine struct {
	cat *catalog.Catalog
}

// NewEngine creates an Engine.
//
// Precondition: cat must be non-nil.
func NewEngine(cat *catalog.Catalog) *Engine {
	return &Engine{cat: cat}
}

// NewCharacter builds a level-1 record for classID with full hp and mp.
//
// Postcondition: Returns a record satisfying every Character invariant, or an
// error wrapping gameerr.ErrValidation.
func (g *Engine) NewCharacter(id, classID string) (*character.Character, error) {
	c, err := character.Build(id, classID, g.cat)
	if err != nil {
		return nil, err
	}
	e := stats.Refresh(c, g.cat)
	c.HP, c.MP = e.MaxHP, e.MaxMP
	return c, nil
}

// ApplyWave pays the reward for defeating enemy: gold, xp, and the enemy's
// material drop, then resolves any level-ups.
//
// Precondition: enemy has been defeated.
// Postcondition: c's inventory holds one more of enemy.Reward.Material; 0 <= hp <= maxHp.
func (g *Engine) ApplyWave(c *character.Character, enemy *encounter.Enemy) Reward {
	rules := g.cat.Rules()
	e := stats.Resolve(c, g.cat)
	rm := RewardMultiplier(rules, enemy.Golden, e.GoldBonus)

	r := Reward{
		Gold:     int(stats.Floor(enemy.Reward.BaseGold * rm)),
		XP:       int(stats.Floor(enemy.Reward.BaseXP * rm)),
		Material: enemy.Reward.Material,
		Golden:   enemy.Golden,
	}
	c.Gold += r.Gold
	c.XP += r.XP
	c.AddItem(r.Material, 1)
	r.LevelsGained = g.LevelUp(c)
	return r
}

// LevelUp advances c while its xp meets the threshold for its level.
// Under XPReset the surplus is discarded; under XPCarry it is kept.
//
// Postcondition: c.XP < rules.XPThreshold(c.Level); maxHp and maxMp reflect the new level.
func (g *Engine) LevelUp(c *character.Character) int {
	rules := g.cat.Rules()
	gained := 0
	for c.XP >= rules.XPThreshold(c.Level) {
		threshold := rules.XPThreshold(c.Level)
		c.Level++
		gained++
		if rules.XPPolicy == catalog.XPCarry {
			c.XP -= threshold
		} else {
			c.XP = 0
		}
	}
	e := stats.Refresh(c, g.cat)
	if gained > 0 && rules.FullHealOnLevelUp {
		c.HP, c.MP = e.MaxHP, e.MaxMP
	}
	return gained
}

// CanRebirth reports whether c has reached the rebirth level.
func (g *Engine) CanRebirth(c *character.Character) bool {
	return c.Level >= g.cat.Rules().RebirthMinLevel
}

// Rebirth resets level and xp in exchange for one more rebirth. Gold,
// inventory and equipment are untouched. The caller must ensure c has no open
// combat session.
//
// Postcondition: On success c.Level == 1, c.XP == 0 and c.Rebirths grew by one;
// otherwise c is unchanged and the error wraps gameerr.ErrState.
func (g *Engine) Rebirth(c *character.Character) error {
	if !g.CanRebirth(c) {
		return gameerr.State("rebirth requires level %d, character is level %d", g.cat.Rules().RebirthMinLevel, c.Level)
	}
	c.Level = 1
	c.XP = 0
	c.Rebirths++
	stats.Refresh(c, g.cat)
	return nil
}

// Defeat applies the defeat penalty: hp drops to the survival floor and nothing else is lost.
func (g *Engine) Defeat(c *character.Character) {
	c.HP = min(g.cat.Rules().SurvivalFloorHP, c.MaxHP)
}

// Rest restores hp and mp to their maxima outside combat.
func (g *Engine) Rest(c *character.Character) {
	e := stats.Refresh(c, g.cat)
	c.HP, c.MP = e.MaxHP, e.MaxMP
}

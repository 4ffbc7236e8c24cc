// Package stats derives a character's effective combat stats from its
// persistent record and the catalog.
package stats

import (
	"math"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
)

// Effective holds derived combat stats. It is never persisted.
type Effective struct {
	Atk   int
	MaxHP int
	MaxMP int
	Def   int
	Speed int
	// Crit is the probability in [0, 1] that a basic attack crits.
	Crit float64
	// Dodge is the probability in [0, MaxDodge] that an incoming hit is negated.
	Dodge float64
	// GoldBonus is the mount's fractional reward bonus.
	GoldBonus float64
	// Multiplier is the rebirth multiplier the stats were computed with.
	Multiplier float64
}

// Resolve computes the effective stats for c.
// Unknown class, weapon, armor, or mount ids contribute nothing.
//
// Precondition: c.Level >= 1 and c.Rebirths >= 0.
// Postcondition: MaxHP >= 1 and Multiplier == rules.RebirthMultiplier(c.Rebirths).
func Resolve(c *character.Character, cat *catalog.Catalog) Effective {
	rules := cat.Rules()
	mult := rules.RebirthMultiplier(c.Rebirths)

	var base catalog.ClassBase
	if cls, ok := cat.Class(c.ClassID); ok {
		base = cls.Base
	}
	var weaponAtk int
	if w, ok := cat.Weapon(c.WeaponID); ok {
		weaponAtk = w.Atk
	}
	var armorHP, armorDef int
	if a, ok := cat.Armor(c.ArmorID); ok {
		armorHP, armorDef = a.HP, a.Def
	}
	var mount catalog.Mount
	if m, ok := cat.Mount(c.MountID); ok {
		mount = *m
	}

	level := float64(c.Level)
	atk := Floor((level*rules.LevelAtkCoeff + float64(base.Atk+weaponAtk)) * mult)
	maxHP := Floor((rules.BaseHP + float64(base.HP) + level*rules.HPPerLevel + float64(armorHP+mount.HP)) * mult)

	e := Effective{
		Atk:        int(atk),
		MaxHP:      max(1, int(maxHP)),
		MaxMP:      max(0, base.MP+c.Level*rules.MPPerLevel),
		Def:        base.Def + armorDef,
		Speed:      base.Spd + mount.Speed,
		Crit:       min(1, base.Crit+mount.Crit),
		GoldBonus:  mount.GoldBonus,
		Multiplier: mult,
	}
	e.Dodge = min(rules.MaxDodge, float64(e.Speed)*rules.SpeedDodgeCoeff+mount.Dodge)
	return e
}

// Floor rounds down, absorbing the representation error of products such as 45*1.4.
func Floor(x float64) float64 {
	return math.Floor(x + 1e-9)
}

// Clamp writes e's maxima onto c and clamps current hp and mp into range.
//
// Postcondition: 0 <= c.HP <= c.MaxHP and 0 <= c.MP <= c.MaxMP.
func Clamp(c *character.Character, e Effective) {
	c.MaxHP = e.MaxHP
	c.MaxMP = e.MaxMP
	c.HP = max(0, min(c.HP, c.MaxHP))
	c.MP = max(0, min(c.MP, c.MaxMP))
}

// Refresh resolves c's stats and clamps it in one step.
func Refresh(c *character.Character, cat *catalog.Catalog) Effective {
	e := Resolve(c, cat)
	Clamp(c, e)
	return e
}

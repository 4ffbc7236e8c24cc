package catalog

import (
	"fmt"

	"github.com/cory-johannsen/samsara/internal/game/dice"
)

// validate checks cross-table references and per-entry invariants.
//
// Postcondition: Returns nil or the first violation found.
func (c *Catalog) validate() error {
	if err := c.rules.Validate(); err != nil {
		return err
	}
	for _, id := range c.classOrder {
		cls := c.classes[id]
		if cls.Base.HP < 1 {
			return fmt.Errorf("class %q: base hp must be >= 1", id)
		}
		if cls.Base.Crit < 0 || cls.Base.Crit > 1 {
			return fmt.Errorf("class %q: crit must be in [0, 1], got %v", id, cls.Base.Crit)
		}
		for _, sk := range cls.Skills {
			if _, ok := c.skills[sk]; !ok {
				return fmt.Errorf("class %q: references unknown skill %q", id, sk)
			}
		}
	}
	for _, id := range c.locationOrder {
		loc := c.locations[id]
		if len(loc.Enemies) == 0 {
			return fmt.Errorf("location %q: must define at least one enemy", id)
		}
		if len(loc.Materials) == 0 {
			return fmt.Errorf("location %q: must define at least one material", id)
		}
		for i, e := range loc.Enemies {
			if e.Name == "" || e.HP < 1 || e.Atk < 0 || e.HPPerLevel < 0 || e.AtkPerLevel < 0 || e.Def < 0 {
				return fmt.Errorf("location %q: enemy[%d] %q has invalid stats", id, i, e.ID)
			}
		}
	}
	if c.rules.DefaultLocation != "" {
		if _, ok := c.locations[c.rules.DefaultLocation]; !ok {
			return fmt.Errorf("rules: default_location %q is not a known location", c.rules.DefaultLocation)
		}
	}
	for id, cn := range c.consumables {
		if cn.HP == "" && cn.MP == "" {
			return fmt.Errorf("consumable %q: must restore hp or mp", id)
		}
		for _, expr := range []string{cn.HP, cn.MP} {
			if expr == "" {
				continue
			}
			if _, err := dice.Parse(expr); err != nil {
				return fmt.Errorf("consumable %q: %w", id, err)
			}
		}
	}
	for item := range c.rules.StarterInventory {
		if _, ok := c.consumables[item]; !ok {
			return fmt.Errorf("rules: starter_inventory references unknown consumable %q", item)
		}
	}
	for id, m := range c.mounts {
		if m.Dodge < 0 || m.Dodge > 1 || m.Crit < 0 || m.Crit > 1 || m.GoldBonus < 0 {
			return fmt.Errorf("mount %q: bonuses out of range", id)
		}
	}
	return nil
}

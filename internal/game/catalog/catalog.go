// Package catalog holds the immutable game-balance tables: classes, skills,
// locations with their enemies and materials, equipment, mounts,
// consumables, and the balance Rules.
//
// A Catalog is built once by Load/LoadDir/Default and is read-only
// afterwards; it is shared by pointer across every combat session.
package catalog

import (
	"slices"
)

// ClassBase holds a class's level-independent combat stats.
type ClassBase struct {
	HP   int     `yaml:"hp"`
	MP   int     `yaml:"mp"`
	Atk  int     `yaml:"atk"`
	Def  int     `yaml:"def"`
	Spd  int     `yaml:"spd"`
	Crit float64 `yaml:"crit"`
}

// Class is a playable path with its base stats and skill list.
type Class struct {
	ID          string    `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Base        ClassBase `yaml:"base"`
	Skills      []string  `yaml:"skills"`
}

// HasSkill reports whether skillID belongs to the class.
func (c *Class) HasSkill(skillID string) bool {
	return slices.Contains(c.Skills, skillID)
}

// Skill is a castable ability with a typed effect.
type Skill struct {
	ID          string
	Name        string
	Cost        int
	Effect      Effect
	Description string
}

// EnemyTemplate defines a standard enemy archetype at level 1 plus its per-level growth.
type EnemyTemplate struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	HP          int    `yaml:"hp"`
	HPPerLevel  int    `yaml:"hp_per_level"`
	Atk         int    `yaml:"atk"`
	AtkPerLevel int    `yaml:"atk_per_level"`
	Def         int    `yaml:"def"`
}

// Location is a hunting ground with its enemy roster and material drop table.
type Location struct {
	ID        string          `yaml:"id"`
	Name      string          `yaml:"name"`
	Enemies   []EnemyTemplate `yaml:"enemies"`
	Materials []string        `yaml:"materials"`
	// RareMaterial overrides Rules.GoldenMaterial for golden enemies met here.
	RareMaterial string `yaml:"rare_material"`
	// Script names the Lua script directory for this location's enemy telegraphs.
	Script string `yaml:"script"`
}

// Weapon adds flat attack before the rebirth multiplier.
type Weapon struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Atk  int    `yaml:"atk"`
}

// Armor adds flat hp before the rebirth multiplier, plus defense.
type Armor struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	HP   int    `yaml:"hp"`
	Def  int    `yaml:"def"`
}

// Mount grants passive bonuses while equipped.
type Mount struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	HP        int     `yaml:"hp"`
	Speed     int     `yaml:"speed"`
	Crit      float64 `yaml:"crit"`
	Dodge     float64 `yaml:"dodge"`
	GoldBonus float64 `yaml:"gold_bonus"`
}

// Consumable is a usable inventory item. HP and MP are dice expressions; empty means none.
type Consumable struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	HP          string `yaml:"hp"`
	MP          string `yaml:"mp"`
	Description string `yaml:"description"`
}

// Catalog is the read-only set of content tables.
type Catalog struct {
	rules       Rules
	classes     map[string]*Class
	skills      map[string]*Skill
	locations   map[string]*Location
	weapons     map[string]*Weapon
	armor       map[string]*Armor
	mounts      map[string]*Mount
	consumables map[string]*Consumable

	classOrder    []string
	locationOrder []string
}

// Rules returns a copy of the balance constants.
func (c *Catalog) Rules() Rules { return c.rules }

// Class returns the class with the given id.
func (c *Catalog) Class(id string) (*Class, bool) {
	v, ok := c.classes[id]
	return v, ok
}

// Skill returns the skill with the given id.
func (c *Catalog) Skill(id string) (*Skill, bool) {
	v, ok := c.skills[id]
	return v, ok
}

// Location returns the location with the given id.
func (c *Catalog) Location(id string) (*Location, bool) {
	v, ok := c.locations[id]
	return v, ok
}

// Weapon returns the weapon with the given id.
func (c *Catalog) Weapon(id string) (*Weapon, bool) {
	v, ok := c.weapons[id]
	return v, ok
}

// Armor returns the armor with the given id.
func (c *Catalog) Armor(id string) (*Armor, bool) {
	v, ok := c.armor[id]
	return v, ok
}

// Mount returns the mount with the given id.
func (c *Catalog) Mount(id string) (*Mount, bool) {
	v, ok := c.mounts[id]
	return v, ok
}

// Consumable returns the consumable with the given id.
func (c *Catalog) Consumable(id string) (*Consumable, bool) {
	v, ok := c.consumables[id]
	return v, ok
}

// ClassIDs returns class ids in content order.
func (c *Catalog) ClassIDs() []string { return slices.Clone(c.classOrder) }

// LocationIDs returns location ids in content order.
func (c *Catalog) LocationIDs() []string { return slices.Clone(c.locationOrder) }

// ConsumableIDs returns consumable ids in sorted order.
func (c *Catalog) ConsumableIDs() []string {
	ids := make([]string, 0, len(c.consumables))
	for id := range c.consumables {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Size returns the number of entries per table, for startup logging.
func (c *Catalog) Size() map[string]int {
	return map[string]int{
		"classes":     len(c.classes),
		"skills":      len(c.skills),
		"locations":   len(c.locations),
		"weapons":     len(c.weapons),
		"armor":       len(c.armor),
		"mounts":      len(c.mounts),
		"consumables": len(c.consumables),
	}
}

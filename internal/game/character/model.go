// Package character defines the persistent player record, its field-level
// patch, and the store contract the combat engine reads and writes through.
package character

import (
	"context"
	"maps"
	"time"
)

// Character is a player's persistent record.
//
// Invariants: Level >= 1, XP >= 0, 0 <= HP <= MaxHP, 0 <= MP <= MaxMP, Gold >= 0, Rebirths >= 0.
// Empty equipment ids mean nothing is equipped.
type Character struct {
	ID      string
	ClassID string

	Level    int
	XP       int
	Rebirths int

	HP    int
	MaxHP int
	MP    int
	MaxMP int
	Gold  int

	Location string
	WeaponID string
	ArmorID  string
	MountID  string

	// Inventory maps consumable and material ids to counts. Counts are never negative.
	Inventory map[string]int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy; the inventory map is not shared.
func (c *Character) Clone() *Character {
	out := *c
	out.Inventory = maps.Clone(c.Inventory)
	return &out
}

// Count returns the number of item held.
func (c *Character) Count(item string) int {
	return c.Inventory[item]
}

// AddItem adds n of item; counts that reach zero are removed.
//
// Precondition: the resulting count must not be negative.
func (c *Character) AddItem(item string, n int) {
	if c.Inventory == nil {
		c.Inventory = make(map[string]int)
	}
	left := c.Inventory[item] + n
	if left <= 0 {
		delete(c.Inventory, item)
		return
	}
	c.Inventory[item] = left
}

// Store is the player record persistence contract.
//
// Implementations return errors wrapping gameerr.ErrNotFound for missing records,
// gameerr.ErrState for duplicate creates, and gameerr.ErrPersistence for backend failures.
type Store interface {
	// Get returns the record for id.
	Get(ctx context.Context, id string) (*Character, error)
	// Create inserts a fully built record and returns it with timestamps set.
	Create(ctx context.Context, c *Character) (*Character, error)
	// Update applies a field-level partial update atomically.
	Update(ctx context.Context, id string, p Patch) error
}

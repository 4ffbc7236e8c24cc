// Package storage holds the pieces shared by the player record backends:
// the column mapping of a character.Patch and the inventory blob codec.
package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cory-johannsen/samsara/internal/game/character"
)

// Table is the player record table name in every SQL backend.
const Table = "players"

// Columns lists the record columns in scan order, after id.
var Columns = []string{
	"class_id", "level", "xp", "rebirths",
	"hp", "max_hp", "mp", "max_mp", "gold",
	"location", "weapon_id", "armor_id", "mount_id",
	"inventory", "created_at", "updated_at",
}

// Assignment is one "column = value" pair of a partial update.
type Assignment struct {
	Column string
	Value  any
}

// Assignments maps every set field of p to its column. The inventory is
// encoded as a JSON object.
//
// Postcondition: Returns one Assignment per non-nil field in a fixed order.
func Assignments(p character.Patch) ([]Assignment, error) {
	var out []Assignment
	add := func(col string, v any) { out = append(out, Assignment{Column: col, Value: v}) }
	addInt := func(col string, v *int) {
		if v != nil {
			add(col, *v)
		}
	}
	addStr := func(col string, v *string) {
		if v != nil {
			add(col, *v)
		}
	}

	addInt("level", p.Level)
	addInt("xp", p.XP)
	addInt("rebirths", p.Rebirths)
	addInt("hp", p.HP)
	addInt("max_hp", p.MaxHP)
	addInt("mp", p.MP)
	addInt("max_mp", p.MaxMP)
	addInt("gold", p.Gold)
	addStr("location", p.Location)
	addStr("weapon_id", p.WeaponID)
	addStr("armor_id", p.ArmorID)
	addStr("mount_id", p.MountID)
	if p.Inventory != nil {
		blob, err := EncodeInventory(p.Inventory)
		if err != nil {
			return nil, err
		}
		add("inventory", blob)
	}
	return out, nil
}

// UpdateSQL renders an UPDATE for id with the given assignments. placeholder
// returns the driver's bind marker for the n-th argument, starting at 1.
// updated_at is always refreshed with now, which is a SQL expression.
//
// Postcondition: args follow the placeholders in text order; id is last.
func UpdateSQL(id string, set []Assignment, now string, placeholder func(n int) string) (string, []any) {
	args := make([]any, 0, len(set)+1)
	parts := make([]string, 0, len(set)+1)
	for _, a := range set {
		args = append(args, a.Value)
		parts = append(parts, fmt.Sprintf("%s = %s", a.Column, placeholder(len(args))))
	}
	parts = append(parts, "updated_at = "+now)
	args = append(args, id)
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", Table, strings.Join(parts, ", "), placeholder(len(args))), args
}

// EncodeInventory serializes an inventory as a JSON object. A nil map encodes as "{}".
func EncodeInventory(inv map[string]int) (string, error) {
	if inv == nil {
		return "{}", nil
	}
	b, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("encoding inventory: %w", err)
	}
	return string(b), nil
}

// DecodeInventory parses a JSON inventory blob. Empty input yields an empty map.
func DecodeInventory(blob []byte) (map[string]int, error) {
	inv := make(map[string]int)
	if len(blob) == 0 {
		return inv, nil
	}
	if err := json.Unmarshal(blob, &inv); err != nil {
		return nil, fmt.Errorf("decoding inventory: %w", err)
	}
	return inv, nil
}

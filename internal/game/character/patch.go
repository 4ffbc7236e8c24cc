package character

import "maps"

// Patch is a field-level partial update. A nil field is left untouched.
// Inventory, when set, replaces the whole map; stores treat it as an opaque blob.
type Patch struct {
	Level     *int
	XP        *int
	Rebirths  *int
	HP        *int
	MaxHP     *int
	MP        *int
	MaxMP     *int
	Gold      *int
	Location  *string
	WeaponID  *string
	ArmorID   *string
	MountID   *string
	Inventory map[string]int
}

// Diff returns the patch that turns before into after.
//
// Precondition: before and after describe the same character.
// Postcondition: Applying the result to a clone of before yields after's persistent fields.
func Diff(before, after *Character) Patch {
	var p Patch
	p.Level = diffField(before.Level, after.Level)
	p.XP = diffField(before.XP, after.XP)
	p.Rebirths = diffField(before.Rebirths, after.Rebirths)
	p.HP = diffField(before.HP, after.HP)
	p.MaxHP = diffField(before.MaxHP, after.MaxHP)
	p.MP = diffField(before.MP, after.MP)
	p.MaxMP = diffField(before.MaxMP, after.MaxMP)
	p.Gold = diffField(before.Gold, after.Gold)
	p.Location = diffField(before.Location, after.Location)
	p.WeaponID = diffField(before.WeaponID, after.WeaponID)
	p.ArmorID = diffField(before.ArmorID, after.ArmorID)
	p.MountID = diffField(before.MountID, after.MountID)
	if !maps.Equal(before.Inventory, after.Inventory) {
		p.Inventory = maps.Clone(after.Inventory)
		if p.Inventory == nil {
			p.Inventory = map[string]int{}
		}
	}
	return p
}

func diffField[T comparable](before, after T) *T {
	if before == after {
		return nil
	}
	v := after
	return &v
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Level == nil && p.XP == nil && p.Rebirths == nil &&
		p.HP == nil && p.MaxHP == nil && p.MP == nil && p.MaxMP == nil &&
		p.Gold == nil && p.Location == nil && p.WeaponID == nil &&
		p.ArmorID == nil && p.MountID == nil && p.Inventory == nil
}

// Merge returns p overlaid by later: fields set in later win.
func (p Patch) Merge(later Patch) Patch {
	out := p
	overlay(&out.Level, later.Level)
	overlay(&out.XP, later.XP)
	overlay(&out.Rebirths, later.Rebirths)
	overlay(&out.HP, later.HP)
	overlay(&out.MaxHP, later.MaxHP)
	overlay(&out.MP, later.MP)
	overlay(&out.MaxMP, later.MaxMP)
	overlay(&out.Gold, later.Gold)
	overlay(&out.Location, later.Location)
	overlay(&out.WeaponID, later.WeaponID)
	overlay(&out.ArmorID, later.ArmorID)
	overlay(&out.MountID, later.MountID)
	if later.Inventory != nil {
		out.Inventory = later.Inventory
	}
	return out
}

func overlay[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// Apply writes every set field of p into c.
func (p Patch) Apply(c *Character) {
	assign(&c.Level, p.Level)
	assign(&c.XP, p.XP)
	assign(&c.Rebirths, p.Rebirths)
	assign(&c.HP, p.HP)
	assign(&c.MaxHP, p.MaxHP)
	assign(&c.MP, p.MP)
	assign(&c.MaxMP, p.MaxMP)
	assign(&c.Gold, p.Gold)
	assign(&c.Location, p.Location)
	assign(&c.WeaponID, p.WeaponID)
	assign(&c.ArmorID, p.ArmorID)
	assign(&c.MountID, p.MountID)
	if p.Inventory != nil {
		c.Inventory = maps.Clone(p.Inventory)
	}
}

func assign[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

package catalog

import "fmt"

// EffectKind names a skill effect variant as it appears in content files.
type EffectKind string

const (
	KindDamage              EffectKind = "damage"
	KindDamageIgnoreDefense EffectKind = "damage_ignore_defense"
	KindHeal                EffectKind = "heal"
	KindStun                EffectKind = "stun"
	KindMultiHit            EffectKind = "multi_hit"
	KindBuffAttack          EffectKind = "buff_atk"
	KindBuffEvade           EffectKind = "buff_spd"
	KindCritGuarantee       EffectKind = "crit_guarantee"
)

// Effect is the closed set of skill effects. Only the types in this file
// implement it; the unexported marker keeps the union sealed so a type switch
// over the variants below is exhaustive.
type Effect interface {
	Kind() EffectKind
	effect()
}

// Damage deals floor(atk*Multiplier) minus the enemy's defense.
type Damage struct{ Multiplier float64 }

// DamageIgnoreDefense deals floor(atk*Multiplier) without subtracting defense.
type DamageIgnoreDefense struct{ Multiplier float64 }

// Heal restores Percent of max hp, or Flat hp when Flat > 0.
type Heal struct {
	Percent float64
	Flat    int
}

// Stun deals half attack damage and makes the enemy lose its next turn.
type Stun struct{}

// MultiHit strikes Hits times for 80% attack each, applied as one aggregate.
type MultiHit struct{ Hits int }

// BuffAttack multiplies the next outgoing hit by Multiplier.
type BuffAttack struct{ Multiplier float64 }

// BuffEvade guarantees the next incoming hit is dodged.
type BuffEvade struct{}

// CritGuarantee forces the next outgoing hit to crit.
type CritGuarantee struct{}

func (Damage) Kind() EffectKind              { return KindDamage }
func (DamageIgnoreDefense) Kind() EffectKind { return KindDamageIgnoreDefense }
func (Heal) Kind() EffectKind                { return KindHeal }
func (Stun) Kind() EffectKind                { return KindStun }
func (MultiHit) Kind() EffectKind            { return KindMultiHit }
func (BuffAttack) Kind() EffectKind          { return KindBuffAttack }
func (BuffEvade) Kind() EffectKind           { return KindBuffEvade }
func (CritGuarantee) Kind() EffectKind       { return KindCritGuarantee }

func (Damage) effect()              {}
func (DamageIgnoreDefense) effect() {}
func (Heal) effect()                {}
func (Stun) effect()                {}
func (MultiHit) effect()            {}
func (BuffAttack) effect()          {}
func (BuffEvade) effect()           {}
func (CritGuarantee) effect()       {}

// newEffect builds the typed effect for a content kind string.
//
// Postcondition: Returns a non-nil Effect or an error naming the offending kind or value.
func newEffect(kind EffectKind, value float64, flat int) (Effect, error) {
	switch kind {
	case KindDamage:
		if value <= 0 {
			return nil, fmt.Errorf("damage multiplier must be > 0, got %v", value)
		}
		return Damage{Multiplier: value}, nil
	case KindDamageIgnoreDefense:
		if value <= 0 {
			return nil, fmt.Errorf("damage multiplier must be > 0, got %v", value)
		}
		return DamageIgnoreDefense{Multiplier: value}, nil
	case KindHeal:
		if value <= 0 && flat <= 0 {
			return nil, fmt.Errorf("heal needs a positive percent value or flat amount")
		}
		return Heal{Percent: value, Flat: flat}, nil
	case KindStun:
		return Stun{}, nil
	case KindMultiHit:
		hits := int(value)
		if hits < 1 {
			return nil, fmt.Errorf("multi_hit needs at least 1 hit, got %v", value)
		}
		return MultiHit{Hits: hits}, nil
	case KindBuffAttack:
		if value <= 1 {
			return nil, fmt.Errorf("buff_atk multiplier must be > 1, got %v", value)
		}
		return BuffAttack{Multiplier: value}, nil
	case KindBuffEvade:
		return BuffEvade{}, nil
	case KindCritGuarantee:
		return CritGuarantee{}, nil
	default:
		return nil, fmt.Errorf("unknown effect kind %q", kind)
	}
}

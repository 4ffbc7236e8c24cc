package skill

import (
	"fmt"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/encounter"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
	"github.com/cory-johannsen/samsara/internal/game/stats"
)

const (
	stunDamageRatio = 0.5
	multiHitRatio   = 0.8
)

// Battle is the mutable state a cast reads and writes.
type Battle struct {
	Player *character.Character
	Stats  stats.Effective
	Enemy  *encounter.Enemy
	Status *Status
	// Log records one combat log line.
	Log func(line string)
}

// Resolver applies catalog skills to a Battle.
type Resolver struct {
	cat *catalog.Catalog
}

// NewResolver creates a Resolver.
//
// Precondition: cat must be non-nil.
func NewResolver(cat *catalog.Catalog) *Resolver {
	return &Resolver{cat: cat}
}

// Check validates that the player may cast skillID right now without changing anything.
//
// Postcondition: Returns the skill, or an error wrapping gameerr.ErrValidation
// (unknown skill, or not on the player's path) or gameerr.ErrInsufficientResource (mp).
func (r *Resolver) Check(b Battle, skillID string) (*catalog.Skill, error) {
	sk, ok := r.cat.Skill(skillID)
	if !ok {
		return nil, gameerr.Validation("unknown skill %q", skillID)
	}
	cls, ok := r.cat.Class(b.Player.ClassID)
	if !ok || !cls.HasSkill(skillID) {
		return nil, gameerr.Validation("skill %q is not available to class %q", skillID, b.Player.ClassID)
	}
	if b.Player.MP < sk.Cost {
		return nil, gameerr.Insufficient("%s needs %d mp, have %d", sk.Name, sk.Cost, b.Player.MP)
	}
	return sk, nil
}

// Cast deducts the skill's cost and applies its effect. A rejected cast changes nothing.
//
// Postcondition: On success the player's mp dropped by the cost and 0 <= hp <= maxHp holds.
func (r *Resolver) Cast(b Battle, skillID string) error {
	sk, err := r.Check(b, skillID)
	if err != nil {
		return err
	}
	b.Player.MP -= sk.Cost

	switch eff := sk.Effect.(type) {
	case catalog.Damage:
		r.strike(b, sk, Strike{Raw: scaled(b.Stats.Atk, eff.Multiplier), Hits: 1})
	case catalog.DamageIgnoreDefense:
		r.strike(b, sk, Strike{Raw: scaled(b.Stats.Atk, eff.Multiplier), Hits: 1, IgnoreDefense: true})
	case catalog.Heal:
		amount := eff.Flat
		if amount <= 0 {
			amount = scaled(b.Player.MaxHP, eff.Percent/100)
		}
		before := b.Player.HP
		b.Player.HP = min(b.Player.MaxHP, b.Player.HP+amount)
		b.Log(fmt.Sprintf("%s restores %d HP.", sk.Name, b.Player.HP-before))
	case catalog.Stun:
		r.strike(b, sk, Strike{Raw: scaled(b.Stats.Atk, stunDamageRatio), Hits: 1})
		b.Status.EnemyStunned = true
		b.Log(fmt.Sprintf("%s is stunned!", b.Enemy.Name))
	case catalog.MultiHit:
		r.strike(b, sk, Strike{Raw: scaled(b.Stats.Atk, multiHitRatio), Hits: eff.Hits})
	case catalog.BuffAttack:
		b.Status.AtkMultiplier = eff.Multiplier
		b.Log(fmt.Sprintf("%s: your next hit deals x%g damage.", sk.Name, eff.Multiplier))
	case catalog.BuffEvade:
		b.Status.GuaranteedEvade = true
		b.Log(fmt.Sprintf("%s: you will evade the next attack.", sk.Name))
	case catalog.CritGuarantee:
		b.Status.GuaranteedCrit = true
		b.Log(fmt.Sprintf("%s: your next hit will crit.", sk.Name))
	default:
		panic(fmt.Sprintf("skill: unhandled effect %T", eff))
	}
	return nil
}

func (r *Resolver) strike(b Battle, sk *catalog.Skill, st Strike) {
	out := b.Status.Resolve(st, b.Enemy.Def)
	if st.Hits > 1 {
		for i := 1; i <= st.Hits; i++ {
			b.Log(fmt.Sprintf("%s hit %d: %d damage.", sk.Name, i, out.PerHit))
		}
	}
	b.Enemy.HP = max(0, b.Enemy.HP-out.Total)
	b.Log(describeHit(sk.Name+" deals", st.Hits, out))
}

// describeHit renders the final log line for a resolved strike.
func describeHit(lead string, hits int, out Outcome) string {
	line := fmt.Sprintf("%s %d damage", lead, out.Total)
	if hits > 1 {
		line = fmt.Sprintf("%s %d x %d = %d damage", lead, hits, out.PerHit, out.Total)
	}
	if out.Crit {
		line += " CRIT"
	}
	if out.Buffed {
		line += " (empowered)"
	}
	if out.Guarded {
		line += " (guarded)"
	}
	return line + "."
}

// DescribeHit is the log line for a basic attack outcome.
func DescribeHit(out Outcome) string {
	return describeHit("You hit for", 1, out)
}

func scaled(v int, ratio float64) int {
	return int(stats.Floor(float64(v) * ratio))
}

package skill

import "github.com/cory-johannsen/samsara/internal/game/stats"

// Strike describes one outgoing attack before modifiers.
type Strike struct {
	// Raw is the per-hit damage before crit, buff, guard and defense.
	Raw  int
	Hits int
	// Crit is the attack's own crit roll; a guaranteed crit overrides it.
	Crit          bool
	IgnoreDefense bool
}

// Outcome is a resolved Strike.
type Outcome struct {
	PerHit  int
	Total   int
	Crit    bool
	Buffed  bool
	Guarded bool
}

// Resolve applies the outgoing-hit pipeline to st against an enemy with the
// given defense, consuming the one-use flags it uses: crit doubles, the attack
// buff multiplies, the enemy guard halves, then defense is subtracted per hit
// (minimum 1) unless the strike ignores it.
//
// Precondition: st.Hits >= 1.
// Postcondition: Total == PerHit*Hits and PerHit >= 1 unless Raw is 0 and defense is ignored.
func (s *Status) Resolve(st Strike, enemyDef int) Outcome {
	out := Outcome{Crit: st.Crit || s.GuaranteedCrit}
	s.GuaranteedCrit = false

	mult := 1.0
	if out.Crit {
		mult *= 2
	}
	if s.AtkMultiplier > 0 {
		mult *= s.AtkMultiplier
		s.AtkMultiplier = 0
		out.Buffed = true
	}
	if s.EnemyGuard {
		mult *= 0.5
		s.EnemyGuard = false
		out.Guarded = true
	}

	per := int(stats.Floor(float64(st.Raw) * mult))
	if !st.IgnoreDefense {
		per = max(1, per-enemyDef)
	}
	out.PerHit = per
	out.Total = per * st.Hits
	return out
}

// Package skill resolves player skills and the outgoing-hit pipeline shared
// by skills and basic attacks.
package skill

// Status is the set of transient combat effects for one session.
// Every flag has a one-use or one-turn lifetime and is cleared by the event that consumes it.
type Status struct {
	// EnemyStunned skips the enemy's next turn.
	EnemyStunned bool
	// EnemyGuard halves the player's next outgoing hit.
	EnemyGuard bool
	// DefendBonus is added to player defense for the next incoming hit only.
	DefendBonus int
	// AtkMultiplier scales the next outgoing hit; zero means none.
	AtkMultiplier float64
	// GuaranteedEvade negates the next incoming hit.
	GuaranteedEvade bool
	// GuaranteedCrit forces the next outgoing hit to crit.
	GuaranteedCrit bool
}

// Names returns the active effects in a fixed order, for display.
func (s Status) Names() []string {
	var out []string
	if s.EnemyStunned {
		out = append(out, "enemy stunned")
	}
	if s.EnemyGuard {
		out = append(out, "enemy guarding")
	}
	if s.DefendBonus > 0 {
		out = append(out, "defending")
	}
	if s.AtkMultiplier > 0 {
		out = append(out, "empowered")
	}
	if s.GuaranteedEvade {
		out = append(out, "evasive")
	}
	if s.GuaranteedCrit {
		out = append(out, "poised to crit")
	}
	return out
}

// Package dice provides the randomness abstraction for the samsara combat
// engine: a uniform Source, dice expressions for consumable potency, and
// logged rolls.
package dice

import "fmt"

// RollResult holds the full audit trail for a single dice roll evaluation.
//
// Postcondition: Total() == sum(Dice) + Modifier.
type RollResult struct {
	Expression string // original expression string, e.g. "2d10+20"
	Dice       []int  // individual die results before modifier
	Modifier   int    // flat modifier (may be negative)
}

// Total returns the sum of all die results plus the modifier.
func (r RollResult) Total() int {
	total := r.Modifier
	for _, d := range r.Dice {
		total += d
	}
	return total
}

// String returns a human-readable audit string such as "2d10+20 → [4 7] +20 = 31".
func (r RollResult) String() string {
	return fmt.Sprintf("%s → %v %+d = %d", r.Expression, r.Dice, r.Modifier, r.Total())
}

// Source is the randomness provider for every random decision in combat.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a uniform random float in [0, 1).
	Float64() float64
}

// Uniform returns a uniform sample in [lo, hi) drawn from src.
//
// Precondition: lo <= hi.
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Chance reports whether a single uniform draw falls below p.
// p <= 0 never succeeds; p >= 1 always succeeds.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

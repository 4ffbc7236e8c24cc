package catalog

import (
	"fmt"
	"strings"
)

// Move is an enemy's telegraphed intent for its next turn.
type Move string

const (
	MoveAttack Move = "Attack"
	MoveCharge Move = "Charge"
	MoveBlock  Move = "Block"
)

// Valid reports whether m is one of the known enemy moves.
func (m Move) Valid() bool {
	switch m {
	case MoveAttack, MoveCharge, MoveBlock:
		return true
	}
	return false
}

// XPPolicy selects what happens to surplus xp when a level threshold is crossed.
type XPPolicy string

const (
	// XPReset zeroes xp on every level-up.
	XPReset XPPolicy = "reset"
	// XPCarry subtracts the threshold and keeps the remainder.
	XPCarry XPPolicy = "carry"
)

// Rules holds the balance constants every formula reads.
type Rules struct {
	LevelAtkCoeff float64 `yaml:"level_atk_coeff"`
	HPPerLevel    float64 `yaml:"hp_per_level"`
	MPPerLevel    int     `yaml:"mp_per_level"`
	BaseHP        float64 `yaml:"base_hp"`
	RebirthBonus  float64 `yaml:"rebirth_bonus"`

	SpeedDodgeCoeff float64 `yaml:"speed_dodge_coeff"`
	MaxDodge        float64 `yaml:"max_dodge"`

	GoldenChance           float64 `yaml:"golden_chance"`
	GoldenName             string  `yaml:"golden_name"`
	GoldenHP               int     `yaml:"golden_hp"`
	GoldenAtk              int     `yaml:"golden_atk"`
	GoldenRewardMultiplier float64 `yaml:"golden_reward_multiplier"`
	GoldenMaterial         string  `yaml:"golden_material"`
	LevelStepPerWave       int     `yaml:"level_step_per_wave"`
	MaxWaves               int     `yaml:"max_waves"`
	EnemyMoves             []Move  `yaml:"enemy_moves"`
	ChargeMultiplier       float64 `yaml:"charge_multiplier"`

	BaseGoldPerLevel  float64  `yaml:"base_gold_per_level"`
	BaseXPPerLevel    float64  `yaml:"base_xp_per_level"`
	XPThresholdCoeff  int      `yaml:"xp_threshold_coeff"`
	XPPolicy          XPPolicy `yaml:"xp_policy"`
	FullHealOnLevelUp bool     `yaml:"full_heal_on_level_up"`
	RebirthMinLevel   int      `yaml:"rebirth_min_level"`

	SurvivalFloorHP  int     `yaml:"survival_floor_hp"`
	MinEncounterHP   int     `yaml:"min_encounter_hp"`
	MPRegen          int     `yaml:"mp_regen"`
	DefendDefBonus   int     `yaml:"defend_def_bonus"`
	DefendMPRestore  int     `yaml:"defend_mp_restore"`
	WaveClearHealPct float64 `yaml:"wave_clear_heal_pct"`
	LogLines         int     `yaml:"log_lines"`

	StartingGold     int            `yaml:"starting_gold"`
	DefaultLocation  string         `yaml:"default_location"`
	StarterInventory map[string]int `yaml:"starter_inventory"`
}

// DefaultRules returns the stock balance table. Content files overlay it field by field.
func DefaultRules() Rules {
	return Rules{
		LevelAtkCoeff:          2,
		HPPerLevel:             20,
		MPPerLevel:             5,
		BaseHP:                 0,
		RebirthBonus:           0.20,
		SpeedDodgeCoeff:        0.02,
		MaxDodge:               0.5,
		GoldenChance:           0.05,
		GoldenName:             "Golden Deer",
		GoldenHP:               30,
		GoldenAtk:              5,
		GoldenRewardMultiplier: 10,
		GoldenMaterial:         "golden_hide",
		LevelStepPerWave:       1,
		MaxWaves:               3,
		EnemyMoves:             []Move{MoveAttack, MoveCharge, MoveBlock},
		ChargeMultiplier:       2.5,
		BaseGoldPerLevel:       10,
		BaseXPPerLevel:         15,
		XPThresholdCoeff:       100,
		XPPolicy:               XPReset,
		FullHealOnLevelUp:      true,
		RebirthMinLevel:        50,
		SurvivalFloorHP:        10,
		MinEncounterHP:         20,
		MPRegen:                5,
		DefendDefBonus:         10,
		DefendMPRestore:        10,
		WaveClearHealPct:       30,
		LogLines:               6,
		StartingGold:           100,
		DefaultLocation:        "varanasi",
	}
}

// RebirthMultiplier returns 1 + RebirthBonus*rebirths.
//
// Precondition: rebirths >= 0.
func (r Rules) RebirthMultiplier(rebirths int) float64 {
	return 1 + r.RebirthBonus*float64(rebirths)
}

// XPThreshold returns the xp needed to advance past level.
func (r Rules) XPThreshold(level int) int {
	return level * r.XPThresholdCoeff
}

// Validate checks the rule invariants.
//
// Postcondition: Returns nil if all rules are usable, or an error listing every violation.
func (r Rules) Validate() error {
	var errs []string
	if r.MaxWaves < 1 {
		errs = append(errs, fmt.Sprintf("max_waves must be >= 1, got %d", r.MaxWaves))
	}
	if r.GoldenChance < 0 || r.GoldenChance > 1 {
		errs = append(errs, fmt.Sprintf("golden_chance must be in [0, 1], got %v", r.GoldenChance))
	}
	if r.GoldenHP < 1 {
		errs = append(errs, fmt.Sprintf("golden_hp must be >= 1, got %d", r.GoldenHP))
	}
	if r.GoldenMaterial == "" {
		errs = append(errs, "golden_material must not be empty")
	}
	if r.RebirthBonus < 0 {
		errs = append(errs, fmt.Sprintf("rebirth_bonus must be >= 0, got %v", r.RebirthBonus))
	}
	if r.XPThresholdCoeff < 1 {
		errs = append(errs, fmt.Sprintf("xp_threshold_coeff must be >= 1, got %d", r.XPThresholdCoeff))
	}
	if r.XPPolicy != XPReset && r.XPPolicy != XPCarry {
		errs = append(errs, fmt.Sprintf("xp_policy must be one of [reset, carry], got %q", r.XPPolicy))
	}
	if r.RebirthMinLevel < 1 {
		errs = append(errs, fmt.Sprintf("rebirth_min_level must be >= 1, got %d", r.RebirthMinLevel))
	}
	if r.SurvivalFloorHP < 1 {
		errs = append(errs, fmt.Sprintf("survival_floor_hp must be >= 1, got %d", r.SurvivalFloorHP))
	}
	if r.LogLines < 1 {
		errs = append(errs, fmt.Sprintf("log_lines must be >= 1, got %d", r.LogLines))
	}
	if r.WaveClearHealPct < 0 || r.WaveClearHealPct > 100 {
		errs = append(errs, fmt.Sprintf("wave_clear_heal_pct must be in [0, 100], got %v", r.WaveClearHealPct))
	}
	if r.MaxDodge < 0 || r.MaxDodge > 1 {
		errs = append(errs, fmt.Sprintf("max_dodge must be in [0, 1], got %v", r.MaxDodge))
	}
	if len(r.EnemyMoves) == 0 {
		errs = append(errs, "enemy_moves must not be empty")
	}
	for _, m := range r.EnemyMoves {
		if !m.Valid() {
			errs = append(errs, fmt.Sprintf("enemy_moves contains unknown move %q", m))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("rules: %s", strings.Join(errs, "; "))
	}
	return nil
}

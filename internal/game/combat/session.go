package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/dice"
	"github.com/cory-johannsen/samsara/internal/game/encounter"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
	"github.com/cory-johannsen/samsara/internal/game/progression"
	"github.com/cory-johannsen/samsara/internal/game/skill"
	"github.com/cory-johannsen/samsara/internal/game/stats"
)

const (
	basicAttackLow  = 0.9
	basicAttackHigh = 1.1
)

// Mechanics bundles the shared, read-only collaborators every session uses.
type Mechanics struct {
	Catalog     *catalog.Catalog
	Source      dice.Source
	Roller      *dice.Roller
	Generator   *encounter.Generator
	Picker      encounter.MovePicker
	Skills      *skill.Resolver
	Progression *progression.Engine
}

// NewMechanics wires the default collaborators around cat and src.
// A nil picker selects uniformly from the catalog's enemy moves.
//
// Precondition: cat, src and logger must be non-nil.
func NewMechanics(cat *catalog.Catalog, src dice.Source, picker encounter.MovePicker, logger *zap.Logger) *Mechanics {
	if picker == nil {
		picker = encounter.NewUniformPicker(cat.Rules().EnemyMoves, src)
	}
	return &Mechanics{
		Catalog:     cat,
		Source:      src,
		Roller:      dice.NewLoggedRoller(src, logger),
		Generator:   encounter.NewGenerator(cat, src),
		Picker:      picker,
		Skills:      skill.NewResolver(cat),
		Progression: progression.NewEngine(cat),
	}
}

// Outcome summarizes a finished encounter.
type Outcome struct {
	State        State
	WavesCleared int
	Gold         int
	XP           int
	Drops        []string
	LevelsGained int
	// Persisted is false when the terminal save failed and was queued for retry.
	Persisted bool
}

// Session is one player's multi-wave encounter. It is not safe for concurrent
// use; the Engine serializes access per session.
type Session struct {
	Handle   string
	PlayerID string
	Location *catalog.Location

	Turn     int
	Wave     int
	MaxWaves int

	// Player is the session's working copy of the record.
	Player *character.Character
	// Stats is the effective-stat snapshot; it is recomputed on level-up.
	Stats  stats.Effective
	Enemy  *encounter.Enemy
	Status skill.Status

	state   State
	log     *Log
	rewards []progression.Reward
	mech    *Mechanics
}

// NewSession starts an encounter for player at loc: it spawns wave 1 and
// telegraphs the enemy's first move.
//
// Precondition: player satisfies the record invariants; loc is a catalog location.
// Postcondition: The session is in StateAwaitingAction on turn 1, wave 1.
func NewSession(handle string, player *character.Character, loc *catalog.Location, mech *Mechanics) *Session {
	rules := mech.Catalog.Rules()
	s := &Session{
		Handle:   handle,
		PlayerID: player.ID,
		Location: loc,
		Turn:     1,
		Wave:     1,
		MaxWaves: rules.MaxWaves,
		Player:   player,
		Stats:    stats.Refresh(player, mech.Catalog),
		log:      NewLog(rules.LogLines),
		mech:     mech,
	}
	s.spawn()
	return s
}

// State returns the session's current state.
func (s *Session) State() State { return s.state }

// Log returns the recent combat lines, oldest first.
func (s *Session) Log() []string { return s.log.Lines() }

// Drops returns every material recorded so far, one per cleared wave.
func (s *Session) Drops() []string {
	out := make([]string, 0, len(s.rewards))
	for _, r := range s.rewards {
		out = append(out, r.Material)
	}
	return out
}

// WavesCleared returns the number of enemies defeated.
func (s *Session) WavesCleared() int { return len(s.rewards) }

func (s *Session) logf(format string, args ...any) {
	s.log.Add(fmt.Sprintf(format, args...))
}

func (s *Session) situation() encounter.Situation {
	return encounter.Situation{
		Scope:       encounter.ScriptScope(s.Location),
		Turn:        s.Turn,
		Wave:        s.Wave,
		PlayerHP:    s.Player.HP,
		PlayerMaxHP: s.Player.MaxHP,
	}
}

func (s *Session) spawn() {
	s.Enemy = s.mech.Generator.Spawn(s.Player.Level, s.Wave, s.Location)
	s.Status.EnemyStunned = false
	s.Status.EnemyGuard = false
	if s.Enemy.Golden {
		s.logf("Wave %d/%d: a %s appears, shimmering with fortune!", s.Wave, s.MaxWaves, s.Enemy.Name)
	} else {
		s.logf("Wave %d/%d: %s (Lv %d) blocks your path!", s.Wave, s.MaxWaves, s.Enemy.Name, s.Enemy.Level)
	}
	s.telegraph()
	s.state = StateAwaitingAction
}

func (s *Session) telegraph() {
	s.Enemy.Telegraph = s.mech.Picker.Pick(s.Enemy, s.situation())
	switch s.Enemy.Telegraph {
	case catalog.MoveCharge:
		s.logf("%s is gathering energy!", s.Enemy.Name)
	case catalog.MoveBlock:
		s.logf("%s raises a guard.", s.Enemy.Name)
	default:
		s.logf("%s readies an attack.", s.Enemy.Name)
	}
}

func (s *Session) battle() skill.Battle {
	return skill.Battle{
		Player: s.Player,
		Stats:  s.Stats,
		Enemy:  s.Enemy,
		Status: &s.Status,
		Log:    s.log.Add,
	}
}

// check runs every resource and reference check for a without mutating anything.
func (s *Session) check(a Action) error {
	if err := a.validate(); err != nil {
		return err
	}
	switch a.Kind {
	case ActionCast:
		_, err := s.mech.Skills.Check(s.battle(), a.Ref)
		return err
	case ActionUseItem:
		if _, ok := s.mech.Catalog.Consumable(a.Ref); !ok {
			return gameerr.Validation("unknown consumable %q", a.Ref)
		}
		if s.Player.Count(a.Ref) < 1 {
			return gameerr.Insufficient("no %s left", a.Ref)
		}
	}
	return nil
}

// Submit resolves one player action and, unless the enemy falls, the enemy's
// reply. A rejected action leaves the session untouched and consumes no turn.
//
// Postcondition: On success the session is awaiting the next action or terminal;
// 0 <= hp <= maxHp and 0 <= mp <= maxMp hold for the player.
func (s *Session) Submit(a Action) error {
	if s.state.Terminal() {
		return gameerr.State("session %s is over (%s)", s.Handle, s.state)
	}
	if err := s.check(a); err != nil {
		return err
	}

	s.state = StateResolving
	if err := s.apply(a); err != nil {
		s.state = StateAwaitingAction
		return err
	}

	if !s.Enemy.Alive() {
		s.state = StateWaveCleared
		s.clearWave()
		return nil
	}

	s.state = StateEnemyTurn
	s.enemyTurn()
	if s.Player.HP <= 0 {
		s.defeat()
		return nil
	}

	rules := s.mech.Catalog.Rules()
	s.Player.MP = min(s.Player.MaxMP, s.Player.MP+rules.MPRegen)
	s.Turn++
	s.telegraph()
	s.state = StateAwaitingAction
	return nil
}

func (s *Session) apply(a Action) error {
	switch a.Kind {
	case ActionAttack:
		s.basicAttack()
		return nil
	case ActionCast:
		return s.mech.Skills.Cast(s.battle(), a.Ref)
	case ActionDefend:
		rules := s.mech.Catalog.Rules()
		s.Status.DefendBonus = rules.DefendDefBonus
		s.Player.MP = min(s.Player.MaxMP, s.Player.MP+rules.DefendMPRestore)
		s.logf("You brace yourself (+%d DEF) and recover %d MP.", rules.DefendDefBonus, rules.DefendMPRestore)
		return nil
	case ActionUseItem:
		return s.useItem(a.Ref)
	}
	return gameerr.Validation("unknown action kind %d", int(a.Kind))
}

func (s *Session) basicAttack() {
	raw := int(stats.Floor(float64(s.Stats.Atk) * dice.Uniform(s.mech.Source, basicAttackLow, basicAttackHigh)))
	crit := dice.Chance(s.mech.Source, s.Stats.Crit)
	out := s.Status.Resolve(skill.Strike{Raw: raw, Hits: 1, Crit: crit}, s.Enemy.Def)
	s.Enemy.HP = max(0, s.Enemy.HP-out.Total)
	s.log.Add(skill.DescribeHit(out))
}

func (s *Session) useItem(id string) error {
	item, _ := s.mech.Catalog.Consumable(id)
	var hp, mp int
	if item.HP != "" {
		res, err := s.mech.Roller.RollFor(id+".hp", item.HP)
		if err != nil {
			return gameerr.Validation("consumable %q: %v", id, err)
		}
		hp = res.Total()
	}
	if item.MP != "" {
		res, err := s.mech.Roller.RollFor(id+".mp", item.MP)
		if err != nil {
			return gameerr.Validation("consumable %q: %v", id, err)
		}
		mp = res.Total()
	}
	s.Player.AddItem(id, -1)
	beforeHP, beforeMP := s.Player.HP, s.Player.MP
	s.Player.HP = max(0, min(s.Player.MaxHP, s.Player.HP+hp))
	s.Player.MP = max(0, min(s.Player.MaxMP, s.Player.MP+mp))
	s.logf("You use %s: +%d HP, +%d MP.", item.Name, s.Player.HP-beforeHP, s.Player.MP-beforeMP)
	return nil
}

func (s *Session) enemyTurn() {
	defer func() { s.Status.DefendBonus = 0 }()

	if s.Status.EnemyStunned {
		s.Status.EnemyStunned = false
		s.logf("%s is stunned and cannot move!", s.Enemy.Name)
		return
	}

	rules := s.mech.Catalog.Rules()
	def := s.Stats.Def + s.Status.DefendBonus
	var dmg int
	switch s.Enemy.Telegraph {
	case catalog.MoveBlock:
		s.Status.EnemyGuard = true
		s.logf("%s holds its guard.", s.Enemy.Name)
		return
	case catalog.MoveCharge:
		dmg = max(1, int(stats.Floor(float64(s.Enemy.Atk)*rules.ChargeMultiplier))-def)
	default:
		dmg = max(1, s.Enemy.Atk-def)
	}

	if s.Status.GuaranteedEvade {
		s.Status.GuaranteedEvade = false
		s.logf("You evade %s's attack!", s.Enemy.Name)
		return
	}
	if dice.Chance(s.mech.Source, s.Stats.Dodge) {
		s.logf("You dodge %s's attack!", s.Enemy.Name)
		return
	}
	s.Player.HP = max(0, s.Player.HP-dmg)
	if s.Enemy.Telegraph == catalog.MoveCharge {
		s.logf("%s unleashes a devastating hit for %d damage!", s.Enemy.Name, dmg)
	} else {
		s.logf("%s attacks for %d damage.", s.Enemy.Name, dmg)
	}
}

func (s *Session) clearWave() {
	reward := s.mech.Progression.ApplyWave(s.Player, s.Enemy)
	s.rewards = append(s.rewards, reward)
	s.logf("%s defeated! +%d gold, +%d XP, found %s.", s.Enemy.Name, reward.Gold, reward.XP, reward.Material)
	if reward.LevelsGained > 0 {
		s.Stats = stats.Resolve(s.Player, s.mech.Catalog)
		s.logf("LEVEL UP! You are now level %d.", s.Player.Level)
	}

	if s.Wave >= s.MaxWaves {
		s.state = StateVictory
		s.logf("Victory! All %d waves cleared.", s.MaxWaves)
		return
	}

	rules := s.mech.Catalog.Rules()
	heal := int(stats.Floor(float64(s.Player.MaxHP) * rules.WaveClearHealPct / 100))
	before := s.Player.HP
	s.Player.HP = min(s.Player.MaxHP, s.Player.HP+heal)
	s.logf("You catch your breath (+%d HP).", s.Player.HP-before)

	s.Wave++
	s.Turn++
	s.spawn()
}

func (s *Session) defeat() {
	s.mech.Progression.Defeat(s.Player)
	s.state = StateDefeat
	s.logf("You have been defeated by %s.", s.Enemy.Name)
}

// Outcome returns the encounter summary. It is only meaningful once the session is terminal.
func (s *Session) Outcome() Outcome {
	o := Outcome{State: s.state, WavesCleared: len(s.rewards), Drops: s.Drops()}
	for _, r := range s.rewards {
		o.Gold += r.Gold
		o.XP += r.XP
		o.LevelsGained += r.LevelsGained
	}
	return o
}

// abandon marks the session discarded by the idle timeout.
func (s *Session) abandon() {
	s.state = StateAbandoned
}

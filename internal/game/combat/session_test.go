package combat_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/combat"
	"github.com/cory-johannsen/samsara/internal/game/dice"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

func TestNewSession_OpensWaveOne(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 1)
	assert.Equal(t, combat.StateAwaitingAction, s.State())
	assert.Equal(t, 1, s.Turn)
	assert.Equal(t, 1, s.Wave)
	assert.Equal(t, 3, s.MaxWaves)
	require.NotNil(t, s.Enemy)
	assert.Equal(t, "Thug", s.Enemy.Name)
	assert.Equal(t, 50, s.Enemy.HP)
	assert.Equal(t, catalog.MoveAttack, s.Enemy.Telegraph)
	assert.Equal(t, 10, s.Stats.Atk)
	assert.NotEmpty(t, s.Log())
}

// TestSubmit_BasicAttackVarianceBand: atk 10 against a 50 hp, 0 def enemy
// always leaves it in [39, 41] when the hit does not crit.
func TestSubmit_BasicAttackVarianceBand(t *testing.T) {
	cat := arenaCatalog(t)
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		s := newSession(t, cat, catalog.MoveBlock, seed)
		if err := s.Submit(combat.Attack()); err != nil {
			rt.Fatal(err)
		}
		if s.Enemy.HP < 39 || s.Enemy.HP > 41 {
			rt.Fatalf("enemy hp %d outside [39, 41]", s.Enemy.HP)
		}
	})
}

func TestSubmit_EnemyAttackSubtractsDefense(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 7)
	s.Enemy.HP = 1000
	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 200-(8-2), s.Player.HP)
	assert.Equal(t, 2, s.Turn)
	assert.Equal(t, combat.StateAwaitingAction, s.State())
}

func TestSubmit_ChargeHitsHarder(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveCharge, 7)
	s.Enemy.HP = 1000
	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 200-(20-2), s.Player.HP)
}

func TestSubmit_ChargeMinimumOne(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveCharge, 7)
	s.Enemy.HP = 1000
	s.Enemy.Atk = 0
	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 199, s.Player.HP)
}

func TestSubmit_BlockHalvesNextHit(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveBlock, 3)
	require.NoError(t, s.Submit(combat.Defend()))
	assert.True(t, s.Status.EnemyGuard)
	assert.Equal(t, 200, s.Player.HP)

	require.NoError(t, s.Submit(combat.Attack()))
	dealt := 50 - s.Enemy.HP
	assert.GreaterOrEqual(t, dealt, 4)
	assert.LessOrEqual(t, dealt, 5)
}

func TestSubmit_DefendAppliesToNextHitOnly(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 3)
	s.Enemy.HP = 1000
	s.Enemy.Atk = 20
	s.Player.MP = 10

	require.NoError(t, s.Submit(combat.Defend()))
	assert.Equal(t, 200-(20-12), s.Player.HP)
	// +10 from defending, +5 regeneration.
	assert.Equal(t, 25, s.Player.MP)
	assert.Zero(t, s.Status.DefendBonus)

	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 200-8-18, s.Player.HP)
}

func TestSubmit_StunSkipsExactlyOneEnemyTurn(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 9)
	s.Enemy.HP = 1000

	require.NoError(t, s.Submit(combat.Cast("bash")))
	assert.Equal(t, 1000-5, s.Enemy.HP)
	assert.Equal(t, 200, s.Player.HP)
	assert.False(t, s.Status.EnemyStunned)
	assert.Equal(t, 40-15+5, s.Player.MP)

	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 200-6, s.Player.HP)
}

func TestSubmit_UnaffordableCastLeavesStateUnchanged(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 11)
	s.Player.MP = 10
	before := s.Describe()

	err := s.Submit(combat.Cast("smash"))
	assert.True(t, errors.Is(err, gameerr.ErrInsufficientResource))
	assert.Equal(t, before, s.Describe())
}

func TestSubmit_RejectsBadActions(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 11)
	before := s.Describe()

	cases := map[string]struct {
		action combat.Action
		want   error
	}{
		"unknown kind":     {combat.Action{}, gameerr.ErrValidation},
		"cast without id":  {combat.Action{Kind: combat.ActionCast}, gameerr.ErrValidation},
		"unknown skill":    {combat.Cast("agni_blast"), gameerr.ErrValidation},
		"unknown item":     {combat.UseItem("elixir"), gameerr.ErrValidation},
		"item not carried": {combat.UseItem("potion"), gameerr.ErrInsufficientResource},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := s.Submit(tc.action)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Equal(t, before, s.Describe())
		})
	}
}

func TestSubmit_UseItem(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveBlock, 5)
	s.Player.HP = 100
	s.Player.AddItem("potion", 1)

	require.NoError(t, s.Submit(combat.UseItem("potion")))
	assert.Equal(t, 125, s.Player.HP)
	assert.Zero(t, s.Player.Count("potion"))

	err := s.Submit(combat.UseItem("potion"))
	assert.True(t, errors.Is(err, gameerr.ErrInsufficientResource))
}

func TestSubmit_UseItemCapsAtMax(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveBlock, 5)
	s.Player.HP = 190
	s.Player.AddItem("potion", 2)
	require.NoError(t, s.Submit(combat.UseItem("potion")))
	assert.Equal(t, 200, s.Player.HP)
	assert.Equal(t, 1, s.Player.Count("potion"))
}

func TestSubmit_WaveClearHealsThirtyPercent(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 13)
	s.Player.HP = 100
	s.Enemy.HP = 1

	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 160, s.Player.HP)
	assert.Equal(t, 2, s.Wave)
	assert.Equal(t, 2, s.Enemy.Level)
	assert.Equal(t, combat.StateAwaitingAction, s.State())
	assert.Equal(t, []string{"iron_scrap"}, s.Drops())
	assert.Equal(t, 1, s.Player.Count("iron_scrap"))
	assert.Equal(t, 10, s.Player.Gold-100)
}

func TestSubmit_WaveClearHealCapped(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 13)
	s.Player.HP = 190
	s.Enemy.HP = 1
	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 200, s.Player.HP)
}

func TestSubmit_ClearingEveryWaveIsVictory(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 17)
	for wave := 1; wave <= 3; wave++ {
		require.Equal(t, wave, s.Wave)
		s.Enemy.HP = 1
		require.NoError(t, s.Submit(combat.Attack()))
	}
	assert.Equal(t, combat.StateVictory, s.State())

	out := s.Outcome()
	assert.Equal(t, combat.StateVictory, out.State)
	assert.Equal(t, 3, out.WavesCleared)
	assert.Len(t, out.Drops, 3)
	assert.Equal(t, 10+20+30, out.Gold)
	assert.Equal(t, 15+30+45, out.XP)
	assert.Zero(t, out.LevelsGained)

	err := s.Submit(combat.Attack())
	assert.True(t, errors.Is(err, gameerr.ErrState))
	assert.Empty(t, s.Describe().Available)
}

func TestSubmit_LevelUpRefreshesStats(t *testing.T) {
	cat := arenaCatalog(t, "rules:\n  level_atk_coeff: 2\n")
	s := newSession(t, cat, catalog.MoveAttack, 19)
	atk := s.Stats.Atk
	s.Player.XP = 95
	s.Player.HP = 50
	s.Enemy.HP = 1

	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 2, s.Player.Level)
	assert.Equal(t, atk+2, s.Stats.Atk)
	assert.Equal(t, s.Player.MaxHP, s.Player.HP)
	assert.Equal(t, 1, s.Outcome().LevelsGained)
}

func TestSubmit_DefeatAppliesSurvivalFloor(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 23)
	s.Enemy.HP = 1000
	s.Enemy.Atk = 500

	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, combat.StateDefeat, s.State())
	assert.Equal(t, 10, s.Player.HP)
	assert.True(t, s.State().Terminal())

	err := s.Submit(combat.Defend())
	assert.True(t, errors.Is(err, gameerr.ErrState))
}

func TestSubmit_GuaranteedEvadeNegatesHit(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveCharge, 29)
	s.Enemy.HP = 1000
	s.Status.GuaranteedEvade = true
	require.NoError(t, s.Submit(combat.Attack()))
	assert.Equal(t, 200, s.Player.HP)
	assert.False(t, s.Status.GuaranteedEvade)
}

func TestSubmit_EvadeNotSpentOnBlock(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveBlock, 29)
	s.Status.GuaranteedEvade = true
	require.NoError(t, s.Submit(combat.Defend()))
	assert.True(t, s.Status.GuaranteedEvade)
}

func TestDescribe_Options(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 31)
	s.Player.MP = 20
	s.Player.AddItem("potion", 2)

	v := s.Describe()
	require.Len(t, v.Available, 5)
	assert.Equal(t, combat.ActionAttack, v.Available[0].Kind)
	assert.Equal(t, "bash", v.Available[1].Ref)
	assert.True(t, v.Available[1].Enabled)
	assert.Equal(t, "smash", v.Available[2].Ref)
	assert.False(t, v.Available[2].Enabled)
	assert.Equal(t, combat.ActionDefend, v.Available[3].Kind)
	assert.Equal(t, combat.ActionUseItem, v.Available[4].Kind)
	assert.Equal(t, 2, v.Available[4].Cost)

	assert.Equal(t, "Varanasi", v.Location)
	assert.InDelta(t, 1.0, v.Player.HPFrac, 1e-9)
	assert.InDelta(t, 0.5, v.Player.MPFrac, 1e-9)
	assert.Equal(t, "Attack", v.Enemy.Telegraph)
}

func TestLog_IsBounded(t *testing.T) {
	s := newSession(t, arenaCatalog(t), catalog.MoveAttack, 37)
	s.Enemy.HP = 10000
	for range 10 {
		require.NoError(t, s.Submit(combat.Defend()))
	}
	assert.Len(t, s.Log(), 6)
}

// materialCount sums the inventory entries that are not consumables.
func materialCount(cat *catalog.Catalog, c *character.Character) int {
	n := 0
	for id, count := range c.Inventory {
		if _, ok := cat.Consumable(id); !ok {
			n += count
		}
	}
	return n
}

// TestSession_Invariants drives random action sequences through the stock
// catalog and checks the resource bounds and the one-drop-per-wave rule after
// every turn. The player starts with consumables only, so every material in
// the inventory came from a cleared wave.
func TestSession_Invariants(t *testing.T) {
	cat := catalog.Default()
	rapid.Check(t, func(rt *rapid.T) {
		mech := combat.NewMechanics(cat, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), nil, zaptest.NewLogger(t))
		classID := rapid.SampledFrom(cat.ClassIDs()).Draw(rt, "class")
		c, err := mech.Progression.NewCharacter("p1", classID)
		if err != nil {
			rt.Fatal(err)
		}
		c.Level = rapid.IntRange(1, 30).Draw(rt, "level")
		c.Inventory = map[string]int{"healing_potion": 2, "mana_tonic": 1}
		locID := rapid.SampledFrom(cat.LocationIDs()).Draw(rt, "location")
		loc, _ := cat.Location(locID)
		s := combat.NewSession("h", c, loc, mech)

		cls, _ := cat.Class(classID)
		actions := []combat.Action{combat.Attack(), combat.Defend(), combat.UseItem("healing_potion"), combat.UseItem("mana_tonic")}
		for _, id := range cls.Skills {
			actions = append(actions, combat.Cast(id))
		}

		for turn := 0; turn < 60 && !s.State().Terminal(); turn++ {
			a := rapid.SampledFrom(actions).Draw(rt, "action")
			if err := s.Submit(a); err != nil && !errors.Is(err, gameerr.ErrInsufficientResource) {
				rt.Fatalf("unexpected error for %v: %v", a, err)
			}
			p := s.Player
			if p.HP < 0 || p.HP > p.MaxHP || p.MP < 0 || p.MP > p.MaxMP {
				rt.Fatalf("resource bounds broken: hp %d/%d mp %d/%d", p.HP, p.MaxHP, p.MP, p.MaxMP)
			}
			if got := materialCount(cat, p); got != s.WavesCleared() {
				rt.Fatalf("inventory holds %d materials after %d cleared waves", got, s.WavesCleared())
			}
			if len(s.Log()) > cat.Rules().LogLines {
				rt.Fatalf("log has %d lines", len(s.Log()))
			}
		}
		if s.State() == combat.StateVictory && s.WavesCleared() != s.MaxWaves {
			rt.Fatalf("victory after %d waves", s.WavesCleared())
		}
		if s.State() == combat.StateDefeat && s.Player.HP != min(cat.Rules().SurvivalFloorHP, s.Player.MaxHP) {
			rt.Fatalf("defeat left hp %d", s.Player.HP)
		}
	})
}

package encounter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/dice"
	"github.com/cory-johannsen/samsara/internal/game/encounter"
	"github.com/cory-johannsen/samsara/internal/scripting"
)

// scriptedSource replays fixed values; it panics when exhausted.
type scriptedSource struct {
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedSource) Intn(n int) int {
	v := s.ints[0] % n
	s.ints = s.ints[1:]
	return v
}

func varanasi(t *testing.T) *catalog.Location {
	t.Helper()
	loc, ok := catalog.Default().Location("varanasi")
	require.True(t, ok)
	return loc
}

func TestSpawn_Standard(t *testing.T) {
	cat := catalog.Default()
	src := &scriptedSource{floats: []float64{0.5}, ints: []int{0, 1}}
	e := encounter.NewGenerator(cat, src).Spawn(3, 2, varanasi(t))

	assert.False(t, e.Golden)
	assert.Equal(t, "Street Thug", e.Name)
	assert.Equal(t, 4, e.Level)
	assert.Equal(t, 50+10*3, e.HP)
	assert.Equal(t, e.HP, e.MaxHP)
	assert.Equal(t, 8+2*3, e.Atk)
	assert.Equal(t, "dog_fang", e.Reward.Material)
	assert.InDelta(t, 40.0, e.Reward.BaseGold, 1e-9)
	assert.InDelta(t, 60.0, e.Reward.BaseXP, 1e-9)
	assert.True(t, e.Alive())
}

func TestSpawn_Golden(t *testing.T) {
	cat := catalog.Default()
	src := &scriptedSource{floats: []float64{0.01}}
	e := encounter.NewGenerator(cat, src).Spawn(10, 1, varanasi(t))

	assert.True(t, e.Golden)
	assert.Equal(t, 30, e.HP)
	assert.Equal(t, 5, e.Atk)
	assert.Equal(t, 0, e.Def)
	assert.Equal(t, "golden_hide", e.Reward.Material)
	assert.Equal(t, cat.Rules().GoldenName, e.Name)
}

func TestSpawn_GoldenFallsBackToRulesMaterial(t *testing.T) {
	cat := catalog.Default()
	loc := *varanasi(t)
	loc.RareMaterial = ""
	e := encounter.NewGenerator(cat, &scriptedSource{floats: []float64{0}}).Spawn(1, 1, &loc)
	assert.Equal(t, cat.Rules().GoldenMaterial, e.Reward.Material)
}

func TestSpawn_GoldenFrequency(t *testing.T) {
	cat := catalog.Default()
	gen := encounter.NewGenerator(cat, dice.NewSeededSource(20240601))
	loc := varanasi(t)
	const trials = 100_000
	golden := 0
	for i := 0; i < trials; i++ {
		if gen.Spawn(1, 1, loc).Golden {
			golden++
		}
	}
	assert.InDelta(t, 0.05, float64(golden)/trials, 0.005)
}

func TestEnemyLevel(t *testing.T) {
	r := catalog.DefaultRules()
	assert.Equal(t, 7, encounter.EnemyLevel(r, 7, 1))
	assert.Equal(t, 9, encounter.EnemyLevel(r, 7, 3))
}

// TestSpawn_Property checks every spawned enemy is alive, full, and drops a
// material from its location's table or the rare material.
func TestSpawn_Property(t *testing.T) {
	cat := catalog.Default()
	rapid.Check(t, func(rt *rapid.T) {
		locID := rapid.SampledFrom(cat.LocationIDs()).Draw(rt, "loc")
		loc, _ := cat.Location(locID)
		seed := rapid.Uint64().Draw(rt, "seed")
		lvl := rapid.IntRange(1, 60).Draw(rt, "level")
		wave := rapid.IntRange(1, 3).Draw(rt, "wave")

		e := encounter.NewGenerator(cat, dice.NewSeededSource(seed)).Spawn(lvl, wave, loc)
		assert.GreaterOrEqual(rt, e.HP, 1)
		assert.Equal(rt, e.HP, e.MaxHP)
		if e.Golden {
			assert.Equal(rt, loc.RareMaterial, e.Reward.Material)
		} else {
			assert.Contains(rt, loc.Materials, e.Reward.Material)
			assert.Equal(rt, lvl+wave-1, e.Level)
		}
	})
}

func TestUniformPicker_CoversAllMoves(t *testing.T) {
	moves := catalog.DefaultRules().EnemyMoves
	p := encounter.NewUniformPicker(moves, dice.NewSeededSource(1))
	seen := map[catalog.Move]int{}
	for i := 0; i < 3000; i++ {
		seen[p.Pick(&encounter.Enemy{}, encounter.Situation{})]++
	}
	for _, m := range moves {
		assert.Greater(t, seen[m], 800, "move %s", m)
	}
}

type fixedPicker catalog.Move

func (f fixedPicker) Pick(*encounter.Enemy, encounter.Situation) catalog.Move { return catalog.Move(f) }

func newScripts(t *testing.T, files map[string]string) *scripting.Manager {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewSeededSource(3), logger), logger)
	t.Cleanup(mgr.Close)
	for scope, src := range files {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "telegraph.lua"), []byte(src), 0o644))
		require.NoError(t, mgr.LoadScope(scope, dir, 0))
	}
	return mgr
}

func TestScriptedPicker(t *testing.T) {
	mgr := newScripts(t, map[string]string{
		"ok":      `function telegraph(e) if e.last_move == "Block" then return "Charge" end return "Block" end`,
		"bogus":   `function telegraph(e) return "Flee" end`,
		"broken":  `function telegraph(e) error("nope") end`,
		"nothing": `-- no hook`,
	})
	p := encounter.NewScriptedPicker(mgr, fixedPicker(catalog.MoveAttack), zap.NewNop())

	e := &encounter.Enemy{Name: "Thug", HP: 10, MaxHP: 10}
	assert.Equal(t, catalog.MoveBlock, p.Pick(e, encounter.Situation{Scope: "ok"}))
	e.Telegraph = catalog.MoveBlock
	assert.Equal(t, catalog.MoveCharge, p.Pick(e, encounter.Situation{Scope: "ok"}))

	for _, scope := range []string{"bogus", "broken", "nothing", "unloaded"} {
		assert.Equal(t, catalog.MoveAttack, p.Pick(e, encounter.Situation{Scope: scope}), scope)
	}
}

func TestScriptScope(t *testing.T) {
	assert.Equal(t, "forest", encounter.ScriptScope(&catalog.Location{ID: "dandaka", Script: "forest"}))
	assert.Equal(t, "dandaka", encounter.ScriptScope(&catalog.Location{ID: "dandaka"}))
}

package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
)

const minimalContent = `
classes:
  - id: fighter
    name: Fighter
    base: {hp: 100, mp: 20, atk: 10, def: 2, spd: 3, crit: 0.1}
    skills: [smash]
skills:
  - {id: smash, name: Smash, cost: 5, kind: damage, value: 1.5}
locations:
  - id: varanasi
    name: Varanasi
    materials: [iron_scrap]
    enemies:
      - {id: thug, name: Thug, hp: 50, atk: 8}
`

func TestDefault_Loads(t *testing.T) {
	c := catalog.Default()
	require.NotNil(t, c)
	assert.Equal(t, []string{"kshatriya", "brahmin", "vanara"}, c.ClassIDs())
	assert.Equal(t, []string{"varanasi", "dandaka_forest", "lanka"}, c.LocationIDs())
	assert.Same(t, c, catalog.Default())

	size := c.Size()
	assert.Equal(t, 9, size["skills"])
	assert.Equal(t, 3, size["consumables"])
}

func TestDefault_ClassesReferenceTypedEffects(t *testing.T) {
	c := catalog.Default()
	cls, ok := c.Class("vanara")
	require.True(t, ok)
	assert.True(t, cls.HasSkill("twin_strike"))
	assert.False(t, cls.HasSkill("agni_blast"))

	sk, ok := c.Skill("twin_strike")
	require.True(t, ok)
	assert.Equal(t, catalog.MultiHit{Hits: 2}, sk.Effect)

	heal, ok := c.Skill("soma_heal")
	require.True(t, ok)
	assert.Equal(t, catalog.Heal{Percent: 50}, heal.Effect)

	rage, ok := c.Skill("rage")
	require.True(t, ok)
	assert.Equal(t, catalog.KindBuffAttack, rage.Effect.Kind())
}

func TestDefault_Rules(t *testing.T) {
	r := catalog.Default().Rules()
	assert.Equal(t, catalog.DefaultRules().GoldenChance, r.GoldenChance)
	assert.Equal(t, 3, r.MaxWaves)
	assert.Equal(t, catalog.XPReset, r.XPPolicy)
	assert.Equal(t, map[string]int{"healing_potion": 3, "mana_tonic": 1}, r.StarterInventory)
}

func TestLookup_Unknown(t *testing.T) {
	c := catalog.Default()
	_, ok := c.Weapon("excalibur")
	assert.False(t, ok)
	_, ok = c.Mount("")
	assert.False(t, ok)
	_, ok = c.Location("atlantis")
	assert.False(t, ok)
}

func TestRebirthMultiplier(t *testing.T) {
	r := catalog.DefaultRules()
	assert.InDelta(t, 1.0, r.RebirthMultiplier(0), 1e-9)
	assert.InDelta(t, 1.40, r.RebirthMultiplier(2), 1e-9)
}

func TestRebirthMultiplier_Property(t *testing.T) {
	r := catalog.DefaultRules()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 1000).Draw(rt, "rebirths")
		assert.InDelta(rt, 1+0.20*float64(n), r.RebirthMultiplier(n), 1e-9)
	})
}

func TestXPThreshold(t *testing.T) {
	r := catalog.DefaultRules()
	assert.Equal(t, 100, r.XPThreshold(1))
	assert.Equal(t, 4200, r.XPThreshold(42))
}

func TestLoadBytes_Minimal(t *testing.T) {
	c, err := catalog.LoadBytes([]byte(minimalContent))
	require.NoError(t, err)
	cls, ok := c.Class("fighter")
	require.True(t, ok)
	assert.Equal(t, 10, cls.Base.Atk)
}

func TestLoadBytes_RulesOverlay(t *testing.T) {
	c, err := catalog.LoadBytes([]byte(minimalContent), []byte("rules:\n  max_waves: 5\n  xp_policy: carry\n"))
	require.NoError(t, err)
	r := c.Rules()
	assert.Equal(t, 5, r.MaxWaves)
	assert.Equal(t, catalog.XPCarry, r.XPPolicy)
	assert.Equal(t, 0.05, r.GoldenChance)
}

func TestLoadBytes_RulesOverlaysInOrder(t *testing.T) {
	c, err := catalog.LoadBytes(
		[]byte(minimalContent),
		[]byte("rules:\n  max_waves: 5\n  starting_gold: 40\n"),
		[]byte("rules:\n  max_waves: 2\n"),
	)
	require.NoError(t, err)
	r := c.Rules()
	assert.Equal(t, 2, r.MaxWaves)
	assert.Equal(t, 40, r.StartingGold)
	assert.Equal(t, catalog.DefaultRules().MPRegen, r.MPRegen)
}

func TestLoadBytes_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown effect kind": `
skills:
  - {id: zap, name: Zap, cost: 1, kind: lightning, value: 2}
`,
		"missing skill ref": `
classes:
  - id: mage
    name: Mage
    base: {hp: 50}
    skills: [fireball]
`,
		"empty materials": `
locations:
  - id: varanasi
    name: Varanasi
    enemies:
      - {id: thug, name: Thug, hp: 50, atk: 8}
`,
		"bad rules":           minimalContent + "rules:\n  max_waves: 0\n",
		"unknown field":       minimalContent + "mystery: true\n",
		"unknown rules field": minimalContent + "rules:\n  max_wave: 4\n",
		"bad consumable dice": minimalContent + `
consumables:
  - {id: potion, name: Potion, hp: 2dx}
`,
		"unknown default location": minimalContent + "rules:\n  default_location: lanka\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.LoadBytes([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadBytes_DuplicateAcrossDocuments(t *testing.T) {
	_, err := catalog.LoadBytes([]byte(minimalContent), []byte(minimalContent))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(minimalContent), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("rules:\n  log_lines: 3\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))

	c, err := catalog.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Rules().LogLines)
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := catalog.LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestMove_Valid(t *testing.T) {
	assert.True(t, catalog.MoveCharge.Valid())
	assert.False(t, catalog.Move("Flee").Valid())
}

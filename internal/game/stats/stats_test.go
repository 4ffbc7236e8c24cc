package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/stats"
)

// testCatalog has a class whose level-1 atk component is exactly 20 (2*1 + 18).
const testContent = `
classes:
  - id: warrior
    name: Warrior
    base: {hp: 100, mp: 20, atk: 18, def: 3, spd: 5, crit: 0.1}
weapons:
  - {id: blade, name: Blade, atk: 6}
armor:
  - {id: mail, name: Mail, hp: 50, def: 4}
mounts:
  - {id: horse, name: Horse, hp: 10, speed: 5, crit: 0.05, dodge: 0.05, gold_bonus: 0.25}
  - {id: phoenix, name: Phoenix, speed: 100, dodge: 0.9}
locations:
  - id: varanasi
    name: Varanasi
    materials: [scrap]
    enemies:
      - {id: thug, name: Thug, hp: 50, atk: 8}
`

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.LoadBytes([]byte(testContent))
	require.NoError(t, err)
	return c
}

func TestResolve_Baseline(t *testing.T) {
	cat := testCatalog(t)
	e := stats.Resolve(&character.Character{ClassID: "warrior", Level: 1}, cat)
	assert.Equal(t, 20, e.Atk)
	assert.Equal(t, 120, e.MaxHP)
	assert.Equal(t, 25, e.MaxMP)
	assert.Equal(t, 3, e.Def)
	assert.Equal(t, 5, e.Speed)
	assert.InDelta(t, 0.1, e.Crit, 1e-9)
	assert.InDelta(t, 0.1, e.Dodge, 1e-9)
	assert.InDelta(t, 1.0, e.Multiplier, 1e-9)
}

func TestResolve_TwoRebirths(t *testing.T) {
	cat := testCatalog(t)
	e := stats.Resolve(&character.Character{ClassID: "warrior", Level: 1, Rebirths: 2}, cat)
	assert.InDelta(t, 1.40, e.Multiplier, 1e-9)
	assert.Equal(t, 28, e.Atk)
	assert.Equal(t, 168, e.MaxHP)
}

func TestResolve_Gear(t *testing.T) {
	cat := testCatalog(t)
	c := &character.Character{ClassID: "warrior", Level: 1, WeaponID: "blade", ArmorID: "mail", MountID: "horse"}
	e := stats.Resolve(c, cat)
	assert.Equal(t, 26, e.Atk)
	assert.Equal(t, 180, e.MaxHP)
	assert.Equal(t, 7, e.Def)
	assert.Equal(t, 10, e.Speed)
	assert.InDelta(t, 0.15, e.Crit, 1e-9)
	assert.InDelta(t, 0.25, e.Dodge, 1e-9)
	assert.InDelta(t, 0.25, e.GoldBonus, 1e-9)
}

func TestResolve_DodgeCapped(t *testing.T) {
	cat := testCatalog(t)
	e := stats.Resolve(&character.Character{ClassID: "warrior", Level: 1, MountID: "phoenix"}, cat)
	assert.InDelta(t, cat.Rules().MaxDodge, e.Dodge, 1e-9)
}

func TestResolve_UnknownRefsDegrade(t *testing.T) {
	cat := testCatalog(t)
	plain := stats.Resolve(&character.Character{ClassID: "warrior", Level: 1}, cat)
	odd := stats.Resolve(&character.Character{ClassID: "warrior", Level: 1, WeaponID: "nope", ArmorID: "nope", MountID: "nope"}, cat)
	assert.Equal(t, plain, odd)

	none := stats.Resolve(&character.Character{ClassID: "ghost", Level: 1}, cat)
	assert.Equal(t, 2, none.Atk)
	assert.Equal(t, 20, none.MaxHP)
}

func TestClamp_LowersHPAfterMaxDrops(t *testing.T) {
	cat := testCatalog(t)
	c := &character.Character{ClassID: "warrior", Level: 1, ArmorID: "mail"}
	stats.Refresh(c, cat)
	c.HP, c.MP = c.MaxHP, c.MaxMP
	require.Equal(t, 170, c.HP)

	c.ArmorID = ""
	stats.Refresh(c, cat)
	assert.Equal(t, 120, c.MaxHP)
	assert.Equal(t, 120, c.HP)
}

// TestResolve_MultiplierProperty verifies the rebirth multiplier and hp/mp bounds after Refresh.
func TestResolve_MultiplierProperty(t *testing.T) {
	cat := testCatalog(t)
	rapid.Check(t, func(rt *rapid.T) {
		c := &character.Character{
			ClassID:  "warrior",
			Level:    rapid.IntRange(1, 100).Draw(rt, "level"),
			Rebirths: rapid.IntRange(0, 20).Draw(rt, "rebirths"),
			HP:       rapid.IntRange(-50, 5000).Draw(rt, "hp"),
			MP:       rapid.IntRange(-50, 5000).Draw(rt, "mp"),
			MountID:  rapid.SampledFrom([]string{"", "horse", "phoenix", "unknown"}).Draw(rt, "mount"),
		}
		e := stats.Refresh(c, cat)
		assert.InDelta(rt, 1+0.20*float64(c.Rebirths), e.Multiplier, 1e-9)
		assert.GreaterOrEqual(rt, c.HP, 0)
		assert.LessOrEqual(rt, c.HP, c.MaxHP)
		assert.GreaterOrEqual(rt, c.MP, 0)
		assert.LessOrEqual(rt, c.MP, c.MaxMP)
	})
}

func TestFloor_AbsorbsRepresentationError(t *testing.T) {
	assert.Equal(t, 63.0, stats.Floor(45*(1+0.2*2)))
	assert.Equal(t, 39.0, stats.Floor(39.99))
}

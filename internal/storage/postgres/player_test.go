package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
	"github.com/cory-johannsen/samsara/internal/testutil"
)

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func makePlayer(id string) *character.Character {
	return &character.Character{
		ID:        id,
		ClassID:   "monk",
		Level:     1,
		HP:        200,
		MaxHP:     200,
		MP:        40,
		MaxMP:     40,
		Gold:      100,
		Location:  "varanasi",
		Inventory: map[string]int{"healing_herb": 2},
	}
}

func TestPlayerRepository(t *testing.T) {
	repo := testutil.NewPlayerStore(t)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		id := uniqueID("create")
		created, err := repo.Create(ctx, makePlayer(id))
		require.NoError(t, err)
		assert.Equal(t, id, created.ID)
		assert.Equal(t, "monk", created.ClassID)
		assert.Equal(t, map[string]int{"healing_herb": 2}, created.Inventory)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, created.HP, got.HP)
		assert.Equal(t, created.Inventory, got.Inventory)
		assert.Equal(t, "", got.MountID)
	})

	t.Run("duplicate id", func(t *testing.T) {
		id := uniqueID("dup")
		_, err := repo.Create(ctx, makePlayer(id))
		require.NoError(t, err)
		_, err = repo.Create(ctx, makePlayer(id))
		assert.ErrorIs(t, err, gameerr.ErrState)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.Get(ctx, uniqueID("ghost"))
		assert.ErrorIs(t, err, gameerr.ErrNotFound)
	})

	t.Run("update missing", func(t *testing.T) {
		hp := 1
		err := repo.Update(ctx, uniqueID("ghost"), character.Patch{HP: &hp})
		assert.ErrorIs(t, err, gameerr.ErrNotFound)
	})

	t.Run("partial update", func(t *testing.T) {
		id := uniqueID("patch")
		created, err := repo.Create(ctx, makePlayer(id))
		require.NoError(t, err)

		hp, gold, loc := 10, 160, "lanka"
		require.NoError(t, repo.Update(ctx, id, character.Patch{
			HP: &hp, Gold: &gold, Location: &loc,
			Inventory: map[string]int{"iron_scrap": 3},
		}))

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 10, got.HP)
		assert.Equal(t, 160, got.Gold)
		assert.Equal(t, "lanka", got.Location)
		assert.Equal(t, 40, got.MP)
		assert.Equal(t, map[string]int{"iron_scrap": 3}, got.Inventory)
		assert.False(t, got.UpdatedAt.Before(created.UpdatedAt))
	})

	t.Run("constraint violation is a persistence error", func(t *testing.T) {
		id := uniqueID("neg")
		_, err := repo.Create(ctx, makePlayer(id))
		require.NoError(t, err)
		gold := -1
		err = repo.Update(ctx, id, character.Patch{Gold: &gold})
		assert.ErrorIs(t, err, gameerr.ErrPersistence)
	})
}

func TestPlayerRepository_PatchProperty(t *testing.T) {
	repo := testutil.NewPlayerStore(t)
	ctx := context.Background()
	id := uniqueID("prop")
	_, err := repo.Create(ctx, makePlayer(id))
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		before, err := repo.Get(ctx, id)
		if err != nil {
			rt.Fatal(err)
		}
		after := before.Clone()
		after.XP = rapid.IntRange(0, 10_000).Draw(rt, "xp")
		after.Gold = rapid.IntRange(0, 10_000).Draw(rt, "gold")
		after.HP = rapid.IntRange(0, after.MaxHP).Draw(rt, "hp")

		if err := repo.Update(ctx, id, character.Diff(before, after)); err != nil {
			rt.Fatal(err)
		}
		got, err := repo.Get(ctx, id)
		if err != nil {
			rt.Fatal(err)
		}
		if got.XP != after.XP || got.Gold != after.Gold || got.HP != after.HP {
			rt.Fatalf("got xp=%d gold=%d hp=%d, want %d %d %d",
				got.XP, got.Gold, got.HP, after.XP, after.Gold, after.HP)
		}
	})
}

package combat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/combat"
	"github.com/cory-johannsen/samsara/internal/game/dice"
	"github.com/cory-johannsen/samsara/internal/game/encounter"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

// arenaContent is a flat-curve catalog: no level scaling, no crits, no dodge,
// no golden spawns, so every number in a test is exact.
const arenaContent = `
rules:
  level_atk_coeff: 0
  hp_per_level: 0
  mp_per_level: 0
  speed_dodge_coeff: 0
  golden_chance: 0
classes:
  - id: monk
    name: Monk
    base: {hp: 200, mp: 40, atk: 10, def: 2, spd: 0, crit: 0}
    skills: [bash, smash]
skills:
  - {id: bash, name: Bash, cost: 15, kind: stun}
  - {id: smash, name: Smash, cost: 30, kind: damage, value: 1.5}
consumables:
  - {id: potion, name: Potion, hp: "25"}
locations:
  - id: varanasi
    name: Varanasi
    materials: [iron_scrap]
    enemies:
      - {id: thug, name: Thug, hp: 50, atk: 8}
`

func arenaCatalog(t *testing.T, overlay ...string) *catalog.Catalog {
	t.Helper()
	docs := [][]byte{[]byte(arenaContent)}
	for _, o := range overlay {
		docs = append(docs, []byte(o))
	}
	cat, err := catalog.LoadBytes(docs...)
	require.NoError(t, err)
	return cat
}

// fixedPicker always telegraphs the same move.
type fixedPicker struct{ move catalog.Move }

func (p fixedPicker) Pick(*encounter.Enemy, encounter.Situation) catalog.Move { return p.move }

func newSession(t *testing.T, cat *catalog.Catalog, move catalog.Move, seed uint64) *combat.Session {
	t.Helper()
	mech := combat.NewMechanics(cat, dice.NewSeededSource(seed), fixedPicker{move}, zaptest.NewLogger(t))
	c, err := mech.Progression.NewCharacter("p1", cat.ClassIDs()[0])
	require.NoError(t, err)
	loc, ok := cat.Location(cat.LocationIDs()[0])
	require.True(t, ok)
	return combat.NewSession("h1", c, loc, mech)
}

// memStore is a map-backed character.Store.
type memStore struct {
	mu        sync.Mutex
	recs      map[string]*character.Character
	afterRead func()
}

func newMemStore() *memStore {
	return &memStore{recs: make(map[string]*character.Character)}
}

func (s *memStore) Get(_ context.Context, id string) (*character.Character, error) {
	s.mu.Lock()
	c, ok := s.recs[id]
	if ok {
		c = c.Clone()
	}
	hook := s.afterRead
	s.afterRead = nil
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: player %q", gameerr.ErrNotFound, id)
	}
	if hook != nil {
		hook()
	}
	return c, nil
}

// pauseAfterRead runs fn once, after the next Get has copied its row but
// before it returns.
func (s *memStore) pauseAfterRead(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterRead = fn
}

func (s *memStore) Create(_ context.Context, c *character.Character) (*character.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[c.ID]; ok {
		return nil, gameerr.State("player %q exists", c.ID)
	}
	s.recs[c.ID] = c.Clone()
	return c.Clone(), nil
}

func (s *memStore) Update(_ context.Context, id string, p character.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.recs[id]
	if !ok {
		return fmt.Errorf("%w: player %q", gameerr.ErrNotFound, id)
	}
	p.Apply(c)
	return nil
}

// memCheckpointer holds enqueued patches until Flush and can be told to fail.
type memCheckpointer struct {
	mu        sync.Mutex
	store     *memStore
	pending   map[string]character.Patch
	enqueued  int
	failFlush bool
	onFlush   func()
}

func newMemCheckpointer(store *memStore) *memCheckpointer {
	return &memCheckpointer{store: store, pending: make(map[string]character.Patch)}
}

func (m *memCheckpointer) Enqueue(id string, p character.Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[id] = m.pending[id].Merge(p)
	m.enqueued++
}

func (m *memCheckpointer) Flush(ctx context.Context, id string, p character.Patch) error {
	m.mu.Lock()
	hook := m.onFlush
	m.onFlush = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	merged := m.pending[id].Merge(p)
	m.pending[id] = merged
	if m.failFlush {
		return gameerr.Persistence("update", errors.New("connection refused"))
	}
	if err := m.store.Update(ctx, id, merged); err != nil {
		return err
	}
	delete(m.pending, id)
	return nil
}

func (m *memCheckpointer) Pending(id string) (character.Patch, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	return p, ok
}

// land writes whatever is queued for id, as a background retry would.
func (m *memCheckpointer) land(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[id]
	if !ok {
		return
	}
	if err := m.store.Update(context.Background(), id, p); err == nil {
		delete(m.pending, id)
	}
}

func (m *memCheckpointer) setOnFlush(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFlush = fn
}

func (m *memCheckpointer) setFail(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFlush = v
}

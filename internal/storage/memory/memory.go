// Package memory provides a process-local character.Store for development
// servers and tests. Records do not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

// Store is a mutex-guarded map of player records.
type Store struct {
	mu      sync.RWMutex
	records map[string]*character.Character
	now     func() time.Time
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]*character.Character),
		now:     time.Now,
	}
}

// Get returns a copy of the record for id.
//
// Postcondition: Returns an error wrapping gameerr.ErrNotFound when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*character.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, gameerr.Persistence("get player", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.records[id]
	if !ok {
		return nil, gameerr.NotFound("player %q", id)
	}
	return c.Clone(), nil
}

// Create stores a copy of c with both timestamps set.
//
// Precondition: c.ID must be non-empty.
// Postcondition: Returns an error wrapping gameerr.ErrState when c.ID already exists.
func (s *Store) Create(ctx context.Context, c *character.Character) (*character.Character, error) {
	if err := ctx.Err(); err != nil {
		return nil, gameerr.Persistence("create player", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.ID]; ok {
		return nil, gameerr.State("player %q already exists", c.ID)
	}
	rec := c.Clone()
	if rec.Inventory == nil {
		rec.Inventory = make(map[string]int)
	}
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	s.records[rec.ID] = rec
	return rec.Clone(), nil
}

// Update applies p to the stored record.
//
// Postcondition: Returns an error wrapping gameerr.ErrNotFound when id is unknown.
func (s *Store) Update(ctx context.Context, id string, p character.Patch) error {
	if err := ctx.Err(); err != nil {
		return gameerr.Persistence("update player", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return gameerr.NotFound("player %q", id)
	}
	p.Apply(rec)
	rec.UpdatedAt = s.now()
	return nil
}

// Len reports the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

package combat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
	"github.com/cory-johannsen/samsara/internal/game/stats"
)

// Checkpointer persists record patches produced by sessions.
//
// Enqueue hands off a mid-encounter checkpoint without blocking the turn.
// Flush writes a patch, merged with anything still queued for the player,
// before returning. A failed Flush keeps the patch queued for retry.
type Checkpointer interface {
	Enqueue(playerID string, p character.Patch)
	Flush(ctx context.Context, playerID string, p character.Patch) error
	// Pending returns the merged patch not yet written for playerID.
	Pending(playerID string) (character.Patch, bool)
}

// Config tunes session lifetimes.
type Config struct {
	// IdleTimeout abandons a session with no submitted action for this long. Zero disables it.
	IdleTimeout time.Duration
	// PersistTimeout bounds the terminal save of a finished encounter.
	PersistTimeout time.Duration
}

// DefaultConfig returns the stock session timings.
func DefaultConfig() Config {
	return Config{IdleTimeout: 5 * time.Minute, PersistTimeout: 5 * time.Second}
}

// Result is the reply to one submitted action.
type Result struct {
	View View
	// Outcome is set once the action ended the encounter.
	Outcome *Outcome
}

type entry struct {
	mu      sync.Mutex
	session *Session
	// base is the record as last handed to the Checkpointer.
	base  *character.Character
	timer *IdleTimer
	done  bool
}

// Engine owns every open session, keyed by handle, and at most one per player.
// All methods are safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	sessions map[string]*entry
	// byPlayer maps a player to its session handle; "" reserves the player
	// while a start, rebirth or rest is in flight.
	byPlayer map[string]string
	closed   bool

	mech   *Mechanics
	store  character.Store
	ckpt   Checkpointer
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates an Engine.
//
// Precondition: mech, store, ckpt and logger must be non-nil.
// Postcondition: Returns an Engine with no open sessions.
func NewEngine(mech *Mechanics, store character.Store, ckpt Checkpointer, cfg Config, logger *zap.Logger) *Engine {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultConfig().PersistTimeout
	}
	return &Engine{
		sessions: make(map[string]*entry),
		byPlayer: make(map[string]string),
		mech:     mech,
		store:    store,
		ckpt:     ckpt,
		cfg:      cfg,
		logger:   logger,
	}
}

// reserve claims playerID for an exclusive operation.
func (e *Engine) reserve(playerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return gameerr.State("engine is shut down")
	}
	if _, busy := e.byPlayer[playerID]; busy {
		return gameerr.State("player %q already has an open encounter", playerID)
	}
	e.byPlayer[playerID] = ""
	return nil
}

func (e *Engine) release(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.byPlayer[playerID] == "" {
		delete(e.byPlayer, playerID)
	}
}

func (e *Engine) remove(handle, playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, handle)
	if e.byPlayer[playerID] == handle {
		delete(e.byPlayer, playerID)
	}
}

func (e *Engine) lookup(handle string) (*entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, ok := e.sessions[handle]
	if !ok {
		return nil, gameerr.State("no open session %q", handle)
	}
	return ent, nil
}

// load reads the stored record and overlays any checkpoint still queued for it.
//
// Pending is read before the store: a queued write that lands in between is
// then either in the row or in the overlay. Patches carry absolute values, so
// overlaying one the row already holds changes nothing.
func (e *Engine) load(ctx context.Context, playerID string) (*character.Character, error) {
	p, queued := e.ckpt.Pending(playerID)
	c, err := e.store.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if queued {
		p.Apply(c)
	}
	return c, nil
}

// CreateCharacter builds and stores a new level-1 record.
//
// Postcondition: Returns the stored record, or an error wrapping gameerr.ErrValidation
// (bad id or class), gameerr.ErrState (id taken), or gameerr.ErrPersistence.
func (e *Engine) CreateCharacter(ctx context.Context, playerID, classID string) (*character.Character, error) {
	c, err := e.mech.Progression.NewCharacter(playerID, classID)
	if err != nil {
		return nil, err
	}
	created, err := e.store.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	e.logger.Info("character created", zap.String("player", playerID), zap.String("class", classID))
	return created, nil
}

// GetCharacter returns the player's record. While an encounter is open the
// session's working copy is returned, since it is ahead of the store.
func (e *Engine) GetCharacter(ctx context.Context, playerID string) (*character.Character, error) {
	e.mu.Lock()
	handle := e.byPlayer[playerID]
	ent := e.sessions[handle]
	e.mu.Unlock()
	if ent != nil {
		ent.mu.Lock()
		defer ent.mu.Unlock()
		if !ent.done {
			return ent.session.Player.Clone(), nil
		}
	}
	return e.load(ctx, playerID)
}

// SessionFor returns the handle of the player's open session, if any.
func (e *Engine) SessionFor(playerID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.byPlayer[playerID]
	return h, h != ""
}

// StartEncounter opens a session for playerID at locationID and spawns wave 1.
//
// Precondition: The player record exists.
// Postcondition: Returns the opening View, or an error wrapping gameerr.ErrValidation
// (unknown location), gameerr.ErrState (session already open or hp too low),
// gameerr.ErrNotFound, or gameerr.ErrPersistence.
func (e *Engine) StartEncounter(ctx context.Context, playerID, locationID string) (View, error) {
	loc, ok := e.mech.Catalog.Location(locationID)
	if !ok {
		return View{}, gameerr.Validation("unknown location %q", locationID)
	}
	if err := e.reserve(playerID); err != nil {
		return View{}, err
	}
	started := false
	defer func() {
		if !started {
			e.release(playerID)
		}
	}()

	c, err := e.load(ctx, playerID)
	if err != nil {
		return View{}, err
	}
	base := c.Clone()
	stats.Refresh(c, e.mech.Catalog)
	if minHP := e.mech.Catalog.Rules().MinEncounterHP; c.HP < minHP {
		return View{}, gameerr.State("hp %d is below %d; rest before fighting", c.HP, minHP)
	}
	c.Location = loc.ID

	handle := uuid.NewString()
	s := NewSession(handle, c, loc, e.mech)
	ent := &entry{session: s, base: base}
	if p := character.Diff(base, c); !p.IsEmpty() {
		e.ckpt.Enqueue(playerID, p)
		ent.base = c.Clone()
	}
	if e.cfg.IdleTimeout > 0 {
		ent.timer = NewIdleTimer(e.cfg.IdleTimeout, func() { e.expire(handle) })
	}

	e.mu.Lock()
	e.sessions[handle] = ent
	e.byPlayer[playerID] = handle
	e.mu.Unlock()
	started = true

	e.logger.Info("encounter started",
		zap.String("player", playerID),
		zap.String("session", handle),
		zap.String("location", loc.ID),
		zap.String("enemy", s.Enemy.Name),
		zap.Bool("golden", s.Enemy.Golden),
	)
	return s.Describe(), nil
}

// SubmitAction resolves one action in the session identified by handle.
//
// Postcondition: On success the returned View reflects the resolved turn; when the
// encounter ended, Outcome is set and the session is closed. Errors wrap
// gameerr.ErrState (no such or finished session), gameerr.ErrAuthorization
// (actor does not own it), gameerr.ErrValidation or gameerr.ErrInsufficientResource
// (action rejected, state unchanged).
func (e *Engine) SubmitAction(ctx context.Context, handle, actorID string, a Action) (Result, error) {
	ent, err := e.lookup(handle)
	if err != nil {
		return Result{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.done {
		return Result{}, gameerr.State("session %q is closed", handle)
	}
	s := ent.session
	if s.PlayerID != actorID {
		return Result{}, gameerr.Authorization("session %q does not belong to %q", handle, actorID)
	}

	if err := s.Submit(a); err != nil {
		return Result{View: s.Describe()}, err
	}
	if ent.timer != nil {
		ent.timer.Touch()
	}

	patch := character.Diff(ent.base, s.Player)
	if !s.State().Terminal() {
		if !patch.IsEmpty() {
			e.ckpt.Enqueue(s.PlayerID, patch)
			ent.base = s.Player.Clone()
		}
		return Result{View: s.Describe()}, nil
	}

	ent.done = true
	if ent.timer != nil {
		ent.timer.Stop()
	}

	// The player stays reserved until the terminal patch is written or queued,
	// so a new encounter cannot load the record without it.
	out := s.Outcome()
	fctx, cancel := context.WithTimeout(ctx, e.cfg.PersistTimeout)
	defer cancel()
	err = e.ckpt.Flush(fctx, s.PlayerID, patch)
	e.remove(handle, s.PlayerID)
	if err != nil {
		e.logger.Warn("terminal save failed; queued for retry",
			zap.String("player", s.PlayerID),
			zap.String("session", handle),
			zap.Error(err),
		)
	} else {
		out.Persisted = true
	}
	e.logger.Info("encounter finished",
		zap.String("player", s.PlayerID),
		zap.String("session", handle),
		zap.Stringer("state", out.State),
		zap.Int("waves", out.WavesCleared),
		zap.Int("gold", out.Gold),
		zap.Int("xp", out.XP),
		zap.Bool("persisted", out.Persisted),
	)
	return Result{View: s.Describe(), Outcome: &out}, nil
}

// Describe returns the current View of the session identified by handle.
func (e *Engine) Describe(handle, actorID string) (View, error) {
	ent, err := e.lookup(handle)
	if err != nil {
		return View{}, err
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.session.PlayerID != actorID {
		return View{}, gameerr.Authorization("session %q does not belong to %q", handle, actorID)
	}
	return ent.session.Describe(), nil
}

// Rebirth resets a level-capped player to level 1 with a permanent stat bonus.
//
// Postcondition: Returns the updated record, or an error wrapping gameerr.ErrState
// (level too low or encounter open) or gameerr.ErrPersistence.
func (e *Engine) Rebirth(ctx context.Context, playerID string) (*character.Character, error) {
	return e.mutate(ctx, playerID, "rebirth", e.mech.Progression.Rebirth)
}

// Rest restores the player to full hp and mp between encounters.
func (e *Engine) Rest(ctx context.Context, playerID string) (*character.Character, error) {
	return e.mutate(ctx, playerID, "rest", func(c *character.Character) error {
		e.mech.Progression.Rest(c)
		return nil
	})
}

// mutate applies fn to the player's record outside any encounter and saves the difference.
func (e *Engine) mutate(ctx context.Context, playerID, op string, fn func(*character.Character) error) (*character.Character, error) {
	if err := e.reserve(playerID); err != nil {
		return nil, err
	}
	defer e.release(playerID)

	c, err := e.load(ctx, playerID)
	if err != nil {
		return nil, err
	}
	before := c.Clone()
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := e.ckpt.Flush(ctx, playerID, character.Diff(before, c)); err != nil {
		return nil, err
	}
	e.logger.Info(op, zap.String("player", playerID), zap.Int("level", c.Level), zap.Int("rebirths", c.Rebirths))
	return c, nil
}

// expire abandons an idle session, keeping everything it had already earned.
func (e *Engine) expire(handle string) {
	ent, err := e.lookup(handle)
	if err != nil {
		return
	}
	ent.mu.Lock()
	defer ent.mu.Unlock()
	if ent.done {
		return
	}
	e.abandon(handle, ent)
	e.logger.Info("encounter abandoned", zap.String("session", handle), zap.String("player", ent.session.PlayerID))
}

// abandon closes ent and queues its unsaved progress. Caller must hold ent.mu.
func (e *Engine) abandon(handle string, ent *entry) {
	ent.done = true
	if ent.timer != nil {
		ent.timer.Stop()
	}
	s := ent.session
	s.abandon()
	if p := character.Diff(ent.base, s.Player); !p.IsEmpty() {
		e.ckpt.Enqueue(s.PlayerID, p)
	}
	e.remove(handle, s.PlayerID)
}

// OpenSessions returns the number of sessions in progress.
func (e *Engine) OpenSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Close abandons every open session and rejects new ones.
//
// Postcondition: No session remains open; unsaved progress is queued on the Checkpointer.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	handles := make(map[string]*entry, len(e.sessions))
	for h, ent := range e.sessions {
		handles[h] = ent
	}
	e.mu.Unlock()

	for h, ent := range handles {
		ent.mu.Lock()
		if !ent.done {
			e.abandon(h, ent)
		}
		ent.mu.Unlock()
	}
}

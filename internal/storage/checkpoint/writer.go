// Package checkpoint writes player record patches behind the combat engine.
//
// Patches for one player coalesce into a single pending patch until a worker
// writes it. Pending patches are visible to readers so a record loaded while a
// write is outstanding still reflects every checkpoint.
package checkpoint

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/samsara/internal/config"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

// Writer is a coalescing write-behind queue in front of a character.Store.
// It satisfies the combat engine's checkpoint contract. Safe for concurrent use.
type Writer struct {
	store  character.Store
	cfg    config.CheckpointConfig
	logger *zap.Logger

	mu       sync.Mutex
	pending  map[string]character.Patch
	versions map[string]uint64
	queued   map[string]bool
	ready    []string
	locks    map[string]*sync.Mutex
	signal   chan struct{}
	stopped  bool
}

// NewWriter creates a Writer over store. Workers start with Run.
//
// Precondition: store and logger must be non-nil; cfg.Workers must be >= 1.
func NewWriter(store character.Store, cfg config.CheckpointConfig, logger *zap.Logger) *Writer {
	return &Writer{
		store:    store,
		cfg:      cfg,
		logger:   logger,
		pending:  make(map[string]character.Patch),
		versions: make(map[string]uint64),
		queued:   make(map[string]bool),
		locks:    make(map[string]*sync.Mutex),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue merges p into the player's pending patch and schedules a write.
// It never blocks on the store.
func (w *Writer) Enqueue(playerID string, p character.Patch) {
	if p.IsEmpty() {
		return
	}
	w.mu.Lock()
	w.mergeLocked(playerID, p)
	w.scheduleLocked(playerID)
	w.mu.Unlock()
}

// Flush merges p into the pending patch and writes the result before returning.
//
// Postcondition: On success nothing is pending for playerID unless a newer
// patch arrived during the write. On failure the merged patch stays queued and
// a background retry is scheduled; a missing record drops it.
func (w *Writer) Flush(ctx context.Context, playerID string, p character.Patch) error {
	w.mu.Lock()
	if !p.IsEmpty() {
		w.mergeLocked(playerID, p)
	}
	_, ok := w.pending[playerID]
	w.mu.Unlock()
	if !ok {
		return nil
	}

	err := w.write(ctx, playerID)
	if err != nil && !errors.Is(err, gameerr.ErrNotFound) {
		w.mu.Lock()
		w.scheduleLocked(playerID)
		w.mu.Unlock()
	}
	return err
}

// Pending returns the merged patch not yet written for playerID.
func (w *Writer) Pending(playerID string) (character.Patch, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[playerID]
	return p, ok
}

// Backlog reports how many players have unwritten patches.
func (w *Writer) Backlog() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Run starts the worker pool and blocks until ctx is cancelled. It then
// drains the backlog once with a fresh deadline of cfg.MaxElapsed.
//
// Postcondition: Returns nil after the drain; players still pending are logged.
func (w *Writer) Run(ctx context.Context) error {
	workers := max(w.cfg.Workers, 1)
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			w.work(gctx)
			return nil
		})
	}
	w.logger.Info("checkpoint writer started", zap.Int("workers", workers))
	_ = g.Wait()

	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
	w.drain(context.WithoutCancel(ctx))
	return nil
}

func (w *Writer) work(ctx context.Context) {
	for {
		id, ok := w.next()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-w.signal:
			}
			continue
		}
		w.writeWithRetry(ctx, id)
	}
}

func (w *Writer) writeWithRetry(ctx context.Context, id string) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.InitialInterval
	b.MaxInterval = w.cfg.MaxInterval
	b.MaxElapsedTime = w.cfg.MaxElapsed

	op := func() error {
		err := w.write(ctx, id)
		if errors.Is(err, gameerr.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		w.logger.Warn("checkpoint write failed; retrying",
			zap.String("player_id", id),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
	switch {
	case err == nil:
	case errors.Is(err, gameerr.ErrNotFound):
		w.logger.Error("checkpoint dropped for missing player", zap.String("player_id", id), zap.Error(err))
	case ctx.Err() != nil:
		// Left pending for the shutdown drain.
	default:
		w.logger.Error("checkpoint retries exhausted; requeued",
			zap.String("player_id", id),
			zap.Duration("requeue_after", w.cfg.MaxInterval),
			zap.Error(err),
		)
		time.AfterFunc(w.cfg.MaxInterval, func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if !w.stopped {
				w.scheduleLocked(id)
			}
		})
	}
}

func (w *Writer) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.MaxElapsed)
	defer cancel()

	w.mu.Lock()
	ids := make([]string, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	w.mu.Unlock()

	failed := 0
	for _, id := range ids {
		if err := w.write(ctx, id); err != nil && !errors.Is(err, gameerr.ErrNotFound) {
			failed++
			w.logger.Error("checkpoint lost at shutdown", zap.String("player_id", id), zap.Error(err))
		}
	}
	w.logger.Info("checkpoint writer drained",
		zap.Int("written", len(ids)-failed),
		zap.Int("failed", failed),
	)
}

// write stores the current pending patch for id. Writes for one player are
// serialized and always carry the latest merge, so an older patch never lands
// after a newer one.
func (w *Writer) write(ctx context.Context, id string) error {
	lock := w.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	w.mu.Lock()
	p, ok := w.pending[id]
	ver := w.versions[id]
	w.mu.Unlock()
	if !ok {
		return nil
	}

	err := w.store.Update(ctx, id, p)
	if err != nil && !errors.Is(err, gameerr.ErrNotFound) {
		return err
	}

	w.mu.Lock()
	if w.versions[id] == ver {
		delete(w.pending, id)
		delete(w.versions, id)
	}
	w.mu.Unlock()
	return err
}

func (w *Writer) mergeLocked(id string, p character.Patch) {
	w.pending[id] = w.pending[id].Merge(p)
	w.versions[id]++
}

func (w *Writer) scheduleLocked(id string) {
	if w.queued[id] {
		return
	}
	w.queued[id] = true
	w.ready = append(w.ready, id)
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *Writer) next() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.ready) == 0 {
		return "", false
	}
	id := w.ready[0]
	w.ready = w.ready[1:]
	delete(w.queued, id)
	if len(w.ready) > 0 {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
	return id, true
}

func (w *Writer) lockFor(id string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[id]
	if !ok {
		l = &sync.Mutex{}
		w.locks[id] = l
	}
	return l
}

// Package sqlite provides a single-file character.Store on modernc SQLite,
// with the schema applied by goose from embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
	"github.com/cory-johannsen/samsara/internal/storage"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var selectPlayer = "SELECT id, " + strings.Join(storage.Columns, ", ") + " FROM " + storage.Table + " WHERE id = ?"

// Store persists player records in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies pending migrations.
//
// Precondition: path must be non-empty; ":memory:" is not supported because
// each pooled connection would see its own database.
// Postcondition: Returns a ready Store or a non-nil error; no handle is leaked on failure.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("opening embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("creating goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts c and returns the stored record with timestamps set.
//
// Postcondition: Returns an error wrapping gameerr.ErrState on a duplicate id.
func (s *Store) Create(ctx context.Context, c *character.Character) (*character.Character, error) {
	inv, err := storage.EncodeInventory(c.Inventory)
	if err != nil {
		return nil, gameerr.Persistence("create player", err)
	}
	now := toMillis(s.now())
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO players
			(id, class_id, level, xp, rebirths, hp, max_hp, mp, max_mp, gold,
			 location, weapon_id, armor_id, mount_id, inventory, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.ClassID, c.Level, c.XP, c.Rebirths, c.HP, c.MaxHP, c.MP, c.MaxMP, c.Gold,
		c.Location, c.WeaponID, c.ArmorID, c.MountID, inv, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, gameerr.State("player %q already exists", c.ID)
		}
		return nil, gameerr.Persistence("create player", err)
	}
	return s.Get(ctx, c.ID)
}

// Get returns the record for id.
//
// Postcondition: Returns an error wrapping gameerr.ErrNotFound when id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*character.Character, error) {
	var c character.Character
	var inv string
	var created, updated int64
	err := s.db.QueryRowContext(ctx, selectPlayer, id).Scan(
		&c.ID, &c.ClassID, &c.Level, &c.XP, &c.Rebirths,
		&c.HP, &c.MaxHP, &c.MP, &c.MaxMP, &c.Gold,
		&c.Location, &c.WeaponID, &c.ArmorID, &c.MountID,
		&inv, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, gameerr.NotFound("player %q", id)
		}
		return nil, gameerr.Persistence("get player", err)
	}
	items, err := storage.DecodeInventory([]byte(inv))
	if err != nil {
		return nil, gameerr.Persistence("get player", err)
	}
	c.Inventory = items
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
	return &c, nil
}

// Update writes the set fields of p in one statement.
//
// Postcondition: Returns an error wrapping gameerr.ErrNotFound if no row matched.
func (s *Store) Update(ctx context.Context, id string, p character.Patch) error {
	set, err := storage.Assignments(p)
	if err != nil {
		return gameerr.Persistence("update player", err)
	}
	now := strconv.FormatInt(toMillis(s.now()), 10)
	query, args := storage.UpdateSQL(id, set, now, func(int) string { return "?" })
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return gameerr.Persistence("update player", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return gameerr.Persistence("update player", err)
	}
	if n == 0 {
		return gameerr.NotFound("player %q", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

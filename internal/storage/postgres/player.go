package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
	"github.com/cory-johannsen/samsara/internal/storage"
)

var selectPlayer = "SELECT id, " + strings.Join(storage.Columns, ", ") + " FROM " + storage.Table + " WHERE id = $1"

// PlayerRepository implements character.Store on a pgx pool.
type PlayerRepository struct {
	db *pgxpool.Pool
}

// NewPlayerRepository creates a PlayerRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the players schema applied.
func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player record and returns it with timestamps set.
//
// Precondition: c.ID must be non-empty.
// Postcondition: Returns the stored record, or an error wrapping gameerr.ErrState on a duplicate id.
func (r *PlayerRepository) Create(ctx context.Context, c *character.Character) (*character.Character, error) {
	inv, err := storage.EncodeInventory(c.Inventory)
	if err != nil {
		return nil, gameerr.Persistence("create player", err)
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO players
			(id, class_id, level, xp, rebirths, hp, max_hp, mp, max_mp, gold,
			 location, weapon_id, armor_id, mount_id, inventory)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id, `+strings.Join(storage.Columns, ", "),
		c.ID, c.ClassID, c.Level, c.XP, c.Rebirths, c.HP, c.MaxHP, c.MP, c.MaxMP, c.Gold,
		c.Location, c.WeaponID, c.ArmorID, c.MountID, inv,
	)
	out, err := scanPlayer(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, gameerr.State("player %q already exists", c.ID)
		}
		return nil, gameerr.Persistence("create player", err)
	}
	return out, nil
}

// Get retrieves a player record by id.
//
// Postcondition: Returns the record, or an error wrapping gameerr.ErrNotFound.
func (r *PlayerRepository) Get(ctx context.Context, id string) (*character.Character, error) {
	out, err := scanPlayer(r.db.QueryRow(ctx, selectPlayer, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, gameerr.NotFound("player %q", id)
		}
		return nil, gameerr.Persistence("get player", err)
	}
	return out, nil
}

// Update writes the set fields of p in one statement.
//
// Postcondition: Returns nil on success, an error wrapping gameerr.ErrNotFound
// if no row matched, or one wrapping gameerr.ErrPersistence.
func (r *PlayerRepository) Update(ctx context.Context, id string, p character.Patch) error {
	set, err := storage.Assignments(p)
	if err != nil {
		return gameerr.Persistence("update player", err)
	}
	query, args := storage.UpdateSQL(id, set, "NOW()", func(n int) string { return fmt.Sprintf("$%d", n) })
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return gameerr.Persistence("update player", err)
	}
	if tag.RowsAffected() == 0 {
		return gameerr.NotFound("player %q", id)
	}
	return nil
}

func scanPlayer(row pgx.Row) (*character.Character, error) {
	var c character.Character
	var inv []byte
	if err := row.Scan(
		&c.ID, &c.ClassID, &c.Level, &c.XP, &c.Rebirths,
		&c.HP, &c.MaxHP, &c.MP, &c.MaxMP, &c.Gold,
		&c.Location, &c.WeaponID, &c.ArmorID, &c.MountID,
		&inv, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	items, err := storage.DecodeInventory(inv)
	if err != nil {
		return nil, err
	}
	c.Inventory = items
	return &c, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

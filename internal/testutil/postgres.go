// Package testutil starts disposable databases for the storage integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/samsara/internal/config"
	"github.com/cory-johannsen/samsara/internal/storage/postgres"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "samsara"
	pgPassword = "samsara"
	pgDatabase = "samsara_test"
)

// Postgres is a throwaway PostgreSQL server owned by one test.
type Postgres struct {
	Config config.DatabaseConfig
	Pool   *postgres.Pool
}

// StartPostgres runs a container, connects a pool to it, and registers
// cleanup for both on t.
//
// Precondition: Docker must be reachable.
// Postcondition: Returns a connected server or fails the test.
func StartPostgres(t *testing.T) *Postgres {
	t.Helper()
	ctx := context.Background()
	begin := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// Postgres logs readiness once for the init server and once for the real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(45 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("postgres container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("postgres container port: %v", err)
	}

	cfg := config.DatabaseConfig{
		Driver:          config.DriverPostgres,
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting to %s: %v", cfg.Host, err)
	}
	t.Cleanup(pool.Close)

	t.Logf("postgres ready on %s:%d [%s]", cfg.Host, cfg.Port, time.Since(begin))
	return &Postgres{Config: cfg, Pool: pool}
}

// Migrate applies the embedded schema.
func (p *Postgres) Migrate(t *testing.T) {
	t.Helper()
	if err := postgres.MigrateUp(p.Config.DSN()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
}

// NewPlayerStore returns a player repository on a fresh, migrated database.
// It skips the test under -short.
func NewPlayerStore(t *testing.T) *postgres.PlayerRepository {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	pg := StartPostgres(t)
	pg.Migrate(t)
	return postgres.NewPlayerRepository(pg.Pool.DB())
}

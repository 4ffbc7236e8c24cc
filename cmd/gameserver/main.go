// Package main provides the arena server binary: the combat engine behind
// the samsara.v1.Arena gRPC service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/samsara/internal/config"
	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/combat"
	"github.com/cory-johannsen/samsara/internal/game/dice"
	"github.com/cory-johannsen/samsara/internal/game/encounter"
	"github.com/cory-johannsen/samsara/internal/gameserver"
	"github.com/cory-johannsen/samsara/internal/observability"
	"github.com/cory-johannsen/samsara/internal/scripting"
	"github.com/cory-johannsen/samsara/internal/server"
	"github.com/cory-johannsen/samsara/internal/storage/checkpoint"
	"github.com/cory-johannsen/samsara/internal/storage/memory"
	"github.com/cory-johannsen/samsara/internal/storage/postgres"
	"github.com/cory-johannsen/samsara/internal/storage/sqlite"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults and SAMSARA_ env vars")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting arena server",
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.String("driver", cfg.Database.Driver),
	)

	// Content
	cat, err := loadCatalog(cfg.Content)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded", zap.Any("counts", cat.Size()))

	var src dice.Source
	if cfg.GameServer.Seed != 0 {
		src = dice.NewSeededSource(cfg.GameServer.Seed)
		logger.Warn("deterministic randomness enabled", zap.Uint64("seed", cfg.GameServer.Seed))
	} else {
		src = dice.NewCryptoSource()
	}

	// Enemy telegraph scripts
	var picker encounter.MovePicker = encounter.NewUniformPicker(cat.Rules().EnemyMoves, src)
	if cfg.Content.ScriptsDir != "" {
		scriptMgr := scripting.NewManager(dice.NewLoggedRoller(src, logger), logger)
		defer scriptMgr.Close()
		scopes, err := scriptMgr.LoadTree(cfg.Content.ScriptsDir, cfg.Content.InstructionLimit)
		if err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		logger.Info("scripts loaded", zap.Strings("scopes", scopes))
		picker = encounter.NewScriptedPicker(scriptMgr, picker, logger)
	}

	// Persistence
	store, health, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("opening player store", zap.Error(err))
	}
	defer closeStore()

	writer := checkpoint.NewWriter(store, cfg.Checkpoint, logger)
	mech := combat.NewMechanics(cat, src, picker, logger)
	engine := combat.NewEngine(mech, store, writer, combat.Config{
		IdleTimeout:    cfg.GameServer.IdleTimeout,
		PersistTimeout: cfg.GameServer.PersistTimeout,
	}, logger)

	grpcServer := grpc.NewServer(grpc.UnaryInterceptor(gameserver.LoggingInterceptor(logger)))
	gameserver.RegisterArenaServer(grpcServer, gameserver.NewArenaService(engine, logger))

	// Wire lifecycle. Services stop in reverse order: the gRPC front door
	// closes and abandons open sessions before the writer drains.
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("checkpoint", writer)
	if health != nil {
		lifecycle.Add("db-health", server.ServiceFunc(func(ctx context.Context) error {
			return watchHealth(ctx, health, logger)
		}))
	}
	lifecycle.Add("grpc", server.ServiceFunc(func(ctx context.Context) error {
		lis, err := net.Listen("tcp", cfg.GameServer.Addr())
		if err != nil {
			return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
		}
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))

		serveErr := make(chan error, 1)
		go func() { serveErr <- grpcServer.Serve(lis) }()
		select {
		case err := <-serveErr:
			engine.Close()
			return err
		case <-ctx.Done():
			grpcServer.GracefulStop()
			engine.Close()
			logger.Info("sessions closed", zap.Int("backlog", writer.Backlog()))
			return ctx.Err()
		}
	}))

	logger.Info("arena server initialized", zap.Duration("startup", time.Since(start)))

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func loadCatalog(cfg config.ContentConfig) (*catalog.Catalog, error) {
	if cfg.Dir == "" {
		return catalog.Default(), nil
	}
	return catalog.LoadDir(cfg.Dir)
}

type healthFunc func(ctx context.Context, timeout time.Duration) error

// openStore selects the player store for the configured driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (character.Store, healthFunc, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewPlayerRepository(pool.DB()), pool.Health, pool.Close, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, nil, func() { _ = s.Close() }, nil
	case config.DriverMemory:
		return memory.NewStore(), nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func watchHealth(ctx context.Context, health healthFunc, logger *zap.Logger) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := health(ctx, 5*time.Second); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("database health check failed", zap.Error(err))
			}
		}
	}
}

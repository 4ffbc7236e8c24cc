// Package main provides the skirmish terminal client. It drives a remote
// arena server over gRPC, or an in-process engine with -local.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/samsara/internal/config"
	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/combat"
	"github.com/cory-johannsen/samsara/internal/game/dice"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
	"github.com/cory-johannsen/samsara/internal/gameserver"
	"github.com/cory-johannsen/samsara/internal/storage/checkpoint"
	"github.com/cory-johannsen/samsara/internal/storage/memory"
	"github.com/cory-johannsen/samsara/internal/tui"
)

// arena is what the client needs beyond the tui boundary.
type arena interface {
	tui.Arena
	CreateCharacter(ctx context.Context, playerID, classID string) (*character.Character, error)
}

func main() {
	addr := flag.String("addr", "127.0.0.1:50051", "arena server address")
	player := flag.String("player", "", "player id (required)")
	class := flag.String("class", "", "class for a new character; defaults to the first class")
	local := flag.Bool("local", false, "run an in-process engine with an in-memory store instead of dialing -addr")
	content := flag.String("content", "", "content directory; empty uses the built-in catalog")
	flag.Parse()

	if *player == "" {
		fmt.Fprintln(os.Stderr, "skirmish: -player is required")
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*addr, *player, *class, *content, *local); err != nil {
		fmt.Fprintf(os.Stderr, "skirmish: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, playerID, classID, contentDir string, local bool) error {
	cat := catalog.Default()
	if contentDir != "" {
		var err error
		if cat, err = catalog.LoadDir(contentDir); err != nil {
			return fmt.Errorf("loading content: %w", err)
		}
	}

	var a arena
	if local {
		// Logs would tear the alternate screen, so the local engine stays quiet.
		engine, stop := localEngine(cat, zap.NewNop())
		defer stop()
		a = engine
	} else {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("dialing %s: %w", addr, err)
		}
		defer conn.Close()
		a = gameserver.NewClient(conn)
	}

	if err := ensureCharacter(a, cat, playerID, classID); err != nil {
		return err
	}
	return tui.Run(a, playerID, tui.Destinations(cat))
}

// ensureCharacter creates playerID's character on first play.
func ensureCharacter(a arena, cat *catalog.Catalog, playerID, classID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := a.GetCharacter(ctx, playerID)
	if !errors.Is(err, gameerr.ErrNotFound) {
		return err
	}
	if classID == "" {
		classID = cat.ClassIDs()[0]
	}
	if _, err := a.CreateCharacter(ctx, playerID, classID); err != nil {
		return fmt.Errorf("creating %s: %w", playerID, err)
	}
	return nil
}

func localEngine(cat *catalog.Catalog, logger *zap.Logger) (*combat.Engine, func()) {
	store := memory.NewStore()
	writer := checkpoint.NewWriter(store, config.CheckpointConfig{
		Workers:         1,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsed:      5 * time.Second,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = writer.Run(ctx)
	}()

	mech := combat.NewMechanics(cat, dice.NewCryptoSource(), nil, logger)
	engine := combat.NewEngine(mech, store, writer, combat.DefaultConfig(), logger)
	return engine, func() {
		engine.Close()
		cancel()
		<-done
	}
}

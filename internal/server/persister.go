package server

import (
	"context"
	"errors"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/repository"
	"go.uber.org/zap"
)

// GameStore is the storage the persister writes snapshots to.
type GameStore interface {
	SaveGame(ctx context.Context, snap *game.Snapshot) error
}

// Persister writes a fresh snapshot of a game after every change. Writes are
// version guarded, so notifications handled out of order never roll a game back.
type Persister struct {
	engine  *game.Engine
	store   GameStore
	logger  *zap.Logger
	timeout time.Duration
}

// NewPersister creates a persister writing to store.
func NewPersister(engine *game.Engine, store GameStore, logger *zap.Logger) *Persister {
	return &Persister{engine: engine, store: store, logger: logger, timeout: 5 * time.Second}
}

// Handle is a game.NotificationHandler.
func (p *Persister) Handle(n game.GameNotification) {
	snap, err := p.engine.Snapshot(n.GameID)
	if err != nil {
		// Removed before we got to it.
		p.logger.Debug("skipping persistence", zap.String("game_id", n.GameID), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.store.SaveGame(ctx, snap)
	switch {
	case err == nil:
		p.logger.Debug("game persisted",
			zap.String("game_id", snap.GameID),
			zap.Int64("version", snap.Version),
			zap.String("trigger", n.Type),
		)
	case errors.Is(err, repository.ErrStaleVersion):
		// A concurrent handler already stored this version or a newer one.
	default:
		p.logger.Error("failed to persist game",
			zap.String("game_id", snap.GameID),
			zap.Int64("version", snap.Version),
			zap.Error(err),
		)
	}
}

// RestoreGames loads stored games into the engine. It returns how many were restored.
func RestoreGames(engine *game.Engine, snaps []*game.Snapshot, logger *zap.Logger) int {
	restored := 0
	for _, snap := range snaps {
		if err := engine.Restore(snap); err != nil {
			logger.Warn("failed to restore game", zap.String("game_id", snap.GameID), zap.Error(err))
			continue
		}
		restored++
	}
	return restored
}

package server

import (
	"testing"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T) *game.Engine {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return game.NewEngine(logger, game.Options{Opponent: ai.NewSeededOpponent(5, logger)})
}

func setupFor(t *testing.T, seed uint64, c pieces.Color) []board.Placement {
	t.Helper()
	return ai.NewSeededOpponent(seed, zaptest.NewLogger(t)).GenerateSetup(c)
}

func legalMove(t *testing.T, e *game.Engine, gameID string, c pieces.Color) rules.Move {
	t.Helper()
	snap, err := e.Snapshot(gameID)
	require.NoError(t, err)
	moves := rules.GetValidMoves(&snap.State.Board, c)
	require.NotEmpty(t, moves)
	return moves[0]
}

package rules

import (
	"testing"

	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
)

// standardSetup fills c's zone in row-major order with ranks in ordinal order.
func standardSetup(c pieces.Color) []board.Placement {
	positions := board.ZonePositions(c)
	out := make([]board.Placement, 0, pieces.PiecesPerSide)
	i := 0
	for _, r := range pieces.AllRanks() {
		for n := 0; n < r.Count(); n++ {
			p := positions[i]
			i++
			out = append(out, board.Placement{Row: p.Row, Col: p.Col, Rank: r})
		}
	}
	return out
}

func place(b *board.Board, row, col int, r pieces.Rank, c pieces.Color) {
	b.Set(board.Pos(row, col), pieces.Piece{Rank: r, Color: c})
}

// inProgress wraps a hand-built board in a state that is ready for moves.
func inProgress(t *testing.T, b board.Board, turn pieces.Color) *GameState {
	t.Helper()
	s := &GameState{
		Board:             b,
		Phase:             PhaseInProgress,
		CurrentTurn:       turn,
		RedSetupComplete:  true,
		BlueSetupComplete: true,
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("fixture state invalid: %v", err)
	}
	return s
}

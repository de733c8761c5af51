package rules

import (
	"testing"

	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMoveRejections(t *testing.T) {
	b := board.CreateEmptyBoard()
	place(&b, 6, 0, pieces.Sergeant, pieces.Red)
	place(&b, 6, 1, pieces.Bomb, pieces.Red)
	place(&b, 7, 0, pieces.Captain, pieces.Red)
	place(&b, 6, 2, pieces.Scout, pieces.Red)
	place(&b, 4, 0, pieces.Major, pieces.Blue)
	place(&b, 6, 4, pieces.Lieutenant, pieces.Red)

	tests := []struct {
		name     string
		from, to board.Position
		color    pieces.Color
		reason   Reason
	}{
		{"off the board", board.Pos(6, 0), board.Pos(6, -1), pieces.Red, ReasonOutOfBounds},
		{"empty source", board.Pos(5, 5), board.Pos(5, 6), pieces.Red, ReasonNoPiece},
		{"enemy piece", board.Pos(4, 0), board.Pos(5, 0), pieces.Red, ReasonNotYourPiece},
		{"bomb", board.Pos(6, 1), board.Pos(5, 1), pieces.Red, ReasonImmovable},
		{"into a lake", board.Pos(6, 2), board.Pos(5, 2), pieces.Red, ReasonOnLake},
		{"onto a friend", board.Pos(6, 0), board.Pos(7, 0), pieces.Red, ReasonOccupiedByOwn},
		{"diagonal", board.Pos(6, 0), board.Pos(5, 1), pieces.Red, ReasonIllegalPattern},
		{"two squares", board.Pos(6, 0), board.Pos(4, 0), pieces.Red, ReasonIllegalPattern},
		{"scout through a piece", board.Pos(6, 2), board.Pos(6, 5), pieces.Red, ReasonBlocked},
		{"scout onto the far lake", board.Pos(6, 2), board.Pos(4, 2), pieces.Red, ReasonOnLake},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMove(&b, tt.from, tt.to, tt.color)
			require.Error(t, err)
			assert.True(t, IsRejection(err, tt.reason), "expected %s, got %v", tt.reason, err)
		})
	}
}

func TestValidateMoveScoutPathThroughLake(t *testing.T) {
	b := board.CreateEmptyBoard()
	place(&b, 6, 3, pieces.Scout, pieces.Red)

	err := ValidateMove(&b, board.Pos(6, 3), board.Pos(2, 3), pieces.Red)
	assert.True(t, IsRejection(err, ReasonBlocked), "got %v", err)
}

func TestValidateMoveAccepts(t *testing.T) {
	b := board.CreateEmptyBoard()
	place(&b, 6, 0, pieces.Scout, pieces.Red)
	place(&b, 0, 0, pieces.Flag, pieces.Blue)
	place(&b, 6, 9, pieces.Captain, pieces.Red)
	place(&b, 5, 9, pieces.Miner, pieces.Blue)

	assert.NoError(t, ValidateMove(&b, board.Pos(6, 0), board.Pos(1, 0), pieces.Red))
	assert.NoError(t, ValidateMove(&b, board.Pos(6, 0), board.Pos(0, 0), pieces.Red), "scout attacks at range")
	assert.NoError(t, ValidateMove(&b, board.Pos(6, 9), board.Pos(5, 9), pieces.Red))
	assert.NoError(t, ValidateMove(&b, board.Pos(6, 9), board.Pos(7, 9), pieces.Red), "backward moves are legal")
}

func TestGetValidMovesOrderAndBounds(t *testing.T) {
	b := board.CreateEmptyBoard()
	place(&b, 9, 0, pieces.Sergeant, pieces.Red)

	moves := GetValidMoves(&b, pieces.Red)
	require.Len(t, moves, 2)
	assert.Equal(t, board.Pos(8, 0), moves[0].To, "up comes first")
	assert.Equal(t, board.Pos(9, 1), moves[1].To)
	for _, m := range moves {
		assert.Equal(t, pieces.Sergeant, m.Rank)
	}
}

func TestGetValidMovesScoutStopsAtBlockers(t *testing.T) {
	b := board.CreateEmptyBoard()
	place(&b, 6, 0, pieces.Scout, pieces.Red)
	place(&b, 2, 0, pieces.Bomb, pieces.Blue)
	place(&b, 6, 3, pieces.Miner, pieces.Red)

	var targets []board.Position
	for _, m := range MovesFrom(&b, board.Pos(6, 0), pieces.Red) {
		targets = append(targets, m.To)
	}
	assert.Equal(t, []board.Position{
		board.Pos(5, 0), board.Pos(4, 0), board.Pos(3, 0), board.Pos(2, 0),
		board.Pos(7, 0), board.Pos(8, 0), board.Pos(9, 0),
		board.Pos(6, 1), board.Pos(6, 2),
	}, targets)
}

func TestGetValidMovesProperties(t *testing.T) {
	s := NewGameState()
	require.NoError(t, s.BeginSetup())
	require.NoError(t, s.SubmitSetup(standardSetup(pieces.Red), pieces.Red))
	require.NoError(t, s.SubmitSetup(standardSetup(pieces.Blue), pieces.Blue))

	for _, c := range []pieces.Color{pieces.Red, pieces.Blue} {
		moves := GetValidMoves(&s.Board, c)
		require.NotEmpty(t, moves)
		for _, m := range moves {
			assert.False(t, board.IsLake(m.To.Row, m.To.Col), "%v ends on a lake", m)
			assert.False(t, s.Board.At(m.To).OwnedBy(c), "%v ends on a friend", m)
			assert.True(t, m.Rank.CanMove())
			assert.NoError(t, ValidateMove(&s.Board, m.From, m.To, c), "%v", m)
		}
	}
}

func TestHasMovablePiecesMatchesEnumerator(t *testing.T) {
	boards := map[string]func(*board.Board){
		"empty": func(*board.Board) {},
		"flag and bombs only": func(b *board.Board) {
			place(b, 9, 0, pieces.Flag, pieces.Red)
			place(b, 9, 1, pieces.Bomb, pieces.Red)
		},
		"boxed in by own bombs": func(b *board.Board) {
			place(b, 9, 0, pieces.Marshal, pieces.Red)
			place(b, 8, 0, pieces.Bomb, pieces.Red)
			place(b, 9, 1, pieces.Bomb, pieces.Red)
		},
		"boxed in but facing an enemy": func(b *board.Board) {
			place(b, 9, 0, pieces.Marshal, pieces.Red)
			place(b, 8, 0, pieces.Bomb, pieces.Red)
			place(b, 9, 1, pieces.Bomb, pieces.Blue)
		},
		"scout beside a lake": func(b *board.Board) {
			place(b, 6, 2, pieces.Scout, pieces.Red)
		},
	}

	for name, build := range boards {
		t.Run(name, func(t *testing.T) {
			b := board.CreateEmptyBoard()
			build(&b)
			assert.Equal(t, len(GetValidMoves(&b, pieces.Red)) > 0, HasMovablePieces(&b, pieces.Red))
		})
	}
}

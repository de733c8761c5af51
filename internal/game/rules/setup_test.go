package rules

import (
	"testing"

	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSetupAcceptsStandardSetups(t *testing.T) {
	require.NoError(t, ValidateSetup(standardSetup(pieces.Red), pieces.Red))
	require.NoError(t, ValidateSetup(standardSetup(pieces.Blue), pieces.Blue))
}

func TestValidateSetupIgnoresOrder(t *testing.T) {
	setup := standardSetup(pieces.Red)
	reversed := make([]board.Placement, len(setup))
	for i, pl := range setup {
		reversed[len(setup)-1-i] = pl
	}
	assert.NoError(t, ValidateSetup(reversed, pieces.Red))
}

func TestValidateSetupRejections(t *testing.T) {
	tests := []struct {
		name   string
		color  pieces.Color
		mutate func([]board.Placement) []board.Placement
		reason Reason
	}{
		{
			name:   "too few pieces",
			color:  pieces.Red,
			mutate: func(p []board.Placement) []board.Placement { return p[:39] },
			reason: ReasonWrongCount,
		},
		{
			name:  "too many pieces",
			color: pieces.Red,
			mutate: func(p []board.Placement) []board.Placement {
				return append(p, board.Placement{Row: 6, Col: 0, Rank: pieces.Scout})
			},
			reason: ReasonWrongCount,
		},
		{
			name:  "red piece in blue rows",
			color: pieces.Red,
			mutate: func(p []board.Placement) []board.Placement {
				p[0].Row = 3
				return p
			},
			reason: ReasonOutOfZone,
		},
		{
			name:  "blue piece in red rows",
			color: pieces.Blue,
			mutate: func(p []board.Placement) []board.Placement {
				p[5].Row = 6
				return p
			},
			reason: ReasonOutOfZone,
		},
		{
			name:  "blue piece in the neutral rows",
			color: pieces.Blue,
			mutate: func(p []board.Placement) []board.Placement {
				p[5].Row = 4
				p[5].Col = 0
				return p
			},
			reason: ReasonOutOfZone,
		},
		{
			name:  "column off the board",
			color: pieces.Red,
			mutate: func(p []board.Placement) []board.Placement {
				p[3].Col = 10
				return p
			},
			reason: ReasonOutOfBounds,
		},
		{
			name:  "two pieces on one square",
			color: pieces.Red,
			mutate: func(p []board.Placement) []board.Placement {
				p[1].Row, p[1].Col = p[0].Row, p[0].Col
				return p
			},
			reason: ReasonDuplicateSquare,
		},
		{
			name:  "wrong distribution",
			color: pieces.Red,
			mutate: func(p []board.Placement) []board.Placement {
				for i := range p {
					if p[i].Rank == pieces.Bomb {
						p[i].Rank = pieces.Scout
						break
					}
				}
				return p
			},
			reason: ReasonWrongRankCount,
		},
		{
			name:  "unknown rank",
			color: pieces.Blue,
			mutate: func(p []board.Placement) []board.Placement {
				p[0].Rank = pieces.Rank(12)
				return p
			},
			reason: ReasonUnknownRank,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSetup(tt.mutate(standardSetup(tt.color)), tt.color)
			require.Error(t, err)
			reason, ok := ReasonOf(err)
			require.True(t, ok, "expected a RuleError, got %v", err)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestValidateSetupRejectsLakeSquares(t *testing.T) {
	// Lakes sit in the neutral rows, so the zone check fires first.
	setup := standardSetup(pieces.Red)
	setup[0].Row, setup[0].Col = 4, 2
	err := ValidateSetup(setup, pieces.Red)
	assert.True(t, IsRejection(err, ReasonOutOfZone), "got %v", err)
}

package board

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEmptyBoard(t *testing.T) {
	b := CreateEmptyBoard()
	lakes := 0
	b.Each(func(p Position, sq Square) {
		assert.Equal(t, IsLake(p.Row, p.Col), sq.IsLake(), "%s", p)
		assert.False(t, sq.IsOccupied())
		if sq.IsLake() {
			lakes++
		}
	})
	assert.Equal(t, 8, lakes)
	require.NoError(t, b.Validate())
}

func TestLakePositionsIsACopy(t *testing.T) {
	lakes := LakePositions()
	lakes[0] = Pos(0, 0)
	assert.False(t, IsLake(0, 0))
	assert.True(t, IsLake(4, 2))
}

func TestValidateRejectsMalformedBoards(t *testing.T) {
	tests := []struct {
		name  string
		build func(*Board)
	}{
		{"missing lake", func(b *Board) { b.Clear(Pos(5, 7)) }},
		{"extra lake", func(b *Board) { b[0][0] = Square{Kind: Lake} }},
		{"piece on lake", func(b *Board) { b.Set(Pos(4, 6), pieces.Piece{Rank: pieces.Scout}) }},
		{"unknown rank", func(b *Board) { b.Set(Pos(0, 0), pieces.Piece{Rank: pieces.Rank(12)}) }},
		{"unknown color", func(b *Board) { b.Set(Pos(0, 0), pieces.Piece{Color: pieces.Color(3)}) }},
		{"two marshals", func(b *Board) {
			b.Set(Pos(0, 0), pieces.Piece{Rank: pieces.Marshal, Color: pieces.Blue})
			b.Set(Pos(0, 1), pieces.Piece{Rank: pieces.Marshal, Color: pieces.Blue})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := CreateEmptyBoard()
			tt.build(&b)
			err := b.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestValidateCountsColorsSeparately(t *testing.T) {
	b := CreateEmptyBoard()
	b.Set(Pos(0, 0), pieces.Piece{Rank: pieces.Marshal, Color: pieces.Blue})
	b.Set(Pos(9, 0), pieces.Piece{Rank: pieces.Marshal, Color: pieces.Red})
	assert.NoError(t, b.Validate())
}

func TestSquareJSON(t *testing.T) {
	b := CreateEmptyBoard()
	b.Set(Pos(6, 1), pieces.Piece{Rank: pieces.Spy, Color: pieces.Red})
	b.Reveal(Pos(6, 1))

	data, err := json.Marshal(&b)
	require.NoError(t, err)

	var raw [Size][Size]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "null", string(raw[0][0]))
	assert.JSONEq(t, `{"type":"lake"}`, string(raw[4][2]))
	assert.JSONEq(t, `{"rank":1,"color":"red","revealed":true}`, string(raw[6][1]))

	var decoded Board
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b, decoded)
}

func TestZones(t *testing.T) {
	assert.Equal(t, 9, BackRow(pieces.Red))
	assert.Equal(t, 6, FrontRow(pieces.Red))
	assert.Equal(t, 0, BackRow(pieces.Blue))
	assert.Equal(t, 3, FrontRow(pieces.Blue))
	assert.Equal(t, 7, ZoneRow(pieces.Red, 2))

	for _, c := range []pieces.Color{pieces.Red, pieces.Blue} {
		positions := ZonePositions(c)
		assert.Len(t, positions, pieces.PiecesPerSide)
		for _, p := range positions {
			assert.True(t, InZone(c, p.Row))
			assert.False(t, InZone(c.Opponent(), p.Row))
		}
	}
	assert.False(t, InZone(pieces.Red, 5))
	assert.False(t, InZone(pieces.Blue, 4))
}

func TestPlacePiecesDoesNotMutateInput(t *testing.T) {
	b := CreateEmptyBoard()
	next := PlacePieces(b, []Placement{{Row: 9, Col: 0, Rank: pieces.Flag}}, pieces.Red)

	assert.True(t, b.At(Pos(9, 0)).IsEmpty())
	sq := next.At(Pos(9, 0))
	require.True(t, sq.OwnedBy(pieces.Red))
	assert.Equal(t, pieces.Flag, sq.Piece.Rank)
	assert.False(t, sq.Piece.Revealed)
}

func TestPositionHelpers(t *testing.T) {
	assert.True(t, Pos(9, 9).InBounds())
	assert.False(t, Pos(10, 0).InBounds())
	assert.False(t, Pos(0, -1).InBounds())
	assert.Equal(t, 7, Pos(0, 0).Distance(Pos(3, 4)))
	assert.Equal(t, "(2,3)", Pos(2, 3).String())
}

package rules

import (
	"encoding/json"

	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
)

// VisiblePiece is a piece as a particular viewer may see it. Rank is nil when hidden.
type VisiblePiece struct {
	Color    pieces.Color `json:"color"`
	Rank     *pieces.Rank `json:"rank,omitempty"`
	Revealed bool         `json:"revealed,omitempty"`
	Hidden   bool         `json:"hidden,omitempty"`
}

// VisibleSquare is one square of a projected board.
type VisibleSquare struct {
	Lake  bool
	Piece *VisiblePiece
}

// MarshalJSON mirrors board.Square's encoding.
func (v VisibleSquare) MarshalJSON() ([]byte, error) {
	if v.Lake {
		return []byte(`{"type":"lake"}`), nil
	}
	if v.Piece == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.Piece)
}

// VisibleBoard is a fog-of-war projection of a board.
type VisibleBoard [board.Size][board.Size]VisibleSquare

// GetBoardForPlayer projects b for viewer. Lakes pass through; the viewer's own pieces
// and revealed enemy pieces are shown in full; unrevealed enemy pieces carry only their color.
func GetBoardForPlayer(b *board.Board, viewer pieces.Color) VisibleBoard {
	var out VisibleBoard
	b.Each(func(pos board.Position, sq board.Square) {
		switch sq.Kind {
		case board.Lake:
			out[pos.Row][pos.Col] = VisibleSquare{Lake: true}
		case board.Occupied:
			out[pos.Row][pos.Col] = VisibleSquare{Piece: projectPiece(sq.Piece, viewer)}
		}
	})
	return out
}

func projectPiece(p pieces.Piece, viewer pieces.Color) *VisiblePiece {
	if p.Color == viewer || p.Revealed {
		rank := p.Rank
		return &VisiblePiece{Color: p.Color, Rank: &rank, Revealed: p.Revealed}
	}
	return &VisiblePiece{Color: p.Color, Hidden: true}
}

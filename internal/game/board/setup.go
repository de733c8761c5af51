package board

import "github.com/stratego-online/stratego-server-go/internal/game/pieces"

// Placement is one entry of a setup intent.
type Placement struct {
	Row  int         `json:"row"`
	Col  int         `json:"col"`
	Rank pieces.Rank `json:"rank"`
}

// Position returns the placement's coordinate.
func (p Placement) Position() Position {
	return Position{Row: p.Row, Col: p.Col}
}

// ZoneRows returns the inclusive row band a color sets up in.
func ZoneRows(c pieces.Color) (first, last int) {
	if c == pieces.Red {
		return 6, 9
	}
	return 0, 3
}

// InZone reports whether row belongs to c's setup band.
func InZone(c pieces.Color, row int) bool {
	first, last := ZoneRows(c)
	return row >= first && row <= last
}

// Forward is the row delta that moves a piece of color c toward the opponent.
func Forward(c pieces.Color) int {
	if c == pieces.Red {
		return -1
	}
	return 1
}

// BackRow is the zone row furthest from the opponent.
func BackRow(c pieces.Color) int {
	if c == pieces.Red {
		return 9
	}
	return 0
}

// FrontRow is the zone row nearest the opponent.
func FrontRow(c pieces.Color) int {
	return ZoneRow(c, 3)
}

// ZoneRow returns the row n steps forward from c's back row.
func ZoneRow(c pieces.Color, n int) int {
	return BackRow(c) + n*Forward(c)
}

// ZonePositions lists every non-lake square in c's setup band in row-major order.
func ZonePositions(c pieces.Color) []Position {
	first, last := ZoneRows(c)
	out := make([]Position, 0, (last-first+1)*Size)
	for row := first; row <= last; row++ {
		for col := 0; col < Size; col++ {
			if !IsLake(row, col) {
				out = append(out, Position{Row: row, Col: col})
			}
		}
	}
	return out
}

// PlacePieces writes the placements as unrevealed pieces of color c and returns the new board.
// It does not validate; callers run the setup validator first.
func PlacePieces(b Board, placements []Placement, c pieces.Color) Board {
	for _, pl := range placements {
		b[pl.Row][pl.Col] = Square{
			Kind:  Occupied,
			Piece: pieces.Piece{Rank: pl.Rank, Color: c, Revealed: false},
		}
	}
	return b
}

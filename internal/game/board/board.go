package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
)

// ErrMalformed marks a board that violates a structural invariant.
var ErrMalformed = errors.New("malformed board")

var lakePositions = [8]Position{
	{4, 2}, {4, 3}, {5, 2}, {5, 3},
	{4, 6}, {4, 7}, {5, 6}, {5, 7},
}

// SquareKind distinguishes the three kinds of square.
type SquareKind uint8

const (
	Empty SquareKind = iota
	Lake
	Occupied
)

// Square is one cell of the board. Piece is meaningful only when Kind is Occupied.
type Square struct {
	Kind  SquareKind
	Piece pieces.Piece
}

// IsEmpty reports whether the square can be entered without combat.
func (s Square) IsEmpty() bool { return s.Kind == Empty }

// IsLake reports whether the square is a lake.
func (s Square) IsLake() bool { return s.Kind == Lake }

// IsOccupied reports whether a piece stands on the square.
func (s Square) IsOccupied() bool { return s.Kind == Occupied }

// OwnedBy reports whether the square holds a piece of color c.
func (s Square) OwnedBy(c pieces.Color) bool {
	return s.Kind == Occupied && s.Piece.Color == c
}

// MarshalJSON encodes empty squares as null, lakes as {"type":"lake"} and pieces as objects.
func (s Square) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case Empty:
		return []byte("null"), nil
	case Lake:
		return []byte(`{"type":"lake"}`), nil
	case Occupied:
		return json.Marshal(s.Piece)
	default:
		return nil, fmt.Errorf("unknown square kind %d", s.Kind)
	}
}

// squareJSON accepts both encodings; presence of each key is checked by the decoder.
type squareJSON struct {
	Type     *string       `json:"type"`
	Rank     *pieces.Rank  `json:"rank"`
	Color    *pieces.Color `json:"color"`
	Revealed bool          `json:"revealed"`
}

// UnmarshalJSON decodes the encoding produced by MarshalJSON. Anything else,
// including objects with missing keys, is rejected with ErrMalformed.
func (s *Square) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Square{Kind: Empty}
		return nil
	}

	var raw squareJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch {
	case raw.Type != nil:
		if *raw.Type != "lake" || raw.Rank != nil || raw.Color != nil {
			return fmt.Errorf("%w: unknown square %s", ErrMalformed, data)
		}
		*s = Square{Kind: Lake}
	case raw.Rank == nil || raw.Color == nil:
		return fmt.Errorf("%w: piece needs rank and color, got %s", ErrMalformed, data)
	case !raw.Rank.Valid():
		return fmt.Errorf("%w: unknown rank %d", ErrMalformed, *raw.Rank)
	default:
		*s = Square{Kind: Occupied, Piece: pieces.Piece{Rank: *raw.Rank, Color: *raw.Color, Revealed: raw.Revealed}}
	}
	return nil
}

// Board is the 10x10 grid. It is a value type: assignment copies the whole grid.
type Board [Size][Size]Square

// CreateEmptyBoard returns a board with lakes at their fixed coordinates and all other squares empty.
func CreateEmptyBoard() Board {
	var b Board
	for _, p := range lakePositions {
		b[p.Row][p.Col] = Square{Kind: Lake}
	}
	return b
}

// IsLake reports whether (row, col) is one of the eight lake coordinates.
func IsLake(row, col int) bool {
	for _, p := range lakePositions {
		if p.Row == row && p.Col == col {
			return true
		}
	}
	return false
}

// LakePositions returns the fixed lake coordinates.
func LakePositions() []Position {
	out := make([]Position, len(lakePositions))
	copy(out, lakePositions[:])
	return out
}

// At returns the square at p. p must be in bounds.
func (b *Board) At(p Position) Square {
	return b[p.Row][p.Col]
}

// Set places a piece at p.
func (b *Board) Set(p Position, piece pieces.Piece) {
	b[p.Row][p.Col] = Square{Kind: Occupied, Piece: piece}
}

// Clear empties the square at p.
func (b *Board) Clear(p Position) {
	b[p.Row][p.Col] = Square{Kind: Empty}
}

// Reveal marks the piece at p as revealed, if any.
func (b *Board) Reveal(p Position) {
	if b[p.Row][p.Col].Kind == Occupied {
		b[p.Row][p.Col].Piece.Reveal()
	}
}

// Each calls fn for every square in row-major order.
func (b *Board) Each(fn func(Position, Square)) {
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			fn(Position{Row: row, Col: col}, b[row][col])
		}
	}
}

// CountPieces returns the number of pieces of color c still on the board.
func (b *Board) CountPieces(c pieces.Color) int {
	n := 0
	b.Each(func(_ Position, sq Square) {
		if sq.OwnedBy(c) {
			n++
		}
	})
	return n
}

// Validate checks the structural invariants: lakes exactly at the lake coordinates,
// every piece with a known rank and color, and no rank exceeding its supply.
func (b *Board) Validate() error {
	var counts [2][pieces.NumRanks]int
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			sq := b[row][col]
			lake := IsLake(row, col)
			switch sq.Kind {
			case Lake:
				if !lake {
					return fmt.Errorf("%w: lake at non-lake square (%d,%d)", ErrMalformed, row, col)
				}
			case Empty:
				if lake {
					return fmt.Errorf("%w: missing lake at (%d,%d)", ErrMalformed, row, col)
				}
			case Occupied:
				if lake {
					return fmt.Errorf("%w: piece on lake (%d,%d)", ErrMalformed, row, col)
				}
				if !sq.Piece.Rank.Valid() || !sq.Piece.Color.Valid() {
					return fmt.Errorf("%w: invalid piece at (%d,%d)", ErrMalformed, row, col)
				}
				counts[sq.Piece.Color][sq.Piece.Rank]++
				if counts[sq.Piece.Color][sq.Piece.Rank] > sq.Piece.Rank.Count() {
					return fmt.Errorf("%w: too many %s %s pieces", ErrMalformed, sq.Piece.Color, sq.Piece.Rank)
				}
			default:
				return fmt.Errorf("%w: unknown square kind %d at (%d,%d)", ErrMalformed, sq.Kind, row, col)
			}
		}
	}
	return nil
}

// String renders the board for logs and test failures.
func (b *Board) String() string {
	var sb strings.Builder
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			sq := b[row][col]
			switch sq.Kind {
			case Lake:
				sb.WriteString(" ~~")
			case Occupied:
				prefix := "r"
				if sq.Piece.Color == pieces.Blue {
					prefix = "b"
				}
				fmt.Fprintf(&sb, " %s%X", prefix, int(sq.Piece.Rank))
			default:
				sb.WriteString(" ..")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

package board

import "fmt"

// Size is the edge length of the square board.
const Size = 10

// Position is a (row, col) coordinate. Row 0 is Blue's back row.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Pos is shorthand for building a Position.
func Pos(row, col int) Position {
	return Position{Row: row, Col: col}
}

// InBounds reports whether the position lies on the board.
func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// Offset returns the position shifted by the given deltas.
func (p Position) Offset(dRow, dCol int) Position {
	return Position{Row: p.Row + dRow, Col: p.Col + dCol}
}

// Distance returns the Manhattan distance between two positions.
func (p Position) Distance(q Position) int {
	return abs(p.Row-q.Row) + abs(p.Col-q.Col)
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Directions are the four orthogonal unit steps: up, down, left, right.
var Directions = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

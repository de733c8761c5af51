package rules

import (
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
)

// Move is a legal {from, to} pair together with the moving rank.
type Move struct {
	From board.Position `json:"from"`
	To   board.Position `json:"to"`
	Rank pieces.Rank    `json:"rank"`
}

// ValidateMove checks whether the piece of color c at from may move to to.
func ValidateMove(b *board.Board, from, to board.Position, c pieces.Color) error {
	if !from.InBounds() || !to.InBounds() {
		return reject(ReasonOutOfBounds, "%s -> %s leaves the board", from, to)
	}

	src := b.At(from)
	if !src.IsOccupied() {
		return reject(ReasonNoPiece, "no piece at %s", from)
	}
	if src.Piece.Color != c {
		return reject(ReasonNotYourPiece, "piece at %s belongs to %s", from, src.Piece.Color)
	}
	rank := src.Piece.Rank
	if !rank.CanMove() {
		return reject(ReasonImmovable, "%s cannot move", rank)
	}
	if board.IsLake(to.Row, to.Col) {
		return reject(ReasonOnLake, "%s is a lake", to)
	}
	if b.At(to).OwnedBy(c) {
		return reject(ReasonOccupiedByOwn, "%s holds a friendly piece", to)
	}

	return validatePattern(b, rank, from, to)
}

func validatePattern(b *board.Board, rank pieces.Rank, from, to board.Position) error {
	dRow := to.Row - from.Row
	dCol := to.Col - from.Col

	if dRow != 0 && dCol != 0 {
		return reject(ReasonIllegalPattern, "diagonal move %s -> %s", from, to)
	}
	if dRow == 0 && dCol == 0 {
		return reject(ReasonIllegalPattern, "piece must leave %s", from)
	}

	if !rank.IsLongRange() {
		if from.Distance(to) != 1 {
			return reject(ReasonIllegalPattern, "%s moves one square at a time", rank)
		}
		return nil
	}

	stepRow, stepCol := sign(dRow), sign(dCol)
	for p := from.Offset(stepRow, stepCol); p != to; p = p.Offset(stepRow, stepCol) {
		sq := b.At(p)
		if sq.IsLake() || sq.IsOccupied() {
			return reject(ReasonBlocked, "path %s -> %s blocked at %s", from, to, p)
		}
	}
	return nil
}

// GetValidMoves returns every legal move for color c, in row-major source order and,
// per piece, in direction order (up, down, left, right) by increasing distance.
func GetValidMoves(b *board.Board, c pieces.Color) []Move {
	var moves []Move
	b.Each(func(pos board.Position, sq board.Square) {
		if sq.OwnedBy(c) && sq.Piece.Rank.CanMove() {
			moves = append(moves, movesForPiece(b, pos, sq.Piece.Rank, c)...)
		}
	})
	return moves
}

// MovesFrom returns the legal moves of the piece at pos, or nil when pos does not
// hold a movable piece of color c.
func MovesFrom(b *board.Board, pos board.Position, c pieces.Color) []Move {
	if !pos.InBounds() {
		return nil
	}
	sq := b.At(pos)
	if !sq.OwnedBy(c) || !sq.Piece.Rank.CanMove() {
		return nil
	}
	return movesForPiece(b, pos, sq.Piece.Rank, c)
}

func movesForPiece(b *board.Board, from board.Position, rank pieces.Rank, c pieces.Color) []Move {
	var moves []Move
	for _, dir := range board.Directions {
		for p := from.Offset(dir[0], dir[1]); p.InBounds(); p = p.Offset(dir[0], dir[1]) {
			sq := b.At(p)
			if sq.IsLake() || sq.OwnedBy(c) {
				break
			}
			moves = append(moves, Move{From: from, To: p, Rank: rank})
			if sq.IsOccupied() || !rank.IsLongRange() {
				break
			}
		}
	}
	return moves
}

// HasMovablePieces reports whether color c has a movable piece with at least one
// adjacent square that is empty or enemy-held. For every rank this agrees with
// GetValidMoves being non-empty, since a long-range move always starts with such a step.
func HasMovablePieces(b *board.Board, c pieces.Color) bool {
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			sq := b[row][col]
			if !sq.OwnedBy(c) || !sq.Piece.Rank.CanMove() {
				continue
			}
			from := board.Pos(row, col)
			for _, dir := range board.Directions {
				p := from.Offset(dir[0], dir[1])
				if !p.InBounds() {
					continue
				}
				target := b.At(p)
				if target.IsEmpty() || (target.IsOccupied() && !target.OwnedBy(c)) {
					return true
				}
			}
		}
	}
	return false
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

package rules

import (
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
)

// ValidateSetup checks a full setup intent for color c. Placements are treated as a set:
// exactly PiecesPerSide entries, each inside c's zone, off every lake, on distinct squares,
// with every rank's count matching its supply.
func ValidateSetup(placements []board.Placement, c pieces.Color) error {
	if len(placements) != pieces.PiecesPerSide {
		return reject(ReasonWrongCount, "expected %d pieces, got %d", pieces.PiecesPerSide, len(placements))
	}

	var counts [pieces.NumRanks]int
	seen := make(map[board.Position]struct{}, len(placements))

	for _, pl := range placements {
		pos := pl.Position()
		if !pl.Rank.Valid() {
			return reject(ReasonUnknownRank, "rank %d at %s", int(pl.Rank), pos)
		}
		if !pos.InBounds() {
			return reject(ReasonOutOfBounds, "%s is off the board", pos)
		}
		if !board.InZone(c, pl.Row) {
			return reject(ReasonOutOfZone, "%s is outside the %s zone", pos, c)
		}
		if board.IsLake(pl.Row, pl.Col) {
			return reject(ReasonOnLake, "%s is a lake", pos)
		}
		if _, dup := seen[pos]; dup {
			return reject(ReasonDuplicateSquare, "%s placed twice", pos)
		}
		seen[pos] = struct{}{}
		counts[pl.Rank]++
	}

	for _, r := range pieces.AllRanks() {
		if counts[r] != r.Count() {
			return reject(ReasonWrongRankCount, "%s: expected %d, got %d", r, r.Count(), counts[r])
		}
	}
	return nil
}

package pieces

import "fmt"

// Rank is a piece's combat-strength class. The numeric value is the wire encoding
// and, for ordinary ranks, the combat ordinal.
type Rank int

const (
	Flag Rank = iota
	Spy
	Scout
	Miner
	Sergeant
	Lieutenant
	Captain
	Major
	Colonel
	General
	Marshal
	Bomb
)

// NumRanks is the size of the closed rank enumeration.
const NumRanks = 12

// PiecesPerSide is the total supply of each color.
const PiecesPerSide = 40

type rankInfo struct {
	name    string
	count   int
	movable bool
}

// rankTable is indexed by Rank and never written after initialization.
var rankTable = [NumRanks]rankInfo{
	Flag:       {name: "Flag", count: 1, movable: false},
	Spy:        {name: "Spy", count: 1, movable: true},
	Scout:      {name: "Scout", count: 8, movable: true},
	Miner:      {name: "Miner", count: 5, movable: true},
	Sergeant:   {name: "Sergeant", count: 4, movable: true},
	Lieutenant: {name: "Lieutenant", count: 4, movable: true},
	Captain:    {name: "Captain", count: 4, movable: true},
	Major:      {name: "Major", count: 3, movable: true},
	Colonel:    {name: "Colonel", count: 2, movable: true},
	General:    {name: "General", count: 1, movable: true},
	Marshal:    {name: "Marshal", count: 1, movable: true},
	Bomb:       {name: "Bomb", count: 6, movable: false},
}

// Valid reports whether r is one of the twelve defined ranks.
func (r Rank) Valid() bool {
	return r >= Flag && r <= Bomb
}

func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("RANK_%d", int(r))
	}
	return rankTable[r].name
}

// Count returns the fixed per-side supply of r.
func (r Rank) Count() int {
	if !r.Valid() {
		return 0
	}
	return rankTable[r].count
}

// CanMove reports whether pieces of this rank may ever leave their square.
func (r Rank) CanMove() bool {
	if !r.Valid() {
		return false
	}
	return rankTable[r].movable
}

// IsLongRange reports whether the rank may travel several squares in one move.
func (r Rank) IsLongRange() bool {
	return r == Scout
}

// AllRanks returns every rank in ordinal order.
func AllRanks() []Rank {
	ranks := make([]Rank, 0, NumRanks)
	for r := Flag; r <= Bomb; r++ {
		ranks = append(ranks, r)
	}
	return ranks
}

// Supply returns a fresh copy of the per-rank supply table.
func Supply() map[Rank]int {
	supply := make(map[Rank]int, NumRanks)
	for r := Flag; r <= Bomb; r++ {
		supply[r] = rankTable[r].count
	}
	return supply
}

// ParseRank converts a wire integer into a Rank.
func ParseRank(v int) (Rank, error) {
	r := Rank(v)
	if !r.Valid() {
		return 0, fmt.Errorf("unknown rank %d", v)
	}
	return r, nil
}

package ai

import (
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
)

// setupPlanner tracks the zone squares still free while a setup is built.
type setupPlanner struct {
	o      *Opponent
	color  pieces.Color
	free   []board.Position
	supply map[pieces.Rank]int
	out    []board.Placement
}

// GenerateSetup produces a full 40-piece setup for color c that always passes
// rules.ValidateSetup. The flag goes in a middle back-row column behind bombs,
// strong pieces sit on the second row, and miners, scouts and the spy lean forward.
func (o *Opponent) GenerateSetup(c pieces.Color) []board.Placement {
	o.mu.Lock()
	defer o.mu.Unlock()

	p := &setupPlanner{
		o:      o,
		color:  c,
		free:   board.ZonePositions(c),
		supply: pieces.Supply(),
		out:    make([]board.Placement, 0, pieces.PiecesPerSide),
	}
	o.rng.Shuffle(len(p.free), func(i, j int) { p.free[i], p.free[j] = p.free[j], p.free[i] })

	back := board.BackRow(c)
	second := board.ZoneRow(c, 1)
	third := board.ZoneRow(c, 2)
	front := board.FrontRow(c)

	flagCol := 2 + o.rng.Intn(6)
	p.placeAt(board.Pos(back, flagCol), pieces.Flag)

	for _, guard := range []board.Position{
		board.Pos(back, flagCol-1),
		board.Pos(back, flagCol+1),
		board.Pos(back+board.Forward(c), flagCol),
	} {
		if p.supply[pieces.Bomb] == 0 {
			break
		}
		p.placeAt(guard, pieces.Bomb)
	}

	p.fill(pieces.Bomb, back, second)
	for _, r := range []pieces.Rank{pieces.Marshal, pieces.General, pieces.Colonel, pieces.Major} {
		p.fill(r, second)
	}
	p.fill(pieces.Miner, front, third)
	p.fill(pieces.Scout, front)
	p.fill(pieces.Spy, front, third)

	for _, r := range pieces.AllRanks() {
		p.fill(r)
	}
	return p.out
}

// placeAt puts rank r on pos if the square is still free. It reports whether it did.
func (p *setupPlanner) placeAt(pos board.Position, r pieces.Rank) bool {
	for i, f := range p.free {
		if f == pos {
			p.take(i, r)
			return true
		}
	}
	return false
}

// fill places every remaining piece of rank r, preferring the given rows and falling
// back to any free square once the preferred rows are full. No rows means anywhere.
func (p *setupPlanner) fill(r pieces.Rank, rows ...int) {
	for p.supply[r] > 0 && len(p.free) > 0 {
		candidates := p.preferred(rows)
		if len(candidates) == 0 {
			candidates = make([]int, len(p.free))
			for i := range p.free {
				candidates[i] = i
			}
		}
		p.take(candidates[p.o.rng.Intn(len(candidates))], r)
	}
}

func (p *setupPlanner) preferred(rows []int) []int {
	if len(rows) == 0 {
		return nil
	}
	var idx []int
	for i, pos := range p.free {
		for _, row := range rows {
			if pos.Row == row {
				idx = append(idx, i)
				break
			}
		}
	}
	return idx
}

func (p *setupPlanner) take(i int, r pieces.Rank) {
	pos := p.free[i]
	p.free = append(p.free[:i], p.free[i+1:]...)
	p.supply[r]--
	p.out = append(p.out, board.Placement{Row: pos.Row, Col: pos.Col, Rank: r})
}

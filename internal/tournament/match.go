package tournament

import (
	"context"
	"fmt"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// How a match ended.
const (
	EndFlagCaptured = "flag_captured"
	EndImmobilized  = "immobilized"
	EndMoveLimit    = "move_limit"
)

// MatchResult is the outcome of one computer-vs-computer game.
type MatchResult struct {
	Red    string
	Blue   string
	Winner *pieces.Color
	Moves  int
	Reason string
}

// WinnerName returns the winning entrant's name, or "" for a draw.
func (r MatchResult) WinnerName() string {
	if r.Winner == nil {
		return ""
	}
	if *r.Winner == pieces.Red {
		return r.Red
	}
	return r.Blue
}

// PlayMatch plays red against blue through the rules engine until one side wins
// or maxMoves moves have been made, which counts as a draw. A zero seed seeds both
// opponents from the clock.
func PlayMatch(ctx context.Context, red, blue Entrant, seed uint64, maxMoves int, logger *zap.Logger) (MatchResult, error) {
	var redSeed, blueSeed uint64
	if seed != 0 {
		redSeed, blueSeed = seed*2+1, seed*2+2
	}
	players := map[pieces.Color]struct {
		entrant  Entrant
		opponent *ai.Opponent
	}{
		pieces.Red:  {red, ai.NewSeededOpponent(redSeed, logger)},
		pieces.Blue: {blue, ai.NewSeededOpponent(blueSeed, logger)},
	}

	state := rules.NewGameState()
	if err := state.BeginSetup(); err != nil {
		return MatchResult{}, err
	}
	for _, c := range []pieces.Color{pieces.Red, pieces.Blue} {
		if err := state.SubmitSetup(players[c].opponent.GenerateSetup(c), c); err != nil {
			return MatchResult{}, fmt.Errorf("%s setup: %w", players[c].entrant.Name, err)
		}
	}

	result := MatchResult{Red: red.Name, Blue: blue.Name, Reason: EndMoveLimit}
	var last rules.MoveRecord
	for state.Phase == rules.PhaseInProgress && state.MoveCount < maxMoves {
		if err := ctx.Err(); err != nil {
			return MatchResult{}, err
		}
		p := players[state.CurrentTurn]
		mv, ok := p.opponent.SelectMove(state, p.entrant.Difficulty)
		if !ok {
			return MatchResult{}, fmt.Errorf("%s has no move in a running game", p.entrant.Name)
		}
		rec, err := state.ExecuteMove(mv.From, mv.To, state.CurrentTurn)
		if err != nil {
			return MatchResult{}, fmt.Errorf("%s chose an illegal move: %w", p.entrant.Name, err)
		}
		last = rec
	}

	result.Moves = state.MoveCount
	if state.Phase == rules.PhaseFinished {
		winner := *state.Winner
		result.Winner = &winner
		result.Reason = EndImmobilized
		if last.CapturedRank != nil && *last.CapturedRank == pieces.Flag && last.Result == rules.ResultWin {
			result.Reason = EndFlagCaptured
		}
	}
	return result, nil
}

package game

import (
	"time"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
)

// GameSummary is the public, rank-free description of a game used by lobby listings.
type GameSummary struct {
	GameID      string        `json:"game_id"`
	RedPlayer   string        `json:"red_player"`
	BluePlayer  string        `json:"blue_player,omitempty"`
	VsAI        bool          `json:"vs_ai"`
	Difficulty  ai.Difficulty `json:"difficulty,omitempty"`
	Phase       rules.Phase   `json:"phase"`
	CurrentTurn pieces.Color  `json:"current_turn"`
	Winner      *pieces.Color `json:"winner,omitempty"`
	ForfeitedBy *pieces.Color `json:"forfeited_by,omitempty"`
	MoveCount   int           `json:"move_count"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// GameView is everything one player may see of a game.
type GameView struct {
	GameSummary
	PlayerColor           pieces.Color       `json:"player_color"`
	IsMyTurn              bool               `json:"is_my_turn"`
	MySetupComplete       bool               `json:"my_setup_complete"`
	OpponentSetupComplete bool               `json:"opponent_setup_complete"`
	Board                 rules.VisibleBoard `json:"board"`
	Moves                 []VisibleMove      `json:"moves"`
}

// VisibleMove is a move log entry as one player may see it. The moving rank of an
// opponent's plain move stays hidden; attacks reveal both ranks.
type VisibleMove struct {
	Sequence     int              `json:"sequence"`
	Color        pieces.Color     `json:"color"`
	Rank         *pieces.Rank     `json:"rank,omitempty"`
	From         board.Position   `json:"from"`
	To           board.Position   `json:"to"`
	CapturedRank *pieces.Rank     `json:"captured_rank,omitempty"`
	Result       rules.MoveResult `json:"result"`
	GameOver     bool             `json:"game_over"`
}

// ProjectMove hides what viewer is not entitled to know about rec.
func ProjectMove(rec rules.MoveRecord, viewer pieces.Color) VisibleMove {
	vm := VisibleMove{
		Sequence: rec.Sequence,
		Color:    rec.Color,
		From:     rec.From,
		To:       rec.To,
		Result:   rec.Result,
		GameOver: rec.GameOver,
	}
	if rec.Color == viewer || rec.CapturedRank != nil {
		rank := rec.Rank
		vm.Rank = &rank
	}
	if rec.CapturedRank != nil {
		captured := *rec.CapturedRank
		vm.CapturedRank = &captured
	}
	return vm
}

func projectMoves(recs []rules.MoveRecord, viewer pieces.Color) []VisibleMove {
	out := make([]VisibleMove, len(recs))
	for i, rec := range recs {
		out[i] = ProjectMove(rec, viewer)
	}
	return out
}

func (g *gameEntry) summary() GameSummary {
	s := GameSummary{
		GameID:      g.id,
		RedPlayer:   g.redPlayer,
		BluePlayer:  g.bluePlayer,
		VsAI:        g.vsAI,
		Phase:       g.state.Phase,
		CurrentTurn: g.state.CurrentTurn,
		MoveCount:   g.state.MoveCount,
		Version:     g.version,
		CreatedAt:   g.createdAt,
		UpdatedAt:   g.updatedAt,
	}
	if g.vsAI {
		s.Difficulty = g.difficulty
	}
	if g.state.Winner != nil {
		w := *g.state.Winner
		s.Winner = &w
	}
	if g.state.ForfeitedBy != nil {
		f := *g.state.ForfeitedBy
		s.ForfeitedBy = &f
	}
	return s
}

func (g *gameEntry) view(viewer pieces.Color) *GameView {
	return &GameView{
		GameSummary:           g.summary(),
		PlayerColor:           viewer,
		IsMyTurn:              g.state.Phase == rules.PhaseInProgress && g.state.CurrentTurn == viewer,
		MySetupComplete:       g.state.SetupComplete(viewer),
		OpponentSetupComplete: g.state.SetupComplete(viewer.Opponent()),
		Board:                 rules.GetBoardForPlayer(&g.state.Board, viewer),
		Moves:                 projectMoves(g.moves, viewer),
	}
}

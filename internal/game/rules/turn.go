package rules

import (
	"fmt"

	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
)

// ErrMalformedBoard is returned (wrapped) when a mutating operation is handed a
// structurally invalid board.
var ErrMalformedBoard = board.ErrMalformed

// Phase is the lifecycle stage of a game.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseSetup      Phase = "setup"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
	PhaseAbandoned  Phase = "abandoned"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseAbandoned
}

func (p Phase) valid() bool {
	switch p {
	case PhaseWaiting, PhaseSetup, PhaseInProgress, PhaseFinished, PhaseAbandoned:
		return true
	}
	return false
}

// MoveResult tags what happened on a move.
type MoveResult string

const (
	ResultMove MoveResult = "move"
	ResultWin  MoveResult = "win"
	ResultLose MoveResult = "lose"
	ResultDraw MoveResult = "draw"
)

func resultFor(o Outcome) MoveResult {
	switch o {
	case AttackerWins:
		return ResultWin
	case DefenderWins:
		return ResultLose
	default:
		return ResultDraw
	}
}

// MoveRecord is an immutable log entry. CapturedRank holds the defender's rank
// whenever the move was an attack, regardless of who won.
type MoveRecord struct {
	Sequence     int            `json:"sequence"`
	Color        pieces.Color   `json:"color"`
	Rank         pieces.Rank    `json:"rank"`
	From         board.Position `json:"from"`
	To           board.Position `json:"to"`
	CapturedRank *pieces.Rank   `json:"captured_rank,omitempty"`
	Result       MoveResult     `json:"result"`
	GameOver     bool           `json:"game_over"`
}

// GameState is the serializable state of one game. Only the methods below mutate it.
type GameState struct {
	Board             board.Board   `json:"board"`
	Phase             Phase         `json:"phase"`
	CurrentTurn       pieces.Color  `json:"current_turn"`
	Winner            *pieces.Color `json:"winner,omitempty"`
	ForfeitedBy       *pieces.Color `json:"forfeited_by,omitempty"`
	RedSetupComplete  bool          `json:"red_setup_complete"`
	BlueSetupComplete bool          `json:"blue_setup_complete"`
	MoveCount         int           `json:"move_count"`
}

// NewGameState creates a game waiting for its second player, on an empty board.
func NewGameState() *GameState {
	return &GameState{
		Board:       board.CreateEmptyBoard(),
		Phase:       PhaseWaiting,
		CurrentTurn: pieces.FirstMover,
	}
}

// SetupComplete reports whether color c has submitted its setup.
func (s *GameState) SetupComplete(c pieces.Color) bool {
	if c == pieces.Red {
		return s.RedSetupComplete
	}
	return s.BlueSetupComplete
}

func (s *GameState) markSetupComplete(c pieces.Color) {
	if c == pieces.Red {
		s.RedSetupComplete = true
	} else {
		s.BlueSetupComplete = true
	}
}

// BeginSetup moves a waiting game into the setup phase once both seats are filled.
func (s *GameState) BeginSetup() error {
	if s.Phase != PhaseWaiting {
		return reject(ReasonWrongPhase, "cannot begin setup from %s", s.Phase)
	}
	s.Phase = PhaseSetup
	return nil
}

// SubmitSetup validates and places color c's pieces. When both colors are done the
// game moves to InProgress with the first mover to play.
func (s *GameState) SubmitSetup(placements []board.Placement, c pieces.Color) error {
	if s.Phase != PhaseSetup {
		return reject(ReasonWrongPhase, "setup not allowed in %s", s.Phase)
	}
	if s.SetupComplete(c) {
		return reject(ReasonSetupAlreadyComplete, "%s already placed its pieces", c)
	}
	if err := s.Board.Validate(); err != nil {
		return fmt.Errorf("submit setup: %w", err)
	}
	if err := ValidateSetup(placements, c); err != nil {
		return err
	}

	s.Board = board.PlacePieces(s.Board, placements, c)
	s.markSetupComplete(c)

	if s.RedSetupComplete && s.BlueSetupComplete {
		s.Phase = PhaseInProgress
		s.CurrentTurn = pieces.FirstMover
	}
	return nil
}

// ExecuteMove validates and applies one move by color c and returns its record.
// On any error the state is unchanged. The call is not idempotent.
func (s *GameState) ExecuteMove(from, to board.Position, c pieces.Color) (MoveRecord, error) {
	if s.Phase != PhaseInProgress {
		return MoveRecord{}, reject(ReasonWrongPhase, "moves not allowed in %s", s.Phase)
	}
	if s.CurrentTurn != c {
		return MoveRecord{}, reject(ReasonNotYourTurn, "it is %s's turn", s.CurrentTurn)
	}
	if err := s.Board.Validate(); err != nil {
		return MoveRecord{}, fmt.Errorf("execute move: %w", err)
	}
	if err := ValidateMove(&s.Board, from, to, c); err != nil {
		return MoveRecord{}, err
	}

	next := s.Board
	attacker := next.At(from).Piece
	target := next.At(to)

	rec := MoveRecord{
		Color:  c,
		Rank:   attacker.Rank,
		From:   from,
		To:     to,
		Result: ResultMove,
	}

	flagTaken := false
	if !target.IsOccupied() {
		next.Set(to, attacker)
		next.Clear(from)
	} else {
		defender := target.Piece
		outcome := Combat(attacker.Rank, defender.Rank)
		attacker.Reveal()
		defender.Reveal()

		captured := defender.Rank
		rec.CapturedRank = &captured
		rec.Result = resultFor(outcome)

		switch outcome {
		case AttackerWins:
			next.Set(to, attacker)
			next.Clear(from)
			flagTaken = defender.Rank == pieces.Flag
		case DefenderWins:
			next.Clear(from)
			next.Set(to, defender)
		case Draw:
			next.Clear(from)
			next.Clear(to)
		}
	}

	s.Board = next
	s.MoveCount++
	rec.Sequence = s.MoveCount

	switch {
	case flagTaken:
		s.finish(c)
	case !HasMovablePieces(&s.Board, c.Opponent()):
		s.finish(c)
	default:
		s.CurrentTurn = c.Opponent()
	}
	rec.GameOver = s.Phase == PhaseFinished

	return rec, nil
}

func (s *GameState) finish(winner pieces.Color) {
	w := winner
	s.Winner = &w
	s.Phase = PhaseFinished
}

// Forfeit abandons a game in Setup or InProgress on behalf of color c.
// The winner stays unset; ForfeitedBy records who left.
func (s *GameState) Forfeit(c pieces.Color) error {
	if s.Phase != PhaseSetup && s.Phase != PhaseInProgress {
		return reject(ReasonWrongPhase, "cannot forfeit in %s", s.Phase)
	}
	who := c
	s.ForfeitedBy = &who
	s.Phase = PhaseAbandoned
	return nil
}

// Clone returns a deep copy.
func (s *GameState) Clone() *GameState {
	cp := *s
	if s.Winner != nil {
		w := *s.Winner
		cp.Winner = &w
	}
	if s.ForfeitedBy != nil {
		f := *s.ForfeitedBy
		cp.ForfeitedBy = &f
	}
	return &cp
}

// Validate checks the state-level invariants on top of the board's structural ones.
func (s *GameState) Validate() error {
	if !s.Phase.valid() {
		return fmt.Errorf("unknown phase %q", s.Phase)
	}
	if !s.CurrentTurn.Valid() {
		return fmt.Errorf("invalid current turn %d", int(s.CurrentTurn))
	}
	if (s.Winner != nil) != (s.Phase == PhaseFinished) {
		return fmt.Errorf("winner must be set exactly when the game is finished (phase %s)", s.Phase)
	}
	if s.Phase == PhaseInProgress && !(s.RedSetupComplete && s.BlueSetupComplete) {
		return fmt.Errorf("game in progress before both setups completed")
	}
	return s.Board.Validate()
}

package ai

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
)

// pieceValue weights ranks for move scoring. The flag dwarfs everything else.
var pieceValue = [pieces.NumRanks]float64{
	pieces.Flag:       1000,
	pieces.Spy:        25,
	pieces.Scout:      10,
	pieces.Miner:      30,
	pieces.Sergeant:   15,
	pieces.Lieutenant: 20,
	pieces.Captain:    25,
	pieces.Major:      35,
	pieces.Colonel:    45,
	pieces.General:    60,
	pieces.Marshal:    80,
	pieces.Bomb:       40,
}

const (
	winBonus         = 100.0
	flagCaptureBonus = 10000.0
	lossPenalty      = 50.0
	advanceBonus     = 5.0
	overExtension    = 20.0
	scoutStepBonus   = 2.0
)

// ScoredMove pairs a legal move with its heuristic score.
type ScoredMove struct {
	Move  rules.Move
	Score float64
}

// Opponent is the computer player. All randomness comes from the injected source so
// a fixed seed reproduces setups and move choices exactly.
type Opponent struct {
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewOpponent creates an opponent drawing from rng. A nil rng is seeded from the clock.
func NewOpponent(rng *rand.Rand, logger *zap.Logger) *Opponent {
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Opponent{logger: logger, rng: rng}
}

// NewSeededOpponent creates an opponent with a deterministic source. Seed 0 means time-seeded.
func NewSeededOpponent(seed uint64, logger *zap.Logger) *Opponent {
	if seed == 0 {
		return NewOpponent(nil, logger)
	}
	return NewOpponent(rand.New(rand.NewSource(seed)), logger)
}

// SelectMove picks a move for the color whose turn it is. It returns false when the
// game is not in progress or that color has no legal move. The state is only read.
func (o *Opponent) SelectMove(state *rules.GameState, d Difficulty) (rules.Move, bool) {
	if state == nil || state.Phase != rules.PhaseInProgress {
		return rules.Move{}, false
	}
	color := state.CurrentTurn
	scored := o.ScoreMoves(&state.Board, color)
	if len(scored) == 0 {
		return rules.Move{}, false
	}

	k := d.candidates(len(scored))
	o.mu.Lock()
	pick := scored[o.rng.Intn(k)]
	o.mu.Unlock()

	o.logger.Debug("ai selected move",
		zap.String("color", color.String()),
		zap.String("difficulty", string(d)),
		zap.String("from", pick.Move.From.String()),
		zap.String("to", pick.Move.To.String()),
		zap.Float64("score", pick.Score),
		zap.Int("candidates", k),
		zap.Int("legal_moves", len(scored)),
	)
	return pick.Move, true
}

// ScoreMoves scores every legal move for c, perturbed by the random source, best first.
func (o *Opponent) ScoreMoves(b *board.Board, c pieces.Color) []ScoredMove {
	moves := rules.GetValidMoves(b, c)
	scored := make([]ScoredMove, len(moves))

	o.mu.Lock()
	for i, m := range moves {
		scored[i] = ScoredMove{
			Move:  m,
			Score: Evaluate(b, m, c) + float64(o.rng.Intn(11))/10,
		}
	}
	o.mu.Unlock()

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Evaluate is the deterministic part of a move's score for color c.
func Evaluate(b *board.Board, m rules.Move, c pieces.Color) float64 {
	score := 0.0
	attacker := m.Rank

	if target := b.At(m.To); target.IsOccupied() && target.Piece.Color != c {
		if target.Piece.Revealed {
			score += knownAttack(attacker, target.Piece.Rank)
		} else {
			score += unknownAttack(attacker)
		}
	}

	score += positional(m, c)

	if attacker.IsLongRange() {
		score += float64(m.From.Distance(m.To)) * scoutStepBonus
	}
	return score
}

func knownAttack(attacker, defender pieces.Rank) float64 {
	switch rules.Combat(attacker, defender) {
	case rules.AttackerWins:
		score := winBonus + pieceValue[defender]
		if defender == pieces.Flag {
			score += flagCaptureBonus
		}
		return score
	case rules.DefenderWins:
		return -(lossPenalty + pieceValue[attacker])
	default:
		return pieceValue[defender] - pieceValue[attacker]
	}
}

// unknownAttack guesses at an attack on a hidden piece. The marshal holds back for fear
// of bombs and the spy; miners and scouts are happy to probe.
func unknownAttack(attacker pieces.Rank) float64 {
	switch attacker {
	case pieces.Marshal:
		return -20
	case pieces.Miner:
		return 30
	case pieces.Scout:
		return 15
	default:
		return 10 - pieceValue[attacker]/5
	}
}

func positional(m rules.Move, c pieces.Color) float64 {
	score := 0.0
	if (m.To.Row-m.From.Row)*board.Forward(c) > 0 {
		score += advanceBonus
	}

	score += 10 - math.Abs(float64(m.To.Col)-4.5)*2

	if (m.Rank == pieces.Marshal || m.Rank == pieces.General) && deepInEnemyTerritory(m.To.Row, c) {
		score -= overExtension
	}
	return score
}

// deepInEnemyTerritory reports whether row lies beyond the opponent's front row.
func deepInEnemyTerritory(row int, c pieces.Color) bool {
	if c == pieces.Blue {
		return row > 6
	}
	return row < 3
}

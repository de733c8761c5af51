package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
	"go.uber.org/zap"
)

// AIPlayerID occupies the computer's seat in games against the AI.
const AIPlayerID = "ai"

// AIColor is the side the computer plays. The human creator is always Red.
const AIColor = pieces.Blue

// gameEntry is one hosted game. mu serializes every read and write of the fields below it.
type gameEntry struct {
	mu sync.Mutex

	id         string
	redPlayer  string
	bluePlayer string
	vsAI       bool
	difficulty ai.Difficulty
	state      *rules.GameState
	moves      []rules.MoveRecord
	version    int64
	createdAt  time.Time
	updatedAt  time.Time
}

func (g *gameEntry) colorOf(playerID string) (pieces.Color, error) {
	switch {
	case playerID == "":
		return 0, ErrInvalidPlayer
	case playerID == g.redPlayer:
		return pieces.Red, nil
	case playerID == g.bluePlayer && !g.vsAI:
		return pieces.Blue, nil
	default:
		return 0, ErrNotParticipant
	}
}

func (g *gameEntry) touch(now time.Time) {
	g.version++
	g.updatedAt = now
}

// Options configures an Engine. Zero values are usable.
type Options struct {
	// Opponent plays the computer seat. A time-seeded opponent is created when nil.
	Opponent *ai.Opponent
	// Replays records per-move frames. Recording is off when nil.
	Replays *ReplayRecorder
	// DefaultDifficulty applies to AI games created without one.
	DefaultDifficulty ai.Difficulty
	// Clock overrides time.Now, mainly for tests.
	Clock func() time.Time
	// ComputerSetup overrides the computer's placements. Opponent.GenerateSetup is used when nil.
	ComputerSetup func(pieces.Color) []board.Placement
}

// GameOptions are the choices made when creating a game.
type GameOptions struct {
	VsAI       bool
	Difficulty ai.Difficulty
}

// MoveOutcome is the result of a player's move, plus the computer's reply in AI games.
type MoveOutcome struct {
	Move  rules.MoveRecord `json:"move"`
	Reply *VisibleMove     `json:"reply,omitempty"`
	View  *GameView        `json:"view"`
}

// Engine hosts many independent games. Each game is guarded by its own mutex so
// operations on different games run in parallel while a single game sees at most
// one mutation at a time.
type Engine struct {
	logger            *zap.Logger
	opponent          *ai.Opponent
	replays           *ReplayRecorder
	defaultDifficulty ai.Difficulty
	clock             func() time.Time
	setupFor          func(pieces.Color) []board.Placement

	mu                  sync.RWMutex
	games               map[string]*gameEntry
	notificationHandler NotificationHandler
}

// NewEngine creates a new Engine instance
func NewEngine(logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Opponent == nil {
		opts.Opponent = ai.NewOpponent(nil, logger)
	}
	if opts.DefaultDifficulty == "" {
		opts.DefaultDifficulty = ai.DefaultDifficulty
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ComputerSetup == nil {
		opts.ComputerSetup = opts.Opponent.GenerateSetup
	}
	return &Engine{
		logger:            logger,
		opponent:          opts.Opponent,
		replays:           opts.Replays,
		defaultDifficulty: opts.DefaultDifficulty,
		clock:             opts.Clock,
		setupFor:          opts.ComputerSetup,
		games:             make(map[string]*gameEntry),
	}
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}

func (e *Engine) lookup(gameID string) (*gameEntry, error) {
	e.mu.RLock()
	g, ok := e.games[gameID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g, nil
}

func checkPlayer(playerID string) error {
	if playerID == "" || playerID == AIPlayerID {
		return ErrInvalidPlayer
	}
	return nil
}

// CreateGame opens a new game with playerID in the Red seat. Games against the
// computer fill the Blue seat immediately and start in the setup phase.
func (e *Engine) CreateGame(playerID string, opts GameOptions) (GameSummary, error) {
	if err := checkPlayer(playerID); err != nil {
		return GameSummary{}, err
	}

	difficulty := e.defaultDifficulty
	if opts.Difficulty != "" {
		d, err := ai.ParseDifficulty(string(opts.Difficulty))
		if err != nil {
			return GameSummary{}, err
		}
		difficulty = d
	}

	now := e.now()
	g := &gameEntry{
		id:         uuid.NewString(),
		redPlayer:  playerID,
		vsAI:       opts.VsAI,
		difficulty: difficulty,
		state:      rules.NewGameState(),
		version:    1,
		createdAt:  now,
		updatedAt:  now,
	}
	if opts.VsAI {
		g.bluePlayer = AIPlayerID
		if err := g.state.BeginSetup(); err != nil {
			return GameSummary{}, err
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e.mu.Lock()
	e.games[g.id] = g
	e.mu.Unlock()

	if e.replays != nil {
		e.replays.Begin(g.id)
	}
	e.recordFrame(g)

	e.logger.Info("game created",
		zap.String("game_id", g.id),
		zap.String("player_id", playerID),
		zap.Bool("vs_ai", opts.VsAI),
		zap.String("difficulty", string(difficulty)),
	)
	e.notify(g, NotifyGameCreated, playerID, map[string]interface{}{
		"vs_ai": opts.VsAI,
	})

	return g.summary(), nil
}

// JoinGame seats playerID as Blue in a waiting game and moves it to setup.
func (e *Engine) JoinGame(gameID, playerID string) (GameSummary, error) {
	if err := checkPlayer(playerID); err != nil {
		return GameSummary{}, err
	}
	g, err := e.lookup(gameID)
	if err != nil {
		return GameSummary{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch {
	case g.vsAI:
		return GameSummary{}, ErrAIGame
	case g.state.Phase != rules.PhaseWaiting || g.bluePlayer != "":
		return GameSummary{}, ErrGameFull
	case g.redPlayer == playerID:
		return GameSummary{}, ErrOwnGame
	}

	if err := g.state.BeginSetup(); err != nil {
		return GameSummary{}, err
	}
	g.bluePlayer = playerID
	g.touch(e.now())
	e.recordFrame(g)

	e.logger.Info("player joined game",
		zap.String("game_id", gameID),
		zap.String("player_id", playerID),
	)
	e.notify(g, NotifyPlayerJoined, playerID, map[string]interface{}{
		"color": pieces.Blue.String(),
	})

	return g.summary(), nil
}

// SubmitSetup places the caller's 40 pieces. In a game against the computer the AI
// places its own pieces right after the human does.
func (e *Engine) SubmitSetup(gameID, playerID string, placements []board.Placement) (*GameView, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	color, err := g.colorOf(playerID)
	if err != nil {
		return nil, err
	}

	// Both setups go onto a copy so a failure leaves the game untouched.
	next := g.state.Clone()
	if err := next.SubmitSetup(placements, color); err != nil {
		e.logger.Debug("setup rejected",
			zap.String("game_id", gameID),
			zap.String("player_id", playerID),
			zap.Error(err),
		)
		return nil, err
	}
	computerPlaced := false
	if g.vsAI && !next.SetupComplete(AIColor) {
		if err := next.SubmitSetup(e.setupFor(AIColor), AIColor); err != nil {
			e.logger.Error("computer setup rejected",
				zap.String("game_id", gameID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("computer setup: %w", err)
		}
		computerPlaced = true
	}
	g.state = next

	g.touch(e.now())
	e.notify(g, NotifySetupComplete, playerID, map[string]interface{}{
		"color": color.String(),
	})
	if computerPlaced {
		g.touch(e.now())
		e.notify(g, NotifySetupComplete, "", map[string]interface{}{
			"color": AIColor.String(),
		})
	}

	e.recordFrame(g)
	if g.state.Phase == rules.PhaseInProgress {
		e.logger.Info("game started", zap.String("game_id", gameID))
		e.notify(g, NotifyGameStarted, "", map[string]interface{}{
			"current_turn": g.state.CurrentTurn.String(),
		})
	}

	return g.view(color), nil
}

// MakeMove executes a move for playerID. In a game against the computer the AI
// replies in the same call while the game is still running.
func (e *Engine) MakeMove(gameID, playerID string, from, to board.Position) (*MoveOutcome, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	color, err := g.colorOf(playerID)
	if err != nil {
		return nil, err
	}

	rec, err := e.applyMove(g, playerID, from, to, color)
	if err != nil {
		return nil, err
	}
	outcome := &MoveOutcome{Move: rec}

	if g.vsAI && g.state.Phase == rules.PhaseInProgress && g.state.CurrentTurn == AIColor {
		reply, ok, err := e.playComputerMove(g)
		if err != nil {
			return nil, err
		}
		if ok {
			projected := ProjectMove(reply, color)
			outcome.Reply = &projected
		}
	}

	outcome.View = g.view(color)
	return outcome, nil
}

// applyMove runs one move through the rules and publishes it. g.mu must be held.
func (e *Engine) applyMove(g *gameEntry, playerID string, from, to board.Position, color pieces.Color) (rules.MoveRecord, error) {
	rec, err := g.state.ExecuteMove(from, to, color)
	if err != nil {
		e.logger.Debug("move rejected",
			zap.String("game_id", g.id),
			zap.String("color", color.String()),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err),
		)
		return rules.MoveRecord{}, err
	}

	g.moves = append(g.moves, rec)
	g.touch(e.now())
	e.recordFrame(g)

	e.logger.Debug("move executed",
		zap.String("game_id", g.id),
		zap.Int("sequence", rec.Sequence),
		zap.String("color", color.String()),
		zap.String("result", string(rec.Result)),
	)
	e.notify(g, NotifyMoveMade, playerID, moveData(rec))

	if rec.GameOver {
		e.finishGame(g)
	}
	return rec, nil
}

// playComputerMove lets the AI choose and execute its move. g.mu must be held.
func (e *Engine) playComputerMove(g *gameEntry) (rules.MoveRecord, bool, error) {
	move, ok := e.opponent.SelectMove(g.state, g.difficulty)
	if !ok {
		e.logger.Warn("computer has no legal move", zap.String("game_id", g.id))
		return rules.MoveRecord{}, false, nil
	}
	rec, err := e.applyMove(g, "", move.From, move.To, AIColor)
	if err != nil {
		return rules.MoveRecord{}, false, fmt.Errorf("computer move: %w", err)
	}
	return rec, true, nil
}

func (e *Engine) finishGame(g *gameEntry) {
	winner := ""
	if g.state.Winner != nil {
		winner = g.state.Winner.String()
	}
	e.logger.Info("game over",
		zap.String("game_id", g.id),
		zap.String("winner", winner),
		zap.Int("moves", g.state.MoveCount),
	)
	e.notify(g, NotifyGameOver, "", map[string]interface{}{
		"winner": winner,
	})
	e.saveReplay(g)
}

// Forfeit abandons a game in setup or in progress on behalf of playerID.
func (e *Engine) Forfeit(gameID, playerID string) (GameSummary, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return GameSummary{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	color, err := g.colorOf(playerID)
	if err != nil {
		return GameSummary{}, err
	}
	if err := g.state.Forfeit(color); err != nil {
		return GameSummary{}, err
	}
	g.touch(e.now())
	e.recordFrame(g)

	e.logger.Info("game forfeited",
		zap.String("game_id", gameID),
		zap.String("player_id", playerID),
		zap.String("color", color.String()),
	)
	e.notify(g, NotifyGameAbandoned, playerID, map[string]interface{}{
		"forfeited_by": color.String(),
	})
	e.saveReplay(g)

	return g.summary(), nil
}

// ValidMoves lists the legal moves of the caller's piece at pos. The result is
// advisory and empty for empty or enemy squares and outside the playing phase.
func (e *Engine) ValidMoves(gameID, playerID string, pos board.Position) ([]rules.Move, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	color, err := g.colorOf(playerID)
	if err != nil {
		return nil, err
	}
	if g.state.Phase != rules.PhaseInProgress {
		return []rules.Move{}, nil
	}
	moves := rules.MovesFrom(&g.state.Board, pos, color)
	if moves == nil {
		moves = []rules.Move{}
	}
	return moves, nil
}

// GetGameView returns the game as playerID is allowed to see it.
func (e *Engine) GetGameView(gameID, playerID string) (*GameView, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	color, err := g.colorOf(playerID)
	if err != nil {
		return nil, err
	}
	return g.view(color), nil
}

// MoveHistory returns the move log projected for playerID.
func (e *Engine) MoveHistory(gameID, playerID string) ([]VisibleMove, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	color, err := g.colorOf(playerID)
	if err != nil {
		return nil, err
	}
	return projectMoves(g.moves, color), nil
}

// ListOpenGames returns human games waiting for a second player, newest first.
func (e *Engine) ListOpenGames() []GameSummary {
	out := e.collect(func(g *gameEntry) bool {
		return !g.vsAI && g.state.Phase == rules.PhaseWaiting && g.bluePlayer == ""
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ListGamesForPlayer returns every game playerID is seated in, most recently updated first.
func (e *Engine) ListGamesForPlayer(playerID string) []GameSummary {
	out := e.collect(func(g *gameEntry) bool {
		return playerID != "" && (g.redPlayer == playerID || g.bluePlayer == playerID)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (e *Engine) collect(match func(*gameEntry) bool) []GameSummary {
	e.mu.RLock()
	entries := make([]*gameEntry, 0, len(e.games))
	for _, g := range e.games {
		entries = append(entries, g)
	}
	e.mu.RUnlock()

	out := make([]GameSummary, 0)
	for _, g := range entries {
		g.mu.Lock()
		if match(g) {
			out = append(out, g.summary())
		}
		g.mu.Unlock()
	}
	return out
}

// RemoveGame drops a game from memory, typically after it has been persisted and finished.
func (e *Engine) RemoveGame(gameID string) error {
	e.mu.Lock()
	_, ok := e.games[gameID]
	delete(e.games, gameID)
	e.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if e.replays != nil {
		e.replays.Discard(gameID)
	}
	e.logger.Debug("game removed", zap.String("game_id", gameID))
	return nil
}

// GameCount returns the number of games in memory.
func (e *Engine) GameCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.games)
}

func moveData(rec rules.MoveRecord) map[string]interface{} {
	data := map[string]interface{}{
		"sequence":  rec.Sequence,
		"color":     rec.Color.String(),
		"from":      rec.From,
		"to":        rec.To,
		"result":    string(rec.Result),
		"game_over": rec.GameOver,
	}
	if rec.CapturedRank != nil {
		data["captured_rank"] = int(*rec.CapturedRank)
		data["rank"] = int(rec.Rank)
	}
	return data
}

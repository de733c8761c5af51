package tournament

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Manager manages tournaments
type Manager struct {
	tournaments map[string]*Tournament
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewManager creates a new tournament manager
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tournaments: make(map[string]*Tournament),
		logger:      logger,
	}
}

// CreateTournament creates a new tournament
func (m *Manager) CreateTournament(name string, maxMoves int, seed uint64) *Tournament {
	m.mu.Lock()
	defer m.mu.Unlock()

	tournament := NewTournament(name, maxMoves, seed)
	m.tournaments[tournament.ID] = tournament

	m.logger.Info("tournament created",
		zap.String("tournament_id", tournament.ID),
		zap.String("name", name),
		zap.Int("max_moves", maxMoves),
		zap.Uint64("seed", seed),
	)

	return tournament
}

// GetTournament retrieves a tournament by ID
func (m *Manager) GetTournament(tournamentID string) (*Tournament, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tournament, ok := m.tournaments[tournamentID]
	return tournament, ok
}

// RemoveTournament removes a tournament
func (m *Manager) RemoveTournament(tournamentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tournaments, tournamentID)

	m.logger.Info("tournament removed", zap.String("tournament_id", tournamentID))
}

// GetAllTournaments returns all tournaments
func (m *Manager) GetAllTournaments() []*Tournament {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tournaments := make([]*Tournament, 0, len(m.tournaments))
	for _, tournament := range m.tournaments {
		tournaments = append(tournaments, tournament)
	}
	return tournaments
}

// GetActiveTournamentCount returns the count of tournaments not yet finished
func (m *Manager) GetActiveTournamentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, tournament := range m.tournaments {
		if tournament.GetState() != TournamentStateFinished {
			count++
		}
	}
	return count
}

// Run starts the tournament and plays every round. Matches within a round run
// on up to concurrency goroutines; rounds run one after another.
func (m *Manager) Run(ctx context.Context, t *Tournament, concurrency int) error {
	if err := t.Start(); err != nil {
		return err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	snap := t.Snapshot()
	m.logger.Info("tournament started",
		zap.String("tournament_id", t.ID),
		zap.Int("players", len(snap.Standings)),
		zap.Int("rounds", len(snap.Rounds)),
	)

	for _, round := range snap.Rounds {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		for i, pairing := range round.Pairings {
			roundNum := round.Number
			seed := matchSeed(t.Seed, roundNum, i)
			g.Go(func() error {
				red, blue := t.entrant(pairing.Red), t.entrant(pairing.Blue)
				res, err := PlayMatch(gctx, red, blue, seed, t.MaxMoves, m.logger)
				if err != nil {
					return fmt.Errorf("round %d %s vs %s: %w", roundNum, pairing.Red, pairing.Blue, err)
				}
				m.logger.Debug("match finished",
					zap.String("tournament_id", t.ID),
					zap.Int("round", roundNum),
					zap.String("red", res.Red),
					zap.String("blue", res.Blue),
					zap.String("winner", res.WinnerName()),
					zap.String("reason", res.Reason),
					zap.Int("moves", res.Moves),
				)
				return t.RecordMatchResult(roundNum, res)
			})
		}
		if err := g.Wait(); err != nil {
			m.logger.Warn("tournament aborted", zap.String("tournament_id", t.ID), zap.Error(err))
			return err
		}
		m.logger.Info("round finished",
			zap.String("tournament_id", t.ID),
			zap.Int("round", round.Number),
		)
	}

	t.Finish()
	standings := t.Standings()
	m.logger.Info("tournament finished",
		zap.String("tournament_id", t.ID),
		zap.String("leader", standings[0].Name),
		zap.Int("points", standings[0].Points),
	)
	return nil
}

// matchSeed derives a distinct seed per pairing, or 0 (clock seeded) when the tournament has none.
func matchSeed(base uint64, round, index int) uint64 {
	if base == 0 {
		return 0
	}
	return base*1_000_003 + uint64(round)*1_009 + uint64(index)
}

func (t *Tournament) entrant(name string) Entrant {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Players[name].Entrant
}

package tournament

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stratego-online/stratego-server-go/internal/ai"
)

// TournamentState represents the state of a tournament
type TournamentState int

const (
	TournamentStateWaiting TournamentState = iota
	TournamentStateInProgress
	TournamentStateFinished
)

func (s TournamentState) String() string {
	switch s {
	case TournamentStateWaiting:
		return "WAITING"
	case TournamentStateInProgress:
		return "IN_PROGRESS"
	case TournamentStateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Points awarded per match.
const (
	PointsWin  = 3
	PointsDraw = 1
)

var (
	ErrAlreadyStarted   = errors.New("tournament already started")
	ErrDuplicatePlayer  = errors.New("player already joined")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrPairingNotFound  = errors.New("pairing not found")
)

// Entrant is a computer player taking part in a tournament.
type Entrant struct {
	Name       string
	Difficulty ai.Difficulty
}

// Player tracks one entrant's standing
type Player struct {
	Entrant
	Points int
	Wins   int
	Losses int
	Draws  int
}

// Pairing is one scheduled match. Red moves first.
type Pairing struct {
	Red    string
	Blue   string
	Played bool
	Winner string
	Moves  int
	Reason string
}

// Round is a set of pairings in which no entrant plays twice
type Round struct {
	Number   int
	Pairings []*Pairing
	Finished bool
}

// PlayerSnapshot captures tournament player data for external use.
type PlayerSnapshot struct {
	Name       string
	Difficulty ai.Difficulty
	Points     int
	Wins       int
	Losses     int
	Draws      int
}

// RoundSnapshot captures round data for external use.
type RoundSnapshot struct {
	Number   int
	Finished bool
	Pairings []Pairing
}

// TournamentSnapshot captures a consistent view of a tournament.
type TournamentSnapshot struct {
	ID         string
	Name       string
	State      TournamentState
	Standings  []PlayerSnapshot
	Rounds     []RoundSnapshot
	MaxMoves   int
	Seed       uint64
	CreateTime time.Time
	StartTime  *time.Time
	EndTime    *time.Time
}

// Tournament is a double round robin between computer players: every entrant
// meets every other entrant once with each color.
type Tournament struct {
	ID          string
	Name        string
	State       TournamentState
	Players     map[string]*Player
	PlayerOrder []string // Maintains insertion order
	Rounds      []*Round
	MaxMoves    int
	Seed        uint64
	CreateTime  time.Time
	StartTime   *time.Time
	EndTime     *time.Time
	mu          sync.RWMutex
}

// NewTournament creates a new tournament. Matches reaching maxMoves are drawn.
// A zero seed makes the matches non-reproducible.
func NewTournament(name string, maxMoves int, seed uint64) *Tournament {
	return &Tournament{
		ID:          uuid.New().String(),
		Name:        name,
		State:       TournamentStateWaiting,
		Players:     make(map[string]*Player),
		PlayerOrder: make([]string, 0),
		Rounds:      make([]*Round, 0),
		MaxMoves:    maxMoves,
		Seed:        seed,
		CreateTime:  time.Now(),
	}
}

// AddPlayer adds an entrant to the tournament
func (t *Tournament) AddPlayer(e Entrant) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != TournamentStateWaiting {
		return ErrAlreadyStarted
	}
	if e.Name == "" {
		return fmt.Errorf("entrant name is required")
	}
	if _, err := ai.ParseDifficulty(string(e.Difficulty)); err != nil {
		return err
	}
	if _, exists := t.Players[e.Name]; exists {
		return ErrDuplicatePlayer
	}

	t.Players[e.Name] = &Player{Entrant: e}
	t.PlayerOrder = append(t.PlayerOrder, e.Name)
	return nil
}

// RemovePlayer removes an entrant before the tournament starts
func (t *Tournament) RemovePlayer(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != TournamentStateWaiting {
		return ErrAlreadyStarted
	}
	if _, exists := t.Players[name]; !exists {
		return ErrPlayerNotFound
	}

	delete(t.Players, name)
	for i, n := range t.PlayerOrder {
		if n == name {
			t.PlayerOrder = append(t.PlayerOrder[:i], t.PlayerOrder[i+1:]...)
			break
		}
	}
	return nil
}

// GetPlayerCount returns the number of players
func (t *Tournament) GetPlayerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.Players)
}

// GetState returns the current tournament state
func (t *Tournament) GetState() TournamentState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.State
}

// Start schedules every round and moves the tournament into progress.
func (t *Tournament) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != TournamentStateWaiting {
		return ErrAlreadyStarted
	}
	if len(t.Players) < 2 {
		return ErrNotEnoughPlayers
	}

	now := time.Now()
	t.StartTime = &now
	t.State = TournamentStateInProgress
	t.Rounds = scheduleRoundRobin(t.PlayerOrder)
	return nil
}

// scheduleRoundRobin pairs entrants with the circle method. The second half of
// the schedule repeats the first with colors swapped. An odd field gets a bye slot.
func scheduleRoundRobin(names []string) []*Round {
	slots := append([]string(nil), names...)
	if len(slots)%2 == 1 {
		slots = append(slots, "")
	}
	n := len(slots)

	half := make([][][2]string, 0, n-1)
	for r := 0; r < n-1; r++ {
		var pairs [][2]string
		for i := 0; i < n/2; i++ {
			a, b := slots[i], slots[n-1-i]
			if a == "" || b == "" {
				continue
			}
			if (r+i)%2 == 1 {
				a, b = b, a
			}
			pairs = append(pairs, [2]string{a, b})
		}
		half = append(half, pairs)

		// Rotate every slot but the first.
		last := slots[n-1]
		copy(slots[2:], slots[1:n-1])
		slots[1] = last
	}

	rounds := make([]*Round, 0, 2*len(half))
	for _, swap := range []bool{false, true} {
		for _, pairs := range half {
			round := &Round{Number: len(rounds) + 1}
			for _, p := range pairs {
				red, blue := p[0], p[1]
				if swap {
					red, blue = blue, red
				}
				round.Pairings = append(round.Pairings, &Pairing{Red: red, Blue: blue})
			}
			rounds = append(rounds, round)
		}
	}
	return rounds
}

// RecordMatchResult stores the outcome of a pairing and updates the standings.
func (t *Tournament) RecordMatchResult(roundNum int, res MatchResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State != TournamentStateInProgress {
		return fmt.Errorf("tournament is %s", t.State)
	}
	if roundNum <= 0 || roundNum > len(t.Rounds) {
		return fmt.Errorf("invalid round number %d", roundNum)
	}

	round := t.Rounds[roundNum-1]
	for _, pairing := range round.Pairings {
		if pairing.Red != res.Red || pairing.Blue != res.Blue {
			continue
		}
		if pairing.Played {
			return fmt.Errorf("%s vs %s already recorded", res.Red, res.Blue)
		}
		pairing.Played = true
		pairing.Winner = res.WinnerName()
		pairing.Moves = res.Moves
		pairing.Reason = res.Reason

		red, blue := t.Players[res.Red], t.Players[res.Blue]
		switch pairing.Winner {
		case red.Name:
			red.Wins++
			red.Points += PointsWin
			blue.Losses++
		case blue.Name:
			blue.Wins++
			blue.Points += PointsWin
			red.Losses++
		default:
			red.Draws++
			red.Points += PointsDraw
			blue.Draws++
			blue.Points += PointsDraw
		}

		round.Finished = true
		for _, p := range round.Pairings {
			if !p.Played {
				round.Finished = false
			}
		}
		return nil
	}
	return ErrPairingNotFound
}

// Finish marks the tournament as over.
func (t *Tournament) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	t.EndTime = &now
	t.State = TournamentStateFinished
}

// Standings returns players ordered by points, then wins, then name.
func (t *Tournament) Standings() []PlayerSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.standings()
}

func (t *Tournament) standings() []PlayerSnapshot {
	out := make([]PlayerSnapshot, 0, len(t.PlayerOrder))
	for _, name := range t.PlayerOrder {
		p := t.Players[name]
		out = append(out, PlayerSnapshot{
			Name:       p.Name,
			Difficulty: p.Difficulty,
			Points:     p.Points,
			Wins:       p.Wins,
			Losses:     p.Losses,
			Draws:      p.Draws,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Snapshot returns a consistent copy of the tournament state.
func (t *Tournament) Snapshot() TournamentSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rounds := make([]RoundSnapshot, 0, len(t.Rounds))
	for _, r := range t.Rounds {
		pairings := make([]Pairing, 0, len(r.Pairings))
		for _, p := range r.Pairings {
			pairings = append(pairings, *p)
		}
		rounds = append(rounds, RoundSnapshot{Number: r.Number, Finished: r.Finished, Pairings: pairings})
	}

	return TournamentSnapshot{
		ID:         t.ID,
		Name:       t.Name,
		State:      t.State,
		Standings:  t.standings(),
		Rounds:     rounds,
		MaxMoves:   t.MaxMoves,
		Seed:       t.Seed,
		CreateTime: t.CreateTime,
		StartTime:  cloneTime(t.StartTime),
		EndTime:    cloneTime(t.EndTime),
	}
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}

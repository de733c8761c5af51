package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/tournament"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	entrantsFlag = flag.String("entrants", "easy,medium,hard", "comma separated difficulties; repeat a difficulty to field it twice")
	maxMoves     = flag.Int("max-moves", 1000, "moves after which a match is drawn")
	seed         = flag.Uint64("seed", 0, "tournament seed (0 = clock seeded)")
	concurrency  = flag.Int("concurrency", runtime.NumCPU(), "matches played in parallel")
	verbose      = flag.Bool("v", false, "debug logging: every match and every AI move")
)

func main() {
	flag.Parse()

	level := zapcore.InfoLevel
	if *verbose {
		level = zapcore.DebugLevel
	}
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	entrants, err := parseEntrants(*entrantsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -entrants: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := tournament.NewManager(logger)
	tour := manager.CreateTournament("self-play", *maxMoves, *seed)
	for _, e := range entrants {
		if err := tour.AddPlayer(e); err != nil {
			logger.Fatal("failed to add entrant", zap.String("name", e.Name), zap.Error(err))
		}
	}

	start := time.Now()
	if err := manager.Run(ctx, tour, *concurrency); err != nil {
		logger.Fatal("tournament failed", zap.Error(err))
	}

	printStandings(tour.Snapshot(), time.Since(start))
}

// parseEntrants names entrants after their difficulty, numbering repeats.
func parseEntrants(list string) ([]tournament.Entrant, error) {
	var out []tournament.Entrant
	counts := make(map[ai.Difficulty]int)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ai.ParseDifficulty(part)
		if err != nil {
			return nil, err
		}
		counts[d]++
		name := string(d)
		if counts[d] > 1 {
			name = fmt.Sprintf("%s-%d", d, counts[d])
		}
		out = append(out, tournament.Entrant{Name: name, Difficulty: d})
	}
	if len(out) < 2 {
		return nil, fmt.Errorf("need at least two entrants, got %d", len(out))
	}
	return out, nil
}

func printStandings(snap tournament.TournamentSnapshot, elapsed time.Duration) {
	games, moves := 0, 0
	reasons := make(map[string]int)
	for _, r := range snap.Rounds {
		for _, p := range r.Pairings {
			games++
			moves += p.Moves
			reasons[p.Reason]++
		}
	}

	fmt.Printf("\n=== %s: %d games in %s ===\n", snap.Name, games, elapsed.Round(time.Millisecond))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tENTRANT\tDIFFICULTY\tPTS\tW\tL\tD")
	for i, s := range snap.Standings {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n", i+1, s.Name, s.Difficulty, s.Points, s.Wins, s.Losses, s.Draws)
	}
	_ = w.Flush()

	if games > 0 {
		fmt.Printf("\naverage length: %.1f moves\n", float64(moves)/float64(games))
	}
	fmt.Printf("flag captured: %d  immobilized: %d  move limit: %d\n",
		reasons[tournament.EndFlagCaptured], reasons[tournament.EndImmobilized], reasons[tournament.EndMoveLimit])
}

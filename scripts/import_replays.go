package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/config"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/repository"
	"go.uber.org/zap"
)

const replayExt = ".replay"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	batchSize := flag.Int("batch", 100, "Replays per progress report")
	flag.Parse()

	// Get replay directory from args or use the configured one
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	replayDir := cfg.Game.ReplayDir
	if flag.NArg() > 0 {
		replayDir = flag.Arg(0)
	}

	absPath, err := filepath.Abs(replayDir)
	if err != nil {
		log.Fatalf("Failed to get absolute path: %v", err)
	}

	fmt.Println("=== Stratego Replay Import ===")
	fmt.Printf("Replay directory: %s\n", absPath)

	entries, err := os.ReadDir(absPath)
	if err != nil {
		log.Fatalf("Failed to read replay directory: %v", err)
	}

	gameIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), replayExt) {
			continue
		}
		gameIDs = append(gameIDs, strings.TrimSuffix(entry.Name(), replayExt))
	}
	if len(gameIDs) == 0 {
		fmt.Println("No replay files found")
		return
	}
	fmt.Printf("Found %d replay files\n", len(gameIDs))

	ctx := context.Background()

	// The import always targets a database, whatever the server config says
	cfg.Database.Enabled = true
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}

	fmt.Printf("Connecting to database...\n")
	db, err := repository.NewDB(ctx, cfg.Database, zap.NewNop())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("✓ Database connection established")

	repo := repository.NewGameRepository(db)

	fmt.Println("Importing replays...")
	imported, skipped, failed := 0, 0, 0
	startTime := time.Now()

	for i, gameID := range gameIDs {
		err := importReplay(ctx, repo, absPath, gameID)
		switch {
		case err == nil:
			imported++
		case errors.Is(err, repository.ErrStaleVersion):
			skipped++
		default:
			log.Printf("Failed to import %s: %v", gameID, err)
			failed++
		}

		if (i+1)%*batchSize == 0 || i+1 == len(gameIDs) {
			progress := float64(i+1) / float64(len(gameIDs)) * 100
			fmt.Printf("Progress: %d/%d (%.1f%%) - imported %d, skipped %d, failed %d\n",
				i+1, len(gameIDs), progress, imported, skipped, failed)
		}
	}

	duration := time.Since(startTime)

	fmt.Println("\n=== Import Complete ===")
	fmt.Printf("Imported: %d replays\n", imported)
	fmt.Printf("Skipped (already stored): %d replays\n", skipped)
	fmt.Printf("Failed: %d replays\n", failed)
	fmt.Printf("Duration: %v\n", duration)
	if imported > 0 {
		fmt.Printf("Rate: %.0f replays/sec\n", float64(imported)/duration.Seconds())
	}

	var stored int64
	if err := db.Pool().QueryRow(ctx, "SELECT COUNT(*) FROM games").Scan(&stored); err != nil {
		log.Printf("Warning: Failed to count stored games: %v", err)
	} else {
		fmt.Printf("Total games in database: %d\n", stored)
	}
}

// importReplay stores the last frame of a replay, which carries the full
// move history of the game.
func importReplay(ctx context.Context, repo *repository.GameRepository, dir, gameID string) error {
	replay, err := game.LoadReplay(dir, gameID)
	if err != nil {
		return err
	}
	final := replay.Final()
	if final == nil {
		return fmt.Errorf("replay %s has no frames", gameID)
	}
	if err := final.Validate(); err != nil {
		return fmt.Errorf("replay %s: %w", gameID, err)
	}
	return repo.SaveGame(ctx, final)
}

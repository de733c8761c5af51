package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/game/board"
	"github.com/stratego-online/stratego-server-go/internal/game/pieces"
	"github.com/stratego-online/stratego-server-go/internal/game/rules"
)

var (
	// ErrNotFound is returned when no row matches the requested game.
	ErrNotFound = errors.New("game not found in repository")
	// ErrStaleVersion is returned when a newer version of the game is already stored.
	ErrStaleVersion = errors.New("stored game is newer")
)

// GameRepository persists game snapshots and their move logs
type GameRepository struct {
	db *DB
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *DB) *GameRepository {
	return &GameRepository{db: db}
}

// SaveGame upserts the snapshot if it is newer than the stored row and appends
// any moves not yet recorded.
func (r *GameRepository) SaveGame(ctx context.Context, snap *game.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	sum, err := snap.ComputeChecksum()
	if err != nil {
		return err
	}

	winner := ""
	if snap.State.Winner != nil {
		winner = snap.State.Winner.String()
	}

	tx, err := r.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO games (
			game_id, red_player, blue_player, vs_ai, phase, winner,
			move_count, version, checksum, snapshot, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (game_id) DO UPDATE SET
			blue_player = EXCLUDED.blue_player,
			phase = EXCLUDED.phase,
			winner = EXCLUDED.winner,
			move_count = EXCLUDED.move_count,
			version = EXCLUDED.version,
			checksum = EXCLUDED.checksum,
			snapshot = EXCLUDED.snapshot,
			updated_at = EXCLUDED.updated_at
		WHERE games.version < EXCLUDED.version
	`,
		snap.GameID,
		snap.RedPlayer,
		snap.BluePlayer,
		snap.VsAI,
		string(snap.State.Phase),
		winner,
		snap.State.MoveCount,
		snap.Version,
		sum.Hash,
		payload,
		snap.CreatedAt,
		snap.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game %s: %w", snap.GameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleVersion
	}

	if len(snap.Moves) > 0 {
		batch := &pgx.Batch{}
		for _, m := range snap.Moves {
			var captured *int16
			if m.CapturedRank != nil {
				v := int16(*m.CapturedRank)
				captured = &v
			}
			batch.Queue(`
				INSERT INTO moves (
					game_id, sequence, color, from_row, from_col, to_row, to_col,
					rank, result, captured_rank, game_over
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (game_id, sequence) DO NOTHING
			`,
				snap.GameID, m.Sequence, m.Color.String(),
				m.From.Row, m.From.Col, m.To.Row, m.To.Col,
				int16(m.Rank), string(m.Result), captured, m.GameOver,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to append moves for %s: %w", snap.GameID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit game %s: %w", snap.GameID, err)
	}
	return nil
}

// LoadGame returns the latest stored snapshot of a game.
func (r *GameRepository) LoadGame(ctx context.Context, gameID string) (*game.Snapshot, error) {
	var payload []byte
	err := r.db.pool.QueryRow(ctx,
		`SELECT snapshot FROM games WHERE game_id = $1`, gameID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", gameID, err)
	}
	return decodeSnapshot(payload)
}

// ListActiveGames returns every game that has not reached a terminal phase.
func (r *GameRepository) ListActiveGames(ctx context.Context) ([]*game.Snapshot, error) {
	return r.querySnapshots(ctx, `
		SELECT snapshot FROM games
		WHERE phase NOT IN ('finished', 'abandoned')
		ORDER BY created_at
	`)
}

// ListGamesForPlayer returns the games a player has taken a seat in, most recent first.
func (r *GameRepository) ListGamesForPlayer(ctx context.Context, playerID string, limit int) ([]*game.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.querySnapshots(ctx, `
		SELECT snapshot FROM games
		WHERE red_player = $1 OR blue_player = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, playerID, limit)
}

func (r *GameRepository) querySnapshots(ctx context.Context, sql string, args ...interface{}) ([]*game.Snapshot, error) {
	rows, err := r.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	payloads, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("failed to scan games: %w", err)
	}

	snaps := make([]*game.Snapshot, 0, len(payloads))
	for _, p := range payloads {
		snap, err := decodeSnapshot(p)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// ListMoves returns the stored move log of a game in sequence order.
func (r *GameRepository) ListMoves(ctx context.Context, gameID string) ([]rules.MoveRecord, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT sequence, color, from_row, from_col, to_row, to_col, rank, result, captured_rank, game_over
		FROM moves WHERE game_id = $1 ORDER BY sequence
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query moves for %s: %w", gameID, err)
	}
	defer rows.Close()

	var moves []rules.MoveRecord
	for rows.Next() {
		var (
			rec                            rules.MoveRecord
			color, result                  string
			fromRow, fromCol, toRow, toCol int16
			rank                           int16
			captured                       *int16
		)
		if err := rows.Scan(&rec.Sequence, &color, &fromRow, &fromCol, &toRow, &toCol, &rank, &result, &captured, &rec.GameOver); err != nil {
			return nil, fmt.Errorf("failed to scan move: %w", err)
		}
		c, err := pieces.ParseColor(color)
		if err != nil {
			return nil, err
		}
		rec.Color = c
		rec.From = board.Pos(int(fromRow), int(fromCol))
		rec.To = board.Pos(int(toRow), int(toCol))
		rec.Rank = pieces.Rank(rank)
		rec.Result = rules.MoveResult(result)
		if captured != nil {
			cr := pieces.Rank(*captured)
			rec.CapturedRank = &cr
		}
		moves = append(moves, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read moves: %w", err)
	}
	return moves, nil
}

// DeleteGame removes a game and its move log.
func (r *GameRepository) DeleteGame(ctx context.Context, gameID string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM games WHERE game_id = $1`, gameID)
	if err != nil {
		return fmt.Errorf("failed to delete game %s: %w", gameID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeSnapshot(payload []byte) (*game.Snapshot, error) {
	var snap game.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("stored snapshot %s is invalid: %w", snap.GameID, err)
	}
	return &snap, nil
}

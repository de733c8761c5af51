package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stratego-online/stratego-server-go/internal/config"
	"go.uber.org/zap"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewDB connects to PostgreSQL and applies the schema.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{pool: pool, logger: logger}
	if err := db.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("database connection established",
		zap.Int32("max_conns", poolCfg.MaxConns),
	)
	return db, nil
}

// Pool exposes the underlying pool
func (db *DB) Pool() *pgxpool.Pool {
	return db.pool
}

// Stats returns pool statistics
func (db *DB) Stats() *pgxpool.Stat {
	return db.pool.Stat()
}

// Close releases every pooled connection
func (db *DB) Close() {
	db.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS games (
	game_id      TEXT PRIMARY KEY,
	red_player   TEXT NOT NULL,
	blue_player  TEXT NOT NULL DEFAULT '',
	vs_ai        BOOLEAN NOT NULL DEFAULT FALSE,
	phase        TEXT NOT NULL,
	winner       TEXT NOT NULL DEFAULT '',
	move_count   INTEGER NOT NULL DEFAULT 0,
	version      BIGINT NOT NULL,
	checksum     TEXT NOT NULL,
	snapshot     JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS games_phase_idx ON games (phase);

CREATE TABLE IF NOT EXISTS moves (
	game_id       TEXT NOT NULL REFERENCES games (game_id) ON DELETE CASCADE,
	sequence      INTEGER NOT NULL,
	color         TEXT NOT NULL,
	from_row      SMALLINT NOT NULL,
	from_col      SMALLINT NOT NULL,
	to_row        SMALLINT NOT NULL,
	to_col        SMALLINT NOT NULL,
	rank          SMALLINT NOT NULL,
	result        TEXT NOT NULL,
	captured_rank SMALLINT,
	game_over     BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (game_id, sequence)
);
`

// Migrate creates the tables if they do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

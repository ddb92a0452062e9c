package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/atilla-legacy/legacy-server-go/internal/config"
	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS saved_games (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	checksum    TEXT NOT NULL,
	turn        INTEGER NOT NULL,
	status      TEXT NOT NULL,
	difficulty  TEXT NOT NULL,
	saved_at    TIMESTAMPTZ NOT NULL,
	data        JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_games_saved_at ON saved_games(saved_at DESC);
`

// PostgresStore keeps saves in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresStore connects, pings and migrates.
func NewPostgresStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	stats := pool.Stat()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("max_conns", stats.MaxConns()),
	)
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Save(ctx context.Context, r *Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO saved_games (id, name, checksum, turn, status, difficulty, saved_at, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			checksum = EXCLUDED.checksum,
			turn = EXCLUDED.turn,
			status = EXCLUDED.status,
			difficulty = EXCLUDED.difficulty,
			saved_at = EXCLUDED.saved_at,
			data = EXCLUDED.data`,
		r.ID, r.Name, r.Checksum, r.Turn, string(r.Status), r.Difficulty, r.SavedAt, string(r.Data),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", r.ID, err)
	}
	s.logger.Debug("game saved", zap.String("save_id", r.ID), zap.Int("turn", r.Turn))
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*Record, error) {
	var (
		r      Record
		status string
		data   string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, checksum, turn, status, difficulty, saved_at, data::text
		FROM saved_games WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.Checksum, &r.Turn, &status, &r.Difficulty, &r.SavedAt, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	r.Status = game.Status(status)
	r.Data = []byte(data)
	return &r, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, turn, status, difficulty, saved_at
		FROM saved_games ORDER BY saved_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum    Summary
			status string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Turn, &status, &sum.Difficulty, &sum.SavedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		sum.Status = game.Status(status)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM saved_games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

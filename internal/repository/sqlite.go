package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps saves in a local SQLite file.
type SQLiteStore struct {
	conn   *sqlx.DB
	logger *zap.Logger
}

type sqliteRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Checksum   string `db:"checksum"`
	Turn       int    `db:"turn"`
	Status     string `db:"status"`
	Difficulty string `db:"difficulty"`
	SavedAt    int64  `db:"saved_at"`
	Data       []byte `db:"data"`
}

func (r sqliteRow) record() *Record {
	return &Record{
		ID:         r.ID,
		Name:       r.Name,
		Checksum:   r.Checksum,
		Turn:       r.Turn,
		Status:     game.Status(r.Status),
		Difficulty: r.Difficulty,
		SavedAt:    time.UnixMilli(r.SavedAt).UTC(),
		Data:       r.Data,
	}
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn, logger: logger}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("sqlite save store opened", zap.String("path", path))
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
	CREATE TABLE IF NOT EXISTS saved_games (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		checksum    TEXT NOT NULL,
		turn        INTEGER NOT NULL,
		status      TEXT NOT NULL,
		difficulty  TEXT NOT NULL,
		saved_at    INTEGER NOT NULL,
		data        BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_saved_games_saved_at ON saved_games(saved_at);
	`)
	return err
}

func (s *SQLiteStore) Save(ctx context.Context, r *Record) error {
	_, err := s.conn.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO saved_games (id, name, checksum, turn, status, difficulty, saved_at, data)
		VALUES (:id, :name, :checksum, :turn, :status, :difficulty, :saved_at, :data)`,
		sqliteRow{
			ID:         r.ID,
			Name:       r.Name,
			Checksum:   r.Checksum,
			Turn:       r.Turn,
			Status:     string(r.Status),
			Difficulty: r.Difficulty,
			SavedAt:    r.SavedAt.UnixMilli(),
			Data:       r.Data,
		})
	if err != nil {
		return fmt.Errorf("save %s: %w", r.ID, err)
	}
	s.logger.Debug("game saved", zap.String("save_id", r.ID), zap.Int("turn", r.Turn))
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Record, error) {
	var row sqliteRow
	err := s.conn.GetContext(ctx, &row, `SELECT * FROM saved_games WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return row.record(), nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	var rows []sqliteRow
	err := s.conn.SelectContext(ctx, &rows, `
		SELECT id, name, checksum, turn, status, difficulty, saved_at, x'' AS data
		FROM saved_games ORDER BY saved_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record().Summary())
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM saved_games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Package repository persists saved games. Each save stores the JSON save
// envelope (snapshot plus checksum) alongside a few columns for listing.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/config"
	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a save id does not exist.
var ErrNotFound = errors.New("save not found")

// Record is one stored save.
type Record struct {
	ID         string
	Name       string
	Checksum   string
	Turn       int
	Status     game.Status
	Difficulty string
	SavedAt    time.Time
	Data       []byte
}

// Summary is a listing entry without the payload.
type Summary struct {
	ID         string
	Name       string
	Turn       int
	Status     game.Status
	Difficulty string
	SavedAt    time.Time
}

// Store is implemented by every backend. Save replaces a record with the
// same id.
type Store interface {
	Save(ctx context.Context, r *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// NewRecord wraps s in a save envelope. An empty id gets a fresh uuid.
func NewRecord(id, name string, s *game.GameState, now time.Time) (*Record, error) {
	f, err := game.NewSaveFile(s, now)
	if err != nil {
		return nil, err
	}
	data, err := game.EncodeSaveFile(f, game.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	if id == "" {
		id = uuid.NewString()
	}
	return &Record{
		ID:         id,
		Name:       name,
		Checksum:   f.Checksum,
		Turn:       s.Turn,
		Status:     s.GameStatus,
		Difficulty: string(s.Difficulty),
		SavedAt:    f.SavedAt,
		Data:       data,
	}, nil
}

// State decodes the payload and verifies its checksum.
func (r *Record) State() (*game.GameState, error) {
	f, err := game.DecodeSaveFile(r.Data, game.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", r.ID, err)
	}
	return f.State, nil
}

// Summary drops the payload.
func (r *Record) Summary() Summary {
	return Summary{
		ID:         r.ID,
		Name:       r.Name,
		Turn:       r.Turn,
		Status:     r.Status,
		Difficulty: r.Difficulty,
		SavedAt:    r.SavedAt,
	}
}

// Open connects the backend selected by cfg.Driver. The "none" driver
// returns a nil Store.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := NewPostgresStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverSQLite:
		s, err := NewSQLiteStore(cfg.URL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

package game

import (
	"compress/gzip"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// ErrNoReplay is returned when a game has no recording in memory.
var ErrNoReplay = errors.New("no replay recorded")

// Replay is the sequence of states a game passed through, with a cursor for
// playback.
type Replay struct {
	GameID       string
	States       []*GameState
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(gameID string) *Replay {
	return &Replay{
		GameID: gameID,
		States: make([]*GameState, 0),
	}
}

// RecordState appends a state. States handed out by the engine are never
// mutated afterwards, so no copy is taken.
func (r *Replay) RecordState(s *GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.States = append(r.States, s)
}

// Start rewinds the cursor.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the state at the cursor and advances it, or nil at the end.
func (r *Replay) Next() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.States) {
		s := r.States[r.CurrentIndex]
		r.CurrentIndex++
		return s
	}
	return nil
}

// Previous steps the cursor back and returns that state, or nil at the start.
func (r *Replay) Previous() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.States[r.CurrentIndex]
	}
	return nil
}

// Skip moves the cursor by count, clamped to the recording.
func (r *Replay) Skip(count int) *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.CurrentIndex + count
	if idx >= len(r.States) {
		idx = len(r.States) - 1
	}
	if idx < 0 {
		idx = 0
	}

	r.CurrentIndex = idx
	if idx < len(r.States) {
		return r.States[idx]
	}
	return nil
}

// Size returns the number of recorded states.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.States)
}

// StateAt returns the state at index, or nil.
func (r *Replay) StateAt(index int) *GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.States) {
		return r.States[index]
	}
	return nil
}

func replayPath(dir, gameID string) string {
	return filepath.Join(dir, gameID+".replay")
}

// SaveToFile writes the replay as a gzipped gob stream: a metadata header
// followed by every state.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(replayPath(directory, r.GameID))
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	defer gz.Close()

	enc := gob.NewEncoder(gz)
	meta := replayMetadata{
		GameID:     r.GameID,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		StateCount: len(r.States),
	}
	if err := enc.Encode(&meta); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	for i, s := range r.States {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode state %d: %w", i, err)
		}
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	file, err := os.Open(replayPath(directory, gameID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	dec := gob.NewDecoder(gz)

	var meta replayMetadata
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", meta.Version)
	}

	replay := NewReplay(meta.GameID)
	for i := 0; i < meta.StateCount; i++ {
		var s GameState
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to decode state %d: %w", i, err)
		}
		replay.States = append(replay.States, &s)
	}
	return replay, nil
}

type replayMetadata struct {
	GameID     string
	Timestamp  time.Time
	Version    int
	StateCount int
}

// ReplayRecorder keeps in-memory recordings for running games and flushes
// them to disk when a game is removed.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay
	enabled map[string]bool
	saveDir string
}

// NewReplayRecorder creates a recorder writing to saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		enabled: make(map[string]bool),
		saveDir: saveDir,
	}
}

// StartRecording begins a fresh recording for gameID.
func (rr *ReplayRecorder) StartRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[gameID] = NewReplay(gameID)
	rr.enabled[gameID] = true
	rr.logger.Info("started replay recording", zap.String("game_id", gameID))
}

// StopRecording pauses recording; recorded states are kept.
func (rr *ReplayRecorder) StopRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.enabled[gameID] = false
	rr.logger.Info("stopped replay recording", zap.String("game_id", gameID))
}

// RecordState appends s if gameID is being recorded.
func (rr *ReplayRecorder) RecordState(gameID string, s *GameState) {
	rr.mu.RLock()
	enabled := rr.enabled[gameID]
	replay := rr.replays[gameID]
	rr.mu.RUnlock()

	if !enabled || replay == nil {
		return
	}
	replay.RecordState(s)
	rr.logger.Debug("recorded replay state",
		zap.String("game_id", gameID),
		zap.Int("state_count", replay.Size()),
	)
}

// Replay returns the in-memory recording for gameID.
func (rr *ReplayRecorder) Replay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	r, ok := rr.replays[gameID]
	return r, ok
}

// SaveReplay writes a recording to disk and drops it from memory.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	replay, ok := rr.replays[gameID]
	if !ok {
		rr.mu.Unlock()
		return fmt.Errorf("%w for game %s", ErrNoReplay, gameID)
	}
	delete(rr.replays, gameID)
	delete(rr.enabled, gameID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}
	rr.logger.Info("saved replay to disk",
		zap.String("game_id", gameID),
		zap.Int("state_count", replay.Size()),
		zap.String("directory", rr.saveDir),
	)
	return nil
}

// LoadReplay reads a recording from disk.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(rr.saveDir, gameID)
	if err != nil {
		return nil, err
	}
	rr.logger.Info("loaded replay from disk",
		zap.String("game_id", gameID),
		zap.Int("state_count", replay.Size()),
	)
	return replay, nil
}

// ClearReplay drops a recording without saving it.
func (rr *ReplayRecorder) ClearReplay(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, gameID)
	delete(rr.enabled, gameID)
}

// IsRecording reports whether gameID is being recorded.
func (rr *ReplayRecorder) IsRecording(gameID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.enabled[gameID]
}

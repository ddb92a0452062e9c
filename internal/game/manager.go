package game

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrGameNotFound is returned for unknown game ids.
	ErrGameNotFound = errors.New("game not found")
	// ErrNothingToUndo is returned when a game has no earlier state kept.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrGameOver is returned when undoing a game that is already won or lost.
	ErrGameOver = errors.New("game is over")
)

// Notification types emitted by the Manager.
const (
	NotifyGameCreated = "GAME_CREATED"
	NotifyStateChange = "GAME_STATE_CHANGE"
	NotifyGameOver    = "GAME_OVER"
	NotifyGameRemoved = "GAME_REMOVED"
)

// Notification is sent to the registered handler after every change. Seq
// grows with every change of the game, so handlers can discard a
// notification that arrives after a newer one.
type Notification struct {
	Type      string
	GameID    string
	Seq       uint64
	Action    Kind
	Timestamp time.Time
	State     *GameState
}

// NotificationHandler receives notifications. Each one runs on its own
// goroutine, so delivery order is not guaranteed; use Seq. Handlers may
// call back into the Manager.
type NotificationHandler func(Notification)

// GameSummary is a short listing entry.
type GameSummary struct {
	GameID     string
	Players    int
	Difficulty rules.Difficulty
	Status     Status
	Turn       int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type session struct {
	mu        sync.Mutex
	id        string
	state     *GameState
	history   []*GameState
	version   uint64
	createdAt time.Time
	updatedAt time.Time
}

// Manager owns the running games. Every game is advanced by one dispatch at
// a time; readers get the latest immutable state pointer.
type Manager struct {
	engine       *Engine
	logger       *zap.Logger
	recorder     *ReplayRecorder
	historyLimit int

	mu       sync.RWMutex
	games    map[string]*session
	notifier NotificationHandler
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRecorder records every state of every game.
func WithRecorder(rr *ReplayRecorder) ManagerOption {
	return func(m *Manager) { m.recorder = rr }
}

// WithHistoryLimit sets how many earlier states Undo can go back to.
func WithHistoryLimit(n int) ManagerOption {
	return func(m *Manager) { m.historyLimit = n }
}

// NewManager creates a Manager driving games through engine.
func NewManager(engine *Engine, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		engine:       engine,
		logger:       logger,
		historyLimit: 16,
		games:        make(map[string]*session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Engine returns the engine the manager dispatches through.
func (m *Manager) Engine() *Engine {
	return m.engine
}

// SetNotificationHandler registers h; nil disables notifications.
func (m *Manager) SetNotificationHandler(h NotificationHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = h
}

func (m *Manager) emit(n Notification) {
	m.mu.RLock()
	h := m.notifier
	m.mu.RUnlock()

	if h != nil {
		go h(n)
	}
}

// CreateGame deals a new game and registers it.
func (m *Manager) CreateGame(playerCount int, difficulty rules.Difficulty) (string, *GameState, error) {
	m.engine.mu.Lock()
	rng := m.engine.rng
	state, err := NewInitialStateOn(m.engine.graph, rng, playerCount, difficulty)
	m.engine.mu.Unlock()
	if err != nil {
		return "", nil, err
	}
	id := m.register(state)
	m.logger.Info("game created",
		zap.String("game_id", id),
		zap.Int("players", playerCount),
		zap.String("difficulty", string(difficulty)),
	)
	return id, state, nil
}

// AddGame registers an existing state, for example one restored from a save.
func (m *Manager) AddGame(state *GameState) (string, error) {
	if state == nil {
		return "", fmt.Errorf("add game: nil state")
	}
	id := m.register(state)
	m.logger.Info("game restored",
		zap.String("game_id", id),
		zap.Int("players", len(state.Players)),
		zap.String("status", string(state.GameStatus)),
	)
	return id, nil
}

func (m *Manager) register(state *GameState) string {
	now := time.Now()
	s := &session{
		id:        uuid.NewString(),
		state:     state,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}

	m.mu.Lock()
	m.games[s.id] = s
	m.mu.Unlock()

	if m.recorder != nil {
		m.recorder.StartRecording(s.id)
		m.recorder.RecordState(s.id, state)
	}
	m.emit(Notification{Type: NotifyGameCreated, GameID: s.id, Seq: 1, Timestamp: now, State: state})
	return s.id
}

func (m *Manager) session(id string) (*session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return s, nil
}

// GetState returns the current state of a game. Callers must not modify it.
func (m *Manager) GetState(id string) (*GameState, error) {
	state, _, err := m.GetVersionedState(id)
	return state, err
}

// GetVersionedState returns the current state together with its Seq.
func (m *Manager) GetVersionedState(id string) (*GameState, uint64, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.version, nil
}

// Dispatch applies a to the game and returns the new state.
func (m *Manager) Dispatch(id string, a Action) (*GameState, error) {
	if a == nil {
		return nil, fmt.Errorf("dispatch: nil action")
	}
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.state
	next := m.engine.Apply(prev, a)
	changed := next != prev
	if changed {
		s.history = append(s.history, prev)
		if over := len(s.history) - m.historyLimit; over > 0 {
			s.history = append([]*GameState(nil), s.history[over:]...)
		}
		s.state = next
		s.version++
		s.updatedAt = time.Now()
	}
	seq := s.version
	s.mu.Unlock()

	if !changed {
		return next, nil
	}

	if m.recorder != nil {
		m.recorder.RecordState(id, next)
	}

	notifyType := NotifyStateChange
	if !prev.IsOver() && next.IsOver() {
		notifyType = NotifyGameOver
		m.logger.Info("game over",
			zap.String("game_id", id),
			zap.String("status", string(next.GameStatus)),
			zap.Int("turn", next.Turn),
		)
	}
	m.emit(Notification{Type: notifyType, GameID: id, Seq: seq, Action: a.Kind(), Timestamp: time.Now(), State: next})
	return next, nil
}

// Undo restores the state before the last accepted action. Finished games
// cannot be undone.
func (m *Manager) Undo(id string) (*GameState, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state.IsOver() {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrGameOver, id)
	}
	if len(s.history) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNothingToUndo, id)
	}
	last := len(s.history) - 1
	s.state = s.history[last]
	s.history = s.history[:last]
	s.version++
	s.updatedAt = time.Now()
	state, seq := s.state, s.version
	s.mu.Unlock()

	m.logger.Info("action undone", zap.String("game_id", id))
	if m.recorder != nil {
		m.recorder.RecordState(id, state)
	}
	m.emit(Notification{Type: NotifyStateChange, GameID: id, Seq: seq, Timestamp: time.Now(), State: state})
	return state, nil
}

// RemoveGame drops a game. Its replay, if recorded, is flushed to disk.
func (m *Manager) RemoveGame(id string) error {
	m.mu.Lock()
	s, ok := m.games[id]
	delete(m.games, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	s.mu.Lock()
	s.version++
	seq := s.version
	s.mu.Unlock()

	if m.recorder != nil {
		if err := m.recorder.SaveReplay(id); err != nil {
			m.logger.Warn("failed to save replay", zap.String("game_id", id), zap.Error(err))
		}
	}
	m.logger.Info("game removed", zap.String("game_id", id))
	m.emit(Notification{Type: NotifyGameRemoved, GameID: id, Seq: seq, Timestamp: time.Now()})
	return nil
}

// ListGames returns summaries ordered by creation time.
func (m *Manager) ListGames() []GameSummary {
	m.mu.RLock()
	sessions := make([]*session, 0, len(m.games))
	for _, s := range m.games {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]GameSummary, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, GameSummary{
			GameID:     s.id,
			Players:    len(s.state.Players),
			Difficulty: s.state.Difficulty,
			Status:     s.state.GameStatus,
			Turn:       s.state.Turn,
			CreatedAt:  s.createdAt,
			UpdatedAt:  s.updatedAt,
		})
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].GameID < out[j].GameID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

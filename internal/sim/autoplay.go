package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"go.uber.org/zap"
)

// DefaultInterval is the autoplay tick period.
const DefaultInterval = 90 * time.Millisecond

// ErrStepLimit is returned when a game does not finish within the allowed
// number of actions.
var ErrStepLimit = errors.New("step limit reached")

// Autoplayer runs one ticker loop per game, dispatching the planner's choice
// through the manager on every tick.
type Autoplayer struct {
	manager  *game.Manager
	planner  *Planner
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running map[string]*loop
}

type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAutoplayer creates an autoplayer. A non-positive interval selects
// DefaultInterval.
func NewAutoplayer(m *game.Manager, p *Planner, interval time.Duration, logger *zap.Logger) *Autoplayer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autoplayer{
		manager:  m,
		planner:  p,
		interval: interval,
		logger:   logger,
		running:  make(map[string]*loop),
	}
}

// Start begins autoplay for gameID. Starting a game that is already running
// is a no-op.
func (a *Autoplayer) Start(ctx context.Context, gameID string) error {
	if _, err := a.manager.GetState(gameID); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.running[gameID]; ok {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &loop{cancel: cancel, done: make(chan struct{})}
	a.running[gameID] = l

	go a.run(ctx, gameID, l)
	a.logger.Info("autoplay started", zap.String("game_id", gameID), zap.Duration("interval", a.interval))
	return nil
}

// Stop halts autoplay for gameID and waits for the loop to exit. An action
// already being applied completes first.
func (a *Autoplayer) Stop(gameID string) {
	a.mu.Lock()
	l, ok := a.running[gameID]
	a.mu.Unlock()
	if !ok {
		return
	}
	l.cancel()
	<-l.done
}

// Set starts or stops autoplay.
func (a *Autoplayer) Set(ctx context.Context, gameID string, enabled bool) error {
	if enabled {
		return a.Start(ctx, gameID)
	}
	a.Stop(gameID)
	return nil
}

// IsRunning reports whether gameID is being autoplayed.
func (a *Autoplayer) IsRunning(gameID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.running[gameID]
	return ok
}

// StopAll halts every loop.
func (a *Autoplayer) StopAll() {
	a.mu.Lock()
	ids := make([]string, 0, len(a.running))
	for id := range a.running {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		a.Stop(id)
	}
}

func (a *Autoplayer) run(ctx context.Context, gameID string, l *loop) {
	defer func() {
		a.mu.Lock()
		if a.running[gameID] == l {
			delete(a.running, gameID)
		}
		a.mu.Unlock()
		close(l.done)
	}()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("autoplay stopped", zap.String("game_id", gameID))
			return
		case <-ticker.C:
			over, err := a.tick(gameID)
			if err != nil {
				a.logger.Warn("autoplay tick failed", zap.String("game_id", gameID), zap.Error(err))
				return
			}
			if over {
				a.logger.Info("autoplay finished", zap.String("game_id", gameID))
				return
			}
		}
	}
}

func (a *Autoplayer) tick(gameID string) (bool, error) {
	state, err := a.manager.GetState(gameID)
	if err != nil {
		return false, err
	}
	if state.IsOver() {
		return true, nil
	}

	action := a.planner.ChooseAction(state)
	if action == nil {
		action = game.EndTurn{}
	}
	next, err := a.manager.Dispatch(gameID, action)
	if err != nil {
		return false, err
	}
	return next.IsOver(), nil
}

// Result summarizes a finished simulated game.
type Result struct {
	Status    game.Status
	Steps     int
	Turns     int
	Legacies  int
	Threats   int
	Outbreaks int
	Storms    int
}

// ResultOf summarizes s after steps actions.
func ResultOf(s *game.GameState, steps int) Result {
	return Result{
		Status:    s.GameStatus,
		Steps:     steps,
		Turns:     s.Turn,
		Legacies:  s.LegaciesCollected.Count(),
		Threats:   s.TotalThreats(),
		Outbreaks: s.OutbreakCount,
		Storms:    s.StormCount,
	}
}

// RunToCompletion plays s synchronously until the game ends, ctx is done or
// maxSteps actions have been applied. A non-positive maxSteps means no limit.
func RunToCompletion(ctx context.Context, e *game.Engine, p *Planner, s *game.GameState, maxSteps int) (*game.GameState, Result, error) {
	steps := 0
	for !s.IsOver() {
		if err := ctx.Err(); err != nil {
			return s, ResultOf(s, steps), err
		}
		if maxSteps > 0 && steps >= maxSteps {
			return s, ResultOf(s, steps), fmt.Errorf("%w after %d actions", ErrStepLimit, steps)
		}
		action := p.ChooseAction(s)
		if action == nil {
			action = game.EndTurn{}
		}
		s = e.Apply(s, action)
		steps++
	}
	return s, ResultOf(s, steps), nil
}

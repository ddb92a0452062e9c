package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/atilla-legacy/legacy-server-go/internal/repository"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Autoplay toggles unattended play for a game.
type Autoplay interface {
	Set(ctx context.Context, gameID string, enabled bool) error
	IsRunning(gameID string) bool
	Stop(gameID string)
}

// gameServer implements GameServiceServer on top of the game manager.
type gameServer struct {
	// base outlives individual RPCs; autoplay loops derive from it.
	base     context.Context
	manager  *game.Manager
	autoplay Autoplay
	store    repository.Store
	maxGames int
	logger   *zap.Logger
	now      func() time.Time
}

// Options are the optional collaborators of the game server.
type Options struct {
	Autoplay Autoplay
	Store    repository.Store
	MaxGames int
}

// NewGameServer creates the service. ctx bounds background work started by
// RPCs such as autoplay.
func NewGameServer(ctx context.Context, m *game.Manager, opts Options, logger *zap.Logger) GameServiceServer {
	return &gameServer{
		base:     ctx,
		manager:  m,
		autoplay: opts.Autoplay,
		store:    opts.Store,
		maxGames: opts.MaxGames,
		logger:   logger,
		now:      time.Now,
	}
}

// ==================== Games ====================

func (s *gameServer) CreateGame(ctx context.Context, req *CreateGameRequest) (*GameResponse, error) {
	if s.maxGames > 0 && len(s.manager.ListGames()) >= s.maxGames {
		return &GameResponse{Success: false, Error: "too many running games"}, nil
	}
	difficulty := rules.Difficulty(strings.ToLower(strings.TrimSpace(req.Difficulty)))
	if difficulty == "" {
		difficulty = rules.Normal
	}

	id, state, err := s.manager.CreateGame(req.Players, difficulty)
	if err != nil {
		return &GameResponse{Success: false, Error: err.Error()}, nil
	}
	if req.Autoplay {
		if err := s.startAutoplay(id); err != nil {
			return &GameResponse{Success: false, GameID: id, Error: err.Error()}, nil
		}
	}
	return &GameResponse{Success: true, GameID: id, State: state}, nil
}

func (s *gameServer) GetState(ctx context.Context, req *GameRequest) (*GameResponse, error) {
	id := strings.TrimSpace(req.GameID)
	if id == "" {
		return &GameResponse{Success: false, Error: "game_id is required"}, nil
	}
	state, err := s.manager.GetState(id)
	if err != nil {
		return &GameResponse{Success: false, Error: "game not found"}, nil
	}
	return &GameResponse{Success: true, GameID: id, State: state}, nil
}

func (s *gameServer) Dispatch(ctx context.Context, req *DispatchRequest) (*GameResponse, error) {
	id := strings.TrimSpace(req.GameID)
	if id == "" {
		return &GameResponse{Success: false, Error: "game_id is required"}, nil
	}
	if len(req.Action) == 0 {
		return &GameResponse{Success: false, Error: "action is required"}, nil
	}
	action, err := playerAction(req.Action)
	if err != nil {
		return &GameResponse{Success: false, Error: err.Error()}, nil
	}

	state, err := s.manager.Dispatch(id, action)
	if err != nil {
		return &GameResponse{Success: false, Error: errorText(err)}, nil
	}
	return &GameResponse{Success: true, GameID: id, State: state}, nil
}

func (s *gameServer) Undo(ctx context.Context, req *GameRequest) (*GameResponse, error) {
	id := strings.TrimSpace(req.GameID)
	state, err := s.manager.Undo(id)
	if err != nil {
		return &GameResponse{Success: false, Error: errorText(err)}, nil
	}
	return &GameResponse{Success: true, GameID: id, State: state}, nil
}

func (s *gameServer) ListGames(ctx context.Context, req *ListRequest) (*ListGamesResponse, error) {
	summaries := s.manager.ListGames()
	views := make([]GameView, 0, len(summaries))
	for _, g := range summaries {
		views = append(views, GameView{
			GameID:     g.GameID,
			Players:    g.Players,
			Difficulty: string(g.Difficulty),
			Status:     string(g.Status),
			Turn:       g.Turn,
			Autoplay:   s.autoplay != nil && s.autoplay.IsRunning(g.GameID),
			CreatedAt:  g.CreatedAt,
		})
	}
	return &ListGamesResponse{Success: true, Games: views}, nil
}

func (s *gameServer) SetAutoplay(ctx context.Context, req *SetAutoplayRequest) (*AutoplayResponse, error) {
	if s.autoplay == nil {
		return &AutoplayResponse{Success: false, Error: "autoplay not available"}, nil
	}
	id := strings.TrimSpace(req.GameID)
	if id == "" {
		return &AutoplayResponse{Success: false, Error: "game_id is required"}, nil
	}
	var err error
	if req.Enabled {
		err = s.startAutoplay(id)
	} else {
		err = s.autoplay.Set(s.base, id, false)
	}
	if err != nil {
		return &AutoplayResponse{Success: false, Error: errorText(err)}, nil
	}
	return &AutoplayResponse{Success: true, Running: s.autoplay.IsRunning(id)}, nil
}

func (s *gameServer) startAutoplay(id string) error {
	if s.autoplay == nil {
		return errors.New("autoplay not available")
	}
	return s.autoplay.Set(s.base, id, true)
}

func (s *gameServer) RemoveGame(ctx context.Context, req *GameRequest) (*BasicResponse, error) {
	id := strings.TrimSpace(req.GameID)
	if s.autoplay != nil {
		s.autoplay.Stop(id)
	}
	if err := s.manager.RemoveGame(id); err != nil {
		return &BasicResponse{Success: false, Error: errorText(err)}, nil
	}
	return &BasicResponse{Success: true}, nil
}

// ==================== Snapshots ====================

func (s *gameServer) ImportSnapshot(ctx context.Context, req *ImportSnapshotRequest) (*GameResponse, error) {
	format, err := game.ParseFormat(req.Format)
	if err != nil {
		return &GameResponse{Success: false, Error: err.Error()}, nil
	}
	state, err := game.DecodeSnapshot([]byte(req.Snapshot), format)
	if err != nil {
		return &GameResponse{Success: false, Error: err.Error()}, nil
	}
	return s.register(state)
}

func (s *gameServer) register(state *game.GameState) (*GameResponse, error) {
	loaded := s.manager.Engine().Apply(state, game.LoadGame{Snapshot: state})
	id, err := s.manager.AddGame(loaded)
	if err != nil {
		return &GameResponse{Success: false, Error: err.Error()}, nil
	}
	return &GameResponse{Success: true, GameID: id, State: loaded}, nil
}

func (s *gameServer) SaveGame(ctx context.Context, req *SaveGameRequest) (*SaveGameResponse, error) {
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "persistence disabled")
	}
	id := strings.TrimSpace(req.GameID)
	state, err := s.manager.GetState(id)
	if err != nil {
		return &SaveGameResponse{Success: false, Error: "game not found"}, nil
	}
	name := req.Name
	if name == "" {
		name = id
	}
	rec, err := repository.NewRecord(req.SaveID, name, state, s.now())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode save: %v", err)
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Error("failed to save game", zap.String("game_id", id), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to save game")
	}
	s.logger.Info("game saved",
		zap.String("game_id", id),
		zap.String("save_id", rec.ID),
		zap.Int("turn", rec.Turn),
	)
	return &SaveGameResponse{Success: true, SaveID: rec.ID, Checksum: rec.Checksum}, nil
}

func (s *gameServer) LoadSavedGame(ctx context.Context, req *LoadSavedGameRequest) (*GameResponse, error) {
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "persistence disabled")
	}
	rec, err := s.store.Load(ctx, strings.TrimSpace(req.SaveID))
	if errors.Is(err, repository.ErrNotFound) {
		return &GameResponse{Success: false, Error: "save not found"}, nil
	}
	if err != nil {
		s.logger.Error("failed to load save", zap.String("save_id", req.SaveID), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to load save")
	}
	state, err := rec.State()
	if err != nil {
		return &GameResponse{Success: false, Error: err.Error()}, nil
	}
	return s.register(state)
}

func (s *gameServer) ListSaves(ctx context.Context, req *ListRequest) (*ListSavesResponse, error) {
	if s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "persistence disabled")
	}
	saves, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("failed to list saves", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to list saves")
	}
	views := make([]SaveView, 0, len(saves))
	for _, sv := range saves {
		views = append(views, SaveView{
			SaveID:     sv.ID,
			Name:       sv.Name,
			Turn:       sv.Turn,
			Status:     string(sv.Status),
			Difficulty: sv.Difficulty,
			SavedAt:    sv.SavedAt,
		})
	}
	return &ListSavesResponse{Success: true, Saves: views}, nil
}

// errLoadGameDispatch rejects snapshots sent as ordinary actions. Whole
// states are only accepted through the admin-guarded ImportSnapshot.
var errLoadGameDispatch = errors.New("LOAD_GAME cannot be dispatched, use ImportSnapshot")

// playerAction decodes an action sent by a client.
func playerAction(data []byte) (game.Action, error) {
	action, err := game.UnmarshalAction(data)
	if err != nil {
		return nil, err
	}
	if action.Kind() == game.KindLoadGame {
		return nil, errLoadGameDispatch
	}
	return action, nil
}

func errorText(err error) string {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		return "game not found"
	case errors.Is(err, game.ErrNothingToUndo):
		return "nothing to undo"
	case errors.Is(err, game.ErrGameOver):
		return "game is over"
	default:
		return err.Error()
	}
}

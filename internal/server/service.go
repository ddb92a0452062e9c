package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "legacy.v1.GameService"

// Messages travel as JSON; clients select the codec with
// grpc.CallContentSubtype(CodecName).
const CodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return CodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ==================== Messages ====================

type CreateGameRequest struct {
	Players    int    `json:"players"`
	Difficulty string `json:"difficulty"`
	Autoplay   bool   `json:"autoplay,omitempty"`
}

type GameRequest struct {
	GameID string `json:"game_id"`
}

// DispatchRequest carries one action in the {"type","payload"} envelope.
type DispatchRequest struct {
	GameID string          `json:"game_id"`
	Action json.RawMessage `json:"action"`
}

type SetAutoplayRequest struct {
	GameID  string `json:"game_id"`
	Enabled bool   `json:"enabled"`
}

type SaveGameRequest struct {
	GameID string `json:"game_id"`
	SaveID string `json:"save_id,omitempty"`
	Name   string `json:"name,omitempty"`
}

type LoadSavedGameRequest struct {
	SaveID string `json:"save_id"`
}

type ListRequest struct{}

// ImportSnapshotRequest loads a raw snapshot document into a new game.
type ImportSnapshotRequest struct {
	Snapshot string `json:"snapshot"`
	Format   string `json:"format,omitempty"`
}

type BasicResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type GameResponse struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	GameID  string          `json:"game_id,omitempty"`
	State   *game.GameState `json:"state,omitempty"`
}

type AutoplayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Running bool   `json:"running"`
}

type SaveGameResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	SaveID   string `json:"save_id,omitempty"`
	Checksum string `json:"checksum,omitempty"`
}

type SaveView struct {
	SaveID     string    `json:"save_id"`
	Name       string    `json:"name"`
	Turn       int       `json:"turn"`
	Status     string    `json:"status"`
	Difficulty string    `json:"difficulty"`
	SavedAt    time.Time `json:"saved_at"`
}

type ListSavesResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Saves   []SaveView `json:"saves"`
}

type GameView struct {
	GameID     string    `json:"game_id"`
	Players    int       `json:"players"`
	Difficulty string    `json:"difficulty"`
	Status     string    `json:"status"`
	Turn       int       `json:"turn"`
	Autoplay   bool      `json:"autoplay"`
	CreatedAt  time.Time `json:"created_at"`
}

type ListGamesResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
	Games   []GameView `json:"games"`
}

// ==================== Service descriptor ====================

// GameServiceServer is the server API.
type GameServiceServer interface {
	CreateGame(context.Context, *CreateGameRequest) (*GameResponse, error)
	GetState(context.Context, *GameRequest) (*GameResponse, error)
	Dispatch(context.Context, *DispatchRequest) (*GameResponse, error)
	Undo(context.Context, *GameRequest) (*GameResponse, error)
	ListGames(context.Context, *ListRequest) (*ListGamesResponse, error)
	SetAutoplay(context.Context, *SetAutoplayRequest) (*AutoplayResponse, error)
	SaveGame(context.Context, *SaveGameRequest) (*SaveGameResponse, error)
	LoadSavedGame(context.Context, *LoadSavedGameRequest) (*GameResponse, error)
	ListSaves(context.Context, *ListRequest) (*ListSavesResponse, error)
	ImportSnapshot(context.Context, *ImportSnapshotRequest) (*GameResponse, error)
	RemoveGame(context.Context, *GameRequest) (*BasicResponse, error)
}

// FullMethod returns the path of a GameService method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(GameServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GameServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(GameServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// GameServiceDesc describes the service for grpc.Server.RegisterService.
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateGame", GameServiceServer.CreateGame),
		unary("GetState", GameServiceServer.GetState),
		unary("Dispatch", GameServiceServer.Dispatch),
		unary("Undo", GameServiceServer.Undo),
		unary("ListGames", GameServiceServer.ListGames),
		unary("SetAutoplay", GameServiceServer.SetAutoplay),
		unary("SaveGame", GameServiceServer.SaveGame),
		unary("LoadSavedGame", GameServiceServer.LoadSavedGame),
		unary("ListSaves", GameServiceServer.ListSaves),
		unary("ImportSnapshot", GameServiceServer.ImportSnapshot),
		unary("RemoveGame", GameServiceServer.RemoveGame),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "legacy/v1/game_service",
}

// RegisterGameServiceServer registers srv on s.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&GameServiceDesc, srv)
}

// ==================== Client ====================

// GameServiceClient calls a remote GameService.
type GameServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewGameServiceClient(cc grpc.ClientConnInterface) *GameServiceClient {
	return &GameServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GameServiceClient) CreateGame(ctx context.Context, in *CreateGameRequest, opts ...grpc.CallOption) (*GameResponse, error) {
	return invoke[GameResponse](ctx, c.cc, "CreateGame", in, opts)
}

func (c *GameServiceClient) GetState(ctx context.Context, in *GameRequest, opts ...grpc.CallOption) (*GameResponse, error) {
	return invoke[GameResponse](ctx, c.cc, "GetState", in, opts)
}

func (c *GameServiceClient) Dispatch(ctx context.Context, in *DispatchRequest, opts ...grpc.CallOption) (*GameResponse, error) {
	return invoke[GameResponse](ctx, c.cc, "Dispatch", in, opts)
}

func (c *GameServiceClient) Undo(ctx context.Context, in *GameRequest, opts ...grpc.CallOption) (*GameResponse, error) {
	return invoke[GameResponse](ctx, c.cc, "Undo", in, opts)
}

func (c *GameServiceClient) ListGames(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListGamesResponse, error) {
	return invoke[ListGamesResponse](ctx, c.cc, "ListGames", in, opts)
}

func (c *GameServiceClient) SetAutoplay(ctx context.Context, in *SetAutoplayRequest, opts ...grpc.CallOption) (*AutoplayResponse, error) {
	return invoke[AutoplayResponse](ctx, c.cc, "SetAutoplay", in, opts)
}

func (c *GameServiceClient) SaveGame(ctx context.Context, in *SaveGameRequest, opts ...grpc.CallOption) (*SaveGameResponse, error) {
	return invoke[SaveGameResponse](ctx, c.cc, "SaveGame", in, opts)
}

func (c *GameServiceClient) LoadSavedGame(ctx context.Context, in *LoadSavedGameRequest, opts ...grpc.CallOption) (*GameResponse, error) {
	return invoke[GameResponse](ctx, c.cc, "LoadSavedGame", in, opts)
}

func (c *GameServiceClient) ListSaves(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListSavesResponse, error) {
	return invoke[ListSavesResponse](ctx, c.cc, "ListSaves", in, opts)
}

func (c *GameServiceClient) ImportSnapshot(ctx context.Context, in *ImportSnapshotRequest, opts ...grpc.CallOption) (*GameResponse, error) {
	return invoke[GameResponse](ctx, c.cc, "ImportSnapshot", in, opts)
}

func (c *GameServiceClient) RemoveGame(ctx context.Context, in *GameRequest, opts ...grpc.CallOption) (*BasicResponse, error) {
	return invoke[BasicResponse](ctx, c.cc, "RemoveGame", in, opts)
}

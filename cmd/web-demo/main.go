// Command web-demo serves only the WebSocket hub with one autoplaying game,
// for trying a browser client without the gRPC server or a database.
package main

import (
	"context"
	"flag"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/config"
	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/atilla-legacy/legacy-server-go/internal/server"
	"github.com/atilla-legacy/legacy-server-go/internal/sim"
	"go.uber.org/zap"
)

var (
	addr       = flag.String("addr", ":8080", "listen address")
	players    = flag.Int("players", 4, "players in the demo game")
	difficulty = flag.String("difficulty", string(rules.Normal), "demo game difficulty")
	interval   = flag.Duration("interval", 400*time.Millisecond, "autoplay interval")
)

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	m := game.NewManager(game.NewEngine(game.WithRand(rng), game.WithLogger(logger)), logger)
	ap := sim.NewAutoplayer(m, sim.NewPlanner(nil, rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))), *interval, logger)
	hub := server.NewHub(ctx, m, ap, logger)
	m.SetNotificationHandler(hub.HandleNotification)
	go hub.Run()

	id, _, err := m.CreateGame(*players, rules.Difficulty(*difficulty))
	if err != nil {
		logger.Fatal("failed to create demo game", zap.Error(err))
	}
	if err := ap.Start(ctx, id); err != nil {
		logger.Fatal("failed to start autoplay", zap.Error(err))
	}

	logger.Info("demo game running",
		zap.String("game_id", id),
		zap.String("endpoint", "ws://localhost"+*addr+"/ws"),
	)

	cfg := config.WebSocketConfig{Enabled: true, Address: *addr, Path: "/ws"}
	if err := server.StartWebSocketServer(ctx, cfg, hub, logger); err != nil {
		logger.Fatal("WebSocket server error", zap.Error(err))
	}
	ap.StopAll()
}

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/config"
	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/atilla-legacy/legacy-server-go/internal/repository"
	"github.com/atilla-legacy/legacy-server-go/internal/server"
	"github.com/atilla-legacy/legacy-server-go/internal/sim"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting Legacy of Atilla server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if cfg.Auth.AdminPasswordHash == "" {
		logger.Warn("admin password not configured; admin RPC access disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	store, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to open save store", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	} else {
		logger.Warn("persistence disabled; save RPCs will fail")
	}

	rng := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	engine := game.NewEngine(game.WithRand(rng), game.WithLogger(logger))

	var managerOpts []game.ManagerOption
	if cfg.Replay.Enabled {
		recorder := game.NewReplayRecorder(logger, cfg.Replay.Dir)
		managerOpts = append(managerOpts, game.WithRecorder(recorder))
		logger.Info("replay recording enabled", zap.String("dir", cfg.Replay.Dir))
	}
	gameMgr := game.NewManager(engine, logger, managerOpts...)
	logger.Info("game manager initialized")

	planner := sim.NewPlanner(engine.Graph(), rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64())))
	autoplayer := sim.NewAutoplayer(gameMgr, planner, cfg.Autoplay.Interval, logger)
	logger.Info("autoplayer initialized", zap.Duration("interval", cfg.Autoplay.Interval))

	hub := server.NewHub(ctx, gameMgr, autoplayer, logger)
	gameMgr.SetNotificationHandler(hub.HandleNotification)
	go hub.Run()

	if cfg.Autoplay.Enabled {
		id, _, err := gameMgr.CreateGame(4, "normal")
		if err != nil {
			logger.Fatal("failed to create autoplay game", zap.Error(err))
		}
		if err := autoplayer.Start(ctx, id); err != nil {
			logger.Fatal("failed to start autoplay", zap.Error(err))
		}
		logger.Info("autoplay game running", zap.String("game_id", id))
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
			server.AdminInterceptor(cfg.Auth.AdminPasswordHash),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)

	server.RegisterGameServiceServer(grpcServer, server.NewGameServer(ctx, gameMgr, server.Options{
		Autoplay: autoplayer,
		Store:    store,
		MaxGames: cfg.Server.MaxGames,
	}, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	if cfg.Server.WebSocket.Enabled {
		go func() {
			if wsErr := server.StartWebSocketServer(ctx, cfg.Server.WebSocket, hub, logger); wsErr != nil {
				logger.Error("WebSocket server error", zap.Error(wsErr))
			}
		}()
	}

	logger.Info("server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.String("database_driver", cfg.Database.Driver),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	autoplayer.StopAll()
	cancel()
	grpcServer.GracefulStop()

	logger.Info("server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

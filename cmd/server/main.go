package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stratego-online/stratego-server-go/internal/ai"
	"github.com/stratego-online/stratego-server-go/internal/config"
	"github.com/stratego-online/stratego-server-go/internal/game"
	"github.com/stratego-online/stratego-server-go/internal/repository"
	"github.com/stratego-online/stratego-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

var (
	configPath = flag.String("config", "", "path to configuration file (default: search $XDG_CONFIG_DIRS for "+config.DefaultConfigFile+")")
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

	logger.Info("starting Stratego server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	difficulty, err := ai.ParseDifficulty(cfg.Game.DefaultDifficulty)
	if err != nil {
		logger.Fatal("invalid default difficulty", zap.Error(err))
	}

	opts := game.Options{
		Opponent:          ai.NewSeededOpponent(cfg.Game.AISeed, logger),
		DefaultDifficulty: difficulty,
	}
	if cfg.Game.RecordReplays {
		opts.Replays = game.NewReplayRecorder(logger, cfg.Game.ReplayDir)
		logger.Info("replay recording enabled", zap.String("dir", cfg.Game.ReplayDir))
	}
	engine := game.NewEngine(logger, opts)

	watchers := server.NewBroadcaster()
	hub := server.NewHub(engine, logger)
	handlers := []game.NotificationHandler{hub.Handle, watchers.Publish}

	// Initialize database
	if cfg.Database.Enabled {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)

		gameRepo := repository.NewGameRepository(db)
		active, err := gameRepo.ListActiveGames(ctx)
		if err != nil {
			logger.Fatal("failed to load active games", zap.Error(err))
		}
		restored := server.RestoreGames(engine, active, logger)
		logger.Info("active games restored",
			zap.Int("stored", len(active)),
			zap.Int("restored", restored),
		)

		handlers = append(handlers, server.NewPersister(engine, gameRepo, logger).Handle)
	} else {
		logger.Warn("database disabled; games will not survive a restart")
	}

	engine.SetNotificationHandler(server.FanOut(handlers...))

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)
	server.RegisterStrategoServiceServer(grpcServer, server.NewStrategoServer(engine, watchers, version, logger))

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTP.Address,
		Handler:           server.NewAPI(engine, hub, logger).Router(cfg.Server.HTTP.WebSocketPath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 2)

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			serverErrCh <- fmt.Errorf("grpc: %w", serveErr)
		}
	}()

	// Start HTTP and WebSocket server
	go func() {
		logger.Info("starting HTTP server",
			zap.String("address", cfg.Server.HTTP.Address),
			zap.String("websocket_path", cfg.Server.HTTP.WebSocketPath),
		)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("http: %w", serveErr)
		}
	}()

	logger.Info("Stratego server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("default_difficulty", string(difficulty)),
		zap.Int("games", engine.GameCount()),
	)

	// Wait for termination signal or a server failure
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case serveErr := <-serverErrCh:
		logger.Error("server error", zap.Error(serveErr))
	}

	// Graceful shutdown
	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful HTTP shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		logger.Warn("gRPC graceful stop timed out; forcing")
		grpcServer.Stop()
	}

	logger.Info("Stratego server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}

	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build(zap.Fields(zap.String("service", "stratego")))
}

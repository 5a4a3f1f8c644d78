package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/woxQAQ/pnbridge/internal/config"
	"github.com/woxQAQ/pnbridge/internal/module"
	"github.com/woxQAQ/pnbridge/internal/module/example"
	"github.com/woxQAQ/pnbridge/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// builtinModules are the native modules compiled into this binary.
func builtinModules() []module.Module {
	return []module.Module{
		example.New(),
	}
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	hostScript := flag.String("script", "", "Wasm host script to run; overrides config")
	flag.Parse()

	// Bootstrap logger for configuration errors
	logger, _ := zap.NewProduction()

	// Load configuration
	cfg, err := config.LoadBridgeConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *hostScript != "" {
		cfg.HostScript = *hostScript
	}

	leveled, err := newLogger(cfg.LogLevel)
	if err != nil {
		logger.Fatal("Invalid log level", zap.String("level", cfg.LogLevel), zap.Error(err))
	}
	os.Exit(run(cfg, leveled))
}

func run(cfg *config.BridgeConfig, logger *zap.Logger) int {
	defer logger.Sync()

	logger.Info("Starting pnbridge",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := server.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Close(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	if err := srv.LoadModules(ctx, builtinModules()...); err != nil {
		logger.Error("Some modules failed to load", zap.Error(err))
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	if cfg.HostScript == "" {
		logger.Info("No host script configured, waiting for shutdown signal",
			zap.Strings("functions", srv.Functions().Names()),
		)
		<-ctx.Done()
		return 0
	}

	if err := srv.RunHostScript(ctx, cfg.HostScript, flag.Args()...); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Host script failed", zap.Error(err))
		return 1
	}

	logger.Info("Host script finished")
	return 0
}

// newLogger builds a development logger for debug and a production logger
// otherwise, at the given level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if lvl == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

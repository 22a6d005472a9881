package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/upb/planning-agent/app"
	"github.com/upb/planning-agent/config"
	"github.com/upb/planning-agent/internal/observability"
	"github.com/upb/planning-agent/routes"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize dependencies", zap.Error(err))
	}

	// Ops server (health, readiness, metrics) runs beside the MCP endpoint
	var opsServer *http.Server
	if cfg.Ops.Enabled {
		routes.Version = Version
		opsServer = &http.Server{
			Addr:         cfg.Ops.Address(),
			Handler:      routes.SetupRoutes(deps),
			ReadTimeout:  cfg.Ops.ReadTimeout,
			WriteTimeout: cfg.Ops.WriteTimeout,
		}
		go func() {
			logger.Info("ops server listening", zap.String("addr", cfg.Ops.Address()))
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ops server error", zap.Error(err))
			}
		}()
	}

	mcpServer := server.NewMCPServer(
		"planning-agent",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	deps.Tools.Register(mcpServer)

	logger.Info("planning agent ready",
		zap.String("version", Version),
		zap.String("primary_model", cfg.Models.Primary),
		zap.String("secondary_model", cfg.Models.Secondary))

	// Blocks until stdin closes or the process is signalled
	stdioServer := server.NewStdioServer(mcpServer)
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server terminated", zap.Error(err))
	}

	if opsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Ops.ShutdownTimeout)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("ops server shutdown failed", zap.Error(err))
		}
	}

	logger.Info("planning agent stopped")
}

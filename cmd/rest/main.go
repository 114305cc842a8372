package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"podcast-studio-be/internal/bootstrap"
	"podcast-studio-be/internal/config"
	"podcast-studio-be/internal/pkg/logger"
	"podcast-studio-be/internal/server"
	"podcast-studio-be/internal/tracer"
	"podcast-studio-be/pkg/database"
)

func main() {
	// 1. Configuration and logging
	cfg := config.Load()
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	defer sysLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	shutdownTracer, err := tracer.InitTracer(ctx, tracer.Config{
		Enabled:  cfg.Tracing.Enabled,
		Endpoint: cfg.Tracing.Endpoint,
	}, sysLogger)
	if err != nil {
		sysLogger.Warn("Main", "Tracing disabled", map[string]interface{}{"error": err.Error()})
	}
	defer shutdownTracer(context.Background())

	// 3. Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
	if err != nil {
		sysLogger.Error("Main", "Unable to connect to database", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// 4. Dependencies and background workers
	container := bootstrap.NewContainer(gormDB, cfg, sysLogger)
	defer container.Close()
	if err := container.Start(ctx); err != nil {
		sysLogger.Error("Main", "Failed to start background services", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	// 5. HTTP server
	srv := server.New(cfg, container, sysLogger)
	go func() {
		if err := srv.Run(); err != nil {
			sysLogger.Error("Main", "Server stopped", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sysLogger.Warn("Main", "Graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

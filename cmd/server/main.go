package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerkeeper/ledgerkeeper/internal/config"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/handlers"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/middleware"
	"github.com/ledgerkeeper/ledgerkeeper/internal/server/storage/sqlite"
	syncsvc "github.com/ledgerkeeper/ledgerkeeper/internal/server/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	logger.Info("Ledgerkeeper sync server starting",
		"version", Version,
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath)

	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("Failed to close storage", "error", cerr)
		}
	}()

	syncService := syncsvc.NewService(logger, store)

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(cfg.JWTSecret),
		AccessTokenTTL: cfg.AccessTokenTTL,
	}

	syncHandler := handlers.NewSyncHandler(logger, syncService)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/health", healthHandler.Health)

	// Цепочка для sync-эндпоинтов: auth → rate limit (по user_id) → handler
	auth := middleware.AuthMiddleware(logger, jwtConfig)
	limit := middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateWindow, logger)
	mux.Handle("/api/v1/sync", auth(limit(http.HandlerFunc(syncHandler.HandleSync))))
	mux.Handle("/api/v1/sync/changes", auth(limit(http.HandlerFunc(syncHandler.HandleChanges))))

	// Внешняя цепочка: recovery → logging (health не логируем)
	handler := middleware.RecoveryMiddleware(logger)(
		middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(mux),
	)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
		// Раунд синхронизации ограничен дедлайном запроса: зависшая
		// транзакция не должна голодить таблицу checkpoint
		ReadTimeout:  cfg.SyncTimeout,
		WriteTimeout: cfg.SyncTimeout,
	}

	errC := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return fmt.Errorf("listen failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func printVersion() {
	fmt.Printf("Ledgerkeeper Sync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

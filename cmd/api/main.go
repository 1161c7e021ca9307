package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"factboard/api/internal/app"
	"factboard/api/internal/config"
	"factboard/api/internal/logging"
	"factboard/api/internal/search"
	"factboard/api/internal/store"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	dataStore, fallback, closer, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger.Named("search"))
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, fallback, logger.Named("search"))
	go searchService.ReindexAll(ctx, dataStore)
	searchService.ReindexOnRecovery(ctx, dataStore)

	service := app.New(dataStore, searchService, logger.Named("service"))
	limiter := app.NewClientLimiter(cfg.VoteRate, cfg.VoteBurst, cfg.TrustProxy)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, limiter, logger.Named("http"))
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("factboard api listening", zap.String("addr", cfg.Addr), zap.String("backend", cfg.Backend))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", zap.Stringer("signal", sig))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

// openBackend connects the configured store. Only Postgres has a search
// fallback of its own.
func openBackend(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Backend, search.Fallback, io.Closer, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := store.Open(ctx, cfg.DatabaseURL, store.PoolOptions{MaxOpen: cfg.DBMaxConns})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir, logger.Named("migrate")); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("migrations failed: %w", err)
		}
		pg := store.NewPostgresStore(db)
		return pg, pg, db, nil
	case config.BackendRedis:
		rs, err := store.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return rs, nil, rs, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, config.BackendPostgres, config.BackendRedis)
	}
}

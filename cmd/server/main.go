// Command auth-server starts the domain auth HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/duersjefen/filter-ical-sub004/internal/config"
	"github.com/duersjefen/filter-ical-sub004/internal/guard"
	"github.com/duersjefen/filter-ical-sub004/internal/migrate"
	"github.com/duersjefen/filter-ical-sub004/internal/ratelimit"
	"github.com/duersjefen/filter-ical-sub004/internal/repository/postgres"
	httpserver "github.com/duersjefen/filter-ical-sub004/internal/server/http"
	"github.com/duersjefen/filter-ical-sub004/internal/service"
	"github.com/duersjefen/filter-ical-sub004/internal/token"
	"github.com/duersjefen/filter-ical-sub004/internal/vault"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the HTTP server.
// Configuration errors are fatal here: the process refuses to serve traffic
// rather than run with a weak or missing secret.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}

	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres connect", zap.Error(err))
	}
	defer db.Close()

	domainRepo := postgres.NewDomainRepo(db)
	accessRepo := postgres.NewAccessRepo(db)

	tokens, err := token.NewService(cfg.TokenSecret, cfg.TokenTTL, cfg.TokenRefreshThreshold, domainRepo)
	if err != nil {
		logger.Fatal("configuration", zap.Error(err))
	}

	g := guard.NewPGWithQuerier(db.Pool, cfg.LockoutThreshold, cfg.LockoutWindow)

	rdb, err := ratelimit.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()
	limiter := ratelimit.New(rdb, cfg.RateLimit, cfg.RateWindow)

	resolver := service.NewAccessResolver(domainRepo, accessRepo, v, tokens, g, logger)
	admin := service.NewPasswordAdmin(domainRepo, accessRepo, v, logger)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      httpserver.New(resolver, admin, tokens, limiter, logger).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freekieb/go-gate/internal/config"
	"github.com/freekieb/go-gate/internal/credstore"
	apperrors "github.com/freekieb/go-gate/internal/errors"
	"github.com/freekieb/go-gate/internal/health"
	"github.com/freekieb/go-gate/internal/ratelimit"
	"github.com/freekieb/go-gate/internal/token"
	"github.com/freekieb/go-gate/internal/web"
)

func main() {
	ctx := context.Background()

	if err := Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func Run(ctx context.Context) error {
	// Graceful shutdown support by listening for interruptions
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeConfigError, "loading configuration failed")
	}

	logLevel := slog.LevelInfo
	if !cfg.Server.IsProduction() {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	store, err := newStore(cfg, logger)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeStoreUnavailable, "connecting to credential store failed")
	}
	defer store.Close()

	tokens := token.NewService(store, logger, token.Config{
		AccessSecret:  []byte(cfg.Auth.AccessSecret),
		RefreshSecret: []byte(cfg.Auth.RefreshSecret),
		AccessTTL:     cfg.Auth.AccessTTL,
		RefreshTTL:    cfg.Auth.RefreshTTL,
		APIKeyTTL:     cfg.Auth.APIKeyTTL,
	})
	limiter := ratelimit.NewLimiter(store, logger, ratelimit.Config{
		Points: cfg.RateLimit.Points,
		Window: cfg.RateLimit.Window,
		Block:  cfg.RateLimit.Block,
	})
	checker := health.NewChecker(store, logger)

	server := web.NewServer(cfg, logger, tokens, limiter, checker)

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("listening and serving", "addr", server.Addr, "environment", cfg.Server.Environment)
		srvErr <- server.ListenAndServe()
	}()

	// Wait for interruption.
	select {
	case err := <-srvErr:
		// Error when starting HTTP server.
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return err
		}

		logger.Info("shutdown completed")
	}

	return nil
}

func newStore(cfg config.Config, logger *slog.Logger) (credstore.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		logger.Warn("using in-memory credential store; credentials do not survive restarts")
		return credstore.NewMemoryStore(), nil
	default:
		redisCfg := credstore.DefaultRedisConfig()
		redisCfg.Addr = cfg.Store.RedisAddr
		redisCfg.Password = cfg.Store.RedisPassword
		redisCfg.DB = cfg.Store.RedisDB
		redisCfg.PoolSize = cfg.Store.RedisPoolSize
		redisCfg.OpTimeout = cfg.Store.OpTimeout
		redisCfg.Prefix = cfg.Store.KeyPrefix
		return credstore.NewRedisStore(redisCfg, logger)
	}
}

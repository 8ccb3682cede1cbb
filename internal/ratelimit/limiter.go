// Package ratelimit implements a per-identity fixed window limiter with a
// severe penalty: a short window tolerates bursts, but exceeding the quota
// once blocks the identity for a long cooldown. Identities are typically
// derived from network addresses, which are cheap to spoof, so cheap retries
// must not be free.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/freekieb/go-gate/internal/credstore"
	apperrors "github.com/freekieb/go-gate/internal/errors"
)

const (
	countKeyPrefix = "ratelimit:count:"
	blockKeyPrefix = "ratelimit:block:"
)

// Config holds the limiter parameters.
type Config struct {
	Points int           // quota per window
	Window time.Duration // counting window
	Block  time.Duration // cooldown once the quota is exceeded
}

// DefaultConfig returns the default limiter parameters.
func DefaultConfig() Config {
	return Config{
		Points: 10,
		Window: time.Second,
		Block:  15 * time.Minute,
	}
}

// Limiter tracks per-identity consumption against a fixed quota. It is
// stateless over the store and safe for concurrent use; correctness of the
// concurrent case rests on the store's atomic Increment.
type Limiter struct {
	store  credstore.Store
	logger *slog.Logger
	config Config
}

// NewLimiter creates a rate limiter over the given store.
func NewLimiter(store credstore.Store, logger *slog.Logger, config Config) *Limiter {
	if config.Points <= 0 {
		config = DefaultConfig()
	}
	return &Limiter{
		store:  store,
		logger: logger,
		config: config,
	}
}

// Consume spends one quota point for the identity.
//
// A blocked identity fails immediately with RATE_LIMITED carrying the
// remaining cooldown as a retry-after hint; the block is not extended.
// Exceeding the quota transitions the identity into the blocked state for the
// full cooldown. A store failure fails closed with STORE_UNAVAILABLE.
func (l *Limiter) Consume(ctx context.Context, identity string) error {
	blockKey := blockKeyPrefix + identity

	remaining, err := l.store.TTL(ctx, blockKey)
	switch {
	case err == nil:
		// Block takes precedence over everything, including a window that
		// would otherwise have reset the counter.
		return apperrors.RateLimitedError(remaining)
	case errors.Is(err, credstore.ErrNotFound):
		// Not blocked, fall through to the counter.
	default:
		return apperrors.StoreUnavailableError("rate limit state unavailable", err)
	}

	count, err := l.store.Increment(ctx, countKeyPrefix+identity, l.config.Window)
	if err != nil {
		return apperrors.StoreUnavailableError("rate limit counter unavailable", err)
	}

	if count > int64(l.config.Points) {
		if err := l.store.Set(ctx, blockKey, "1", l.config.Block); err != nil {
			return apperrors.StoreUnavailableError("failed to record rate limit block", err)
		}

		l.logger.WarnContext(ctx, "Rate limit exceeded, identity blocked",
			slog.String("identity", identity),
			slog.Int64("count", count),
			slog.Duration("block", l.config.Block))

		return apperrors.RateLimitedError(l.config.Block)
	}

	return nil
}

// Reset clears the counter and any block for an identity. Administrative
// escape hatch; not part of the request path.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	if err := l.store.Delete(ctx, countKeyPrefix+identity); err != nil {
		return apperrors.StoreUnavailableError("failed to reset rate limit counter", err)
	}
	if err := l.store.Delete(ctx, blockKeyPrefix+identity); err != nil {
		return apperrors.StoreUnavailableError("failed to reset rate limit block", err)
	}
	return nil
}

// Package credstore provides the TTL-governed key-value store that owns all
// shared credential state: refresh token records, api key secrets and rate
// limit counters. It is the single synchronization point between request
// handlers; nothing above it holds mutable state.
package credstore

import (
	"context"
	"errors"
	"time"
)

// Store errors
var (
	ErrNotFound    = errors.New("credstore: key not found")
	ErrUnavailable = errors.New("credstore: store unavailable")
)

// Store is a TTL-capable key-value store. All operations are atomic with
// respect to each other for the same key.
type Store interface {
	// Set stores a value with an absolute expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Get returns the value for key, or ErrNotFound when absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// Delete removes a key unconditionally.
	Delete(ctx context.Context, key string) error

	// Increment atomically increments a counter, creating it with the given
	// TTL on first use. The TTL is NOT extended by subsequent increments, so
	// the counter behaves as a fixed window starting at its creation.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// TTL returns the remaining lifetime of a key, or ErrNotFound when the
	// key is absent or already expired.
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}

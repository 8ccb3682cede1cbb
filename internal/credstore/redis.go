package credstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis store configuration
type RedisConfig struct {
	Addr         string        // Redis server address
	Password     string        // Redis password
	DB           int           // Redis database number
	PoolSize     int           // Connection pool size
	MinIdleConns int           // Minimum idle connections
	MaxRetries   int           // Maximum number of retries
	DialTimeout  time.Duration // Connection timeout
	ReadTimeout  time.Duration // Read timeout
	WriteTimeout time.Duration // Write timeout
	OpTimeout    time.Duration // Per-operation deadline; a slow store fails closed
	Prefix       string        // Key prefix for namespacing
}

// DefaultRedisConfig returns default Redis configuration
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 3,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		OpTimeout:    2 * time.Second,
		Prefix:       "gate:",
	}
}

// RedisStore implements Store backed by a Redis server.
type RedisStore struct {
	client    *redis.Client
	logger    *slog.Logger
	prefix    string
	opTimeout time.Duration
}

// NewRedisStore creates a Redis-backed store and verifies connectivity.
func NewRedisStore(config *RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		MaxRetries:   config.MaxRetries,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err, "addr", config.Addr)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	logger.Info("Connected to Redis store", "addr", config.Addr, "db", config.DB)

	return &RedisStore{
		client:    client,
		logger:    logger,
		prefix:    config.Prefix,
		opTimeout: config.OpTimeout,
	}, nil
}

// buildKey creates a prefixed key
func (s *RedisStore) buildKey(key string) string {
	return s.prefix + key
}

// withDeadline bounds every store operation so an outage degrades to a fast
// failure instead of a hanging request handler.
func (s *RedisStore) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if err := s.client.Set(ctx, s.buildKey(key), value, ttl).Err(); err != nil {
		s.logger.Warn("Store set failed", "key", key, "error", err)
		return mapError(err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	val, err := s.client.Get(ctx, s.buildKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		s.logger.Warn("Store get failed", "key", key, "error", err)
		return "", mapError(err)
	}
	return val, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if err := s.client.Del(ctx, s.buildKey(key)).Err(); err != nil {
		s.logger.Warn("Store delete failed", "key", key, "error", err)
		return mapError(err)
	}
	return nil
}

func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	// INCR plus EXPIRE NX in one round trip: the TTL is set only when the key
	// has none yet, so the counter's window is fixed from its first increment.
	pipeline := s.client.Pipeline()
	incrCmd := pipeline.Incr(ctx, s.buildKey(key))
	pipeline.ExpireNX(ctx, s.buildKey(key), ttl)

	if _, err := pipeline.Exec(ctx); err != nil {
		s.logger.Warn("Store increment failed", "key", key, "error", err)
		return 0, mapError(err)
	}

	return incrCmd.Val(), nil
}

func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	ttl, err := s.client.PTTL(ctx, s.buildKey(key)).Result()
	if err != nil {
		s.logger.Warn("Store ttl failed", "key", key, "error", err)
		return 0, mapError(err)
	}
	// -2: key does not exist; -1: key exists without TTL. Every key this
	// service writes carries a TTL, so both map to not found.
	if ttl < 0 {
		return 0, ErrNotFound
	}
	return ttl, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withDeadline(ctx)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// mapError folds transport and timeout failures into ErrUnavailable so
// callers can fail closed without inspecting driver internals.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	apperrors "github.com/freekieb/go-gate/internal/errors"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTesting     Environment = "testing"
)

func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvProduction, EnvTesting:
		return true
	}
	return false
}

type StoreBackend string

const (
	StoreBackendRedis  StoreBackend = "redis"
	StoreBackendMemory StoreBackend = "memory"
)

type Config struct {
	Server    Server
	Auth      Auth
	RateLimit RateLimit
	Store     Store
}

type Server struct {
	Port           int
	Environment    Environment
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
}

func (s Server) IsProduction() bool {
	return s.Environment == EnvProduction
}

type Auth struct {
	// AccessSecret and RefreshSecret must be distinct: a single secret would
	// let a refresh token be replayed as an access token.
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	APIKeyTTL     time.Duration
	// AdminAPIKey protects the issuance and api-key management endpoints.
	AdminAPIKey string
}

type RateLimit struct {
	Points int
	Window time.Duration
	Block  time.Duration
}

type Store struct {
	Backend       StoreBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	OpTimeout     time.Duration
	KeyPrefix     string
}

const minSecretLength = 32

// Load loads configuration from the environment. A missing or malformed
// required value fails the load; there are no fallback secrets.
func Load() (Config, error) {
	var config Config
	var err error

	// Server configuration
	config.Server.Port, err = getEnvIntSafe("SERVER_PORT", 8080, false)
	if err != nil {
		return config, fmt.Errorf("server port config error: %w", err)
	}

	config.Server.Environment, err = getEnvEnvironmentSafe("SERVER_ENVIRONMENT", EnvDevelopment, false)
	if err != nil {
		return config, fmt.Errorf("server environment config error: %w", err)
	}

	config.Server.WriteTimeout, err = getEnvDurationSafe("SERVER_WRITE_TIMEOUT", 15*time.Second, false)
	if err != nil {
		return config, fmt.Errorf("server write timeout config error: %w", err)
	}

	config.Server.ReadTimeout, err = getEnvDurationSafe("SERVER_READ_TIMEOUT", 15*time.Second, false)
	if err != nil {
		return config, fmt.Errorf("server read timeout config error: %w", err)
	}

	config.Server.IdleTimeout, err = getEnvDurationSafe("SERVER_IDLE_TIMEOUT", 60*time.Second, false)
	if err != nil {
		return config, fmt.Errorf("server idle timeout config error: %w", err)
	}

	config.Server.MaxHeaderBytes, err = getEnvIntSafe("SERVER_MAX_HEADER_BYTES", 1<<20, false)
	if err != nil {
		return config, fmt.Errorf("server max header bytes config error: %w", err)
	}

	// Auth configuration
	config.Auth.AccessSecret, err = getEnvStringSafe("AUTH_ACCESS_SECRET", "", true)
	if err != nil {
		return config, apperrors.ConfigError("access secret config error", err)
	}

	config.Auth.RefreshSecret, err = getEnvStringSafe("AUTH_REFRESH_SECRET", "", true)
	if err != nil {
		return config, apperrors.ConfigError("refresh secret config error", err)
	}

	config.Auth.AccessTTL, err = getEnvDurationSafe("AUTH_ACCESS_TTL", 15*time.Minute, false)
	if err != nil {
		return config, fmt.Errorf("access TTL config error: %w", err)
	}

	config.Auth.RefreshTTL, err = getEnvDurationSafe("AUTH_REFRESH_TTL", 7*24*time.Hour, false)
	if err != nil {
		return config, fmt.Errorf("refresh TTL config error: %w", err)
	}

	config.Auth.APIKeyTTL, err = getEnvDurationSafe("AUTH_API_KEY_TTL", 30*24*time.Hour, false)
	if err != nil {
		return config, fmt.Errorf("api key TTL config error: %w", err)
	}

	config.Auth.AdminAPIKey, err = getEnvStringSafe("ADMIN_API_KEY", "", true)
	if err != nil {
		return config, apperrors.ConfigError("admin api key config error", err)
	}

	// Rate limit configuration
	config.RateLimit.Points, err = getEnvIntSafe("RATE_LIMIT_POINTS", 10, false)
	if err != nil {
		return config, fmt.Errorf("rate limit points config error: %w", err)
	}

	config.RateLimit.Window, err = getEnvDurationSafe("RATE_LIMIT_WINDOW", time.Second, false)
	if err != nil {
		return config, fmt.Errorf("rate limit window config error: %w", err)
	}

	config.RateLimit.Block, err = getEnvDurationSafe("RATE_LIMIT_BLOCK", 15*time.Minute, false)
	if err != nil {
		return config, fmt.Errorf("rate limit block config error: %w", err)
	}

	// Store configuration
	config.Store.Backend, err = getEnvStoreBackendSafe("STORE_BACKEND", StoreBackendRedis)
	if err != nil {
		return config, fmt.Errorf("store backend config error: %w", err)
	}

	config.Store.RedisAddr, err = getEnvStringSafe("REDIS_ADDR", "localhost:6379", false)
	if err != nil {
		return config, fmt.Errorf("redis address config error: %w", err)
	}

	config.Store.RedisPassword, err = getEnvStringSafe("REDIS_PASSWORD", "", false)
	if err != nil {
		return config, fmt.Errorf("redis password config error: %w", err)
	}

	config.Store.RedisDB, err = getEnvIntSafe("REDIS_DB", 0, false)
	if err != nil {
		return config, fmt.Errorf("redis DB config error: %w", err)
	}

	config.Store.RedisPoolSize, err = getEnvIntSafe("REDIS_POOL_SIZE", 10, false)
	if err != nil {
		return config, fmt.Errorf("redis pool size config error: %w", err)
	}

	config.Store.OpTimeout, err = getEnvDurationSafe("STORE_OP_TIMEOUT", 2*time.Second, false)
	if err != nil {
		return config, fmt.Errorf("store op timeout config error: %w", err)
	}

	config.Store.KeyPrefix, err = getEnvStringSafe("STORE_KEY_PREFIX", "gate:", false)
	if err != nil {
		return config, fmt.Errorf("store key prefix config error: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate enforces the invariants the loaders cannot express.
func (c Config) Validate() error {
	if len(c.Auth.AccessSecret) < minSecretLength {
		return apperrors.ConfigError(
			fmt.Sprintf("AUTH_ACCESS_SECRET must be at least %d bytes", minSecretLength), nil)
	}
	if len(c.Auth.RefreshSecret) < minSecretLength {
		return apperrors.ConfigError(
			fmt.Sprintf("AUTH_REFRESH_SECRET must be at least %d bytes", minSecretLength), nil)
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return apperrors.ConfigError("AUTH_ACCESS_SECRET and AUTH_REFRESH_SECRET must differ", nil)
	}
	if c.RateLimit.Points <= 0 {
		return apperrors.ConfigError("RATE_LIMIT_POINTS must be positive", nil)
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.Block <= 0 {
		return apperrors.ConfigError("rate limit window and block durations must be positive", nil)
	}
	if c.Store.OpTimeout <= 0 {
		return apperrors.ConfigError("STORE_OP_TIMEOUT must be positive", nil)
	}
	return nil
}

// Safe versions of config helpers that return errors instead of using log.Fatal

func getEnvStringSafe(key, defaultValue string, required bool) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		if required {
			return "", fmt.Errorf("environment variable %s is required", key)
		}
		return defaultValue, nil
	}
	return value, nil
}

func getEnvIntSafe(key string, defaultValue int, required bool) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		if required {
			return 0, fmt.Errorf("environment variable %s is required", key)
		}
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvDurationSafe(key string, defaultValue time.Duration, required bool) (time.Duration, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		if required {
			return 0, fmt.Errorf("environment variable %s is required", key)
		}
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be a valid duration: %w", key, err)
	}
	return value, nil
}

func getEnvEnvironmentSafe(key string, defaultValue Environment, required bool) (Environment, error) {
	env, exists := os.LookupEnv(key)
	if !exists {
		if required {
			return "", fmt.Errorf("environment variable %s is required", key)
		}
		return defaultValue, nil
	}
	envValue := Environment(env)
	if !envValue.IsValid() {
		return "", fmt.Errorf("environment variable %s has invalid value: %s", key, env)
	}
	return envValue, nil
}

func getEnvStoreBackendSafe(key string, defaultValue StoreBackend) (StoreBackend, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue, nil
	}
	backend := StoreBackend(value)
	switch backend {
	case StoreBackendRedis, StoreBackendMemory:
		return backend, nil
	}
	return "", fmt.Errorf("environment variable %s has invalid value: %s", key, value)
}

// Package token implements the credential lifecycle: signed access/refresh
// token pairs, server-side refresh token records, and opaque api key secrets.
// The service is stateless over the credential store and safe for concurrent
// use by all request handlers.
package token

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/freekieb/go-gate/internal/credstore"
	apperrors "github.com/freekieb/go-gate/internal/errors"
)

// Token class discriminant carried in the token_use claim. Verification
// checks it against the expected class so a refresh token can never pass as
// an access token even if both signatures were somehow acceptable.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

const (
	refreshKeyPrefix = "refresh_token:"
	apiKeyPrefix     = "api_key:"

	apiKeySecretBytes = 32 // 256 bits of entropy
)

// Claims are the signed token payload.
type Claims struct {
	jwt.RegisteredClaims
	Email    string `json:"email,omitempty"`
	TokenUse string `json:"token_use"`
}

// Pair is an access/refresh token pair issued together.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Config holds the signing secrets and lifetimes.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	APIKeyTTL     time.Duration
}

// Service issues, verifies, revokes and rotates credentials.
type Service struct {
	store  credstore.Store
	logger *slog.Logger
	config Config
}

// NewService creates a token service. The two signing secrets must differ;
// config loading enforces that before this point.
func NewService(store credstore.Store, logger *slog.Logger, config Config) *Service {
	return &Service{
		store:  store,
		logger: logger,
		config: config,
	}
}

// CreateTokens issues a signed access/refresh pair for a subject and persists
// the refresh token record. Any prior refresh record for the subject is
// superseded: one active session per subject.
func (s *Service) CreateTokens(ctx context.Context, subject, email string) (Pair, error) {
	if subject == "" {
		return Pair{}, apperrors.ValidationError("subject must not be empty", nil)
	}

	accessToken, err := s.sign(subject, email, UseAccess, s.config.AccessSecret, s.config.AccessTTL)
	if err != nil {
		return Pair{}, apperrors.InternalError("failed to sign access token", err)
	}

	refreshToken, err := s.sign(subject, email, UseRefresh, s.config.RefreshSecret, s.config.RefreshTTL)
	if err != nil {
		return Pair{}, apperrors.InternalError("failed to sign refresh token", err)
	}

	if err := s.store.Set(ctx, refreshKeyPrefix+subject, refreshToken, s.config.RefreshTTL); err != nil {
		return Pair{}, apperrors.StoreUnavailableError("failed to persist refresh token", err)
	}

	s.logger.DebugContext(ctx, "Token pair issued", "subject", subject)

	return Pair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// VerifyAccessToken verifies signature, expiry and token class of an access
// token. Every failure mode surfaces as the same INVALID_TOKEN error.
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.config.AccessSecret, UseAccess)
}

// VerifyRefreshToken verifies signature, expiry and token class of a refresh
// token. Every failure mode surfaces as the same INVALID_TOKEN error.
func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return s.verify(tokenString, s.config.RefreshSecret, UseRefresh)
}

// IsRefreshTokenValid reports whether the presented refresh token matches the
// stored record for the subject verbatim. A cryptographically valid token
// whose record was rotated or revoked is not valid. A store failure is
// returned as an error so the caller can fail closed.
func (s *Service) IsRefreshTokenValid(ctx context.Context, subject, presented string) (bool, error) {
	stored, err := s.store.Get(ctx, refreshKeyPrefix+subject)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return false, nil
		}
		return false, apperrors.StoreUnavailableError("failed to read refresh token record", err)
	}

	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1, nil
}

// RevokeRefreshToken deletes the subject's refresh token record. This is the
// only revocation mechanism; access tokens run to their natural expiry.
func (s *Service) RevokeRefreshToken(ctx context.Context, subject string) error {
	if err := s.store.Delete(ctx, refreshKeyPrefix+subject); err != nil {
		return apperrors.StoreUnavailableError("failed to delete refresh token record", err)
	}

	s.logger.InfoContext(ctx, "Refresh token revoked", "subject", subject)
	return nil
}

// Refresh exchanges a presented refresh token for a fresh pair. The presented
// token must verify AND match the stored record; the record is rotated by the
// re-issue, invalidating the presented token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	claims, err := s.VerifyRefreshToken(refreshToken)
	if err != nil {
		return Pair{}, err
	}

	valid, err := s.IsRefreshTokenValid(ctx, claims.Subject, refreshToken)
	if err != nil {
		return Pair{}, err
	}
	if !valid {
		return Pair{}, apperrors.InvalidTokenError(nil)
	}

	return s.CreateTokens(ctx, claims.Subject, claims.Email)
}

// RotateAPIKey replaces the secret for an api key id with a fresh random
// value under a full TTL. The previous secret is invalid immediately; there
// is no grace window.
func (s *Service) RotateAPIKey(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", apperrors.ValidationError("api key id must not be empty", nil)
	}

	secret, err := generateSecret()
	if err != nil {
		return "", apperrors.InternalError("failed to generate api key secret", err)
	}

	if err := s.store.Set(ctx, apiKeyPrefix+id, secret, s.config.APIKeyTTL); err != nil {
		return "", apperrors.StoreUnavailableError("failed to persist api key", err)
	}

	s.logger.InfoContext(ctx, "API key rotated", "api_key_id", id)
	return secret, nil
}

// GetAPIKey returns the current secret for an api key id.
func (s *Service) GetAPIKey(ctx context.Context, id string) (string, error) {
	secret, err := s.store.Get(ctx, apiKeyPrefix+id)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return "", apperrors.NotFoundError("api key not found", err)
		}
		return "", apperrors.StoreUnavailableError("failed to read api key", err)
	}
	return secret, nil
}

func (s *Service) sign(subject, email, use string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()

	// The jti keeps every issued token unique, so rotating a refresh token
	// always invalidates the previous one even within the same second.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:    email,
		TokenUse: use,
	})

	return token.SignedString(secret)
}

// verify is the single verification path for both token classes. Failures are
// never distinguished for the caller and the raw token is never logged.
func (s *Service) verify(tokenString string, secret []byte, expectedUse string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apperrors.InvalidTokenError(err)
	}

	if claims.Subject == "" || claims.TokenUse != expectedUse {
		return nil, apperrors.InvalidTokenError(nil)
	}

	return claims, nil
}

func generateSecret() (string, error) {
	buf := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package token

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freekieb/go-gate/internal/credstore"
	apperrors "github.com/freekieb/go-gate/internal/errors"
)

func newTestService(t *testing.T) (*Service, credstore.Store) {
	t.Helper()

	store := credstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, slog.New(slog.DiscardHandler), Config{
		AccessSecret:  []byte(strings.Repeat("a", 32)),
		RefreshSecret: []byte(strings.Repeat("b", 32)),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		APIKeyTTL:     30 * 24 * time.Hour,
	})
	return svc, store
}

func TestCreateTokens_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.CreateTokens(ctx, "user-1", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "user@example.com", claims.Email)
	require.Equal(t, UseAccess, claims.TokenUse)

	refreshClaims, err := svc.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", refreshClaims.Subject)
	require.Equal(t, UseRefresh, refreshClaims.TokenUse)
}

func TestCreateTokens_EmptySubject(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateTokens(context.Background(), "", "")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.CodeValidationFailed))
}

func TestVerify_CrossClassRejected(t *testing.T) {
	svc, _ := newTestService(t)

	pair, err := svc.CreateTokens(context.Background(), "user-1", "")
	require.NoError(t, err)

	// A refresh token must never verify as an access token, nor the reverse.
	_, err = svc.VerifyAccessToken(pair.RefreshToken)
	require.True(t, apperrors.IsType(err, apperrors.CodeInvalidToken))

	_, err = svc.VerifyRefreshToken(pair.AccessToken)
	require.True(t, apperrors.IsType(err, apperrors.CodeInvalidToken))
}

func TestVerify_ExpiredAndTamperedAreIndistinguishable(t *testing.T) {
	store := credstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	expiredSvc := NewService(store, slog.New(slog.DiscardHandler), Config{
		AccessSecret:  []byte(strings.Repeat("a", 32)),
		RefreshSecret: []byte(strings.Repeat("b", 32)),
		AccessTTL:     -time.Minute, // already past expiry at issue time
		RefreshTTL:    time.Hour,
		APIKeyTTL:     time.Hour,
	})

	pair, err := expiredSvc.CreateTokens(context.Background(), "user-1", "")
	require.NoError(t, err)

	_, expiredErr := expiredSvc.VerifyAccessToken(pair.AccessToken)
	require.Error(t, expiredErr)

	tampered := pair.AccessToken[:len(pair.AccessToken)-2] + "xx"
	_, tamperedErr := expiredSvc.VerifyAccessToken(tampered)
	require.Error(t, tamperedErr)

	_, malformedErr := expiredSvc.VerifyAccessToken("not.a.jwt")
	require.Error(t, malformedErr)

	// Uniform error kind and message across all three failure modes.
	for _, err := range []error{expiredErr, tamperedErr, malformedErr} {
		require.True(t, apperrors.IsType(err, apperrors.CodeInvalidToken))
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "invalid token", appErr.Message)
	}
}

func TestIsRefreshTokenValid(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.CreateTokens(ctx, "user-1", "")
	require.NoError(t, err)

	valid, err := svc.IsRefreshTokenValid(ctx, "user-1", pair.RefreshToken)
	require.NoError(t, err)
	require.True(t, valid)

	t.Run("unknown subject", func(t *testing.T) {
		valid, err := svc.IsRefreshTokenValid(ctx, "nobody", pair.RefreshToken)
		require.NoError(t, err)
		require.False(t, valid)
	})

	t.Run("superseded by a newer pair", func(t *testing.T) {
		// Issuing again replaces the stored record: single active session.
		newPair, err := svc.CreateTokens(ctx, "user-1", "")
		require.NoError(t, err)

		valid, err := svc.IsRefreshTokenValid(ctx, "user-1", pair.RefreshToken)
		require.NoError(t, err)
		require.False(t, valid)

		valid, err = svc.IsRefreshTokenValid(ctx, "user-1", newPair.RefreshToken)
		require.NoError(t, err)
		require.True(t, valid)
	})
}

func TestRevokeRefreshToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.CreateTokens(ctx, "user-1", "")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeRefreshToken(ctx, "user-1"))

	// The token still verifies cryptographically but the record is gone.
	_, err = svc.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	valid, err := svc.IsRefreshTokenValid(ctx, "user-1", pair.RefreshToken)
	require.NoError(t, err)
	require.False(t, valid)
}

func TestRefresh_RotatesRecord(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.CreateTokens(ctx, "user-1", "u@example.com")
	require.NoError(t, err)

	newPair, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	// The presented token was rotated out by the exchange.
	_, err = svc.Refresh(ctx, pair.RefreshToken)
	require.True(t, apperrors.IsType(err, apperrors.CodeInvalidToken))

	// The new one works.
	valid, err := svc.IsRefreshTokenValid(ctx, "user-1", newPair.RefreshToken)
	require.NoError(t, err)
	require.True(t, valid)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.CreateTokens(ctx, "user-1", "")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	require.True(t, apperrors.IsType(err, apperrors.CodeInvalidToken))
}

func TestRotateAPIKey(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.RotateAPIKey(ctx, "svc-billing")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	got, err := svc.GetAPIKey(ctx, "svc-billing")
	require.NoError(t, err)
	require.Equal(t, first, got)

	second, err := svc.RotateAPIKey(ctx, "svc-billing")
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// Old value is gone immediately, no grace period.
	got, err = svc.GetAPIKey(ctx, "svc-billing")
	require.NoError(t, err)
	require.Equal(t, second, got)
}

func TestGetAPIKey_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetAPIKey(context.Background(), "never-created")
	require.True(t, apperrors.IsType(err, apperrors.CodeNotFound))
}

func TestStoreFailure_FailsClosed(t *testing.T) {
	store := credstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	svc := NewService(store, slog.New(slog.DiscardHandler), Config{
		AccessSecret:  []byte(strings.Repeat("a", 32)),
		RefreshSecret: []byte(strings.Repeat("b", 32)),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
		APIKeyTTL:     time.Hour,
	})

	pair, err := svc.CreateTokens(context.Background(), "user-1", "")
	require.NoError(t, err)

	// A cancelled context makes the memory store behave like an unreachable one.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.CreateTokens(ctx, "user-2", "")
	require.True(t, apperrors.IsType(err, apperrors.CodeStoreUnavailable))

	_, err = svc.IsRefreshTokenValid(ctx, "user-1", pair.RefreshToken)
	require.True(t, apperrors.IsType(err, apperrors.CodeStoreUnavailable))

	_, err = svc.RotateAPIKey(ctx, "svc-billing")
	require.True(t, apperrors.IsType(err, apperrors.CodeStoreUnavailable))
}

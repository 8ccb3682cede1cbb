package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/freekieb/go-gate/internal/errors"
	"github.com/freekieb/go-gate/internal/ratelimit"
	"github.com/freekieb/go-gate/internal/token"
	"github.com/freekieb/go-gate/internal/web/response"
)

// Identity is the caller identity resolved from a verified access token.
type Identity struct {
	Subject string
	Email   string
}

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityFromContext returns the authenticated identity attached by
// RequireAuth or OptionalAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(Identity)
	return identity, ok
}

// IdentityFunc derives the rate-limiting identity from a request.
type IdentityFunc func(r *http.Request) string

// ClientIdentity extracts the caller address for rate limiting: first hop of
// X-Forwarded-For, then X-Real-IP, then the transport peer. Callers with no
// usable address share the "unknown" bucket.
func ClientIdentity(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			if ip := strings.TrimSpace(ips[0]); ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && ip != "" {
		return ip
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}

	return "unknown"
}

// Admission gates every inbound request on the rate limiter. Rate limiting
// runs before any token verification so an unauthenticated flood never
// reaches the more expensive verification path. Rejections carry a
// Retry-After header; a store outage rejects rather than admits.
func Admission(limiter *ratelimit.Limiter, logger *slog.Logger, identityFn IdentityFunc) Middleware {
	if identityFn == nil {
		identityFn = ClientIdentity
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFn(r)

			if err := limiter.Consume(r.Context(), identity); err != nil {
				if retryAfter := apperrors.GetRetryAfter(err); retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				}
				response.ErrorResponse(w, err, logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth verifies the bearer access token and attaches the resolved
// identity to the request context. A missing or invalid token fails the
// request with the uniform invalid-token error.
func RequireAuth(tokens *token.Service, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifyBearer(tokens, r)
			if err != nil {
				response.ErrorResponse(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, Identity{
				Subject: claims.Subject,
				Email:   claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches an identity when a valid bearer token is present and
// proceeds without one otherwise.
func OptionalAuth(tokens *token.Service, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifyBearer(tokens, r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, Identity{
				Subject: claims.Subject,
				Email:   claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyBearer(tokens *token.Service, r *http.Request) (*token.Claims, error) {
	header := r.Header.Get("Authorization")
	bearer, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || bearer == "" {
		return nil, apperrors.InvalidTokenError(nil)
	}

	return tokens.VerifyAccessToken(bearer)
}

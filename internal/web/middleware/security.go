package middleware

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/freekieb/go-gate/internal/errors"
	"github.com/freekieb/go-gate/internal/web/response"
)

// SecurityHeadersConfig allows customization of security headers
type SecurityHeadersConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	CSP                   string
	ReferrerPolicy        string
}

// DefaultSecurityHeaders returns a secure default configuration
func DefaultSecurityHeaders() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		EnableHSTS:            true,
		HSTSMaxAge:            31536000, // 1 year
		HSTSIncludeSubdomains: true,
		CSP:                   "default-src 'self'; frame-ancestors 'none'; base-uri 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
}

func SecurityHeaders() Middleware {
	return SecurityHeadersWithConfig(DefaultSecurityHeaders())
}

func SecurityHeadersWithConfig(config SecurityHeadersConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			if config.EnableHSTS {
				hstsValue := fmt.Sprintf("max-age=%d", config.HSTSMaxAge)
				if config.HSTSIncludeSubdomains {
					hstsValue += "; includeSubDomains"
				}
				w.Header().Set("Strict-Transport-Security", hstsValue)
			}

			if config.CSP != "" {
				w.Header().Set("Content-Security-Policy", config.CSP)
			}

			if config.ReferrerPolicy != "" {
				w.Header().Set("Referrer-Policy", config.ReferrerPolicy)
			}

			// Credential responses must never be cached
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
			w.Header().Set("Pragma", "no-cache")

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize caps the request body to defend against oversized payloads.
func MaxBodySize(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// APIKey guards administrative endpoints with the static service key from
// configuration. Comparison is constant time.
func APIKey(apiKey string, logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			providedKey := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
				if logger != nil {
					logger.Warn("Admin api key rejected", "path", r.URL.Path)
				}
				response.JSONResponse(w, http.StatusUnauthorized, response.APIResponse{
					Code:    http.StatusUnauthorized,
					Status:  "error",
					Message: "invalid api key",
					Data: map[string]string{
						"error_code": apperrors.CodeUnauthorized,
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

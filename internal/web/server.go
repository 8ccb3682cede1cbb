package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/freekieb/go-gate/internal/config"
	"github.com/freekieb/go-gate/internal/health"
	"github.com/freekieb/go-gate/internal/ratelimit"
	"github.com/freekieb/go-gate/internal/token"
	"github.com/freekieb/go-gate/internal/web/handler"
	"github.com/freekieb/go-gate/internal/web/middleware"
)

const maxBodyBytes = 1 << 20 // 1MB is plenty for token exchange payloads

// NewServer assembles the HTTP server. Every route sits behind security
// headers, request logging and the admission gate; the admin surface
// additionally requires the static service api key, and user-facing routes
// requiring a caller identity sit behind bearer auth.
func NewServer(
	cfg config.Config,
	logger *slog.Logger,
	tokens *token.Service,
	limiter *ratelimit.Limiter,
	checker health.Checker,
) *http.Server {
	authHandler := handler.NewAuthHandler(tokens, logger)
	apiKeyHandler := handler.NewAPIKeyHandler(tokens, logger)
	healthHandler := handler.NewHealthHandler(checker)

	base := middleware.Chain(
		middleware.SecurityHeaders(),
		middleware.RequestLogging(logger),
		middleware.MaxBodySize(maxBodyBytes),
		middleware.Admission(limiter, logger, nil),
	)
	admin := middleware.Chain(base, middleware.APIKey(cfg.Auth.AdminAPIKey, logger))
	authed := middleware.Chain(base, middleware.RequireAuth(tokens, logger))

	mux := http.NewServeMux()

	// Admin surface: issuance and api key management
	mux.Handle("POST /auth/token", admin(http.HandlerFunc(authHandler.Issue)))
	mux.Handle("POST /apikeys/{id}/rotate", admin(http.HandlerFunc(apiKeyHandler.Rotate)))
	mux.Handle("GET /apikeys/{id}", admin(http.HandlerFunc(apiKeyHandler.Get)))

	// Token holder surface
	mux.Handle("POST /auth/refresh", base(http.HandlerFunc(authHandler.Refresh)))
	mux.Handle("POST /auth/revoke", authed(http.HandlerFunc(authHandler.Revoke)))
	mux.Handle("GET /whoami", authed(http.HandlerFunc(authHandler.WhoAmI)))

	// Probes bypass the admission gate so an aggressive liveness interval
	// cannot rate-limit the orchestrator into restarting the pod.
	probes := middleware.Chain(middleware.SecurityHeaders(), middleware.RequestLogging(logger))
	mux.Handle("GET /health/live", probes(http.HandlerFunc(healthHandler.Live)))
	mux.Handle("GET /health/ready", probes(http.HandlerFunc(healthHandler.Ready)))

	return &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        mux,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
}

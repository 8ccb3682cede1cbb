package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apperrors "github.com/freekieb/go-gate/internal/errors"
	"github.com/freekieb/go-gate/internal/token"
	"github.com/freekieb/go-gate/internal/web/middleware"
	"github.com/freekieb/go-gate/internal/web/response"
)

// AuthHandler exposes the token lifecycle over HTTP. It does no verification
// logic of its own; everything delegates to the token service and errors are
// translated exactly once, here at the boundary.
type AuthHandler struct {
	Tokens *token.Service
	Logger *slog.Logger
}

func NewAuthHandler(tokens *token.Service, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		Tokens: tokens,
		Logger: logger,
	}
}

type issueRequest struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
}

// Issue creates a token pair for a subject. Sits behind the admin api key;
// user credential verification happens upstream of this service.
func (h *AuthHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorResponse(w, apperrors.ValidationError("request body must be valid JSON", err), h.Logger)
		return
	}
	if req.Subject == "" {
		response.ErrorResponse(w, apperrors.ValidationError("subject is required", nil), h.Logger)
		return
	}

	pair, err := h.Tokens.CreateTokens(r.Context(), req.Subject, req.Email)
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a fresh pair, rotating the stored
// record in the process.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ErrorResponse(w, apperrors.ValidationError("request body must be valid JSON", err), h.Logger)
		return
	}
	if req.RefreshToken == "" {
		response.ErrorResponse(w, apperrors.InvalidTokenError(nil), h.Logger)
		return
	}

	pair, err := h.Tokens.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, pair)
}

// Revoke deletes the caller's refresh token record. Requires authentication;
// the subject comes from the verified access token, never from the body.
func (h *AuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.ErrorResponse(w, apperrors.InvalidTokenError(nil), h.Logger)
		return
	}

	if err := h.Tokens.RevokeRefreshToken(r.Context(), identity.Subject); err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, map[string]string{"subject": identity.Subject})
}

// WhoAmI echoes the authenticated identity from the request context.
func (h *AuthHandler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.ErrorResponse(w, apperrors.InvalidTokenError(nil), h.Logger)
		return
	}

	response.SuccessResponse(w, map[string]string{
		"subject": identity.Subject,
		"email":   identity.Email,
	})
}

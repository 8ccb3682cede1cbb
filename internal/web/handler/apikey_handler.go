package handler

import (
	"log/slog"
	"net/http"

	apperrors "github.com/freekieb/go-gate/internal/errors"
	"github.com/freekieb/go-gate/internal/token"
	"github.com/freekieb/go-gate/internal/web/response"
)

// APIKeyHandler manages opaque api key secrets. Admin surface only.
type APIKeyHandler struct {
	Tokens *token.Service
	Logger *slog.Logger
}

func NewAPIKeyHandler(tokens *token.Service, logger *slog.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		Tokens: tokens,
		Logger: logger,
	}
}

// Rotate replaces the secret for an api key id and returns the new value.
// The previous secret stops working immediately.
func (h *APIKeyHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		response.ErrorResponse(w, apperrors.ValidationError("api key id is required", nil), h.Logger)
		return
	}

	secret, err := h.Tokens.RotateAPIKey(r.Context(), id)
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, map[string]string{
		"api_key_id": id,
		"secret":     secret,
	})
}

// Get returns the current secret for an api key id.
func (h *APIKeyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		response.ErrorResponse(w, apperrors.ValidationError("api key id is required", nil), h.Logger)
		return
	}

	secret, err := h.Tokens.GetAPIKey(r.Context(), id)
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, map[string]string{
		"api_key_id": id,
		"secret":     secret,
	})
}

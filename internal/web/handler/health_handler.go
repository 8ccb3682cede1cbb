package handler

import (
	"net/http"

	"github.com/freekieb/go-gate/internal/health"
	"github.com/freekieb/go-gate/internal/web/response"
)

// HealthHandler serves orchestrator probe endpoints.
type HealthHandler struct {
	Checker health.Checker
}

func NewHealthHandler(checker health.Checker) *HealthHandler {
	return &HealthHandler{Checker: checker}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	status := h.Checker.CheckLiveness(r.Context())
	response.JSONResponse(w, http.StatusOK, status)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.Checker.CheckReadiness(r.Context())

	httpStatus := http.StatusOK
	if status.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	response.JSONResponse(w, httpStatus, status)
}

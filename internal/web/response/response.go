package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/freekieb/go-gate/internal/errors"
)

// APIResponse is the JSON envelope for every response. The machine-readable
// error code travels in Data under "error_code", separate from the
// human-readable message, so clients never have to string-match messages.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func JSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// ErrorResponse translates an application error into the envelope. Internal
// details stay in the logs; the body carries only the code and message.
func ErrorResponse(w http.ResponseWriter, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError

	if apperrors.IsType(err, apperrors.CodeInternalError) || !errors.As(err, &appErr) {
		if logger != nil {
			logger.Error("Internal server error", slog.String("error", err.Error()))
		}

		appErr = apperrors.InternalError("An internal error occurred", err)
	} else if logger != nil {
		logger.Warn("Application error occurred",
			slog.String("code", appErr.Code),
			slog.String("message", appErr.Message),
			slog.String("cause", appErr.Error()))
	}

	JSONResponse(w, appErr.HTTPCode, APIResponse{
		Code:    appErr.HTTPCode,
		Status:  "error",
		Message: appErr.Message,
		Data: map[string]string{
			"error_code": appErr.Code,
		},
	})
}

// SuccessResponse handles successful API responses
func SuccessResponse(w http.ResponseWriter, data any) {
	JSONResponse(w, http.StatusOK, APIResponse{
		Code:   http.StatusOK,
		Status: "success",
		Data:   data,
	})
}

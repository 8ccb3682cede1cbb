package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AppError represents a structured application error with context
type AppError struct {
	Code       string        `json:"code"`
	Message    string        `json:"message"`
	HTTPCode   int           `json:"-"`
	RetryAfter time.Duration `json:"-"`
	Cause      error         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	CodeInvalidToken     = "INVALID_TOKEN"
	CodeRateLimited      = "RATE_LIMITED"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeConfigError      = "CONFIG_ERROR"

	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Error constructors

// InvalidTokenError is deliberately uniform: signature mismatch, structural
// corruption, wrong token class and expiry all produce the same code and
// message, so callers cannot distinguish them.
func InvalidTokenError(cause error) *AppError {
	return &AppError{
		Code:     CodeInvalidToken,
		Message:  "invalid token",
		HTTPCode: http.StatusUnauthorized,
		Cause:    cause,
	}
}

func RateLimitedError(retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "too many requests",
		HTTPCode:   http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

func StoreUnavailableError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeStoreUnavailable,
		Message:  message,
		HTTPCode: http.StatusServiceUnavailable,
		Cause:    cause,
	}
}

func ConfigError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeConfigError,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

func ValidationError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeValidationFailed,
		Message:  message,
		HTTPCode: http.StatusBadRequest,
		Cause:    cause,
	}
}

func NotFoundError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeNotFound,
		Message:  message,
		HTTPCode: http.StatusNotFound,
		Cause:    cause,
	}
}

func UnauthorizedError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeUnauthorized,
		Message:  message,
		HTTPCode: http.StatusUnauthorized,
		Cause:    cause,
	}
}

func InternalError(message string, cause error) *AppError {
	return &AppError{
		Code:     CodeInternalError,
		Message:  message,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code, message string) *AppError {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the original code but update message
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Code:       appErr.Code,
			Message:    fmt.Sprintf("%s: %s", message, appErr.Message),
			HTTPCode:   appErr.HTTPCode,
			RetryAfter: appErr.RetryAfter,
			Cause:      appErr.Cause,
		}
	}

	httpCode := http.StatusInternalServerError
	switch code {
	case CodeValidationFailed:
		httpCode = http.StatusBadRequest
	case CodeNotFound:
		httpCode = http.StatusNotFound
	case CodeInvalidToken, CodeUnauthorized:
		httpCode = http.StatusUnauthorized
	case CodeRateLimited:
		httpCode = http.StatusTooManyRequests
	case CodeStoreUnavailable:
		httpCode = http.StatusServiceUnavailable
	}

	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
		Cause:    err,
	}
}

// IsType checks if an error is of a specific type/code
func IsType(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetHTTPCode extracts the HTTP status code from an error
func GetHTTPCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPCode
	}
	return http.StatusInternalServerError
}

// GetRetryAfter extracts the retry-after hint from an error, zero if none
func GetRetryAfter(err error) time.Duration {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.RetryAfter
	}
	return 0
}

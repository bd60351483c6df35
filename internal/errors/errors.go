// Package errors defines the structured error responses of the HTTP
// surface. The modeling core never uses these: its degraded outcomes are
// data, not errors.
package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined error types for common scenarios
var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrNotFound         = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrRunNotFound      = New(http.StatusNotFound, "RUN_NOT_FOUND", "Pipeline run not found")
	ErrNoResults        = New(http.StatusNotFound, "NO_RESULTS", "No pipeline results available yet")
	ErrConflict         = New(http.StatusConflict, "CONFLICT", "A pipeline run is already in progress")
	ErrRateLimited      = New(http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
	ErrInternal         = New(http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
)

// WithMessage derives a copy of the error with a specific message
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		StatusCode: e.StatusCode,
		ErrorCode:  e.ErrorCode,
		Message:    message,
		Details:    e.Details,
	}
}

// WithDetails derives a copy of the error carrying extra context
func (e *APIError) WithDetails(details interface{}) *APIError {
	return &APIError{
		StatusCode: e.StatusCode,
		ErrorCode:  e.ErrorCode,
		Message:    e.Message,
		Details:    details,
	}
}

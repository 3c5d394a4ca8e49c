package api

import (
	"errors"
	"net/http"

	"github.com/radio-control/nodepoll/internal/adapter"
	"github.com/radio-control/nodepoll/internal/journal"
	"github.com/radio-control/nodepoll/internal/registry"
)

// API error codes for request and lookup conditions.
var (
	ErrBadRequest = errors.New("BAD_REQUEST")
	ErrNotFound   = errors.New("NOT_FOUND")
)

// statusFor maps an error to an HTTP status, envelope code and message.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "BAD_REQUEST", "Malformed or missing required parameter"
	case errors.Is(err, adapter.ErrInvalidRange):
		return http.StatusBadRequest, "INVALID_RANGE", "Parameter value is outside the allowed range"
	case errors.Is(err, ErrNotFound), errors.Is(err, registry.ErrIndexOutOfRange):
		return http.StatusNotFound, "NOT_FOUND", "Resource not found"
	case errors.Is(err, adapter.ErrUnavailable), errors.Is(err, journal.ErrClosed):
		return http.StatusServiceUnavailable, "UNAVAILABLE", "Service is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "INTERNAL", "Internal server error"
	}
}

// WriteErrorFrom writes the envelope for err.
func WriteErrorFrom(w http.ResponseWriter, err error) {
	status, code, message := statusFor(err)
	var details interface{}
	if status == http.StatusInternalServerError {
		details = map[string]interface{}{"original": err.Error()}
	}
	WriteError(w, status, code, message, details)
}

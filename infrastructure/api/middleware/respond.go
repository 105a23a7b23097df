// Package middleware provides HTTP middleware and response helpers for the
// API server.
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/harmonium-fm/harmonium/domain/search"
)

// Envelope is the uniform response wrapper. Success responses carry data,
// failures carry a client-safe error message.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON writes v inside a success envelope.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: v})
}

// WriteError maps a domain error onto an HTTP status and writes a failure
// envelope. Internal detail stays in the log; the client sees a stable,
// sanitized message per error class.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"correlation_id", GetCorrelationID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: false, Error: message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, search.ErrInvalidQuery), errors.Is(err, search.ErrEmptyInput):
		return http.StatusBadRequest, trimJoined(err)
	case errors.Is(err, search.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, search.ErrSearchTimeout):
		return http.StatusGatewayTimeout, "search timed out"
	case errors.Is(err, search.ErrModelLoad), errors.Is(err, search.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "search is temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// trimJoined keeps only the first line of a joined error so validation
// responses stay single-message.
func trimJoined(err error) string {
	msg := err.Error()
	for i := 0; i < len(msg); i++ {
		if msg[i] == '\n' {
			return msg[:i]
		}
	}
	return msg
}

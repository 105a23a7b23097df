package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/harmonium-fm/harmonium/internal/log"
)

// CorrelationHeader is the request/response header carrying the correlation ID.
const CorrelationHeader = "X-Correlation-ID"

// CorrelationID assigns every request a correlation ID, honoring one supplied
// by the caller, and echoes it on the response so clients can quote it in bug
// reports.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(CorrelationHeader, id)
		ctx := log.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the correlation ID for the request, or "" when the
// middleware did not run.
func GetCorrelationID(ctx context.Context) string {
	return log.CorrelationID(ctx)
}

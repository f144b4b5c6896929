package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/example/property-ledger/internal/security"
)

// RequestLogger emits one line per finished request, keyed by the
// correlation id so log lines join up with audit entries. The actor header
// is included as-is; lifecycle decisions in the log then name the user who
// made them. Responses of 500 and above log at warn.
func RequestLogger(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(sw, r)

			level := slog.LevelInfo
			if sw.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			l.Log(r.Context(), level, "http_request",
				"cid", security.CorrelationIDFromContext(r.Context()),
				"actor", r.Header.Get(ActorIDHeader),
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

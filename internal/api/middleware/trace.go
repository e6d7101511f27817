package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mwarren/clipforge/internal/api/shared"
)

// TraceMiddleware stamps each request context with a fresh trace ID so
// log lines and error payloads from the same request can be correlated.
// It sits first in the chain; everything downstream reads the ID through
// shared.GetTraceID.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())

		slog.DebugContext(ctx, "request started",
			"trace_id", shared.GetTraceID(ctx),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

package middleware

import (
	"net/http"

	"github.com/rs/zerolog"
)

// WithRequestLogger attaches a request-scoped zerolog logger to the context,
// tagged with request_id, method, path and the cart session when the route
// has one. Services pick it up with zerolog.Ctx. Place it after RequestID.
func WithRequestLogger(base zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lc := base.With().
				Str("method", r.Method).
				Str("path", r.URL.Path)

			if requestID := GetRequestID(r.Context()); requestID != "" {
				lc = lc.Str("request_id", requestID)
			}
			if session := r.PathValue("session_id"); session != "" {
				lc = lc.Str("session_id", session)
			}

			logger := lc.Logger()
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
		})
	}
}

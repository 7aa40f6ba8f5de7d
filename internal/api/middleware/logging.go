// Package middleware holds the HTTP middleware shared across API routes:
// request logging with query scrubbing and per-IP rate limiting.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// scrubPatterns are substrings that mark a query parameter name as sensitive.
var scrubPatterns = []string{"api_key", "apikey", "client_id", "client_secret", "password", "secret", "token", "authorization"}

// Logging returns middleware that logs each HTTP request with structured
// fields. Sensitive query parameter values are scrubbed from the output.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", scrubQuery(r.URL.RawQuery)),
				slog.Int("status", rec.status),
				slog.Int("bytes", rec.bytes),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote", r.RemoteAddr),
			)
		})
	}
}

// statusRecorder captures the status code and body size a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

// scrubQuery redacts the values of parameters whose names look sensitive,
// keeping the rest of the query intact.
func scrubQuery(raw string) string {
	if raw == "" {
		return ""
	}

	parts := strings.Split(raw, "&")
	for i, part := range parts {
		if key, _, ok := strings.Cut(part, "="); ok && sensitiveKey(key) {
			parts[i] = key + "=REDACTED"
		}
	}
	return strings.Join(parts, "&")
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, pattern := range scrubPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

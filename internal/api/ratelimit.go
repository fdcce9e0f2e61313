package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/storyloom/storyloom-server/internal/http/response"
	"github.com/storyloom/storyloom-server/internal/ratelimit"
)

// RateLimitMiddleware rejects requests over the per-client budget with
// 429 {"error": "Too many requests"}.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getClientIP(r)

			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"path", r.URL.Path,
				)
				response.TooManyRequests(w, "Too many requests", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the host part of RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

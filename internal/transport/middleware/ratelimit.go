package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/transport"
	"github.com/wordaddict/finance-sub001/pkg/ratelimit"
)

// RateLimit applies a fixed-window limit per client IP. Limiter errors let the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, limit int64, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	base := transport.NewBaseHandler(logger)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + transport.ClientIP(r)
			ok, err := limiter.Allow(r.Context(), key, limit, window)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limiter unavailable", "scope", scope, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				logger.WarnContext(r.Context(), "rate limit exceeded", "scope", scope, "remote_addr", r.RemoteAddr)
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				base.HandleServiceError(w, r, internal.NewRateLimitedError("too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

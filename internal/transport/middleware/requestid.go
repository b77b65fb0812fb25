package middleware

import (
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/wordaddict/finance-sub001/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID must run after chi's RequestID; it echoes the id and tags the request logger.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "request_id", reqID)
		w.Header().Set(requestIDHeader, reqID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

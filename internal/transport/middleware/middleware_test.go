package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/transport/middleware"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ok() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRouteGate(t *testing.T) {
	gate := middleware.NewRouteGate(internal.DefaultGatePaths, internal.DefaultGatePrefixes, discard())

	cases := []struct {
		path    string
		allowed bool
	}{
		{"/", true},
		{"/login", true},
		{"/healthz", true},
		{"/api/wishlist", true},
		{"/api/admin/wishlist/3f7b8d8e/contributions", true},
		{"/dmv/3f7b8d8e", true},
		{"/static/app.css", true},
		{"/api/expenses", false},
		{"/loginx", false},
		{"/dmv", false},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			gate.Handler(ok()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			if tc.allowed {
				assert.Equal(t, http.StatusNoContent, rec.Code)
				return
			}
			assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
		})
	}
}

type countingLimiter struct {
	hits int64
	err  error
}

func (l *countingLimiter) Allow(_ context.Context, _ string, limit int64, _ time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	l.hits++
	return l.hits <= limit, nil
}

func TestRateLimit(t *testing.T) {
	limiter := &countingLimiter{}
	h := middleware.RateLimit(limiter, "code", 2, time.Minute, discard())(ok())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/wishlist/access-code", nil))
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestRateLimitFailsOpen(t *testing.T) {
	h := middleware.RateLimit(&countingLimiter{err: errors.New("redis down")}, "public", 1, time.Minute, discard())(ok())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wishlist", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := middleware.RecoveryMiddleware(discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL_ERROR"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestCORS(t *testing.T) {
	h := middleware.CORS("https://finance.example.org")(ok())

	req := httptest.NewRequest(http.MethodOptions, "/api/me", nil)
	req.Header.Set("Origin", "https://finance.example.org")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "https://finance.example.org", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardEchoesOrigin(t *testing.T) {
	h := middleware.CORS("*")(ok())

	req := httptest.NewRequest(http.MethodGet, "/api/wishlist", nil)
	req.Header.Set("Origin", "https://volunteer.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://volunteer.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_EmptyListPassesThrough(t *testing.T) {
	h := middleware.CORS("")(ok())

	req := httptest.NewRequest(http.MethodGet, "/api/wishlist", nil)
	req.Header.Set("Origin", "https://finance.example.org")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

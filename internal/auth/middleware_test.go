package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

type stubSessions map[string]*coreuser.Principal

func (s stubSessions) ValidateSession(_ context.Context, token string) (*coreuser.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, internal.ErrUnauthenticated
}

var _ = Describe("Middleware", func() {
	var (
		mw   *auth.Middleware
		next http.Handler
	)

	BeforeEach(func() {
		sessions := stubSessions{
			"leader-token": {UserID: "leader", Role: coreuser.RoleLeader, Status: coreuser.StatusActive},
			"admin-token":  {UserID: "admin", Role: coreuser.RoleAdmin, Status: coreuser.StatusActive},
		}
		mw = auth.NewMiddleware(sessions, "session", slog.New(slog.NewTextHandler(io.Discard, nil)))
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := internal.PrincipalFromContext(r.Context())
			_, _ = w.Write([]byte(p.UserID))
		})
	})

	It("rejects requests without credentials", func() {
		rec := httptest.NewRecorder()
		mw.Authenticate(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		Expect(rec.Body.String()).To(ContainSubstring(`"error":"authentication required"`))
	})

	It("accepts the session cookie", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: "leader-token"})
		rec := httptest.NewRecorder()

		mw.Authenticate(next).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("leader"))
	})

	It("accepts a bearer token", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer admin-token")
		rec := httptest.NewRecorder()

		mw.Authenticate(next).ServeHTTP(rec, req)

		Expect(rec.Body.String()).To(Equal("admin"))
	})

	It("returns 403 when the capability is missing", func() {
		req := httptest.NewRequest(http.MethodPost, "/api/expense-items/deny", nil)
		req.Header.Set("Authorization", "Bearer leader-token")
		rec := httptest.NewRecorder()

		mw.Authenticate(mw.RequireCapability(auth.CapApproveExpenses)(next)).ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("passes through anonymously with Optional", func() {
		rec := httptest.NewRecorder()
		mw.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := internal.PrincipalFromContext(r.Context())
			Expect(ok).To(BeFalse())
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

		Expect(rec.Code).To(Equal(http.StatusNoContent))
	})
})

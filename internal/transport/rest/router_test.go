package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/wordaddict/finance-sub001/api"
	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	authpg "github.com/wordaddict/finance-sub001/internal/auth/postgres"
	wishlistDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/wishlist"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
	"github.com/wordaddict/finance-sub001/internal/expense"
	expensepg "github.com/wordaddict/finance-sub001/internal/expense/postgres"
	"github.com/wordaddict/finance-sub001/internal/metrics"
	"github.com/wordaddict/finance-sub001/internal/report"
	reportpg "github.com/wordaddict/finance-sub001/internal/report/postgres"
	"github.com/wordaddict/finance-sub001/internal/testsupport"
	"github.com/wordaddict/finance-sub001/internal/transport/rest"
	"github.com/wordaddict/finance-sub001/internal/user"
	userpg "github.com/wordaddict/finance-sub001/internal/user/postgres"
	"github.com/wordaddict/finance-sub001/internal/wishlist"
	wishlistpg "github.com/wordaddict/finance-sub001/internal/wishlist/postgres"
)

const secret = "0123456789abcdef0123456789abcdef"

// staticSessions maps bearer tokens straight to principals.
type staticSessions map[string]*coreuser.Principal

func (s staticSessions) ValidateSession(_ context.Context, token string) (*coreuser.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, internal.ErrUnauthenticated
}

type silentNotifier struct{}

func (silentNotifier) SendVerificationEmail(context.Context, string, string, string) error { return nil }
func (silentNotifier) SendPasswordReset(context.Context, string, string, string) error     { return nil }
func (silentNotifier) SendWishlistAccessCode(context.Context, string, string) error        { return nil }

var _ = Describe("RegisterAllRoutes", func() {
	var (
		db       *gorm.DB
		cfg      *internal.Config
		logger   *slog.Logger
		sessions staticSessions
		health   map[string]rest.Checker
		registry *prometheus.Registry
		itemID   string
	)

	BeforeEach(func() {
		var err error
		db, err = testsupport.NewSQLiteDB()
		Expect(err).NotTo(HaveOccurred())
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))

		cfg = &internal.Config{}
		cfg.ApplyDefaults()
		cfg.Observability.Metrics.Enabled = true
		cfg.Gate.Enabled = true

		admin, err := testsupport.CreateUser(db, "admin@church.org", "ADMIN")
		Expect(err).NotTo(HaveOccurred())
		leader, err := testsupport.CreateUser(db, "leader@church.org", "LEADER")
		Expect(err).NotTo(HaveOccurred())
		sessions = staticSessions{
			"admin-token":  testsupport.Principal(admin),
			"leader-token": testsupport.Principal(leader),
		}

		itemID = uuid.NewString()
		now := time.Now()
		Expect(db.Create(&wishlistDatamodel.WishlistItem{
			ID: itemID, Name: "Chairs", PriceCents: 5000, QuantityNeeded: 2,
			IsActive: true, CreatedAt: now, UpdatedAt: now,
		}).Error).To(Succeed())

		health = map[string]rest.Checker{
			"database": rest.CheckerFunc(func(context.Context) error { return nil }),
		}
		registry = prometheus.NewRegistry()
	})

	newRouter := func() *chi.Mux {
		tokens := auth.NewJWTTokenGenerator(secret)
		m := metrics.New(registry)

		userRepo := userpg.NewUserRepository(db)
		wishlistRepo := wishlistpg.NewWishlistRepository(db)
		authService := auth.NewService(authpg.NewRepository(db), tokens, silentNotifier{}, nil, auth.Config{BCryptCost: 4}, logger)
		access := wishlist.NewAccessService(wishlistRepo, userRepo, silentNotifier{}, tokens, wishlist.AccessConfig{}, logger)
		cookie := auth.CookieConfig{Name: cfg.Wishlist.CookieName}

		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Routes{
			Config:         cfg,
			Logger:         logger,
			Health:         rest.NewHealthHandler(health),
			OpenAPI:        api.OpenAPI,
			Metrics:        m,
			Gatherer:       registry,
			AuthMiddleware: auth.NewMiddleware(sessions, cfg.Security.SessionCookieName, logger),
			WishlistGate:   wishlist.NewGate(tokens, cfg.Wishlist.CookieName, logger),
			Auth:           auth.NewHandler(authService, auth.CookieConfig{Name: cfg.Security.SessionCookieName}),
			Users:          user.NewHandler(user.NewService(userRepo, nil, logger)),
			Expenses:       expense.NewHandler(expense.NewService(expensepg.NewExpenseRepository(db), nil, nil, logger)),
			Reports:        report.NewHandler(report.NewService(reportpg.NewReportRepository(db), nil, logger)),
			Wishlist:       wishlist.NewHandler(wishlist.NewService(wishlistRepo, nil, logger), access, cookie),
		})
		return router
	}

	do := func(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	Context("with the route gate enabled", func() {
		It("redirects paths outside the allow-list to the landing page", func() {
			router := newRouter()

			rec := do(router, http.MethodGet, "/api/expenses", "admin-token")

			Expect(rec.Code).To(Equal(http.StatusTemporaryRedirect))
			Expect(rec.Header().Get("Location")).To(Equal("/"))
		})

		It("serves the public wishlist with computed progress", func() {
			router := newRouter()

			rec := do(router, http.MethodGet, "/api/wishlist", "")

			Expect(rec.Code).To(Equal(http.StatusOK))
			var body struct {
				Items []map[string]any `json:"items"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Items).To(HaveLen(1))
			Expect(body.Items[0]).To(HaveKeyWithValue("id", itemID))
		})

		It("answers the retired endpoints with 410", func() {
			router := newRouter()

			Expect(do(router, http.MethodGet, "/api/dmv/wishlist", "").Code).To(Equal(http.StatusGone))
			Expect(do(router, http.MethodGet, "/api/admin/wishlist/"+itemID+"/confirmations", "").Code).To(Equal(http.StatusGone))
		})

		It("keeps wishlist admin behind the wishlist gate", func() {
			router := newRouter()

			Expect(do(router, http.MethodGet, "/api/admin/wishlist/", "").Code).To(Equal(http.StatusUnauthorized))
			Expect(do(router, http.MethodGet, "/api/admin/wishlist/", "leader-token").Code).To(Equal(http.StatusUnauthorized))
			Expect(do(router, http.MethodGet, "/api/admin/wishlist/", "admin-token").Code).To(Equal(http.StatusOK))
		})
	})

	Context("with the route gate disabled", func() {
		BeforeEach(func() {
			cfg.Gate.Enabled = false
		})

		It("requires a session for the expense API", func() {
			router := newRouter()

			Expect(do(router, http.MethodGet, "/api/expenses", "").Code).To(Equal(http.StatusUnauthorized))
			Expect(do(router, http.MethodGet, "/api/expenses", "leader-token").Code).To(Equal(http.StatusOK))
		})

		It("limits user administration to admins", func() {
			router := newRouter()

			Expect(do(router, http.MethodGet, "/api/admin/users", "leader-token").Code).To(Equal(http.StatusForbidden))
			Expect(do(router, http.MethodGet, "/api/admin/users", "admin-token").Code).To(Equal(http.StatusOK))
		})

		It("serves the API document", func() {
			router := newRouter()

			rec := do(router, http.MethodGet, "/openapi.yml", "")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("openapi: 3.0.3"))
		})

		It("returns the current principal from /api/me", func() {
			router := newRouter()

			rec := do(router, http.MethodGet, "/api/me", "leader-token")

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("leader@church.org"))
		})
	})

	Describe("health", func() {
		It("reports 503 when a component is down", func() {
			health["redis"] = rest.CheckerFunc(func(context.Context) error { return errors.New("connection refused") })
			router := newRouter()

			rec := do(router, http.MethodGet, "/healthz", "")

			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			var body rest.HealthResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Status).To(Equal(rest.HealthUnhealthy))
			Expect(body.Components["database"].Status).To(Equal(rest.HealthHealthy))
			Expect(body.Components["redis"].Message).To(Equal("connection refused"))
		})

		It("answers ping", func() {
			Expect(do(newRouter(), http.MethodGet, "/ping", "").Code).To(Equal(http.StatusOK))
		})
	})

	It("exposes request metrics by route pattern", func() {
		router := newRouter()
		Expect(do(router, http.MethodGet, "/dmv/"+itemID, "").Code).To(Equal(http.StatusOK))

		rec := do(router, http.MethodGet, "/metrics", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`route="/dmv/{id}"`))
	})
})

package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	"github.com/wordaddict/finance-sub001/internal/category"
	"github.com/wordaddict/finance-sub001/internal/expense"
	"github.com/wordaddict/finance-sub001/internal/metrics"
	"github.com/wordaddict/finance-sub001/internal/report"
	"github.com/wordaddict/finance-sub001/internal/transport/middleware"
	"github.com/wordaddict/finance-sub001/internal/transport/swagger"
	"github.com/wordaddict/finance-sub001/internal/user"
	"github.com/wordaddict/finance-sub001/internal/wishlist"
	"github.com/wordaddict/finance-sub001/pkg/ratelimit"
)

// Routes carries everything the router mounts. Nil handlers leave their routes out.
type Routes struct {
	Config  *internal.Config
	Logger  *slog.Logger
	Health  *HealthHandler
	OpenAPI []byte

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Limiter  ratelimit.Limiter

	AuthMiddleware *auth.Middleware
	WishlistGate   *wishlist.Gate

	Auth       *auth.Handler
	Users      *user.Handler
	Expenses   *expense.Handler
	Categories *category.Handler
	Reports    *report.Handler
	Wishlist   *wishlist.Handler
}

func RegisterAllRoutes(router *chi.Mux, rt Routes) {
	cfg := rt.Config
	logger := rt.Logger
	limiter := rt.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}

	// Apply global middleware
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	if cfg.Observability.Metrics.Enabled {
		router.Use(middleware.Metrics(rt.Metrics))
	}
	if cfg.Gate.Enabled {
		router.Use(middleware.NewRouteGate(cfg.Gate.AllowedPaths, cfg.Gate.AllowedPrefixes, logger).Handler)
	}

	publicLimit := middleware.RateLimit(limiter, "public", cfg.RateLimit.PublicLimit, cfg.RateLimit.PublicWindow, logger)
	codeLimit := middleware.RateLimit(limiter, "access_code", cfg.RateLimit.CodeLimit, cfg.RateLimit.CodeWindow, logger)
	if !cfg.RateLimit.Enabled {
		publicLimit = passthrough
		codeLimit = passthrough
	}

	if rt.Health != nil {
		router.Get("/healthz", rt.Health.healthCheckHandler)
		router.Get("/ping", rt.Health.pingHandler)
	}
	if cfg.Observability.Metrics.Enabled && rt.Gatherer != nil {
		router.Handle(cfg.Observability.Metrics.Path, promhttp.HandlerFor(rt.Gatherer, promhttp.HandlerOpts{}))
	}
	if len(rt.OpenAPI) > 0 {
		router.Get("/openapi.yml", openAPIHandler(rt.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler())
	}

	authMW := rt.AuthMiddleware

	// Session routes
	if rt.Auth != nil && authMW != nil {
		router.Group(func(r chi.Router) {
			r.Use(publicLimit)
			r.Post("/register", rt.Auth.Register)
			r.Get("/verify", rt.Auth.Verify)
			r.Post("/login", rt.Auth.Login)
			r.Post("/forgot-password", rt.Auth.ForgotPassword)
			r.Post("/reset-password", rt.Auth.ResetPassword)
		})
		router.With(authMW.Optional).Post("/logout", rt.Auth.Logout)
		router.With(authMW.Authenticate).Post("/set-password", rt.Auth.SetPassword)
		router.With(authMW.Authenticate).Get("/api/me", rt.Auth.Me)
	}

	// Public wishlist
	if rt.Wishlist != nil {
		router.Group(func(r chi.Router) {
			r.Use(publicLimit)
			r.Get("/api/wishlist", rt.Wishlist.ListPublic)
			r.Get("/dmv/{id}", rt.Wishlist.GetPublic)
			r.Post("/dmv/{id}/confirm", rt.Wishlist.Confirm)
			r.Post("/dmv/{id}/contribute", rt.Wishlist.Contribute)
		})
		router.Get("/api/dmv/wishlist", rt.Wishlist.Gone)

		router.Route("/api/admin/wishlist", func(r chi.Router) {
			r.HandleFunc("/{id}/confirmations", rt.Wishlist.Gone)
			r.Group(func(cr chi.Router) {
				cr.Use(codeLimit)
				cr.Post("/access-code", rt.Wishlist.RequestAccessCode)
				cr.Post("/verify-code", rt.Wishlist.VerifyAccessCode)
			})

			r.Group(func(ar chi.Router) {
				if authMW != nil {
					ar.Use(authMW.Optional)
				}
				ar.Use(rt.WishlistGate.Require)
				ar.Get("/", rt.Wishlist.ListAdmin)
				ar.Post("/", rt.Wishlist.CreateItem)
				ar.Patch("/{id}", rt.Wishlist.UpdateItem)
				ar.Delete("/{id}", rt.Wishlist.DeactivateItem)
				ar.Get("/{id}/contributions", rt.Wishlist.ListContributions)
			})
		})
	}

	if authMW == nil {
		return
	}

	// Authenticated API; capability checks happen in the services.
	router.Group(func(r chi.Router) {
		r.Use(authMW.Authenticate)

		if rt.Expenses != nil {
			h := rt.Expenses
			r.Route("/api/expenses", func(er chi.Router) {
				er.Post("/", h.CreateExpense)
				er.Get("/", h.ListExpenses)
				er.Get("/{id}", h.GetExpense)
				er.Get("/{id}/history", h.GetHistory)
				er.Post("/resubmit", h.Resubmit)
				er.Post("/notes", h.AddNote)
				er.Post("/pastor-remark", h.AddPastorRemark)
				er.Post("/deny", h.Deny)
				er.Post("/mark-paid", h.MarkPaid)
				er.Post("/undo-approval", h.UndoApproval)
				er.Post("/update-account", h.UpdateAccount)
				er.Post("/update-status", h.UpdateStatus)
				er.Post("/update-type", h.UpdateType)
				er.Post("/admin-change-request", h.AdminChangeRequest)
				er.Post("/export-csv", h.ExportCSV)
			})
			r.Route("/api/expense-items", func(ir chi.Router) {
				ir.Post("/approve", h.ApproveItem)
				ir.Post("/deny", h.DenyItem)
				ir.Post("/change-request", h.ChangeRequestItem)
				ir.Post("/undo-approval", h.UndoItemApproval)
				ir.Post("/update-category", h.UpdateItemCategory)
			})
		}

		if rt.Categories != nil {
			r.Route("/api/expense-categories", func(cr chi.Router) {
				cr.Get("/", rt.Categories.GetCategories)
				cr.Post("/", rt.Categories.CreateCategory)
				cr.Delete("/{id}", rt.Categories.DeactivateCategory)
			})
		}

		if rt.Reports != nil {
			h := rt.Reports
			r.Route("/api/reports", func(rr chi.Router) {
				rr.Post("/", h.CreateReport)
				rr.Get("/", h.ListReports)
				rr.Get("/{id}", h.GetReport)
				rr.Post("/approve", h.Approve)
				rr.Post("/deny", h.Deny)
				rr.Post("/close", h.Close)
				rr.Post("/request-change", h.RequestChange)
				rr.Post("/resubmit", h.Resubmit)
			})
		}

		if rt.Users != nil {
			r.Route("/api/admin/users", func(ur chi.Router) {
				ur.Use(authMW.RequireCapability(auth.CapManageUsers))
				ur.Get("/", rt.Users.List)
				ur.Post("/approve", rt.Users.Approve)
				ur.Post("/deny", rt.Users.Deny)
				ur.Post("/update-status", rt.Users.UpdateStatus)
				ur.Post("/update-role", rt.Users.UpdateRole)
			})
		}
	})
}

func passthrough(next http.Handler) http.Handler {
	return next
}

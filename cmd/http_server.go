package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wordaddict/finance-sub001/api"
	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	authpg "github.com/wordaddict/finance-sub001/internal/auth/postgres"
	"github.com/wordaddict/finance-sub001/internal/category"
	categorypg "github.com/wordaddict/finance-sub001/internal/category/postgres"
	"github.com/wordaddict/finance-sub001/internal/core/events"
	"github.com/wordaddict/finance-sub001/internal/expense"
	expensepg "github.com/wordaddict/finance-sub001/internal/expense/postgres"
	"github.com/wordaddict/finance-sub001/internal/metrics"
	"github.com/wordaddict/finance-sub001/internal/notification"
	"github.com/wordaddict/finance-sub001/internal/report"
	reportpg "github.com/wordaddict/finance-sub001/internal/report/postgres"
	"github.com/wordaddict/finance-sub001/internal/transport/rest"
	"github.com/wordaddict/finance-sub001/internal/user"
	userpg "github.com/wordaddict/finance-sub001/internal/user/postgres"
	"github.com/wordaddict/finance-sub001/internal/wishlist"
	wishlistpg "github.com/wordaddict/finance-sub001/internal/wishlist/postgres"
	"github.com/wordaddict/finance-sub001/pkg/ratelimit"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Gorm       *gorm.DB
	Redis      *redis.Client
	Bus        *events.EventBus
	Dispatcher *notification.Dispatcher
	Router     *chi.Mux
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	logger := deps.Logger

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	logger.Info("Server stopped")
}

// close flushes queued notifications before releasing connections.
func (d *Dependencies) close() {
	d.Bus.Wait()
	d.Dispatcher.Drain()
	d.Dispatcher.Shutdown()
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(config)

	ctx := context.Background()
	openAPI, err := rest.LoadOpenAPI(ctx, api.OpenAPI)
	if err != nil {
		return nil, err
	}
	logger.Debug("openapi document loaded", "paths", openAPI.Paths.Len())

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	bus := events.NewEventBus(logger)
	m.SubscribeWorkflow(bus)

	mailer := notification.NewMailer(config.Notification, logger)
	sms := notification.NewSMSSender(config.Notification, logger)
	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		Workers:     config.Notification.Workers,
		QueueSize:   config.Notification.QueueSize,
		SendTimeout: config.Notification.SendTimeout,
	}, mailer, sms, m, logger)
	templates, err := notification.NewTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse notification templates: %w", err)
	}

	userRepo := userpg.NewUserRepository(gdb)
	notifier := notification.NewNotifier(notification.NotifierConfig{
		BaseURL:      config.Server.BaseURL,
		AdminEmails:  config.Notification.AdminNotifyEmails,
		CodeValidFor: int(config.Wishlist.CodeTTL / time.Minute),
	}, mailer, dispatcher, templates, userRepo, logger)
	notifier.Subscribe(bus)

	health := map[string]rest.Checker{"database": db}

	var (
		redisClient *redis.Client
		limiter     ratelimit.Limiter = ratelimit.NoopLimiter{}
	)
	if config.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     config.Redis.Address,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		limiter = ratelimit.NewRedisLimiter(redisClient, config.Redis.KeyPrefix)
		health["redis"] = rest.CheckerFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	} else if config.RateLimit.Enabled {
		logger.Warn("rate limiting enabled without redis; limits are not enforced")
	}

	tokens := auth.NewJWTTokenGenerator(config.Security.SessionSecret)
	authService := auth.NewService(authpg.NewRepository(gdb), tokens, notifier, bus, auth.Config{
		SessionTTL:      config.Security.SessionDuration,
		VerificationTTL: config.Security.VerificationTokenTTL,
		ResetTTL:        config.Security.PasswordResetTTL,
		BCryptCost:      config.Security.BCryptCost,
	}, logger)
	cookie := auth.CookieConfig{
		Name:   config.Security.SessionCookieName,
		Secure: config.Security.CookieSecure,
		Domain: config.Security.CookieDomain,
	}

	userService := user.NewService(userRepo, bus, logger)
	categoryService := category.NewService(categorypg.NewCategoryRepository(gdb), logger)
	expenseService := expense.NewService(expensepg.NewExpenseRepository(gdb), expensepg.NewExportRepository(db), bus, logger).
		WithCategories(categoryService)
	reportService := report.NewService(reportpg.NewReportRepository(gdb), bus, logger)

	wishlistRepo := wishlistpg.NewWishlistRepository(gdb)
	wishlistService := wishlist.NewService(wishlistRepo, bus, logger)
	accessService := wishlist.NewAccessService(wishlistRepo, userRepo, notifier, tokens, wishlist.AccessConfig{
		AllowedEmails: config.Wishlist.AccessEmails,
		CodeTTL:       config.Wishlist.CodeTTL,
		GrantTTL:      config.Wishlist.AccessTTL,
		MaxAttempts:   config.Wishlist.MaxCodeAttempts,
	}, logger)
	wishlistCookie := auth.CookieConfig{
		Name:   config.Wishlist.CookieName,
		Secure: config.Security.CookieSecure,
		Domain: config.Security.CookieDomain,
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Routes{
		Config:         config,
		Logger:         logger,
		Health:         rest.NewHealthHandler(health),
		OpenAPI:        api.OpenAPI,
		Metrics:        m,
		Gatherer:       registry,
		Limiter:        limiter,
		AuthMiddleware: auth.NewMiddleware(authService, config.Security.SessionCookieName, logger),
		WishlistGate:   wishlist.NewGate(tokens, config.Wishlist.CookieName, logger),
		Auth:           auth.NewHandler(authService, cookie),
		Users:          user.NewHandler(userService),
		Expenses:       expense.NewHandler(expenseService),
		Categories:     category.NewHandler(categoryService),
		Reports:        report.NewHandler(reportService),
		Wishlist:       wishlist.NewHandler(wishlistService, accessService, wishlistCookie),
	})

	return &Dependencies{
		Config:     config,
		DB:         db,
		Gorm:       gdb,
		Redis:      redisClient,
		Bus:        bus,
		Dispatcher: dispatcher,
		Router:     router,
		Logger:     logger,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm so both see the same connection limits.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

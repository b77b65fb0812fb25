package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	authpg "github.com/wordaddict/finance-sub001/internal/auth/postgres"
	"github.com/wordaddict/finance-sub001/internal/cleanup"
	"github.com/wordaddict/finance-sub001/internal/metrics"
	wishlistpg "github.com/wordaddict/finance-sub001/internal/wishlist/postgres"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start background workers that run outside the HTTP server process.`,
}

var cleanupWorkerCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge expired tokens, sessions and access codes",
	Long:  `Run the cleanup job on the configured cron schedule, or once with --once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startCleanupWorker()
	},
}

var (
	cleanupOnce     bool
	cleanupSchedule string
)

func startCleanupWorker() error {
	config, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(config)

	db, err := initDB(config.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	gdb, err := initGorm(db)
	if err != nil {
		return fmt.Errorf("failed to initialize gorm: %w", err)
	}

	authRepo := authpg.NewRepository(gdb)
	wishlistRepo := wishlistpg.NewWishlistRepository(gdb)
	job := cleanup.NewJob([]cleanup.Task{
		{Name: "verification_tokens", Purge: authRepo.PurgeExpiredTokens},
		{Name: "sessions", Purge: authRepo.PurgeExpiredSessions},
		{Name: "wishlist_access_codes", Purge: wishlistRepo.PurgeExpiredCodes},
	}, metrics.New(prometheus.DefaultRegisterer), logger)

	if cleanupOnce {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, err := job.Run(ctx)
		return err
	}

	schedule := getStringFlag(cleanupSchedule, config.Cleanup.Schedule)
	runner, err := job.Schedule(schedule)
	if err != nil {
		return err
	}
	runner.Start()
	logger.Info("cleanup worker is running. Press Ctrl+C to stop.", "schedule", schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("received signal, shutting down cleanup worker", "signal", sig)

	select {
	case <-runner.Stop().Done():
		logger.Info("cleanup worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("shutdown timeout reached, forcing exit")
	}
	return nil
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	cleanupWorkerCmd.Flags().BoolVar(&cleanupOnce, "once", false, "Run the job once and exit")
	cleanupWorkerCmd.Flags().StringVar(&cleanupSchedule, "schedule", "", "Cron schedule (overrides config)")

	workerCmd.AddCommand(cleanupWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}

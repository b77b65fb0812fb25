package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordaddict/finance-sub001/internal/notification"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification commands",
	Long:  `Check the configured email and SMS senders`,
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  `Send a test email, and optionally an SMS, through the configured senders and worker pool`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendTestNotification()
	},
}

var (
	notifyEmail string
	notifyPhone string
)

func sendTestNotification() error {
	if notifyEmail == "" && notifyPhone == "" {
		return errors.New("at least one of --email or --phone is required")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(cfg)

	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		Workers:     1,
		QueueSize:   2,
		SendTimeout: cfg.Notification.SendTimeout,
	}, notification.NewMailer(cfg.Notification, logger), notification.NewSMSSender(cfg.Notification, logger), nil, logger)
	defer dispatcher.Shutdown()

	if notifyEmail != "" {
		dispatcher.Enqueue(notification.Job{
			Kind: "test",
			Email: &notification.Email{
				To:       []string{notifyEmail},
				Subject:  "Church Finance test message",
				TextBody: "Email delivery is configured correctly.",
			},
		})
		logger.Info("queued test email", "to", notifyEmail, "sender", cfg.Notification.EmailSender)
	}
	if notifyPhone != "" {
		dispatcher.Enqueue(notification.Job{
			Kind: "test",
			SMS:  &notification.SMS{To: notifyPhone, Body: "Church Finance: SMS delivery is configured correctly."},
		})
		logger.Info("queued test sms", "to", notifyPhone, "sender", cfg.Notification.SMSSender)
	}

	dispatcher.Drain()
	logger.Info("test notifications processed; check the log for delivery errors")
	return nil
}

func init() {
	notifyTestCmd.Flags().StringVar(&notifyEmail, "email", "", "Recipient email address")
	notifyTestCmd.Flags().StringVar(&notifyPhone, "phone", "", "Recipient phone number")

	notifyCmd.AddCommand(notifyTestCmd)

	rootCmd.AddCommand(notifyCmd)
}

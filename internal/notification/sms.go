package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wordaddict/finance-sub001/internal"
)

type SMS struct {
	To   string
	Body string
}

type SMSSender interface {
	SendSMS(ctx context.Context, msg SMS) error
}

func NewSMSSender(cfg internal.NotificationConfig, logger *slog.Logger) SMSSender {
	switch cfg.SMSSender {
	case "http":
		return NewHTTPSMSSender(cfg.SMSAPIURL, cfg.SMSAccountID, cfg.SMSAuthToken, cfg.SMSFrom, cfg.SendTimeout)
	default:
		return &LogSMSSender{logger: logger}
	}
}

type LogSMSSender struct {
	logger *slog.Logger
}

func (s *LogSMSSender) SendSMS(ctx context.Context, msg SMS) error {
	s.logger.InfoContext(ctx, "sms not delivered (log sender)", "to", msg.To, "body", msg.Body)
	return nil
}

// HTTPSMSSender posts form-encoded messages to a Twilio-compatible endpoint using basic auth.
type HTTPSMSSender struct {
	apiURL    string
	accountID string
	authToken string
	from      string
	client    *http.Client
}

func NewHTTPSMSSender(apiURL, accountID, authToken, from string, timeout time.Duration) *HTTPSMSSender {
	return &HTTPSMSSender{
		apiURL:    apiURL,
		accountID: accountID,
		authToken: authToken,
		from:      from,
		client:    &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSMSSender) SendSMS(ctx context.Context, msg SMS) error {
	form := url.Values{}
	form.Set("To", msg.To)
	form.Set("From", s.from)
	form.Set("Body", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountID, s.authToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

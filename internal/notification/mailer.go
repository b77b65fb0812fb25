package notification

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/wordaddict/finance-sub001/internal"
)

const defaultDialTimeout = 10 * time.Second

type Email struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}

type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// NewMailer picks the sender configured under notification.email_sender.
func NewMailer(cfg internal.NotificationConfig, logger *slog.Logger) Mailer {
	switch cfg.EmailSender {
	case "smtp":
		return &SMTPMailer{
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			username: cfg.SMTPUsername,
			password: cfg.SMTPPassword,
			from:     mail.Address{Name: cfg.FromName, Address: cfg.FromAddress},
		}
	default:
		return &LogMailer{logger: logger}
	}
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Email) error {
	m.logger.InfoContext(ctx, "email not delivered (log sender)",
		"to", strings.Join(msg.To, ","),
		"subject", msg.Subject,
		"body", msg.TextBody)
	return nil
}

type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     mail.Address
}

func (m *SMTPMailer) Send(ctx context.Context, msg Email) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("email has no recipients")
	}
	raw, err := buildMessage(m.from, msg, time.Now())
	if err != nil {
		return fmt.Errorf("compose email: %w", err)
	}
	if err := m.deliver(ctx, msg.To, raw); err != nil {
		return fmt.Errorf("smtp deliver: %w", err)
	}
	return nil
}

func (m *SMTPMailer) deliver(ctx context.Context, rcpt []string, raw []byte) error {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))
	dialer := &net.Dialer{Timeout: defaultDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.host}); err != nil {
			return err
		}
	}
	if m.username != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", m.username, m.password, m.host)); err != nil {
				return err
			}
		}
	}

	if err := client.Mail(m.from.Address); err != nil {
		return err
	}
	for _, r := range rcpt {
		if err := client.Rcpt(strings.TrimSpace(r)); err != nil {
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(raw); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// buildMessage renders an RFC 5322 message with a text part and, when present, an HTML alternative.
func buildMessage(from mail.Address, msg Email, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*mail.Address{&from})

	to := make([]*mail.Address, 0, len(msg.To))
	for _, addr := range msg.To {
		to = append(to, &mail.Address{Address: strings.TrimSpace(addr)})
	}
	h.SetAddressList("To", to)
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	iw, err := mw.CreateInline()
	if err != nil {
		return nil, err
	}

	if err := writeInlinePart(iw, "text/plain", msg.TextBody); err != nil {
		return nil, err
	}
	if msg.HTMLBody != "" {
		if err := writeInlinePart(iw, "text/html", msg.HTMLBody); err != nil {
			return nil, err
		}
	}

	if err := iw.Close(); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeInlinePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	w, err := iw.CreatePart(ph)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, body); err != nil {
		return err
	}
	return w.Close()
}

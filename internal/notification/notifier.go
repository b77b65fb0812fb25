package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/wordaddict/finance-sub001/internal/core/events"
)

type Contact struct {
	ID    string
	Email string
	Name  string
	Phone *string
}

// Directory resolves users referenced by workflow events.
type Directory interface {
	ContactByID(ctx context.Context, userID string) (*Contact, error)
	ActiveAdminContacts(ctx context.Context) ([]Contact, error)
}

type Enqueuer interface {
	Enqueue(job Job) bool
}

type NotifierConfig struct {
	BaseURL      string
	AdminEmails  []string
	CodeValidFor int
}

// Notifier renders templates and hands deliveries to the dispatcher. Verification
// emails are the one synchronous path: registration must fail when they cannot be sent.
type Notifier struct {
	mailer    Mailer
	queue     Enqueuer
	templates *Templates
	directory Directory
	cfg       NotifierConfig
	logger    *slog.Logger
}

func NewNotifier(cfg NotifierConfig, mailer Mailer, queue Enqueuer, templates *Templates, directory Directory, logger *slog.Logger) *Notifier {
	return &Notifier{
		mailer:    mailer,
		queue:     queue,
		templates: templates,
		directory: directory,
		cfg:       cfg,
		logger:    logger,
	}
}

func (n *Notifier) SendVerificationEmail(ctx context.Context, email, name, token string) error {
	msg, err := n.email(TemplateVerifyEmail, []string{email}, map[string]any{
		"Name": name,
		"Link": n.link("/verify", "token", token),
	})
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}

func (n *Notifier) SendPasswordReset(ctx context.Context, email, name, token string) error {
	msg, err := n.email(TemplatePasswordReset, []string{email}, map[string]any{
		"Name": name,
		"Link": n.link("/reset-password", "token", token),
	})
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplatePasswordReset, msg)
	return nil
}

func (n *Notifier) SendWishlistAccessCode(ctx context.Context, email, code string) error {
	validFor := n.cfg.CodeValidFor
	if validFor <= 0 {
		validFor = 10
	}
	msg, err := n.email(TemplateWishlistCode, []string{email}, map[string]any{
		"Code":         code,
		"ValidMinutes": validFor,
	})
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplateWishlistCode, msg)
	return nil
}

// Subscribe wires the notifier to every workflow event that produces a message.
func (n *Notifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeExpenseSubmitted, n.HandleExpenseSubmitted)
	bus.Subscribe(events.EventTypeExpenseStatusChanged, n.HandleExpenseStatusChanged)
	bus.Subscribe(events.EventTypeExpenseItemDecided, n.HandleExpenseItemDecided)
	bus.Subscribe(events.EventTypeReportStatusChanged, n.HandleReportStatusChanged)
	bus.Subscribe(events.EventTypeUserRegistered, n.HandleUserRegistered)
	bus.Subscribe(events.EventTypeUserApproved, n.HandleUserApproved)
	bus.Subscribe(events.EventTypeWishlistPledged, n.HandleWishlistPledged)
}

func (n *Notifier) HandleExpenseSubmitted(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseSubmittedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	requesterName := ""
	if requester, err := n.directory.ContactByID(ctx, e.RequesterID); err == nil {
		requesterName = requester.Name
	}

	recipients, err := n.adminRecipients(ctx)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	msg, err := n.email(TemplateExpenseSubmitted, recipients, map[string]any{
		"Title":         e.Title,
		"AmountCents":   e.AmountCents,
		"RequesterName": requesterName,
		"Link":          n.link("/expenses/"+e.ExpenseID, "", ""),
	})
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplateExpenseSubmitted, msg)
	return nil
}

func (n *Notifier) HandleExpenseStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	requester, err := n.directory.ContactByID(ctx, e.RequesterID)
	if err != nil {
		return fmt.Errorf("lookup requester %s: %w", e.RequesterID, err)
	}

	data := map[string]any{
		"RecipientName": requester.Name,
		"Title":         e.Title,
		"AmountCents":   e.AmountCents,
		"From":          e.From,
		"To":            e.To,
		"Reason":        e.Reason,
		"Link":          n.link("/expenses/"+e.ExpenseID, "", ""),
	}

	msg, err := n.email(TemplateExpenseStatus, []string{requester.Email}, data)
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplateExpenseStatus, msg)

	if requester.Phone != nil && *requester.Phone != "" {
		_, body, err := n.templates.Render(TemplateExpenseStatusSMS, data)
		if err != nil {
			return err
		}
		n.queue.Enqueue(Job{Kind: TemplateExpenseStatusSMS, SMS: &SMS{To: *requester.Phone, Body: strings.TrimSpace(body)}})
	}
	return nil
}

func (n *Notifier) HandleExpenseItemDecided(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ExpenseItemDecidedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	requester, err := n.directory.ContactByID(ctx, e.RequesterID)
	if err != nil {
		return fmt.Errorf("lookup requester %s: %w", e.RequesterID, err)
	}

	msg, err := n.email(TemplateItemDecision, []string{requester.Email}, map[string]any{
		"RecipientName":   requester.Name,
		"ItemDescription": e.ItemDescription,
		"Decision":        e.Decision,
		"Comment":         e.Comment,
		"Link":            n.link("/expenses/"+e.ExpenseID, "", ""),
	})
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplateItemDecision, msg)
	return nil
}

func (n *Notifier) HandleReportStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ReportStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	submitter, err := n.directory.ContactByID(ctx, e.SubmittedByID)
	if err != nil {
		return fmt.Errorf("lookup report submitter %s: %w", e.SubmittedByID, err)
	}

	msg, err := n.email(TemplateReportStatus, []string{submitter.Email}, map[string]any{
		"RecipientName": submitter.Name,
		"Title":         e.Title,
		"From":          e.From,
		"To":            e.To,
		"Comment":       e.Comment,
		"Link":          n.link("/reports/"+e.ReportID, "", ""),
	})
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplateReportStatus, msg)
	return nil
}

func (n *Notifier) HandleUserRegistered(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.UserEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	recipients, err := n.adminRecipients(ctx)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	msg, err := n.email(TemplateRegistrationPending, recipients, map[string]any{
		"Name":  e.Name,
		"Email": e.Email,
		"Link":  n.link("/admin/users", "status", "PENDING_APPROVAL"),
	})
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplateRegistrationPending, msg)
	return nil
}

func (n *Notifier) HandleUserApproved(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.UserEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}

	msg, err := n.email(TemplateAccountApproved, []string{e.Email}, map[string]any{
		"Name": e.Name,
		"Link": n.link("/login", "", ""),
	})
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplateAccountApproved, msg)
	return nil
}

func (n *Notifier) HandleWishlistPledged(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.WishlistPledgedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", event)
	}
	if e.DonorEmail == "" {
		return nil
	}

	msg, err := n.email(TemplateWishlistThanks, []string{e.DonorEmail}, map[string]any{
		"DonorName":   e.DonorName,
		"ItemName":    e.ItemName,
		"Kind":        e.Kind,
		"Quantity":    e.Quantity,
		"AmountCents": e.AmountCents,
	})
	if err != nil {
		return err
	}
	n.enqueue(ctx, TemplateWishlistThanks, msg)
	return nil
}

func (n *Notifier) adminRecipients(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(email string) {
		email = strings.ToLower(strings.TrimSpace(email))
		if email == "" {
			return
		}
		if _, dup := seen[email]; dup {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}

	for _, email := range n.cfg.AdminEmails {
		add(email)
	}

	admins, err := n.directory.ActiveAdminContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admin contacts: %w", err)
	}
	for _, admin := range admins {
		add(admin.Email)
	}
	return out, nil
}

func (n *Notifier) email(name string, to []string, data any) (Email, error) {
	subject, body, err := n.templates.Render(name, data)
	if err != nil {
		return Email{}, err
	}
	return Email{To: to, Subject: subject, TextBody: body}, nil
}

func (n *Notifier) enqueue(ctx context.Context, kind string, msg Email) {
	if !n.queue.Enqueue(Job{Kind: kind, Email: &msg}) {
		n.logger.WarnContext(ctx, "notification dropped", "kind", kind, "to", strings.Join(msg.To, ","))
	}
}

func (n *Notifier) link(path, key, value string) string {
	base := strings.TrimRight(n.cfg.BaseURL, "/")
	if key == "" {
		return base + path
	}
	return base + path + "?" + url.Values{key: []string{value}}.Encode()
}

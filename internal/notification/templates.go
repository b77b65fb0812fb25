package notification

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/wordaddict/finance-sub001/pkg/money"
)

const (
	TemplateVerifyEmail         = "verify_email"
	TemplatePasswordReset       = "password_reset"
	TemplateRegistrationPending = "registration_pending"
	TemplateAccountApproved     = "account_approved"
	TemplateExpenseSubmitted    = "expense_submitted"
	TemplateExpenseStatus       = "expense_status"
	TemplateExpenseStatusSMS    = "expense_status_sms"
	TemplateItemDecision        = "item_decision"
	TemplateReportStatus        = "report_status"
	TemplateWishlistThanks      = "wishlist_thanks"
	TemplateWishlistCode        = "wishlist_code"
)

// Each template defines a "subject" and a "body" block.
var templateSources = map[string]string{
	TemplateVerifyEmail: `{{define "subject"}}Verify your email address{{end}}
{{define "body"}}Hi {{.Name}},

Thanks for registering. Confirm your email address by opening the link below:

{{.Link}}

An administrator will review your account before you can sign in.
{{end}}`,

	TemplatePasswordReset: `{{define "subject"}}Reset your password{{end}}
{{define "body"}}Hi {{.Name}},

A password reset was requested for your account. The link below is valid for one hour:

{{.Link}}

If you did not ask for this you can ignore this email.
{{end}}`,

	TemplateRegistrationPending: `{{define "subject"}}New registration awaiting approval: {{.Name}}{{end}}
{{define "body"}}{{.Name}} ({{.Email}}) registered and is waiting for approval.

Review pending users at {{.Link}}
{{end}}`,

	TemplateAccountApproved: `{{define "subject"}}Your account has been approved{{end}}
{{define "body"}}Hi {{.Name}},

Your account is active. You can sign in at {{.Link}}
{{end}}`,

	TemplateExpenseSubmitted: `{{define "subject"}}New expense request: {{.Title}}{{end}}
{{define "body"}}A new expense request "{{.Title}}" for {{usd .AmountCents}} was submitted by {{.RequesterName}}.

{{.Link}}
{{end}}`,

	TemplateExpenseStatus: `{{define "subject"}}Expense "{{.Title}}" is now {{status .To}}{{end}}
{{define "body"}}Hi {{.RecipientName}},

Your expense request "{{.Title}}" ({{usd .AmountCents}}) moved from {{status .From}} to {{status .To}}.
{{- if .Reason}}

Comment: {{.Reason}}
{{- end}}

{{.Link}}
{{end}}`,

	TemplateExpenseStatusSMS: `{{define "subject"}}{{end}}
{{define "body"}}Expense "{{.Title}}" is now {{status .To}}.{{if .Reason}} {{.Reason}}{{end}}{{end}}`,

	TemplateItemDecision: `{{define "subject"}}Update on "{{.ItemDescription}}"{{end}}
{{define "body"}}Hi {{.RecipientName}},

The line item "{{.ItemDescription}}" on your expense request was marked {{status .Decision}}.
{{- if .Comment}}

Comment: {{.Comment}}
{{- end}}

{{.Link}}
{{end}}`,

	TemplateReportStatus: `{{define "subject"}}Expense report "{{.Title}}" is now {{status .To}}{{end}}
{{define "body"}}Hi {{.RecipientName}},

Your expense report "{{.Title}}" moved from {{status .From}} to {{status .To}}.
{{- if .Comment}}

Comment: {{.Comment}}
{{- end}}

{{.Link}}
{{end}}`,

	TemplateWishlistThanks: `{{define "subject"}}Thank you for supporting "{{.ItemName}}"{{end}}
{{define "body"}}Hi {{.DonorName}},

Thank you for your generosity.
{{- if eq .Kind "contribution"}} We received your pledge of {{usd .AmountCents}} toward "{{.ItemName}}".
{{- else}} We recorded your commitment to provide {{.Quantity}} x "{{.ItemName}}".
{{- end}}
{{end}}`,

	TemplateWishlistCode: `{{define "subject"}}Your wishlist access code{{end}}
{{define "body"}}Your one-time access code is {{.Code}}

It expires in {{.ValidMinutes}} minutes.
{{end}}`,
}

type Templates struct {
	set map[string]*template.Template
}

// NewTemplates parses every built-in template once.
func NewTemplates() (*Templates, error) {
	funcs := template.FuncMap{
		"usd":    money.FormatUSD,
		"status": humanizeStatus,
	}
	set := make(map[string]*template.Template, len(templateSources))
	for name, src := range templateSources {
		t, err := template.New(name).Funcs(funcs).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		set[name] = t
	}
	return &Templates{set: set}, nil
}

func (t *Templates) Render(name string, data any) (subject, body string, err error) {
	tmpl, ok := t.set[name]
	if !ok {
		return "", "", fmt.Errorf("unknown template %q", name)
	}

	var sb, bb bytes.Buffer
	if err := tmpl.ExecuteTemplate(&sb, "subject", data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := tmpl.ExecuteTemplate(&bb, "body", data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return strings.TrimSpace(sb.String()), strings.TrimSpace(bb.String()) + "\n", nil
}

// humanizeStatus turns PARTIALLY_APPROVED into "partially approved".
func humanizeStatus(status string) string {
	if status == "" {
		return "new"
	}
	return strings.ToLower(strings.ReplaceAll(status, "_", " "))
}

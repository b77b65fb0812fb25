package report

import (
	"time"

	reportDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/report"
)

type Status string

const (
	StatusPending         Status = "PENDING"
	StatusApproved        Status = "APPROVED"
	StatusDenied          Status = "DENIED"
	StatusChangeRequested Status = "CHANGE_REQUESTED"
	StatusClosed          Status = "CLOSED"
)

type Action string

const (
	ActionApprove       Action = "approve"
	ActionDeny          Action = "deny"
	ActionRequestChange Action = "request changes on"
	ActionResubmit      Action = "resubmit"
	ActionClose         Action = "close"
)

var allowedFrom = map[Action][]Status{
	ActionApprove:       {StatusPending},
	ActionDeny:          {StatusPending},
	ActionRequestChange: {StatusPending, StatusApproved},
	ActionResubmit:      {StatusChangeRequested},
	ActionClose:         {StatusApproved, StatusPending},
}

func CanTransition(action Action, from Status) bool {
	for _, s := range allowedFrom[action] {
		if s == from {
			return true
		}
	}
	return false
}

type Report struct {
	ID              string     `json:"id"`
	ExpenseID       string     `json:"expenseId"`
	SubmittedByID   string     `json:"submittedById"`
	Title           string     `json:"title"`
	Summary         string     `json:"summary"`
	TotalSpentCents int64      `json:"totalSpentCents"`
	Status          Status     `json:"status"`
	ClosedAt        *time.Time `json:"closedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type Approval struct {
	ID                  string    `json:"id"`
	ApproverID          string    `json:"approverId"`
	Status              string    `json:"status"`
	Comment             *string   `json:"comment,omitempty"`
	ApprovedAmountCents *int64    `json:"approvedAmountCents,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type Note struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type Attachment struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
}

type ApprovedItem struct {
	ID                  string `json:"id"`
	Description         string `json:"description"`
	AmountCents         int64  `json:"amountCents"`
	ApprovedAmountCents int64  `json:"approvedAmountCents"`
}

type Detail struct {
	*Report
	Approvals     []Approval     `json:"approvals"`
	Notes         []Note         `json:"notes"`
	Attachments   []Attachment   `json:"attachments"`
	ApprovedItems []ApprovedItem `json:"approvedItems"`
}

// CloseResult reports whether closing the report also closed its expense.
type CloseResult struct {
	Report        *Report `json:"report"`
	ExpenseClosed bool    `json:"expenseClosed"`
}

func FromDatamodel(r *reportDatamodel.ExpenseReport) *Report {
	return &Report{
		ID:              r.ID,
		ExpenseID:       r.ExpenseID,
		SubmittedByID:   r.SubmittedByID,
		Title:           r.Title,
		Summary:         r.Summary,
		TotalSpentCents: r.TotalSpentCents,
		Status:          Status(r.Status),
		ClosedAt:        r.ClosedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

package expense

import (
	"time"

	expenseDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/expense"
)

type Status string

const (
	StatusSubmitted              Status = "SUBMITTED"
	StatusPartiallyApproved      Status = "PARTIALLY_APPROVED"
	StatusChangeRequested        Status = "CHANGE_REQUESTED"
	StatusApproved               Status = "APPROVED"
	StatusDenied                 Status = "DENIED"
	StatusPaid                   Status = "PAID"
	StatusExpenseReportRequested Status = "EXPENSE_REPORT_REQUESTED"
	StatusClosed                 Status = "CLOSED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusPartiallyApproved, StatusChangeRequested, StatusApproved,
		StatusDenied, StatusPaid, StatusExpenseReportRequested, StatusClosed:
		return true
	}
	return false
}

// Decision is one approver's verdict on an expense, item or report.
type Decision string

const (
	DecisionApproved        Decision = "APPROVED"
	DecisionDenied          Decision = "DENIED"
	DecisionChangeRequested Decision = "CHANGE_REQUESTED"
)

// Action names a workflow step that moves an expense between statuses.
type Action string

const (
	ActionDeny            Action = "deny"
	ActionReview          Action = "review"
	ActionChangeRequest   Action = "request changes on"
	ActionRequestReport   Action = "request a report for"
	ActionMarkPaid        Action = "mark paid"
	ActionUndo            Action = "undo the decision on"
	ActionResubmit        Action = "resubmit"
	ActionCloseFromReport Action = "close"
)

var allowedFrom = map[Action][]Status{
	ActionDeny:            {StatusSubmitted},
	ActionReview:          {StatusSubmitted},
	ActionChangeRequest:   {StatusSubmitted},
	ActionRequestReport:   {StatusApproved, StatusPartiallyApproved, StatusPaid},
	ActionMarkPaid:        {StatusApproved, StatusPartiallyApproved},
	ActionUndo:            {StatusApproved, StatusDenied},
	ActionResubmit:        {StatusChangeRequested},
	ActionCloseFromReport: {StatusApproved, StatusPartiallyApproved, StatusPaid, StatusExpenseReportRequested},
}

// CanTransition reports whether action may start from status.
func CanTransition(action Action, from Status) bool {
	for _, s := range allowedFrom[action] {
		if s == from {
			return true
		}
	}
	return false
}

// ReportableStatuses are the parent statuses under which a report can be filed.
var ReportableStatuses = []Status{StatusApproved, StatusPartiallyApproved, StatusPaid, StatusExpenseReportRequested}

func IsReportable(s Status) bool {
	for _, r := range ReportableStatuses {
		if r == s {
			return true
		}
	}
	return false
}

// ClosedReason is recorded on the status event written when the last report closes.
const ClosedReason = "closed automatically after all reports were closed."

type Expense struct {
	ID                  string     `json:"id"`
	RequesterID         string     `json:"requesterId"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	AmountCents         int64      `json:"amountCents"`
	ApprovedAmountCents *int64     `json:"approvedAmountCents,omitempty"`
	Status              Status     `json:"status"`
	Account             string     `json:"account"`
	ExpenseType         string     `json:"expenseType"`
	ReportRequired      bool       `json:"reportRequired"`
	PaidAt              *time.Time `json:"paidAt,omitempty"`
	SubmittedAt         time.Time  `json:"submittedAt"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	Items               []Item     `json:"items"`
}

type Item struct {
	ID          string         `json:"id"`
	ExpenseID   string         `json:"expenseId"`
	Description string         `json:"description"`
	Category    string         `json:"category"`
	AmountCents int64          `json:"amountCents"`
	Approvals   []ItemApproval `json:"approvals"`
}

type ItemApproval struct {
	ID                  string    `json:"id"`
	ItemID              string    `json:"itemId"`
	ApproverID          string    `json:"approverId"`
	Status              Decision  `json:"status"`
	Comment             *string   `json:"comment,omitempty"`
	ApprovedAmountCents *int64    `json:"approvedAmountCents,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type Approval struct {
	ID                  string    `json:"id"`
	ApproverID          string    `json:"approverId"`
	Status              Decision  `json:"status"`
	Comment             *string   `json:"comment,omitempty"`
	ApprovedAmountCents *int64    `json:"approvedAmountCents,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

type StatusEvent struct {
	ID        string    `json:"id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	ActorID   *string   `json:"actorId,omitempty"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Note struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type PastorRemark struct {
	ID        string    `json:"id"`
	PastorID  string    `json:"pastorId"`
	Remark    string    `json:"remark"`
	CreatedAt time.Time `json:"createdAt"`
}

type Attachment struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Detail is an expense with everything attached to it.
type Detail struct {
	*Expense
	Approvals   []Approval     `json:"approvals"`
	History     []StatusEvent  `json:"history"`
	Notes       []Note         `json:"notes"`
	Remarks     []PastorRemark `json:"pastorRemarks"`
	Attachments []Attachment   `json:"attachments"`
}

// ApprovedAmount sums what the approvers signed off on: the latest APPROVED amount per item,
// the item amount when no approver named one, zero for items that were only denied, and the
// requested amount when the expense has no items.
func ApprovedAmount(e *Expense) int64 {
	if len(e.Items) == 0 {
		return e.AmountCents
	}

	var total int64
	for _, item := range e.Items {
		var latest *ItemApproval
		denied := false
		for i := range item.Approvals {
			a := &item.Approvals[i]
			switch a.Status {
			case DecisionApproved:
				if latest == nil || a.UpdatedAt.After(latest.UpdatedAt) {
					latest = a
				}
			case DecisionDenied:
				denied = true
			}
		}

		switch {
		case latest != nil && latest.ApprovedAmountCents != nil:
			total += *latest.ApprovedAmountCents
		case latest != nil:
			total += item.AmountCents
		case denied:
		default:
			total += item.AmountCents
		}
	}
	return total
}

func FromDatamodel(e *expenseDatamodel.ExpenseRequest) *Expense {
	out := &Expense{
		ID:                  e.ID,
		RequesterID:         e.RequesterID,
		Title:               e.Title,
		Description:         e.Description,
		AmountCents:         e.AmountCents,
		ApprovedAmountCents: e.ApprovedAmountCents,
		Status:              Status(e.Status),
		Account:             e.Account,
		ExpenseType:         e.ExpenseType,
		ReportRequired:      e.ReportRequired,
		PaidAt:              e.PaidAt,
		SubmittedAt:         e.SubmittedAt,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
		Items:               make([]Item, 0, len(e.Items)),
	}
	for _, it := range e.Items {
		out.Items = append(out.Items, Item{
			ID:          it.ID,
			ExpenseID:   it.ExpenseID,
			Description: it.Description,
			Category:    it.Category,
			AmountCents: it.AmountCents,
			Approvals:   []ItemApproval{},
		})
	}
	return out
}

// attachItemApprovals distributes approvals onto the matching items.
func attachItemApprovals(e *Expense, approvals []expenseDatamodel.ExpenseItemApproval) {
	index := make(map[string]int, len(e.Items))
	for i, it := range e.Items {
		index[it.ID] = i
	}
	for _, a := range approvals {
		i, ok := index[a.ItemID]
		if !ok {
			continue
		}
		e.Items[i].Approvals = append(e.Items[i].Approvals, ItemApproval{
			ID:                  a.ID,
			ItemID:              a.ItemID,
			ApproverID:          a.ApproverID,
			Status:              Decision(a.Status),
			Comment:             a.Comment,
			ApprovedAmountCents: a.ApprovedAmountCents,
			UpdatedAt:           a.UpdatedAt,
		})
	}
}

func approvalsFromDatamodel(rows []expenseDatamodel.Approval) []Approval {
	out := make([]Approval, 0, len(rows))
	for _, a := range rows {
		out = append(out, Approval{
			ID:                  a.ID,
			ApproverID:          a.ApproverID,
			Status:              Decision(a.Status),
			Comment:             a.Comment,
			ApprovedAmountCents: a.ApprovedAmountCents,
			UpdatedAt:           a.UpdatedAt,
		})
	}
	return out
}

func historyFromDatamodel(rows []expenseDatamodel.StatusEvent) []StatusEvent {
	out := make([]StatusEvent, 0, len(rows))
	for _, e := range rows {
		out = append(out, StatusEvent{
			ID:        e.ID,
			From:      Status(e.FromStatus),
			To:        Status(e.ToStatus),
			ActorID:   e.ActorID,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

func notesFromDatamodel(rows []expenseDatamodel.ExpenseNote) []Note {
	out := make([]Note, 0, len(rows))
	for _, n := range rows {
		out = append(out, Note{ID: n.ID, AuthorID: n.AuthorID, Body: n.Body, CreatedAt: n.CreatedAt})
	}
	return out
}

func remarksFromDatamodel(rows []expenseDatamodel.PastorRemark) []PastorRemark {
	out := make([]PastorRemark, 0, len(rows))
	for _, r := range rows {
		out = append(out, PastorRemark{ID: r.ID, PastorID: r.PastorID, Remark: r.Remark, CreatedAt: r.CreatedAt})
	}
	return out
}

func attachmentsFromDatamodel(rows []expenseDatamodel.Attachment) []Attachment {
	out := make([]Attachment, 0, len(rows))
	for _, a := range rows {
		out = append(out, Attachment{ID: a.ID, FileName: a.FileName, URL: a.URL, ContentType: a.ContentType, CreatedAt: a.CreatedAt})
	}
	return out
}

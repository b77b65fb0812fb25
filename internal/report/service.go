package report

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	expenseDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/expense"
	reportDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/report"
	"github.com/wordaddict/finance-sub001/internal/core/events"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
	"github.com/wordaddict/finance-sub001/internal/expense"
)

var (
	ErrNotFound        = errors.New("report not found")
	ErrExpenseNotFound = errors.New("expense not found")

	ErrReportNotFound    = internal.NewNotFoundError("report not found", internal.ErrCodeReportNotFound)
	ErrInvalidTransition = internal.NewConflictError("report status does not allow this action", internal.ErrCodeInvalidReportStatus)
	ErrStaleStatus       = internal.NewConflictError("report status changed while processing, reload and retry", internal.ErrCodeInvalidReportStatus)
	ErrReportNotAllowed  = internal.NewConflictError("reports can only be filed for approved or paid expenses", internal.ErrCodeReportNotAllowed)
)

type Repository interface {
	WithinTx(ctx context.Context, fn func(repo Repository) error) error

	Create(ctx context.Context, r *reportDatamodel.ExpenseReport, attachments []reportDatamodel.ReportAttachment) error
	FindByID(ctx context.Context, id string) (*reportDatamodel.ExpenseReport, error)
	ListByExpense(ctx context.Context, expenseID string) ([]reportDatamodel.ExpenseReport, error)
	// TransitionStatus applies to only while the row is still in from.
	TransitionStatus(ctx context.Context, id string, from, to Status, closedAt *time.Time) (bool, error)

	UpsertApproval(ctx context.Context, a *reportDatamodel.ReportApproval) error
	DeleteApprovals(ctx context.Context, reportID string) error
	ListApprovals(ctx context.Context, reportID string) ([]reportDatamodel.ReportApproval, error)
	ReplaceApprovedItems(ctx context.Context, reportID string, items []reportDatamodel.ApprovedReportItem) error
	ListApprovedItems(ctx context.Context, reportID string) ([]reportDatamodel.ApprovedReportItem, error)
	AddNote(ctx context.Context, n *reportDatamodel.ReportNote) error
	ListNotes(ctx context.Context, reportID string) ([]reportDatamodel.ReportNote, error)
	ListAttachments(ctx context.Context, reportID string) ([]reportDatamodel.ReportAttachment, error)

	FindExpense(ctx context.Context, id string) (*expenseDatamodel.ExpenseRequest, error)
	// CloseExpense moves the expense from its current status to CLOSED, clears reportRequired
	// and appends ev. It reports false when the expense was no longer in from.
	CloseExpense(ctx context.Context, expenseID string, from expense.Status, ev *expenseDatamodel.StatusEvent) (bool, error)
}

type ServiceAPI interface {
	Create(ctx context.Context, p *coreuser.Principal, dto CreateReportDTO) (*Report, error)
	Get(ctx context.Context, p *coreuser.Principal, id string) (*Detail, error)
	ListForExpense(ctx context.Context, p *coreuser.Principal, expenseID string) ([]*Report, error)
	Approve(ctx context.Context, p *coreuser.Principal, dto ApproveReportDTO) (*Report, error)
	Deny(ctx context.Context, p *coreuser.Principal, dto CommentDTO) (*Report, error)
	RequestChange(ctx context.Context, p *coreuser.Principal, dto CommentDTO) (*Report, error)
	Resubmit(ctx context.Context, p *coreuser.Principal, id string) (*Report, error)
	Close(ctx context.Context, p *coreuser.Principal, id string) (*CloseResult, error)
}

type Service struct {
	repo      Repository
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create files a PENDING report against an expense the caller requested.
func (s *Service) Create(ctx context.Context, p *coreuser.Principal, dto CreateReportDTO) (*Report, error) {
	if err := auth.Authorize(p, auth.CapSubmitExpenses); err != nil {
		return nil, err
	}
	parent, err := s.expense(ctx, dto.ExpenseID)
	if err != nil {
		return nil, err
	}
	if parent.RequesterID != p.UserID {
		s.logger.WarnContext(ctx, "report rejected: not the requester", "expense_id", parent.ID, "user_id", p.UserID)
		return nil, internal.ErrForbidden
	}
	if !expense.IsReportable(expense.Status(parent.Status)) {
		return nil, ErrReportNotAllowed.WithDetails(map[string]string{"expenseStatus": parent.Status})
	}

	now := s.now()
	row := &reportDatamodel.ExpenseReport{
		ID:              uuid.NewString(),
		ExpenseID:       parent.ID,
		SubmittedByID:   p.UserID,
		Title:           strings.TrimSpace(dto.Title),
		Summary:         strings.TrimSpace(dto.Summary),
		TotalSpentCents: dto.TotalSpentCents,
		Status:          string(StatusPending),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	attachments := make([]reportDatamodel.ReportAttachment, 0, len(dto.Attachments))
	for _, a := range dto.Attachments {
		attachments = append(attachments, reportDatamodel.ReportAttachment{
			ID:          uuid.NewString(),
			ReportID:    row.ID,
			FileName:    strings.TrimSpace(a.FileName),
			URL:         a.URL,
			ContentType: a.ContentType,
			CreatedAt:   now,
		})
	}

	if err := s.repo.Create(ctx, row, attachments); err != nil {
		return nil, internal.NewInternalError("failed to create report", err)
	}
	s.logger.InfoContext(ctx, "report submitted", "report_id", row.ID, "expense_id", parent.ID, "user_id", p.UserID)
	return FromDatamodel(row), nil
}

func (s *Service) Get(ctx context.Context, p *coreuser.Principal, id string) (*Detail, error) {
	row, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}

	approvals, err := s.repo.ListApprovals(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load report approvals", err)
	}
	notes, err := s.repo.ListNotes(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load report notes", err)
	}
	attachments, err := s.repo.ListAttachments(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load report attachments", err)
	}
	items, err := s.repo.ListApprovedItems(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load approved items", err)
	}

	detail := &Detail{
		Report:        FromDatamodel(row),
		Approvals:     make([]Approval, 0, len(approvals)),
		Notes:         make([]Note, 0, len(notes)),
		Attachments:   make([]Attachment, 0, len(attachments)),
		ApprovedItems: make([]ApprovedItem, 0, len(items)),
	}
	for _, a := range approvals {
		detail.Approvals = append(detail.Approvals, Approval{
			ID: a.ID, ApproverID: a.ApproverID, Status: a.Status, Comment: a.Comment,
			ApprovedAmountCents: a.ApprovedAmountCents, UpdatedAt: a.UpdatedAt,
		})
	}
	for _, n := range notes {
		detail.Notes = append(detail.Notes, Note{ID: n.ID, AuthorID: n.AuthorID, Body: n.Body, CreatedAt: n.CreatedAt})
	}
	for _, a := range attachments {
		detail.Attachments = append(detail.Attachments, Attachment{ID: a.ID, FileName: a.FileName, URL: a.URL, ContentType: a.ContentType})
	}
	for _, it := range items {
		detail.ApprovedItems = append(detail.ApprovedItems, ApprovedItem{
			ID: it.ID, Description: it.Description, AmountCents: it.AmountCents, ApprovedAmountCents: it.ApprovedAmountCents,
		})
	}
	return detail, nil
}

func (s *Service) ListForExpense(ctx context.Context, p *coreuser.Principal, expenseID string) ([]*Report, error) {
	if err := auth.Authorize(p, auth.CapSubmitExpenses); err != nil {
		return nil, err
	}
	parent, err := s.expense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if parent.RequesterID != p.UserID && !auth.Can(p, auth.CapViewAllExpenses) {
		return nil, internal.ErrForbidden
	}

	rows, err := s.repo.ListByExpense(ctx, expenseID)
	if err != nil {
		return nil, internal.NewInternalError("failed to list reports", err)
	}
	out := make([]*Report, 0, len(rows))
	for i := range rows {
		out = append(out, FromDatamodel(&rows[i]))
	}
	return out, nil
}

// Approve records the reviewer's approval and, when items are given, replaces the approved line items.
func (s *Service) Approve(ctx context.Context, p *coreuser.Principal, dto ApproveReportDTO) (*Report, error) {
	if err := auth.Authorize(p, auth.CapReviewReports); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, dto.ReportID)
	if err != nil {
		return nil, err
	}

	comment := ""
	if dto.Comment != nil {
		comment = strings.TrimSpace(*dto.Comment)
	}
	now := s.now()
	items := make([]reportDatamodel.ApprovedReportItem, 0, len(dto.Items))
	for _, it := range dto.Items {
		items = append(items, reportDatamodel.ApprovedReportItem{
			ID:                  uuid.NewString(),
			ReportID:            row.ID,
			Description:         strings.TrimSpace(it.Description),
			AmountCents:         it.AmountCents,
			ApprovedAmountCents: it.ApprovedAmountCents,
			CreatedAt:           now,
		})
	}

	updated, _, err := s.transition(ctx, p, row, ActionApprove, StatusApproved, comment, func(repo Repository) error {
		if err := repo.UpsertApproval(ctx, s.newApproval(row.ID, p.UserID, StatusApproved, comment, dto.ApprovedAmountCents)); err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return repo.ReplaceApprovedItems(ctx, row.ID, items)
	})
	return updated, err
}

func (s *Service) Deny(ctx context.Context, p *coreuser.Principal, dto CommentDTO) (*Report, error) {
	if err := auth.Authorize(p, auth.CapReviewReports); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, dto.ReportID)
	if err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(dto.Comment)

	updated, _, err := s.transition(ctx, p, row, ActionDeny, StatusDenied, comment, func(repo Repository) error {
		return repo.UpsertApproval(ctx, s.newApproval(row.ID, p.UserID, StatusDenied, comment, nil))
	})
	return updated, err
}

// RequestChange clears every existing decision so the report is reviewed from scratch.
func (s *Service) RequestChange(ctx context.Context, p *coreuser.Principal, dto CommentDTO) (*Report, error) {
	if err := auth.Authorize(p, auth.CapReviewReports); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, dto.ReportID)
	if err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(dto.Comment)

	updated, _, err := s.transition(ctx, p, row, ActionRequestChange, StatusChangeRequested, comment, func(repo Repository) error {
		if err := repo.DeleteApprovals(ctx, row.ID); err != nil {
			return err
		}
		return repo.AddNote(ctx, &reportDatamodel.ReportNote{
			ID:        uuid.NewString(),
			ReportID:  row.ID,
			AuthorID:  p.UserID,
			Body:      comment,
			CreatedAt: s.now(),
		})
	})
	return updated, err
}

func (s *Service) Resubmit(ctx context.Context, p *coreuser.Principal, id string) (*Report, error) {
	if err := auth.Authorize(p, auth.CapSubmitExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.SubmittedByID != p.UserID {
		return nil, internal.ErrForbidden
	}

	updated, _, err := s.transition(ctx, p, row, ActionResubmit, StatusPending, "", nil)
	return updated, err
}

// Close closes the report and, in the same transaction, closes the parent expense once every
// report filed against it is closed.
func (s *Service) Close(ctx context.Context, p *coreuser.Principal, id string) (*CloseResult, error) {
	if err := auth.Authorize(p, auth.CapReviewReports); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var parent *expenseDatamodel.ExpenseRequest
	var parentFrom expense.Status
	updated, cascaded, err := s.transition(ctx, p, row, ActionClose, StatusClosed, "", nil, func(repo Repository) (bool, error) {
		siblings, err := repo.ListByExpense(ctx, row.ExpenseID)
		if err != nil {
			return false, err
		}
		for _, sib := range siblings {
			if Status(sib.Status) != StatusClosed {
				return false, nil
			}
		}

		exp, err := repo.FindExpense(ctx, row.ExpenseID)
		if err != nil {
			return false, err
		}
		parentFrom = expense.Status(exp.Status)
		if !expense.CanTransition(expense.ActionCloseFromReport, parentFrom) {
			return false, nil
		}

		ev := &expenseDatamodel.StatusEvent{
			ID:         uuid.NewString(),
			ExpenseID:  exp.ID,
			FromStatus: string(parentFrom),
			ToStatus:   string(expense.StatusClosed),
			ActorID:    &p.UserID,
			Reason:     ptr(expense.ClosedReason),
			CreatedAt:  s.now(),
		}
		ok, err := repo.CloseExpense(ctx, exp.ID, parentFrom, ev)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, expense.ErrStaleStatus
		}
		parent = exp
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if cascaded && parent != nil {
		s.logger.InfoContext(ctx, "expense closed after its last report closed",
			"expense_id", parent.ID,
			"report_id", row.ID,
			"from", parentFrom,
			"actor_id", p.UserID)
		s.publish(ctx, events.NewExpenseStatusChangedEvent(parent.ID, parent.Title, parent.RequesterID, parent.AmountCents,
			string(parentFrom), string(expense.StatusClosed), p.UserID, expense.ClosedReason))
	}
	return &CloseResult{Report: updated, ExpenseClosed: cascaded}, nil
}

// transition applies one report status change in a transaction. before runs ahead of the status
// write; after runs once it succeeded and reports whether it cascaded.
func (s *Service) transition(ctx context.Context, p *coreuser.Principal, row *reportDatamodel.ExpenseReport, action Action, to Status, comment string,
	before func(repo Repository) error, after ...func(repo Repository) (bool, error)) (*Report, bool, error) {
	from := Status(row.Status)
	if !CanTransition(action, from) {
		s.logger.WarnContext(ctx, "report transition rejected",
			"report_id", row.ID,
			"action", action,
			"from", from,
			"actor_id", p.UserID)
		return nil, false, ErrInvalidTransition.WithDetails(map[string]string{"status": string(from), "action": string(action)})
	}

	now := s.now()
	var closedAt *time.Time
	if to == StatusClosed {
		closedAt = &now
	}

	cascaded := false
	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		if before != nil {
			if err := before(repo); err != nil {
				return err
			}
		}
		ok, err := repo.TransitionStatus(ctx, row.ID, from, to, closedAt)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleStatus
		}
		for _, fn := range after {
			c, err := fn(repo)
			if err != nil {
				return err
			}
			cascaded = cascaded || c
		}
		return nil
	})
	if err != nil {
		return nil, false, wrapInternal(err, "failed to update report status")
	}

	row.Status = string(to)
	row.UpdatedAt = now
	if closedAt != nil {
		row.ClosedAt = closedAt
	}

	s.logger.InfoContext(ctx, "report status changed",
		"report_id", row.ID,
		"expense_id", row.ExpenseID,
		"from", from,
		"to", to,
		"actor_id", p.UserID)
	s.publish(ctx, events.NewReportStatusChangedEvent(row.ID, row.ExpenseID, row.Title, row.SubmittedByID,
		string(from), string(to), p.UserID, comment))
	return FromDatamodel(row), cascaded, nil
}

// visible loads a report the caller filed, requested the expense for, or may review.
func (s *Service) visible(ctx context.Context, p *coreuser.Principal, id string) (*reportDatamodel.ExpenseReport, error) {
	if err := auth.Authorize(p, auth.CapSubmitExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if row.SubmittedByID == p.UserID || auth.Can(p, auth.CapReviewReports) || auth.Can(p, auth.CapViewAllExpenses) {
		return row, nil
	}
	parent, err := s.expense(ctx, row.ExpenseID)
	if err != nil {
		return nil, err
	}
	if parent.RequesterID != p.UserID {
		return nil, internal.ErrForbidden
	}
	return row, nil
}

func (s *Service) load(ctx context.Context, id string) (*reportDatamodel.ExpenseReport, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, internal.NewInternalError("failed to load report", err)
	}
	return row, nil
}

func (s *Service) expense(ctx context.Context, id string) (*expenseDatamodel.ExpenseRequest, error) {
	row, err := s.repo.FindExpense(ctx, id)
	if err != nil {
		if errors.Is(err, ErrExpenseNotFound) {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, internal.NewInternalError("failed to load expense", err)
	}
	return row, nil
}

func (s *Service) newApproval(reportID, approverID string, status Status, comment string, amount *int64) *reportDatamodel.ReportApproval {
	now := s.now()
	a := &reportDatamodel.ReportApproval{
		ID:                  uuid.NewString(),
		ReportID:            reportID,
		ApproverID:          approverID,
		Status:              string(status),
		ApprovedAmountCents: amount,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if comment != "" {
		a.Comment = &comment
	}
	return a
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func ptr(s string) *string {
	return &s
}

func wrapInternal(err error, msg string) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError(msg, err)
}

package expense

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
	"github.com/wordaddict/finance-sub001/internal/core/events"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

var (
	ErrNotFound         = errors.New("expense not found")
	ErrItemNotFound     = errors.New("expense item not found")
	ErrApprovalNotFound = errors.New("approval not found")

	ErrExpenseNotFound     = internal.NewNotFoundError("expense not found", internal.ErrCodeExpenseNotFound)
	ErrExpenseItemNotFound = internal.NewNotFoundError("expense item not found", internal.ErrCodeExpenseItemNotFound)
	ErrNoApprovalToUndo    = internal.NewNotFoundError("you have no decision on this item to undo", internal.ErrCodeApprovalNotFound)
	ErrInvalidTransition   = internal.NewConflictError("expense status does not allow this action", internal.ErrCodeInvalidExpenseStatus)
	ErrAlreadyPaid         = internal.NewConflictError("expense has already been marked paid", internal.ErrCodeExpenseAlreadyPaid)
	ErrExpenseClosed       = internal.NewConflictError("expense is closed", internal.ErrCodeExpenseClosed)
	ErrItemLocked          = internal.NewConflictError("item decisions are only accepted while the expense is SUBMITTED", internal.ErrCodeInvalidExpenseStatus)
	ErrStaleStatus         = internal.NewConflictError("expense status changed while processing, reload and retry", internal.ErrCodeInvalidExpenseStatus)
	ErrApprovedAmountLimit = internal.NewValidationError("approved amount cannot exceed the item amount", internal.ErrCodeInvalidAmount)
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// StatusUpdate is the set of columns written by a status transition.
type StatusUpdate struct {
	To                  Status
	PaidAt              *time.Time
	ApprovedAmountCents *int64
	ReportRequired      *bool
}

type Repository interface {
	WithinTx(ctx context.Context, fn func(repo Repository) error) error

	Create(ctx context.Context, e *expenseDatamodel.ExpenseRequest, attachments []expenseDatamodel.Attachment) error
	FindByID(ctx context.Context, id string) (*expenseDatamodel.ExpenseRequest, error)
	// LockStatus reads the current status and holds the row until the transaction ends.
	LockStatus(ctx context.Context, id string) (Status, error)
	List(ctx context.Context, requesterID string, status Status, limit, offset int) ([]expenseDatamodel.ExpenseRequest, error)
	// TransitionStatus applies upd only while the row is still in from; it reports false otherwise.
	TransitionStatus(ctx context.Context, id string, from Status, upd StatusUpdate) (bool, error)
	UpdateContent(ctx context.Context, id, title, description string, amountCents int64) error
	UpdateAccount(ctx context.Context, id, account string) error
	UpdateType(ctx context.Context, id, expenseType string) error

	AppendStatusEvent(ctx context.Context, ev *expenseDatamodel.StatusEvent) error
	ListStatusEvents(ctx context.Context, expenseID string) ([]expenseDatamodel.StatusEvent, error)

	UpsertApproval(ctx context.Context, a *expenseDatamodel.Approval) error
	DeleteApprovals(ctx context.Context, expenseID string) error
	ListApprovals(ctx context.Context, expenseID string) ([]expenseDatamodel.Approval, error)

	AddNote(ctx context.Context, n *expenseDatamodel.ExpenseNote) error
	ListNotes(ctx context.Context, expenseID string) ([]expenseDatamodel.ExpenseNote, error)
	AddPastorRemark(ctx context.Context, r *expenseDatamodel.PastorRemark) error
	ListPastorRemarks(ctx context.Context, expenseID string) ([]expenseDatamodel.PastorRemark, error)
	ListAttachments(ctx context.Context, expenseID string) ([]expenseDatamodel.Attachment, error)

	FindItem(ctx context.Context, itemID string) (*expenseDatamodel.ExpenseItem, error)
	UpdateItemCategory(ctx context.Context, itemID, category string) error
	UpsertItemApproval(ctx context.Context, a *expenseDatamodel.ExpenseItemApproval) error
	// DeleteItemApproval removes one approver's row and reports whether it existed.
	DeleteItemApproval(ctx context.Context, itemID, approverID string) (bool, error)
	ListItemApprovals(ctx context.Context, expenseID string) ([]expenseDatamodel.ExpenseItemApproval, error)
}

// ExportReader is the flat read model behind the CSV export.
type ExportReader interface {
	ExportRows(ctx context.Context, filter ExportFilter) ([]ExportRow, error)
}

type ServiceAPI interface {
	Create(ctx context.Context, p *coreuser.Principal, dto CreateExpenseDTO) (*Expense, error)
	Get(ctx context.Context, p *coreuser.Principal, id string) (*Detail, error)
	List(ctx context.Context, p *coreuser.Principal, filter ListFilter) ([]*Expense, error)
	History(ctx context.Context, p *coreuser.Principal, id string) ([]StatusEvent, error)
	AddNote(ctx context.Context, p *coreuser.Principal, dto NoteDTO) (*Note, error)
	AddPastorRemark(ctx context.Context, p *coreuser.Principal, dto PastorRemarkDTO) (*PastorRemark, error)
	Resubmit(ctx context.Context, p *coreuser.Principal, dto ResubmitDTO) (*Expense, error)

	Deny(ctx context.Context, p *coreuser.Principal, dto DenyDTO) (*Expense, error)
	UpdateStatus(ctx context.Context, p *coreuser.Principal, dto UpdateStatusDTO) (*Expense, error)
	RequestChanges(ctx context.Context, p *coreuser.Principal, dto ChangeRequestDTO) (*Expense, error)
	MarkPaid(ctx context.Context, p *coreuser.Principal, id string) (*Expense, error)
	Undo(ctx context.Context, p *coreuser.Principal, id string) (*Expense, error)
	UpdateAccount(ctx context.Context, p *coreuser.Principal, dto UpdateAccountDTO) (*Expense, error)
	UpdateType(ctx context.Context, p *coreuser.Principal, dto UpdateTypeDTO) (*Expense, error)
	Export(ctx context.Context, p *coreuser.Principal, dto ExportDTO) ([]ExportRow, time.Time, error)

	ApproveItem(ctx context.Context, p *coreuser.Principal, dto ApproveItemDTO) (*Item, error)
	DenyItem(ctx context.Context, p *coreuser.Principal, dto ItemCommentDTO) (*Item, error)
	RequestItemChange(ctx context.Context, p *coreuser.Principal, dto ItemCommentDTO) (*Item, error)
	UndoItemApproval(ctx context.Context, p *coreuser.Principal, itemID string) (*Item, error)
	UpdateItemCategory(ctx context.Context, p *coreuser.Principal, dto UpdateCategoryDTO) (*Item, error)
}

// CategoryChecker validates item categories against the managed catalog.
type CategoryChecker interface {
	IsValidCategory(ctx context.Context, name string) (bool, error)
}

type Service struct {
	repo       Repository
	export     ExportReader
	publisher  events.Publisher
	categories CategoryChecker
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(repo Repository, export ExportReader, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		export:    export,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithCategories makes item categories subject to the catalog.
func (s *Service) WithCategories(c CategoryChecker) *Service {
	s.categories = c
	return s
}

// checkCategory passes blank names and everything when no catalog is wired.
func (s *Service) checkCategory(ctx context.Context, name string) error {
	if s.categories == nil || name == "" {
		return nil
	}
	ok, err := s.categories.IsValidCategory(ctx, name)
	if err != nil {
		return internal.NewInternalError("failed to check category", err)
	}
	if !ok {
		return internal.NewValidationFieldError("category", "unknown category "+name, internal.ErrCodeUnknownCategory)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *coreuser.Principal, dto CreateExpenseDTO) (*Expense, error) {
	if err := auth.Authorize(p, auth.CapSubmitExpenses); err != nil {
		return nil, err
	}

	now := s.now()
	row := &expenseDatamodel.ExpenseRequest{
		ID:          uuid.NewString(),
		RequesterID: p.UserID,
		Title:       strings.TrimSpace(dto.Title),
		Description: strings.TrimSpace(dto.Description),
		AmountCents: dto.AmountCents,
		Status:      string(StatusSubmitted),
		Account:     strings.TrimSpace(dto.Account),
		ExpenseType: strings.TrimSpace(dto.ExpenseType),
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, it := range dto.Items {
		if err := s.checkCategory(ctx, strings.TrimSpace(it.Category)); err != nil {
			return nil, err
		}
		row.Items = append(row.Items, expenseDatamodel.ExpenseItem{
			ID:          uuid.NewString(),
			ExpenseID:   row.ID,
			Description: strings.TrimSpace(it.Description),
			Category:    strings.TrimSpace(it.Category),
			AmountCents: it.AmountCents,
			CreatedAt:   now,
		})
	}
	attachments := make([]expenseDatamodel.Attachment, 0, len(dto.Attachments))
	for _, a := range dto.Attachments {
		attachments = append(attachments, expenseDatamodel.Attachment{
			ID:          uuid.NewString(),
			ExpenseID:   row.ID,
			FileName:    strings.TrimSpace(a.FileName),
			URL:         a.URL,
			ContentType: a.ContentType,
			CreatedAt:   now,
		})
	}

	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		if err := repo.Create(ctx, row, attachments); err != nil {
			return err
		}
		return repo.AppendStatusEvent(ctx, newStatusEvent(row.ID, "", StatusSubmitted, p.UserID, "", now))
	})
	if err != nil {
		return nil, internal.NewInternalError("failed to create expense", err)
	}

	s.logger.InfoContext(ctx, "expense submitted", "expense_id", row.ID, "requester_id", p.UserID, "amount_cents", row.AmountCents, "items", len(row.Items))
	s.publish(ctx, events.NewExpenseSubmittedEvent(row.ID, row.Title, row.RequesterID, row.AmountCents))
	return FromDatamodel(row), nil
}

func (s *Service) Get(ctx context.Context, p *coreuser.Principal, id string) (*Detail, error) {
	row, err := s.visible(ctx, p, id)
	if err != nil {
		return nil, err
	}

	exp, err := s.withItemApprovals(ctx, s.repo, row)
	if err != nil {
		return nil, err
	}
	detail := &Detail{Expense: exp}

	approvals, err := s.repo.ListApprovals(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load approvals", err)
	}
	history, err := s.repo.ListStatusEvents(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load history", err)
	}
	notes, err := s.repo.ListNotes(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load notes", err)
	}
	remarks, err := s.repo.ListPastorRemarks(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load pastor remarks", err)
	}
	attachments, err := s.repo.ListAttachments(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load attachments", err)
	}

	detail.Approvals = approvalsFromDatamodel(approvals)
	detail.History = historyFromDatamodel(history)
	detail.Notes = notesFromDatamodel(notes)
	detail.Remarks = remarksFromDatamodel(remarks)
	detail.Attachments = attachmentsFromDatamodel(attachments)
	return detail, nil
}

func (s *Service) List(ctx context.Context, p *coreuser.Principal, filter ListFilter) ([]*Expense, error) {
	if err := auth.Authorize(p, auth.CapSubmitExpenses); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, internal.NewValidationFieldError("status", "status is not a known expense status", internal.ErrCodeInvalidExpenseStatus)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	requesterID := p.UserID
	if !filter.Mine && auth.Can(p, auth.CapViewAllExpenses) {
		requesterID = ""
	}

	rows, err := s.repo.List(ctx, requesterID, filter.Status, filter.Limit, filter.Offset)
	if err != nil {
		return nil, internal.NewInternalError("failed to list expenses", err)
	}
	out := make([]*Expense, 0, len(rows))
	for i := range rows {
		out = append(out, FromDatamodel(&rows[i]))
	}
	return out, nil
}

func (s *Service) History(ctx context.Context, p *coreuser.Principal, id string) ([]StatusEvent, error) {
	if _, err := s.visible(ctx, p, id); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListStatusEvents(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load history", err)
	}
	return historyFromDatamodel(rows), nil
}

func (s *Service) AddNote(ctx context.Context, p *coreuser.Principal, dto NoteDTO) (*Note, error) {
	if _, err := s.visible(ctx, p, dto.ExpenseID); err != nil {
		return nil, err
	}
	note := &expenseDatamodel.ExpenseNote{
		ID:        uuid.NewString(),
		ExpenseID: dto.ExpenseID,
		AuthorID:  p.UserID,
		Body:      strings.TrimSpace(dto.Body),
		CreatedAt: s.now(),
	}
	if err := s.repo.AddNote(ctx, note); err != nil {
		return nil, internal.NewInternalError("failed to add note", err)
	}
	return &notesFromDatamodel([]expenseDatamodel.ExpenseNote{*note})[0], nil
}

func (s *Service) AddPastorRemark(ctx context.Context, p *coreuser.Principal, dto PastorRemarkDTO) (*PastorRemark, error) {
	if err := auth.Authorize(p, auth.CapAddPastorRemark); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, s.repo, dto.ExpenseID); err != nil {
		return nil, err
	}
	remark := &expenseDatamodel.PastorRemark{
		ID:        uuid.NewString(),
		ExpenseID: dto.ExpenseID,
		PastorID:  p.UserID,
		Remark:    strings.TrimSpace(dto.Remark),
		CreatedAt: s.now(),
	}
	if err := s.repo.AddPastorRemark(ctx, remark); err != nil {
		return nil, internal.NewInternalError("failed to add pastor remark", err)
	}
	s.logger.InfoContext(ctx, "pastor remark added", "expense_id", dto.ExpenseID, "pastor_id", p.UserID)
	return &remarksFromDatamodel([]expenseDatamodel.PastorRemark{*remark})[0], nil
}

// Resubmit sends a CHANGE_REQUESTED expense back for review, optionally with corrected content.
func (s *Service) Resubmit(ctx context.Context, p *coreuser.Principal, dto ResubmitDTO) (*Expense, error) {
	if err := auth.Authorize(p, auth.CapSubmitExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, dto.ExpenseID)
	if err != nil {
		return nil, err
	}
	if row.RequesterID != p.UserID {
		s.logger.WarnContext(ctx, "resubmit rejected: not the requester", "expense_id", row.ID, "user_id", p.UserID)
		return nil, internal.ErrForbidden
	}

	title, description, amount := row.Title, row.Description, row.AmountCents
	if dto.Title != nil {
		title = strings.TrimSpace(*dto.Title)
	}
	if dto.Description != nil {
		description = strings.TrimSpace(*dto.Description)
	}
	if dto.AmountCents != nil {
		amount = *dto.AmountCents
	}

	return s.transition(ctx, p, row, transitionPlan{
		action: ActionResubmit,
		update: StatusUpdate{To: StatusSubmitted},
		reason: strings.TrimSpace(dto.Comment),
		before: func(repo Repository) error {
			if err := repo.UpdateContent(ctx, row.ID, title, description, amount); err != nil {
				return err
			}
			row.Title, row.Description, row.AmountCents = title, description, amount
			return repo.DeleteApprovals(ctx, row.ID)
		},
	})
}

func (s *Service) Deny(ctx context.Context, p *coreuser.Principal, dto DenyDTO) (*Expense, error) {
	if err := auth.Authorize(p, auth.CapApproveExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, dto.ExpenseID)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(dto.Reason)

	return s.transition(ctx, p, row, transitionPlan{
		action: ActionDeny,
		update: StatusUpdate{To: StatusDenied},
		reason: reason,
		before: func(repo Repository) error {
			return repo.UpsertApproval(ctx, s.newApproval(row.ID, p.UserID, DecisionDenied, reason))
		},
	})
}

// UpdateStatus records a reviewer verdict on a SUBMITTED expense, or asks for a report on an
// approved or paid one.
func (s *Service) UpdateStatus(ctx context.Context, p *coreuser.Principal, dto UpdateStatusDTO) (*Expense, error) {
	if err := auth.Authorize(p, auth.CapApproveExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, dto.ExpenseID)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(dto.Reason)

	plan := transitionPlan{update: StatusUpdate{To: dto.Status}, reason: reason}
	switch dto.Status {
	case StatusApproved, StatusPartiallyApproved, StatusChangeRequested:
		plan.action = ActionReview
		decision := DecisionApproved
		if dto.Status == StatusChangeRequested {
			decision = DecisionChangeRequested
		}
		plan.before = func(repo Repository) error {
			return repo.UpsertApproval(ctx, s.newApproval(row.ID, p.UserID, decision, reason))
		}
	case StatusExpenseReportRequested:
		plan.action = ActionRequestReport
		required := true
		plan.update.ReportRequired = &required
	default:
		return nil, internal.NewValidationFieldError("status", "status cannot be set directly", internal.ErrCodeInvalidExpenseStatus)
	}

	return s.transition(ctx, p, row, plan)
}

func (s *Service) RequestChanges(ctx context.Context, p *coreuser.Principal, dto ChangeRequestDTO) (*Expense, error) {
	if err := auth.Authorize(p, auth.CapApproveExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, dto.ExpenseID)
	if err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(dto.Comment)

	return s.transition(ctx, p, row, transitionPlan{
		action: ActionChangeRequest,
		update: StatusUpdate{To: StatusChangeRequested},
		reason: comment,
		before: func(repo Repository) error {
			if err := repo.UpsertApproval(ctx, s.newApproval(row.ID, p.UserID, DecisionChangeRequested, comment)); err != nil {
				return err
			}
			return repo.AddNote(ctx, &expenseDatamodel.ExpenseNote{
				ID:        uuid.NewString(),
				ExpenseID: row.ID,
				AuthorID:  p.UserID,
				Body:      comment,
				CreatedAt: s.now(),
			})
		},
	})
}

func (s *Service) MarkPaid(ctx context.Context, p *coreuser.Principal, id string) (*Expense, error) {
	if err := auth.Authorize(p, auth.CapMarkPaid); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if row.PaidAt != nil || Status(row.Status) == StatusPaid {
		s.logger.WarnContext(ctx, "mark paid rejected: already paid", "expense_id", id, "paid_at", row.PaidAt)
		return nil, ErrAlreadyPaid
	}

	exp, err := s.withItemApprovals(ctx, s.repo, row)
	if err != nil {
		return nil, err
	}
	approved := ApprovedAmount(exp)
	paidAt := s.now()

	out, err := s.transition(ctx, p, row, transitionPlan{
		action: ActionMarkPaid,
		update: StatusUpdate{To: StatusPaid, PaidAt: &paidAt, ApprovedAmountCents: &approved},
	})
	if errors.Is(err, ErrStaleStatus) {
		return nil, ErrAlreadyPaid
	}
	return out, err
}

// Undo reverts an APPROVED or DENIED expense to SUBMITTED and discards every expense-level decision.
func (s *Service) Undo(ctx context.Context, p *coreuser.Principal, id string) (*Expense, error) {
	if err := auth.Authorize(p, auth.CapApproveExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, p, row, transitionPlan{
		action: ActionUndo,
		update: StatusUpdate{To: StatusSubmitted},
		reason: "decision undone",
		before: func(repo Repository) error {
			return repo.DeleteApprovals(ctx, row.ID)
		},
	})
}

func (s *Service) UpdateAccount(ctx context.Context, p *coreuser.Principal, dto UpdateAccountDTO) (*Expense, error) {
	return s.updateTag(ctx, p, dto.ExpenseID, "account", func(repo Repository, row *expenseDatamodel.ExpenseRequest) error {
		row.Account = strings.TrimSpace(dto.Account)
		return repo.UpdateAccount(ctx, row.ID, row.Account)
	})
}

func (s *Service) UpdateType(ctx context.Context, p *coreuser.Principal, dto UpdateTypeDTO) (*Expense, error) {
	return s.updateTag(ctx, p, dto.ExpenseID, "expense type", func(repo Repository, row *expenseDatamodel.ExpenseRequest) error {
		row.ExpenseType = strings.TrimSpace(dto.ExpenseType)
		return repo.UpdateType(ctx, row.ID, row.ExpenseType)
	})
}

func (s *Service) updateTag(ctx context.Context, p *coreuser.Principal, id, field string, apply func(Repository, *expenseDatamodel.ExpenseRequest) error) (*Expense, error) {
	if err := auth.Authorize(p, auth.CapManageExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if Status(row.Status) == StatusClosed {
		return nil, ErrExpenseClosed
	}
	if err := apply(s.repo, row); err != nil {
		return nil, internal.NewInternalError("failed to update "+field, err)
	}
	s.logger.InfoContext(ctx, "expense "+field+" updated", "expense_id", id, "actor_id", p.UserID)
	return FromDatamodel(row), nil
}

func (s *Service) Export(ctx context.Context, p *coreuser.Principal, dto ExportDTO) ([]ExportRow, time.Time, error) {
	if err := auth.Authorize(p, auth.CapExportExpenses); err != nil {
		return nil, time.Time{}, err
	}
	if dto.From != nil && dto.To != nil && dto.To.Before(*dto.From) {
		return nil, time.Time{}, internal.NewValidationFieldError("to", "to must not be before from", internal.ErrCodeValidationFailed)
	}

	rows, err := s.export.ExportRows(ctx, ExportFilter{Status: dto.Status, From: dto.From, To: dto.To})
	if err != nil {
		return nil, time.Time{}, internal.NewInternalError("failed to export expenses", err)
	}
	s.logger.InfoContext(ctx, "expenses exported", "rows", len(rows), "actor_id", p.UserID)
	return rows, s.now(), nil
}

type transitionPlan struct {
	action Action
	update StatusUpdate
	reason string
	// before runs inside the transaction ahead of the status write.
	before func(repo Repository) error
}

// transition checks the state machine, then writes the side records, the guarded status update
// and exactly one status event in a single transaction, and publishes after commit.
func (s *Service) transition(ctx context.Context, p *coreuser.Principal, row *expenseDatamodel.ExpenseRequest, plan transitionPlan) (*Expense, error) {
	from := Status(row.Status)
	if !CanTransition(plan.action, from) {
		s.logger.WarnContext(ctx, "expense transition rejected",
			"expense_id", row.ID,
			"action", plan.action,
			"from", from,
			"actor_id", p.UserID)
		return nil, ErrInvalidTransition.WithDetails(map[string]string{"status": string(from), "action": string(plan.action)})
	}

	now := s.now()
	err := s.repo.WithinTx(ctx, func(repo Repository) error {
		if plan.before != nil {
			if err := plan.before(repo); err != nil {
				return err
			}
		}
		ok, err := repo.TransitionStatus(ctx, row.ID, from, plan.update)
		if err != nil {
			return err
		}
		if !ok {
			return ErrStaleStatus
		}
		return repo.AppendStatusEvent(ctx, newStatusEvent(row.ID, from, plan.update.To, p.UserID, plan.reason, now))
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to update expense status")
	}

	row.Status = string(plan.update.To)
	row.UpdatedAt = now
	if plan.update.PaidAt != nil {
		row.PaidAt = plan.update.PaidAt
	}
	if plan.update.ApprovedAmountCents != nil {
		row.ApprovedAmountCents = plan.update.ApprovedAmountCents
	}
	if plan.update.ReportRequired != nil {
		row.ReportRequired = *plan.update.ReportRequired
	}

	s.logger.InfoContext(ctx, "expense status changed",
		"expense_id", row.ID,
		"from", from,
		"to", plan.update.To,
		"actor_id", p.UserID)
	s.publish(ctx, events.NewExpenseStatusChangedEvent(row.ID, row.Title, row.RequesterID, row.AmountCents,
		string(from), string(plan.update.To), p.UserID, plan.reason))
	return FromDatamodel(row), nil
}

// visible loads an expense the caller owns or is allowed to see.
func (s *Service) visible(ctx context.Context, p *coreuser.Principal, id string) (*expenseDatamodel.ExpenseRequest, error) {
	if err := auth.Authorize(p, auth.CapSubmitExpenses); err != nil {
		return nil, err
	}
	row, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if row.RequesterID != p.UserID && !auth.Can(p, auth.CapViewAllExpenses) {
		s.logger.WarnContext(ctx, "unauthorized access to expense", "expense_id", id, "user_id", p.UserID)
		return nil, internal.ErrForbidden
	}
	return row, nil
}

func (s *Service) load(ctx context.Context, repo Repository, id string) (*expenseDatamodel.ExpenseRequest, error) {
	row, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, internal.NewInternalError("failed to load expense", err)
	}
	return row, nil
}

func (s *Service) withItemApprovals(ctx context.Context, repo Repository, row *expenseDatamodel.ExpenseRequest) (*Expense, error) {
	exp := FromDatamodel(row)
	if len(exp.Items) == 0 {
		return exp, nil
	}
	approvals, err := repo.ListItemApprovals(ctx, row.ID)
	if err != nil {
		return nil, internal.NewInternalError("failed to load item approvals", err)
	}
	attachItemApprovals(exp, approvals)
	return exp, nil
}

func (s *Service) newApproval(expenseID, approverID string, decision Decision, comment string) *expenseDatamodel.Approval {
	now := s.now()
	return &expenseDatamodel.Approval{
		ID:         uuid.NewString(),
		ExpenseID:  expenseID,
		ApproverID: approverID,
		Status:     string(decision),
		Comment:    optional(comment),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newStatusEvent(expenseID string, from, to Status, actorID, reason string, at time.Time) *expenseDatamodel.StatusEvent {
	return &expenseDatamodel.StatusEvent{
		ID:         uuid.NewString(),
		ExpenseID:  expenseID,
		FromStatus: string(from),
		ToStatus:   string(to),
		ActorID:    optional(actorID),
		Reason:     optional(reason),
		CreatedAt:  at,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func wrapInternal(err error, msg string) error {
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewInternalError(msg, err)
}

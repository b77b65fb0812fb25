package expense

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/internal/auth"
	expenseDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/expense"
	"github.com/wordaddict/finance-sub001/internal/core/events"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
)

func (s *Service) ApproveItem(ctx context.Context, p *coreuser.Principal, dto ApproveItemDTO) (*Item, error) {
	comment := ""
	if dto.Comment != nil {
		comment = strings.TrimSpace(*dto.Comment)
	}
	return s.decideItem(ctx, p, dto.ItemID, DecisionApproved, comment, dto.ApprovedAmountCents)
}

func (s *Service) DenyItem(ctx context.Context, p *coreuser.Principal, dto ItemCommentDTO) (*Item, error) {
	return s.decideItem(ctx, p, dto.ItemID, DecisionDenied, strings.TrimSpace(dto.Comment), nil)
}

func (s *Service) RequestItemChange(ctx context.Context, p *coreuser.Principal, dto ItemCommentDTO) (*Item, error) {
	return s.decideItem(ctx, p, dto.ItemID, DecisionChangeRequested, strings.TrimSpace(dto.Comment), nil)
}

// UndoItemApproval removes only the caller's own decision on the item.
func (s *Service) UndoItemApproval(ctx context.Context, p *coreuser.Principal, itemID string) (*Item, error) {
	if err := auth.Authorize(p, auth.CapApproveExpenses); err != nil {
		return nil, err
	}
	item, parent, err := s.item(ctx, itemID)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		if err := s.ensureOpen(ctx, repo, p, item, parent); err != nil {
			return err
		}
		removed, err := repo.DeleteItemApproval(ctx, item.ID, p.UserID)
		if err != nil {
			return err
		}
		if !removed {
			return ErrNoApprovalToUndo
		}
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to undo item decision")
	}

	s.logger.InfoContext(ctx, "item decision undone", "item_id", item.ID, "expense_id", parent.ID, "approver_id", p.UserID)
	return s.itemView(ctx, parent, item.ID)
}

func (s *Service) UpdateItemCategory(ctx context.Context, p *coreuser.Principal, dto UpdateCategoryDTO) (*Item, error) {
	if err := auth.Authorize(p, auth.CapManageExpenses); err != nil {
		return nil, err
	}
	item, parent, err := s.item(ctx, dto.ItemID)
	if err != nil {
		return nil, err
	}
	if Status(parent.Status) == StatusClosed {
		return nil, ErrExpenseClosed
	}

	category := strings.TrimSpace(dto.Category)
	if err := s.checkCategory(ctx, category); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemCategory(ctx, item.ID, category); err != nil {
		return nil, internal.NewInternalError("failed to update item category", err)
	}
	s.logger.InfoContext(ctx, "item category updated", "item_id", item.ID, "category", category, "actor_id", p.UserID)
	return s.itemView(ctx, parent, item.ID)
}

func (s *Service) decideItem(ctx context.Context, p *coreuser.Principal, itemID string, decision Decision, comment string, approvedAmount *int64) (*Item, error) {
	if err := auth.Authorize(p, auth.CapApproveExpenses); err != nil {
		return nil, err
	}
	item, parent, err := s.item(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if approvedAmount != nil && *approvedAmount > item.AmountCents {
		return nil, ErrApprovedAmountLimit
	}

	now := s.now()
	approval := &expenseDatamodel.ExpenseItemApproval{
		ID:                  uuid.NewString(),
		ItemID:              item.ID,
		ApproverID:          p.UserID,
		Status:              string(decision),
		Comment:             optional(comment),
		ApprovedAmountCents: approvedAmount,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	err = s.repo.WithinTx(ctx, func(repo Repository) error {
		if err := s.ensureOpen(ctx, repo, p, item, parent); err != nil {
			return err
		}
		return repo.UpsertItemApproval(ctx, approval)
	})
	if err != nil {
		return nil, wrapInternal(err, "failed to record item decision")
	}

	s.logger.InfoContext(ctx, "item decision recorded",
		"item_id", item.ID,
		"expense_id", parent.ID,
		"decision", decision,
		"approver_id", p.UserID)
	s.publish(ctx, events.NewExpenseItemDecidedEvent(parent.ID, item.ID, item.Description, parent.RequesterID,
		string(decision), comment, p.UserID))
	return s.itemView(ctx, parent, item.ID)
}

// ensureOpen locks the parent expense and rejects item decisions once it has left SUBMITTED.
func (s *Service) ensureOpen(ctx context.Context, repo Repository, p *coreuser.Principal, item *expenseDatamodel.ExpenseItem, parent *expenseDatamodel.ExpenseRequest) error {
	status, err := repo.LockStatus(ctx, parent.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrExpenseNotFound
		}
		return err
	}
	if status != StatusSubmitted {
		s.logger.WarnContext(ctx, "item decision rejected: expense not open",
			"item_id", item.ID,
			"expense_id", parent.ID,
			"status", status,
			"actor_id", p.UserID)
		return ErrItemLocked
	}
	return nil
}

func (s *Service) item(ctx context.Context, itemID string) (*expenseDatamodel.ExpenseItem, *expenseDatamodel.ExpenseRequest, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return nil, nil, ErrExpenseItemNotFound
		}
		return nil, nil, internal.NewInternalError("failed to load expense item", err)
	}
	parent, err := s.load(ctx, s.repo, item.ExpenseID)
	if err != nil {
		return nil, nil, err
	}
	return item, parent, nil
}

func (s *Service) itemView(ctx context.Context, parent *expenseDatamodel.ExpenseRequest, itemID string) (*Item, error) {
	fresh, err := s.load(ctx, s.repo, parent.ID)
	if err != nil {
		return nil, err
	}
	exp, err := s.withItemApprovals(ctx, s.repo, fresh)
	if err != nil {
		return nil, err
	}
	for i := range exp.Items {
		if exp.Items[i].ID == itemID {
			return &exp.Items[i], nil
		}
	}
	return nil, ErrExpenseItemNotFound
}

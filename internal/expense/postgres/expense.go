package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	expenseDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/expense"
	"github.com/wordaddict/finance-sub001/internal/expense"
)

// ExpenseRepository implements the expense.Repository interface using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) WithinTx(ctx context.Context, fn func(repo expense.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ExpenseRepository{db: tx})
	})
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expenseDatamodel.ExpenseRequest, attachments []expenseDatamodel.Attachment) error {
	db := r.db.WithContext(ctx)
	if err := db.Create(e).Error; err != nil {
		return err
	}
	if len(attachments) == 0 {
		return nil
	}
	return db.Create(&attachments).Error
}

func (r *ExpenseRepository) LockStatus(ctx context.Context, id string) (expense.Status, error) {
	var e expenseDatamodel.ExpenseRequest
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "status").
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", expense.ErrNotFound
		}
		return "", err
	}
	return expense.Status(e.Status), nil
}

func (r *ExpenseRepository) FindByID(ctx context.Context, id string) (*expenseDatamodel.ExpenseRequest, error) {
	var e expenseDatamodel.ExpenseRequest
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Where("id = ?", id).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// List returns expenses newest first; an empty requesterID lists everyone's.
func (r *ExpenseRepository) List(ctx context.Context, requesterID string, status expense.Status, limit, offset int) ([]expenseDatamodel.ExpenseRequest, error) {
	var rows []expenseDatamodel.ExpenseRequest
	q := r.db.WithContext(ctx).Preload("Items")
	if requesterID != "" {
		q = q.Where("requester_id = ?", requesterID)
	}
	if status != "" {
		q = q.Where("status = ?", string(status))
	}
	err := q.Order("submitted_at DESC").Limit(limit).Offset(offset).Find(&rows).Error
	return rows, err
}

func (r *ExpenseRepository) TransitionStatus(ctx context.Context, id string, from expense.Status, upd expense.StatusUpdate) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(upd.To),
		"updated_at": time.Now(),
	}
	q := r.db.WithContext(ctx).Model(&expenseDatamodel.ExpenseRequest{}).
		Where("id = ? AND status = ?", id, string(from))
	if upd.PaidAt != nil {
		updates["paid_at"] = *upd.PaidAt
		q = q.Where("paid_at IS NULL")
	}
	if upd.ApprovedAmountCents != nil {
		updates["approved_amount_cents"] = *upd.ApprovedAmountCents
	}
	if upd.ReportRequired != nil {
		updates["report_required"] = *upd.ReportRequired
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ExpenseRepository) UpdateContent(ctx context.Context, id, title, description string, amountCents int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"title":        title,
		"description":  description,
		"amount_cents": amountCents,
	})
}

func (r *ExpenseRepository) UpdateAccount(ctx context.Context, id, account string) error {
	return r.update(ctx, id, map[string]interface{}{"account": account})
}

func (r *ExpenseRepository) UpdateType(ctx context.Context, id, expenseType string) error {
	return r.update(ctx, id, map[string]interface{}{"expense_type": expenseType})
}

func (r *ExpenseRepository) update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&expenseDatamodel.ExpenseRequest{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *ExpenseRepository) AppendStatusEvent(ctx context.Context, ev *expenseDatamodel.StatusEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}

// ListStatusEvents returns the audit trail oldest first.
func (r *ExpenseRepository) ListStatusEvents(ctx context.Context, expenseID string) ([]expenseDatamodel.StatusEvent, error) {
	var rows []expenseDatamodel.StatusEvent
	err := r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// UpsertApproval keeps one live decision per (expense, approver).
func (r *ExpenseRepository) UpsertApproval(ctx context.Context, a *expenseDatamodel.Approval) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "expense_id"}, {Name: "approver_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "comment", "approved_amount_cents", "updated_at"}),
	}).Create(a).Error
}

func (r *ExpenseRepository) DeleteApprovals(ctx context.Context, expenseID string) error {
	return r.db.WithContext(ctx).Where("expense_id = ?", expenseID).Delete(&expenseDatamodel.Approval{}).Error
}

func (r *ExpenseRepository) ListApprovals(ctx context.Context, expenseID string) ([]expenseDatamodel.Approval, error) {
	var rows []expenseDatamodel.Approval
	err := r.db.WithContext(ctx).Where("expense_id = ?", expenseID).Order("updated_at ASC").Find(&rows).Error
	return rows, err
}

func (r *ExpenseRepository) AddNote(ctx context.Context, n *expenseDatamodel.ExpenseNote) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *ExpenseRepository) ListNotes(ctx context.Context, expenseID string) ([]expenseDatamodel.ExpenseNote, error) {
	var rows []expenseDatamodel.ExpenseNote
	err := r.db.WithContext(ctx).Where("expense_id = ?", expenseID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *ExpenseRepository) AddPastorRemark(ctx context.Context, rm *expenseDatamodel.PastorRemark) error {
	return r.db.WithContext(ctx).Create(rm).Error
}

func (r *ExpenseRepository) ListPastorRemarks(ctx context.Context, expenseID string) ([]expenseDatamodel.PastorRemark, error) {
	var rows []expenseDatamodel.PastorRemark
	err := r.db.WithContext(ctx).Where("expense_id = ?", expenseID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *ExpenseRepository) ListAttachments(ctx context.Context, expenseID string) ([]expenseDatamodel.Attachment, error) {
	var rows []expenseDatamodel.Attachment
	err := r.db.WithContext(ctx).Where("expense_id = ?", expenseID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *ExpenseRepository) FindItem(ctx context.Context, itemID string) (*expenseDatamodel.ExpenseItem, error) {
	var item expenseDatamodel.ExpenseItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *ExpenseRepository) UpdateItemCategory(ctx context.Context, itemID, category string) error {
	return r.db.WithContext(ctx).Model(&expenseDatamodel.ExpenseItem{}).
		Where("id = ?", itemID).
		Update("category", category).Error
}

// UpsertItemApproval keeps one live decision per (item, approver).
func (r *ExpenseRepository) UpsertItemApproval(ctx context.Context, a *expenseDatamodel.ExpenseItemApproval) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}, {Name: "approver_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "comment", "approved_amount_cents", "updated_at"}),
	}).Create(a).Error
}

func (r *ExpenseRepository) DeleteItemApproval(ctx context.Context, itemID, approverID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("item_id = ? AND approver_id = ?", itemID, approverID).
		Delete(&expenseDatamodel.ExpenseItemApproval{})
	return res.RowsAffected > 0, res.Error
}

func (r *ExpenseRepository) ListItemApprovals(ctx context.Context, expenseID string) ([]expenseDatamodel.ExpenseItemApproval, error) {
	var rows []expenseDatamodel.ExpenseItemApproval
	items := r.db.Model(&expenseDatamodel.ExpenseItem{}).Select("id").Where("expense_id = ?", expenseID)
	err := r.db.WithContext(ctx).
		Where("item_id IN (?)", items).
		Order("updated_at ASC").
		Find(&rows).Error
	return rows, err
}

package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	expenseDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/expense"
	reportDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/report"
	"github.com/wordaddict/finance-sub001/internal/expense"
	"github.com/wordaddict/finance-sub001/internal/report"
)

// ReportRepository implements the report.Repository interface using GORM
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) WithinTx(ctx context.Context, fn func(repo report.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ReportRepository{db: tx})
	})
}

func (r *ReportRepository) Create(ctx context.Context, row *reportDatamodel.ExpenseReport, attachments []reportDatamodel.ReportAttachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return err
		}
		if len(attachments) == 0 {
			return nil
		}
		return tx.Create(&attachments).Error
	})
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*reportDatamodel.ExpenseReport, error) {
	var row reportDatamodel.ExpenseReport
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, report.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *ReportRepository) ListByExpense(ctx context.Context, expenseID string) ([]reportDatamodel.ExpenseReport, error) {
	var rows []reportDatamodel.ExpenseReport
	err := r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ReportRepository) TransitionStatus(ctx context.Context, id string, from, to report.Status, closedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(to),
		"updated_at": time.Now(),
	}
	if closedAt != nil {
		updates["closed_at"] = *closedAt
	}
	res := r.db.WithContext(ctx).Model(&reportDatamodel.ExpenseReport{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpsertApproval keeps one live decision per (report, approver).
func (r *ReportRepository) UpsertApproval(ctx context.Context, a *reportDatamodel.ReportApproval) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "report_id"}, {Name: "approver_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "comment", "approved_amount_cents", "updated_at"}),
	}).Create(a).Error
}

func (r *ReportRepository) DeleteApprovals(ctx context.Context, reportID string) error {
	return r.db.WithContext(ctx).Where("report_id = ?", reportID).Delete(&reportDatamodel.ReportApproval{}).Error
}

func (r *ReportRepository) ListApprovals(ctx context.Context, reportID string) ([]reportDatamodel.ReportApproval, error) {
	var rows []reportDatamodel.ReportApproval
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Order("updated_at ASC").Find(&rows).Error
	return rows, err
}

func (r *ReportRepository) ReplaceApprovedItems(ctx context.Context, reportID string, items []reportDatamodel.ApprovedReportItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("report_id = ?", reportID).Delete(&reportDatamodel.ApprovedReportItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *ReportRepository) ListApprovedItems(ctx context.Context, reportID string) ([]reportDatamodel.ApprovedReportItem, error) {
	var rows []reportDatamodel.ApprovedReportItem
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Order("created_at ASC, id ASC").Find(&rows).Error
	return rows, err
}

func (r *ReportRepository) AddNote(ctx context.Context, n *reportDatamodel.ReportNote) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *ReportRepository) ListNotes(ctx context.Context, reportID string) ([]reportDatamodel.ReportNote, error) {
	var rows []reportDatamodel.ReportNote
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *ReportRepository) ListAttachments(ctx context.Context, reportID string) ([]reportDatamodel.ReportAttachment, error) {
	var rows []reportDatamodel.ReportAttachment
	err := r.db.WithContext(ctx).Where("report_id = ?", reportID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *ReportRepository) FindExpense(ctx context.Context, id string) (*expenseDatamodel.ExpenseRequest, error) {
	var row expenseDatamodel.ExpenseRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, report.ErrExpenseNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *ReportRepository) CloseExpense(ctx context.Context, expenseID string, from expense.Status, ev *expenseDatamodel.StatusEvent) (bool, error) {
	db := r.db.WithContext(ctx)
	res := db.Model(&expenseDatamodel.ExpenseRequest{}).
		Where("id = ? AND status = ?", expenseID, string(from)).
		Updates(map[string]interface{}{
			"status":          string(expense.StatusClosed),
			"report_required": false,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected != 1 {
		return false, nil
	}
	return true, db.Create(ev).Error
}

package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/wordaddict/finance-sub001/internal/expense"
)

// ExportRepository reads the flat CSV rows with sqlx, outside of gorm.
type ExportRepository struct {
	db *sqlx.DB
}

func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportBaseQuery = `SELECT e.id, e.title, u.name AS requester_name, u.email AS requester_email,
	e.amount_cents, e.approved_amount_cents, e.status, e.account, e.expense_type,
	e.submitted_at, e.paid_at
FROM expense_requests e
JOIN users u ON u.id = e.requester_id`

func (r *ExportRepository) ExportRows(ctx context.Context, filter expense.ExportFilter) ([]expense.ExportRow, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		conds = append(conds, "e.status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.From != nil {
		conds = append(conds, "e.submitted_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conds = append(conds, "e.submitted_at <= ?")
		args = append(args, *filter.To)
	}

	query := exportBaseQuery
	if len(conds) > 0 {
		query += "\nWHERE " + strings.Join(conds, " AND ")
	}
	query += "\nORDER BY e.submitted_at DESC"

	rows := []expense.ExportRow{}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return rows, nil
}

package expense

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/wordaddict/finance-sub001/pkg/money"
)

type ExportFilter struct {
	Status Status
	From   *time.Time
	To     *time.Time
}

type ExportRow struct {
	ID                  string     `db:"id"`
	Title               string     `db:"title"`
	RequesterName       string     `db:"requester_name"`
	RequesterEmail      string     `db:"requester_email"`
	AmountCents         int64      `db:"amount_cents"`
	ApprovedAmountCents *int64     `db:"approved_amount_cents"`
	Status              string     `db:"status"`
	Account             string     `db:"account"`
	ExpenseType         string     `db:"expense_type"`
	SubmittedAt         time.Time  `db:"submitted_at"`
	PaidAt              *time.Time `db:"paid_at"`
}

var exportHeader = []string{
	"id", "title", "requester_name", "requester_email", "amount", "approved_amount",
	"status", "account", "expense_type", "submitted_at", "paid_at",
}

// ExportFilename names the attachment after the export time.
func ExportFilename(at time.Time) string {
	return fmt.Sprintf("expenses-%s.csv", at.UTC().Format("20060102-150405"))
}

// WriteCSV renders rows with money as decimal dollars and times in RFC 3339.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, r := range rows {
		paidAt := ""
		if r.PaidAt != nil {
			paidAt = r.PaidAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			r.ID,
			safeCell(r.Title),
			safeCell(r.RequesterName),
			safeCell(r.RequesterEmail),
			money.FormatCents(r.AmountCents),
			money.FormatOptionalCents(r.ApprovedAmountCents),
			r.Status,
			safeCell(r.Account),
			safeCell(r.ExpenseType),
			r.SubmittedAt.UTC().Format(time.RFC3339),
			paidAt,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// safeCell keeps spreadsheet tools from evaluating free text as a formula.
func safeCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}

package postgres_test

import (
	"context"
	"regexp"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordaddict/finance-sub001/internal/expense"
	"github.com/wordaddict/finance-sub001/internal/expense/postgres"
)

var exportColumns = []string{
	"id", "title", "requester_name", "requester_email", "amount_cents", "approved_amount_cents",
	"status", "account", "expense_type", "submitted_at", "paid_at",
}

var _ = Describe("ExportRepository", func() {
	var (
		mock sqlmock.Sqlmock
		repo *postgres.ExportRepository
	)

	BeforeEach(func() {
		db, m, err := sqlmock.New()
		Expect(err).ToNot(HaveOccurred())
		mock = m
		repo = postgres.NewExportRepository(sqlx.NewDb(db, "pgx"))
		DeferCleanup(func() { _ = db.Close() })
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	It("selects every expense when no filter is given", func() {
		// Given
		submitted := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta("FROM expense_requests e\nJOIN users u ON u.id = e.requester_id\nORDER BY e.submitted_at DESC")).
			WillReturnRows(sqlmock.NewRows(exportColumns).
				AddRow("e1", "Chairs", "Lee", "lee@example.org", int64(5000), nil, "SUBMITTED", "", "", submitted, nil))

		// When
		rows, err := repo.ExportRows(context.Background(), expense.ExportFilter{})

		// Then
		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].RequesterEmail).To(Equal("lee@example.org"))
		Expect(rows[0].ApprovedAmountCents).To(BeNil())
		Expect(rows[0].SubmittedAt).To(Equal(submitted))
	})

	It("binds status and date filters as positional parameters", func() {
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		paid := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE e.status = $1 AND e.submitted_at >= $2 AND e.submitted_at <= $3")).
			WithArgs("PAID", from, to).
			WillReturnRows(sqlmock.NewRows(exportColumns).
				AddRow("e2", "Sound board", "Kim", "kim@example.org", int64(90000), int64(85000), "PAID", "Worship", "Equipment", from, paid))

		rows, err := repo.ExportRows(context.Background(), expense.ExportFilter{Status: expense.StatusPaid, From: &from, To: &to})

		Expect(err).ToNot(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(*rows[0].ApprovedAmountCents).To(Equal(int64(85000)))
		Expect(*rows[0].PaidAt).To(Equal(paid))
	})
})

package postgres_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	expenseDatamodel "github.com/wordaddict/finance-sub001/internal/core/datamodel/expense"
	"github.com/wordaddict/finance-sub001/internal/expense"
	"github.com/wordaddict/finance-sub001/internal/expense/postgres"
	"github.com/wordaddict/finance-sub001/internal/testsupport"
)

var _ = Describe("ExpenseRepository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *postgres.ExpenseRepository
		row  *expenseDatamodel.ExpenseRequest
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		db, err = testsupport.NewSQLiteDB()
		Expect(err).ToNot(HaveOccurred())
		repo = postgres.NewExpenseRepository(db)

		requester, err := testsupport.CreateUser(db, "lee@example.org", "LEADER")
		Expect(err).ToNot(HaveOccurred())
		now := time.Now()
		row = &expenseDatamodel.ExpenseRequest{
			ID: uuid.NewString(), RequesterID: requester.ID, Title: "Chairs", AmountCents: 5000,
			Status: string(expense.StatusApproved), SubmittedAt: now, CreatedAt: now, UpdatedAt: now,
		}
		Expect(repo.Create(ctx, row, nil)).To(Succeed())
	})

	It("applies a transition only from the expected status", func() {
		paidAt := time.Now()

		ok, err := repo.TransitionStatus(ctx, row.ID, expense.StatusApproved, expense.StatusUpdate{To: expense.StatusPaid, PaidAt: &paidAt})
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())

		ok, err = repo.TransitionStatus(ctx, row.ID, expense.StatusApproved, expense.StatusUpdate{To: expense.StatusPaid, PaidAt: &paidAt})
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("keeps a single approval per approver", func() {
		approver := uuid.NewString()
		for _, status := range []string{"DENIED", "APPROVED"} {
			now := time.Now()
			Expect(repo.UpsertApproval(ctx, &expenseDatamodel.Approval{
				ID: uuid.NewString(), ExpenseID: row.ID, ApproverID: approver, Status: status, CreatedAt: now, UpdatedAt: now,
			})).To(Succeed())
		}

		approvals, err := repo.ListApprovals(ctx, row.ID)

		Expect(err).ToNot(HaveOccurred())
		Expect(approvals).To(HaveLen(1))
		Expect(approvals[0].Status).To(Equal("APPROVED"))
	})

	It("maps a missing row to ErrNotFound", func() {
		_, err := repo.FindByID(ctx, uuid.NewString())

		Expect(err).To(MatchError(expense.ErrNotFound))
	})

	It("rolls back everything when the transaction callback fails", func() {
		err := repo.WithinTx(ctx, func(tx expense.Repository) error {
			Expect(tx.UpdateAccount(ctx, row.ID, "Missions")).To(Succeed())
			return expense.ErrStaleStatus
		})

		Expect(err).To(MatchError(expense.ErrStaleStatus))
		stored, err := repo.FindByID(ctx, row.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(stored.Account).To(BeEmpty())
	})
})

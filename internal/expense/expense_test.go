package expense_test

import (
	"bytes"
	"encoding/csv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordaddict/finance-sub001/internal/expense"
)

var _ = Describe("CanTransition", func() {
	DescribeTable("state machine",
		func(action expense.Action, from expense.Status, allowed bool) {
			Expect(expense.CanTransition(action, from)).To(Equal(allowed))
		},
		Entry("deny from SUBMITTED", expense.ActionDeny, expense.StatusSubmitted, true),
		Entry("deny from APPROVED", expense.ActionDeny, expense.StatusApproved, false),
		Entry("mark paid from APPROVED", expense.ActionMarkPaid, expense.StatusApproved, true),
		Entry("mark paid from PARTIALLY_APPROVED", expense.ActionMarkPaid, expense.StatusPartiallyApproved, true),
		Entry("mark paid from PAID", expense.ActionMarkPaid, expense.StatusPaid, false),
		Entry("undo from DENIED", expense.ActionUndo, expense.StatusDenied, true),
		Entry("undo from PARTIALLY_APPROVED", expense.ActionUndo, expense.StatusPartiallyApproved, false),
		Entry("report requested from PAID", expense.ActionRequestReport, expense.StatusPaid, true),
		Entry("report requested from SUBMITTED", expense.ActionRequestReport, expense.StatusSubmitted, false),
		Entry("resubmit from CHANGE_REQUESTED", expense.ActionResubmit, expense.StatusChangeRequested, true),
		Entry("close from EXPENSE_REPORT_REQUESTED", expense.ActionCloseFromReport, expense.StatusExpenseReportRequested, true),
		Entry("close from DENIED", expense.ActionCloseFromReport, expense.StatusDenied, false),
	)
})

var _ = Describe("ApprovedAmount", func() {
	amount := func(v int64) *int64 { return &v }
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	It("uses the requested amount when there are no items", func() {
		Expect(expense.ApprovedAmount(&expense.Expense{AmountCents: 700})).To(Equal(int64(700)))
	})

	It("takes the latest approved amount, falls back to the item amount and skips denied items", func() {
		e := &expense.Expense{
			AmountCents: 99999,
			Items: []expense.Item{
				{AmountCents: 4000, Approvals: []expense.ItemApproval{
					{Status: expense.DecisionApproved, ApprovedAmountCents: amount(1000), UpdatedAt: t0},
					{Status: expense.DecisionApproved, ApprovedAmountCents: amount(3000), UpdatedAt: t0.Add(time.Hour)},
				}},
				{AmountCents: 2000, Approvals: []expense.ItemApproval{
					{Status: expense.DecisionApproved, UpdatedAt: t0},
				}},
				{AmountCents: 5000, Approvals: []expense.ItemApproval{
					{Status: expense.DecisionDenied, UpdatedAt: t0},
				}},
				{AmountCents: 600},
			},
		}

		Expect(expense.ApprovedAmount(e)).To(Equal(int64(3000 + 2000 + 0 + 600)))
	})
})

var _ = Describe("WriteCSV", func() {
	It("quotes free text that a spreadsheet would evaluate", func() {
		// Given
		rows := []expense.ExportRow{{
			ID:             "e1",
			Title:          "=HYPERLINK(\"http://evil\")",
			RequesterName:  "+Lee",
			RequesterEmail: "lee@example.org",
			AmountCents:    1250,
			Status:         "PAID",
			Account:        "@ministry",
			ExpenseType:    "-reimbursement",
			SubmittedAt:    time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		}}
		var buf bytes.Buffer

		// When
		Expect(expense.WriteCSV(&buf, rows)).To(Succeed())

		// Then
		records, err := csv.NewReader(&buf).ReadAll()
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[1][1]).To(Equal("'=HYPERLINK(\"http://evil\")"))
		Expect(records[1][2]).To(Equal("'+Lee"))
		Expect(records[1][3]).To(Equal("lee@example.org"))
		Expect(records[1][4]).To(Equal("12.50"))
		Expect(records[1][7]).To(Equal("'@ministry"))
		Expect(records[1][8]).To(Equal("'-reimbursement"))
	})
})

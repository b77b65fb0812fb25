package expense_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordaddict/finance-sub001/internal"
	coreuser "github.com/wordaddict/finance-sub001/internal/core/user"
	"github.com/wordaddict/finance-sub001/internal/expense"
)

type stubExportService struct {
	expense.ServiceAPI
	rows []expense.ExportRow
	at   time.Time
}

func (s *stubExportService) Export(_ context.Context, _ *coreuser.Principal, _ expense.ExportDTO) ([]expense.ExportRow, time.Time, error) {
	return s.rows, s.at, nil
}

var _ = Describe("ExpenseHandler", func() {
	var (
		f       *fixture
		handler *expense.Handler
	)

	BeforeEach(func() {
		f = newFixture()
		handler = expense.NewHandler(f.service)
	})

	post := func(h http.HandlerFunc, p *coreuser.Principal, body interface{}) *httptest.ResponseRecorder {
		payload, err := json.Marshal(body)
		Expect(err).ToNot(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
		if p != nil {
			req = req.WithContext(internal.ContextWithPrincipal(req.Context(), p))
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec
	}

	It("answers 403 to a pastor denying an item and leaves the item untouched", func() {
		// Given
		exp := f.submit(expense.CreateItemDTO{Description: "Snacks", AmountCents: 4000})

		// When
		rec := post(handler.DenyItem, f.pastor, map[string]string{"itemId": exp.Items[0].ID, "comment": "no"})

		// Then
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		var body map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["code"]).To(Equal("FORBIDDEN"))

		detail, err := f.service.Get(f.ctx, f.admin, exp.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(detail.Items[0].Approvals).To(BeEmpty())
	})

	It("answers 401 without a principal", func() {
		rec := post(handler.MarkPaid, nil, map[string]string{"expenseId": "3f7b8d8e-5c43-4a61-9a50-0c6a1f0f7a11"})

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("requires a comment when denying an expense", func() {
		exp := f.submit()

		rec := post(handler.Deny, f.admin, map[string]string{"expenseId": exp.ID, "reason": "   "})

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("COMMENT_REQUIRED"))
	})

	It("rejects malformed ids with field details", func() {
		rec := post(handler.UndoApproval, f.admin, map[string]string{"expenseId": "not-a-uuid"})

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("expenseId"))
	})

	It("answers 400 when marking an expense paid twice", func() {
		exp := f.submit()
		f.approve(exp.ID)

		first := post(handler.MarkPaid, f.admin, map[string]string{"expenseId": exp.ID})
		second := post(handler.MarkPaid, f.admin, map[string]string{"expenseId": exp.ID})

		Expect(first.Code).To(Equal(http.StatusOK))
		Expect(second.Code).To(Equal(http.StatusBadRequest))
		Expect(second.Body.String()).To(ContainSubstring("EXPENSE_ALREADY_PAID"))
	})

	It("streams the export as a csv attachment", func() {
		// Given
		approved := int64(2500)
		stub := &stubExportService{
			at: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
			rows: []expense.ExportRow{{
				ID: "e1", Title: "Chairs, folding", RequesterName: "Lee", RequesterEmail: "lee@example.org",
				AmountCents: 12345, ApprovedAmountCents: &approved, Status: "PAID",
				SubmittedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			}},
		}
		h := expense.NewHandler(stub)
		req := httptest.NewRequest(http.MethodPost, "/api/expenses/export-csv", nil)
		req = req.WithContext(internal.ContextWithPrincipal(req.Context(), f.admin))
		rec := httptest.NewRecorder()

		// When
		h.ExportCSV(rec, req)

		// Then
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/csv"))
		Expect(rec.Header().Get("Content-Disposition")).To(Equal(`attachment; filename="expenses-20240506-070809.csv"`))

		records, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(2))
		Expect(records[0][0]).To(Equal("id"))
		Expect(records[1][1]).To(Equal("Chairs, folding"))
		Expect(records[1][4]).To(Equal("123.45"))
		Expect(records[1][5]).To(Equal("25.00"))
		Expect(records[1][10]).To(BeEmpty())
	})
})

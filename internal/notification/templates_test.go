package notification_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordaddict/finance-sub001/internal/notification"
)

var _ = Describe("Templates", func() {
	var templates *notification.Templates

	BeforeEach(func() {
		var err error
		templates, err = notification.NewTemplates()
		Expect(err).ToNot(HaveOccurred())
	})

	It("renders the expense status template with humanized statuses and dollars", func() {
		subject, body, err := templates.Render(notification.TemplateExpenseStatus, map[string]any{
			"RecipientName": "Grace",
			"Title":         "Youth retreat",
			"AmountCents":   int64(12345),
			"From":          "SUBMITTED",
			"To":            "PARTIALLY_APPROVED",
			"Reason":        "",
			"Link":          "https://example.org/expenses/1",
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(subject).To(Equal(`Expense "Youth retreat" is now partially approved`))
		Expect(body).To(ContainSubstring("$123.45"))
		Expect(body).To(ContainSubstring("from submitted to partially approved"))
		Expect(body).ToNot(ContainSubstring("Comment:"))
	})

	It("includes the comment when one is given", func() {
		_, body, err := templates.Render(notification.TemplateExpenseStatus, map[string]any{
			"RecipientName": "Grace",
			"Title":         "Youth retreat",
			"AmountCents":   int64(100),
			"From":          "SUBMITTED",
			"To":            "DENIED",
			"Reason":        "Missing receipt",
			"Link":          "",
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(body).To(ContainSubstring("Comment: Missing receipt"))
	})

	It("phrases wishlist thanks by pledge kind", func() {
		_, contribution, err := templates.Render(notification.TemplateWishlistThanks, map[string]any{
			"DonorName":   "Ana",
			"ItemName":    "Chairs",
			"Kind":        "contribution",
			"Quantity":    int64(0),
			"AmountCents": int64(6000),
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(contribution).To(ContainSubstring("$60.00"))

		_, confirmation, err := templates.Render(notification.TemplateWishlistThanks, map[string]any{
			"DonorName":   "Ana",
			"ItemName":    "Chairs",
			"Kind":        "confirmation",
			"Quantity":    int64(2),
			"AmountCents": int64(0),
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(confirmation).To(ContainSubstring(`2 x "Chairs"`))
	})

	It("rejects unknown templates", func() {
		_, _, err := templates.Render("nope", nil)
		Expect(err).To(HaveOccurred())
	})
})

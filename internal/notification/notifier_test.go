package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordaddict/finance-sub001/internal/core/events"
	"github.com/wordaddict/finance-sub001/internal/notification"
)

var _ = Describe("Notifier", func() {
	var (
		ctx       context.Context
		mailer    *recordingMailer
		queue     *syncQueue
		directory *fakeDirectory
		notifier  *notification.Notifier
		phone     = "+15550123"
	)

	BeforeEach(func() {
		ctx = context.Background()
		mailer = &recordingMailer{}
		queue = &syncQueue{}
		directory = &fakeDirectory{
			contacts: map[string]notification.Contact{
				"leader-1": {ID: "leader-1", Email: "leader@example.org", Name: "Lee", Phone: &phone},
				"leader-2": {ID: "leader-2", Email: "quiet@example.org", Name: "Quinn"},
			},
			admins: []notification.Contact{{ID: "admin-1", Email: "Admin@Example.org", Name: "Ada"}},
		}
		templates, err := notification.NewTemplates()
		Expect(err).ToNot(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		notifier = notification.NewNotifier(notification.NotifierConfig{
			BaseURL:     "https://finance.example.org/",
			AdminEmails: []string{"admin@example.org", "treasurer@example.org"},
		}, mailer, queue, templates, directory, logger)
	})

	Describe("SendVerificationEmail", func() {
		It("sends synchronously with a verification link", func() {
			err := notifier.SendVerificationEmail(ctx, "new@example.org", "Nia", "tok123")

			Expect(err).ToNot(HaveOccurred())
			Expect(queue.jobs).To(BeEmpty())
			Expect(mailer.Sent()).To(HaveLen(1))
			Expect(mailer.Sent()[0].TextBody).To(ContainSubstring("https://finance.example.org/verify?token=tok123"))
		})

		It("returns the mailer error", func() {
			mailer.err = errors.New("smtp down")

			err := notifier.SendVerificationEmail(ctx, "new@example.org", "Nia", "tok123")

			Expect(err).To(MatchError("smtp down"))
		})
	})

	Describe("HandleExpenseStatusChanged", func() {
		It("queues an email and an sms when the requester has a phone", func() {
			event := events.NewExpenseStatusChangedEvent("exp-1", "Retreat", "leader-1", 5000, "SUBMITTED", "DENIED", "admin-1", "no receipt")

			Expect(notifier.HandleExpenseStatusChanged(ctx, event)).To(Succeed())

			Expect(queue.jobs).To(HaveLen(2))
			Expect(queue.jobs[0].Email.To).To(ConsistOf("leader@example.org"))
			Expect(queue.jobs[0].Email.TextBody).To(ContainSubstring("no receipt"))
			Expect(queue.jobs[1].SMS.To).To(Equal(phone))
		})

		It("queues only an email without a phone", func() {
			event := events.NewExpenseStatusChangedEvent("exp-2", "Snacks", "leader-2", 700, "APPROVED", "PAID", "admin-1", "")

			Expect(notifier.HandleExpenseStatusChanged(ctx, event)).To(Succeed())

			Expect(queue.jobs).To(HaveLen(1))
			Expect(queue.jobs[0].SMS).To(BeNil())
		})

		It("fails for unknown requesters", func() {
			event := events.NewExpenseStatusChangedEvent("exp-3", "X", "ghost", 1, "SUBMITTED", "DENIED", "admin-1", "")

			Expect(notifier.HandleExpenseStatusChanged(ctx, event)).ToNot(Succeed())
			Expect(queue.jobs).To(BeEmpty())
		})
	})

	Describe("HandleUserRegistered", func() {
		It("notifies configured and active admins once each", func() {
			event := events.NewUserRegisteredEvent("u-9", "new@example.org", "Nia")

			Expect(notifier.HandleUserRegistered(ctx, event)).To(Succeed())

			Expect(queue.jobs).To(HaveLen(1))
			Expect(queue.jobs[0].Email.To).To(ConsistOf("admin@example.org", "treasurer@example.org"))
		})
	})

	Describe("HandleWishlistPledged", func() {
		It("thanks the donor", func() {
			event := events.NewWishlistPledgedEvent("item-1", "Chairs", events.PledgeKindContribution, "Ana", "ana@example.org", 0, 6000)

			Expect(notifier.HandleWishlistPledged(ctx, event)).To(Succeed())

			Expect(queue.jobs).To(HaveLen(1))
			Expect(queue.jobs[0].Email.To).To(ConsistOf("ana@example.org"))
			Expect(queue.jobs[0].Email.TextBody).To(ContainSubstring("$60.00"))
		})
	})

	It("rejects events of the wrong type", func() {
		Expect(notifier.HandleReportStatusChanged(ctx, events.NewUserApprovedEvent("u", "e", "n"))).ToNot(Succeed())
	})
})

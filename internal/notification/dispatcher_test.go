package notification_test

import (
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wordaddict/finance-sub001/internal/metrics"
	"github.com/wordaddict/finance-sub001/internal/notification"
)

var _ = Describe("Dispatcher", func() {
	var (
		logger     *slog.Logger
		mailer     *recordingMailer
		sms        *recordingSMS
		dispatcher *notification.Dispatcher
	)

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		mailer = &recordingMailer{}
		sms = &recordingSMS{}
	})

	AfterEach(func() {
		if dispatcher != nil {
			dispatcher.Shutdown()
		}
	})

	It("delivers queued emails and sms through the worker pool", func() {
		// Given
		dispatcher = notification.NewDispatcher(notification.DispatcherConfig{Workers: 2, QueueSize: 10, SendTimeout: time.Second},
			mailer, sms, metrics.New(prometheus.NewRegistry()), logger)

		// When
		Expect(dispatcher.Enqueue(notification.Job{Kind: "a", Email: &notification.Email{To: []string{"a@example.org"}, Subject: "A"}})).To(BeTrue())
		Expect(dispatcher.Enqueue(notification.Job{Kind: "b", SMS: &notification.SMS{To: "+15550100", Body: "B"}})).To(BeTrue())
		dispatcher.Drain()

		// Then
		Expect(mailer.Sent()).To(HaveLen(1))
		Expect(mailer.Sent()[0].Subject).To(Equal("A"))
		Expect(sms.Sent()).To(HaveLen(1))
	})

	It("keeps running when a send fails", func() {
		// Given
		mailer.err = errors.New("smtp unavailable")
		dispatcher = notification.NewDispatcher(notification.DispatcherConfig{Workers: 1, QueueSize: 10},
			mailer, sms, nil, logger)

		// When
		Expect(dispatcher.Enqueue(notification.Job{Kind: "a", Email: &notification.Email{To: []string{"a@example.org"}}})).To(BeTrue())
		Expect(dispatcher.Enqueue(notification.Job{Kind: "b", SMS: &notification.SMS{To: "+15550100"}})).To(BeTrue())
		dispatcher.Drain()

		// Then
		Expect(mailer.Sent()).To(BeEmpty())
		Expect(sms.Sent()).To(HaveLen(1))
	})

	It("drops jobs after shutdown", func() {
		dispatcher = notification.NewDispatcher(notification.DispatcherConfig{Workers: 1, QueueSize: 1}, mailer, sms, nil, logger)
		dispatcher.Shutdown()

		Expect(dispatcher.Enqueue(notification.Job{Kind: "late", Email: &notification.Email{To: []string{"a@example.org"}}})).To(BeFalse())
	})
})

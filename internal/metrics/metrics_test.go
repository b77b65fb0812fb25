package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/wordaddict/finance-sub001/internal/core/events"
)

func TestTransitionsCounted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncTransition("expense", "SUBMITTED", "DENIED")
	m.IncTransition("expense", "SUBMITTED", "DENIED")
	m.IncTransition("expense", "", "SUBMITTED")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("expense", "SUBMITTED", "DENIED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("expense", "none", "SUBMITTED")))
}

func TestNotificationResults(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncNotification("email", nil)
	m.IncNotification("email", errors.New("smtp down"))
	m.IncNotificationDropped("sms")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("email", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("email", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("sms", "dropped")))
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncTransition("expense", "a", "b")
		m.IncNotification("email", nil)
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.ObserveJob("cleanup", time.Second, nil)
	})

	unregistered := New(nil)
	assert.NotPanics(t, func() {
		unregistered.ObserveJob("cleanup", time.Second, errors.New("boom"))
	})
}

func TestSubscribeWorkflowCountsPublishedTransitions(t *testing.T) {
	m := New(prometheus.NewRegistry())
	bus := events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.SubscribeWorkflow(bus)

	ctx := context.Background()
	assert.NoError(t, bus.Publish(ctx, events.NewExpenseStatusChangedEvent("e1", "t", "u1", 100, "APPROVED", "PAID", "a1", "")))
	assert.NoError(t, bus.Publish(ctx, events.NewReportStatusChangedEvent("r1", "e1", "t", "u1", "PENDING", "CLOSED", "a1", "")))
	bus.Wait()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("expense", "APPROVED", "PAID")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("report", "PENDING", "CLOSED")))
}

package metrics

import (
	"context"

	"github.com/wordaddict/finance-sub001/internal/core/events"
)

// SubscribeWorkflow counts status transitions as they are published.
func (m *Metrics) SubscribeWorkflow(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeExpenseSubmitted, func(context.Context, events.Event) error {
		m.IncTransition("expense", "", "SUBMITTED")
		return nil
	})
	bus.Subscribe(events.EventTypeExpenseStatusChanged, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(*events.ExpenseStatusChangedEvent); ok {
			m.IncTransition("expense", ev.From, ev.To)
		}
		return nil
	})
	bus.Subscribe(events.EventTypeReportStatusChanged, func(_ context.Context, e events.Event) error {
		if ev, ok := e.(*events.ReportStatusChangedEvent); ok {
			m.IncTransition("report", ev.From, ev.To)
		}
		return nil
	})
}

// Package metrics registers the Prometheus collectors used across the service.
// Every method is nil-safe so callers never need to check whether metrics are enabled.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	jobDuration   *prometheus.HistogramVec
	jobRuns       *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Status transitions applied, by entity and target status.",
		}, []string{"entity", "from", "to"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification deliveries by channel and result.",
		}, []string{"channel", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Duration of scheduled jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Scheduled job executions by result.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.transitions, m.notifications, m.httpRequests, m.httpDuration, m.jobDuration, m.jobRuns)
	return m
}

func (m *Metrics) IncTransition(entity, from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(entity, normalize(from), normalize(to)).Inc()
}

func (m *Metrics) IncNotification(channel string, err error) {
	if m == nil || m.notifications == nil {
		return
	}
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.notifications.WithLabelValues(normalize(channel), result).Inc()
}

func (m *Metrics) IncNotificationDropped(channel string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalize(channel), "dropped").Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalize(route)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) ObserveJob(job string, duration time.Duration, err error) {
	if m == nil || m.jobRuns == nil {
		return
	}
	job = normalize(job)
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}

func normalize(label string) string {
	if label == "" {
		return "none"
	}
	return label
}

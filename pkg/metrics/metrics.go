package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"}, // outcome: ok, duplicate, invalid_signature, parse_error, persist_error
	)

	BookingsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Bookings materialized from checkout events",
		},
	)

	// Booking persistence failures mean money was captured with no record.
	// This counter is the operator alert surface, paired with alert=true logs.
	BookingPersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_persist_failures_total",
			Help: "Booking inserts that failed after a paid checkout event",
		},
	)

	DispatchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_dispatch_latency_ms",
			Help:    "Email provider dispatch latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"kind", "status"},
	)

	ScanSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_notifications_sent_total",
			Help: "Notifications sent by the trigger scanner",
		},
		[]string{"trigger"},
	)

	ScanErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scan_errors_total",
			Help: "Per-booking dispatch failures during scans",
		},
		[]string{"trigger"},
	)

	AutomationExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_executions_total",
			Help: "Automation rule evaluations by status",
		},
		[]string{"status"}, // status: success, error, skipped
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

// RecordWebhookEvent records a webhook event outcome.
func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordDispatchLatency records an email dispatch attempt.
func RecordDispatchLatency(kind, status string, duration time.Duration) {
	DispatchLatency.WithLabelValues(kind, status).Observe(float64(duration.Milliseconds()))
}

// RecordHTTPRequestDuration records an HTTP request.
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

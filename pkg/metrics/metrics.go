// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// InvitationOutcomes counts invitation handshake results by operation and outcome.
	InvitationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_invitation_outcomes_total",
			Help: "Invitation operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	// ConflictRetries counts units of work re-run after a uniqueness conflict.
	ConflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_conflict_retries_total",
			Help: "Units of work retried after a concurrent uniqueness conflict",
		},
	)

	// BlockOperations counts block and unblock calls.
	BlockOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_block_operations_total",
			Help: "Block registry operations by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// NotificationsTotal tracks notification deliveries.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_total",
			Help: "Notifications dispatched by kind and status",
		},
		[]string{"kind", "status"},
	)

	// MessagesTotal tracks messages appended to conversations.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total messages stored",
		},
		[]string{"kind"},
	)

	// WebsocketConnectionsActive tracks open websocket sessions on this instance.
	WebsocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, duration float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordInvitation records the outcome of an invitation operation.
func RecordInvitation(operation, outcome string) {
	InvitationOutcomes.WithLabelValues(operation, outcome).Inc()
}

// RecordNotification records a notification delivery attempt.
func RecordNotification(kind string, ok bool) {
	status := "sent"
	if !ok {
		status = "failed"
	}
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}

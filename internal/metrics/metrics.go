// Package metrics provides Prometheus metrics collection for the chat backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocketConnections tracks the current number of active WebSocket connections
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ychat_websocket_connections_total",
		Help: "Current number of active WebSocket connections",
	})

	// AuthenticatedSessions tracks the current number of authenticated sessions
	AuthenticatedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ychat_authenticated_sessions_total",
		Help: "Current number of authenticated WebSocket sessions",
	})

	// MessagesReceived tracks the total number of frames received from clients
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ychat_messages_received_total",
		Help: "Total number of message frames received from clients",
	})

	// MessagesSent tracks the total number of messages persisted and acked
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ychat_messages_sent_total",
		Help: "Total number of messages persisted and acknowledged to senders",
	})

	// MessagesDelivered tracks the total number of messages pushed to online receivers
	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ychat_messages_delivered_total",
		Help: "Total number of messages pushed to online receivers",
	})

	// DeliveryFailures tracks pushes that could not be enqueued to the receiver
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ychat_delivery_failures_total",
		Help: "Total number of failed pushes to online receivers",
	})

	// MessageErrors tracks the total number of message processing errors
	MessageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ychat_message_errors_total",
		Help: "Total number of message processing errors",
	})

	// AuthFailures tracks the total number of failed authentication attempts
	AuthFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ychat_auth_failures_total",
		Help: "Total number of failed WebSocket authentication attempts",
	})

	// SessionsSuperseded tracks connections closed because the user reconnected
	SessionsSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ychat_sessions_superseded_total",
		Help: "Total number of sessions closed by a newer connection for the same user",
	})

	// HistoryRequestDuration tracks the latency of chat history queries
	HistoryRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ychat_history_request_duration_seconds",
		Help:    "Latency of chat history queries in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// StoreErrors tracks the total number of message store failures
	StoreErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ychat_store_errors_total",
		Help: "Total number of message store failures",
	})
)

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ridehub"

var (
	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_transitions_total", Help: "Ride transition attempts by target status and outcome"},
		[]string{"status", "outcome"},
	)
	RidesBookedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rides_booked_total", Help: "Total number of rides booked"})

	PresenceConnections = promauto.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "presence_connections", Help: "Users with a registered live connection on this instance"})
	NotificationsTotal  = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Real-time notifications by event and delivery result"},
		[]string{"event", "result"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_published_total", Help: "Ride events written to the event stream by result"},
		[]string{"result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Notification results.
const (
	ResultDelivered = "delivered"
	ResultRelayed   = "relayed"
	ResultDropped   = "dropped"
	ResultFailed    = "failed"
)

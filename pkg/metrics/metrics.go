package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harborlane_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AuthzDecisions counts authorization gate evaluations and their outcome (allowed|denied|error).
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harborlane_authz_decisions_total",
			Help: "Total number of authorization gate decisions",
		},
		[]string{"action", "result"},
	)

	// MembershipTransitions counts lifecycle transitions by scope type, transition and outcome.
	MembershipTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harborlane_membership_transitions_total",
			Help: "Total number of membership lifecycle transitions",
		},
		[]string{"scope", "transition", "result"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harborlane_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harborlane_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

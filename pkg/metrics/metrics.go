// pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operational counters for the honeypot. Exposed on the reporting surface's
// /metrics endpoint.
var (
	ConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirage_connections_total",
		Help: "Accepted attacker connections.",
	})

	ConnectionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirage_connections_rejected_total",
		Help: "Connections dropped at the concurrency limit.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mirage_active_sessions",
		Help: "Currently open attacker sessions.",
	})

	AuthAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirage_auth_attempts_total",
		Help: "Credential submissions captured.",
	})

	CommandsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mirage_commands_total",
		Help: "Shell commands received across all sessions.",
	})

	ProfilesAssigned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirage_profiles_assigned_total",
		Help: "End-of-session classifications by label.",
	}, []string{"label"})

	DeceptionDelaySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mirage_deception_delay_seconds",
		Help:    "Tarpit delays injected before command execution.",
		Buckets: prometheus.LinearBuckets(2.0, 0.5, 7),
	})
)

// Package metrics holds the Prometheus collectors for access decisions,
// logins and HTTP traffic.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AccessDecisionsTotal counts access policy outcomes by decision.
	AccessDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webguard_access_decisions_total",
			Help: "Access policy decisions",
		},
		[]string{"decision"},
	)

	// LoginAttemptsTotal counts login attempts by result (success, failure, error).
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webguard_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"result"},
	)

	// RequestsTotal counts HTTP requests by method and status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webguard_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request latency in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webguard_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		AccessDecisionsTotal,
		LoginAttemptsTotal,
		RequestsTotal,
		RequestDuration,
	)
}

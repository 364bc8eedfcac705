// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for request metrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeInternal = "internal_error"
	OutcomeInvalid  = "invalid_json"
)

// Requests counts handled requests by action and outcome.
var Requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "userauth_requests_total",
		Help: "Total number of handled requests by action and outcome",
	},
	[]string{"action", "outcome"},
)

// RequestDuration observes handler latency by action.
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "userauth_request_duration_seconds",
		Help:    "Request handling duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"action"},
)

// RegisterMetrics registers the dispatch metrics with reg. Panics if
// registration fails.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Requests)
	reg.MustRegister(RequestDuration)
}

func recordRequest(action, outcome string, elapsed time.Duration) {
	Requests.WithLabelValues(action, outcome).Inc()
	RequestDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

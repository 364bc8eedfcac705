// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package line

import "github.com/prometheus/client_golang/prometheus"

// Connections counts accepted TCP connections.
var Connections = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "userauth_line_connections_total",
	Help: "Total number of accepted line-protocol connections",
})

// RegisterMetrics registers the transport metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Connections)
}

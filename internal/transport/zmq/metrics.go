// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package zmq

import "github.com/prometheus/client_golang/prometheus"

// Messages counts requests received on the REP socket.
var Messages = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "userauth_zmq_messages_total",
	Help: "Total number of messages received on the ZeroMQ socket",
})

// RegisterMetrics registers the transport metrics with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Messages)
}

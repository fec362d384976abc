// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package httpapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Requests counts HTTP requests by route template, method and status.
var Requests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_http_requests_total",
		Help: "Total number of HTTP requests by route, method and status",
	},
	[]string{"route", "method", "status"},
)

// RequestDuration is the histogram for HTTP request latency.
var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authd_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

// RegisterMetrics registers the HTTP metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Requests)
	reg.MustRegister(RequestDuration)
}

func recordRequest(route, method string, status int, elapsed time.Duration) {
	Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK is the outcome label for successful operations. Failed
// operations use their error code.
const OutcomeOK = "ok"

// Operation names used as metric labels.
const (
	OpRegister       = "register"
	OpFindByEmail    = "find_by_email"
	OpAuthenticate   = "authenticate"
	OpResolveSession = "resolve_session"
	OpResetPassword  = "reset_password"
)

// AccountOperations counts account operations by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var AccountOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authd_account_operations_total",
		Help: "Total number of account operations by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

// AccountOperationDuration is the histogram for account operation latency.
// Use RegisterMetrics to register this with a Prometheus registry.
var AccountOperationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "authd_account_operation_duration_seconds",
		Help:    "Account operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AccountOperations)
	reg.MustRegister(AccountOperationDuration)
}

// recordOperation records the outcome and latency of one operation.
func recordOperation(operation string, start time.Time, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = ErrorCode(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	AccountOperations.WithLabelValues(operation, outcome).Inc()
	AccountOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

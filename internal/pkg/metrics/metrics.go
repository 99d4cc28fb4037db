// Package metrics defines and registers all custom Prometheus metrics for the
// IncidentHub authentication gateway. It is the single source of truth for
// metric names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto); the HTTP-level request metrics come from the
// echoprometheus middleware wired in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authgw"

// ── Gateway metrics ───────────────────────────────────────────────────────────

// RegisterTotal counts registration attempts.
// Label:
//   - outcome: "success", "invalid_input", "downstream_error" or "error"
var RegisterTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "register_total",
		Help:      "Total number of registration attempts, by outcome.",
	},
	[]string{"outcome"},
)

// LoginTotal counts login attempts.
// Label:
//   - outcome: "success", "invalid_input", "user_not_found", "invalid_credentials",
//     "locked", "downstream_error" or "error"
var LoginTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_total",
		Help:      "Total number of login attempts, by outcome.",
	},
	[]string{"outcome"},
)

// ── Token metrics ─────────────────────────────────────────────────────────────

// TokenValidationsTotal counts bearer token validations performed by the
// request authenticator.
// Label:
//   - result: "valid", "malformed", "invalid_signature" or "expired"
var TokenValidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_validations_total",
		Help:      "Total number of bearer token validations, by result.",
	},
	[]string{"result"},
)

// ── Directory metrics ─────────────────────────────────────────────────────────

// DirectoryRequestDuration measures outbound calls to the user directory.
// Labels:
//   - operation: "create" or "find_by_username"
//   - status: HTTP status code, or "error" when no response was received
var DirectoryRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "directory_request_duration_seconds",
		Help:      "Duration of requests to the user directory service.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"operation", "status"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditEventsDroppedTotal counts audit events discarded because a worker
// channel was full.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of audit events dropped because the queue was full.",
	},
)

// AuditWriteErrorsTotal counts audit events that failed to persist.
var AuditWriteErrorsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_write_errors_total",
		Help:      "Total number of audit events that could not be written to storage.",
	},
)

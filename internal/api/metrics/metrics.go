// Package metrics defines and registers all custom Prometheus metrics for the
// recycling deposit API. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry at import time via
// promauto, so importing this package from the server wiring is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rvm"

// ── Deposit metrics ───────────────────────────────────────────────────────────

// DepositsCreatedTotal counts accepted deposits.
// Label:
//   - material: canonical material name (e.g. "Plastic")
var DepositsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deposits_created_total",
		Help:      "Total number of deposits accepted, by material.",
	},
	[]string{"material"},
)

// DepositsRejectedTotal counts deposits turned away before reaching the ledger.
// Label:
//   - reason: "invalid_weight", "duplicate", "daily_limit", "velocity_limit",
//     "machine_capacity", "unknown_material", "unknown_machine"
var DepositsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deposits_rejected_total",
		Help:      "Total number of rejected deposit submissions, by reason.",
	},
	[]string{"reason"},
)

// DepositWeightKg observes the weight of each accepted deposit.
var DepositWeightKg = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "deposit_weight_kg",
		Help:      "Weight distribution of accepted deposits in kilograms.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditRunsTotal counts aggregate audit checks.
// Label:
//   - result: "consistent", "repaired", or "error"
var AuditRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_runs_total",
		Help:      "Total number of per-user aggregate audits, by result.",
	},
	[]string{"result"},
)

// AuditQueueDepth tracks the number of audit jobs waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit jobs pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeOK       = "ok"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// LedgerMetrics counts stock mutations by operation and outcome.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_ledger_operations_total",
		Help: "Stock ledger operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockledger_ledger_operation_duration_seconds",
		Help:    "Duration of stock ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(operations, duration)
	return &LedgerMetrics{operations: operations, duration: duration}
}

// Observe records one finished operation.
func (l *LedgerMetrics) Observe(operation, outcome string, elapsed time.Duration) {
	if l == nil || l.operations == nil {
		return
	}
	op := normalizeLabel(operation)
	l.operations.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	l.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

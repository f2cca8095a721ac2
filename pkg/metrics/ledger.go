package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts ledger-side accounting activity.
type LedgerMetrics struct {
	accruals    *prometheus.CounterVec
	commissions *prometheus.CounterVec
	sweepErrors prometheus.Counter
}

// NewLedgerMetrics registers accounting counters on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	accruals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_accruals_total",
		Help: "Daily earning accruals by outcome.",
	}, []string{"outcome"})
	commissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_commissions_total",
		Help: "Affiliate commissions created, by level.",
	}, []string{"level"})
	sweepErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sweep_failures_total",
		Help: "Per-purchase failures during accrual sweeps.",
	})
	reg.MustRegister(accruals, commissions, sweepErrors)
	return &LedgerMetrics{
		accruals:    accruals,
		commissions: commissions,
		sweepErrors: sweepErrors,
	}
}

// IncAccrual records one accrual attempt by outcome label.
func (l *LedgerMetrics) IncAccrual(outcome string) {
	if l == nil || l.accruals == nil {
		return
	}
	l.accruals.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCommission records a created commission for the given level.
func (l *LedgerMetrics) IncCommission(level string) {
	if l == nil || l.commissions == nil {
		return
	}
	l.commissions.WithLabelValues(normalizeLabel(level)).Inc()
}

// IncSweepFailure records one isolated per-purchase sweep failure.
func (l *LedgerMetrics) IncSweepFailure() {
	if l == nil || l.sweepErrors == nil {
		return
	}
	l.sweepErrors.Inc()
}

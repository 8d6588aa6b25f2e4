package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private prometheus registry and the wagering instruments
type Metrics struct {
	registry *prometheus.Registry

	gameTransitions   *prometheus.CounterVec
	ledgerEntries     *prometheus.CounterVec
	ledgerAmount      *prometheus.CounterVec
	txRetries         *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	balanceCache      *prometheus.CounterVec
	balanceDrift      prometheus.Counter
	reconcileRuns     *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gameTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "game_transitions_total",
			Help:      "Games entering each status",
		}, []string{LabelStatus}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ledger_entries_total",
			Help:      "Ledger entries written by reason",
		}, []string{LabelReason}),
		ledgerAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ledger_amount_total",
			Help:      "Units moved through the ledger by reason",
		}, []string{LabelReason}),
		txRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "tx_retries_total",
			Help:      "Units of work retried after a write conflict",
		}, []string{LabelOperation}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of wagering operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{LabelOperation, LabelOutcome}),
		balanceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "balance_cache_lookups_total",
			Help:      "Balance cache lookups by result",
		}, []string{LabelResult}),
		balanceDrift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "balance_cache_drift_total",
			Help:      "Cached balances found different from the ledger during reconciliation",
		}),
		reconcileRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconcile_runs_total",
			Help:      "Balance reconciliation runs",
		}, []string{LabelOutcome}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.gameTransitions,
		m.ledgerEntries,
		m.ledgerAmount,
		m.txRetries,
		m.operationDuration,
		m.balanceCache,
		m.balanceDrift,
		m.reconcileRuns,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordTransition(status string) {
	m.gameTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordLedgerEntry(reason string, amount int64) {
	m.ledgerEntries.WithLabelValues(reason).Inc()
	m.ledgerAmount.WithLabelValues(reason).Add(float64(amount))
}

func (m *Metrics) RecordRetry(operation string) {
	m.txRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordOperation(operation, outcome string, elapsed time.Duration) {
	m.operationDuration.WithLabelValues(operation, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordCacheLookup(result string) {
	m.balanceCache.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordDrift(n int) {
	m.balanceDrift.Add(float64(n))
}

func (m *Metrics) RecordReconcile(outcome string) {
	m.reconcileRuns.WithLabelValues(outcome).Inc()
}

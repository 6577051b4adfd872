// Package metrics exposes the service's Prometheus collectors. Every method
// is safe to call on a nil *Metrics, which is how metrics are disabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	subsystemHTTP   = "http"
	subsystemLedger = "ledger"
)

type Metrics struct {
	registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	transactions      *prometheus.CounterVec
	transactionAmount *prometheus.CounterVec
	transitions       *prometheus.CounterVec
	reversals         *prometheus.CounterVec
	conflicts         prometheus.Counter
	overrides         prometheus.Counter
	drift             prometheus.Counter
}

// New builds a registry with Go runtime collectors and the ledger metrics.
func New(namespace, env string) *Metrics {
	constLabels := prometheus.Labels{"env": env}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystemHTTP,
			Name:        "request_duration_seconds",
			Help:        "HTTP request latency by route and status.",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystemLedger,
			Name:        "transactions_total",
			Help:        "Transactions recorded, by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		transactionAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystemLedger,
			Name:        "transaction_amount_total",
			Help:        "Sum of recorded transaction amounts, by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystemLedger,
			Name:        "status_transitions_total",
			Help:        "Transaction status transitions, by target status.",
			ConstLabels: constLabels,
		}, []string{"kind", "to"}),
		reversals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystemLedger,
			Name:        "reversals_total",
			Help:        "Deleted transactions, by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystemLedger,
			Name:        "balance_conflicts_total",
			Help:        "Balance writes that lost a version compare-and-swap.",
			ConstLabels: constLabels,
		}),
		overrides: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystemLedger,
			Name:        "balance_overrides_total",
			Help:        "Direct total due writes made outside the ledger rule.",
			ConstLabels: constLabels,
		}),
		drift: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystemLedger,
			Name:        "balance_drift_detected_total",
			Help:        "Reconciliations where the stored due differed from the replayed due.",
			ConstLabels: constLabels,
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.transactions,
		m.transactionAmount,
		m.transitions,
		m.reversals,
		m.conflicts,
		m.overrides,
		m.drift,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}

func (m *Metrics) TransactionRecorded(kind string, amount float64) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(kind).Inc()
	m.transactionAmount.WithLabelValues(kind).Add(amount)
}

func (m *Metrics) StatusChanged(kind, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind, to).Inc()
}

func (m *Metrics) TransactionReversed(kind string) {
	if m == nil {
		return
	}
	m.reversals.WithLabelValues(kind).Inc()
}

func (m *Metrics) BalanceConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Metrics) BalanceOverridden() {
	if m == nil {
		return
	}
	m.overrides.Inc()
}

func (m *Metrics) DriftDetected() {
	if m == nil {
		return
	}
	m.drift.Inc()
}

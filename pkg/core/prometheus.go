package core

import (
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	// registeredQueries prometheus metric.
	registeredQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of registered queries",
			Name:      "registered_queries_total",
			Namespace: "bridge",
		},
	)
	// fulfilledQueries prometheus metric.
	fulfilledQueries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of fulfilled queries",
			Name:      "fulfilled_queries_total",
			Namespace: "bridge",
		},
	)
	// rejectedFulfillments prometheus metric.
	rejectedFulfillments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of rejected fulfillment attempts",
			Name:      "rejected_fulfillments_total",
			Namespace: "bridge",
		},
		[]string{"reason"},
	)
	// pendingQueries prometheus metric.
	pendingQueries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Help:      "Current number of pending queries",
			Name:      "pending_queries",
			Namespace: "bridge",
		},
	)
	// committedTransactions prometheus metric.
	committedTransactions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of committed transactions",
			Name:      "committed_transactions_total",
			Namespace: "bridge",
		},
	)
)

func init() {
	prometheus.MustRegister(
		registeredQueries,
		fulfilledQueries,
		rejectedFulfillments,
		pendingQueries,
		committedTransactions,
	)
}

func updatePendingMetric(n int) {
	pendingQueries.Set(float64(n))
}

func updateCommitMetrics(evs []*state.ContainedNotificationEvent) {
	committedTransactions.Inc()
	for _, ev := range evs {
		switch ev.Name {
		case state.LogEventName:
			registeredQueries.Inc()
			pendingQueries.Inc()
		case state.LogResultEventName:
			fulfilledQueries.Inc()
			pendingQueries.Dec()
		}
	}
}

func updateRejectedMetric(reason string) {
	rejectedFulfillments.WithLabelValues(reason).Inc()
}

package oracle

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics for monitoring service.
var (
	// servedRequests prometheus metric.
	servedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Help:      "Number of queries fulfilled by the oracle service",
			Name:      "served_requests_total",
			Namespace: "bridge",
			Subsystem: "oracle",
		},
		[]string{"status"},
	)
	// requestTimes prometheus metric.
	requestTimes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Help:      "Time spent serving a query including retries",
			Name:      "request_time",
			Namespace: "bridge",
			Subsystem: "oracle",
		},
	)
	// fulfillErrors prometheus metric.
	fulfillErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      "Number of failed fulfill calls",
			Name:      "fulfill_errors_total",
			Namespace: "bridge",
			Subsystem: "oracle",
		},
	)
)

func init() {
	prometheus.MustRegister(
		servedRequests,
		requestTimes,
		fulfillErrors,
	)
}

func updateRequestMetrics(status uint32, took time.Duration) {
	servedRequests.WithLabelValues(strconv.FormatUint(uint64(status), 10)).Inc()
	requestTimes.Observe(took.Seconds())
}

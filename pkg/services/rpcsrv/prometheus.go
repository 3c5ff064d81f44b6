package rpcsrv

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics used in monitoring service.
var (
	rpcTimes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Help:      "RPC call handling time",
			Name:      "rpc_call_time",
			Namespace: "bridge",
		},
		[]string{"method"},
	)
)

func addReqTimeMetric(name string, t time.Duration) {
	_, ok := rpcHandlers[name]
	if !ok {
		_, ok = rpcWsHandlers[name]
	}
	if ok {
		rpcTimes.WithLabelValues(name).Observe(t.Seconds())
	}
}

func init() {
	prometheus.MustRegister(rpcTimes)
}

package metrics

import (
	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewPrometheusService creates a new service exposing all metrics registered
// in the default prometheus registry at /metrics.
func NewPrometheusService(cfg config.BasicService, log *zap.Logger) *Service {
	if log == nil {
		return nil
	}
	handler := promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:      zap.NewStdLog(log.Named("prometheus")),
			ErrorHandling: promhttp.ContinueOnError,
		}))
	return NewService("Prometheus", newServers(cfg, handler), cfg, log)
}

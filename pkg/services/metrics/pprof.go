package metrics

import (
	"net/http"
	"net/http/pprof"

	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"go.uber.org/zap"
)

// NewPprofService creates a new service serving runtime profiles, see
// https://golang.org/pkg/net/http/pprof/.
func NewPprofService(cfg config.BasicService, log *zap.Logger) *Service {
	if log == nil {
		return nil
	}

	handler := http.NewServeMux()
	handler.HandleFunc("/debug/pprof/", pprof.Index)
	handler.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	handler.HandleFunc("/debug/pprof/profile", pprof.Profile)
	handler.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	handler.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return NewService("Pprof", newServers(cfg, handler), cfg, log)
}

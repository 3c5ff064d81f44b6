package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const readHeaderTimeout = 5 * time.Second

// Service serves metrics.
type Service struct {
	http        []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string
	started     *atomic.Bool
}

// NewService configures logger and returns new service instance.
func NewService(name string, httpServers []*http.Server, cfg config.BasicService, log *zap.Logger) *Service {
	return &Service{
		http:        httpServers,
		config:      cfg,
		serviceType: name,
		log:         log.With(zap.String("service", name)),
		started:     atomic.NewBool(false),
	}
}

// newServers creates an HTTP server per configured address, all sharing the
// handler.
func newServers(cfg config.BasicService, handler http.Handler) []*http.Server {
	addrs := cfg.GetAddresses()
	srvs := make([]*http.Server, len(addrs))
	for i, addr := range addrs {
		srvs[i] = &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}
	return srvs
}

// Name returns service name.
func (ms *Service) Name() string {
	return ms.serviceType
}

// Start runs http service with the exposed endpoint on the configured port.
// Listening errors are logged, they don't stop the node.
func (ms *Service) Start() {
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return
	}
	if !ms.started.CompareAndSwap(false, true) {
		ms.log.Info("service already started")
		return
	}
	for _, srv := range ms.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			ms.log.Error("failed to listen", zap.String("endpoint", srv.Addr), zap.Error(err))
			continue
		}
		srv.Addr = ln.Addr().String() // Update Addr if :0 was used.
		ms.log.Info("starting service", zap.String("endpoint", srv.Addr))
		go func(srv *http.Server, ln net.Listener) {
			err := srv.Serve(ln)
			if !errors.Is(err, http.ErrServerClosed) {
				ms.log.Error("failed to start service", zap.String("endpoint", srv.Addr), zap.Error(err))
			}
		}(srv, ln)
	}
}

// Addresses returns the list of addresses the service is bound to.
func (ms *Service) Addresses() []string {
	res := make([]string, 0, len(ms.http))
	for _, srv := range ms.http {
		res = append(res, srv.Addr)
	}
	return res
}

// ShutDown stops the service.
func (ms *Service) ShutDown() {
	if !ms.config.Enabled {
		return
	}
	if !ms.started.CompareAndSwap(true, false) {
		return
	}
	for _, srv := range ms.http {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		err := srv.Shutdown(context.Background())
		if err != nil {
			ms.log.Error("can't shut service down", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
	_ = ms.log.Sync()
}

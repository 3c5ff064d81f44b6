/*
Package rpcsrv implements the bridge JSON-RPC 2.0 server. Plain calls are
served over HTTP POST, /ws upgrades the connection to a websocket that also
accepts subscribe/unsubscribe and receives bridge events.
*/
package rpcsrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc"
	"github.com/nspcc-dev/oracle-bridge/pkg/services/rpcsrv/params"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type (
	// Ledger is the part of the Bridge API used by the server.
	Ledger interface {
		GetConfig() config.ProtocolConfiguration
		OracleAddress() util.Uint160
		RegisterQuery(caller util.Uint160, op operation.Code, path, query []any, options string) (util.Uint256, error)
		Fulfill(caller util.Uint160, id util.Uint256, op operation.Code, status uint32, response []byte) error
		GetPendingQuery(id util.Uint256) (*state.PendingQuery, error)
		GetPendingQueries() ([]*state.PendingQuery, error)
		GetQueryResult(id util.Uint256) (*state.QueryResult, error)
		GetNotifications(start uint64, limit int) ([]*state.ContainedNotificationEvent, error)
		GetLastNonce(caller util.Uint160) (uint64, error)
		UseNonce(caller util.Uint160, nonce uint64) error
		SubscribeForNotifications(ch chan<- *state.ContainedNotificationEvent)
		UnsubscribeFromNotifications(ch chan<- *state.ContainedNotificationEvent)
	}

	// Server is the JSON-RPC 2.0 server.
	Server struct {
		http     []*http.Server
		chain    Ledger
		config   config.RPC
		upgrader websocket.Upgrader
		log      *zap.Logger
		shutdown chan struct{}
		started  *atomic.Bool
		errChan  chan error

		// nonceLock protects nonces and nonceFloors. nonces remembers
		// recently used invocation nonces, nonceFloors is the highest nonce
		// per caller that was accepted before the start or evicted from
		// nonces since. Nonces not above the floor are rejected.
		nonceLock   sync.Mutex
		nonces      *lru.Cache
		nonceFloors map[util.Uint160]uint64

		subsLock    sync.RWMutex
		subscribers map[*subscriber]bool

		// feedLock protects feedUsers, the number of active notification
		// feeds over all subscribers.
		feedLock  sync.Mutex
		feedUsers int

		notificationCh chan *state.ContainedNotificationEvent
		subEventsDone  chan struct{}
	}

	// nonceKey identifies a signed invocation for replay protection.
	nonceKey struct {
		caller util.Uint160
		nonce  uint64
	}
)

// New creates a new Server. Zero limits in conf are replaced with defaults.
// Errors of the listening goroutines are reported via errChan.
func New(chain Ledger, conf config.RPC, log *zap.Logger, errChan chan error) *Server {
	for _, l := range []struct {
		name string
		val  *int
		def  int
	}{
		{"MaxWebSocketClients", &conf.MaxWebSocketClients, config.DefaultMaxWebSocketClients},
		{"MaxNotificationsLimit", &conf.MaxNotificationsLimit, config.DefaultMaxNotificationsLimit},
		{"MaxRequestBodyBytes", &conf.MaxRequestBodyBytes, config.DefaultMaxRequestBodyBytes},
		{"NonceCacheSize", &conf.NonceCacheSize, config.DefaultNonceCacheSize},
	} {
		if *l.val <= 0 {
			*l.val = l.def
			log.Info("limit is not set or wrong, setting default value", zap.String("name", l.name), zap.Int("value", l.def))
		}
	}
	s := &Server{
		chain:          chain,
		config:         conf,
		log:            log,
		shutdown:       make(chan struct{}),
		started:        atomic.NewBool(false),
		errChan:        errChan,
		nonceFloors:    make(map[util.Uint160]uint64),
		subscribers:    make(map[*subscriber]bool),
		notificationCh: make(chan *state.ContainedNotificationEvent),
		subEventsDone:  make(chan struct{}),
	}
	s.nonces, _ = lru.NewWithEvict(conf.NonceCacheSize, s.raiseNonceFloor) // Only fails for non-positive sizes.
	for _, addr := range conf.GetAddresses() {
		s.http = append(s.http, &http.Server{
			Addr:              addr,
			Handler:           s,
			ReadHeaderTimeout: wsWriteLimit,
		})
	}
	return s
}

// Name returns service name.
func (s *Server) Name() string {
	return "rpc"
}

// Addresses returns the host:port pairs the server listens on, real ports
// are only known after Start.
func (s *Server) Addresses() []string {
	res := make([]string, 0, len(s.http))
	for _, srv := range s.http {
		res = append(res, srv.Addr)
	}
	return res
}

// Start listens on all configured addresses. Listening and serving errors
// go to errChan. Subsequent calls are no-op.
func (s *Server) Start() {
	if !s.config.Enabled {
		s.log.Info("RPC server is not enabled")
		return
	}
	if !s.started.CompareAndSwap(false, true) {
		s.log.Info("RPC server already started")
		return
	}

	go s.handleSubEvents()
	for _, srv := range s.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			s.errChan <- fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
			return
		}
		srv.Addr = ln.Addr().String()
		s.log.Info("starting rpc-server", zap.String("endpoint", srv.Addr))
		go func(srv *http.Server) {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("RPC server failed", zap.String("endpoint", srv.Addr), zap.Error(err))
				s.errChan <- err
			}
		}(srv)
	}
}

// Shutdown stops a running server, the instance can't be started again.
// Subsequent calls are no-op.
func (s *Server) Shutdown() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	close(s.shutdown)
	for _, srv := range s.http {
		s.log.Info("shutting down RPC server", zap.String("endpoint", srv.Addr))
		if err := srv.Shutdown(context.Background()); err != nil {
			s.log.Warn("error during RPC (http) server shutdown", zap.Error(err))
		}
	}
	<-s.subEventsDone
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/ws" && r.Method == http.MethodGet:
		s.serveWS(w, r)
	case r.Method != http.MethodPost:
		s.writeHTTPErrorResponse(params.NewIn(), w,
			neorpc.NewInvalidParamsError(fmt.Sprintf("invalid method '%s', please retry with 'POST'", r.Method)))
	default:
		req := params.NewRequest()
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.config.MaxRequestBodyBytes))
		if err := req.DecodeData(r.Body); err != nil {
			s.writeHTTPErrorResponse(params.NewIn(), w, neorpc.NewParseError(err.Error()))
			return
		}
		s.writeHTTPServerResponse(req, w, s.handleRequest(req, nil))
	}
}

func (s *Server) handleRequest(req *params.Request, sub *subscriber) abstractResult {
	if req.In != nil {
		return s.handleIn(req.In, sub)
	}
	resp := make(abstractBatch, len(req.Batch))
	for i := range req.Batch {
		resp[i] = s.handleIn(&req.Batch[i], sub)
	}
	return resp
}

func (s *Server) handleIn(req *params.In, sub *subscriber) abstract {
	// Valid method names are never changed by escaping.
	req.Method = escapeForLog(req.Method)
	if req.JSONRPC != neorpc.JSONRPCVersion {
		return s.packResponse(req, nil, neorpc.NewInvalidParamsError(
			fmt.Sprintf("problem parsing JSON: invalid version, expected 2.0 got '%s'", req.JSONRPC)))
	}

	reqParams := params.Params(req.RawParams)
	s.log.Debug("processing rpc request",
		zap.String("method", req.Method),
		zap.Stringer("params", reqParams))

	start := time.Now()
	defer func() { addReqTimeMetric(req.Method, time.Since(start)) }()

	if h, ok := rpcHandlers[req.Method]; ok {
		res, err := h(s, reqParams)
		return s.packResponse(req, res, err)
	}
	if h, ok := rpcWsHandlers[req.Method]; ok && sub != nil {
		res, err := h(s, reqParams, sub)
		return s.packResponse(req, res, err)
	}
	return s.packResponse(req, nil, neorpc.NewMethodNotFoundError(fmt.Sprintf("method %q not supported", req.Method)))
}

func (s *Server) packResponse(r *params.In, result any, respErr *neorpc.Error) abstract {
	resp := abstract{Header: neorpc.Header{JSONRPC: r.JSONRPC, ID: r.RawID}}
	if respErr != nil {
		resp.Error = respErr
	} else {
		resp.Result = result
	}
	return resp
}

func (s *Server) logRequestError(r *params.Request, jsonErr *neorpc.Error) {
	fields := []zap.Field{zap.Int64("code", jsonErr.Code)}
	if jsonErr.Data != "" {
		fields = append(fields, zap.String("cause", jsonErr.Data))
	}
	if r.In != nil {
		fields = append(fields,
			zap.String("method", r.In.Method),
			zap.Any("params", params.Params(r.In.RawParams)))
	}
	const msg = "Error encountered with rpc request"
	if jsonErr.Code == neorpc.InternalServerErrorCode {
		s.log.Error(msg, fields...)
		return
	}
	s.log.Info(msg, fields...)
}

func (s *Server) writeHTTPErrorResponse(r *params.In, w http.ResponseWriter, jsonErr *neorpc.Error) {
	s.writeHTTPServerResponse(&params.Request{In: r}, w, s.packResponse(r, nil, jsonErr))
}

func (s *Server) writeHTTPServerResponse(r *params.Request, w http.ResponseWriter, resp abstractResult) {
	resp.RunForErrors(func(jsonErr *neorpc.Error) {
		s.logRequestError(r, jsonErr)
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if single, ok := resp.(abstract); ok && single.Error != nil {
		w.WriteHeader(getHTTPCodeForError(single.Error))
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("Error encountered while encoding response", zap.Error(err))
	}
}

// escapeForLog drops non-printable characters.
func escapeForLog(in string) string {
	return strings.Map(func(c rune) rune {
		if !strconv.IsGraphic(c) {
			return -1
		}
		return c
	}, in)
}

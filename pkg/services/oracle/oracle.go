package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/nspcc-dev/oracle-bridge/pkg/wallet"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type (
	// Oracle is a service fetching data for registered queries from the
	// external provider and delivering it back to the bridge on behalf of
	// the oracle identity.
	Oracle struct {
		Config

		account *wallet.Account

		started *atomic.Bool
		close   chan struct{}
		done    chan struct{}
		ctx     context.Context
		cancel  context.CancelFunc

		eventCh chan *state.ContainedNotificationEvent

		// queueLock protects queue.
		queueLock sync.Mutex
		queue     []*state.LogEvent
		queueSig  chan struct{}

		// seen holds IDs of queries already taken for processing.
		seen *lru.Cache
		pool *errgroup.Group
	}

	// Config contains oracle service parameters.
	Config struct {
		Log     *zap.Logger
		MainCfg config.OracleConfiguration
		Chain   Ledger
		Client  HTTPClient
	}

	// Ledger is the bridge interface used by the oracle service.
	Ledger interface {
		OracleAddress() util.Uint160
		GetPendingQueries() ([]*state.PendingQuery, error)
		GetNotifications(start uint64, limit int) ([]*state.ContainedNotificationEvent, error)
		Fulfill(caller util.Uint160, id util.Uint256, op operation.Code, status uint32, response []byte) error
		SubscribeForNotifications(ch chan<- *state.ContainedNotificationEvent)
		UnsubscribeFromNotifications(ch chan<- *state.ContainedNotificationEvent)
	}

	// HTTPClient is an interface capable of doing oracle requests.
	HTTPClient interface {
		Do(*http.Request) (*http.Response, error)
	}
)

const (
	// seenCacheSize is the number of query IDs remembered to skip
	// duplicate deliveries.
	seenCacheSize = 4096
	// catchUpPageSize is the number of events read at once when looking
	// for queries registered while the service was down.
	catchUpPageSize = 256
)

// ErrAccountNotFound is returned when the wallet has no oracle account.
var ErrAccountNotFound = errors.New("oracle account is not in the wallet")

// NewOracle returns a new oracle service instance. The wallet is opened and
// the oracle account is unlocked immediately.
func NewOracle(cfg Config) (*Oracle, error) {
	w, err := wallet.NewWalletFromFile(cfg.MainCfg.UnlockWallet.Path)
	if err != nil {
		return nil, err
	}

	oracleHash := cfg.Chain.OracleAddress()
	acc := w.GetAccount(oracleHash)
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address.Uint160ToString(oracleHash))
	}
	if err := acc.Decrypt(cfg.MainCfg.UnlockWallet.Password, w.Scrypt); err != nil {
		return nil, fmt.Errorf("failed to unlock oracle account: %w", err)
	}

	seen, err := lru.New(seenCacheSize)
	if err != nil {
		return nil, err
	}
	if cfg.MainCfg.MaxConcurrentRequests <= 0 {
		cfg.MainCfg.MaxConcurrentRequests = config.DefaultMaxConcurrentRequests
	}
	if cfg.MainCfg.RequestTimeout <= 0 {
		cfg.MainCfg.RequestTimeout = config.DefaultRequestTimeout
	}
	if cfg.MainCfg.MaxResponseSize <= 0 {
		cfg.MainCfg.MaxResponseSize = config.DefaultMaxResponseSize
	}
	if cfg.MainCfg.MaxResponseSize > state.MaxResponseSize {
		cfg.MainCfg.MaxResponseSize = state.MaxResponseSize
	}
	if cfg.Client == nil {
		cfg.Client = newHTTPClient(cfg.MainCfg)
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	o := &Oracle{
		Config:   cfg,
		account:  acc,
		started:  atomic.NewBool(false),
		close:    make(chan struct{}),
		done:     make(chan struct{}),
		eventCh:  make(chan *state.ContainedNotificationEvent),
		queueSig: make(chan struct{}, 1),
		seen:     seen,
		pool:     new(errgroup.Group),
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())
	o.pool.SetLimit(cfg.MainCfg.MaxConcurrentRequests)
	return o, nil
}

// Name returns service name.
func (o *Oracle) Name() string {
	return "oracle"
}

// Start runs the oracle service in a separate goroutine. Queries that are
// still pending are picked up from the event log first.
func (o *Oracle) Start() {
	if !o.started.CompareAndSwap(false, true) {
		return
	}
	o.Log.Info("starting oracle service",
		zap.String("account", o.account.Address),
		zap.Int("workers", o.MainCfg.MaxConcurrentRequests))
	o.Chain.SubscribeForNotifications(o.eventCh)
	go o.run()
}

// Shutdown stops the oracle service. Queries being fetched are abandoned and
// stay pending.
func (o *Oracle) Shutdown() {
	if !o.started.CompareAndSwap(true, false) {
		return
	}
	o.Log.Info("stopping oracle service")
	o.cancel()
	close(o.close)
	<-o.done
	o.account.Close()
	_ = o.Log.Sync()
}

func (o *Oracle) run() {
	defer close(o.done)

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		o.dispatch()
	}()
	catchUpDone := make(chan struct{})
	go func() {
		defer close(catchUpDone)
		if err := o.catchUp(); err != nil {
			o.Log.Error("failed to load pending queries", zap.Error(err))
		}
	}()

loop:
	for {
		select {
		case <-o.close:
			break loop
		case ev := <-o.eventCh:
			if ev.Log != nil {
				o.enqueue(ev.Log)
			}
		}
	}

	unsubDone := make(chan struct{})
	go func() {
		o.Chain.UnsubscribeFromNotifications(o.eventCh)
		close(unsubDone)
	}()
drainloop:
	for {
		select {
		case <-o.eventCh:
		case <-unsubDone:
			break drainloop
		}
	}
	<-catchUpDone
	<-dispatchDone
	_ = o.pool.Wait()
}

// catchUp enqueues pending queries registered before the subscription.
// Parameters are only carried by Log events, so they're read from the event
// log.
func (o *Oracle) catchUp() error {
	pqs, err := o.Chain.GetPendingQueries()
	if err != nil {
		return err
	}
	if len(pqs) == 0 {
		return nil
	}
	pending := make(map[util.Uint256]bool, len(pqs))
	for _, pq := range pqs {
		pending[pq.ID] = true
	}
	o.Log.Info("loading pending queries", zap.Int("count", len(pqs)))
	for start := uint64(0); len(pending) != 0; {
		evs, err := o.Chain.GetNotifications(start, catchUpPageSize)
		if err != nil {
			return err
		}
		if len(evs) == 0 {
			break
		}
		for _, ev := range evs {
			if ev.Log != nil && pending[ev.Log.ID] {
				delete(pending, ev.Log.ID)
				o.enqueue(ev.Log)
			}
		}
		start = evs[len(evs)-1].Index + 1
		select {
		case <-o.close:
			return nil
		default:
		}
	}
	if len(pending) != 0 {
		o.Log.Warn("pending queries without Log event", zap.Int("count", len(pending)))
	}
	return nil
}

// enqueue adds the query to the processing queue unless it was seen already.
// It never blocks, so the bridge is never stalled by the service.
func (o *Oracle) enqueue(req *state.LogEvent) {
	if ok, _ := o.seen.ContainsOrAdd(req.ID, struct{}{}); ok {
		return
	}
	o.queueLock.Lock()
	o.queue = append(o.queue, req)
	o.queueLock.Unlock()
	select {
	case o.queueSig <- struct{}{}:
	default:
	}
}

func (o *Oracle) takeQueue() []*state.LogEvent {
	o.queueLock.Lock()
	defer o.queueLock.Unlock()
	reqs := o.queue
	o.queue = nil
	return reqs
}

// dispatch feeds queued queries to the worker pool.
func (o *Oracle) dispatch() {
	for {
		select {
		case <-o.close:
			return
		case <-o.queueSig:
		}
		for _, req := range o.takeQueue() {
			select {
			case <-o.close:
				return
			default:
			}
			o.pool.Go(func() error {
				o.processRequest(o.ctx, req)
				return nil
			})
		}
	}
}

package core

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"

	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/dao"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/interop"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/native"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Tuning parameters.
const (
	version = "0.1.0"

	// EntropySize is the size of the default per-transaction entropy.
	EntropySize = 32

	eventsBufSize = 100
)

// ErrVersionMismatch is returned for databases created by an incompatible
// node version.
var ErrVersionMismatch = errors.New("DB version mismatch")

// EntropySource returns an unpredictable value for a new transaction.
type EntropySource func() ([]byte, error)

// Option is a Bridge construction option.
type Option func(*Bridge)

// WithEntropySource sets the entropy source used for ID generation.
func WithEntropySource(f EntropySource) Option {
	return func(b *Bridge) {
		b.entropy = f
	}
}

// WithIDSource replaces the ID generator of the registry.
func WithIDSource(ids native.IDSource) Option {
	return func(b *Bridge) {
		b.oracle.IDs = ids
	}
}

// Bridge is the query broker. Each mutating call is executed as a single
// serialized transaction over a private storage layer which is either
// persisted completely (along with the events it produced) or discarded.
type Bridge struct {
	// lock serializes transactions.
	lock sync.Mutex

	config config.ProtocolConfiguration
	store  storage.Store
	oracle *native.Oracle

	entropy EntropySource
	log     *zap.Logger

	reqLock    sync.RWMutex
	requesters map[util.Uint160]interop.Requester

	// isRunning denotes whether the dispatcher is running.
	isRunning   atomic.Bool
	stopCh      chan struct{}
	runToExitCh chan struct{}

	events  chan []*state.ContainedNotificationEvent
	subCh   chan chan<- *state.ContainedNotificationEvent
	unsubCh chan chan<- *state.ContainedNotificationEvent
}

// NewBridge returns a new Bridge instance using the given store. It stores the
// oracle identity from the configuration on the first run and refuses to work
// with a database created for another oracle.
func NewBridge(cfg config.ProtocolConfiguration, s storage.Store, log *zap.Logger, opts ...Option) (*Bridge, error) {
	if log == nil {
		return nil, errors.New("empty logger")
	}
	if s == nil {
		return nil, errors.New("empty store")
	}
	oracleHash, err := cfg.Oracle()
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		config:      cfg,
		store:       s,
		oracle:      native.NewOracle(native.NewGuard(oracleHash)),
		entropy:     randomEntropy,
		log:         log,
		requesters:  make(map[util.Uint160]interop.Requester),
		stopCh:      make(chan struct{}),
		runToExitCh: make(chan struct{}),
		events:      make(chan []*state.ContainedNotificationEvent, eventsBufSize),
		subCh:       make(chan chan<- *state.ContainedNotificationEvent),
		unsubCh:     make(chan chan<- *state.ContainedNotificationEvent),
	}
	for _, o := range opts {
		o(b)
	}
	if err := b.init(); err != nil {
		return nil, err
	}
	return b, nil
}

func randomEntropy() ([]byte, error) {
	buf := make([]byte, EntropySize)
	_, err := rand.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("failed to get entropy: %w", err)
	}
	return buf, nil
}

func (b *Bridge) init() error {
	d := dao.NewSimple(b.store)
	ver, err := d.GetVersion()
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		b.log.Info("initializing bridge DB", zap.String("version", version))
		d.PutVersion(version)
	case err != nil:
		return fmt.Errorf("failed to get DB version: %w", err)
	case ver != version:
		return fmt.Errorf("%w: expected %s, got %s", ErrVersionMismatch, version, ver)
	}
	ic := interop.NewContext(b.OracleAddress(), d, nil, b.oracle, nil, b.log)
	if err := b.oracle.Initialize(ic, b.OracleAddress()); err != nil {
		return err
	}
	if _, err := d.Persist(); err != nil {
		return fmt.Errorf("failed to persist initial state: %w", err)
	}

	pending, err := b.oracle.GetPendingQueries(dao.NewSimple(b.store))
	if err != nil {
		return fmt.Errorf("failed to read pending queries: %w", err)
	}
	updatePendingMetric(len(pending))
	b.log.Info("bridge is ready",
		zap.String("oracle", address.Uint160ToString(b.OracleAddress())),
		zap.Int("pending", len(pending)))
	return nil
}

// GetConfig returns the protocol configuration used by the bridge.
func (b *Bridge) GetConfig() config.ProtocolConfiguration {
	return b.config
}

// OracleAddress returns the identity allowed to fulfill queries.
func (b *Bridge) OracleAddress() util.Uint160 {
	return b.oracle.Guard.Oracle()
}

// RegisterRequester attaches a callback target to the identity. Queries
// issued by identities without a requester attached are delivered to the
// built-in mailbox. Requesters are called within the fulfilling transaction
// and must only use the context they're given, calling Bridge methods from
// there deadlocks.
func (b *Bridge) RegisterRequester(h util.Uint160, r interop.Requester) {
	b.reqLock.Lock()
	defer b.reqLock.Unlock()
	b.requesters[h] = r
}

func (b *Bridge) getRequester(h util.Uint160) interop.Requester {
	b.reqLock.RLock()
	defer b.reqLock.RUnlock()
	r, ok := b.requesters[h]
	if !ok {
		return nil
	}
	return r
}

// execute runs f as a single transaction on behalf of caller.
func (b *Bridge) execute(caller util.Uint160, f func(ic *interop.Context) error) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	entropy, err := b.entropy()
	if err != nil {
		return err
	}
	ic := interop.NewContext(caller, dao.NewSimple(b.store), entropy, b.oracle, b.getRequester, b.log)
	if err := f(ic); err != nil {
		return err
	}
	evs, err := storeNotifications(ic.DAO, ic.Notifications)
	if err != nil {
		return fmt.Errorf("failed to store notifications: %w", err)
	}
	if _, err := ic.DAO.Persist(); err != nil {
		return fmt.Errorf("failed to persist transaction: %w", err)
	}
	updateCommitMetrics(evs)
	b.log.Debug("transaction committed",
		zap.String("caller", address.Uint160ToString(caller)),
		zap.Int("events", len(evs)))
	if len(evs) != 0 && b.isRunning.Load() {
		b.events <- evs
	}
	return nil
}

// storeNotifications assigns indexes to the transaction events and puts
// them into d.
func storeNotifications(d *dao.Simple, nes []state.NotificationEvent) ([]*state.ContainedNotificationEvent, error) {
	txIndex, err := d.GetCounter(storage.SYSTxCounter)
	if err != nil {
		return nil, err
	}
	evIndex, err := d.GetCounter(storage.SYSEventCounter)
	if err != nil {
		return nil, err
	}
	evs := make([]*state.ContainedNotificationEvent, 0, len(nes))
	for i := range nes {
		ev := &state.ContainedNotificationEvent{
			Index:             evIndex,
			Container:         txIndex,
			NotificationEvent: nes[i],
		}
		if err := d.PutNotification(ev); err != nil {
			return nil, err
		}
		evs = append(evs, ev)
		evIndex++
	}
	d.PutCounter(storage.SYSEventCounter, evIndex)
	d.PutCounter(storage.SYSTxCounter, txIndex+1)
	return evs, nil
}

// RegisterQuery registers a new query issued by caller and returns its ID.
func (b *Bridge) RegisterQuery(caller util.Uint160, op operation.Code, path, query []any, options string) (util.Uint256, error) {
	var id util.Uint256
	err := b.execute(caller, func(ic *interop.Context) error {
		var err error
		id, err = b.oracle.RegisterQuery(ic, op, path, query, options)
		return err
	})
	if err != nil {
		return util.Uint256{}, err
	}
	return id, nil
}

// GetAlerts registers a getAlerts query.
func (b *Bridge) GetAlerts(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetAlerts, path, query, options)
}

// GetCountries registers a getCountries query.
func (b *Bridge) GetCountries(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetCountries, path, query, options)
}

// GetForecasts registers a getForecasts query.
func (b *Bridge) GetForecasts(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetForecasts, path, query, options)
}

// GetLightningSummary registers a getLightningSummary query.
func (b *Bridge) GetLightningSummary(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetLightningSummary, path, query, options)
}

// GetObservations registers a getObservations query.
func (b *Bridge) GetObservations(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetObservations, path, query, options)
}

// GetPhrasesSummary registers a getPhrasesSummary query.
func (b *Bridge) GetPhrasesSummary(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetPhrasesSummary, path, query, options)
}

// GetPlacesPostalcodes registers a getPlacesPostalcodes query.
func (b *Bridge) GetPlacesPostalcodes(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetPlacesPostalcodes, path, query, options)
}

// GetSunmoonMoonphases registers a getSunmoonMoonphases query.
func (b *Bridge) GetSunmoonMoonphases(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetSunmoonMoonphases, path, query, options)
}

// GetSunmoon registers a getSunmoon query.
func (b *Bridge) GetSunmoon(caller util.Uint160, path, query []any, options string) (util.Uint256, error) {
	return b.RegisterQuery(caller, operation.GetSunmoon, path, query, options)
}

// Fulfill delivers the response to the query with the given ID. Only the
// oracle can do that, once per query.
func (b *Bridge) Fulfill(caller util.Uint160, id util.Uint256, op operation.Code, status uint32, response []byte) error {
	err := b.execute(caller, func(ic *interop.Context) error {
		return b.oracle.Fulfill(ic, id, op, status, response)
	})
	if err != nil {
		updateRejectedMetric(rejectReason(err))
		b.log.Debug("fulfillment rejected",
			zap.Stringer("id", id),
			zap.String("caller", address.Uint160ToString(caller)),
			zap.Error(err))
	}
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, native.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, native.ErrUnknownOrFulfilledQuery):
		return "unknown"
	case errors.Is(err, native.ErrCallbackFailed):
		return "callback"
	case errors.Is(err, native.ErrBigArgument):
		return "size"
	default:
		return "internal"
	}
}

// GetPendingQuery returns the pending query with the given ID.
func (b *Bridge) GetPendingQuery(id util.Uint256) (*state.PendingQuery, error) {
	return b.oracle.GetPendingQuery(dao.NewSimple(b.store), id)
}

// GetPendingQueries returns all pending queries.
func (b *Bridge) GetPendingQueries() ([]*state.PendingQuery, error) {
	return b.oracle.GetPendingQueries(dao.NewSimple(b.store))
}

// GetQueryResult returns the response delivered to the mailbox for the
// given ID.
func (b *Bridge) GetQueryResult(id util.Uint256) (*state.QueryResult, error) {
	return b.oracle.Mailbox.GetQueryResult(dao.NewSimple(b.store), id)
}

// GetLastNonce returns the highest signed invocation nonce accepted from
// caller, zero if there was none.
func (b *Bridge) GetLastNonce(caller util.Uint160) (uint64, error) {
	return dao.NewSimple(b.store).GetNonce(caller)
}

// UseNonce records the signed invocation nonce accepted from caller. The
// stored value only grows.
func (b *Bridge) UseNonce(caller util.Uint160, nonce uint64) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	d := dao.NewSimple(b.store)
	last, err := d.GetNonce(caller)
	if err != nil {
		return err
	}
	if nonce <= last {
		return nil
	}
	d.PutNonce(caller, nonce)
	_, err = d.Persist()
	return err
}

// GetNotifications returns at most limit persisted events starting from the
// given index.
func (b *Bridge) GetNotifications(start uint64, limit int) ([]*state.ContainedNotificationEvent, error) {
	return dao.NewSimple(b.store).GetNotifications(start, limit)
}

// Run starts the event dispatcher. It should be called once.
func (b *Bridge) Run() {
	if b.isRunning.Swap(true) {
		return
	}
	go b.notificationDispatcher()
}

// Close stops the dispatcher and closes the underlying store.
func (b *Bridge) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.isRunning.Load() {
		close(b.stopCh)
		<-b.runToExitCh
		b.isRunning.Store(false)
	}
	return b.store.Close()
}

// SubscribeForNotifications adds given channel to new notifications
// broadcasting, every event persisted after this call is sent to it. Make
// sure it's read from regularly, since a blocked subscriber blocks the
// bridge. Subscriptions only work after Run.
func (b *Bridge) SubscribeForNotifications(ch chan<- *state.ContainedNotificationEvent) {
	if b.isRunning.Load() {
		b.subCh <- ch
	}
}

// UnsubscribeFromNotifications unsubscribes given channel from new
// notifications, you can close it afterwards. Passing non-subscribed channel
// is a no-op.
func (b *Bridge) UnsubscribeFromNotifications(ch chan<- *state.ContainedNotificationEvent) {
	if b.isRunning.Load() {
		b.unsubCh <- ch
	}
}

// notificationDispatcher manages subscriptions and broadcasts new events.
func (b *Bridge) notificationDispatcher() {
	defer close(b.runToExitCh)
	feed := make(map[chan<- *state.ContainedNotificationEvent]bool)
	for {
		select {
		case <-b.stopCh:
			return
		case sub := <-b.subCh:
			feed[sub] = true
		case unsub := <-b.unsubCh:
			delete(feed, unsub)
		case evs := <-b.events:
			for _, ev := range evs {
				for ch := range feed {
					ch <- ev
				}
			}
		}
	}
}

package native

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/dao"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/interop"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/params"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"go.uber.org/zap"
)

// Oracle is the query registry. It keeps the set of pending queries, mints
// their IDs and delivers responses to requesters.
type Oracle struct {
	Guard   *Guard
	IDs     IDSource
	Mailbox *Mailbox
}

// Various registry errors.
var (
	ErrBigArgument             = errors.New("some of the arguments are too big")
	ErrCallbackFailed          = errors.New("requester callback failed")
	ErrOracleMismatch          = errors.New("oracle identity mismatch")
	ErrUnknownOrFulfilledQuery = errors.New("query never existed or already fulfilled")
)

// ErrIdentifierCollision is a panic value used when a freshly minted ID is
// already pending. It's never returned as a regular error.
var ErrIdentifierCollision = errors.New("identifier collision")

var _ interop.Registry = (*Oracle)(nil)

// NewOracle creates a registry guarded by g.
func NewOracle(g *Guard) *Oracle {
	return &Oracle{
		Guard:   g,
		IDs:     IDGenerator{},
		Mailbox: new(Mailbox),
	}
}

// Initialize stores the oracle identity on the first run and checks it
// against the stored one afterwards.
func (o *Oracle) Initialize(ic *interop.Context, oracle util.Uint160) error {
	stored, err := ic.DAO.GetOracle()
	if err == nil {
		if !stored.Equals(oracle) {
			return fmt.Errorf("%w: stored %s, configured %s", ErrOracleMismatch,
				address.Uint160ToString(stored), address.Uint160ToString(oracle))
		}
		return nil
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return err
	}
	ic.DAO.PutOracle(oracle)
	return nil
}

// RegisterQuery registers a new query issued by ic.Caller and emits a Log
// event for it.
func (o *Oracle) RegisterQuery(ic *interop.Context, op operation.Code, path, query []any, options string) (util.Uint256, error) {
	return isolated(ic, func() (util.Uint256, error) {
		return o.registerQuery(ic, op, path, query, options)
	})
}

func (o *Oracle) registerQuery(ic *interop.Context, op operation.Code, path, query []any, options string) (util.Uint256, error) {
	pathBytes, err := params.Encode(path)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("path params: %w", err)
	}
	queryBytes, err := params.Encode(query)
	if err != nil {
		return util.Uint256{}, fmt.Errorf("query params: %w", err)
	}
	if len(pathBytes) > state.MaxParamsSize || len(queryBytes) > state.MaxParamsSize || len(options) > state.MaxParamsSize {
		return util.Uint256{}, ErrBigArgument
	}

	nonce, err := ic.DAO.GetCounter(storage.SYSRequestCounter)
	if err != nil {
		return util.Uint256{}, err
	}
	id := o.IDs.Next(ic.Caller, nonce, ic.Entropy)
	pending, err := ic.DAO.HasPendingQuery(id)
	if err != nil {
		return util.Uint256{}, err
	}
	if pending {
		panic(fmt.Errorf("%w: %s", ErrIdentifierCollision, id.StringLE()))
	}
	ic.DAO.PutCounter(storage.SYSRequestCounter, nonce+1)

	err = ic.DAO.PutPendingQuery(&state.PendingQuery{
		ID:        id,
		Requester: ic.Caller,
		Operation: op,
	})
	if err != nil {
		return util.Uint256{}, err
	}
	ic.AddNotification(state.NewLogEvent(&state.LogEvent{
		ID:          id,
		Requester:   ic.Caller,
		Operation:   op,
		PathParams:  pathBytes,
		QueryParams: queryBytes,
		Options:     options,
	}))
	ic.Log.Debug("query registered",
		zap.Stringer("id", id),
		zap.Stringer("operation", op),
		zap.String("requester", address.Uint160ToString(ic.Caller)))
	return id, nil
}

// GetAlerts registers a getAlerts query.
func (o *Oracle) GetAlerts(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetAlerts, path, query, options)
}

// GetCountries registers a getCountries query.
func (o *Oracle) GetCountries(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetCountries, path, query, options)
}

// GetForecasts registers a getForecasts query.
func (o *Oracle) GetForecasts(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetForecasts, path, query, options)
}

// GetLightningSummary registers a getLightningSummary query.
func (o *Oracle) GetLightningSummary(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetLightningSummary, path, query, options)
}

// GetObservations registers a getObservations query.
func (o *Oracle) GetObservations(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetObservations, path, query, options)
}

// GetPhrasesSummary registers a getPhrasesSummary query.
func (o *Oracle) GetPhrasesSummary(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetPhrasesSummary, path, query, options)
}

// GetPlacesPostalcodes registers a getPlacesPostalcodes query.
func (o *Oracle) GetPlacesPostalcodes(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetPlacesPostalcodes, path, query, options)
}

// GetSunmoonMoonphases registers a getSunmoonMoonphases query.
func (o *Oracle) GetSunmoonMoonphases(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetSunmoonMoonphases, path, query, options)
}

// GetSunmoon registers a getSunmoon query.
func (o *Oracle) GetSunmoon(ic *interop.Context, path, query []any, options string) (util.Uint256, error) {
	return o.RegisterQuery(ic, operation.GetSunmoon, path, query, options)
}

// Fulfill resolves the pending query with the given ID. Only the oracle is
// allowed to do that and only once per ID. The pending entry is removed
// before the requester callback is invoked, the callback runs on behalf of
// the requester. A failed call leaves no trace in ic even if the error is
// handled by an outer callback.
func (o *Oracle) Fulfill(ic *interop.Context, id util.Uint256, op operation.Code, status uint32, response []byte) error {
	_, err := isolated(ic, func() (struct{}, error) {
		return struct{}{}, o.fulfill(ic, id, op, status, response)
	})
	return err
}

func (o *Oracle) fulfill(ic *interop.Context, id util.Uint256, op operation.Code, status uint32, response []byte) error {
	if err := o.Guard.Check(ic.Caller); err != nil {
		return err
	}
	pq, err := ic.DAO.GetPendingQuery(id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownOrFulfilledQuery, id.StringLE())
		}
		return err
	}
	if len(response) > state.MaxResponseSize {
		return ErrBigArgument
	}
	ic.DAO.DeletePendingQuery(id)

	r := ic.GetRequester(pq.Requester)
	if r == nil {
		r = o.Mailbox
	}
	if err := o.callRequester(ic, pq.Requester, r, id, op, status, response); err != nil {
		return err
	}

	ic.AddNotification(state.NewLogResultEvent(&state.LogResultEvent{
		ID:         id,
		Operation:  op,
		StatusCode: status,
		Response:   response,
	}))
	ic.Log.Debug("query fulfilled",
		zap.Stringer("id", id),
		zap.Stringer("operation", op),
		zap.Uint32("status", status))
	return nil
}

// isolated runs f on a private DAO layer of ic. Storage changes and
// notifications made by f get into ic only if it succeeds.
func isolated[T any](ic *interop.Context, f func() (T, error)) (T, error) {
	var (
		parent    = ic.DAO
		n         = len(ic.Notifications)
		committed bool
	)
	ic.DAO = parent.GetPrivate()
	defer func() {
		ic.DAO = parent
		if !committed {
			ic.Notifications = ic.Notifications[:n]
		}
	}()
	res, err := f()
	if err == nil {
		_, err = ic.DAO.Persist()
	}
	committed = err == nil
	return res, err
}

// callRequester invokes the callback with ic.Caller switched to the
// requester. Callback panics are converted into errors, except for ID
// collisions which are fatal.
func (o *Oracle) callRequester(ic *interop.Context, requester util.Uint160, r interop.Requester,
	id util.Uint256, op operation.Code, status uint32, response []byte) (err error) {
	caller := ic.Caller
	ic.Caller = requester
	defer func() {
		ic.Caller = caller
		if p := recover(); p != nil {
			if e, ok := p.(error); ok && errors.Is(e, ErrIdentifierCollision) {
				panic(p)
			}
			err = fmt.Errorf("%w: panic: %v", ErrCallbackFailed, p)
		}
	}()
	if err := r.Receive(ic, id, op, status, response); err != nil {
		return fmt.Errorf("%w: %w", ErrCallbackFailed, err)
	}
	return nil
}

// GetPendingQuery returns the pending query with the given ID.
func (o *Oracle) GetPendingQuery(d *dao.Simple, id util.Uint256) (*state.PendingQuery, error) {
	pq, err := d.GetPendingQuery(id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownOrFulfilledQuery, id.StringLE())
		}
		return nil, err
	}
	return pq, nil
}

// GetPendingQueries returns all pending queries ordered by ID bytes.
func (o *Oracle) GetPendingQueries(d *dao.Simple) ([]*state.PendingQuery, error) {
	var res []*state.PendingQuery
	err := d.SeekPendingQueries(func(pq *state.PendingQuery) bool {
		res = append(res, pq)
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

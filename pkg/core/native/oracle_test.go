package native

import (
	"errors"
	"testing"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/dao"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/interop"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/params"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	oracleHash    = util.Uint160{0xaa}
	requesterHash = util.Uint160{0xbb}
	strangerHash  = util.Uint160{0xcc}
)

type receivedCall struct {
	ID       util.Uint256
	Op       operation.Code
	Status   uint32
	Response []byte
}

type testRequester struct {
	calls     []receivedCall
	onReceive func(ic *interop.Context, id util.Uint256) error
}

func (r *testRequester) Receive(ic *interop.Context, id util.Uint256, op operation.Code, status uint32, response []byte) error {
	r.calls = append(r.calls, receivedCall{ID: id, Op: op, Status: status, Response: response})
	if r.onReceive != nil {
		return r.onReceive(ic, id)
	}
	return nil
}

type testEnv struct {
	t          *testing.T
	oracle     *Oracle
	dao        *dao.Simple
	requesters map[util.Uint160]interop.Requester
}

func newTestEnv(t *testing.T) *testEnv {
	e := &testEnv{
		t:          t,
		oracle:     NewOracle(NewGuard(oracleHash)),
		dao:        dao.NewSimple(storage.NewMemoryStore()),
		requesters: make(map[util.Uint160]interop.Requester),
	}
	require.NoError(t, e.oracle.Initialize(e.context(oracleHash), oracleHash))
	return e
}

func (e *testEnv) context(caller util.Uint160) *interop.Context {
	return interop.NewContext(caller, e.dao, []byte("entropy"), e.oracle, func(h util.Uint160) interop.Requester {
		return e.requesters[h]
	}, zaptest.NewLogger(e.t))
}

func (e *testEnv) attach(h util.Uint160) *testRequester {
	r := new(testRequester)
	e.requesters[h] = r
	return r
}

func (e *testEnv) isPending(id util.Uint256) bool {
	ok, err := e.dao.HasPendingQuery(id)
	require.NoError(e.t, err)
	return ok
}

func decodeLog(t *testing.T, ev state.NotificationEvent) ([]string, []string) {
	require.Equal(t, state.LogEventName, ev.Name)
	require.NotNil(t, ev.Log)
	path, err := params.DecodeStrings(ev.Log.PathParams)
	require.NoError(t, err)
	query, err := params.DecodeStrings(ev.Log.QueryParams)
	require.NoError(t, err)
	return path, query
}

func TestOracle_Scenario(t *testing.T) {
	e := newTestEnv(t)
	req := e.attach(requesterHash)

	// Registration.
	ic := e.context(requesterHash)
	id1, err := e.oracle.RegisterQuery(ic, operation.GetAlerts, []any{"closest"}, []any{"p", "55403"}, "")
	require.NoError(t, err)
	require.Len(t, ic.Notifications, 1)
	path, query := decodeLog(t, ic.Notifications[0])
	require.Equal(t, []string{"closest"}, path)
	require.Equal(t, []string{"p", "55403"}, query)
	require.Equal(t, id1, ic.Notifications[0].Log.ID)
	require.Equal(t, requesterHash, ic.Notifications[0].Log.Requester)
	require.Equal(t, operation.GetAlerts, ic.Notifications[0].Log.Operation)
	require.True(t, e.isPending(id1))

	response := []byte("placeholder response")

	// Non-oracle fulfillment.
	ic = e.context(strangerHash)
	err = e.oracle.Fulfill(ic, id1, operation.GetAlerts, 200, response)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.True(t, e.isPending(id1))
	require.Len(t, ic.Notifications, 0)
	require.Len(t, req.calls, 0)

	// Oracle fulfillment.
	ic = e.context(oracleHash)
	require.NoError(t, e.oracle.Fulfill(ic, id1, operation.GetAlerts, 200, response))
	require.Equal(t, []receivedCall{{ID: id1, Op: operation.GetAlerts, Status: 200, Response: response}}, req.calls)
	require.Len(t, ic.Notifications, 1)
	require.Equal(t, state.LogResultEventName, ic.Notifications[0].Name)
	require.Equal(t, &state.LogResultEvent{
		ID:         id1,
		Operation:  operation.GetAlerts,
		StatusCode: 200,
		Response:   response,
	}, ic.Notifications[0].Result)
	require.False(t, e.isPending(id1))

	// Second fulfillment.
	ic = e.context(oracleHash)
	err = e.oracle.Fulfill(ic, id1, operation.GetAlerts, 200, response)
	require.ErrorIs(t, err, ErrUnknownOrFulfilledQuery)
	require.Len(t, ic.Notifications, 0)
	require.Len(t, req.calls, 1)

	// Empty query params.
	ic = e.context(requesterHash)
	_, err = e.oracle.RegisterQuery(ic, operation.GetCountries, []any{"us"}, []any{}, "")
	require.NoError(t, err)
	path, query = decodeLog(t, ic.Notifications[0])
	require.Equal(t, []string{"us"}, path)
	require.NotNil(t, query)
	require.Len(t, query, 0)
}

func TestOracle_Operations(t *testing.T) {
	e := newTestEnv(t)
	type regFunc func(*interop.Context, []any, []any, string) (util.Uint256, error)
	testCases := []struct {
		op   operation.Code
		f    regFunc
		path string
	}{
		{operation.GetAlerts, e.oracle.GetAlerts, "closest"},
		{operation.GetCountries, e.oracle.GetCountries, "us"},
		{operation.GetForecasts, e.oracle.GetForecasts, "seattle,wa"},
		{operation.GetLightningSummary, e.oracle.GetLightningSummary, "atlanta,ga"},
		{operation.GetObservations, e.oracle.GetObservations, "55403"},
		{operation.GetPhrasesSummary, e.oracle.GetPhrasesSummary, "toronto,canada"},
		{operation.GetPlacesPostalcodes, e.oracle.GetPlacesPostalcodes, "55403"},
		{operation.GetSunmoonMoonphases, e.oracle.GetSunmoonMoonphases, "minneapolis,mn"},
		{operation.GetSunmoon, e.oracle.GetSunmoon, "minneapolis,mn"},
	}
	for _, tc := range testCases {
		t.Run(tc.op.String(), func(t *testing.T) {
			ic := e.context(requesterHash)
			id, err := tc.f(ic, []any{tc.path}, nil, "opts")
			require.NoError(t, err)
			require.Len(t, ic.Notifications, 1)
			ev := ic.Notifications[0].Log
			require.Equal(t, tc.op, ev.Operation)
			require.Equal(t, "opts", ev.Options)
			path, query := decodeLog(t, ic.Notifications[0])
			require.Equal(t, []string{tc.path}, path)
			require.Len(t, query, 0)

			pq, err := e.oracle.GetPendingQuery(e.dao, id)
			require.NoError(t, err)
			require.Equal(t, tc.op, pq.Operation)
			require.Equal(t, requesterHash, pq.Requester)
		})
	}
	pqs, err := e.oracle.GetPendingQueries(e.dao)
	require.NoError(t, err)
	require.Len(t, pqs, len(testCases))
}

func TestOracle_IntegerParams(t *testing.T) {
	e := newTestEnv(t)
	ic := e.context(requesterHash)
	_, err := e.oracle.RegisterQuery(ic, operation.GetForecasts, []any{"seattle,wa"}, []any{"limit", 7, "from", int64(-1)}, "")
	require.NoError(t, err)
	query, err := params.Decode(ic.Notifications[0].Log.QueryParams)
	require.NoError(t, err)
	require.Equal(t, []any{"limit", int64(7), "from", int64(-1)}, query)

	_, err = e.oracle.RegisterQuery(ic, operation.GetForecasts, []any{1.5}, nil, "")
	require.ErrorIs(t, err, params.ErrUnsupportedType)
}

func TestOracle_BigArguments(t *testing.T) {
	e := newTestEnv(t)
	ic := e.context(requesterHash)
	big := string(make([]byte, state.MaxParamsSize+1))
	_, err := e.oracle.RegisterQuery(ic, operation.GetAlerts, nil, nil, big)
	require.ErrorIs(t, err, ErrBigArgument)
	_, err = e.oracle.RegisterQuery(ic, operation.GetAlerts, []any{big}, nil, "")
	require.ErrorIs(t, err, ErrBigArgument)

	id, err := e.oracle.RegisterQuery(ic, operation.GetAlerts, nil, nil, "")
	require.NoError(t, err)
	err = e.oracle.Fulfill(e.context(oracleHash), id, operation.GetAlerts, 200, make([]byte, state.MaxResponseSize+1))
	require.ErrorIs(t, err, ErrBigArgument)
	require.True(t, e.isPending(id))
}

func TestOracle_Uniqueness(t *testing.T) {
	e := newTestEnv(t)
	const n = 10000
	ids := make(map[util.Uint256]struct{}, n)
	for range n {
		ic := e.context(requesterHash)
		id, err := e.oracle.GetObservations(ic, []any{"55403"}, nil, "")
		require.NoError(t, err)
		ids[id] = struct{}{}
	}
	require.Len(t, ids, n)
}

func TestOracle_Unauthorized(t *testing.T) {
	e := newTestEnv(t)
	id, err := e.oracle.GetAlerts(e.context(requesterHash), nil, nil, "")
	require.NoError(t, err)
	for _, h := range []util.Uint160{requesterHash, strangerHash, {}} {
		err := e.oracle.Fulfill(e.context(h), id, operation.GetAlerts, 200, nil)
		require.ErrorIs(t, err, ErrUnauthorized)
	}
	// Unauthorized is checked first.
	err = e.oracle.Fulfill(e.context(strangerHash), util.Uint256{1, 2, 3}, operation.GetAlerts, 200, nil)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.True(t, e.isPending(id))
}

func TestOracle_UnknownID(t *testing.T) {
	e := newTestEnv(t)
	err := e.oracle.Fulfill(e.context(oracleHash), util.Uint256{1, 2, 3}, operation.GetAlerts, 200, nil)
	require.ErrorIs(t, err, ErrUnknownOrFulfilledQuery)
	_, err = e.oracle.GetPendingQuery(e.dao, util.Uint256{1, 2, 3})
	require.ErrorIs(t, err, ErrUnknownOrFulfilledQuery)
}

func TestOracle_Mailbox(t *testing.T) {
	e := newTestEnv(t)
	id, err := e.oracle.GetSunmoon(e.context(requesterHash), []any{"minneapolis,mn"}, nil, "")
	require.NoError(t, err)
	_, err = e.oracle.Mailbox.GetQueryResult(e.dao, id)
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	require.NoError(t, e.oracle.Fulfill(e.context(oracleHash), id, operation.GetSunmoon, 404, []byte("not found")))
	res, err := e.oracle.Mailbox.GetQueryResult(e.dao, id)
	require.NoError(t, err)
	require.Equal(t, &state.QueryResult{
		ID:         id,
		Operation:  operation.GetSunmoon,
		StatusCode: 404,
		Response:   []byte("not found"),
	}, res)
}

func TestOracle_Reentrancy(t *testing.T) {
	t.Run("requester", func(t *testing.T) {
		e := newTestEnv(t)
		req := e.attach(requesterHash)
		var (
			reentrantErr error
			callerSeen   util.Uint160
			newID        util.Uint256
		)
		req.onReceive = func(ic *interop.Context, id util.Uint256) error {
			callerSeen = ic.Caller
			pending, err := ic.DAO.HasPendingQuery(id)
			require.NoError(t, err)
			require.False(t, pending)
			reentrantErr = ic.Fulfill(id, operation.GetAlerts, 200, nil)

			newID, err = ic.RegisterQuery(operation.GetAlerts, []any{"closest"}, nil, "")
			return err
		}
		id, err := e.oracle.GetAlerts(e.context(requesterHash), nil, nil, "")
		require.NoError(t, err)

		ic := e.context(oracleHash)
		require.NoError(t, e.oracle.Fulfill(ic, id, operation.GetAlerts, 200, nil))
		require.Equal(t, requesterHash, callerSeen)
		require.Equal(t, oracleHash, ic.Caller)
		require.ErrorIs(t, reentrantErr, ErrUnauthorized)

		require.Len(t, ic.Notifications, 2)
		require.Equal(t, state.LogEventName, ic.Notifications[0].Name)
		require.Equal(t, requesterHash, ic.Notifications[0].Log.Requester)
		require.Equal(t, newID, ic.Notifications[0].Log.ID)
		require.Equal(t, state.LogResultEventName, ic.Notifications[1].Name)
		require.True(t, e.isPending(newID))
	})
	t.Run("oracle as requester", func(t *testing.T) {
		e := newTestEnv(t)
		req := e.attach(oracleHash)
		var reentrantErr error
		req.onReceive = func(ic *interop.Context, id util.Uint256) error {
			reentrantErr = ic.Fulfill(id, operation.GetAlerts, 200, nil)
			return nil
		}
		id, err := e.oracle.GetAlerts(e.context(oracleHash), nil, nil, "")
		require.NoError(t, err)
		require.NoError(t, e.oracle.Fulfill(e.context(oracleHash), id, operation.GetAlerts, 200, nil))
		require.ErrorIs(t, reentrantErr, ErrUnknownOrFulfilledQuery)
		require.Len(t, req.calls, 1)
	})
	t.Run("failed nested fulfill", func(t *testing.T) {
		e := newTestEnv(t)
		errCallback := errors.New("can't handle it")
		e.attach(requesterHash).onReceive = func(*interop.Context, util.Uint256) error {
			return errCallback
		}
		other, err := e.oracle.GetForecasts(e.context(requesterHash), []any{"seattle,wa"}, nil, "")
		require.NoError(t, err)

		var nestedErr error
		e.attach(oracleHash).onReceive = func(ic *interop.Context, _ util.Uint256) error {
			nestedErr = ic.Fulfill(other, operation.GetForecasts, 200, []byte("forecast"))
			return nil
		}
		id, err := e.oracle.GetAlerts(e.context(oracleHash), nil, nil, "")
		require.NoError(t, err)

		ic := e.context(oracleHash)
		require.NoError(t, e.oracle.Fulfill(ic, id, operation.GetAlerts, 200, nil))
		require.ErrorIs(t, nestedErr, ErrCallbackFailed)
		require.ErrorIs(t, nestedErr, errCallback)

		require.False(t, e.isPending(id))
		require.True(t, e.isPending(other))
		require.Len(t, ic.Notifications, 1)
		require.Equal(t, state.LogResultEventName, ic.Notifications[0].Name)
		require.Equal(t, id, ic.Notifications[0].Result.ID)
	})
}

func TestOracle_CallbackFailure(t *testing.T) {
	errCallback := errors.New("can't handle it")
	testCases := map[string]func(*interop.Context, util.Uint256) error{
		"error": func(*interop.Context, util.Uint256) error { return errCallback },
		"panic": func(*interop.Context, util.Uint256) error { panic("boom") },
	}
	for name, f := range testCases {
		t.Run(name, func(t *testing.T) {
			e := newTestEnv(t)
			e.attach(requesterHash).onReceive = f
			id, err := e.oracle.GetAlerts(e.context(requesterHash), nil, nil, "")
			require.NoError(t, err)

			ic := e.context(oracleHash)
			err = e.oracle.Fulfill(ic, id, operation.GetAlerts, 200, nil)
			require.ErrorIs(t, err, ErrCallbackFailed)
			require.Equal(t, oracleHash, ic.Caller)
			require.Len(t, ic.Notifications, 0)
			require.True(t, e.isPending(id))
		})
	}
}

type constIDs struct{}

func (constIDs) Next(util.Uint160, uint64, []byte) util.Uint256 {
	return util.Uint256{0x42}
}

func TestOracle_IdentifierCollision(t *testing.T) {
	e := newTestEnv(t)
	e.oracle.IDs = constIDs{}
	_, err := e.oracle.GetAlerts(e.context(requesterHash), nil, nil, "")
	require.NoError(t, err)
	require.PanicsWithError(t, ErrIdentifierCollision.Error()+": "+util.Uint256{0x42}.StringLE(), func() {
		_, _ = e.oracle.GetAlerts(e.context(requesterHash), nil, nil, "")
	})

	t.Run("from callback", func(t *testing.T) {
		e.attach(requesterHash).onReceive = func(ic *interop.Context, id util.Uint256) error {
			// The ID is free again, register twice to collide.
			_, _ = ic.RegisterQuery(operation.GetAlerts, nil, nil, "")
			_, _ = ic.RegisterQuery(operation.GetAlerts, nil, nil, "")
			return nil
		}
		require.Panics(t, func() {
			_ = e.oracle.Fulfill(e.context(oracleHash), util.Uint256{0x42}, operation.GetAlerts, 200, nil)
		})
	})
}

func TestOracle_Initialize(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.oracle.Initialize(e.context(oracleHash), oracleHash))
	err := e.oracle.Initialize(e.context(oracleHash), strangerHash)
	require.ErrorIs(t, err, ErrOracleMismatch)
	h, err := e.dao.GetOracle()
	require.NoError(t, err)
	require.Equal(t, oracleHash, h)
}

func TestIDGenerator(t *testing.T) {
	var g IDGenerator
	id := g.Next(requesterHash, 1, []byte{1})
	require.Equal(t, id, g.Next(requesterHash, 1, []byte{1}))
	require.NotEqual(t, id, g.Next(strangerHash, 1, []byte{1}))
	require.NotEqual(t, id, g.Next(requesterHash, 2, []byte{1}))
	require.NotEqual(t, id, g.Next(requesterHash, 1, []byte{2}))
}

func TestGuard(t *testing.T) {
	g := NewGuard(oracleHash)
	require.Equal(t, oracleHash, g.Oracle())
	require.NoError(t, g.Check(oracleHash))
	require.ErrorIs(t, g.Check(strangerHash), ErrUnauthorized)
}

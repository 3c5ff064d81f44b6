package dao

import (
	"testing"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	dao := NewSimple(storage.NewMemoryStore())
	v, err := dao.GetCounter(storage.SYSRequestCounter)
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)

	dao.PutCounter(storage.SYSRequestCounter, 42)
	v, err = dao.GetCounter(storage.SYSRequestCounter)
	require.NoError(t, err)
	require.Equal(t, uint64(42), v)

	dao.Store.Put(storage.SYSEventCounter.Bytes(), []byte{1})
	_, err = dao.GetCounter(storage.SYSEventCounter)
	require.Error(t, err)
}

func TestNonces(t *testing.T) {
	dao := NewSimple(storage.NewMemoryStore())
	h := util.Uint160{1, 2, 3}
	n, err := dao.GetNonce(h)
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)

	dao.PutNonce(h, 1_700_000_000)
	n, err = dao.GetNonce(h)
	require.NoError(t, err)
	require.Equal(t, uint64(1_700_000_000), n)

	n, err = dao.GetNonce(util.Uint160{3, 2, 1})
	require.NoError(t, err)
	require.Equal(t, uint64(0), n)
}

func TestOracle(t *testing.T) {
	dao := NewSimple(storage.NewMemoryStore())
	_, err := dao.GetOracle()
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	h := util.Uint160{1, 2, 3}
	dao.PutOracle(h)
	actual, err := dao.GetOracle()
	require.NoError(t, err)
	require.Equal(t, h, actual)
}

func TestPendingQueries(t *testing.T) {
	dao := NewSimple(storage.NewMemoryStore())
	pqs := []*state.PendingQuery{
		{ID: util.Uint256{3}, Requester: util.Uint160{1}, Operation: operation.GetAlerts},
		{ID: util.Uint256{1}, Requester: util.Uint160{2}, Operation: operation.GetSunmoon},
		{ID: util.Uint256{2}, Requester: util.Uint160{1}, Operation: operation.Code(77)},
	}
	for _, pq := range pqs {
		require.NoError(t, dao.PutPendingQuery(pq))
	}
	actual, err := dao.GetPendingQuery(util.Uint256{1})
	require.NoError(t, err)
	require.Equal(t, pqs[1], actual)

	ok, err := dao.HasPendingQuery(util.Uint256{2})
	require.NoError(t, err)
	require.True(t, ok)

	var ids []util.Uint256
	require.NoError(t, dao.SeekPendingQueries(func(pq *state.PendingQuery) bool {
		ids = append(ids, pq.ID)
		return true
	}))
	require.Equal(t, []util.Uint256{{1}, {2}, {3}}, ids)

	dao.DeletePendingQuery(util.Uint256{2})
	_, err = dao.GetPendingQuery(util.Uint256{2})
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
	ok, err = dao.HasPendingQuery(util.Uint256{2})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPrivatePersist(t *testing.T) {
	ps := storage.NewMemoryStore()
	dao := NewSimple(ps)
	priv := dao.GetPrivate()

	pq := &state.PendingQuery{ID: util.Uint256{9}}
	require.NoError(t, priv.PutPendingQuery(pq))
	_, err := dao.GetPendingQuery(pq.ID)
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	_, err = priv.Persist()
	require.NoError(t, err)
	_, err = dao.GetPendingQuery(pq.ID)
	require.NoError(t, err)

	_, err = dao.Persist()
	require.NoError(t, err)
	_, err = NewSimple(ps).GetPendingQuery(pq.ID)
	require.NoError(t, err)
}

func TestQueryResults(t *testing.T) {
	dao := NewSimple(storage.NewMemoryStore())
	res := &state.QueryResult{ID: util.Uint256{5}, StatusCode: 200, Response: []byte("ok")}
	require.NoError(t, dao.PutQueryResult(res))
	actual, err := dao.GetQueryResult(res.ID)
	require.NoError(t, err)
	require.Equal(t, res, actual)
}

func TestNotifications(t *testing.T) {
	dao := NewSimple(storage.NewMemoryStore())
	for i := range uint64(300) {
		require.NoError(t, dao.PutNotification(&state.ContainedNotificationEvent{
			Index:     i,
			Container: i / 2,
			NotificationEvent: state.NewLogResultEvent(&state.LogResultEvent{
				ID:       util.Uint256{byte(i)},
				Response: []byte{},
			}),
		}))
	}
	evs, err := dao.GetNotifications(250, 10)
	require.NoError(t, err)
	require.Len(t, evs, 10)
	for i, ev := range evs {
		require.Equal(t, uint64(250+i), ev.Index)
	}

	evs, err = dao.GetNotifications(295, 10)
	require.NoError(t, err)
	require.Len(t, evs, 5)

	evs, err = dao.GetNotifications(0, 0)
	require.NoError(t, err)
	require.Len(t, evs, 0)
}

func TestVersion(t *testing.T) {
	dao := NewSimple(storage.NewMemoryStore())
	_, err := dao.GetVersion()
	require.Error(t, err)
	dao.PutVersion("0.1.0")
	v, err := dao.GetVersion()
	require.NoError(t, err)
	require.Equal(t, "0.1.0", v)
}

package oracle

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/nspcc-dev/oracle-bridge/pkg/config/netmode"
	"github.com/nspcc-dev/oracle-bridge/pkg/core"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/interop"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/params"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap/zaptest"
)

const (
	oracleAddress = "NQrEVKgpx2qEg6DpVMT5H8kFa7kc2DFgqS"
	otherAddress  = "NYaVsrMV9GS8aaspRS4odXf1WHZdMmJiPC"
	oraclePass    = "city of zion"
)

var oracleWallet = filepath.Join("..", "..", "..", "config", "oracle.json")

// provider is a fake data provider counting hits per path.
type provider struct {
	lock sync.Mutex
	hits map[string]int
}

func (p *provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.lock.Lock()
	p.hits[r.URL.Path]++
	hits := p.hits[r.URL.Path]
	p.lock.Unlock()

	if r.URL.Query().Get("client_id") != "id" || r.URL.Query().Get("client_secret") != "secret" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch r.URL.Path {
	case "/alerts/closest":
		fmt.Fprintf(w, `{"p":%q}`, r.URL.Query().Get("p"))
	case "/forecasts/seattle,wa":
		if hits == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"forecast":"rain"}`))
	case "/countries/us":
		w.WriteHeader(http.StatusBadGateway)
	case "/observations/55403":
		_, _ = w.Write(bytes.Repeat([]byte{'a'}, 2048))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *provider) getHits(path string) int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.hits[path]
}

func newTestBridge(t *testing.T, oracle string) *core.Bridge {
	b, err := core.NewBridge(config.ProtocolConfiguration{
		Magic:         netmode.UnitTestNet,
		OracleAddress: oracle,
	}, storage.NewMemoryStore(), zaptest.NewLogger(t))
	require.NoError(t, err)
	b.Run()
	t.Cleanup(func() { require.NoError(t, b.Close()) })
	return b
}

func newTestOracle(t *testing.T, b *core.Bridge) (*Oracle, *provider) {
	p := &provider{hits: make(map[string]int)}
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	o, err := NewOracle(Config{
		Log: zaptest.NewLogger(t),
		MainCfg: config.OracleConfiguration{
			Enabled:               true,
			BaseURL:               srv.URL,
			AllowPrivateHost:      true,
			ClientID:              "id",
			ClientSecret:          "secret",
			MaxConcurrentRequests: 2,
			RequestTimeout:        time.Second,
			MaxResponseSize:       1024,
			MaxRetries:            2,
			RetryInterval:         10 * time.Millisecond,
			UnlockWallet: config.Wallet{
				Path:     oracleWallet,
				Password: oraclePass,
			},
		},
		Chain: b,
	})
	require.NoError(t, err)
	return o, p
}

func waitResult(t *testing.T, b *core.Bridge, id util.Uint256) *state.QueryResult {
	var res *state.QueryResult
	require.Eventually(t, func() bool {
		var err error
		res, err = b.GetQueryResult(id)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	return res
}

func TestOracle(t *testing.T) {
	b := newTestBridge(t, oracleAddress)
	requester := util.Uint160{1, 2, 3}

	// Registered before the service is started.
	early, err := b.GetAlerts(requester, []any{"closest"}, []any{"p", "55403"}, "")
	require.NoError(t, err)

	o, p := newTestOracle(t, b)
	o.Start()
	t.Cleanup(o.Shutdown)

	t.Run("catch up", func(t *testing.T) {
		res := waitResult(t, b, early)
		require.Equal(t, uint32(http.StatusOK), res.StatusCode)
		require.Equal(t, operation.GetAlerts, res.Operation)
		require.JSONEq(t, `{"p":"55403"}`, string(res.Response))
	})
	t.Run("live", func(t *testing.T) {
		id, err := b.GetAlerts(requester, []any{"closest"}, []any{"p", 55403}, "")
		require.NoError(t, err)
		res := waitResult(t, b, id)
		require.Equal(t, uint32(http.StatusOK), res.StatusCode)
		require.JSONEq(t, `{"p":"55403"}`, string(res.Response))
		require.Equal(t, 2, p.getHits("/alerts/closest"))
	})
	t.Run("retry", func(t *testing.T) {
		id, err := b.GetForecasts(requester, []any{"seattle,wa"}, nil, "")
		require.NoError(t, err)
		res := waitResult(t, b, id)
		require.Equal(t, uint32(http.StatusOK), res.StatusCode)
		require.Equal(t, []byte(`{"forecast":"rain"}`), res.Response)
		require.Equal(t, 2, p.getHits("/forecasts/seattle,wa"))
	})
	t.Run("retries exhausted", func(t *testing.T) {
		id, err := b.GetCountries(requester, []any{"us"}, nil, "")
		require.NoError(t, err)
		res := waitResult(t, b, id)
		require.Equal(t, uint32(http.StatusBadGateway), res.StatusCode)
		require.Equal(t, 3, p.getHits("/countries/us"))
	})
	t.Run("not found", func(t *testing.T) {
		id, err := b.GetSunmoon(requester, []any{"minneapolis,mn"}, nil, "")
		require.NoError(t, err)
		res := waitResult(t, b, id)
		require.Equal(t, uint32(http.StatusNotFound), res.StatusCode)
		require.Equal(t, 1, p.getHits("/sunmoon/minneapolis,mn"))
	})
	t.Run("too large", func(t *testing.T) {
		id, err := b.GetObservations(requester, []any{"55403"}, nil, "")
		require.NoError(t, err)
		res := waitResult(t, b, id)
		require.Equal(t, uint32(StatusResponseTooLarge), res.StatusCode)
		require.Empty(t, res.Response)
		require.Equal(t, 1, p.getHits("/observations/55403"))
	})
	t.Run("unknown operation", func(t *testing.T) {
		id, err := b.RegisterQuery(requester, operation.Code(200), nil, nil, "")
		require.NoError(t, err)
		res := waitResult(t, b, id)
		require.Equal(t, uint32(StatusInvalidRequest), res.StatusCode)
	})
	t.Run("bad query params", func(t *testing.T) {
		id, err := b.GetAlerts(requester, []any{"closest"}, []any{"p"}, "")
		require.NoError(t, err)
		res := waitResult(t, b, id)
		require.Equal(t, uint32(StatusInvalidRequest), res.StatusCode)
	})

	pqs, err := b.GetPendingQueries()
	require.NoError(t, err)
	require.Empty(t, pqs)
}

// flakyRequester rejects the first failures responses and stores the rest
// as query results.
type flakyRequester struct {
	failures int64
	calls    atomic.Int64
}

func (r *flakyRequester) Receive(ic *interop.Context, id util.Uint256, op operation.Code, status uint32, response []byte) error {
	if r.calls.Inc() <= r.failures {
		return errors.New("not ready")
	}
	return ic.DAO.PutQueryResult(&state.QueryResult{
		ID:         id,
		Operation:  op,
		StatusCode: status,
		Response:   response,
	})
}

func TestOracle_FulfillRetries(t *testing.T) {
	b := newTestBridge(t, oracleAddress)
	o, p := newTestOracle(t, b)
	o.Start()
	t.Cleanup(o.Shutdown)

	t.Run("recovered", func(t *testing.T) {
		requester := util.Uint160{1}
		r := &flakyRequester{failures: 2}
		b.RegisterRequester(requester, r)

		id, err := b.GetAlerts(requester, []any{"closest"}, []any{"p", "55403"}, "")
		require.NoError(t, err)
		res := waitResult(t, b, id)
		require.Equal(t, uint32(http.StatusOK), res.StatusCode)
		require.EqualValues(t, 3, r.calls.Load())
		require.Equal(t, 1, p.getHits("/alerts/closest"))
	})
	t.Run("left pending", func(t *testing.T) {
		requester := util.Uint160{2}
		r := &flakyRequester{failures: 100}
		b.RegisterRequester(requester, r)

		id, err := b.GetAlerts(requester, []any{"closest"}, []any{"p", "55403"}, "")
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return r.calls.Load() == 3 && !o.seen.Contains(id)
		}, 5*time.Second, 10*time.Millisecond)

		_, err = b.GetPendingQuery(id)
		require.NoError(t, err)
		_, err = b.GetQueryResult(id)
		require.Error(t, err)
	})
}

func TestOracle_Restart(t *testing.T) {
	b := newTestBridge(t, oracleAddress)
	o, _ := newTestOracle(t, b)
	o.Start()
	o.Start()
	o.Shutdown()
	o.Shutdown()

	id, err := b.GetAlerts(util.Uint160{1}, []any{"closest"}, nil, "")
	require.NoError(t, err)
	// Nobody serves the query while the service is down.
	time.Sleep(50 * time.Millisecond)
	_, err = b.GetPendingQuery(id)
	require.NoError(t, err)

	o, _ = newTestOracle(t, b)
	o.Start()
	t.Cleanup(o.Shutdown)
	res := waitResult(t, b, id)
	require.Equal(t, uint32(http.StatusOK), res.StatusCode)
}

func TestNewOracle(t *testing.T) {
	t.Run("not an oracle wallet", func(t *testing.T) {
		b := newTestBridge(t, otherAddress)
		_, err := NewOracle(Config{
			MainCfg: config.OracleConfiguration{UnlockWallet: config.Wallet{Path: oracleWallet, Password: oraclePass}},
			Chain:   b,
		})
		require.ErrorIs(t, err, ErrAccountNotFound)
	})
	t.Run("bad password", func(t *testing.T) {
		b := newTestBridge(t, oracleAddress)
		_, err := NewOracle(Config{
			MainCfg: config.OracleConfiguration{UnlockWallet: config.Wallet{Path: oracleWallet, Password: "wrong"}},
			Chain:   b,
		})
		require.Error(t, err)
	})
	t.Run("no wallet", func(t *testing.T) {
		b := newTestBridge(t, oracleAddress)
		_, err := NewOracle(Config{
			MainCfg: config.OracleConfiguration{UnlockWallet: config.Wallet{Path: filepath.Join(t.TempDir(), "none.json")}},
			Chain:   b,
		})
		require.Error(t, err)
	})
}

func TestBuildURL(t *testing.T) {
	o := &Oracle{Config: Config{MainCfg: config.OracleConfiguration{
		BaseURL:      "https://api.example.com/v1/",
		ClientID:     "id",
		ClientSecret: "secret",
	}}}
	encode := func(ps ...any) []byte {
		b, err := params.Encode(ps)
		require.NoError(t, err)
		return b
	}

	u, err := o.buildURL(&state.LogEvent{
		Operation:   operation.GetSunmoonMoonphases,
		PathParams:  encode("minneapolis,mn", "a b"),
		QueryParams: encode("limit", 5, "filter", "day"),
		Options:     "format=json&client_id=evil",
	})
	require.NoError(t, err)
	parsed, err := url.Parse(u)
	require.NoError(t, err)
	require.Equal(t, "/v1/sunmoon/moonphases/minneapolis,mn/a b", parsed.Path)
	require.Equal(t, url.Values{
		"limit":         {"5"},
		"filter":        {"day"},
		"format":        {"json"},
		"client_id":     {"id"},
		"client_secret": {"secret"},
	}, parsed.Query())

	t.Run("empty params", func(t *testing.T) {
		u, err := o.buildURL(&state.LogEvent{
			Operation:   operation.GetCountries,
			PathParams:  encode(),
			QueryParams: encode(),
		})
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(u, "https://api.example.com/v1/countries?"), u)
	})
	t.Run("bad params", func(t *testing.T) {
		_, err := o.buildURL(&state.LogEvent{Operation: operation.GetAlerts, PathParams: []byte{1}, QueryParams: encode()})
		require.ErrorIs(t, err, params.ErrCodec)
		_, err = o.buildURL(&state.LogEvent{Operation: operation.GetAlerts, PathParams: encode(), QueryParams: encode(), Options: "%zz"})
		require.Error(t, err)
		_, err = o.buildURL(&state.LogEvent{Operation: operation.Code(42), PathParams: encode(), QueryParams: encode()})
		require.ErrorIs(t, err, errUnknownOperation)
	})
}

func TestReadResponse(t *testing.T) {
	b, err := readResponse(bytes.NewReader([]byte("abc")), 3)
	require.NoError(t, err)
	require.Equal(t, []byte("abc"), b)

	b, err = readResponse(bytes.NewReader(nil), 3)
	require.NoError(t, err)
	require.Empty(t, b)

	_, err = readResponse(bytes.NewReader([]byte("abcd")), 3)
	require.ErrorIs(t, err, ErrResponseTooLarge)
}

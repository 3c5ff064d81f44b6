package oracle

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestIsReserved(t *testing.T) {
	for _, s := range []string{
		"0.0.0.0",
		"10.0.0.1",
		"100.64.1.1",
		"172.20.0.1",
		"192.168.0.1",
		"127.0.0.1",
		"::1",
		"ff01::1",
		"fd00::1",
		"::ffff:192.168.1.1",
	} {
		require.True(t, isReserved(netip.MustParseAddr(s)), s)
	}
	for _, s := range []string{"8.8.8.8", "2001:4860:4860::8888", "::ffff:8.8.8.8"} {
		require.False(t, isReserved(netip.MustParseAddr(s)), s)
	}
}

func TestRestrictedControl(t *testing.T) {
	require.ErrorIs(t, restrictedControl("tcp", "127.0.0.1:80", nil), ErrRestrictedHost)
	require.ErrorIs(t, restrictedControl("tcp", "[fd00::1]:443", nil), ErrRestrictedHost)
	require.ErrorIs(t, restrictedControl("tcp", "localhost", nil), ErrRestrictedHost)
	require.NoError(t, restrictedControl("tcp", "8.8.8.8:443", nil))
}

func TestNewHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	cfg := config.OracleConfiguration{RequestTimeout: time.Second, MaxConcurrentRequests: 2}
	_, err := newHTTPClient(cfg).Get(srv.URL)
	require.ErrorIs(t, err, ErrRestrictedHost)

	cfg.AllowPrivateHost = true
	resp, err := newHTTPClient(cfg).Get(srv.URL)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

package oracle

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"github.com/nspcc-dev/oracle-bridge/pkg/config"
)

// privateNets are the non-global ranges of RFC 6890 not covered by
// netip.Addr.IsGlobalUnicast.
var privateNets = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("fc00::/7"),
}

// ErrRestrictedHost is returned when the provider resolves to a private
// address and private hosts are not allowed.
var ErrRestrictedHost = errors.New("IP is not global unicast")

func isReserved(ip netip.Addr) bool {
	ip = ip.Unmap()
	if !ip.IsGlobalUnicast() {
		return true
	}
	for _, p := range privateNets {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// restrictedControl is a net.Dialer control function rejecting reserved
// addresses. It runs after name resolution.
func restrictedControl(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRestrictedHost, err)
	}
	if isReserved(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrRestrictedHost, ap.Addr())
	}
	return nil
}

// newHTTPClient creates the client used to reach the weather provider.
func newHTTPClient(cfg config.OracleConfiguration) *http.Client {
	d := &net.Dialer{
		Timeout:   cfg.RequestTimeout,
		KeepAlive: 30 * time.Second,
	}
	if !cfg.AllowPrivateHost {
		d.Control = restrictedControl
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:         d.DialContext,
			MaxIdleConnsPerHost: cfg.MaxConcurrentRequests,
		},
		Timeout: cfg.RequestTimeout,
	}
}

/*
Package rpcclient implements a JSON-RPC client for the bridge node. Client
works over HTTP, WSClient reuses the same methods over a websocket
connection and adds event subscriptions.

Signed calls (RegisterQuery, Query, Fulfill) need the network magic, so Init
must be called once before them.
*/
package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/nspcc-dev/oracle-bridge/pkg/config/netmode"
	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc"
	"go.uber.org/atomic"
)

const defaultTimeout = 4 * time.Second

var errNetworkNotInitialized = errors.New("RPC client network is not initialized")

// Client is a thread-safe HTTP JSON-RPC client.
type Client struct {
	cli      *http.Client
	endpoint *url.URL
	ctx      context.Context
	opts     Options
	requestF func(*neorpc.Request) (*neorpc.Response, error)

	// network is zero until Init.
	network *atomic.Uint32

	latestReqID *atomic.Uint64
	// getNextRequestID is a field to make request IDs predictable in tests.
	getNextRequestID func() uint64
	latestNonce      *atomic.Uint64
}

// Options defines options for the RPC client. Zero timeouts mean 4 seconds.
type Options struct {
	DialTimeout    time.Duration
	RequestTimeout time.Duration
	// MaxConnsPerHost limits connections to the node, no limit if zero.
	MaxConnsPerHost int
}

// New returns a new Client for the endpoint. ctx bounds all requests made by
// the client.
func New(ctx context.Context, endpoint string, opts Options) (*Client, error) {
	cl := new(Client)
	if err := initClient(ctx, cl, endpoint, opts); err != nil {
		return nil, err
	}
	return cl, nil
}

func initClient(ctx context.Context, cl *Client, endpoint string, opts Options) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultTimeout
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultTimeout
	}

	*cl = Client{
		cli: &http.Client{
			Transport: &http.Transport{
				DialContext:     (&net.Dialer{Timeout: opts.DialTimeout}).DialContext,
				MaxConnsPerHost: opts.MaxConnsPerHost,
			},
			Timeout: opts.RequestTimeout,
		},
		endpoint:    u,
		ctx:         ctx,
		opts:        opts,
		network:     atomic.NewUint32(0),
		latestReqID: atomic.NewUint64(0),
		// Nonces only have to be unique per signer, so start from the clock
		// to survive client restarts.
		latestNonce: atomic.NewUint64(uint64(time.Now().UnixNano())),
	}
	cl.getNextRequestID = cl.latestReqID.Inc
	cl.requestF = cl.makeHTTPRequest
	return nil
}

func (c *Client) getNonce() uint64 {
	return c.latestNonce.Inc()
}

// Init fetches the network magic of the node with getversion.
func (c *Client) Init() error {
	version, err := c.GetVersion()
	if err != nil {
		return fmt.Errorf("failed to get network magic: %w", err)
	}
	c.network.Store(uint32(version.Protocol.Network))
	return nil
}

// GetNetwork returns the network magic received in Init.
func (c *Client) GetNetwork() (netmode.Magic, error) {
	n := c.network.Load()
	if n == 0 {
		return 0, errNetworkNotInitialized
	}
	return netmode.Magic(n), nil
}

// Close releases idle connections.
func (c *Client) Close() {
	if c.cli != nil {
		c.cli.CloseIdleConnections()
	}
}

// performRequest calls method and unmarshals its result into v. Server-side
// errors are returned as *neorpc.Error.
func (c *Client) performRequest(method string, p []any, v any) error {
	if p == nil {
		p = []any{}
	}
	resp, err := c.requestF(&neorpc.Request{
		JSONRPC: neorpc.JSONRPCVersion,
		Method:  method,
		Params:  p,
		ID:      c.getNextRequestID(),
	})
	switch {
	case resp != nil && resp.Error != nil:
		return resp.Error
	case err != nil:
		return err
	case resp == nil || resp.Result == nil:
		return errors.New("no result returned")
	}
	return json.Unmarshal(resp.Result, v)
}

func (c *Client) makeHTTPRequest(r *neorpc.Request) (*neorpc.Response, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Errors come with non-200 codes but still carry a JSON body that is more
	// informative than the status.
	raw := new(neorpc.Response)
	if err := json.NewDecoder(resp.Body).Decode(raw); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d/%s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, fmt.Errorf("JSON decoding: %w", err)
	}
	return raw, nil
}

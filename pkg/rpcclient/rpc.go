package rpcclient

import (
	"encoding/base64"
	"strings"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/crypto/keys"
	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc"
	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc/result"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// GetVersion returns the version information about the queried node.
func (c *Client) GetVersion() (*result.Version, error) {
	var resp = &result.Version{}
	if err := c.performRequest("getversion", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetOracle returns the oracle identity of the bridge.
func (c *Client) GetOracle() (*result.Oracle, error) {
	var resp = &result.Oracle{}
	if err := c.performRequest("getoracle", nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPendingQuery returns the pending query with the given ID.
func (c *Client) GetPendingQuery(id util.Uint256) (*state.PendingQuery, error) {
	var resp = &state.PendingQuery{}
	if err := c.performRequest("getpendingquery", []any{id.StringLE()}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetPendingQueries returns all pending queries.
func (c *Client) GetPendingQueries() ([]*state.PendingQuery, error) {
	var resp []*state.PendingQuery
	if err := c.performRequest("getpendingqueries", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetQueryResult returns the response delivered to the bridge mailbox for
// the query with the given ID.
func (c *Client) GetQueryResult(id util.Uint256) (*state.QueryResult, error) {
	var resp = &state.QueryResult{}
	if err := c.performRequest("getqueryresult", []any{id.StringLE()}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetNotifications returns persisted bridge events starting from the given
// index. Zero limit means the server default.
func (c *Client) GetNotifications(start uint64, limit int) ([]*state.ContainedNotificationEvent, error) {
	var (
		params = []any{start}
		resp   []*state.ContainedNotificationEvent
	)
	if limit > 0 {
		params = append(params, limit)
	}
	if err := c.performRequest("getnotifications", params, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DecodeParams decodes parameters carried by Log events using the node.
func (c *Client) DecodeParams(b []byte) (neorpc.Params, error) {
	var resp neorpc.Params
	if err := c.performRequest("decodeparams", []any{base64.StdEncoding.EncodeToString(b)}, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RegisterQuery registers a query on behalf of the signer identity and
// returns its ID.
func (c *Client) RegisterQuery(signer *keys.PrivateKey, op operation.Code, path, query []any, options string) (util.Uint256, error) {
	return c.registerQuery("registerquery", signer, neorpc.QueryParams{
		Operation:   &op,
		PathParams:  path,
		QueryParams: query,
		Options:     options,
	})
}

// Query registers a query using the per-operation method (like getalerts)
// on behalf of the signer identity.
func (c *Client) Query(signer *keys.PrivateKey, op operation.Code, path, query []any, options string) (util.Uint256, error) {
	return c.registerQuery(strings.ToLower(op.String()), signer, neorpc.QueryParams{
		PathParams:  path,
		QueryParams: query,
		Options:     options,
	})
}

func (c *Client) registerQuery(method string, signer *keys.PrivateKey, qp neorpc.QueryParams) (util.Uint256, error) {
	var resp = &result.Query{}
	if err := c.performSigned(method, signer, qp, resp); err != nil {
		return util.Uint256{}, err
	}
	return resp.ID, nil
}

// Fulfill delivers the response to the query with the given ID. The signer
// must be the oracle.
func (c *Client) Fulfill(signer *keys.PrivateKey, id util.Uint256, op operation.Code, status uint32, response []byte) error {
	var resp bool
	return c.performSigned("fulfill", signer, neorpc.FulfillParams{
		ID:        id,
		Operation: op,
		Status:    status,
		Response:  response,
	}, &resp)
}

func (c *Client) performSigned(method string, signer *keys.PrivateKey, p any, v any) error {
	magic, err := c.GetNetwork()
	if err != nil {
		return err
	}
	inv, err := neorpc.NewSignedInvocation(magic, method, c.getNonce(), p, signer)
	if err != nil {
		return err
	}
	return c.performRequest(method, []any{inv}, v)
}

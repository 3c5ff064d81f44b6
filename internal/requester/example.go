/*
Package requester contains an example requester issuing weather data queries
with fixed parameters, one method per operation.
*/
package requester

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/interop"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"go.uber.org/zap"
)

// Bridge is the part of the bridge API used by the example requester.
type Bridge interface {
	RegisterRequester(h util.Uint160, r interop.Requester)
	RegisterQuery(caller util.Uint160, op operation.Code, path, query []any, options string) (util.Uint256, error)
	GetQueryResult(id util.Uint256) (*state.QueryResult, error)
}

// Example is a requester with fixed query parameters. Responses are stored
// in the bridge and can be read with Result.
type Example struct {
	hash   util.Uint160
	bridge Bridge
}

// ErrUnknownOperation is returned for operations Example doesn't issue.
var ErrUnknownOperation = errors.New("unknown operation")

type queryParams struct {
	path  []any
	query []any
}

var fixedParams = map[operation.Code]queryParams{
	operation.GetAlerts:            {path: []any{"closest"}, query: []any{"p", "55403"}},
	operation.GetCountries:         {path: []any{"us"}},
	operation.GetForecasts:         {path: []any{"seattle,wa"}},
	operation.GetLightningSummary:  {path: []any{"atlanta,ga"}},
	operation.GetObservations:      {path: []any{"55403"}},
	operation.GetPhrasesSummary:    {path: []any{"toronto,canada"}},
	operation.GetPlacesPostalcodes: {path: []any{"55403"}},
	operation.GetSunmoonMoonphases: {path: []any{"minneapolis,mn"}},
	operation.GetSunmoon:           {path: []any{"minneapolis,mn"}},
}

// NewExample creates an example requester acting as h and attaches it to
// the bridge.
func NewExample(b Bridge, h util.Uint160) *Example {
	e := &Example{hash: h, bridge: b}
	b.RegisterRequester(h, e)
	return e
}

// Hash returns the requester identity.
func (e *Example) Hash() util.Uint160 {
	return e.hash
}

// Query registers a query of the given operation with its fixed parameters.
func (e *Example) Query(op operation.Code) (util.Uint256, error) {
	p, ok := fixedParams[op]
	if !ok {
		return util.Uint256{}, fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	return e.bridge.RegisterQuery(e.hash, op, p.path, p.query, "")
}

// GetAlerts requests alerts for the closest location to 55403.
func (e *Example) GetAlerts() (util.Uint256, error) {
	return e.Query(operation.GetAlerts)
}

// GetCountries requests country information for the US.
func (e *Example) GetCountries() (util.Uint256, error) {
	return e.Query(operation.GetCountries)
}

// GetForecasts requests Seattle forecasts.
func (e *Example) GetForecasts() (util.Uint256, error) {
	return e.Query(operation.GetForecasts)
}

// GetLightningSummary requests Atlanta lightning summary.
func (e *Example) GetLightningSummary() (util.Uint256, error) {
	return e.Query(operation.GetLightningSummary)
}

// GetObservations requests observations for 55403.
func (e *Example) GetObservations() (util.Uint256, error) {
	return e.Query(operation.GetObservations)
}

// GetPhrasesSummary requests Toronto weather phrases.
func (e *Example) GetPhrasesSummary() (util.Uint256, error) {
	return e.Query(operation.GetPhrasesSummary)
}

// GetPlacesPostalcodes requests place information for 55403.
func (e *Example) GetPlacesPostalcodes() (util.Uint256, error) {
	return e.Query(operation.GetPlacesPostalcodes)
}

// GetSunmoonMoonphases requests Minneapolis moon phases.
func (e *Example) GetSunmoonMoonphases() (util.Uint256, error) {
	return e.Query(operation.GetSunmoonMoonphases)
}

// GetSunmoon requests Minneapolis sun and moon data.
func (e *Example) GetSunmoon() (util.Uint256, error) {
	return e.Query(operation.GetSunmoon)
}

// Result returns the response delivered for the query.
func (e *Example) Result(id util.Uint256) (*state.QueryResult, error) {
	return e.bridge.GetQueryResult(id)
}

// Receive implements interop.Requester. Responses for operations Example
// never issues are rejected.
func (e *Example) Receive(ic *interop.Context, id util.Uint256, op operation.Code, status uint32, response []byte) error {
	if _, ok := fixedParams[op]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOperation, op)
	}
	ic.Log.Debug("example requester got response",
		zap.Stringer("id", id),
		zap.Stringer("operation", op),
		zap.Uint32("status", status))
	return ic.DAO.PutQueryResult(&state.QueryResult{
		ID:         id,
		Operation:  op,
		StatusCode: status,
		Response:   response,
	})
}

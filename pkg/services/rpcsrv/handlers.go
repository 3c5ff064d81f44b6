package rpcsrv

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/native"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	codec "github.com/nspcc-dev/oracle-bridge/pkg/encoding/params"
	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc"
	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc/result"
	"github.com/nspcc-dev/oracle-bridge/pkg/services/rpcsrv/params"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

type rpcHandler = func(*Server, params.Params) (any, *neorpc.Error)

var rpcHandlers = map[string]rpcHandler{
	"decodeparams":         (*Server).decodeParams,
	"fulfill":              (*Server).fulfill,
	"getalerts":            operationHandler(operation.GetAlerts),
	"getcountries":         operationHandler(operation.GetCountries),
	"getforecasts":         operationHandler(operation.GetForecasts),
	"getlightningsummary":  operationHandler(operation.GetLightningSummary),
	"getnotifications":     (*Server).getNotifications,
	"getobservations":      operationHandler(operation.GetObservations),
	"getoracle":            (*Server).getOracle,
	"getpendingqueries":    (*Server).getPendingQueries,
	"getpendingquery":      (*Server).getPendingQuery,
	"getphrasessummary":    operationHandler(operation.GetPhrasesSummary),
	"getplacespostalcodes": operationHandler(operation.GetPlacesPostalcodes),
	"getqueryresult":       (*Server).getQueryResult,
	"getsunmoon":           operationHandler(operation.GetSunmoon),
	"getsunmoonmoonphases": operationHandler(operation.GetSunmoonMoonphases),
	"getversion":           (*Server).getVersion,
	"registerquery":        (*Server).registerQuery,
}

func (s *Server) getVersion(_ params.Params) (any, *neorpc.Error) {
	return &result.Version{
		UserAgent: "/oracle-bridge:" + config.Version + "/",
		Protocol: result.Protocol{
			AddressVersion: address.Prefix,
			Network:        s.chain.GetConfig().Magic,
			Oracle:         address.Uint160ToString(s.chain.OracleAddress()),
		},
		RPC: result.RPC{
			MaxNotificationsLimit: s.config.MaxNotificationsLimit,
			MaxRequestBodyBytes:   int64(s.config.MaxRequestBodyBytes),
		},
	}, nil
}

func (s *Server) getOracle(_ params.Params) (any, *neorpc.Error) {
	h := s.chain.OracleAddress()
	return &result.Oracle{
		Address:    address.Uint160ToString(h),
		ScriptHash: h,
	}, nil
}

func (s *Server) getPendingQuery(reqParams params.Params) (any, *neorpc.Error) {
	id, err := reqParams.Value(0).GetUint256()
	if err != nil {
		return nil, invalidParams(fmt.Sprintf("invalid query ID: %s", err))
	}
	pq, err := s.chain.GetPendingQuery(id)
	if err != nil {
		return nil, bridgeError(err)
	}
	return pq, nil
}

func (s *Server) getPendingQueries(_ params.Params) (any, *neorpc.Error) {
	pqs, err := s.chain.GetPendingQueries()
	if err != nil {
		return nil, bridgeError(err)
	}
	if pqs == nil {
		pqs = []*state.PendingQuery{}
	}
	return pqs, nil
}

func (s *Server) getQueryResult(reqParams params.Params) (any, *neorpc.Error) {
	id, err := reqParams.Value(0).GetUint256()
	if err != nil {
		return nil, invalidParams(fmt.Sprintf("invalid query ID: %s", err))
	}
	res, err := s.chain.GetQueryResult(id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, neorpc.WrapErrorWithData(neorpc.ErrUnknownQuery, "no result for "+id.StringLE())
		}
		return nil, bridgeError(err)
	}
	return res, nil
}

func (s *Server) getNotifications(reqParams params.Params) (any, *neorpc.Error) {
	start, err := reqParams.Value(0).GetInt()
	if err != nil || start < 0 {
		return nil, invalidParams("invalid start index")
	}
	limit := s.config.MaxNotificationsLimit
	if p := reqParams.Value(1); p != nil {
		l, err := p.GetInt()
		if err != nil {
			return nil, invalidParams(fmt.Sprintf("invalid limit: %s", err))
		}
		if l <= 0 || l > s.config.MaxNotificationsLimit {
			return nil, invalidParams(fmt.Sprintf("limit should be in [1, %d] range", s.config.MaxNotificationsLimit))
		}
		limit = l
	}
	evs, err := s.chain.GetNotifications(uint64(start), limit)
	if err != nil {
		return nil, bridgeError(err)
	}
	if evs == nil {
		evs = []*state.ContainedNotificationEvent{}
	}
	return evs, nil
}

func (s *Server) decodeParams(reqParams params.Params) (any, *neorpc.Error) {
	b, err := reqParams.Value(0).GetBytesBase64()
	if err != nil {
		return nil, invalidParams(fmt.Sprintf("not a base64 string: %s", err))
	}
	ps, err := codec.Decode(b)
	if err != nil {
		return nil, invalidParams(err.Error())
	}
	return neorpc.Params(ps), nil
}

// verifyInvocation checks the signed invocation passed as the only parameter
// and decodes its parameters into v. It returns the caller identity.
func (s *Server) verifyInvocation(method string, reqParams params.Params, v any) (util.Uint160, *neorpc.Error) {
	inv, err := reqParams.Value(0).GetSignedInvocation()
	if err != nil {
		return util.Uint160{}, invalidParams(err.Error())
	}
	caller, err := inv.Verify(s.chain.GetConfig().Magic, method)
	if err != nil {
		return util.Uint160{}, invalidParams(err.Error())
	}
	if err := inv.DecodeParams(v); err != nil {
		return util.Uint160{}, invalidParams(fmt.Sprintf("bad invocation params: %s", err))
	}
	if respErr := s.useNonce(caller, inv.Nonce); respErr != nil {
		return util.Uint160{}, respErr
	}
	return caller, nil
}

// useNonce rejects nonces already used by the caller and records the new
// one.
func (s *Server) useNonce(caller util.Uint160, nonce uint64) *neorpc.Error {
	s.nonceLock.Lock()
	defer s.nonceLock.Unlock()

	floor, ok := s.nonceFloors[caller]
	if !ok {
		var err error
		floor, err = s.chain.GetLastNonce(caller)
		if err != nil {
			return neorpc.NewInternalServerError(fmt.Sprintf("can't read nonce: %s", err))
		}
		s.nonceFloors[caller] = floor
	}
	key := nonceKey{caller: caller, nonce: nonce}
	if nonce <= floor || s.nonces.Contains(key) {
		return neorpc.WrapErrorWithData(neorpc.ErrReplayedNonce, strconv.FormatUint(nonce, 10))
	}
	if err := s.chain.UseNonce(caller, nonce); err != nil {
		return neorpc.NewInternalServerError(fmt.Sprintf("can't store nonce: %s", err))
	}
	s.nonces.Add(key, struct{}{})
	return nil
}

// raiseNonceFloor is called by the nonce cache on eviction, with nonceLock
// held.
func (s *Server) raiseNonceFloor(key, _ any) {
	k := key.(nonceKey)
	s.nonceFloors[k.caller] = max(s.nonceFloors[k.caller], k.nonce)
}

func (s *Server) registerQuery(reqParams params.Params) (any, *neorpc.Error) {
	var qp neorpc.QueryParams
	caller, respErr := s.verifyInvocation("registerquery", reqParams, &qp)
	if respErr != nil {
		return nil, respErr
	}
	if qp.Operation == nil {
		return nil, invalidParams("operation is missing")
	}
	return s.register(caller, *qp.Operation, qp)
}

// operationHandler returns a handler registering queries of the given
// operation.
func operationHandler(op operation.Code) rpcHandler {
	method := strings.ToLower(op.String())
	return func(s *Server, reqParams params.Params) (any, *neorpc.Error) {
		var qp neorpc.QueryParams
		caller, respErr := s.verifyInvocation(method, reqParams, &qp)
		if respErr != nil {
			return nil, respErr
		}
		if qp.Operation != nil && *qp.Operation != op {
			return nil, invalidParams(fmt.Sprintf("operation mismatch: %s", *qp.Operation))
		}
		return s.register(caller, op, qp)
	}
}

func (s *Server) register(caller util.Uint160, op operation.Code, qp neorpc.QueryParams) (any, *neorpc.Error) {
	id, err := s.chain.RegisterQuery(caller, op, qp.PathParams, qp.QueryParams, qp.Options)
	if err != nil {
		return nil, bridgeError(err)
	}
	return &result.Query{ID: id}, nil
}

func (s *Server) fulfill(reqParams params.Params) (any, *neorpc.Error) {
	var fp neorpc.FulfillParams
	caller, respErr := s.verifyInvocation("fulfill", reqParams, &fp)
	if respErr != nil {
		return nil, respErr
	}
	err := s.chain.Fulfill(caller, fp.ID, fp.Operation, fp.Status, fp.Response)
	if err != nil {
		return nil, bridgeError(err)
	}
	return true, nil
}

// bridgeError converts bridge errors to RPC ones.
func bridgeError(err error) *neorpc.Error {
	switch {
	case errors.Is(err, native.ErrUnauthorized):
		return neorpc.WrapErrorWithData(neorpc.ErrUnauthorized, err.Error())
	case errors.Is(err, native.ErrUnknownOrFulfilledQuery):
		return neorpc.WrapErrorWithData(neorpc.ErrUnknownQuery, err.Error())
	case errors.Is(err, native.ErrBigArgument), errors.Is(err, codec.ErrCodec),
		errors.Is(err, codec.ErrUnsupportedType):
		return invalidParams(err.Error())
	case errors.Is(err, native.ErrCallbackFailed):
		return neorpc.WrapErrorWithData(neorpc.ErrInvocationFailed, err.Error())
	default:
		return neorpc.NewInternalServerError(err.Error())
	}
}

func invalidParams(data string) *neorpc.Error {
	return neorpc.WrapErrorWithData(neorpc.ErrInvalidParams, data)
}

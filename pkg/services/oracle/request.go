package oracle

import (
	"context"
	"errors"
	"fmt"
	gio "io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/native"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/state"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/params"
	"go.uber.org/zap"
)

// Status codes delivered for queries that got no upstream answer. Upstream
// answers are delivered with the status they came with.
const (
	StatusInvalidRequest   = http.StatusBadRequest
	StatusResponseTooLarge = http.StatusRequestEntityTooLarge
	StatusUnreachable      = http.StatusServiceUnavailable
	StatusTimeout          = http.StatusGatewayTimeout
)

// ErrResponseTooLarge is returned when a response exceeds the max allowed size.
var ErrResponseTooLarge = errors.New("too big response")

// errUnknownOperation is returned for operations with no provider endpoint.
var errUnknownOperation = errors.New("unknown operation")

// endpoints maps operations to provider API paths.
var endpoints = map[operation.Code]string{
	operation.GetAlerts:            "alerts",
	operation.GetCountries:         "countries",
	operation.GetForecasts:         "forecasts",
	operation.GetLightningSummary:  "lightning/summary",
	operation.GetObservations:      "observations",
	operation.GetPhrasesSummary:    "phrases/summary",
	operation.GetPlacesPostalcodes: "places/postalcodes",
	operation.GetSunmoonMoonphases: "sunmoon/moonphases",
	operation.GetSunmoon:           "sunmoon",
}

// processRequest fetches data for the query and fulfills it.
func (o *Oracle) processRequest(ctx context.Context, req *state.LogEvent) {
	log := o.Log.With(
		zap.String("request", uuid.NewString()),
		zap.Stringer("id", req.ID),
		zap.Stringer("operation", req.Operation))

	start := time.Now()
	status, body := o.serve(ctx, log, req)
	if ctx.Err() != nil {
		log.Debug("oracle service is stopping, query is left pending")
		return
	}
	err := o.fulfill(ctx, log, req, status, body)
	switch {
	case err == nil:
		log.Info("query fulfilled",
			zap.Uint32("status", status),
			zap.Int("size", len(body)),
			zap.Duration("took", time.Since(start)))
		updateRequestMetrics(status, time.Since(start))
	case errors.Is(err, native.ErrUnknownOrFulfilledQuery):
		log.Debug("query is already fulfilled")
	case ctx.Err() != nil:
		log.Debug("oracle service is stopping, query is left pending")
	default:
		// Forget the query so that it's served again once seen by catch up.
		o.seen.Remove(req.ID)
		log.Error("failed to fulfill query, it's left pending", zap.Error(err))
	}
}

// fulfill delivers the response retrying failed attempts. The query being
// fulfilled already or the oracle not being authorized are not retried.
func (o *Oracle) fulfill(ctx context.Context, log *zap.Logger, req *state.LogEvent, status uint32, body []byte) error {
	for attempt := 0; ; attempt++ {
		err := o.Chain.Fulfill(o.account.ScriptHash(), req.ID, req.Operation, status, body)
		if err == nil || errors.Is(err, native.ErrUnknownOrFulfilledQuery) {
			return err
		}
		fulfillErrors.Inc()
		if errors.Is(err, native.ErrUnauthorized) || attempt >= o.MainCfg.MaxRetries {
			return err
		}
		log.Debug("fulfill failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.MainCfg.RetryInterval):
		}
	}
}

// serve returns the status and the response to deliver for the query.
func (o *Oracle) serve(ctx context.Context, log *zap.Logger, req *state.LogEvent) (uint32, []byte) {
	u, err := o.buildURL(req)
	if err != nil {
		log.Debug("invalid query", zap.Error(err))
		return StatusInvalidRequest, nil
	}
	var (
		status int
		body   []byte
	)
	for attempt := 0; ; attempt++ {
		status, body, err = o.fetch(ctx, u)
		if !shouldRetry(status, err) || attempt >= o.MainCfg.MaxRetries {
			break
		}
		log.Debug("fetch failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("status", status),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return 0, nil
		case <-time.After(o.MainCfg.RetryInterval):
		}
	}
	if ctx.Err() != nil {
		return 0, nil
	}
	switch {
	case err == nil:
		return uint32(status), body
	case errors.Is(err, ErrResponseTooLarge):
		log.Debug("response is too big", zap.Int64("limit", o.MainCfg.MaxResponseSize))
		return StatusResponseTooLarge, nil
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		log.Warn("provider timeout", zap.Error(err))
		return StatusTimeout, nil
	default:
		log.Warn("provider is unreachable", zap.Error(err))
		return StatusUnreachable, nil
	}
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		return !errors.Is(err, ErrResponseTooLarge) && !errors.Is(err, context.Canceled)
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// buildURL makes the provider URL for the query. Path parameters are
// appended as path segments, query parameters are key-value pairs and options
// are extra URL-encoded query parameters. Credentials can't be overridden.
func (o *Oracle) buildURL(req *state.LogEvent) (string, error) {
	endpoint, ok := endpoints[req.Operation]
	if !ok {
		return "", fmt.Errorf("%w: %d", errUnknownOperation, req.Operation)
	}
	path, err := params.Decode(req.PathParams)
	if err != nil {
		return "", fmt.Errorf("path params: %w", err)
	}
	query, err := params.Decode(req.QueryParams)
	if err != nil {
		return "", fmt.Errorf("query params: %w", err)
	}
	if len(query)%2 != 0 {
		return "", errors.New("query params are not key-value pairs")
	}
	values, err := url.ParseQuery(req.Options)
	if err != nil {
		return "", fmt.Errorf("options: %w", err)
	}

	u, err := url.Parse(o.MainCfg.BaseURL)
	if err != nil {
		return "", err
	}
	segments := []string{strings.TrimSuffix(u.Path, "/"), endpoint}
	for _, p := range params.Strings(path) {
		segments = append(segments, url.PathEscape(p))
	}
	u.RawPath = strings.Join(segments, "/")
	u.Path, err = url.PathUnescape(u.RawPath)
	if err != nil {
		return "", err
	}

	qs := params.Strings(query)
	for i := 0; i < len(qs); i += 2 {
		values.Set(qs[i], qs[i+1])
	}
	if o.MainCfg.ClientID != "" {
		values.Set("client_id", o.MainCfg.ClientID)
	}
	if o.MainCfg.ClientSecret != "" {
		values.Set("client_secret", o.MainCfg.ClientSecret)
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// fetch performs a single GET request and returns the status and the body.
func (o *Oracle) fetch(ctx context.Context, u string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.MainCfg.RequestTimeout)
	defer cancel()
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	r.Header.Set("Accept", "application/json")
	resp, err := o.Client.Do(r)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := readResponse(resp.Body, int(o.MainCfg.MaxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func readResponse(rc gio.Reader, limit int) ([]byte, error) {
	buf := make([]byte, limit+1)
	n, err := gio.ReadFull(rc, buf)
	if (errors.Is(err, gio.ErrUnexpectedEOF) || errors.Is(err, gio.EOF)) && n <= limit {
		return buf[:n], nil
	}
	if err == nil || n > limit {
		return nil, ErrResponseTooLarge
	}
	return nil, err
}

package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/metrics"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// HTTPSource queries a remote oracle that exposes
//
//	GET {base}/lastprice/{asset}
//	GET {base}/price/{asset}/{timestamp}
//
// each answering {"price": "<integer>", "timestamp": <unix seconds>}. A 404
// or a null price is an empty answer; a 501 on the historical endpoint is
// ErrNotImplemented.
type HTTPSource struct {
	id      string
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// NewHTTPSource creates a source allowing rps requests per second. A
// non-positive rps disables rate limiting.
func NewHTTPSource(tracer trace.Tracer, id, baseURL string, rps float64, burst int) *HTTPSource {
	return &HTTPSource{
		id:      id,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracer,
		limiter: newLimiter(rps, burst),
	}
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func (s *HTTPSource) LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error) {
	ctx, span := s.tracer.Start(ctx, "http-source.lastprice",
		trace.WithAttributes(attribute.String("asset", asset.String())))
	defer span.End()

	body, status, err := s.get(ctx, fmt.Sprintf("%s/lastprice/%s", s.baseURL, url.PathEscape(asset.String())))
	if err != nil {
		return nil, fmt.Errorf("lastprice %s: %w", asset, err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return parsePriceBody(body)
}

func (s *HTTPSource) PriceAt(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error) {
	ctx, span := s.tracer.Start(ctx, "http-source.price",
		trace.WithAttributes(attribute.String("asset", asset.String())))
	defer span.End()

	body, status, err := s.get(ctx, fmt.Sprintf("%s/price/%s/%d", s.baseURL, url.PathEscape(asset.String()), timestamp))
	if err != nil {
		return nil, fmt.Errorf("price %s at %d: %w", asset, timestamp, err)
	}
	switch status {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusNotImplemented:
		return nil, domain.ErrNotImplemented
	}
	return parsePriceBody(body)
}

// get returns the body of a 2xx response. 404 and 501 are reported through
// status with a nil error; any other status is an error.
func (s *HTTPSource) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(s.id, "error", time.Since(start))
		return nil, 0, err
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(s.id, strconv.Itoa(resp.StatusCode), time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNotImplemented:
		return nil, resp.StatusCode, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, resp.StatusCode, fmt.Errorf("upstream %s error %d: %s", s.id, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	return body, resp.StatusCode, err
}

func parsePriceBody(body []byte) (*domain.PriceData, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("malformed price response")
	}
	res := gjson.ParseBytes(body)
	price := res.Get("price")
	if !price.Exists() || price.Type == gjson.Null {
		return nil, nil
	}

	raw := price.String()
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("malformed price %q", raw)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative price %q", raw)
	}

	ts := res.Get("timestamp")
	if ts.Type != gjson.Number {
		return nil, fmt.Errorf("malformed timestamp %q", ts.Raw)
	}
	return &domain.PriceData{Price: value, Timestamp: ts.Uint()}, nil
}

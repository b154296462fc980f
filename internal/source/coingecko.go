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

	"oracle-aggregator/internal/decimals"
	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/metrics"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	coingeckoBaseURL = "https://api.coingecko.com/api/v3"
	// coingeckoHistoryWindow is how far before the requested time a
	// market_chart sample may lie and still answer a historical query.
	coingeckoHistoryWindow = 3600
)

type CoinGeckoOptions struct {
	ID         string
	BaseURL    string
	APIKey     string
	VsCurrency string
	// Decimals is the fixed-point precision prices are reported in.
	Decimals uint32
	// Coins maps each asset to its CoinGecko coin id.
	Coins     map[domain.Asset]string
	RateLimit float64
	Burst     int
}

// CoinGeckoSource turns CoinGecko's float quotes into fixed-point prices.
type CoinGeckoSource struct {
	id         string
	client     *http.Client
	baseURL    string
	apiKey     string
	vsCurrency string
	decimals   uint32
	coins      map[domain.Asset]string
	tracer     trace.Tracer
	limiter    *rate.Limiter
	now        func() time.Time
}

// NewCoinGeckoSource defaults to the free API limit of 8 requests per minute
// when no rate limit is configured.
func NewCoinGeckoSource(tracer trace.Tracer, opts CoinGeckoOptions) *CoinGeckoSource {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = coingeckoBaseURL
	}
	vs := strings.ToLower(opts.VsCurrency)
	if vs == "" {
		vs = "usd"
	}
	limiter := rate.NewLimiter(rate.Every(7500*time.Millisecond), 8)
	if opts.RateLimit > 0 {
		limiter = newLimiter(opts.RateLimit, opts.Burst)
	}
	coins := make(map[domain.Asset]string, len(opts.Coins))
	for a, id := range opts.Coins {
		coins[a] = id
	}

	return &CoinGeckoSource{
		id:         opts.ID,
		client:     &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     opts.APIKey,
		vsCurrency: vs,
		decimals:   opts.Decimals,
		coins:      coins,
		tracer:     tracer,
		limiter:    limiter,
		now:        time.Now,
	}
}

func (s *CoinGeckoSource) LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error) {
	ctx, span := s.tracer.Start(ctx, "coingecko.lastprice",
		trace.WithAttributes(attribute.String("asset", asset.String())))
	defer span.End()

	coin, ok := s.coins[asset]
	if !ok {
		return nil, nil
	}

	q := url.Values{}
	q.Set("ids", coin)
	q.Set("vs_currencies", s.vsCurrency)
	q.Set("include_last_updated_at", "true")
	q.Set("precision", "full")

	body, err := s.doRequest(ctx, s.baseURL+"/simple/price?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch price for %s: %w", asset, err)
	}

	// Response shape: {"bitcoin": {"usd": 97000.12, "last_updated_at": 1700000000}}
	entry := gjson.GetBytes(body, gjson.Escape(coin))
	quote := entry.Get(s.vsCurrency)
	if !quote.Exists() {
		return nil, nil
	}
	price, err := s.toFixed(quote)
	if err != nil {
		return nil, fmt.Errorf("parse price for %s: %w", asset, err)
	}

	ts := entry.Get("last_updated_at").Uint()
	if ts == 0 {
		ts = uint64(s.now().Unix())
	}
	return &domain.PriceData{Price: price, Timestamp: ts}, nil
}

// PriceAt answers with the newest market_chart sample at or before timestamp.
func (s *CoinGeckoSource) PriceAt(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error) {
	ctx, span := s.tracer.Start(ctx, "coingecko.price",
		trace.WithAttributes(attribute.String("asset", asset.String())))
	defer span.End()

	coin, ok := s.coins[asset]
	if !ok {
		return nil, nil
	}

	from := uint64(0)
	if timestamp > coingeckoHistoryWindow {
		from = timestamp - coingeckoHistoryWindow
	}
	q := url.Values{}
	q.Set("vs_currency", s.vsCurrency)
	q.Set("from", strconv.FormatUint(from, 10))
	q.Set("to", strconv.FormatUint(timestamp, 10))
	q.Set("precision", "full")

	body, err := s.doRequest(ctx, fmt.Sprintf("%s/coins/%s/market_chart/range?%s", s.baseURL, url.PathEscape(coin), q.Encode()))
	if err != nil {
		return nil, fmt.Errorf("fetch market chart for %s: %w", asset, err)
	}

	// Response shape: {"prices": [[1700000000000, 97000.12], ...], ...}
	limitMs := timestamp * 1000
	var best gjson.Result
	var bestMs uint64
	gjson.GetBytes(body, "prices").ForEach(func(_, pt gjson.Result) bool {
		ms := pt.Get("0").Uint()
		if ms <= limitMs && (!best.Exists() || ms > bestMs) {
			best = pt.Get("1")
			bestMs = ms
		}
		return true
	})
	if !best.Exists() {
		return nil, nil
	}

	price, err := s.toFixed(best)
	if err != nil {
		return nil, fmt.Errorf("parse market chart for %s: %w", asset, err)
	}
	return &domain.PriceData{Price: price, Timestamp: bestMs / 1000}, nil
}

// toFixed parses the raw JSON number so no precision is lost to float64.
func (s *CoinGeckoSource) toFixed(v gjson.Result) (*big.Int, error) {
	if v.Type != gjson.Number {
		return nil, errors.New("quote is not a number")
	}
	d, err := decimal.NewFromString(v.Raw)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative quote %s", v.Raw)
	}
	return decimals.FromDecimal(d, s.decimals), nil
}

func (s *CoinGeckoSource) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(s.id, "error", time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	metrics.RecordUpstreamRequest(s.id, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

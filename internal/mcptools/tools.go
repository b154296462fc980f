// Package mcptools exposes read-only aggregator queries as MCP tools.
package mcptools

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"oracle-aggregator/internal/decimals"
	"oracle-aggregator/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reader is the aggregator surface the tools query.
type Reader interface {
	LastPrice(ctx context.Context, asset domain.Asset) (*domain.PriceData, error)
	Price(ctx context.Context, asset domain.Asset, timestamp uint64) (*domain.PriceData, error)
	Assets(ctx context.Context) ([]domain.Asset, error)
	Decimals(ctx context.Context) (uint32, error)
	Base(ctx context.Context) (domain.Asset, error)
}

const Version = "1.0.0"

type LastPriceInput struct {
	Asset string `json:"asset" jsonschema:"asset as kind:code, e.g. other:USDC or stellar:GABC..."`
}

type PriceInput struct {
	Asset     string `json:"asset" jsonschema:"asset as kind:code"`
	Timestamp uint64 `json:"timestamp" jsonschema:"unix timestamp in seconds"`
}

type PriceOutput struct {
	Asset     string `json:"asset"`
	Found     bool   `json:"found"`
	Price     string `json:"price,omitempty"`
	Formatted string `json:"formatted,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
	Decimals  uint32 `json:"decimals"`
}

type AssetsInput struct{}

type AssetsOutput struct {
	Base     string   `json:"base"`
	Decimals uint32   `json:"decimals"`
	Assets   []string `json:"assets"`
}

type tools struct {
	tracer  trace.Tracer
	reader  Reader
	timeout time.Duration
}

// NewServer registers the lastprice, price and assets tools on a fresh MCP
// server. Each call is bounded by timeout.
func NewServer(tracer trace.Tracer, reader Reader, timeout time.Duration) *mcp.Server {
	t := &tools{tracer: tracer, reader: reader, timeout: timeout}
	server := mcp.NewServer(&mcp.Implementation{Name: "oracle-aggregator", Version: Version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lastprice",
		Description: "Most recent circuit-breaker-checked price of an asset, falling back to a cached price at most 300 seconds old.",
	}, t.lastPrice)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "price",
		Description: "Price of an asset at a past unix timestamp, read from the upstream source's history.",
	}, t.price)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "assets",
		Description: "Registered assets in registration order, with the base asset and output precision.",
	}, t.assets)
	return server
}

func (t *tools) start(ctx context.Context, name string) (context.Context, context.CancelFunc, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "mcp."+name)
	if t.timeout <= 0 {
		return ctx, func() {}, span
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	return ctx, cancel, span
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (t *tools) lastPrice(ctx context.Context, _ *mcp.CallToolRequest, in LastPriceInput) (*mcp.CallToolResult, PriceOutput, error) {
	ctx, cancel, span := t.start(ctx, "lastprice")
	defer cancel()
	defer span.End()

	asset, err := domain.ParseAsset(in.Asset)
	if err != nil {
		return nil, PriceOutput{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("asset", asset.String()))
	p, err := t.reader.LastPrice(ctx, asset)
	if err != nil {
		return nil, PriceOutput{}, fail(span, err)
	}
	out, err := t.output(ctx, asset, p)
	if err != nil {
		return nil, PriceOutput{}, fail(span, err)
	}
	return nil, out, nil
}

func (t *tools) price(ctx context.Context, _ *mcp.CallToolRequest, in PriceInput) (*mcp.CallToolResult, PriceOutput, error) {
	ctx, cancel, span := t.start(ctx, "price")
	defer cancel()
	defer span.End()

	asset, err := domain.ParseAsset(in.Asset)
	if err != nil {
		return nil, PriceOutput{}, fail(span, err)
	}
	span.SetAttributes(
		attribute.String("asset", asset.String()),
		attribute.Int64("timestamp", int64(in.Timestamp)),
	)
	p, err := t.reader.Price(ctx, asset, in.Timestamp)
	if err != nil {
		return nil, PriceOutput{}, fail(span, err)
	}
	out, err := t.output(ctx, asset, p)
	if err != nil {
		return nil, PriceOutput{}, fail(span, err)
	}
	return nil, out, nil
}

func (t *tools) output(ctx context.Context, asset domain.Asset, p *domain.PriceData) (PriceOutput, error) {
	dec, err := t.reader.Decimals(ctx)
	if err != nil {
		return PriceOutput{}, err
	}
	out := PriceOutput{Asset: asset.String(), Decimals: dec}
	if p == nil || p.Price == nil {
		return out, nil
	}
	out.Found = true
	out.Price = p.Price.String()
	out.Formatted = decimals.Format(p.Price, dec)
	out.Timestamp = p.Timestamp
	return out, nil
}

func (t *tools) assets(ctx context.Context, _ *mcp.CallToolRequest, _ AssetsInput) (*mcp.CallToolResult, AssetsOutput, error) {
	ctx, cancel, span := t.start(ctx, "assets")
	defer cancel()
	defer span.End()

	assets, err := t.reader.Assets(ctx)
	if err != nil {
		return nil, AssetsOutput{}, fail(span, err)
	}
	base, err := t.reader.Base(ctx)
	if err != nil {
		return nil, AssetsOutput{}, fail(span, err)
	}
	dec, err := t.reader.Decimals(ctx)
	if err != nil {
		return nil, AssetsOutput{}, fail(span, err)
	}
	out := AssetsOutput{Base: base.String(), Decimals: dec, Assets: make([]string, len(assets))}
	for i, a := range assets {
		out.Assets[i] = a.String()
	}
	return nil, out, nil
}

// HTTPHandler serves server over the streamable HTTP transport. A non-empty
// token requires a matching bearer Authorization header.
func HTTPHandler(server *mcp.Server, token string) http.Handler {
	h := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	if token == "" {
		return h
	}
	want := []byte("Bearer " + token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(strings.TrimSpace(r.Header.Get("Authorization")))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// Addr joins the configured bind address and port.
func Addr(bind string, port int) string {
	return net.JoinHostPort(bind, strconv.Itoa(port))
}

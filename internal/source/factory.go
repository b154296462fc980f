package source

import (
	"fmt"
	"strings"

	"oracle-aggregator/internal/decimals"
	"oracle-aggregator/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	TypeHTTP      = "http"
	TypeCoinGecko = "coingecko"
	TypeStatic    = "static"
)

// Definition describes one upstream source in the settings file.
type Definition struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	URL  string `yaml:"url"`
	// RateLimit is in requests per second; zero means the type's default.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`

	APIKey     string            `yaml:"api_key"`
	VsCurrency string            `yaml:"vs_currency"`
	Decimals   uint32            `yaml:"decimals"`
	Coins      map[string]string `yaml:"coins"`

	Prices []StaticPrice `yaml:"prices"`
}

// StaticPrice seeds a static source. Price is a decimal string at the
// source's precision. A zero Timestamp means the load time.
type StaticPrice struct {
	Asset     string `yaml:"asset"`
	Price     string `yaml:"price"`
	Timestamp uint64 `yaml:"timestamp"`
}

// Build constructs the source a definition describes. now stamps static
// prices that carry no timestamp.
func Build(tracer trace.Tracer, def Definition, now uint64) (Source, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("source definition without id")
	}
	if def.Decimals > domain.MaxDecimals {
		return nil, fmt.Errorf("source %s: decimals %d above %d", def.ID, def.Decimals, domain.MaxDecimals)
	}

	switch strings.ToLower(def.Type) {
	case TypeHTTP:
		if def.URL == "" {
			return nil, fmt.Errorf("source %s: url is required", def.ID)
		}
		return NewHTTPSource(tracer, def.ID, def.URL, def.RateLimit, def.Burst), nil

	case TypeCoinGecko:
		coins := make(map[domain.Asset]string, len(def.Coins))
		for raw, coin := range def.Coins {
			asset, err := domain.ParseAsset(raw)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", def.ID, err)
			}
			coins[asset] = coin
		}
		return NewCoinGeckoSource(tracer, CoinGeckoOptions{
			ID:         def.ID,
			BaseURL:    def.URL,
			APIKey:     def.APIKey,
			VsCurrency: def.VsCurrency,
			Decimals:   def.Decimals,
			Coins:      coins,
			RateLimit:  def.RateLimit,
			Burst:      def.Burst,
		}), nil

	case TypeStatic:
		src := NewStaticSource()
		for _, p := range def.Prices {
			asset, err := domain.ParseAsset(p.Asset)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", def.ID, err)
			}
			price, err := decimals.Parse(p.Price, def.Decimals)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", def.ID, err)
			}
			ts := p.Timestamp
			if ts == 0 {
				ts = now
			}
			src.Set(asset, price, ts)
		}
		return src, nil
	}
	return nil, fmt.Errorf("source %s: unknown type %q", def.ID, def.Type)
}

// BuildRegistry builds and registers every definition. Duplicate IDs are
// rejected.
func BuildRegistry(tracer trace.Tracer, defs []Definition, now uint64) (*Registry, error) {
	reg := NewRegistry()
	for _, def := range defs {
		if reg.Has(def.ID) {
			return nil, fmt.Errorf("duplicate source id %q", def.ID)
		}
		src, err := Build(tracer, def, now)
		if err != nil {
			return nil, err
		}
		reg.Register(def.ID, src)
	}
	return reg, nil
}

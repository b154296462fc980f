package aggregator

import (
	"context"

	"oracle-aggregator/internal/domain"
	"oracle-aggregator/internal/state"
)

// CacheMaxAge is the oldest cached price, in seconds, LastPrice will serve.
const CacheMaxAge = 300

// priceCache is the last-known-good price per asset.
type priceCache struct {
	txn *state.Txn
}

func (c priceCache) Record(asset domain.Asset, price domain.PriceData) {
	c.txn.SetLastFetchedPrice(asset, price)
}

// LookupIfFresh returns the cached price when it is at most maxAge seconds
// old. A timestamp ahead of now counts as age zero.
func (c priceCache) LookupIfFresh(ctx context.Context, asset domain.Asset, now, maxAge uint64) (*domain.PriceData, error) {
	last, err := c.txn.LastFetchedPrice(ctx, asset)
	if err != nil || last == nil {
		return nil, err
	}
	if now > last.Timestamp && now-last.Timestamp > maxAge {
		return nil, nil
	}
	return last, nil
}

func cacheAge(p *domain.PriceData, now uint64) uint64 {
	if p == nil || now <= p.Timestamp {
		return 0
	}
	return now - p.Timestamp
}

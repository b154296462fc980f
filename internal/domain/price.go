package domain

import "math/big"

// PriceData is a single fixed-point observation. Two values are only
// comparable when expressed at the same decimal precision.
type PriceData struct {
	Price     *big.Int `json:"price"`
	Timestamp uint64   `json:"timestamp"`
}

func NewPriceData(price int64, timestamp uint64) PriceData {
	return PriceData{Price: big.NewInt(price), Timestamp: timestamp}
}

// Clone returns a copy that does not share the underlying integer.
func (p PriceData) Clone() PriceData {
	out := PriceData{Timestamp: p.Timestamp}
	if p.Price != nil {
		out.Price = new(big.Int).Set(p.Price)
	}
	return out
}

// CircuitBreakerStatus is the per-asset breaker state.
type CircuitBreakerStatus struct {
	Tripped bool `json:"tripped"`
}

// BreakerState is the operator view of an asset's breaker.
type BreakerState struct {
	Tripped bool   `json:"tripped"`
	Until   uint64 `json:"until"`
}

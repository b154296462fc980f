// Package decimals converts fixed-point integer prices between precisions.
package decimals

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var ten = big.NewInt(10)

// Pow10 returns 10^n.
func Pow10(n uint32) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(n)), nil)
}

// Rescale converts value from one decimal precision to another. Scaling down
// truncates toward zero, so a round trip is lossy whenever digits are dropped.
// The input is never modified.
func Rescale(value *big.Int, from, to uint32) *big.Int {
	out := new(big.Int).Set(value)
	switch {
	case to > from:
		out.Mul(out, Pow10(to-from))
	case from > to:
		out.Quo(out, Pow10(from-to))
	}
	return out
}

// Unit is the fixed-point representation of 1 at the given precision.
func Unit(decimals uint32) *big.Int {
	return Pow10(decimals)
}

// Format renders a fixed-point value with exactly the given number of
// fractional digits, e.g. Format(1100000, 7) == "0.1100000".
func Format(value *big.Int, decimals uint32) string {
	if value == nil {
		return ""
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

// FromDecimal truncates d to a fixed-point integer at the given precision.
func FromDecimal(d decimal.Decimal, decimals uint32) *big.Int {
	return d.Shift(int32(decimals)).Truncate(0).BigInt()
}

// Parse reads a decimal string such as "0.11" into fixed point.
func Parse(s string, decimals uint32) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative price %q", s)
	}
	return FromDecimal(d, decimals), nil
}

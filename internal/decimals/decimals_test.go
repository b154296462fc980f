package decimals

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bi(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad int " + s)
	}
	return v
}

func TestRescaleDown(t *testing.T) {
	// 0.11 at 9 decimals -> 7 decimals
	assert.Equal(t, "1100000", Rescale(bi("110000000"), 9, 7).String())
}

func TestRescaleUp(t *testing.T) {
	// 1010.000000 at 6 decimals -> 7 decimals
	assert.Equal(t, "10100000000", Rescale(bi("1010000000"), 6, 7).String())
}

func TestRescaleSamePrecision(t *testing.T) {
	in := bi("12345")
	out := Rescale(in, 7, 7)
	assert.Equal(t, in.String(), out.String())
	out.SetInt64(1)
	assert.Equal(t, "12345", in.String(), "rescale must not alias its input")
}

func TestRescaleTruncates(t *testing.T) {
	assert.Equal(t, "1", Rescale(bi("19"), 1, 0).String())
	assert.Equal(t, "0", Rescale(bi("9"), 1, 0).String())
}

func TestRescaleRoundTrip(t *testing.T) {
	exact := bi("110000000")
	assert.Equal(t, exact.String(), Rescale(Rescale(exact, 9, 7), 7, 9).String())

	lossy := bi("110000019")
	assert.NotEqual(t, lossy.String(), Rescale(Rescale(lossy, 9, 7), 7, 9).String())
}

func TestRescaleWideValues(t *testing.T) {
	// ~10^12 with 9 decimals scaled to 18 decimals overflows int64 but not big.Int.
	v := bi("1000000000000000000000")
	got := Rescale(v, 9, 18)
	assert.Equal(t, "1000000000000000000000000000000", got.String())
	assert.Equal(t, v.String(), Rescale(got, 18, 9).String())
}

func TestUnit(t *testing.T) {
	assert.Equal(t, "10000000", Unit(7).String())
	assert.Equal(t, "1", Unit(0).String())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.1100000", Format(bi("1100000"), 7))
	assert.Equal(t, "1010.0000000", Format(bi("10100000000"), 7))
	assert.Equal(t, "42", Format(bi("42"), 0))
	assert.Equal(t, "", Format(nil, 7))
}

func TestParse(t *testing.T) {
	v, err := Parse("0.11", 9)
	require.NoError(t, err)
	assert.Equal(t, "110000000", v.String())

	v, err = Parse("97000.123456789123", 7)
	require.NoError(t, err)
	assert.Equal(t, "970001234567", v.String())

	_, err = Parse("abc", 7)
	assert.Error(t, err)
	_, err = Parse("-1", 7)
	assert.Error(t, err)
}

func TestFromDecimal(t *testing.T) {
	assert.Equal(t, "1234", FromDecimal(decimal.RequireFromString("1.2349"), 3).String())
}

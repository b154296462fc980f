package domain

import (
	"fmt"
	"strings"
)

type AssetKind string

const (
	// AssetStellar identifies an asset by its native ledger account address.
	AssetStellar AssetKind = "stellar"
	// AssetOther identifies an asset by a symbolic code such as USDC or wETH.
	AssetOther AssetKind = "other"
)

// Asset identifies a priceable instrument. It is a comparable value and is
// used directly as a map key.
type Asset struct {
	Kind AssetKind `json:"kind" yaml:"kind"`
	Code string    `json:"code" yaml:"code"`
}

func StellarAsset(address string) Asset {
	return Asset{Kind: AssetStellar, Code: address}
}

func OtherAsset(symbol string) Asset {
	return Asset{Kind: AssetOther, Code: symbol}
}

func (a Asset) String() string {
	return string(a.Kind) + ":" + a.Code
}

func (a Asset) Valid() bool {
	if strings.TrimSpace(a.Code) == "" {
		return false
	}
	return a.Kind == AssetStellar || a.Kind == AssetOther
}

// ParseAsset reads the canonical "kind:code" form. A bare code is treated as
// a symbolic asset.
func ParseAsset(s string) (Asset, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Asset{}, fmt.Errorf("empty asset")
	}
	kind, code, found := strings.Cut(s, ":")
	if !found {
		return OtherAsset(s), nil
	}
	a := Asset{Kind: AssetKind(strings.ToLower(kind)), Code: code}
	if !a.Valid() {
		return Asset{}, fmt.Errorf("invalid asset %q", s)
	}
	return a, nil
}

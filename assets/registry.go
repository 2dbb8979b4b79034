// Package assets is the read-only asset registry: denom metadata, fee
// eligibility and the unit conversions between display and minor amounts.
package assets

import (
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	"github.com/shopspring/decimal"
)

// DefaultExponent is used for denoms missing from the registry.
const DefaultExponent int32 = 6

type Asset struct {
	Denom       string
	Symbol      string
	Exponent    int32
	FeeEligible bool
	IsIBC       bool
	GasPrice    decimal.Decimal
}

// Registry is a denom keyed lookup. It is never mutated after construction.
type Registry struct {
	assets          map[string]Asset
	defaultFeeDenom string
}

func NewRegistry(entries []config.AssetEntry, defaultFeeDenom string) (*Registry, error) {
	r := &Registry{
		assets:          make(map[string]Asset, len(entries)),
		defaultFeeDenom: defaultFeeDenom,
	}
	for _, e := range entries {
		price := decimal.Zero
		if e.GasPrice != "" {
			p, err := decimal.NewFromString(e.GasPrice)
			if err != nil {
				return nil, fmt.Errorf("asset %s: bad gas price %q: %w", e.Denom, e.GasPrice, err)
			}
			price = p
		}
		r.assets[e.Denom] = Asset{
			Denom:       e.Denom,
			Symbol:      e.Symbol,
			Exponent:    e.Exponent,
			FeeEligible: e.FeeEligible,
			IsIBC:       e.IsIBC,
			GasPrice:    price,
		}
	}
	if _, ok := r.assets[defaultFeeDenom]; !ok {
		return nil, fmt.Errorf("default fee denom %s is not registered", defaultFeeDenom)
	}
	return r, nil
}

func (r *Registry) Lookup(denom string) (Asset, bool) {
	a, ok := r.assets[denom]
	return a, ok
}

// Exponent returns the decimal exponent of denom, DefaultExponent when unknown.
func (r *Registry) Exponent(denom string) int32 {
	if a, ok := r.assets[denom]; ok {
		return a.Exponent
	}
	return DefaultExponent
}

// FeeDenom picks the fee denom for a transfer of sentDenom: the sent asset when
// it is fee eligible, the network default otherwise.
func (r *Registry) FeeDenom(sentDenom string) string {
	if a, ok := r.assets[sentDenom]; ok && a.FeeEligible {
		return a.Denom
	}
	return r.defaultFeeDenom
}

func (r *Registry) DefaultFeeDenom() string {
	return r.defaultFeeDenom
}

// GasPrice returns the configured gas price of denom.
func (r *Registry) GasPrice(denom string) (decimal.Decimal, bool) {
	a, ok := r.assets[denom]
	if !ok || !a.FeeEligible {
		return decimal.Zero, false
	}
	return a.GasPrice, true
}

// SwapAsset is the minimal view IsValidSwap needs.
type SwapAsset struct {
	Denom string
	IsIBC bool
}

// IsValidSwap holds when both assets are native and the denoms differ.
func IsValidSwap(from, to SwapAsset) bool {
	return !from.IsIBC && !to.IsIBC && from.Denom != to.Denom
}

// SwapAssetOf resolves denom to a SwapAsset. Unknown denoms starting with
// "ibc/" are treated as bridged.
func (r *Registry) SwapAssetOf(denom string) SwapAsset {
	if a, ok := r.assets[denom]; ok {
		return SwapAsset{Denom: denom, IsIBC: a.IsIBC}
	}
	return SwapAsset{Denom: denom, IsIBC: len(denom) > 4 && denom[:4] == "ibc/"}
}

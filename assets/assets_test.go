package assets_test

import (
	"testing"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/assets"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	"github.com/zeebo/assert"
)

func newRegistry(t *testing.T) *assets.Registry {
	t.Helper()
	r, err := assets.NewRegistry([]config.AssetEntry{
		{Denom: "uluna", Symbol: "LUNC", Exponent: 6, FeeEligible: true, GasPrice: "28.325"},
		{Denom: "uusd", Symbol: "USTC", Exponent: 6, FeeEligible: true, GasPrice: "0.75"},
		{Denom: "note", Symbol: "NOTE", Exponent: 6},
		{Denom: "ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2", Symbol: "ATOM", Exponent: 6, IsIBC: true},
		{Denom: "wei", Symbol: "ETH", Exponent: 18},
	}, "uluna")
	assert.NoError(t, err)
	return r
}

func TestToMinor(t *testing.T) {
	tests := []struct {
		display  string
		exponent int32
		want     string
	}{
		{"1.5", 6, "1500000"},
		{"0", 6, "0"},
		{"1", 0, "1"},
		{"0.000001", 6, "1"},
		{"1.500000000", 6, "1500000"},
		{"2", 18, "2000000000000000000"},
	}
	for _, tt := range tests {
		got, err := assets.ToMinor(tt.display, tt.exponent)
		assert.NoError(t, err)
		assert.Equal(t, got, tt.want)
	}

	_, err := assets.ToMinor("abc", 6)
	assert.Error(t, err)
	_, err = assets.ToMinor("-1", 6)
	assert.Error(t, err)
	_, err = assets.ToMinor("1.0000009", 6)
	assert.Error(t, err)
	_, err = assets.ToMinor("0.5", 0)
	assert.Error(t, err)
	assert.Equal(t, assets.MinorOrZero("abc", 6), "0")
}

func TestToPositiveMinor(t *testing.T) {
	m, err := assets.ToPositiveMinor("0.000001", 6)
	assert.NoError(t, err)
	assert.Equal(t, m, "1")

	for _, display := range []string{"0", "0.0000001", "0.000000", "-0.1", "x"} {
		_, err := assets.ToPositiveMinor(display, 6)
		assert.Error(t, err)
	}
}

func TestDisplayMinorRoundTrip(t *testing.T) {
	minors := []string{"0", "1", "999999", "1500000", "123456789012345678901234567890"}
	for _, e := range []int32{0, 2, 6, 18} {
		for _, m := range minors {
			display, err := assets.ToDisplay(m, e)
			assert.NoError(t, err)
			minor, err := assets.ToMinor(display, e)
			assert.NoError(t, err)
			again, err := assets.ToDisplay(minor, e)
			assert.NoError(t, err)
			assert.Equal(t, again, display)
		}
	}
}

func TestIsValidSwap(t *testing.T) {
	note := assets.SwapAsset{Denom: "note", IsIBC: false}
	uusd := assets.SwapAsset{Denom: "uusd", IsIBC: false}
	atom := assets.SwapAsset{Denom: "ibc/ATOM", IsIBC: true}

	assert.True(t, assets.IsValidSwap(note, uusd))
	assert.False(t, assets.IsValidSwap(note, note))
	assert.False(t, assets.IsValidSwap(note, atom))
	assert.False(t, assets.IsValidSwap(atom, uusd))
}

func TestRegistry_FeeDenom(t *testing.T) {
	r := newRegistry(t)

	assert.Equal(t, r.FeeDenom("uusd"), "uusd")
	// not fee eligible
	assert.Equal(t, r.FeeDenom("note"), "uluna")
	// unknown
	assert.Equal(t, r.FeeDenom("uatom"), "uluna")
}

func TestRegistry_Lookups(t *testing.T) {
	r := newRegistry(t)

	assert.Equal(t, r.Exponent("wei"), int32(18))
	assert.Equal(t, r.Exponent("unknown"), assets.DefaultExponent)

	price, ok := r.GasPrice("uluna")
	assert.True(t, ok)
	assert.Equal(t, price.String(), "28.325")
	_, ok = r.GasPrice("note")
	assert.False(t, ok)

	assert.True(t, r.SwapAssetOf("ibc/27394FB092D2ECCD56123C74F36E4C1F926001CEADA9CA97EA622B25F41E5EB2").IsIBC)
	assert.True(t, r.SwapAssetOf("ibc/UNKNOWN").IsIBC)
	assert.False(t, r.SwapAssetOf("note").IsIBC)
}

func TestNewRegistry_UnknownDefaultFeeDenom(t *testing.T) {
	_, err := assets.NewRegistry([]config.AssetEntry{{Denom: "uluna", Exponent: 6}}, "uatom")
	assert.Error(t, err)
}

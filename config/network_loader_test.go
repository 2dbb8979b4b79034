package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	"github.com/zeebo/assert"
)

const networkTOML = `
chain_name = "terra"
chain_id = "columbus-5"
bech32_prefix = "terra"
level = "main"
default_fee_denom = "uluna"

[[endpoints]]
rest = "https://lcd.example.com"
rpc = "https://rpc.example.com"
provider = "example"

[[assets]]
denom = "uluna"
symbol = "LUNC"
exponent = 6
fee_eligible = true
gas_price = "28.325"

[[assets]]
denom = "uusd"
symbol = "USTC"
exponent = 6
`

func writeNetwork(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing network file: %v", err)
	}
	return path
}

func TestLoadNetworkConfig(t *testing.T) {
	n, err := LoadNetworkConfig(writeNetwork(t, networkTOML))
	assert.NoError(t, err)
	assert.Equal(t, n.ChainName, "terra")
	assert.Equal(t, len(n.Endpoints), 1)
	assert.Equal(t, len(n.Assets), 2)
	assert.Equal(t, n.Assets[0].GasPrice, "28.325")
	// default cosmos coin type
	assert.Equal(t, n.CoinType, uint32(118))
}

func TestNetworkConfig_Validate(t *testing.T) {
	base := func() NetworkConfig {
		return NetworkConfig{
			ChainName:       "terra",
			Bech32Prefix:    "terra",
			Level:           "main",
			DefaultFeeDenom: "uluna",
			Endpoints:       []EndpointEntry{{REST: "r", RPC: "p"}},
			Assets:          []AssetEntry{{Denom: "uluna", Exponent: 6, FeeEligible: true, GasPrice: "0.015"}},
		}
	}

	tests := []struct {
		name   string
		mutate func(n *NetworkConfig)
	}{
		{"bad level", func(n *NetworkConfig) { n.Level = "dev" }},
		{"no endpoints", func(n *NetworkConfig) { n.Endpoints = nil }},
		{"missing rpc", func(n *NetworkConfig) { n.Endpoints[0].RPC = "" }},
		{"unknown fee denom", func(n *NetworkConfig) { n.DefaultFeeDenom = "uatom" }},
		{"bad gas price", func(n *NetworkConfig) { n.Assets[0].GasPrice = "cheap" }},
		{"fee asset without price", func(n *NetworkConfig) { n.Assets[0].GasPrice = "" }},
		{"duplicate asset", func(n *NetworkConfig) { n.Assets = append(n.Assets, n.Assets[0]) }},
	}

	good := base()
	assert.NoError(t, good.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := base()
			tt.mutate(&n)
			assert.Error(t, n.Validate())
		})
	}
}

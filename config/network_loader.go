package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// LoadNetworkConfig reads and validates a network TOML file.
func LoadNetworkConfig(filePath string) (*NetworkConfig, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read network config file: %w", err)
	}
	var network NetworkConfig
	if err := toml.Unmarshal(data, &network); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	if err := network.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network config %s: %w", filePath, err)
	}
	return &network, nil
}

// Validate checks the fields the engine cannot run without.
func (n *NetworkConfig) Validate() error {
	if n.ChainName == "" {
		return fmt.Errorf("chain_name is required")
	}
	if n.Bech32Prefix == "" {
		return fmt.Errorf("bech32_prefix is required")
	}
	if n.Level != "main" && n.Level != "test" {
		return fmt.Errorf("level must be main or test, got %q", n.Level)
	}
	if len(n.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}
	for i, e := range n.Endpoints {
		if e.REST == "" || e.RPC == "" {
			return fmt.Errorf("endpoint %d: rest and rpc are required", i)
		}
	}

	seen := make(map[string]bool, len(n.Assets))
	feeDenomKnown := false
	for _, a := range n.Assets {
		if a.Denom == "" {
			return fmt.Errorf("asset with empty denom")
		}
		if seen[a.Denom] {
			return fmt.Errorf("duplicate asset %s", a.Denom)
		}
		seen[a.Denom] = true
		if a.Exponent < 0 || a.Exponent > 18 {
			return fmt.Errorf("asset %s: exponent out of range", a.Denom)
		}
		if a.GasPrice != "" {
			if _, err := decimal.NewFromString(a.GasPrice); err != nil {
				return fmt.Errorf("asset %s: bad gas_price: %w", a.Denom, err)
			}
		}
		if a.FeeEligible && a.GasPrice == "" {
			return fmt.Errorf("asset %s: fee eligible assets need a gas_price", a.Denom)
		}
		if a.Denom == n.DefaultFeeDenom {
			feeDenomKnown = true
		}
	}
	if !feeDenomKnown {
		return fmt.Errorf("default_fee_denom %q is not a configured asset", n.DefaultFeeDenom)
	}
	if n.CoinType == 0 {
		n.CoinType = 118
	}
	return nil
}

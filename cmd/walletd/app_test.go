package main

import (
	"context"
	"testing"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/registry"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/signer"
	"github.com/zeebo/assert"
)

func TestCredentialsFrom(t *testing.T) {
	p := credentialsFrom(&config.ServiceConfig{MnemonicEnv: "A", HexKeyEnv: "B"}, 330)
	m, ok := p.(*signer.MnemonicProvider)
	assert.True(t, ok)
	assert.Equal(t, m.CoinType, uint32(330))

	_, ok = credentialsFrom(&config.ServiceConfig{HexKeyEnv: "B"}, 118).(*signer.HexKeyProvider)
	assert.True(t, ok)

	_, err := credentialsFrom(&config.ServiceConfig{}, 118).SigningKey(context.Background())
	assert.Error(t, err)
	assert.Equal(t, engerr.CodeOf(err), engerr.CodeCredential)
}

func TestSources(t *testing.T) {
	_, ok := prefixSource(&config.ServiceConfig{ChainPrefixFile: "prefixes.toml", ChainPrefixURL: "https://x"}).(*registry.FileSource)
	assert.True(t, ok)
	_, ok = prefixSource(&config.ServiceConfig{ChainPrefixURL: "https://x"}).(*registry.HTTPPrefixSource)
	assert.True(t, ok)

	_, ok = channelSource(&config.ServiceConfig{RegistrySource: "git"}).(*registry.GitSource)
	assert.True(t, ok)
	_, ok = channelSource(&config.ServiceConfig{RegistrySource: "github"}).(*registry.GitHubSource)
	assert.True(t, ok)
}

func TestServerConfig(t *testing.T) {
	a := &app{cfg: &config.ServiceConfig{Host: "0.0.0.0", Port: 8090, RatePerMinute: 60}}
	cfg := a.serverConfig()
	assert.Equal(t, cfg.Address, "0.0.0.0:8090")
	assert.Equal(t, *cfg.RatePerMinute, 60)
	assert.True(t, cfg.MaxConcurrentRequests == nil)
	assert.True(t, cfg.OTelConfig == nil)

	a.cfg.EnableTracing = true
	assert.True(t, a.serverConfig().OTelConfig.EnableTracing)
}

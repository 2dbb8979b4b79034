package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/assets"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/executor"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/health"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/query"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/registry"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/router"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/rpc"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/signer"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/staking"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/store"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/telemetry"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/wallet"
	"github.com/rs/zerolog"
)

const queryTimeout = 15 * time.Second

var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

// app holds everything built from the service and network configs.
type app struct {
	cfg     *config.ServiceConfig
	network *config.NetworkConfig
	level   models.NetworkLevel

	store       store.Store
	health      *health.Registry
	assets      *assets.Registry
	credentials signer.CredentialProvider
	executor    *executor.Executor
	registry    *registry.Registry
	resolver    *router.Resolver
	staking     *staking.Aggregator
}

func loadApp() (*app, error) {
	var path *string
	if configPath != "" {
		path = &configPath
	}
	cfg, err := config.LoadServiceConfig(path)
	if err != nil {
		return nil, err
	}
	if networkOverride != "" {
		cfg.NetworkFile = networkOverride
	}

	setLoggers(telemetry.NewLogger(cfg.LogLevel, cfg.LogJSON))

	network, err := config.LoadNetworkConfig(cfg.NetworkFile)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}

	reg, err := assets.NewRegistry(network.Assets, network.DefaultFeeDenom)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a := &app{
		cfg:         cfg,
		network:     network,
		level:       models.NetworkLevel(network.Level),
		store:       st,
		health:      health.NewRegistry(st, network.Endpoints),
		assets:      reg,
		credentials: credentialsFrom(cfg, network.CoinType),
	}
	a.executor = executor.New(
		a.health,
		query.NewRestClient(queryTimeout),
		executor.NewSignerFactory(network.Bech32Prefix, network.ChainID, queryTimeout),
		a.credentials,
		a.assets,
	)

	a.registry = registry.New(st, prefixSource(cfg), channelSource(cfg))
	a.registry.StaleAfter = cfg.RegistryStaleAfter
	a.resolver = router.NewResolver(a.registry, a.executor)
	a.staking = staking.NewAggregator(a.executor, network.DefaultFeeDenom)

	log.Info().
		Str("chain", network.ChainName).
		Str("chain_id", network.ChainID).
		Str("level", network.Level).
		Int("endpoints", len(network.Endpoints)).
		Int("assets", len(network.Assets)).
		Str("store", cfg.StoreBackend).
		Msg("Loaded wallet engine config")
	return a, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close store")
	}
}

// credentialsFrom picks the first configured signing source. With none the
// session stays locked and every write fails with a credential error.
func credentialsFrom(cfg *config.ServiceConfig, coinType uint32) signer.CredentialProvider {
	switch {
	case cfg.MnemonicEnv != "":
		return &signer.MnemonicProvider{Source: signer.EnvSource(cfg.MnemonicEnv), CoinType: coinType}
	case cfg.MnemonicFile != "":
		return &signer.MnemonicProvider{Source: signer.FileSource(cfg.MnemonicFile), CoinType: coinType}
	case cfg.HexKeyEnv != "":
		return &signer.HexKeyProvider{Source: signer.EnvSource(cfg.HexKeyEnv)}
	default:
		return &signer.MnemonicProvider{CoinType: coinType}
	}
}

func prefixSource(cfg *config.ServiceConfig) registry.PrefixSource {
	if cfg.ChainPrefixFile != "" {
		return &registry.FileSource{Path: cfg.ChainPrefixFile}
	}
	return &registry.HTTPPrefixSource{URL: cfg.ChainPrefixURL, Client: &http.Client{Timeout: queryTimeout}}
}

func channelSource(cfg *config.ServiceConfig) registry.ChannelSource {
	if cfg.RegistrySource == "git" {
		return &registry.GitSource{Dir: cfg.RegistryDir, StaleAfter: cfg.RegistryStaleAfter, Timeout: 5 * time.Minute}
	}
	return registry.NewGitHubSource(queryTimeout)
}

// walletAddress returns override when set, otherwise the address of the
// configured signing key.
func (a *app) walletAddress(ctx context.Context, override string) (string, error) {
	if override != "" {
		if err := router.ValidateAddress(override, a.network.Bech32Prefix); err != nil {
			return "", err
		}
		return override, nil
	}
	key, err := a.credentials.SigningKey(ctx)
	if err != nil {
		return "", fmt.Errorf("no --address given: %w", err)
	}
	defer key.Zero()
	return key.Address(a.network.Bech32Prefix)
}

func (a *app) engine(ctx context.Context, address string, notifier wallet.Notifier) (*wallet.Engine, error) {
	addr, err := a.walletAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	return wallet.New(wallet.Config{
		Address:  addr,
		Level:    a.level,
		Executor: a.executor,
		Assets:   a.assets,
		Resolver: a.resolver,
		Staking:  a.staking,
		Notifier: notifier,
	})
}

func (a *app) serverConfig() *rpc.ServerConfig {
	cfg := a.cfg
	server := &rpc.ServerConfig{
		Address:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.UsePrometheus,
	}
	if cfg.RatePerMinute > 0 {
		server.RatePerMinute = &cfg.RatePerMinute
	}
	if cfg.MaxConcurrentRequests > 0 {
		server.MaxConcurrentRequests = &cfg.MaxConcurrentRequests
	}
	if cfg.EnableTracing || cfg.EnableMetrics || cfg.EnableLogs || cfg.UsePrometheus {
		server.OTelConfig = &telemetry.OTelConfig{
			ServiceName:     cfg.ServiceName,
			ServiceVersion:  cfg.ServiceVersion,
			Environment:     cfg.Environment,
			EnableTracing:   cfg.EnableTracing,
			UseOTLPTraces:   cfg.UseOTLPTraces,
			OTLPTracesURL:   cfg.OTLPTracesURL,
			EnableMetrics:   cfg.EnableMetrics,
			UsePrometheus:   cfg.UsePrometheus,
			UseOTLPMetrics:  cfg.UseOTLPMetrics,
			OTLPMetricsURL:  cfg.OTLPMetricsURL,
			EnableLogs:      cfg.EnableLogs,
			UseOTLPLogs:     cfg.UseOTLPLogs,
			OTLPLogsURL:     cfg.OTLPLogsURL,
			InsecureOTLP:    cfg.InsecureOTLP,
			DevelopmentMode: cfg.DevelopmentMode,
		}
	}
	return server
}

// setLoggers hands each package a child of base tagged with its name.
func setLoggers(base zerolog.Logger) {
	log = base
	rpc.SetLogger(telemetry.Component(base, "rpc"))
	wallet.SetLogger(telemetry.Component(base, "wallet"))
	executor.SetLogger(telemetry.Component(base, "executor"))
	signer.SetLogger(telemetry.Component(base, "signer"))
	health.SetLogger(telemetry.Component(base, "health"))
	query.SetLogger(telemetry.Component(base, "query"))
	registry.SetLogger(telemetry.Component(base, "registry"))
	router.SetLogger(telemetry.Component(base, "router"))
	staking.SetLogger(telemetry.Component(base, "staking"))
}

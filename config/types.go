package config

import "time"

type ServiceConfig struct {
	// rpc configs
	Port int    `mapstructure:"port" toml:"port"`
	Host string `mapstructure:"host" toml:"host"`

	// CORS configs
	AllowedOrigins []string `mapstructure:"allowed_origins" toml:"allowed_origins"`

	// rate limiting configs
	RatePerMinute         int `mapstructure:"rate_per_minute" toml:"rate_per_minute"`
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests" toml:"max_concurrent_requests"`

	LogLevel string `mapstructure:"log_level" toml:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" toml:"log_json"`

	// network description file (endpoints, assets, gas prices)
	NetworkFile string `mapstructure:"network_file" toml:"network_file"`

	// persistence store: memory, badger or sqlite
	StoreBackend string `mapstructure:"store_backend" toml:"store_backend"`
	StorePath    string `mapstructure:"store_path" toml:"store_path"`

	// signing material, first non-empty source wins
	MnemonicEnv  string `mapstructure:"mnemonic_env" toml:"mnemonic_env"`
	MnemonicFile string `mapstructure:"mnemonic_file" toml:"mnemonic_file"`
	HexKeyEnv    string `mapstructure:"hex_key_env" toml:"hex_key_env"`

	// registries
	RegistrySource     string        `mapstructure:"registry_source" toml:"registry_source"` // github or git
	ChainPrefixURL     string        `mapstructure:"chain_prefix_url" toml:"chain_prefix_url"`
	ChainPrefixFile    string        `mapstructure:"chain_prefix_file" toml:"chain_prefix_file"`
	RegistryDir        string        `mapstructure:"registry_dir" toml:"registry_dir"`
	RegistryStaleAfter time.Duration `mapstructure:"registry_stale_after" toml:"registry_stale_after"`

	// OpenTelemetry configs
	ServiceName    string `mapstructure:"service_name" toml:"service_name"`
	ServiceVersion string `mapstructure:"service_version" toml:"service_version"`
	Environment    string `mapstructure:"environment" toml:"environment"`
	EnableTracing  bool   `mapstructure:"enable_tracing" toml:"enable_tracing"`
	UseOTLPTraces  bool   `mapstructure:"use_otlp_traces" toml:"use_otlp_traces"`
	OTLPTracesURL  string `mapstructure:"otlp_traces_url" toml:"otlp_traces_url"`
	EnableMetrics  bool   `mapstructure:"enable_metrics" toml:"enable_metrics"`
	UsePrometheus  bool   `mapstructure:"use_prometheus" toml:"use_prometheus"`
	UseOTLPMetrics bool   `mapstructure:"use_otlp_metrics" toml:"use_otlp_metrics"`
	OTLPMetricsURL string `mapstructure:"otlp_metrics_url" toml:"otlp_metrics_url"`
	EnableLogs     bool   `mapstructure:"enable_logs" toml:"enable_logs"`
	UseOTLPLogs    bool   `mapstructure:"use_otlp_logs" toml:"use_otlp_logs"`
	OTLPLogsURL    string `mapstructure:"otlp_logs_url" toml:"otlp_logs_url"`
	InsecureOTLP   bool   `mapstructure:"insecure_otlp" toml:"insecure_otlp"`

	// Development mode uses stdout exporters
	DevelopmentMode bool `mapstructure:"development_mode" toml:"development_mode"`
}

// NetworkConfig describes the chain the wallet is bound to.
type NetworkConfig struct {
	ChainName       string          `toml:"chain_name"`
	ChainID         string          `toml:"chain_id"`
	Bech32Prefix    string          `toml:"bech32_prefix"`
	Level           string          `toml:"level"` // main or test
	DefaultFeeDenom string          `toml:"default_fee_denom"`
	CoinType        uint32          `toml:"coin_type"`
	Endpoints       []EndpointEntry `toml:"endpoints"`
	Assets          []AssetEntry    `toml:"assets"`
}

type EndpointEntry struct {
	REST     string `toml:"rest"`
	RPC      string `toml:"rpc"`
	Provider string `toml:"provider"`
}

type AssetEntry struct {
	Denom       string `toml:"denom"`
	Symbol      string `toml:"symbol"`
	Exponent    int32  `toml:"exponent"`
	FeeEligible bool   `toml:"fee_eligible"`
	IsIBC       bool   `toml:"is_ibc"`
	// GasPrice is the price per gas unit in minor units of Denom.
	GasPrice string `toml:"gas_price"`
}

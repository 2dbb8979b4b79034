package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "WALLETD"

var (
	storeBackends   = []string{"memory", "badger", "sqlite"}
	registrySources = []string{"github", "git"}
)

// LoadServiceConfig loads the service config from the given path. A nil path
// means the config comes from WALLETD_* env vars (and an optional .env file).
func LoadServiceConfig(configPath *string) (*ServiceConfig, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == nil {
		config, err := loadEnv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to load env config: %w", err)
		}
		return config, nil
	}
	config, err := loadFile(v, *configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file config: %w", err)
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 8090)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("max_concurrent_requests", 200)
	v.SetDefault("log_level", "info")
	v.SetDefault("store_backend", "memory")
	v.SetDefault("registry_source", "github")
	v.SetDefault("registry_dir", "./registry-cache")
	v.SetDefault("registry_stale_after", 24*time.Hour)
	v.SetDefault("service_name", "spectra-wallet-engine")
	v.SetDefault("service_version", "1.0.0")
	v.SetDefault("environment", "development")
}

func loadEnv(v *viper.Viper) (*ServiceConfig, error) {
	// the env can come from docker or systemd, a missing .env is fine
	_ = godotenv.Load()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	var config ServiceConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

// bindEnvKeys binds each config key to its env var so Unmarshal sees env values
// when no config file is loaded.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"port", "host", "allowed_origins",
		"rate_per_minute", "max_concurrent_requests",
		"log_level", "log_json", "network_file",
		"store_backend", "store_path",
		"mnemonic_env", "mnemonic_file", "hex_key_env",
		"registry_source", "chain_prefix_url", "chain_prefix_file",
		"registry_dir", "registry_stale_after",
		"service_name", "service_version", "environment",
		"enable_tracing", "use_otlp_traces", "otlp_traces_url",
		"enable_metrics", "use_prometheus", "use_otlp_metrics", "otlp_metrics_url",
		"enable_logs", "use_otlp_logs", "otlp_logs_url",
		"insecure_otlp", "development_mode",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

func loadFile(v *viper.Viper, configPath string) (*ServiceConfig, error) {
	if !strings.HasSuffix(configPath, ".toml") {
		return nil, fmt.Errorf("config file must be a toml file")
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ServiceConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := verifyConfig(&config); err != nil {
		return nil, fmt.Errorf("failed to verify config: %w", err)
	}
	return &config, nil
}

func verifyConfig(config *ServiceConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if config.Host == "" {
		return fmt.Errorf("host is required")
	}
	if config.NetworkFile == "" {
		return fmt.Errorf("network_file is required")
	}
	if !slices.Contains(storeBackends, config.StoreBackend) {
		return fmt.Errorf("store_backend must be one of %v", storeBackends)
	}
	if config.StoreBackend != "memory" && config.StorePath == "" {
		return fmt.Errorf("store_path is required for the %s backend", config.StoreBackend)
	}
	if !slices.Contains(registrySources, config.RegistrySource) {
		return fmt.Errorf("registry_source must be one of %v", registrySources)
	}
	if config.ChainPrefixURL == "" && config.ChainPrefixFile == "" {
		return fmt.Errorf("one of chain_prefix_url or chain_prefix_file is required")
	}
	if config.RegistryStaleAfter <= 0 {
		return fmt.Errorf("registry_stale_after must be positive")
	}
	return nil
}

// Command walletd runs the wallet engine as a ConnectRPC service and exposes
// a few of its read paths on the command line.
//
// Usage:
//
//	walletd serve --config ./walletd.toml
//	walletd route terra1... osmo1... --level main
//	walletd staking --by validator
//	walletd endpoints reset
//	walletd endpoints probe
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath      string
	networkOverride string
)

var rootCmd = &cobra.Command{
	Use:           "walletd",
	Short:         "Cosmos wallet engine",
	Long:          "Signs, simulates and broadcasts wallet transactions against a set of failover endpoints, resolves IBC routes and aggregates staking data.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "service config (toml); WALLETD_* env vars are used when empty")
	rootCmd.PersistentFlags().StringVarP(&networkOverride, "network", "n", "", "network description file, overrides network_file")

	rootCmd.AddCommand(serveCmd, routeCmd, stakingCmd, endpointsCmd, addressCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("walletd failed")
		os.Exit(1)
	}
}

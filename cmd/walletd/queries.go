package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/spf13/cobra"
)

var (
	routeLevel     string
	stakingAddress string
	stakingBy      string
	addressPrefix  string
)

var routeCmd = &cobra.Command{
	Use:   "route <sender> <recipient>",
	Short: "Resolve the IBC route between two addresses",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		level := a.level
		if routeLevel != "" {
			level = models.NetworkLevel(routeLevel)
		}
		res, err := a.resolver.Resolve(cmd.Context(), args[0], args[1], level)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var stakingCmd = &cobra.Command{
	Use:   "staking",
	Short: "Print delegations joined with validators and rewards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		delegator, err := a.walletAddress(cmd.Context(), stakingAddress)
		if err != nil {
			return err
		}
		switch stakingBy {
		case "delegation":
			infos, err := a.staking.ByDelegation(cmd.Context(), delegator)
			if err != nil {
				return err
			}
			return printJSON(infos)
		case "validator":
			infos, err := a.staking.ByValidator(cmd.Context(), delegator)
			if err != nil {
				return err
			}
			return printJSON(infos)
		default:
			return fmt.Errorf("--by must be delegation or validator, got %q", stakingBy)
		}
	},
}

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "Print endpoints in failover order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return printJSON(a.health.Rank())
	},
}

var endpointsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every persisted endpoint failure count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return a.health.Reset()
	},
}

var endpointsProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check every endpoint's chain id, height and tx indexer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		results := a.health.Probe(cmd.Context(), a.network.ChainID, queryTimeout)
		if err := printJSON(results); err != nil {
			return err
		}
		for _, r := range results {
			if r.Healthy() {
				return nil
			}
		}
		return fmt.Errorf("no healthy endpoint among %d", len(results))
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the signing key's address, optionally under another prefix",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		engine, err := a.engine(cmd.Context(), "", nil)
		if err != nil {
			return err
		}
		if addressPrefix == "" {
			fmt.Println(engine.Address())
			return nil
		}
		converted, err := engine.AddressOn(addressPrefix)
		if err != nil {
			return err
		}
		fmt.Println(converted)
		return nil
	},
}

func init() {
	routeCmd.Flags().StringVar(&routeLevel, "level", "", "main or test, defaults to the network's level")
	stakingCmd.Flags().StringVar(&stakingAddress, "address", "", "delegator address, defaults to the signing key's")
	stakingCmd.Flags().StringVar(&stakingBy, "by", "delegation", "delegation or validator")
	addressCmd.Flags().StringVar(&addressPrefix, "prefix", "", "bech32 prefix to re-encode the address under")
	endpointsCmd.AddCommand(endpointsResetCmd, endpointsProbeCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "jqproxy",
	Short: "J-Quants API proxy and screening service",
	Long: `jqproxy - credential-hiding proxy for the J-Quants market data API

Manages the two-tier token lifecycle, caches upstream responses, and
computes liquidity/momentum/valuation screens over the listed universe.

Usage:
  go run ./cmd/jqproxy [command]

Examples:
  go run ./cmd/jqproxy api
  go run ./cmd/jqproxy screen --min-liquidity 1e8 --per-lt 15
  go run ./cmd/jqproxy token
  go run ./cmd/jqproxy scheduler`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

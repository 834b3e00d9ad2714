package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sol-swap",
	Short: "A CLI for Solana token swaps routed through Jupiter",
	Long: `sol-swap executes token swaps on Solana. It asks the Jupiter aggregator for a
quote, tries the primary route and its alternates in order, and reports the first
route that lands on chain.

Examples:
  sol-swap swap 1 SOL to USDC
  sol-swap swap all USDC to SOL
  sol-swap quote 0.5 SOL to DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263
  sol-swap withdraw 10 USDC --to <address>
  sol-swap status <signature> --watch
  echo '{"action":"sol_to_usdc","private_key":"..."}' | sol-swap exec
  sol-swap serve`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().String("config", "", "Config file (default: $HOME/.sol-swap.yaml or ./.sol-swap.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides log_level)")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

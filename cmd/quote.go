package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"sol-swap/pkg/swap"
	"sol-swap/pkg/types"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount|all> <source-token> to <dest-token>",
	Short: "Preview a swap without sending anything",
	Long: `Fetch a Jupiter quote for a swap and list the routes that would be tried,
in order, after the venue denylist is applied. Nothing is signed or sent.

Examples:
  sol-swap quote 1 SOL to USDC
  sol-swap quote all USDC to SOL --json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().Uint16Var(&slippageBps, "slippage", 0, "Slippage in basis points (default: default_slippage_bps)")
	quoteCmd.Flags().Uint64Var(&feeLamports, "fee", 0, "Total priority fee in lamports (default: default_fee_lamports)")
}

type routeJSON struct {
	Venue     string `json:"venue"`
	InAmount  uint64 `json:"in_amount"`
	OutAmount uint64 `json:"out_amount"`
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	intent, err := intentFromArgs(ctx, cmd, a, args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	preview, err := withSpinner(" Fetching quote...", jsonOutput, func() (*swap.Preview, error) {
		return a.engine.Preview(ctx, intent)
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayPreview(ctx, a, intent, preview)
		return
	}

	routes := make([]routeJSON, 0, len(preview.Candidates))
	for _, c := range preview.Candidates {
		in, out := preview.Quote.RouteAmounts(c.Route)
		routes = append(routes, routeJSON{Venue: c.Venue, InAmount: in, OutAmount: out})
	}
	skipped := make([]string, 0, len(preview.Skipped))
	for _, c := range preview.Skipped {
		skipped = append(skipped, c.Venue)
	}
	printJSON(map[string]interface{}{
		"input_mint":   intent.InputMint.String(),
		"output_mint":  intent.OutputMint.String(),
		"in_amount":    preview.Quote.InAmount,
		"out_amount":   preview.Quote.OutAmount,
		"input_token":  types.SymbolFor(intent.InputMint),
		"output_token": types.SymbolFor(intent.OutputMint),
		"routes":       routes,
		"skipped":      skipped,
	})
}

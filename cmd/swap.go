package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"sol-swap/pkg/parser"
	"sol-swap/pkg/swap"
	"sol-swap/pkg/types"
)

var (
	noConfirm   bool
	slippageBps uint16
	feeLamports uint64
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount|all> <source-token> to <dest-token>",
	Short: "Swap tokens through the best available Jupiter route",
	Long: `Swap tokens on Solana. The primary Jupiter route is tried first, then the
alternates in the order Jupiter returned them, skipping denylisted venues.

Tokens are SOL, USDC or any mint address. "all" spends the whole balance,
keeping a small SOL reserve for fees when the input is SOL.

Examples:
  sol-swap swap 1 SOL to USDC
  sol-swap swap all USDC to SOL --yes
  sol-swap swap 0.25 SOL to DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263 --slippage 300`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
	swapCmd.Flags().Uint16Var(&slippageBps, "slippage", 0, "Slippage in basis points (default: default_slippage_bps)")
	swapCmd.Flags().Uint64Var(&feeLamports, "fee", 0, "Total priority fee in lamports (default: default_fee_lamports)")
}

func runSwap(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	intent, err := intentFromArgs(ctx, cmd, a, args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Show the quote and ask before spending anything
	if !noConfirm && !jsonOutput {
		preview, err := withSpinner(" Fetching quote...", jsonOutput, func() (*swap.Preview, error) {
			return a.engine.Preview(ctx, intent)
		})
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		displayPreview(ctx, a, intent, preview)
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	outcome, _ := withSpinner(" Executing swap...", jsonOutput, func() (types.SwapOutcome, error) {
		return a.engine.Execute(ctx, intent), nil
	})

	if jsonOutput {
		printJSON(types.ResponseFromOutcome(outcome))
		if !outcome.Success {
			os.Exit(1)
		}
		return
	}
	if !outcome.Success {
		color.Red("\nSwap failed (%s): %s\n", outcome.ErrorKind, outcome.Error)
		os.Exit(1)
	}
	displayOutcome(ctx, a, intent, outcome)
}

// intentFromArgs turns "<amount|all> <token> to <token>" into a swap intent for the configured wallet
func intentFromArgs(ctx context.Context, cmd *cobra.Command, a *app, args []string) (types.SwapIntent, error) {
	parsed, err := parser.ParseSwapCommand(strings.Join(args, " "))
	if err != nil {
		return types.SwapIntent{}, err
	}
	owner, err := a.cfg.Wallet()
	if err != nil {
		return types.SwapIntent{}, err
	}
	in, err := parser.ResolveMint(parsed.From)
	if err != nil {
		return types.SwapIntent{}, err
	}
	out, err := parser.ResolveMint(parsed.To)
	if err != nil {
		return types.SwapIntent{}, err
	}
	if in.Equals(out) {
		return types.SwapIntent{}, fmt.Errorf("source and destination token are the same")
	}

	intent := types.SwapIntent{
		Owner:       owner,
		InputMint:   in,
		OutputMint:  out,
		SlippageBps: a.cfg.DefaultSlippageBps,
		FeeBudget:   a.cfg.DefaultFeeLamports,
	}
	if cmd.Flags().Changed("slippage") {
		intent.SlippageBps = slippageBps
	}
	if cmd.Flags().Changed("fee") {
		intent.FeeBudget = feeLamports
	}
	if !parsed.All {
		amount, err := a.amount(ctx, parsed.Amount, in)
		if err != nil {
			return types.SwapIntent{}, err
		}
		intent.Amount = &amount
	}
	return intent, nil
}

func withSpinner[T any](suffix string, quiet bool, fn func() (T, error)) (T, error) {
	if quiet {
		return fn()
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = suffix
	s.Start()
	defer s.Stop()
	return fn()
}

func displayPreview(ctx context.Context, a *app, intent types.SwapIntent, p *swap.Preview) {
	inDecimals := a.decimals(ctx, intent.InputMint)
	outDecimals := a.decimals(ctx, intent.OutputMint)

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  From:              %s %s\n", types.FormatUnits(p.Quote.InAmount, inDecimals), color.YellowString(types.SymbolFor(intent.InputMint)))
	fmt.Printf("  To:                ~%s %s\n", types.FormatUnits(p.Quote.OutAmount, outDecimals), color.YellowString(types.SymbolFor(intent.OutputMint)))
	fmt.Printf("  Slippage:          %d bps\n", intent.SlippageBps)
	fmt.Printf("  Priority Fee:      %s SOL\n", types.FormatUnits(intent.FeeBudget, types.NativeDecimals))

	if len(p.Candidates) > 0 {
		fmt.Printf("\n  Routes:\n")
		for i, c := range p.Candidates {
			_, out := p.Quote.RouteAmounts(c.Route)
			fmt.Printf("    %d. %-20s ~%s\n", i+1, color.CyanString(venueName(c.Venue)), types.FormatUnits(out, outDecimals))
		}
	}
	for _, c := range p.Skipped {
		fmt.Printf("    -  %-20s %s\n", color.HiBlackString(venueName(c.Venue)), color.HiBlackString("(denylisted)"))
	}
	for _, pr := range p.Prerequisites {
		fmt.Printf("\n  Will create:       %s\n", pr.Account)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displayOutcome(ctx context.Context, a *app, intent types.SwapIntent, out types.SwapOutcome) {
	color.Green("\n✓ Swap confirmed!")
	fmt.Printf("  Sold:           %s %s\n", types.FormatUnits(out.InAmount, a.decimals(ctx, intent.InputMint)), types.SymbolFor(intent.InputMint))
	fmt.Printf("  Bought:         %s %s\n", types.FormatUnits(out.OutAmount, a.decimals(ctx, intent.OutputMint)), types.SymbolFor(intent.OutputMint))
	if out.TransactionID != "" {
		fmt.Printf("  Transaction ID: %s\n", color.CyanString(out.TransactionID))
		fmt.Println("\nYou can check the transaction using:")
		color.Cyan("  sol-swap status %s\n", out.TransactionID)
	}
}

func venueName(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

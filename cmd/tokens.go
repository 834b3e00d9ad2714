package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"sol-swap/pkg/parser"
	"sol-swap/pkg/types"
)

var extraMints []string

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "balances", "ls"},
	Short:   "List known tokens and the wallet's balances",
	Long: `List SOL, USDC and any extra mints with their decimals. When a wallet is
configured, its balance of each token is shown too.

Examples:
  sol-swap list-tokens
  sol-swap list-tokens --mint DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263`,
	Args: cobra.NoArgs,
	Run:  runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringSliceVar(&extraMints, "mint", nil, "Additional mint address to show (repeatable)")
}

type tokenRow struct {
	Symbol   string  `json:"symbol"`
	Mint     string  `json:"mint"`
	Decimals uint8   `json:"decimals"`
	Balance  *string `json:"balance,omitempty"`
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	mints := []solana.PublicKey{types.NativeMint, types.USDCMint}
	for _, m := range extraMints {
		mint, err := parser.ResolveMint(m)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		mints = append(mints, mint)
	}

	var owner *solana.PublicKey
	if key, err := a.cfg.Wallet(); err == nil {
		pk := key.PublicKey()
		owner = &pk
	}

	rows, err := withSpinner(" Fetching balances...", jsonOutput, func() ([]tokenRow, error) {
		return tokenRows(ctx, a, owner, mints)
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(rows)
	} else {
		displayTokens(rows, owner)
	}
}

func tokenRows(ctx context.Context, a *app, owner *solana.PublicKey, mints []solana.PublicKey) ([]tokenRow, error) {
	rows := make([]tokenRow, 0, len(mints))
	for _, mint := range mints {
		row := tokenRow{
			Symbol:   types.SymbolFor(mint),
			Mint:     mint.String(),
			Decimals: a.decimals(ctx, mint),
		}
		if owner != nil {
			var amount uint64
			if mint.Equals(types.NativeMint) {
				lamports, err := a.ledger.Balance(ctx, *owner)
				if err != nil {
					return nil, err
				}
				amount = lamports
			} else {
				tb, err := a.ledger.TokenBalance(ctx, *owner, mint)
				if err != nil {
					return nil, err
				}
				amount = tb.Amount
			}
			balance := types.FormatUnits(amount, row.Decimals)
			row.Balance = &balance
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func displayTokens(rows []tokenRow, owner *solana.PublicKey) {
	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                 TOKENS")
	fmt.Println(strings.Repeat("=", 90))
	if owner != nil {
		fmt.Printf("\n  Wallet: %s\n", color.CyanString(owner.String()))
	}
	fmt.Println(strings.Repeat("-", 90))

	for _, row := range rows {
		symbol := row.Symbol
		if len(symbol) > 10 {
			symbol = symbol[:4] + "…" + symbol[len(symbol)-4:]
		}
		balance := ""
		if row.Balance != nil {
			balance = *row.Balance
		}
		fmt.Printf("  %-10s  %2d decimals  %-44s  %s\n",
			color.YellowString(symbol),
			row.Decimals,
			color.HiBlackString(row.Mint),
			balance)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	if owner == nil {
		fmt.Println("\nSet wallet_private_key to show balances.")
	}
	fmt.Println()
}

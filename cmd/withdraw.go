package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"sol-swap/pkg/parser"
	"sol-swap/pkg/swap"
	"sol-swap/pkg/types"
)

var withdrawTo string

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount> <SOL|USDC> --to <address>",
	Short: "Send SOL or USDC from the configured wallet",
	Long: `Send SOL or USDC to another address and wait for confirmation. The
recipient's USDC account is created in the same transaction if needed.

Examples:
  sol-swap withdraw 0.5 SOL --to <address>
  sol-swap withdraw 25 USDC --to <address>`,
	Args: cobra.ExactArgs(2),
	Run:  runWithdraw,
}

func init() {
	rootCmd.AddCommand(withdrawCmd)

	withdrawCmd.Flags().StringVar(&withdrawTo, "to", "", "Recipient address (REQUIRED)")
	_ = withdrawCmd.MarkFlagRequired("to")
}

func runWithdraw(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	a := mustApp(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	owner, err := a.cfg.Wallet()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	recipient, err := solana.PublicKeyFromBase58(withdrawTo)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	symbol := parser.NormalizeTokenSymbol(args[1])
	mint, err := parser.ResolveMint(symbol)
	if err != nil || (symbol != "SOL" && symbol != "USDC") {
		printError(fmt.Errorf("withdraw supports SOL or USDC, got %s", args[1]))
		os.Exit(1)
	}
	amount, err := a.amount(ctx, args[0], mint)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	sig, err := withSpinner(" Sending "+symbol+"...", jsonOutput, func() (solana.Signature, error) {
		if symbol == "SOL" {
			return a.sender.SendSOL(ctx, owner, recipient, amount)
		}
		return a.sender.SendToken(ctx, owner, recipient, mint, amount)
	})

	if jsonOutput {
		if err != nil {
			printJSON(types.ErrorResponse(swap.Message(err)))
			os.Exit(1)
		}
		printJSON(types.TxResponse(sig.String()))
		return
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	color.Green("\n✓ Withdrawal confirmed!")
	printSuccess("  Sent " + args[0] + " " + symbol + " to " + recipient.String() + "\n  Transaction ID: " + color.CyanString(sig.String()))
}

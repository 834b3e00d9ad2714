package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"

	"sol-swap/pkg/ledger"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <signature>",
	Short: "Check the confirmation status of a transaction",
	Long: `Check how far a transaction has progressed on chain by its signature.

Examples:
  sol-swap status 5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW
  sol-swap status <signature> --watch
  sol-swap status <signature> --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until finalized")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

type statusJSON struct {
	Signature string `json:"signature"`
	Found     bool   `json:"found"`
	Slot      uint64 `json:"slot,omitempty"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	sig, err := solana.SignatureFromBase58(args[0])
	if err != nil {
		printError(fmt.Errorf("invalid signature: %w", err))
		os.Exit(1)
	}

	a := mustApp(cmd)
	ctx, cancel := signalContext()
	defer cancel()

	if watchStatus {
		watchTxStatus(ctx, a.ledger, sig, jsonOutput)
	} else {
		checkTxStatus(ctx, a.ledger, sig, jsonOutput)
	}
}

func checkTxStatus(ctx context.Context, chain *ledger.Client, sig solana.Signature, jsonOutput bool) {
	status, err := withSpinner(" Checking transaction status...", jsonOutput, func() (ledger.SignatureStatus, error) {
		return chain.SignatureStatus(ctx, sig)
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(statusJSON{
			Signature: sig.String(),
			Found:     status.Found,
			Slot:      status.Slot,
			Status:    statusLabel(status),
			Error:     status.Err,
		})
	} else {
		displayStatus(status, sig)
	}
}

func watchTxStatus(ctx context.Context, chain *ledger.Client, sig solana.Signature, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(sig.String()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first, then until the transaction is settled
	for {
		if settled := checkAndDisplayStatus(ctx, chain, sig); settled {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func checkAndDisplayStatus(ctx context.Context, chain *ledger.Client, sig solana.Signature) bool {
	status, err := chain.SignatureStatus(ctx, sig)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(status, sig)
	return status.Failed || status.Reached(rpc.CommitmentFinalized)
}

func displayStatus(status ledger.SignatureStatus, sig solana.Signature) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Signature: %s\n", color.CyanString(sig.String()))
	fmt.Printf("  Status:    %s\n", getColoredStatus(statusLabel(status)))
	if status.Found {
		fmt.Printf("  Slot:      %d\n", status.Slot)
	}
	if status.Err != "" {
		fmt.Printf("  Error:     %s\n", color.RedString(status.Err))
	}
	fmt.Printf("  Checked:   %s\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func statusLabel(status ledger.SignatureStatus) string {
	switch {
	case !status.Found:
		return "NOT_FOUND"
	case status.Failed:
		return "FAILED"
	case status.Level == "":
		return "PROCESSED"
	default:
		return strings.ToUpper(string(status.Level))
	}
}

func getColoredStatus(status string) string {
	switch status {
	case "FINALIZED":
		return color.GreenString(status)
	case "CONFIRMED", "PROCESSED":
		return color.YellowString(status)
	case "FAILED":
		return color.RedString(status)
	case "NOT_FOUND":
		return color.MagentaString(status)
	default:
		return status
	}
}

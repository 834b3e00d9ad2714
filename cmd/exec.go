package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"sol-swap/pkg/service"
	"sol-swap/pkg/types"
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run one JSON request read from stdin",
	Long: `Read a single request envelope from stdin, run it, and print the response
envelope on stdout. The private key travels in the request, not the config.

Actions: sol_to_usdc, usdc_to_sol, swap_sol_to_usdc_fixed, swap_usdc_to_sol_fixed,
buy_fixed, sell_fixed, swap, withdraw_sol, withdraw_usdc, create_wsol_ata.

Example:
  echo '{"action":"buy_fixed","private_key":"...","ca":"<mint>","amount":10000000}' | sol-swap exec`,
	Args: cobra.NoArgs,
	Run:  runExec,
}

func init() {
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) {
	a := mustApp(cmd)

	ctx, cancel := signalContext()
	defer cancel()

	resp := execRequest(ctx, a.dispatcher, os.Stdin)
	out, _ := json.Marshal(resp)
	fmt.Println(string(out))
	if !resp.Success {
		os.Exit(1)
	}
}

func execRequest(ctx context.Context, d *service.Dispatcher, r io.Reader) types.Response {
	var req types.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return types.ErrorResponse("Invalid request body: " + err.Error())
	}
	return d.Handle(ctx, req)
}

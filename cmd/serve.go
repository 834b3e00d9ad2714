package cmd

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sol-swap/pkg/server"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve swap requests over HTTP",
	Long: `Start an HTTP server that accepts the same request envelopes as "exec".

Routes:
  POST /swap      run one request envelope
  GET  /healthz   liveness
  GET  /metrics   Prometheus metrics

Example:
  sol-swap serve --listen :3030`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default: listen_addr)")
}

func runServe(cmd *cobra.Command, args []string) {
	a := mustApp(cmd)

	if verbose, _ := cmd.Flags().GetBool("verbose"); !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := a.cfg.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := server.New(a.dispatcher, a.log).ListenAndServe(ctx, addr); err != nil {
		printError(err)
		os.Exit(1)
	}
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sol-swap/config"
	"sol-swap/pkg/client"
	"sol-swap/pkg/ledger"
	"sol-swap/pkg/logger"
	"sol-swap/pkg/parser"
	"sol-swap/pkg/retry"
	"sol-swap/pkg/service"
	"sol-swap/pkg/swap"
	"sol-swap/pkg/transfer"
)

// app holds the collaborators shared by every command
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	ledger     *ledger.Client
	engine     *swap.Engine
	sender     *transfer.Sender
	dispatcher *service.Dispatcher
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		level = override
	} else if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	log := logger.New(level, cfg.LogFormat)

	chain := ledger.NewClient(cfg.RPCURL, cfg.Commitment, cfg.SkipPreflight)
	engineCfg, err := engineConfig(cfg, chain.Commitment())
	if err != nil {
		return nil, err
	}

	jupiter := client.NewJupiterClient(cfg.JupiterBaseURL, cfg.HTTPTimeout)
	engine := swap.NewEngine(chain, jupiter, engineCfg, log)
	sender := transfer.NewSender(chain, engine.Submitter(), log)

	return &app{
		cfg:    cfg,
		log:    log,
		ledger: chain,
		engine: engine,
		sender: sender,
		dispatcher: service.NewDispatcher(engine, sender, service.Defaults{
			SlippageBps: cfg.DefaultSlippageBps,
			FeeLamports: cfg.DefaultFeeLamports,
		}, log),
	}, nil
}

// engineConfig confirms at the same commitment the ledger client reads with
func engineConfig(cfg *config.Config, commitment rpc.CommitmentType) (swap.Config, error) {
	mode, err := swap.ParseConfirmationMode(cfg.ConfirmationMode)
	if err != nil {
		return swap.Config{}, err
	}
	return swap.Config{
		NativeReserve:           cfg.NativeReserveLamports,
		Denylist:                cfg.RouteDenylist,
		DefaultComputeUnitLimit: cfg.DefaultComputeUnitLimit,
		Submit: swap.SubmitterConfig{
			Retry: retry.Policy{
				Attempts:   cfg.SubmitAttempts,
				Delay:      cfg.SubmitDelay,
				Multiplier: cfg.SubmitBackoff,
			},
			Mode:         mode,
			Commitment:   commitment,
			PollInterval: cfg.ConfirmPollInterval,
			Timeout:      cfg.ConfirmTimeout,
		},
	}, nil
}

// mustApp builds the app or exits
func mustApp(cmd *cobra.Command) *app {
	a, err := newApp(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	return a
}

// amount converts a human amount of mint into base units, reading decimals
// from chain for mints that are not well known
func (a *app) amount(ctx context.Context, human string, mint solana.PublicKey) (uint64, error) {
	decimals, ok := parser.KnownDecimals(mint)
	if !ok {
		d, err := a.ledger.MintDecimals(ctx, mint)
		if err != nil {
			return 0, fmt.Errorf("failed to get token decimals: %w", err)
		}
		decimals = d
	}
	return parser.ParseAmount(human, decimals)
}

// decimals returns the decimals of mint, or 0 when they cannot be read
func (a *app) decimals(ctx context.Context, mint solana.PublicKey) uint8 {
	if d, ok := parser.KnownDecimals(mint); ok {
		return d
	}
	d, err := a.ledger.MintDecimals(ctx, mint)
	if err != nil {
		a.log.Debug().Err(err).Str("mint", mint.String()).Msg("mint decimals unavailable")
		return 0
	}
	return d
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

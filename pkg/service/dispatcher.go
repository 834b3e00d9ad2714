// Package service maps request envelopes onto swaps and transfers.
package service

import (
	"context"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"sol-swap/pkg/logger"
	"sol-swap/pkg/swap"
	"sol-swap/pkg/types"
)

// Actions accepted in a request envelope
const (
	ActionSolToUSDC      = "sol_to_usdc"
	ActionUSDCToSol      = "usdc_to_sol"
	ActionSolToUSDCFixed = "swap_sol_to_usdc_fixed"
	ActionUSDCToSolFixed = "swap_usdc_to_sol_fixed"
	ActionBuyFixed       = "buy_fixed"
	ActionSellFixed      = "sell_fixed"
	ActionSwap           = "swap"
	ActionWithdrawSol    = "withdraw_sol"
	ActionWithdrawUSDC   = "withdraw_usdc"
	ActionCreateWSOLATA  = "create_wsol_ata"
)

// Swapper executes swap intents
type Swapper interface {
	Execute(ctx context.Context, intent types.SwapIntent) types.SwapOutcome
}

// Transferer moves funds out of a wallet
type Transferer interface {
	SendSOL(ctx context.Context, from solana.PrivateKey, recipient solana.PublicKey, lamports uint64) (solana.Signature, error)
	SendToken(ctx context.Context, from solana.PrivateKey, recipient, mint solana.PublicKey, amount uint64) (solana.Signature, error)
	CreateTokenAccount(ctx context.Context, owner solana.PrivateKey, mint solana.PublicKey) (solana.Signature, error)
}

// Defaults fill in optional request fields
type Defaults struct {
	SlippageBps uint16
	FeeLamports uint64
}

// Dispatcher turns one request envelope into one response envelope
type Dispatcher struct {
	swaps     Swapper
	transfers Transferer
	defaults  Defaults
	log       zerolog.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(swaps Swapper, transfers Transferer, defaults Defaults, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{swaps: swaps, transfers: transfers, defaults: defaults, log: log}
}

type swapRoute struct {
	in, out     solana.PublicKey
	fixedAmount bool
}

// Handle runs the request and always returns an envelope; it never panics on bad input
func (d *Dispatcher) Handle(ctx context.Context, req types.Request) types.Response {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	log := logger.FromContext(ctx, d.log).With().Str("action", action).Logger()

	switch action {
	case ActionSolToUSDC, ActionUSDCToSol, ActionSolToUSDCFixed, ActionUSDCToSolFixed,
		ActionBuyFixed, ActionSellFixed, ActionSwap,
		ActionWithdrawSol, ActionWithdrawUSDC, ActionCreateWSOLATA:
	default:
		return types.ErrorResponse("Unknown or missing action")
	}

	owner, err := solana.PrivateKeyFromBase58(strings.TrimSpace(req.PrivateKey))
	if err != nil {
		return types.ErrorResponse("invalid private key")
	}

	switch action {
	case ActionWithdrawSol, ActionWithdrawUSDC:
		return d.withdraw(ctx, log, action, owner, req)
	case ActionCreateWSOLATA:
		sig, err := d.transfers.CreateTokenAccount(ctx, owner, types.NativeMint)
		if err != nil {
			log.Warn().Err(err).Msg("wrapped SOL account creation failed")
			return types.ErrorResponse(swap.Message(err))
		}
		return types.TxResponse(sigString(sig))
	}

	route, err := d.route(action, req)
	if err != nil {
		return types.ErrorResponse(swap.Message(err))
	}
	intent := types.SwapIntent{
		Owner:       owner,
		InputMint:   route.in,
		OutputMint:  route.out,
		SlippageBps: d.defaults.SlippageBps,
		FeeBudget:   d.defaults.FeeLamports,
	}
	if req.SlippageBps != nil {
		intent.SlippageBps = *req.SlippageBps
	}
	if req.TotalFeeLamports != nil {
		intent.FeeBudget = *req.TotalFeeLamports
	}
	if route.fixedAmount {
		if req.Amount == nil {
			return types.ErrorResponse("Missing amount")
		}
		intent.Amount = req.Amount
	} else if action == ActionSwap && req.Amount != nil {
		intent.Amount = req.Amount
	}

	return types.ResponseFromOutcome(d.swaps.Execute(ctx, intent))
}

func (d *Dispatcher) route(action string, req types.Request) (swapRoute, error) {
	switch action {
	case ActionSolToUSDC:
		return swapRoute{in: types.NativeMint, out: types.USDCMint}, nil
	case ActionUSDCToSol:
		return swapRoute{in: types.USDCMint, out: types.NativeMint}, nil
	case ActionSolToUSDCFixed:
		return swapRoute{in: types.NativeMint, out: types.USDCMint, fixedAmount: true}, nil
	case ActionUSDCToSolFixed:
		return swapRoute{in: types.USDCMint, out: types.NativeMint, fixedAmount: true}, nil
	case ActionBuyFixed, ActionSellFixed:
		ca, err := parseMint(req.CA, "Missing token address")
		if err != nil {
			return swapRoute{}, err
		}
		if action == ActionBuyFixed {
			return swapRoute{in: types.NativeMint, out: ca, fixedAmount: true}, nil
		}
		return swapRoute{in: ca, out: types.NativeMint, fixedAmount: true}, nil
	default:
		in, err := parseMint(req.InputMint, "Missing input_mint")
		if err != nil {
			return swapRoute{}, err
		}
		out, err := parseMint(req.OutputMint, "Missing output_mint")
		if err != nil {
			return swapRoute{}, err
		}
		if in.Equals(out) {
			return swapRoute{}, swap.InvalidRequest("input_mint and output_mint are the same")
		}
		return swapRoute{in: in, out: out}, nil
	}
}

func (d *Dispatcher) withdraw(ctx context.Context, log zerolog.Logger, action string, owner solana.PrivateKey, req types.Request) types.Response {
	to, err := parseMint(req.ToAddress, "Missing to_address")
	if err != nil {
		return types.ErrorResponse(swap.Message(err))
	}
	if req.Amount == nil {
		return types.ErrorResponse("Missing amount")
	}

	var sig solana.Signature
	if action == ActionWithdrawSol {
		sig, err = d.transfers.SendSOL(ctx, owner, to, *req.Amount)
	} else {
		sig, err = d.transfers.SendToken(ctx, owner, to, types.USDCMint, *req.Amount)
	}
	if err != nil {
		log.Warn().Err(err).Str("to", to.String()).Msg("withdraw failed")
		return types.ErrorResponse(swap.Message(err))
	}
	log.Info().Str("to", to.String()).Str("sig", sig.String()).Msg("withdraw sent")
	return types.TxResponse(sig.String())
}

func parseMint(s, missing string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, swap.InvalidRequest("%s", missing)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, swap.InvalidRequest("invalid address %q", s)
	}
	return pk, nil
}

func sigString(sig solana.Signature) string {
	if sig.IsZero() {
		return ""
	}
	return sig.String()
}

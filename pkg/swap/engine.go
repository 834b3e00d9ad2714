package swap

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"sol-swap/pkg/client"
	"sol-swap/pkg/logger"
	"sol-swap/pkg/metrics"
	"sol-swap/pkg/types"
)

// State is a step of a swap
type State string

const (
	StateResolving  State = "RESOLVING"
	StateQuoting    State = "QUOTING"
	StateBuilding   State = "BUILDING"
	StateSubmitting State = "SUBMITTING"
	StateDone       State = "DONE"
	StateExhausted  State = "EXHAUSTED"
)

// Config carries the engine tunables
type Config struct {
	NativeReserve           uint64
	Denylist                []string
	DefaultComputeUnitLimit uint64
	Submit                  SubmitterConfig
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		NativeReserve:           DefaultNativeReserve,
		Denylist:                DefaultDenylist,
		DefaultComputeUnitLimit: DefaultComputeUnitLimit,
		Submit:                  DefaultSubmitterConfig(),
	}
}

// Engine executes swaps. It holds no per-swap state and is safe for concurrent use.
type Engine struct {
	ledger    Ledger
	agg       Aggregator
	resolver  *Resolver
	builder   *Builder
	submitter *Submitter
	denylist  []string
	log       zerolog.Logger
}

// NewEngine wires an engine from its collaborators
func NewEngine(l Ledger, agg Aggregator, cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		ledger:    l,
		agg:       agg,
		resolver:  NewResolver(l, cfg.NativeReserve, log),
		builder:   NewBuilder(agg, cfg.DefaultComputeUnitLimit, log),
		submitter: NewSubmitter(l, cfg.Submit, log),
		denylist:  cfg.Denylist,
		log:       log,
	}
}

// Submitter exposes the engine's submitter for other transactions signed by the same wallet
func (e *Engine) Submitter() *Submitter {
	return e.submitter
}

// Execute runs intent to completion and returns the normalized outcome
func (e *Engine) Execute(ctx context.Context, intent types.SwapIntent) types.SwapOutcome {
	start := time.Now()
	log := logger.FromContext(ctx, e.log).With().
		Str("owner", intent.Owner.PublicKey().String()).
		Str("mint_in", intent.InputMint.String()).
		Str("mint_out", intent.OutputMint.String()).
		Logger()

	out, err := e.run(ctx, intent, log)
	if err != nil {
		out = failure(out, err)
		log.Warn().Err(err).Str("kind", string(out.ErrorKind)).Msg("swap failed")
	} else {
		log.Info().
			Str("sig", out.TransactionID).
			Uint64("in_amount", out.InAmount).
			Uint64("out_amount", out.OutAmount).
			Msg("swap succeeded")
	}

	label := "success"
	if !out.Success {
		label = string(out.ErrorKind)
		if label == "" {
			label = "error"
		}
	}
	metrics.SwapsTotal.WithLabelValues(label).Inc()
	metrics.SwapDuration.Observe(time.Since(start).Seconds())
	return out
}

func (e *Engine) run(ctx context.Context, intent types.SwapIntent, log zerolog.Logger) (types.SwapOutcome, error) {
	log.Debug().Str("state", string(StateResolving)).Msg("swap state")
	res, err := e.resolver.Resolve(ctx, intent)
	if err != nil {
		return types.SwapOutcome{}, err
	}
	if len(res.Prerequisites) > 0 {
		if err := e.resolver.EnsureAccounts(ctx, intent.Owner, res.Prerequisites, e.submitter); err != nil {
			return types.SwapOutcome{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return types.SwapOutcome{}, cancelled(err)
	}
	log.Debug().Str("state", string(StateQuoting)).Uint64("amount", res.Amount).Msg("swap state")
	quote, err := e.quote(ctx, intent, res.Amount)
	if err != nil {
		return types.SwapOutcome{}, err
	}

	cands := SelectCandidates(quote, e.denylist)
	defer func() {
		for _, s := range cands.Skipped() {
			metrics.RouteAttemptsTotal.WithLabelValues("denied").Inc()
			log.Info().Int("route", s.Index).Str("venue", s.Venue).Msg("skipped denylisted route")
		}
	}()

	owner := intent.Owner.PublicKey()
	for {
		if err := ctx.Err(); err != nil {
			return types.SwapOutcome{}, cancelled(err)
		}
		cand, ok := cands.Next()
		if !ok {
			break
		}
		routeLog := log.With().Int("route", cand.Index).Str("venue", cand.Venue).Logger()

		routeLog.Debug().Str("state", string(StateBuilding)).Msg("swap state")
		built, err := e.builder.Build(ctx, quote, cand, owner, intent.FeeBudget)
		if err != nil {
			if KindOf(err) == types.ErrCancelled {
				return types.SwapOutcome{}, err
			}
			metrics.RouteAttemptsTotal.WithLabelValues("rejected").Inc()
			routeLog.Warn().Err(err).Msg("route rejected")
			continue
		}
		if err := Sign(built, intent.Owner); err != nil {
			metrics.RouteAttemptsTotal.WithLabelValues("rejected").Inc()
			routeLog.Warn().Err(err).Msg("route rejected")
			continue
		}

		routeLog.Debug().Str("state", string(StateSubmitting)).Msg("swap state")
		sig, err := e.submitter.SubmitUntil(ctx, built.Tx, built.LastValidBlockHeight)
		if err != nil {
			if KindOf(err) == types.ErrCancelled {
				return types.SwapOutcome{TransactionID: sigString(sig)}, err
			}
			metrics.RouteAttemptsTotal.WithLabelValues("submission_failed").Inc()
			routeLog.Warn().Err(err).Msg("route submission failed")
			continue
		}

		metrics.RouteAttemptsTotal.WithLabelValues("ok").Inc()
		routeLog.Debug().Str("state", string(StateDone)).Str("sig", sig.String()).Msg("swap state")
		return types.SwapOutcome{
			Success:       true,
			TransactionID: sig.String(),
			InAmount:      built.InAmount,
			OutAmount:     built.OutAmount,
		}, nil
	}

	log.Debug().Str("state", string(StateExhausted)).Msg("swap state")
	return types.SwapOutcome{}, allRoutesFailed()
}

func (e *Engine) quote(ctx context.Context, intent types.SwapIntent, amount uint64) (*client.Quote, error) {
	quote, err := e.agg.GetQuote(ctx, intent.InputMint, intent.OutputMint, amount, intent.SlippageBps)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx.Err())
		}
		return nil, quoteUnavailable(err)
	}
	return quote, nil
}

// Preview is a dry run: the resolved amount, the quote and the routes that would be tried
type Preview struct {
	Amount        uint64
	Quote         *client.Quote
	Candidates    []CandidateRoute
	Skipped       []CandidateRoute
	Prerequisites []Prerequisite
}

// Preview resolves and quotes intent without signing or submitting anything
func (e *Engine) Preview(ctx context.Context, intent types.SwapIntent) (*Preview, error) {
	res, err := e.resolver.Resolve(ctx, intent)
	if err != nil {
		return nil, err
	}
	quote, err := e.quote(ctx, intent, res.Amount)
	if err != nil {
		return nil, err
	}
	cands := SelectCandidates(quote, e.denylist)
	remaining := cands.Remaining()
	return &Preview{
		Amount:        res.Amount,
		Quote:         quote,
		Candidates:    remaining,
		Skipped:       cands.Skipped(),
		Prerequisites: res.Prerequisites,
	}, nil
}

func failure(partial types.SwapOutcome, err error) types.SwapOutcome {
	return types.SwapOutcome{
		Success:       false,
		TransactionID: partial.TransactionID,
		ErrorKind:     KindOf(err),
		Error:         Message(err),
	}
}

func sigString(sig solana.Signature) string {
	if sig.IsZero() {
		return ""
	}
	return sig.String()
}

package swap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"sol-swap/pkg/ledger"
	"sol-swap/pkg/metrics"
	"sol-swap/pkg/retry"
)

// ConfirmationMode decides when a broadcast transaction counts as done
type ConfirmationMode int

const (
	// WaitForFinality polls the cluster until the transaction reaches the target commitment
	WaitForFinality ConfirmationMode = iota
	// FireAndForget succeeds as soon as the RPC node accepts the broadcast
	FireAndForget
)

func (m ConfirmationMode) String() string {
	if m == FireAndForget {
		return "fire-and-forget"
	}
	return "finality"
}

// ParseConfirmationMode maps a config value to a mode
func ParseConfirmationMode(s string) (ConfirmationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "finality", "wait", "wait-for-finality":
		return WaitForFinality, nil
	case "fire-and-forget", "fire", "none":
		return FireAndForget, nil
	default:
		return WaitForFinality, fmt.Errorf("unknown confirmation mode %q", s)
	}
}

// Confirmation is the result of polling for a signature
type Confirmation int

const (
	Confirmed Confirmation = iota
	TimedOut
	FailedOnChain
	// Expired means the blockhash aged out before the cluster saw the transaction
	Expired
)

func (c Confirmation) String() string {
	switch c {
	case Confirmed:
		return "confirmed"
	case TimedOut:
		return "timed out"
	case Expired:
		return "expired"
	default:
		return "failed"
	}
}

// SubmitterConfig tunes broadcast retries and confirmation polling
type SubmitterConfig struct {
	Retry        retry.Policy
	Mode         ConfirmationMode
	Commitment   rpc.CommitmentType
	PollInterval time.Duration
	Timeout      time.Duration
}

// DefaultSubmitterConfig returns three attempts one second apart, waiting for confirmed
func DefaultSubmitterConfig() SubmitterConfig {
	return SubmitterConfig{
		Retry:        retry.Fixed(3, time.Second),
		Mode:         WaitForFinality,
		Commitment:   rpc.CommitmentConfirmed,
		PollInterval: 2 * time.Second,
		Timeout:      60 * time.Second,
	}
}

// Submitter broadcasts signed transactions and optionally waits for them to land
type Submitter struct {
	net Broadcaster
	cfg SubmitterConfig
	log zerolog.Logger
}

// NewSubmitter creates a submitter over the given broadcaster
func NewSubmitter(net Broadcaster, cfg SubmitterConfig, log zerolog.Logger) *Submitter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Commitment == "" {
		cfg.Commitment = rpc.CommitmentConfirmed
	}
	return &Submitter{net: net, cfg: cfg, log: log}
}

// Submit broadcasts tx using the configured confirmation mode
func (s *Submitter) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return s.submit(ctx, tx, s.cfg.Mode, 0)
}

// SubmitUntil is Submit for a transaction whose blockhash stops being valid
// after block height lastValid. Zero disables the expiry check.
func (s *Submitter) SubmitUntil(ctx context.Context, tx *solana.Transaction, lastValid uint64) (solana.Signature, error) {
	return s.submit(ctx, tx, s.cfg.Mode, lastValid)
}

// SubmitWithMode broadcasts tx and, in WaitForFinality mode, polls for it.
// The same signed bytes are sent on every attempt. A poll that errors or
// times out is logged and the broadcast signature is still returned; a
// transaction the cluster reports as failed is a SubmissionFailed error.
func (s *Submitter) SubmitWithMode(ctx context.Context, tx *solana.Transaction, mode ConfirmationMode) (solana.Signature, error) {
	return s.submit(ctx, tx, mode, 0)
}

func (s *Submitter) submit(ctx context.Context, tx *solana.Transaction, mode ConfirmationMode, lastValid uint64) (solana.Signature, error) {
	sig, err := s.Broadcast(ctx, tx)
	if err != nil {
		return solana.Signature{}, err
	}
	if mode == FireAndForget {
		return sig, nil
	}

	result, status, err := s.Confirm(ctx, sig, lastValid)
	switch {
	case err != nil && ctx.Err() != nil:
		return sig, cancelled(ctx.Err())
	case err != nil:
		s.log.Warn().Err(err).Str("sig", sig.String()).Msg("confirmation poll failed, transaction may still land")
	case result == TimedOut:
		s.log.Warn().Str("sig", sig.String()).Dur("timeout", s.cfg.Timeout).Msg("confirmation timed out, transaction may still land")
	case result == FailedOnChain:
		return sig, submissionFailed(fmt.Errorf("transaction %s failed: %s", sig, status.Err))
	case result == Expired:
		return sig, submissionFailed(fmt.Errorf("transaction %s expired at block height %d", sig, lastValid))
	default:
		s.log.Debug().Str("sig", sig.String()).Str("status", string(status.Level)).Msg("transaction confirmed")
	}
	return sig, nil
}

// Broadcast sends tx up to the configured number of attempts
func (s *Submitter) Broadcast(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context, attempt int) error {
		out, err := s.net.SendTransaction(ctx, tx)
		if err != nil {
			metrics.SubmitAttemptsTotal.WithLabelValues("error").Inc()
			if ctx.Err() != nil {
				return retry.Permanent(ctx.Err())
			}
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("broadcast failed")
			return err
		}
		metrics.SubmitAttemptsTotal.WithLabelValues("ok").Inc()
		sig = out
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return solana.Signature{}, cancelled(err)
		}
		return solana.Signature{}, submissionFailed(err)
	}
	return sig, nil
}

// Confirm polls the cluster until sig reaches the configured commitment,
// fails on chain, or the timeout elapses. While the signature is unknown and
// lastValid is non-zero, polling stops once the chain passes that height.
// A non-nil error means the poll itself broke, not that the transaction failed.
func (s *Submitter) Confirm(ctx context.Context, sig solana.Signature, lastValid uint64) (Confirmation, ledger.SignatureStatus, error) {
	pollCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := s.net.SignatureStatus(pollCtx, sig)
		if err != nil {
			if ctx.Err() == nil && pollCtx.Err() != nil {
				return TimedOut, status, nil
			}
			return TimedOut, status, err
		}
		if status.Failed {
			return FailedOnChain, status, nil
		}
		if status.Reached(s.cfg.Commitment) {
			return Confirmed, status, nil
		}
		if !status.Found && lastValid > 0 {
			height, err := s.net.BlockHeight(pollCtx)
			if err == nil && height > lastValid {
				return Expired, status, nil
			}
			if err != nil {
				s.log.Debug().Err(err).Msg("block height unavailable")
			}
		}

		select {
		case <-ctx.Done():
			return TimedOut, status, ctx.Err()
		case <-pollCtx.Done():
			return TimedOut, status, nil
		case <-ticker.C:
		}
	}
}

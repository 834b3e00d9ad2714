package swap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"sol-swap/pkg/ledger"
	"sol-swap/pkg/retry"
	"sol-swap/pkg/types"
)

func signedTx(t *testing.T) *solana.Transaction {
	t.Helper()
	owner := newOwner(t)
	tx, err := DecodeTransaction(unsignedTx(owner.PublicKey()))
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	if err := SignWith(tx, owner); err != nil {
		t.Fatalf("SignWith: %v", err)
	}
	return tx
}

func submitterFor(l *fakeLedger, mode ConfirmationMode) *Submitter {
	return NewSubmitter(l, testConfig(mode).Submit, nopLog)
}

func TestParseConfirmationMode(t *testing.T) {
	cases := map[string]ConfirmationMode{
		"":                  WaitForFinality,
		"finality":          WaitForFinality,
		"wait":              WaitForFinality,
		"wait-for-finality": WaitForFinality,
		"fire-and-forget":   FireAndForget,
		"Fire-And-Forget":   FireAndForget,
		"fire":              FireAndForget,
		"none":              FireAndForget,
	}
	for in, want := range cases {
		got, err := ParseConfirmationMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseConfirmationMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseConfirmationMode("eventually"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestSubmitFireAndForgetSkipsPolling(t *testing.T) {
	l := newFakeLedger(0)
	tx := signedTx(t)

	sig, err := submitterFor(l, FireAndForget).Submit(context.Background(), tx)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !sig.Equals(tx.Signatures[0]) {
		t.Fatalf("unexpected signature %s", sig)
	}
	if l.statusCalls != 0 {
		t.Fatalf("fire-and-forget must not poll, got %d polls", l.statusCalls)
	}
}

func TestSubmitExhaustsAttempts(t *testing.T) {
	l := newFakeLedger(0)
	boom := errors.New("connection reset")
	l.sendErrs = []error{boom, boom, boom, boom}

	_, err := submitterFor(l, FireAndForget).Submit(context.Background(), signedTx(t))
	if KindOf(err) != types.ErrSubmissionFailed {
		t.Fatalf("expected SubmissionFailed, got %v", err)
	}
	if !errors.Is(err, retry.ErrExhausted) || !errors.Is(err, boom) {
		t.Fatalf("expected exhausted error wrapping the last failure, got %v", err)
	}
	if l.sends() != 3 {
		t.Fatalf("expected 3 attempts, got %d", l.sends())
	}
}

func TestSubmitPollErrorStillSucceeds(t *testing.T) {
	l := newFakeLedger(0)
	l.statusErr = errors.New("rpc unavailable")

	sig, err := submitterFor(l, WaitForFinality).Submit(context.Background(), signedTx(t))
	if err != nil {
		t.Fatalf("poll failure must not fail the submission: %v", err)
	}
	if sig.IsZero() {
		t.Fatalf("expected a signature")
	}
}

func TestSubmitConfirmationTimeoutStillSucceeds(t *testing.T) {
	l := newFakeLedger(0)
	l.status = ledger.SignatureStatus{}
	cfg := testConfig(WaitForFinality).Submit
	cfg.Timeout = 20 * time.Millisecond
	sub := NewSubmitter(l, cfg, nopLog)

	if _, err := sub.Submit(context.Background(), signedTx(t)); err != nil {
		t.Fatalf("timeout must not fail the submission: %v", err)
	}
	if l.statusCalls < 2 {
		t.Fatalf("expected repeated polling, got %d", l.statusCalls)
	}
}

func TestConfirmWaitsForCommitment(t *testing.T) {
	l := newFakeLedger(0)
	l.status = ledger.SignatureStatus{Found: true, Level: rpc.ConfirmationStatusProcessed}
	cfg := testConfig(WaitForFinality).Submit
	cfg.Commitment = rpc.CommitmentFinalized
	cfg.Timeout = 20 * time.Millisecond
	sub := NewSubmitter(l, cfg, nopLog)

	result, _, err := sub.Confirm(context.Background(), solana.Signature{1}, 0)
	if err != nil || result != TimedOut {
		t.Fatalf("processed must not satisfy finalized: %v %v", result, err)
	}
}

func TestSubmitOnChainFailure(t *testing.T) {
	l := newFakeLedger(0)
	l.status = ledger.SignatureStatus{Found: true, Failed: true, Err: "InstructionError"}

	_, err := submitterFor(l, WaitForFinality).Submit(context.Background(), signedTx(t))
	if KindOf(err) != types.ErrSubmissionFailed {
		t.Fatalf("expected SubmissionFailed, got %v", err)
	}
}

func TestSubmitCancelled(t *testing.T) {
	l := newFakeLedger(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := submitterFor(l, FireAndForget).Submit(ctx, signedTx(t))
	if KindOf(err) != types.ErrCancelled {
		t.Fatalf("expected Cancelled, got %v", err)
	}
	if l.sends() != 0 {
		t.Fatalf("nothing should be sent after cancel")
	}
}

func TestSubmitStopsPollingAfterBlockhashExpiry(t *testing.T) {
	l := newFakeLedger(0)
	l.status = ledger.SignatureStatus{}
	l.height = 201
	cfg := testConfig(WaitForFinality).Submit
	cfg.Timeout = time.Second
	sub := NewSubmitter(l, cfg, nopLog)

	start := time.Now()
	_, err := sub.SubmitUntil(context.Background(), signedTx(t), 200)
	if KindOf(err) != types.ErrSubmissionFailed {
		t.Fatalf("expected SubmissionFailed, got %v", err)
	}
	if l.statusCalls != 1 {
		t.Fatalf("expected a single poll before giving up, got %d", l.statusCalls)
	}
	if time.Since(start) >= cfg.Timeout {
		t.Fatalf("expiry should end polling before the timeout")
	}
}

func TestConfirmKeepsPollingBeforeExpiry(t *testing.T) {
	l := newFakeLedger(0)
	l.status = ledger.SignatureStatus{}
	l.height = 200
	cfg := testConfig(WaitForFinality).Submit
	cfg.Timeout = 20 * time.Millisecond
	sub := NewSubmitter(l, cfg, nopLog)

	result, _, err := sub.Confirm(context.Background(), solana.Signature{1}, 200)
	if err != nil || result != TimedOut {
		t.Fatalf("blockhash still valid at its last height: %v %v", result, err)
	}
}

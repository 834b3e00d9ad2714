package swap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"sol-swap/pkg/client"
	"sol-swap/pkg/ledger"
	"sol-swap/pkg/retry"
	"sol-swap/pkg/types"
)

type fakeLedger struct {
	mu sync.Mutex

	native   uint64
	tokens   map[solana.PublicKey]ledger.TokenBalance
	missing  map[solana.PublicKey]bool
	decimals map[solana.PublicKey]uint8

	sendErrs  []error
	sent      [][]byte
	status    ledger.SignatureStatus
	statusErr error
	height    uint64

	balanceCalls int
	statusCalls  int
}

func newFakeLedger(native uint64) *fakeLedger {
	return &fakeLedger{
		native:  native,
		tokens:  map[solana.PublicKey]ledger.TokenBalance{},
		missing: map[solana.PublicKey]bool{},
		status:  ledger.SignatureStatus{Found: true, Level: rpc.ConfirmationStatusFinalized},
	}
}

func (f *fakeLedger) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	return f.native, nil
}

func (f *fakeLedger) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (ledger.TokenBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tb, ok := f.tokens[mint]
	if !ok {
		ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)
		return ledger.TokenBalance{Account: ata}, nil
	}
	return tb, nil
}

func (f *fakeLedger) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.missing[account], nil
}

func (f *fakeLedger) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.decimals[mint]
	if !ok {
		return 0, errors.New("mint account not found")
	}
	return d, nil
}

func (f *fakeLedger) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	return solana.Hash{7}, nil
}

func (f *fakeLedger) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, err := tx.MarshalBinary()
	if err != nil {
		return solana.Signature{}, err
	}
	f.sent = append(f.sent, raw)
	if n := len(f.sent) - 1; n < len(f.sendErrs) && f.sendErrs[n] != nil {
		return solana.Signature{}, f.sendErrs[n]
	}
	return tx.Signatures[0], nil
}

func (f *fakeLedger) SignatureStatus(ctx context.Context, sig solana.Signature) (ledger.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	return f.status, f.statusErr
}

func (f *fakeLedger) BlockHeight(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, nil
}

func (f *fakeLedger) sends() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeAggregator serves one quote and answers assembly requests by venue label
type fakeAggregator struct {
	mu sync.Mutex

	quote    *client.Quote
	quoteErr error

	// venues whose assembly reports a simulation error
	failing map[string]bool
	onBuild func()
	// reported as lastValidBlockHeight on every assembled transaction
	lastValid uint64

	quoteCalls  int
	quoteAmount uint64
	builds      []string
	prices      []uint64
}

func (f *fakeAggregator) GetQuote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps uint16) (*client.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	f.quoteAmount = amount
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return f.quote, nil
}

func (f *fakeAggregator) BuildSwap(ctx context.Context, quote json.RawMessage, owner solana.PublicKey, computeUnitPrice uint64) (*client.SwapResponse, error) {
	if f.onBuild != nil {
		f.onBuild()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc struct {
		RoutePlan json.RawMessage `json:"routePlan"`
	}
	if err := json.Unmarshal(quote, &doc); err != nil {
		return nil, err
	}
	venue := client.NewRoute(doc.RoutePlan).VenueLabel()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, venue)
	f.prices = append(f.prices, computeUnitPrice)
	if f.failing[venue] {
		return &client.SwapResponse{SimulationError: json.RawMessage(`{"error":"slippage exceeded"}`)}, nil
	}
	return &client.SwapResponse{
		SwapTransaction:      unsignedTx(owner),
		LastValidBlockHeight: f.lastValid,
		SimulationError:      json.RawMessage("null"),
	}, nil
}

func (f *fakeAggregator) built() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.builds...)
}

// unsignedTx mimics an aggregator payload: a message whose only signer is
// owner, with an empty signature slot
func unsignedTx(owner solana.PublicKey) string {
	ix := system.NewTransferInstruction(1, owner, solana.NewWallet().PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{9}, solana.TransactionPayer(owner))
	if err != nil {
		panic(err)
	}
	tx.Signatures = make([]solana.Signature, 1)
	raw, err := tx.MarshalBinary()
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// testQuote builds a SOL to USDC quote; each label becomes a single-hop route
// whose output is 1000 times its position plus one
func testQuote(t *testing.T, inAmount uint64, labels ...string) *client.Quote {
	t.Helper()
	plan := func(i int, label string) string {
		return fmt.Sprintf(`[{"swapInfo":{"label":%q,"inputMint":%q,"outputMint":%q,"inAmount":"%d","outAmount":"%d"},"percent":100}]`,
			label, types.NativeMint.String(), types.USDCMint.String(), inAmount, 1000*(i+1))
	}
	others := make([]string, 0, len(labels))
	for i, l := range labels[1:] {
		others = append(others, plan(i+1, l))
	}
	body := fmt.Sprintf(`{"inputMint":%q,"outputMint":%q,"inAmount":"%d","outAmount":"1000","slippageBps":100,"routePlan":%s,"otherRoutePlans":[%s]}`,
		types.NativeMint.String(), types.USDCMint.String(), inAmount, plan(0, labels[0]), strings.Join(others, ","))
	q, err := client.ParseQuote([]byte(body))
	if err != nil {
		t.Fatalf("ParseQuote: %v", err)
	}
	return q
}

func testConfig(mode ConfirmationMode) Config {
	return Config{
		NativeReserve:           DefaultNativeReserve,
		Denylist:                DefaultDenylist,
		DefaultComputeUnitLimit: DefaultComputeUnitLimit,
		Submit: SubmitterConfig{
			Retry:        retry.Fixed(3, 0),
			Mode:         mode,
			Commitment:   rpc.CommitmentConfirmed,
			PollInterval: time.Millisecond,
			Timeout:      50 * time.Millisecond,
		},
	}
}

func nativeIntent(owner solana.PrivateKey, amount *uint64) types.SwapIntent {
	return types.SwapIntent{
		Owner:       owner,
		InputMint:   types.NativeMint,
		OutputMint:  types.USDCMint,
		Amount:      amount,
		SlippageBps: 100,
		FeeBudget:   DefaultFeeBudget,
	}
}

func newOwner(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey: %v", err)
	}
	return key
}

func u64(v uint64) *uint64 { return &v }

var nopLog = zerolog.Nop()

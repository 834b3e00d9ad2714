package swap

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"math/bits"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"

	"sol-swap/pkg/client"
	"sol-swap/pkg/types"
)

const (
	// DefaultComputeUnitLimit is assumed when a quote carries no compute estimate
	DefaultComputeUnitLimit uint64 = 200_000
	// DefaultFeeBudget is 0.001 SOL of priority fee
	DefaultFeeBudget uint64 = 1_000_000
)

// PriorityFee converts a lamport fee budget into a price per compute unit in
// micro-lamports: floor(feeBudget * 1e6 / computeUnits). The result saturates
// instead of overflowing.
func PriorityFee(feeBudget, computeUnits uint64) uint64 {
	if feeBudget == 0 {
		return 0
	}
	if computeUnits == 0 {
		computeUnits = DefaultComputeUnitLimit
	}
	hi, lo := bits.Mul64(feeBudget, 1_000_000)
	if hi >= computeUnits {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, computeUnits)
	return q
}

// BuiltTransaction is an aggregator-assembled transaction for one candidate route
type BuiltTransaction struct {
	Candidate            CandidateRoute
	Tx                   *solana.Transaction
	InAmount             uint64
	OutAmount            uint64
	LastValidBlockHeight uint64
}

// Builder obtains transactions for candidate routes from the aggregator
type Builder struct {
	agg       Aggregator
	defaultCU uint64
	log       zerolog.Logger
}

// NewBuilder creates a builder. defaultCU is used when a quote has no compute estimate.
func NewBuilder(agg Aggregator, defaultCU uint64, log zerolog.Logger) *Builder {
	if defaultCU == 0 {
		defaultCU = DefaultComputeUnitLimit
	}
	return &Builder{agg: agg, defaultCU: defaultCU, log: log}
}

// Build sends the quote with cand substituted as its route to the assembly
// endpoint and decodes the returned transaction. Per-route problems are
// reported as RouteRejected or MalformedUpstreamResponse.
func (b *Builder) Build(ctx context.Context, quote *client.Quote, cand CandidateRoute, owner solana.PublicKey, feeBudget uint64) (*BuiltTransaction, error) {
	doc, err := quote.WithRoute(cand.Route)
	if err != nil {
		return nil, newError(types.ErrMalformedResponse, err, "route %d could not be encoded", cand.Index)
	}

	cu := quote.ComputeUnitLimit
	if cu == 0 {
		cu = b.defaultCU
	}
	price := PriorityFee(feeBudget, cu)

	resp, err := b.agg.BuildSwap(ctx, doc, owner, price)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx.Err())
		}
		return nil, routeRejected(err, "assembly failed for route %d", cand.Index)
	}
	if msg, failed := resp.Simulated(); failed {
		return nil, routeRejected(nil, "simulation failed for route %d: %s", cand.Index, msg)
	}
	if resp.SwapTransaction == "" {
		return nil, routeRejected(nil, "no swap transaction returned for route %d", cand.Index)
	}

	tx, err := DecodeTransaction(resp.SwapTransaction)
	if err != nil {
		return nil, newError(types.ErrMalformedResponse, err, "route %d returned an undecodable transaction", cand.Index)
	}

	in, out := quote.RouteAmounts(cand.Route)
	b.log.Debug().
		Int("route", cand.Index).
		Str("venue", cand.Venue).
		Uint64("cu_price", price).
		Msg("route assembled")

	return &BuiltTransaction{
		Candidate:            cand,
		Tx:                   tx,
		InAmount:             in,
		OutAmount:            out,
		LastValidBlockHeight: resp.LastValidBlockHeight,
	}, nil
}

// DecodeTransaction parses a base64 wire transaction
func DecodeTransaction(payload string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("unmarshal tx: %w", err)
	}
	return tx, nil
}

// Sign signs the built transaction with the owner key
func Sign(built *BuiltTransaction, key solana.PrivateKey) error {
	return SignWith(built.Tx, key)
}

// SignWith places key's signature in its signer slot. The message is left
// untouched and any other signer slots keep their current contents.
func SignWith(tx *solana.Transaction, key solana.PrivateKey) error {
	pub := key.PublicKey()
	if !tx.Message.Signers().Has(pub) {
		return fmt.Errorf("%s is not a signer of the transaction", pub)
	}
	_, err := tx.PartialSign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

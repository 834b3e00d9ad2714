// Package swap turns a swap intent into a confirmed transaction.
//
// The Engine resolves the spendable amount, fetches one quote, and then walks
// the quote's candidate routes one at a time: each route is assembled by the
// aggregator, signed with the owner's key, broadcast with retries and
// optionally confirmed. The first route that lands wins.
package swap

import (
	"context"
	"encoding/json"

	"github.com/gagliardetto/solana-go"

	"sol-swap/pkg/client"
	"sol-swap/pkg/ledger"
)

// Ledger is the chain state the engine reads and writes
type Ledger interface {
	Balance(ctx context.Context, owner solana.PublicKey) (uint64, error)
	TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (ledger.TokenBalance, error)
	AccountExists(ctx context.Context, account solana.PublicKey) (bool, error)
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	Broadcaster
}

// Broadcaster submits transactions and reports their status
type Broadcaster interface {
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (ledger.SignatureStatus, error)
	BlockHeight(ctx context.Context) (uint64, error)
}

// Aggregator is the external quote and transaction-assembly service
type Aggregator interface {
	GetQuote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps uint16) (*client.Quote, error)
	BuildSwap(ctx context.Context, quote json.RawMessage, owner solana.PublicKey, computeUnitPrice uint64) (*client.SwapResponse, error)
}

var (
	_ Ledger     = (*ledger.Client)(nil)
	_ Aggregator = (*client.JupiterClient)(nil)
)

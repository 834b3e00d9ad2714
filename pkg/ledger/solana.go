package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TokenBalance is the state of a wallet's associated token account for one mint
type TokenBalance struct {
	Account  solana.PublicKey
	Exists   bool
	Amount   uint64
	Decimals uint8
}

// SignatureStatus is what the cluster currently reports for a transaction
type SignatureStatus struct {
	Found  bool
	Slot   uint64
	Level  rpc.ConfirmationStatusType
	Failed bool
	Err    string
}

// Reached reports whether the status satisfies the target commitment
func (s SignatureStatus) Reached(target rpc.CommitmentType) bool {
	if !s.Found {
		return false
	}
	return rank(string(s.Level)) >= rank(string(target))
}

func rank(level string) int {
	switch level {
	case string(rpc.CommitmentFinalized):
		return 3
	case string(rpc.CommitmentConfirmed):
		return 2
	case string(rpc.CommitmentProcessed):
		return 1
	default:
		return 0
	}
}

// Client reads wallet state from and broadcasts transactions to a Solana RPC node
type Client struct {
	rpc           *rpc.Client
	commitment    rpc.CommitmentType
	skipPreflight bool
}

// NewClient creates a ledger client for the given RPC endpoint
func NewClient(rpcURL, commitment string, skipPreflight bool) *Client {
	return NewWithRPC(rpc.New(rpcURL), commitment, skipPreflight)
}

// NewWithRPC wraps an existing RPC client
func NewWithRPC(client *rpc.Client, commitment string, skipPreflight bool) *Client {
	return &Client{
		rpc:           client,
		commitment:    ParseCommitment(commitment),
		skipPreflight: skipPreflight,
	}
}

// Commitment returns the commitment level reads and confirmations target
func (c *Client) Commitment() rpc.CommitmentType {
	return c.commitment
}

// Balance returns the SOL balance in lamports
func (c *Client) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	balance, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance.Value, nil
}

// TokenBalance returns the balance held in the owner's associated token account for mint.
// A missing account is reported with Exists=false and a zero amount.
func (c *Client) TokenBalance(ctx context.Context, owner, mint solana.PublicKey) (TokenBalance, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return TokenBalance{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	out := TokenBalance{Account: ata}

	exists, err := c.AccountExists(ctx, ata)
	if err != nil {
		return out, err
	}
	if !exists {
		return out, nil
	}
	out.Exists = true

	accountInfo, err := c.rpc.GetTokenAccountBalance(ctx, ata, c.commitment)
	if err != nil {
		return out, fmt.Errorf("failed to get token balance: %w", err)
	}
	if accountInfo.Value == nil {
		return out, fmt.Errorf("empty token balance for %s", ata)
	}

	amount, err := strconv.ParseUint(accountInfo.Value.Amount, 10, 64)
	if err != nil {
		return out, fmt.Errorf("failed to parse token balance: %w", err)
	}
	out.Amount = amount
	out.Decimals = accountInfo.Value.Decimals
	return out, nil
}

// AccountExists checks if an account exists on-chain
func (c *Client) AccountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	accountInfo, err := c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get account info: %w", err)
	}
	return accountInfo.Value != nil, nil
}

// MintDecimals reads the decimals field of a mint account
func (c *Client) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	accountInfo, err := c.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to get mint account info: %w", err)
	}
	if accountInfo.Value == nil {
		return 0, fmt.Errorf("mint account not found")
	}

	// The decimals field is at byte offset 44 in the mint account data
	data := accountInfo.Value.Data.GetBinary()
	if len(data) < 45 {
		return 0, fmt.Errorf("invalid mint account data")
	}
	return data[44], nil
}

// LatestBlockhash returns the most recent blockhash at the client commitment
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	recent, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if recent.Value == nil {
		return solana.Hash{}, fmt.Errorf("empty blockhash response")
	}
	return recent.Value.Blockhash, nil
}

// BlockHeight returns the current block height at the client commitment
func (c *Client) BlockHeight(ctx context.Context) (uint64, error) {
	height, err := c.rpc.GetBlockHeight(ctx, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get block height: %w", err)
	}
	return height, nil
}

// SendTransaction broadcasts a signed transaction without waiting for confirmation
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	opts := rpc.TransactionOpts{
		SkipPreflight:       c.skipPreflight,
		PreflightCommitment: c.commitment,
	}
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// SignatureStatus polls the cluster for the status of a transaction
func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (SignatureStatus, error) {
	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return SignatureStatus{}, nil
		}
		return SignatureStatus{}, fmt.Errorf("failed to get signature status: %w", err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return SignatureStatus{}, nil
	}

	st := out.Value[0]
	status := SignatureStatus{
		Found: true,
		Slot:  st.Slot,
		Level: st.ConfirmationStatus,
	}
	if st.Err != nil {
		status.Failed = true
		status.Err = fmt.Sprintf("%v", st.Err)
	}
	return status, nil
}

// ParseCommitment maps a config string to an RPC commitment, defaulting to confirmed
func ParseCommitment(commitment string) rpc.CommitmentType {
	switch strings.ToLower(commitment) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}

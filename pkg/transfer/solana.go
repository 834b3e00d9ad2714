// Package transfer sends SOL and SPL tokens from a wallet to another address.
package transfer

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/rs/zerolog"

	"sol-swap/pkg/swap"
	"sol-swap/pkg/types"
)

// SignatureFee is the base fee of a single-signature transaction
const SignatureFee uint64 = 5000

// Sender builds, signs and submits transfers
type Sender struct {
	ledger swap.Ledger
	sub    *swap.Submitter
	log    zerolog.Logger
}

// NewSender creates a sender that submits through sub
func NewSender(l swap.Ledger, sub *swap.Submitter, log zerolog.Logger) *Sender {
	return &Sender{ledger: l, sub: sub, log: log}
}

// SendSOL transfers lamports to recipient and waits for confirmation
func (s *Sender) SendSOL(ctx context.Context, from solana.PrivateKey, recipient solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if lamports == 0 {
		return solana.Signature{}, swap.InvalidRequest("amount must be greater than zero")
	}
	publicKey := from.PublicKey()

	balance, err := s.ledger.Balance(ctx, publicKey)
	if err != nil {
		return solana.Signature{}, err
	}

	// Leave room for the signature fee
	var available uint64
	if balance > SignatureFee {
		available = balance - SignatureFee
	}
	if lamports > available {
		return solana.Signature{}, swap.InsufficientFunds("SOL", types.FormatUnits(available, types.NativeDecimals))
	}

	instruction := system.NewTransferInstruction(lamports, publicKey, recipient).Build()
	return s.submit(ctx, from, []solana.Instruction{instruction})
}

// SendToken transfers amount base units of mint to recipient, creating the
// recipient's token account in the same transaction when it is missing
func (s *Sender) SendToken(ctx context.Context, from solana.PrivateKey, recipient, mint solana.PublicKey, amount uint64) (solana.Signature, error) {
	if amount == 0 {
		return solana.Signature{}, swap.InvalidRequest("amount must be greater than zero")
	}
	publicKey := from.PublicKey()

	source, err := s.ledger.TokenBalance(ctx, publicKey, mint)
	if err != nil {
		return solana.Signature{}, err
	}
	decimals, err := s.decimals(ctx, mint, source.Exists, source.Decimals)
	if err != nil {
		return solana.Signature{}, err
	}
	if source.Amount < amount {
		return solana.Signature{}, swap.InsufficientFunds(types.SymbolFor(mint), types.FormatUnits(source.Amount, decimals))
	}

	destTokenAccount, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to get destination token account: %w", err)
	}
	destAccountExists, err := s.ledger.AccountExists(ctx, destTokenAccount)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to check destination account: %w", err)
	}

	instructions := []solana.Instruction{}
	if !destAccountExists {
		s.log.Debug().Str("account", destTokenAccount.String()).Msg("creating recipient token account")
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(
			publicKey, // payer
			recipient, // wallet
			mint,
		).Build())
	}
	instructions = append(instructions, token.NewTransferCheckedInstruction(
		amount,
		decimals,
		source.Account,
		mint,
		destTokenAccount,
		publicKey,
		[]solana.PublicKey{}, // no multisig
	).Build())

	return s.submit(ctx, from, instructions)
}

// CreateTokenAccount creates the owner's associated token account for mint and
// waits for it. An account that already exists yields a zero signature.
func (s *Sender) CreateTokenAccount(ctx context.Context, owner solana.PrivateKey, mint solana.PublicKey) (solana.Signature, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner.PublicKey(), mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to derive associated token address: %w", err)
	}
	exists, err := s.ledger.AccountExists(ctx, ata)
	if err != nil {
		return solana.Signature{}, err
	}
	if exists {
		s.log.Info().Str("account", ata.String()).Msg("token account already exists")
		return solana.Signature{}, nil
	}

	tx, err := swap.CreateAccountTransaction(ctx, s.ledger, owner, owner.PublicKey(), mint)
	if err != nil {
		return solana.Signature{}, err
	}
	return s.sub.SubmitWithMode(ctx, tx, swap.WaitForFinality)
}

func (s *Sender) submit(ctx context.Context, from solana.PrivateKey, instructions []solana.Instruction) (solana.Signature, error) {
	blockhash, err := s.ledger.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(from.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := swap.SignWith(tx, from); err != nil {
		return solana.Signature{}, err
	}
	return s.sub.SubmitWithMode(ctx, tx, swap.WaitForFinality)
}

func (s *Sender) decimals(ctx context.Context, mint solana.PublicKey, known bool, d uint8) (uint8, error) {
	switch {
	case known:
		return d, nil
	case mint.Equals(types.USDCMint):
		return types.USDCDecimals, nil
	}
	d, err := s.ledger.MintDecimals(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("failed to get token decimals: %w", err)
	}
	return d, nil
}

package swap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/rs/zerolog"

	"sol-swap/pkg/ledger"
	"sol-swap/pkg/metrics"
	"sol-swap/pkg/types"
)

// DefaultNativeReserve is the lamports kept back from a full-balance SOL swap for fees and rent
const DefaultNativeReserve uint64 = 4_500_000

// WalletState is a fresh read of the balances a swap depends on
type WalletState struct {
	Native uint64
	Tokens map[solana.PublicKey]ledger.TokenBalance
}

// TokenBalance returns the cached read for mint
func (w WalletState) TokenBalance(mint solana.PublicKey) (ledger.TokenBalance, bool) {
	tb, ok := w.Tokens[mint]
	return tb, ok
}

// Prerequisite is a holding account that must exist before the swap runs
type Prerequisite struct {
	Owner   solana.PublicKey
	Mint    solana.PublicKey
	Account solana.PublicKey
}

func (p Prerequisite) String() string {
	return fmt.Sprintf("%s account %s", types.SymbolFor(p.Mint), p.Account)
}

// Resolution is what the resolver decided for an intent
type Resolution struct {
	Amount        uint64
	Wallet        WalletState
	Prerequisites []Prerequisite
}

// Resolver computes the spendable amount for an intent and the accounts it needs
type Resolver struct {
	ledger  Ledger
	reserve uint64
	log     zerolog.Logger
}

// NewResolver creates a resolver keeping reserve lamports untouched on native input
func NewResolver(l Ledger, reserve uint64, log zerolog.Logger) *Resolver {
	return &Resolver{ledger: l, reserve: reserve, log: log}
}

// Resolve reads the wallet and returns the effective amount to swap
func (r *Resolver) Resolve(ctx context.Context, intent types.SwapIntent) (*Resolution, error) {
	if intent.Amount != nil && *intent.Amount == 0 {
		return nil, InvalidRequest("amount must be greater than zero")
	}
	owner := intent.Owner.PublicKey()

	native, err := r.ledger.Balance(ctx, owner)
	if err != nil {
		return nil, asCancelled(ctx, fmt.Errorf("failed to read SOL balance: %w", err))
	}
	res := &Resolution{
		Wallet: WalletState{Native: native, Tokens: map[solana.PublicKey]ledger.TokenBalance{}},
	}

	if intent.IsNativeInput() {
		var available uint64
		if native > r.reserve {
			available = native - r.reserve
		}
		switch {
		case intent.Amount == nil && available == 0:
			return nil, InsufficientFunds("SOL", types.FormatUnits(available, types.NativeDecimals))
		case intent.Amount == nil:
			res.Amount = available
		case *intent.Amount > available:
			return nil, InsufficientFunds("SOL", types.FormatUnits(available, types.NativeDecimals))
		default:
			res.Amount = *intent.Amount
		}
	} else {
		tb, err := r.ledger.TokenBalance(ctx, owner, intent.InputMint)
		if err != nil {
			return nil, asCancelled(ctx, fmt.Errorf("failed to read %s balance: %w", types.SymbolFor(intent.InputMint), err))
		}
		res.Wallet.Tokens[intent.InputMint] = tb

		available := tb.Amount
		if (intent.Amount == nil && available == 0) || (intent.Amount != nil && *intent.Amount > available) {
			decimals := r.decimals(ctx, intent.InputMint, tb)
			return nil, InsufficientFunds(types.SymbolFor(intent.InputMint), types.FormatUnits(available, decimals))
		}
		if intent.Amount == nil {
			res.Amount = available
		} else {
			res.Amount = *intent.Amount
		}
	}

	prereqs, err := r.prerequisites(ctx, owner, intent)
	if err != nil {
		return nil, err
	}
	res.Prerequisites = prereqs
	return res, nil
}

// prerequisites lists the wrapped-SOL account for native input and the
// output token account for non-native output, when absent
func (r *Resolver) prerequisites(ctx context.Context, owner solana.PublicKey, intent types.SwapIntent) ([]Prerequisite, error) {
	var mints []solana.PublicKey
	if intent.IsNativeInput() {
		mints = append(mints, types.NativeMint)
	}
	if !intent.OutputMint.Equals(types.NativeMint) {
		mints = append(mints, intent.OutputMint)
	}

	var out []Prerequisite
	for _, mint := range mints {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive associated token address: %w", err)
		}
		exists, err := r.ledger.AccountExists(ctx, ata)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cancelled(ctx.Err())
			}
			// the swap itself will surface a missing account
			r.log.Warn().Err(err).Str("account", ata.String()).Msg("could not check holding account")
			continue
		}
		if !exists {
			out = append(out, Prerequisite{Owner: owner, Mint: mint, Account: ata})
		}
	}
	return out, nil
}

func (r *Resolver) decimals(ctx context.Context, mint solana.PublicKey, tb ledger.TokenBalance) uint8 {
	switch {
	case tb.Exists:
		return tb.Decimals
	case mint.Equals(types.USDCMint):
		return types.USDCDecimals
	case mint.Equals(types.NativeMint):
		return types.NativeDecimals
	}
	d, err := r.ledger.MintDecimals(ctx, mint)
	if err != nil {
		r.log.Debug().Err(err).Str("mint", mint.String()).Msg("mint decimals unavailable")
		return 0
	}
	return d
}

// EnsureAccounts creates every missing holding account, each in its own
// transaction that is submitted and waited on. Failures are logged and
// dropped since the account may already exist by the time the create lands.
// Only cancellation is returned.
func (r *Resolver) EnsureAccounts(ctx context.Context, owner solana.PrivateKey, prereqs []Prerequisite, sub *Submitter) error {
	for _, p := range prereqs {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		sig, err := r.createAccount(ctx, owner, p, sub)
		if err != nil {
			if ctx.Err() != nil {
				return cancelled(ctx.Err())
			}
			metrics.PrereqAccountsTotal.WithLabelValues("failed").Inc()
			r.log.Warn().Err(err).Str("account", p.Account.String()).Msg("holding account creation failed, continuing")
			continue
		}
		metrics.PrereqAccountsTotal.WithLabelValues("created").Inc()
		r.log.Info().Str("account", p.Account.String()).Str("sig", sig.String()).Msg("holding account created")
	}
	return nil
}

func (r *Resolver) createAccount(ctx context.Context, owner solana.PrivateKey, p Prerequisite, sub *Submitter) (solana.Signature, error) {
	tx, err := CreateAccountTransaction(ctx, r.ledger, owner, p.Owner, p.Mint)
	if err != nil {
		return solana.Signature{}, err
	}
	return sub.SubmitWithMode(ctx, tx, WaitForFinality)
}

// CreateAccountTransaction builds and signs a transaction creating wallet's
// associated token account for mint, paid by payer
func CreateAccountTransaction(ctx context.Context, l Ledger, payer solana.PrivateKey, wallet, mint solana.PublicKey) (*solana.Transaction, error) {
	blockhash, err := l.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	instruction := associatedtokenaccount.NewCreateInstruction(payer.PublicKey(), wallet, mint).Build()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{instruction},
		blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := SignWith(tx, payer); err != nil {
		return nil, err
	}
	return tx, nil
}

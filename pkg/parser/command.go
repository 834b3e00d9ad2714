package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"sol-swap/pkg/types"
)

// SwapCommand is a parsed "<amount> <token> to <token>" phrase
type SwapCommand struct {
	Amount string // empty when All is set
	All    bool
	From   string
	To     string
}

// Symbols are matched case-insensitively; mint addresses keep their case
var swapPattern = regexp.MustCompile(`(?i)^(?:swap\s+)?(\d+\.?\d*|\.\d+|all|max)\s+(\S+)\s+to\s+(\S+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 SOL to USDC"
//   - "all USDC to SOL"
//   - "100 USDC to DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	command = strings.Join(strings.Fields(command), " ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount|all> <token> to <token>' (e.g., 'swap 1 SOL to USDC')")
	}

	cmd := &SwapCommand{
		From: NormalizeTokenSymbol(matches[2]),
		To:   NormalizeTokenSymbol(matches[3]),
	}
	switch strings.ToUpper(matches[1]) {
	case "ALL", "MAX":
		cmd.All = true
	default:
		cmd.Amount = matches[1]
	}
	if err := ValidateSwapCommand(cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// ValidateSwapCommand validates that a swap command has all required fields
func ValidateSwapCommand(cmd *SwapCommand) error {
	if cmd.Amount == "" && !cmd.All {
		return fmt.Errorf("amount is required")
	}
	if cmd.From == "" {
		return fmt.Errorf("source token is required")
	}
	if cmd.To == "" {
		return fmt.Errorf("destination token is required")
	}
	if cmd.From == cmd.To {
		return fmt.Errorf("source and destination token are the same")
	}
	return nil
}

// NormalizeTokenSymbol upper-cases known symbols and resolves aliases.
// Anything else is assumed to be a mint address and returned as given.
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)

	aliases := map[string]string{
		"SOL":  "SOL",
		"WSOL": "SOL",
		"USDC": "USDC",
	}
	if normalized, exists := aliases[strings.ToUpper(symbol)]; exists {
		return normalized
	}
	return symbol
}

// ResolveMint maps a symbol or base58 address to a mint
func ResolveMint(symbol string) (solana.PublicKey, error) {
	switch NormalizeTokenSymbol(symbol) {
	case "SOL":
		return types.NativeMint, nil
	case "USDC":
		return types.USDCMint, nil
	}
	mint, err := solana.PublicKeyFromBase58(symbol)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("unknown token %q: not a known symbol or mint address", symbol)
	}
	return mint, nil
}

// KnownDecimals returns the decimals of well-known mints
func KnownDecimals(mint solana.PublicKey) (uint8, bool) {
	switch {
	case mint.Equals(types.NativeMint):
		return types.NativeDecimals, true
	case mint.Equals(types.USDCMint):
		return types.USDCDecimals, true
	}
	return 0, false
}

// Plain decimal notation only; no signs or exponents
var amountPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ParseAmount converts a decimal string into base units without going through floats
func ParseAmount(amount string, decimals uint8) (uint64, error) {
	amount = strings.TrimSpace(amount)
	if !amountPattern.MatchString(amount) {
		return 0, fmt.Errorf("invalid amount %q", amount)
	}
	value, err := decimal.NewFromString(strings.TrimSuffix("0"+amount, "."))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}

	units := value.Shift(int32(decimals))
	if !units.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}
	if units.Sign() <= 0 {
		return 0, fmt.Errorf("amount must be greater than zero")
	}
	raw := units.BigInt()
	if !raw.IsUint64() {
		return 0, fmt.Errorf("amount %q is too large", amount)
	}
	return raw.Uint64(), nil
}

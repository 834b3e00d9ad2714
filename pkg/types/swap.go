package types

import (
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Well-known mints
var (
	NativeMint = solana.SolMint
	USDCMint   = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

const (
	NativeDecimals = 9
	USDCDecimals   = 6
)

// ErrorKind classifies why a swap did not succeed
type ErrorKind string

const (
	ErrInsufficientFunds ErrorKind = "InsufficientFunds"
	ErrQuoteUnavailable  ErrorKind = "QuoteUnavailable"
	ErrRouteRejected     ErrorKind = "RouteRejected"
	ErrSubmissionFailed  ErrorKind = "SubmissionFailed"
	ErrAllRoutesFailed   ErrorKind = "AllRoutesFailed"
	ErrMalformedResponse ErrorKind = "MalformedUpstreamResponse"
	ErrCancelled         ErrorKind = "Cancelled"
	ErrInvalidRequest    ErrorKind = "InvalidRequest"
)

// SwapIntent is a single request to exchange one asset for another.
// Amount == nil means "everything that can be spent".
type SwapIntent struct {
	Owner       solana.PrivateKey
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      *uint64
	SlippageBps uint16
	FeeBudget   uint64
}

// IsNativeInput reports whether the intent spends native SOL
func (i SwapIntent) IsNativeInput() bool {
	return i.InputMint.Equals(NativeMint)
}

// SwapOutcome is the normalized result of one swap
type SwapOutcome struct {
	Success       bool
	TransactionID string
	InAmount      uint64
	OutAmount     uint64
	ErrorKind     ErrorKind
	Error         string
}

// Request is the JSON envelope accepted by the exec command and the HTTP server
type Request struct {
	Action           string  `json:"action"`
	PrivateKey       string  `json:"private_key"`
	InputMint        string  `json:"input_mint,omitempty"`
	OutputMint       string  `json:"output_mint,omitempty"`
	CA               string  `json:"ca,omitempty"`
	Amount           *uint64 `json:"amount,omitempty"`
	ToAddress        string  `json:"to_address,omitempty"`
	SlippageBps      *uint16 `json:"slippage_bps,omitempty"`
	TotalFeeLamports *uint64 `json:"total_fee_lamports,omitempty"`
}

// Response is the JSON envelope produced for every request
type Response struct {
	Success   bool    `json:"success"`
	TxID      *string `json:"txid"`
	InAmount  *uint64 `json:"in_amount,omitempty"`
	OutAmount *uint64 `json:"out_amount,omitempty"`
	Error     *string `json:"error"`
}

// ResponseFromOutcome converts an engine outcome into the wire envelope
func ResponseFromOutcome(out SwapOutcome) Response {
	if !out.Success {
		return ErrorResponse(out.Error)
	}
	resp := Response{Success: true}
	if out.TransactionID != "" {
		txid := out.TransactionID
		resp.TxID = &txid
	}
	in, outAmt := out.InAmount, out.OutAmount
	resp.InAmount = &in
	resp.OutAmount = &outAmt
	return resp
}

// ErrorResponse builds a failed envelope with a sanitized message
func ErrorResponse(msg string) Response {
	msg = SanitizeMessage(msg)
	if msg == "" {
		msg = "unknown error"
	}
	return Response{Success: false, Error: &msg}
}

// TxResponse builds a successful envelope that only carries a transaction id
func TxResponse(txid string) Response {
	resp := Response{Success: true}
	if txid != "" {
		resp.TxID = &txid
	}
	return resp
}

// SanitizeMessage makes an error string safe to embed in a response:
// single line, no double quotes, bounded length.
func SanitizeMessage(msg string) string {
	msg = strings.NewReplacer(`"`, "'", "\n", " ", "\r", " ", "\t", " ").Replace(msg)
	msg = strings.TrimSpace(msg)
	if len(msg) > 300 {
		msg = msg[:297] + "..."
	}
	return msg
}

// SymbolFor returns a display symbol for well-known mints, or the mint itself
func SymbolFor(mint solana.PublicKey) string {
	switch {
	case mint.Equals(NativeMint):
		return "SOL"
	case mint.Equals(USDCMint):
		return "USDC"
	default:
		return mint.String()
	}
}

// FormatUnits renders a base-unit amount using the given decimals, trimming trailing zeros
func FormatUnits(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}

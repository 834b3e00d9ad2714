package types

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		amount   uint64
		decimals uint8
		want     string
	}{
		{0, 9, "0"},
		{45_500_000, 9, "0.0455"},
		{1_000_000_000, 9, "1"},
		{2_500_000, 6, "2.5"},
		{1, 6, "0.000001"},
		{123, 0, "123"},
		{1, 25, "0." + strings.Repeat("0", 24) + "1"},
		{123, 64, "0." + strings.Repeat("0", 61) + "123"},
		{math.MaxUint64, 19, "1.8446744073709551615"},
	}
	for _, c := range cases {
		if got := FormatUnits(c.amount, c.decimals); got != c.want {
			t.Fatalf("FormatUnits(%d, %d) = %q, want %q", c.amount, c.decimals, got, c.want)
		}
	}

	if got := FormatUnits(math.MaxUint64, 255); len(got) != 257 || !strings.HasPrefix(got, "0.") {
		t.Fatalf("unexpected rendering with 255 decimals: %q", got)
	}
}

func TestSanitizeMessage(t *testing.T) {
	got := SanitizeMessage("  route \"A\" failed:\n\tslippage  ")
	if got != "route 'A' failed:  slippage" {
		t.Fatalf("unexpected sanitized message %q", got)
	}
	long := SanitizeMessage(strings.Repeat("x", 400))
	if len(long) != 300 || !strings.HasSuffix(long, "...") {
		t.Fatalf("expected truncation to 300 chars, got %d", len(long))
	}
}

func TestResponseEnvelope(t *testing.T) {
	ok, err := json.Marshal(ResponseFromOutcome(SwapOutcome{Success: true, TransactionID: "sig", InAmount: 10, OutAmount: 20}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(ok) != `{"success":true,"txid":"sig","in_amount":10,"out_amount":20,"error":null}` {
		t.Fatalf("unexpected success envelope %s", ok)
	}

	failed, err := json.Marshal(ResponseFromOutcome(SwapOutcome{ErrorKind: ErrAllRoutesFailed, Error: "All swap routes failed"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(failed) != `{"success":false,"txid":null,"error":"All swap routes failed"}` {
		t.Fatalf("unexpected failure envelope %s", failed)
	}

	if resp := ErrorResponse(""); resp.Error == nil || *resp.Error != "unknown error" {
		t.Fatalf("empty error should become a placeholder")
	}
	if resp := TxResponse(""); resp.TxID != nil || !resp.Success {
		t.Fatalf("empty txid should be null")
	}
}

func TestSymbolFor(t *testing.T) {
	if SymbolFor(NativeMint) != "SOL" || SymbolFor(USDCMint) != "USDC" {
		t.Fatalf("unexpected well-known symbols")
	}
	other := solana.NewWallet().PublicKey()
	if SymbolFor(other) != other.String() {
		t.Fatalf("unknown mints should render as base58")
	}
}

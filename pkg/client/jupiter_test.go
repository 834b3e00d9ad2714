package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
)

const solMint = "So11111111111111111111111111111111111111112"
const usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

const sampleQuote = `{
  "inputMint": "So11111111111111111111111111111111111111112",
  "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
  "inAmount": "45500000",
  "outAmount": "7000000",
  "slippageBps": 100,
  "computeUnitLimit": 400000,
  "contextSlot": 123,
  "routePlan": [
    {"swapInfo": {"label": "Whirlpool", "inputMint": "So11111111111111111111111111111111111111112", "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "inAmount": "45500000", "outAmount": "7000000"}, "percent": 100}
  ],
  "otherRoutePlans": [
    [{"swapInfo": {"label": "Obric V2", "inputMint": "So11111111111111111111111111111111111111112", "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "inAmount": "45500000", "outAmount": "6990000"}, "percent": 100}],
    [
      {"swapInfo": {"label": "Raydium", "inputMint": "So11111111111111111111111111111111111111112", "outputMint": "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So", "inAmount": "20000000", "outAmount": "19000000"}, "percent": 40},
      {"swapInfo": {"label": "Meteora", "inputMint": "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So", "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "inAmount": "19000000", "outAmount": "3000000"}, "percent": 100},
      {"swapInfo": {"label": "Orca", "inputMint": "So11111111111111111111111111111111111111112", "outputMint": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "inAmount": "25500000", "outAmount": "3900000"}, "percent": 60}
    ]
  ]
}`

func TestParseQuote(t *testing.T) {
	quote, err := ParseQuote([]byte(sampleQuote))
	if err != nil {
		t.Fatalf("ParseQuote returned error: %v", err)
	}
	if quote.InAmount != 45_500_000 || quote.OutAmount != 7_000_000 {
		t.Fatalf("unexpected amounts %d/%d", quote.InAmount, quote.OutAmount)
	}
	if quote.ComputeUnitLimit != 400_000 {
		t.Fatalf("expected compute unit limit 400000, got %d", quote.ComputeUnitLimit)
	}
	routes := quote.Routes()
	if len(routes) != 3 {
		t.Fatalf("expected 3 routes, got %d", len(routes))
	}
	labels := []string{"Whirlpool", "Obric V2", "Raydium"}
	for i, want := range labels {
		if got := routes[i].VenueLabel(); got != want {
			t.Fatalf("route %d label = %q, want %q", i, got, want)
		}
	}

	in, out := quote.RouteAmounts(routes[2])
	if in != 45_500_000 || out != 6_900_000 {
		t.Fatalf("split route amounts = %d/%d", in, out)
	}
}

func TestParseQuoteMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":     `<html>`,
		"no route":     `{"inAmount":"1","outAmount":"2"}`,
		"bad amount":   `{"inAmount":"x","outAmount":"2","routePlan":[]}`,
		"null routing": `{"inAmount":"1","outAmount":"2","routePlan":null}`,
	}
	for name, body := range cases {
		if _, err := ParseQuote([]byte(body)); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%s: expected malformed response error, got %v", name, err)
		}
	}
}

func TestWithRouteReplacesOnlyRoutePlan(t *testing.T) {
	quote, err := ParseQuote([]byte(sampleQuote))
	if err != nil {
		t.Fatalf("ParseQuote returned error: %v", err)
	}
	doc, err := quote.WithRoute(quote.Alternates[1])
	if err != nil {
		t.Fatalf("WithRoute returned error: %v", err)
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(doc, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(decoded["contextSlot"]) != "123" {
		t.Fatalf("passthrough field lost: %s", decoded["contextSlot"])
	}
	if NewRoute(decoded["routePlan"]).VenueLabel() != "Raydium" {
		t.Fatalf("routePlan was not substituted")
	}
	if quote.Primary.VenueLabel() != "Whirlpool" {
		t.Fatalf("original quote was mutated")
	}
}

func TestGetQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != solMint || q.Get("outputMint") != usdcMint {
			t.Fatalf("unexpected mints %v", q)
		}
		if q.Get("amount") != "45500000" || q.Get("slippageBps") != "50" {
			t.Fatalf("unexpected amount or slippage %v", q)
		}
		_, _ = w.Write([]byte(sampleQuote))
	}))
	defer server.Close()

	client := NewJupiterClientWithHTTP(server.URL, server.Client())
	quote, err := client.GetQuote(context.Background(), solana.SolMint, solana.MustPublicKeyFromBase58(usdcMint), 45_500_000, 50)
	if err != nil {
		t.Fatalf("GetQuote returned error: %v", err)
	}
	if quote.OutAmount != 7_000_000 {
		t.Fatalf("expected OutAmount 7000000, got %d", quote.OutAmount)
	}
}

func TestGetQuoteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Could not find any route"}`))
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, 5*time.Second)
	_, err := client.GetQuote(context.Background(), solana.SolMint, solana.MustPublicKeyFromBase58(usdcMint), 1, 50)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "failed to get quote: API error (status 400): Could not find any route" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestGetQuoteHTMLErrorPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html><body><h1>502 Bad Gateway</h1>cf-ray 8a1b2c</body></html>"))
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, 5*time.Second)
	_, err := client.GetQuote(context.Background(), solana.SolMint, solana.MustPublicKeyFromBase58(usdcMint), 1, 50)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "failed to get quote: API error (status 502): Bad Gateway" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestGetQuoteOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"inAmount":"1","outAmount":"2","pad":"`))
		_, _ = w.Write(bytes.Repeat([]byte("a"), maxResponseBytes))
		_, _ = w.Write([]byte(`","routePlan":[]}`))
	}))
	defer server.Close()

	client := NewJupiterClient(server.URL, 5*time.Second)
	_, err := client.GetQuote(context.Background(), solana.SolMint, solana.MustPublicKeyFromBase58(usdcMint), 1, 50)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected a truncated body to be malformed, got %v", err)
	}
}

func TestBuildSwap(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/swap" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if string(body["userPublicKey"]) != `"`+owner.String()+`"` {
			t.Fatalf("unexpected owner %s", body["userPublicKey"])
		}
		if string(body["wrapAndUnwrapSol"]) != "true" || string(body["asLegacyTransaction"]) != "false" {
			t.Fatalf("unexpected flags %s %s", body["wrapAndUnwrapSol"], body["asLegacyTransaction"])
		}
		if string(body["computeUnitPriceMicroLamports"]) != "5000" {
			t.Fatalf("unexpected priority fee %s", body["computeUnitPriceMicroLamports"])
		}
		_, _ = w.Write([]byte(`{"swapTransaction":"AQID","lastValidBlockHeight":99,"simulationError":null}`))
	}))
	defer server.Close()

	client := NewJupiterClientWithHTTP(server.URL+"/", server.Client())
	resp, err := client.BuildSwap(context.Background(), json.RawMessage(`{"routePlan":[]}`), owner, 5000)
	if err != nil {
		t.Fatalf("BuildSwap returned error: %v", err)
	}
	if resp.SwapTransaction != "AQID" || resp.LastValidBlockHeight != 99 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, failed := resp.Simulated(); failed {
		t.Fatalf("null simulationError must not count as failure")
	}
}

func TestBuildSwapOmitsZeroPriorityFee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["computeUnitPriceMicroLamports"]; ok {
			t.Fatalf("priority fee should be omitted")
		}
		_, _ = w.Write([]byte(`{"swapTransaction":"","simulationError":{"error":"slippage"}}`))
	}))
	defer server.Close()

	client := NewJupiterClientWithHTTP(server.URL, server.Client())
	resp, err := client.BuildSwap(context.Background(), json.RawMessage(`{}`), solana.NewWallet().PublicKey(), 0)
	if err != nil {
		t.Fatalf("BuildSwap returned error: %v", err)
	}
	msg, failed := resp.Simulated()
	if !failed || msg != `{"error":"slippage"}` {
		t.Fatalf("expected simulation failure, got %q %v", msg, failed)
	}
}

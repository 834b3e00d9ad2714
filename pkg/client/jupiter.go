package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// DefaultJupiterURL is the public Jupiter swap API
const DefaultJupiterURL = "https://lite-api.jup.ag/swap/v1"

// Quotes with many alternate routes stay well below this
const maxResponseBytes = 4 << 20

// ErrMalformedResponse is wrapped by every error caused by an unparseable aggregator payload
var ErrMalformedResponse = errors.New("malformed aggregator response")

// JupiterClient talks to the Jupiter quote and swap-assembly endpoints
type JupiterClient struct {
	base string
	http *http.Client
}

// NewJupiterClient creates a new aggregator client
func NewJupiterClient(baseURL string, timeout time.Duration) *JupiterClient {
	return NewJupiterClientWithHTTP(baseURL, &http.Client{Timeout: timeout})
}

// NewJupiterClientWithHTTP creates an aggregator client that reuses an existing HTTP client
func NewJupiterClientWithHTTP(baseURL string, httpClient *http.Client) *JupiterClient {
	if baseURL == "" {
		baseURL = DefaultJupiterURL
	}
	return &JupiterClient{
		base: strings.TrimRight(baseURL, "/"),
		http: httpClient,
	}
}

// Route is one venue path proposed by the aggregator. The plan is kept
// verbatim and only the fields needed for filtering and reporting are read.
type Route struct {
	plan json.RawMessage
}

// NewRoute wraps a raw route plan
func NewRoute(plan json.RawMessage) Route {
	return Route{plan: plan}
}

// Hop is the typed subset of one route-plan step
type Hop struct {
	Label      string
	InputMint  string
	OutputMint string
	InAmount   uint64
	OutAmount  uint64
}

type hopJSON struct {
	SwapInfo struct {
		Label      string `json:"label"`
		InputMint  string `json:"inputMint"`
		OutputMint string `json:"outputMint"`
		InAmount   string `json:"inAmount"`
		OutAmount  string `json:"outAmount"`
	} `json:"swapInfo"`
}

// Hops decodes the venue hops of the route
func (r Route) Hops() ([]Hop, error) {
	var raw []hopJSON
	if err := json.Unmarshal(r.plan, &raw); err != nil {
		return nil, fmt.Errorf("%w: route plan: %v", ErrMalformedResponse, err)
	}
	hops := make([]Hop, 0, len(raw))
	for _, h := range raw {
		in, _ := strconv.ParseUint(h.SwapInfo.InAmount, 10, 64)
		out, _ := strconv.ParseUint(h.SwapInfo.OutAmount, 10, 64)
		hops = append(hops, Hop{
			Label:      h.SwapInfo.Label,
			InputMint:  h.SwapInfo.InputMint,
			OutputMint: h.SwapInfo.OutputMint,
			InAmount:   in,
			OutAmount:  out,
		})
	}
	return hops, nil
}

// VenueLabel returns the label of the first hop, or "" when it cannot be read
func (r Route) VenueLabel() string {
	hops, err := r.Hops()
	if err != nil || len(hops) == 0 {
		return ""
	}
	return hops[0].Label
}

// Amounts sums what the route takes in of inputMint and delivers of outputMint.
// Split routes contribute one hop per leg on each side.
func (r Route) Amounts(inputMint, outputMint string) (in, out uint64) {
	hops, err := r.Hops()
	if err != nil {
		return 0, 0
	}
	for _, h := range hops {
		if h.InputMint == inputMint {
			in += h.InAmount
		}
		if h.OutputMint == outputMint {
			out += h.OutAmount
		}
	}
	return in, out
}

// Quote is a parsed aggregator quote. The original document is retained so
// the assembly request can echo it back with a single route substituted.
type Quote struct {
	InputMint        string
	OutputMint       string
	InAmount         uint64
	OutAmount        uint64
	SlippageBps      int
	ComputeUnitLimit uint64
	Primary          Route
	Alternates       []Route

	raw map[string]json.RawMessage
}

type quoteJSON struct {
	InputMint        string            `json:"inputMint"`
	OutputMint       string            `json:"outputMint"`
	InAmount         string            `json:"inAmount"`
	OutAmount        string            `json:"outAmount"`
	SlippageBps      int               `json:"slippageBps"`
	ComputeUnitLimit uint64            `json:"computeUnitLimit"`
	RoutePlan        json.RawMessage   `json:"routePlan"`
	OtherRoutePlans  []json.RawMessage `json:"otherRoutePlans"`
}

// ParseQuote decodes a quote document
func ParseQuote(body []byte) (*Quote, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: quote: %v", ErrMalformedResponse, err)
	}
	var q quoteJSON
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("%w: quote: %v", ErrMalformedResponse, err)
	}
	if len(q.RoutePlan) == 0 || string(q.RoutePlan) == "null" {
		return nil, fmt.Errorf("%w: quote has no routePlan", ErrMalformedResponse)
	}

	inAmount, err := strconv.ParseUint(q.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: inAmount %q", ErrMalformedResponse, q.InAmount)
	}
	outAmount, err := strconv.ParseUint(q.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: outAmount %q", ErrMalformedResponse, q.OutAmount)
	}

	quote := &Quote{
		InputMint:        q.InputMint,
		OutputMint:       q.OutputMint,
		InAmount:         inAmount,
		OutAmount:        outAmount,
		SlippageBps:      q.SlippageBps,
		ComputeUnitLimit: q.ComputeUnitLimit,
		Primary:          NewRoute(q.RoutePlan),
		raw:              raw,
	}
	for _, alt := range q.OtherRoutePlans {
		quote.Alternates = append(quote.Alternates, NewRoute(alt))
	}
	return quote, nil
}

// Routes returns the primary route followed by the alternates in aggregator order
func (q *Quote) Routes() []Route {
	routes := make([]Route, 0, 1+len(q.Alternates))
	routes = append(routes, q.Primary)
	return append(routes, q.Alternates...)
}

// RouteAmounts reports the amounts a route moves, falling back to the quote totals
func (q *Quote) RouteAmounts(r Route) (in, out uint64) {
	in, out = r.Amounts(q.InputMint, q.OutputMint)
	if in == 0 {
		in = q.InAmount
	}
	if out == 0 {
		out = q.OutAmount
	}
	return in, out
}

// WithRoute returns the quote document with its routePlan replaced by r
func (q *Quote) WithRoute(r Route) (json.RawMessage, error) {
	doc := make(map[string]json.RawMessage, len(q.raw))
	for k, v := range q.raw {
		doc[k] = v
	}
	doc["routePlan"] = r.plan
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote: %w", err)
	}
	return out, nil
}

// SwapResponse is the assembly endpoint reply
type SwapResponse struct {
	SwapTransaction      string          `json:"swapTransaction"`
	LastValidBlockHeight uint64          `json:"lastValidBlockHeight"`
	SimulationError      json.RawMessage `json:"simulationError"`
}

// Simulated reports whether the aggregator flagged a simulation failure
func (s *SwapResponse) Simulated() (string, bool) {
	msg := strings.TrimSpace(string(s.SimulationError))
	if msg == "" || msg == "null" {
		return "", false
	}
	return msg, true
}

type swapRequest struct {
	QuoteResponse                 json.RawMessage `json:"quoteResponse"`
	UserPublicKey                 string          `json:"userPublicKey"`
	WrapAndUnwrapSol              bool            `json:"wrapAndUnwrapSol"`
	AsLegacyTransaction           bool            `json:"asLegacyTransaction"`
	ComputeUnitPriceMicroLamports *uint64         `json:"computeUnitPriceMicroLamports,omitempty"`
}

// GetQuote fetches a quote for amount base units of inputMint
func (j *JupiterClient) GetQuote(ctx context.Context, inputMint, outputMint solana.PublicKey, amount uint64, slippageBps uint16) (*Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint.String())
	q.Set("outputMint", outputMint.String())
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.FormatUint(uint64(slippageBps), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.base+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create quote request: %w", err)
	}
	body, err := j.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return ParseQuote(body)
}

// BuildSwap asks the aggregator to assemble an unsigned transaction for the given quote document.
// A zero computeUnitPrice leaves the priority fee to the aggregator.
func (j *JupiterClient) BuildSwap(ctx context.Context, quote json.RawMessage, owner solana.PublicKey, computeUnitPrice uint64) (*SwapResponse, error) {
	payload := swapRequest{
		QuoteResponse:       quote,
		UserPublicKey:       owner.String(),
		WrapAndUnwrapSol:    true,
		AsLegacyTransaction: false,
	}
	if computeUnitPrice > 0 {
		payload.ComputeUnitPriceMicroLamports = &computeUnitPrice
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.base+"/swap", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := j.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to build swap: %w", err)
	}
	var out SwapResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: swap: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}

func (j *JupiterClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := j.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

// apiError extracts a readable message from an error body
func apiError(status int, body []byte) error {
	var errorResp map[string]interface{}
	if err := json.Unmarshal(body, &errorResp); err == nil {
		if message, ok := errorResp["error"].(string); ok {
			return fmt.Errorf("API error (status %d): %s", status, message)
		}
		if message, ok := errorResp["message"].(string); ok {
			return fmt.Errorf("API error (status %d): %s", status, message)
		}
	}
	// Non-JSON bodies are usually proxy error pages
	if text := http.StatusText(status); text != "" {
		return fmt.Errorf("API error (status %d): %s", status, text)
	}
	return fmt.Errorf("API returned status code %d", status)
}

// Package gswap is the REST client for the GalaSwap DEX gateway. It covers
// quoting, swap submission via signed bundles, and wallet balances.
package gswap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/galachain-tools/galabot/internal/crypto"
	"github.com/galachain-tools/galabot/internal/domain"
)

// Config holds the gateway client parameters.
type Config struct {
	// BaseURL is the DEX backend root, e.g. "https://dex-backend-prod1.defi.gala.com".
	BaseURL string
	// BundleURL is the bundle submission root. Empty means BaseURL.
	BundleURL string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Client talks to the GalaSwap gateway. A nil signer restricts the client to
// read-only operations (quotes and balances); ExecuteSwap then fails fast.
type Client struct {
	baseURL    string
	bundleURL  string
	httpClient *http.Client
	signer     *crypto.Signer
	limiter    domain.RateLimiter
}

// New creates a gateway client. limiter may be nil to disable throttling.
func New(cfg Config, signer *crypto.Signer, limiter domain.RateLimiter) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	bundleURL := cfg.BundleURL
	if bundleURL == "" {
		bundleURL = cfg.BaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		bundleURL:  strings.TrimRight(bundleURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		signer:     signer,
		limiter:    limiter,
	}
}

// rate-limit key shared by all gateway calls.
const limiterKey = "gswap"

// GetQuote prices amountIn of pair.Give against the pool at the given fee
// tier. Missing pools and empty liquidity map to domain.ErrVenueUnavailable.
func (c *Client) GetQuote(ctx context.Context, pair domain.Pair, amountIn domain.Amount, feeTier domain.FeeTier) (domain.Quote, error) {
	if err := c.wait(ctx); err != nil {
		return domain.Quote{}, err
	}

	body := map[string]any{
		"tokenIn":  apiTokenKey(pair.Give),
		"tokenOut": apiTokenKey(pair.Receive),
		"amountIn": amountIn.String(),
		"fee":      int(feeTier),
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/v1/trade/quote", body)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("gswap: quote %s tier %d: %w", pair, feeTier, err)
	}

	var resp struct {
		Data  APIQuote `json:"data"`
		Error bool     `json:"error"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("gswap: decode quote: %w", err)
	}

	quote, err := resp.Data.ToDomainQuote()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("gswap: quote %s tier %d: %w", pair, feeTier, err)
	}
	if quote.AmountOut.IsZero() {
		return domain.Quote{}, fmt.Errorf("gswap: quote %s tier %d: empty fill: %w", pair, feeTier, domain.ErrVenueUnavailable)
	}
	quote.FeeTier = feeTier

	return quote, nil
}

// ExecuteSwap obtains a swap payload for the trade, signs it, and submits the
// bundle. The swap is irreversible once the bundle is accepted.
func (c *Client) ExecuteSwap(ctx context.Context, pair domain.Pair, amountIn domain.Amount, feeTier domain.FeeTier, slippageBps float64) (domain.ExecutionResult, error) {
	if c.signer == nil {
		return domain.ExecutionResult{}, fmt.Errorf("gswap: execute swap: no signer configured: %w", domain.ErrSigningFailed)
	}

	// Quote first to establish the slippage floor.
	quote, err := c.GetQuote(ctx, pair, amountIn, feeTier)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	minOut := quote.AmountOut.MulFloat(1 - slippageBps/10_000)

	if err := c.wait(ctx); err != nil {
		return domain.ExecutionResult{}, err
	}

	swapReq := APISwapRequest{
		TokenIn:          apiTokenKey(pair.Give),
		TokenOut:         apiTokenKey(pair.Receive),
		AmountIn:         amountIn.String(),
		Fee:              int(feeTier),
		AmountOutMinimum: minOut.String(),
		Recipient:        c.signer.Address(),
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/v1/trade/swap", swapReq)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("gswap: build swap payload: %w", err)
	}

	var payloadResp struct {
		Data  map[string]any `json:"data"`
		Error bool           `json:"error"`
	}
	if err := json.Unmarshal(respBody, &payloadResp); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("gswap: decode swap payload: %w", err)
	}
	if payloadResp.Data == nil {
		return domain.ExecutionResult{}, fmt.Errorf("gswap: swap payload missing data")
	}

	signed, err := c.signer.SignPayload(payloadResp.Data)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("gswap: %w: %v", domain.ErrSigningFailed, err)
	}

	bundle := map[string]any{
		"payload": signed,
		"type":    "swap",
		"user":    c.signer.Address(),
	}

	bundleBody, err := c.doRequest(ctx, http.MethodPost, c.bundleURL+"/bundle", bundle)
	if err != nil {
		return domain.ExecutionResult{Error: err.Error()}, fmt.Errorf("gswap: submit bundle: %w", err)
	}

	var bundleResp APIBundleResponse
	if err := json.Unmarshal(bundleBody, &bundleResp); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("gswap: decode bundle response: %w", err)
	}
	if bundleResp.Error {
		return domain.ExecutionResult{Error: bundleResp.Message},
			fmt.Errorf("gswap: bundle rejected: %s", bundleResp.Message)
	}

	// The bundle endpoint acknowledges acceptance; the realized fill is the
	// quoted amount bounded below by minOut.
	return domain.ExecutionResult{
		Success:   true,
		AmountOut: quote.AmountOut,
		TxID:      bundleResp.Data.ID,
	}, nil
}

// GetTokenBalance returns the wallet's spendable balance of the given token.
// A token with no balance entry reads as zero.
func (c *Client) GetTokenBalance(ctx context.Context, token domain.TokenKey) (domain.Amount, error) {
	if c.signer == nil {
		return 0, fmt.Errorf("gswap: get balance: no signer configured: %w", domain.ErrSigningFailed)
	}
	if err := c.wait(ctx); err != nil {
		return 0, err
	}

	body := map[string]any{
		"owner": c.signer.Address(),
	}

	respBody, err := c.doRequest(ctx, http.MethodPost,
		c.baseURL+"/galachain/api/asset/token-contract/FetchBalances", body)
	if err != nil {
		return 0, fmt.Errorf("gswap: fetch balances: %w", err)
	}

	var resp struct {
		Data []APIBalance `json:"Data"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, fmt.Errorf("gswap: decode balances: %w", err)
	}

	for _, b := range resp.Data {
		if b.TokenKey() == token {
			amt, err := domain.ParseAmount(b.Quantity)
			if err != nil {
				return 0, fmt.Errorf("gswap: parse balance %q: %w", b.Quantity, err)
			}
			return amt, nil
		}
	}
	return 0, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx, limiterKey)
}

// doRequest builds, sends and reads an HTTP request. It returns the raw
// response body.
func (c *Client) doRequest(ctx context.Context, method, url string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors. 404 means the
// pool does not exist for the requested pair/tier combination.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrVenueUnavailable, bodyStr)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrVenueUnavailable, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// Compile-time interface check.
var _ domain.GatewayClient = (*Client)(nil)

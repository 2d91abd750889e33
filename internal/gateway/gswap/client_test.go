package gswap

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galachain-tools/galabot/internal/crypto"
	"github.com/galachain-tools/galabot/internal/domain"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testPair() domain.Pair {
	return domain.Pair{Give: domain.TokenGALA, Receive: domain.TokenGUSDC}
}

func TestGetQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/trade/quote", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		tokenIn := req["tokenIn"].(map[string]any)
		assert.Equal(t, "GALA", tokenIn["collection"])
		assert.Equal(t, "100", req["amountIn"])
		assert.Equal(t, float64(3000), req["fee"])

		json.NewEncoder(w).Encode(map[string]any{
			"data": APIQuote{
				AmountIn:         "100",
				AmountOut:        "1.52",
				CurrentSqrtPrice: "0.1234",
				NewSqrtPrice:     "0.1230",
				Fee:              3000,
			},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil, nil)

	quote, err := c.GetQuote(context.Background(), testPair(), domain.MustParseAmount("100"), domain.FeeTier3000)
	require.NoError(t, err)
	assert.Equal(t, domain.MustParseAmount("1.52"), quote.AmountOut)
	assert.Equal(t, domain.FeeTier3000, quote.FeeTier)
	assert.Greater(t, quote.PriceImpact, 0.0)
}

func TestGetQuoteVenueUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"pool not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil, nil)

	_, err := c.GetQuote(context.Background(), testPair(), domain.MustParseAmount("100"), domain.FeeTier500)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVenueUnavailable))
}

func TestGetQuoteEmptyFillIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": APIQuote{AmountOut: "0", Fee: 500},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil, nil)

	_, err := c.GetQuote(context.Background(), testPair(), domain.MustParseAmount("10"), domain.FeeTier500)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVenueUnavailable))
}

func TestGetQuoteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, nil, nil)

	_, err := c.GetQuote(context.Background(), testPair(), domain.MustParseAmount("10"), domain.FeeTier500)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
}

func TestExecuteSwapSignsAndSubmits(t *testing.T) {
	signer, err := crypto.NewSigner(testKeyHex)
	require.NoError(t, err)

	var sawBundle bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/trade/quote":
			json.NewEncoder(w).Encode(map[string]any{
				"data": APIQuote{AmountOut: "1.5", Fee: 10000},
			})
		case "/v1/trade/swap":
			var req APISwapRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, signer.Address(), req.Recipient)
			// 50 bps slippage on 1.5 -> 1.4925 floor.
			assert.Equal(t, "1.4925", req.AmountOutMinimum)
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"tokenIn": "GALA", "uniqueKey": "abc"},
			})
		case "/bundle":
			sawBundle = true
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			payload := req["payload"].(map[string]any)
			assert.NotEmpty(t, payload["signature"])
			assert.NotEmpty(t, payload["signerPublicKey"])
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"id": "tx-123", "status": "PENDING"},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, signer, nil)

	res, err := c.ExecuteSwap(context.Background(), testPair(), domain.MustParseAmount("100"), domain.FeeTier10000, 50)
	require.NoError(t, err)
	assert.True(t, sawBundle)
	assert.True(t, res.Success)
	assert.Equal(t, "tx-123", res.TxID)
	assert.Equal(t, domain.MustParseAmount("1.5"), res.AmountOut)
}

func TestExecuteSwapWithoutSigner(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:0"}, nil, nil)

	_, err := c.ExecuteSwap(context.Background(), testPair(), domain.MustParseAmount("1"), domain.FeeTier500, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSigningFailed))
}

func TestGetTokenBalance(t *testing.T) {
	signer, err := crypto.NewSigner(testKeyHex)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/galachain/api/asset/token-contract/FetchBalances", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"Data": []APIBalance{
				{Collection: "GALA", Category: "Unit", Type: "none", AdditionalKey: "none", Quantity: "250.5"},
				{Collection: "GUSDC", Category: "Unit", Type: "none", AdditionalKey: "none", Quantity: "10"},
			},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL}, signer, nil)

	bal, err := c.GetTokenBalance(context.Background(), domain.TokenGALA)
	require.NoError(t, err)
	assert.Equal(t, domain.MustParseAmount("250.5"), bal)

	// Unknown token reads as zero.
	bal, err = c.GetTokenBalance(context.Background(), domain.TokenGUSDT)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

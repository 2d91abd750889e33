package gswap

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/galachain-tools/galabot/internal/domain"
)

// APIQuote is the wire form of a quote response from /v1/trade/quote.
// Amounts are decimal strings.
type APIQuote struct {
	AmountIn         string `json:"amountIn"`
	AmountOut        string `json:"amountOut"`
	CurrentSqrtPrice string `json:"currentSqrtPrice"`
	NewSqrtPrice     string `json:"newSqrtPrice"`
	Fee              int    `json:"fee"`
}

// ToDomainQuote converts an API quote into domain form. Price impact is
// derived from the pool's sqrt-price movement.
func (q APIQuote) ToDomainQuote() (domain.Quote, error) {
	out, err := domain.ParseAmount(q.AmountOut)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("parse amountOut %q: %w", q.AmountOut, err)
	}

	impact, err := priceImpact(q.CurrentSqrtPrice, q.NewSqrtPrice)
	if err != nil {
		// A quote with an unparsable sqrt price is still usable; impact is
		// informational only.
		impact = 0
	}

	return domain.Quote{
		FeeTier:     domain.FeeTier(q.Fee),
		AmountOut:   out,
		PriceImpact: impact,
	}, nil
}

// APISwapRequest is the payload-generation request sent to /v1/trade/swap.
type APISwapRequest struct {
	TokenIn  APITokenKey `json:"tokenIn"`
	TokenOut APITokenKey `json:"tokenOut"`
	AmountIn string      `json:"amountIn"`
	Fee      int         `json:"fee"`
	// AmountOutMinimum enforces the slippage bound chain-side.
	AmountOutMinimum string `json:"amountOutMinimum"`
	Recipient        string `json:"recipient"`
}

// APITokenKey is the structured token class key used by the chain API.
type APITokenKey struct {
	Collection    string `json:"collection"`
	Category      string `json:"category"`
	Type          string `json:"type"`
	AdditionalKey string `json:"additionalKey"`
}

// apiTokenKey splits a domain.TokenKey ("GALA|Unit|none|none") into the
// structured form. Bare symbols fall back to the standard Unit class.
func apiTokenKey(t domain.TokenKey) APITokenKey {
	parts := strings.SplitN(string(t), "|", 4)
	for len(parts) < 4 {
		switch len(parts) {
		case 1:
			parts = append(parts, "Unit")
		case 2:
			parts = append(parts, "none")
		case 3:
			parts = append(parts, "none")
		}
	}
	return APITokenKey{
		Collection:    parts[0],
		Category:      parts[1],
		Type:          parts[2],
		AdditionalKey: parts[3],
	}
}

// priceImpact derives the relative price move caused by a quote from the
// pool's sqrt prices, as a fraction (0.01 = 1%).
func priceImpact(currentSqrt, newSqrt string) (float64, error) {
	cur, err := strconv.ParseFloat(currentSqrt, 64)
	if err != nil {
		return 0, err
	}
	next, err := strconv.ParseFloat(newSqrt, 64)
	if err != nil {
		return 0, err
	}
	if cur == 0 {
		return 0, fmt.Errorf("zero current sqrt price")
	}
	curPrice := cur * cur
	nextPrice := next * next
	return math.Abs(nextPrice-curPrice) / curPrice, nil
}

// APIBundleResponse is the bundle submission acknowledgement.
type APIBundleResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

// APIBalance is one token balance entry from FetchBalances.
type APIBalance struct {
	Collection    string   `json:"collection"`
	Category      string   `json:"category"`
	Type          string   `json:"type"`
	AdditionalKey string   `json:"additionalKey"`
	Quantity      string   `json:"quantity"`
	LockedHolds   []string `json:"lockedHolds,omitempty"`
}

// TokenKey reassembles the entry's domain token key.
func (b APIBalance) TokenKey() domain.TokenKey {
	return domain.TokenKey(b.Collection + "|" + b.Category + "|" + b.Type + "|" + b.AdditionalKey)
}

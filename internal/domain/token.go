package domain

import (
	"fmt"
	"strings"
)

// TokenKey is a fully qualified GalaChain token class key in the
// "Collection|Category|Type|AdditionalKey" form used by the GalaSwap API,
// e.g. "GALA|Unit|none|none".
type TokenKey string

// Common token keys on GalaChain mainnet.
const (
	TokenGALA  TokenKey = "GALA|Unit|none|none"
	TokenGUSDC TokenKey = "GUSDC|Unit|none|none"
	TokenGUSDT TokenKey = "GUSDT|Unit|none|none"
)

// Symbol returns the collection portion of the key ("GALA" for
// "GALA|Unit|none|none"), used in logs and dashboard payloads.
func (t TokenKey) Symbol() string {
	if i := strings.IndexByte(string(t), '|'); i >= 0 {
		return string(t)[:i]
	}
	return string(t)
}

// TokenBySymbol resolves a bare symbol ("GALA") to its full token key.
// Symbols containing '|' are treated as already-qualified keys and validated
// for the four-part form.
func TokenBySymbol(sym string) (TokenKey, error) {
	if strings.Contains(sym, "|") {
		if strings.Count(sym, "|") != 3 {
			return "", fmt.Errorf("malformed token key %q", sym)
		}
		return TokenKey(sym), nil
	}
	switch strings.ToUpper(sym) {
	case "GALA":
		return TokenGALA, nil
	case "GUSDC":
		return TokenGUSDC, nil
	case "GUSDT":
		return TokenGUSDT, nil
	}
	if sym == "" {
		return "", fmt.Errorf("empty token symbol")
	}
	// Unknown symbols map to the standard Unit class.
	return TokenKey(strings.ToUpper(sym) + "|Unit|none|none"), nil
}

// FeeTier identifies one liquidity pool (venue) for a pair, distinguished by
// its fee in hundredths of a bip, following the gateway's tier encoding:
// 500 = 0.05%, 3000 = 0.3%, 10000 = 1%.
type FeeTier int

// Fee tiers offered by the GalaSwap gateway.
const (
	FeeTier500   FeeTier = 500
	FeeTier3000  FeeTier = 3000
	FeeTier10000 FeeTier = 10000
)

// Pct returns the tier's fee as a percentage.
func (f FeeTier) Pct() float64 { return float64(f) / 10_000 }

// Pair is an oriented token pair: amounts of Give are swapped for Receive.
type Pair struct {
	Give    TokenKey
	Receive TokenKey
}

// Reversed returns the pair with the orientation flipped.
func (p Pair) Reversed() Pair {
	return Pair{Give: p.Receive, Receive: p.Give}
}

// String renders the pair as "GALA->GUSDC".
func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.Give.Symbol(), p.Receive.Symbol())
}

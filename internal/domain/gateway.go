package domain

import "context"

// GatewayClient is the contract the engine requires from the swap gateway.
// Implementations must be safe for concurrent use: multiple engine instances
// share one client.
type GatewayClient interface {
	// GetQuote prices amountIn of pair.Give on a single fee-tier venue.
	// It returns an error wrapping ErrVenueUnavailable when the venue has no
	// route or liquidity for the pair.
	GetQuote(ctx context.Context, pair Pair, amountIn Amount, feeTier FeeTier) (Quote, error)

	// ExecuteSwap signs and submits a swap. The transaction is irreversible
	// once submitted, regardless of later cancellation.
	ExecuteSwap(ctx context.Context, pair Pair, amountIn Amount, feeTier FeeTier, slippageBps float64) (ExecutionResult, error)

	// GetTokenBalance returns the wallet's spendable balance of token.
	GetTokenBalance(ctx context.Context, token TokenKey) (Amount, error)
}

// ResultSink receives completion records for observability. Implementations
// must never block the trading loop and must swallow their own errors; the
// sink carries no control-flow responsibility.
type ResultSink interface {
	AddResult(rec TradeRecord)
}

package domain

import "time"

// Quote is one venue's answer to "how much Receive for this much Give".
// Quotes live only within a single scan cycle and are never persisted.
type Quote struct {
	FeeTier     FeeTier
	AmountOut   Amount
	PriceImpact float64 // fractional, 0.01 = 1%
}

// Opportunity is a detected price discrepancy between two venues for the
// same pair and input amount. ExpectedProfit is the spread between the best
// and worst simultaneous one-way quotes; ProfitPct is always computed
// against the original input amount.
type Opportunity struct {
	ID             string
	Pair           Pair
	Amount         Amount
	BuyFeeTier     FeeTier // venue quoting the highest amountOut
	SellFeeTier    FeeTier // venue quoting the lowest amountOut
	BuyAmountOut   Amount
	SellAmountOut  Amount
	ExpectedProfit Amount
	ProfitPct      float64
	DetectedAt     time.Time
}

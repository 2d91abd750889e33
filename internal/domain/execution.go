package domain

import "time"

// ExecutionResult is the gateway's answer for a single submitted swap leg.
// A submitted leg is irreversible regardless of what happens afterwards.
type ExecutionResult struct {
	Success   bool
	AmountOut Amount
	TxID      string
	Error     string
}

// ExecState tracks the two-leg execution state machine.
type ExecState string

const (
	ExecStateIdle             ExecState = "idle"
	ExecStateBuyLegSubmitted  ExecState = "buy_leg_submitted"
	ExecStateSellLegSubmitted ExecState = "sell_leg_submitted"
	ExecStateCompleted        ExecState = "completed"
	// ExecStateAbortedBeforeBuy: the buy leg failed or was never dispatched;
	// no funds moved.
	ExecStateAbortedBeforeBuy ExecState = "aborted_before_buy"
	// ExecStateAbortedAfterBuy: the buy leg settled but the sell leg did not;
	// the wallet is left holding the intermediate asset.
	ExecStateAbortedAfterBuy ExecState = "aborted_after_buy"
)

// Terminal reports whether the state machine has finished.
func (s ExecState) Terminal() bool {
	switch s {
	case ExecStateCompleted, ExecStateAbortedBeforeBuy, ExecStateAbortedAfterBuy:
		return true
	}
	return false
}

// TradeRecord is the completion record emitted to the result sink for every
// attempted execution, carrying both the expected and the realized profit so
// dashboards can analyze quote-vs-fill divergence.
type TradeRecord struct {
	ID             string
	OpportunityID  string
	Pair           Pair
	Amount         Amount
	BuyFeeTier     FeeTier
	SellFeeTier    FeeTier
	State          ExecState
	ExpectedProfit Amount
	ActualProfit   Amount
	BuyTxID        string
	SellTxID       string
	Error          string
	ExecutedAt     time.Time
}

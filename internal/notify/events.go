package notify

// Event types emitted by the trading engine. The [notify] events config list
// filters against these.
const (
	EventTradeCompleted = "trade_completed"
	// EventSellLegFailed fires when a sell leg aborts after the buy leg
	// settled, leaving residual exposure in the wallet.
	EventSellLegFailed  = "sell_leg_failed"
	EventEngineStopped  = "engine_stopped"
	EventPositionOpened = "position_opened"
	EventPositionClosed = "position_closed"
)

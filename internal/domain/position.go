package domain

import "time"

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position is a single directional holding opened by a hold-style policy.
// At most one position is open per engine instance at any time.
type Position struct {
	ID           string
	Pair         Pair
	Amount       Amount // amount of Pair.Give spent on entry
	EntryOut     Amount // amount of Pair.Receive received on entry
	EntryPrice   float64
	StopLoss     Amount // close when a liquidation quote drops to or below this
	TakeProfit   Amount // close when a liquidation quote reaches or exceeds this
	Status       PositionStatus
	OpenedAt     time.Time
	ClosedAt     *time.Time
	ExitOut      *Amount
	CloseReason  string
}

// RunStats are the engine's cumulative counters. They are mutated only on a
// fully completed round trip, never decremented, and reset only by process
// restart.
type RunStats struct {
	TotalTrades int64
	TotalProfit Amount
	LastTradeAt time.Time
}

// EngineStatus is a read-only snapshot returned to callers and dashboards.
type EngineStatus struct {
	Running     bool
	Policy      string
	TotalTrades int64
	TotalProfit Amount
	StartedAt   time.Time
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/galachain-tools/galabot/internal/domain"
	"github.com/galachain-tools/galabot/internal/lunar"
)

// Ledger owns the run statistics and, for hold policies, the single open
// position. Stats move only on fully completed round trips and are never
// decremented; they reset with the process.
type Ledger struct {
	mu    sync.Mutex
	stats domain.RunStats

	positions domain.PositionStore // nil disables persistence
	gateway   domain.GatewayClient
	logger    *slog.Logger
	now       func() time.Time

	// onPosition, when set, observes position lifecycle changes.
	onPosition func(pos domain.Position, opened bool)
}

// SetPositionHook registers a callback invoked after a position is opened or
// closed. Set it before the engine starts; it is not synchronized.
func (l *Ledger) SetPositionHook(fn func(pos domain.Position, opened bool)) {
	l.onPosition = fn
}

// NewLedger creates a Ledger. positions may be nil when no hold policy runs.
func NewLedger(gateway domain.GatewayClient, positions domain.PositionStore, logger *slog.Logger) *Ledger {
	return &Ledger{
		positions: positions,
		gateway:   gateway,
		logger:    logger.With(slog.String("component", "ledger")),
		now:       time.Now,
	}
}

// RecordCompleted folds a completed trade into the run stats. Non-completed
// records are ignored, preserving the stats' monotonic invariant.
func (l *Ledger) RecordCompleted(rec domain.TradeRecord) {
	if rec.State != domain.ExecStateCompleted {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.TotalTrades++
	l.stats.TotalProfit = l.stats.TotalProfit.Add(rec.ActualProfit)
	l.stats.LastTradeAt = rec.ExecutedAt
}

// Stats returns a snapshot of the run statistics.
func (l *Ledger) Stats() domain.RunStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// OpenPosition enters a directional holding: one buy leg, no sell leg yet.
// At most one position may be open; opening while one exists is an error.
func (l *Ledger) OpenPosition(ctx context.Context, pair domain.Pair, amount domain.Amount, params Params) (domain.Position, error) {
	if l.positions == nil {
		return domain.Position{}, fmt.Errorf("ledger: no position store configured")
	}

	if _, err := l.positions.GetOpen(ctx); err == nil {
		return domain.Position{}, fmt.Errorf("ledger: open position exists: %w", domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Position{}, fmt.Errorf("ledger: check open position: %w", err)
	}

	res, err := l.gateway.ExecuteSwap(ctx, pair, amount, bestEntryTier(params), params.MaxSlippageBps)
	if err != nil || !res.Success {
		return domain.Position{}, fmt.Errorf("ledger: entry swap: %s", legError("entry", res, err))
	}

	entryPrice := 0.0
	if !res.AmountOut.IsZero() {
		entryPrice = amount.Float64() / res.AmountOut.Float64()
	}

	pos := domain.Position{
		ID:         uuid.New().String(),
		Pair:       pair,
		Amount:     amount,
		EntryOut:   res.AmountOut,
		EntryPrice: entryPrice,
		// Exit bounds are expressed in the Give token recovered on
		// liquidation: entry spend shifted by the configured percentages.
		StopLoss:   amount.MulFloat(1 - params.StopLossPct/100),
		TakeProfit: amount.MulFloat(1 + params.TakeProfitPct/100),
		Status:     domain.PositionStatusOpen,
		OpenedAt:   l.now(),
	}

	if err := l.positions.Create(ctx, pos); err != nil {
		// The swap already settled; persistence failure must not lose the
		// exposure silently.
		l.logger.Error("position opened but not persisted",
			slog.String("id", pos.ID),
			slog.String("error", err.Error()))
		return pos, fmt.Errorf("ledger: persist position: %w", err)
	}

	l.logger.Info("position opened",
		slog.String("id", pos.ID),
		slog.String("pair", pair.String()),
		slog.String("amount", amount.String()),
		slog.String("entry_out", res.AmountOut.String()))

	if l.onPosition != nil {
		l.onPosition(pos, true)
	}

	return pos, nil
}

// EvaluatePosition checks the open position against its exit conditions:
// stop-loss, take-profit, max-hold age, and (for lunar policy) the full
// moon. When a condition fires it liquidates; a failed liquidation keeps the
// position open for the next cycle.
//
// It returns true when a position was closed this call.
func (l *Ledger) EvaluatePosition(ctx context.Context, params Params) (bool, error) {
	if l.positions == nil {
		return false, nil
	}

	pos, err := l.positions.GetOpen(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("ledger: get open position: %w", err)
	}

	// Value the holding: what would liquidating EntryOut recover right now?
	liqPair := pos.Pair.Reversed()
	quote, err := l.gateway.GetQuote(ctx, liqPair, pos.EntryOut, bestEntryTier(params))
	if err != nil {
		return false, fmt.Errorf("ledger: liquidation quote: %w", err)
	}

	now := l.now()
	reason := ""
	switch {
	case quote.AmountOut.Cmp(pos.StopLoss) <= 0:
		reason = "stop_loss"
	case quote.AmountOut.Cmp(pos.TakeProfit) >= 0:
		reason = "take_profit"
	case params.MaxHold > 0 && now.Sub(pos.OpenedAt) >= params.MaxHold:
		reason = "max_hold"
	case params.Policy == PolicyLunarHold && lunar.IsFull(now):
		reason = "full_moon"
	default:
		return false, nil
	}

	res, err := l.gateway.ExecuteSwap(ctx, liqPair, pos.EntryOut, bestEntryTier(params), params.MaxSlippageBps)
	if err != nil || !res.Success {
		// Leave the position open; the next cycle retries.
		l.logger.Warn("position close failed",
			slog.String("id", pos.ID),
			slog.String("reason", reason),
			slog.String("error", legError("close", res, err)))
		return false, nil
	}

	closedAt := now
	exitOut := res.AmountOut
	pos.Status = domain.PositionStatusClosed
	pos.ClosedAt = &closedAt
	pos.ExitOut = &exitOut
	pos.CloseReason = reason

	if err := l.positions.Update(ctx, pos); err != nil {
		l.logger.Error("position closed but not persisted",
			slog.String("id", pos.ID),
			slog.String("error", err.Error()))
	}

	// A closed round trip counts toward the run stats.
	l.RecordCompleted(domain.TradeRecord{
		State:        domain.ExecStateCompleted,
		ActualProfit: exitOut.Sub(pos.Amount),
		ExecutedAt:   closedAt,
	})

	l.logger.Info("position closed",
		slog.String("id", pos.ID),
		slog.String("reason", reason),
		slog.String("exit_out", exitOut.String()),
		slog.String("pnl", exitOut.Sub(pos.Amount).String()))

	if l.onPosition != nil {
		l.onPosition(pos, false)
	}

	return true, nil
}

// HasOpenPosition reports whether a position is currently open.
func (l *Ledger) HasOpenPosition(ctx context.Context) bool {
	if l.positions == nil {
		return false
	}
	_, err := l.positions.GetOpen(ctx)
	return err == nil
}

// bestEntryTier picks the tier used for single-leg hold trades: the lowest
// configured fee tier.
func bestEntryTier(params Params) domain.FeeTier {
	if len(params.FeeTiers) == 0 {
		return domain.FeeTier500
	}
	best := params.FeeTiers[0]
	for _, t := range params.FeeTiers[1:] {
		if t < best {
			best = t
		}
	}
	return best
}

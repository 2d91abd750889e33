package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/galachain-tools/galabot/internal/domain"
)

// Executor drives the two-leg execution state machine for one opportunity.
// Legs are sequential and individually irreversible: once the buy leg has
// been submitted there is no way back, only forward or aborted-with-exposure.
type Executor struct {
	gateway domain.GatewayClient
	sink    domain.ResultSink
	logger  *slog.Logger
	now     func() time.Time
}

// NewExecutor creates an Executor. sink may be nil.
func NewExecutor(gateway domain.GatewayClient, sink domain.ResultSink, logger *slog.Logger) *Executor {
	return &Executor{
		gateway: gateway,
		sink:    sink,
		logger:  logger.With(slog.String("component", "executor")),
		now:     time.Now,
	}
}

// Execute runs both legs of the opportunity. running is polled at every
// checkpoint: before the buy leg (a stop there costs nothing) and between
// legs (a stop there leaves the wallet holding the intermediate token, which
// is reported but never auto-unwound).
//
// The returned record is terminal in all cases and has already been handed
// to the result sink.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity, params Params, running func() bool) domain.TradeRecord {
	rec := domain.TradeRecord{
		ID:             uuid.New().String(),
		OpportunityID:  opp.ID,
		Pair:           opp.Pair,
		Amount:         opp.Amount,
		BuyFeeTier:     opp.BuyFeeTier,
		SellFeeTier:    opp.SellFeeTier,
		State:          domain.ExecStateIdle,
		ExpectedProfit: opp.ExpectedProfit,
		ExecutedAt:     e.now(),
	}

	rec = e.run(ctx, rec, opp, params, running)

	if e.sink != nil {
		e.sink.AddResult(rec)
	}
	return rec
}

func (e *Executor) run(ctx context.Context, rec domain.TradeRecord, opp domain.Opportunity, params Params, running func() bool) domain.TradeRecord {
	// Checkpoint: nothing has moved yet, stopping here is free.
	if !running() || ctx.Err() != nil {
		rec.State = domain.ExecStateAbortedBeforeBuy
		rec.Error = "stopped before buy leg"
		return rec
	}

	// Balance pre-check for the buy leg.
	balance, err := e.gateway.GetTokenBalance(ctx, opp.Pair.Give)
	if err != nil {
		rec.State = domain.ExecStateAbortedBeforeBuy
		rec.Error = fmt.Sprintf("balance check: %v", err)
		return rec
	}
	if balance.Cmp(opp.Amount) < 0 {
		rec.State = domain.ExecStateAbortedBeforeBuy
		rec.Error = fmt.Sprintf("%v: have %s, need %s", domain.ErrInsufficientBalance, balance, opp.Amount)
		e.logger.Warn("insufficient balance for buy leg",
			slog.String("pair", opp.Pair.String()),
			slog.String("have", balance.String()),
			slog.String("need", opp.Amount.String()))
		return rec
	}

	// Leg 1: spend Give on the venue quoting the richest fill.
	buyRes, err := e.gateway.ExecuteSwap(ctx, opp.Pair, opp.Amount, opp.BuyFeeTier, params.MaxSlippageBps)
	if err != nil || !buyRes.Success {
		rec.State = domain.ExecStateAbortedBeforeBuy
		rec.Error = legError("buy leg", buyRes, err)
		e.logger.Warn("buy leg failed",
			slog.String("pair", opp.Pair.String()),
			slog.String("error", rec.Error))
		return rec
	}
	rec.State = domain.ExecStateBuyLegSubmitted
	rec.BuyTxID = buyRes.TxID

	e.logger.Info("buy leg filled",
		slog.String("pair", opp.Pair.String()),
		slog.String("amount_out", buyRes.AmountOut.String()),
		slog.String("tx", buyRes.TxID))

	// Checkpoint: from here on a stop leaves residual exposure.
	if !running() || ctx.Err() != nil {
		rec.State = domain.ExecStateAbortedAfterBuy
		rec.Error = "stopped between legs; wallet holds intermediate token"
		e.logger.Warn("stopped between legs",
			slog.String("pair", opp.Pair.String()),
			slog.String("held", buyRes.AmountOut.String()))
		return rec
	}

	// Leg 2: convert the intermediate token back on the other venue.
	sellPair := opp.Pair.Reversed()
	sellRes, err := e.gateway.ExecuteSwap(ctx, sellPair, buyRes.AmountOut, opp.SellFeeTier, params.MaxSlippageBps)
	if err != nil || !sellRes.Success {
		rec.State = domain.ExecStateAbortedAfterBuy
		rec.Error = legError("sell leg", sellRes, err)
		e.logger.Error("sell leg failed; residual exposure",
			slog.String("pair", sellPair.String()),
			slog.String("held", buyRes.AmountOut.String()),
			slog.String("error", rec.Error))
		return rec
	}
	rec.State = domain.ExecStateSellLegSubmitted
	rec.SellTxID = sellRes.TxID

	// Full round trip: realized profit is measured in the Give token.
	rec.State = domain.ExecStateCompleted
	rec.ActualProfit = sellRes.AmountOut.Sub(opp.Amount)

	e.logger.Info("trade completed",
		slog.String("pair", opp.Pair.String()),
		slog.String("expected_profit", rec.ExpectedProfit.String()),
		slog.String("actual_profit", rec.ActualProfit.String()),
		slog.String("buy_tx", rec.BuyTxID),
		slog.String("sell_tx", rec.SellTxID))

	return rec
}

func legError(leg string, res domain.ExecutionResult, err error) string {
	if err != nil {
		return fmt.Sprintf("%s: %v", leg, err)
	}
	if res.Error != "" {
		return fmt.Sprintf("%s: %s", leg, res.Error)
	}
	return leg + ": swap rejected"
}

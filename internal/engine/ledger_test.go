package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galachain-tools/galabot/internal/domain"
)

func TestLedgerStatsOnlyOnCompleted(t *testing.T) {
	l := NewLedger(&fakeGateway{}, nil, testLogger())

	l.RecordCompleted(domain.TradeRecord{
		State:        domain.ExecStateAbortedBeforeBuy,
		ActualProfit: domain.MustParseAmount("99"),
	})
	l.RecordCompleted(domain.TradeRecord{
		State:        domain.ExecStateAbortedAfterBuy,
		ActualProfit: domain.MustParseAmount("99"),
	})
	assert.Equal(t, int64(0), l.Stats().TotalTrades)
	assert.True(t, l.Stats().TotalProfit.IsZero())

	now := time.Now()
	l.RecordCompleted(domain.TradeRecord{
		State:        domain.ExecStateCompleted,
		ActualProfit: domain.MustParseAmount("1.5"),
		ExecutedAt:   now,
	})
	l.RecordCompleted(domain.TradeRecord{
		State:        domain.ExecStateCompleted,
		ActualProfit: domain.MustParseAmount("-0.5"),
		ExecutedAt:   now.Add(time.Minute),
	})

	stats := l.Stats()
	assert.Equal(t, int64(2), stats.TotalTrades)
	// Losing round trips still count; the counter never decrements.
	assert.Equal(t, domain.MustParseAmount("1"), stats.TotalProfit)
	assert.Equal(t, now.Add(time.Minute), stats.LastTradeAt)
}

func TestOpenPositionSingleton(t *testing.T) {
	store := newMemPositionStore()
	gw := &fakeGateway{
		swapFn: func(call swapCall) (domain.ExecutionResult, error) {
			return domain.ExecutionResult{Success: true, AmountOut: domain.MustParseAmount("1.5"), TxID: "tx"}, nil
		},
	}
	params := testParams()
	params.StopLossPct = 5
	params.TakeProfitPct = 10

	l := NewLedger(gw, store, testLogger())
	pair := params.Pairs[0]

	pos, err := l.OpenPosition(context.Background(), pair, domain.MustParseAmount("100"), params)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusOpen, pos.Status)
	assert.Equal(t, domain.MustParseAmount("95"), pos.StopLoss)
	assert.Equal(t, domain.MustParseAmount("110"), pos.TakeProfit)
	assert.True(t, l.HasOpenPosition(context.Background()))

	_, err = l.OpenPosition(context.Background(), pair, domain.MustParseAmount("100"), params)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestEvaluatePositionStopLoss(t *testing.T) {
	store := newMemPositionStore()
	params := testParams()
	params.StopLossPct = 5
	params.TakeProfitPct = 10
	pair := params.Pairs[0]

	gw := &fakeGateway{
		// Liquidation would recover only 90: below the 95 stop.
		quoteFn: func(p domain.Pair, _ domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
			return domain.Quote{FeeTier: tier, AmountOut: domain.MustParseAmount("90")}, nil
		},
		swapFn: func(call swapCall) (domain.ExecutionResult, error) {
			return domain.ExecutionResult{Success: true, AmountOut: domain.MustParseAmount("90"), TxID: "close"}, nil
		},
	}

	l := NewLedger(gw, store, testLogger())

	require.NoError(t, store.Create(context.Background(), domain.Position{
		ID:         "pos-1",
		Pair:       pair,
		Amount:     domain.MustParseAmount("100"),
		EntryOut:   domain.MustParseAmount("1.5"),
		StopLoss:   domain.MustParseAmount("95"),
		TakeProfit: domain.MustParseAmount("110"),
		Status:     domain.PositionStatusOpen,
		OpenedAt:   time.Now(),
	}))

	closed, err := l.EvaluatePosition(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.False(t, l.HasOpenPosition(context.Background()))

	got := store.positions["pos-1"]
	assert.Equal(t, domain.PositionStatusClosed, got.Status)
	assert.Equal(t, "stop_loss", got.CloseReason)
	require.NotNil(t, got.ExitOut)
	assert.Equal(t, domain.MustParseAmount("90"), *got.ExitOut)

	// The closed round trip lands in the stats as a (negative) trade.
	stats := l.Stats()
	assert.Equal(t, int64(1), stats.TotalTrades)
	assert.Equal(t, domain.MustParseAmount("-10"), stats.TotalProfit)
}

func TestEvaluatePositionHoldsInsideBounds(t *testing.T) {
	store := newMemPositionStore()
	params := testParams()
	params.MaxHold = 7 * 24 * time.Hour
	pair := params.Pairs[0]

	gw := &fakeGateway{
		quoteFn: func(p domain.Pair, _ domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
			return domain.Quote{FeeTier: tier, AmountOut: domain.MustParseAmount("100")}, nil
		},
	}

	l := NewLedger(gw, store, testLogger())

	require.NoError(t, store.Create(context.Background(), domain.Position{
		ID:         "pos-1",
		Pair:       pair,
		Amount:     domain.MustParseAmount("100"),
		EntryOut:   domain.MustParseAmount("1.5"),
		StopLoss:   domain.MustParseAmount("95"),
		TakeProfit: domain.MustParseAmount("110"),
		Status:     domain.PositionStatusOpen,
		OpenedAt:   time.Now(),
	}))

	closed, err := l.EvaluatePosition(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, closed)
	assert.True(t, l.HasOpenPosition(context.Background()))
	assert.Empty(t, gw.swapCalls())
}

func TestEvaluatePositionMaxHold(t *testing.T) {
	store := newMemPositionStore()
	params := testParams()
	params.MaxHold = time.Hour
	pair := params.Pairs[0]

	gw := &fakeGateway{
		quoteFn: func(p domain.Pair, _ domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
			return domain.Quote{FeeTier: tier, AmountOut: domain.MustParseAmount("100")}, nil
		},
		swapFn: func(call swapCall) (domain.ExecutionResult, error) {
			return domain.ExecutionResult{Success: true, AmountOut: domain.MustParseAmount("100"), TxID: "close"}, nil
		},
	}

	l := NewLedger(gw, store, testLogger())

	require.NoError(t, store.Create(context.Background(), domain.Position{
		ID:         "pos-1",
		Pair:       pair,
		Amount:     domain.MustParseAmount("100"),
		EntryOut:   domain.MustParseAmount("1.5"),
		StopLoss:   domain.MustParseAmount("50"),
		TakeProfit: domain.MustParseAmount("200"),
		Status:     domain.PositionStatusOpen,
		OpenedAt:   time.Now().Add(-2 * time.Hour),
	}))

	closed, err := l.EvaluatePosition(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Equal(t, "max_hold", store.positions["pos-1"].CloseReason)
}

func TestEvaluatePositionCloseFailureKeepsOpen(t *testing.T) {
	store := newMemPositionStore()
	params := testParams()
	pair := params.Pairs[0]

	gw := &fakeGateway{
		quoteFn: func(p domain.Pair, _ domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
			return domain.Quote{FeeTier: tier, AmountOut: domain.MustParseAmount("90")}, nil
		},
		swapFn: func(call swapCall) (domain.ExecutionResult, error) {
			return domain.ExecutionResult{}, errTransport
		},
	}

	l := NewLedger(gw, store, testLogger())

	require.NoError(t, store.Create(context.Background(), domain.Position{
		ID:         "pos-1",
		Pair:       pair,
		Amount:     domain.MustParseAmount("100"),
		EntryOut:   domain.MustParseAmount("1.5"),
		StopLoss:   domain.MustParseAmount("95"),
		TakeProfit: domain.MustParseAmount("110"),
		Status:     domain.PositionStatusOpen,
		OpenedAt:   time.Now(),
	}))

	closed, err := l.EvaluatePosition(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, closed)
	// Still open; the next cycle retries the close.
	assert.True(t, l.HasOpenPosition(context.Background()))
	assert.Equal(t, int64(0), l.Stats().TotalTrades)
}

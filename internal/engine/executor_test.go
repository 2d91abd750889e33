package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galachain-tools/galabot/internal/domain"
)

func testOpportunity() domain.Opportunity {
	return domain.Opportunity{
		ID:             "opp-1",
		Pair:           domain.Pair{Give: domain.TokenGALA, Receive: domain.TokenGUSDC},
		Amount:         domain.MustParseAmount("100"),
		BuyFeeTier:     domain.FeeTier10000,
		SellFeeTier:    domain.FeeTier500,
		BuyAmountOut:   domain.MustParseAmount("1.55"),
		SellAmountOut:  domain.MustParseAmount("1.48"),
		ExpectedProfit: domain.MustParseAmount("0.07"),
		ProfitPct:      0.07,
		DetectedAt:     time.Now(),
	}
}

func alwaysRunning() bool { return true }

func TestExecuteFullRoundTrip(t *testing.T) {
	opp := testOpportunity()
	sink := &captureSink{}

	gw := &fakeGateway{
		swapFn: func(call swapCall) (domain.ExecutionResult, error) {
			switch call.Pair {
			case opp.Pair:
				return domain.ExecutionResult{Success: true, AmountOut: domain.MustParseAmount("1.55"), TxID: "buy-tx"}, nil
			case opp.Pair.Reversed():
				return domain.ExecutionResult{Success: true, AmountOut: domain.MustParseAmount("101.2"), TxID: "sell-tx"}, nil
			}
			t.Fatalf("unexpected pair %s", call.Pair)
			return domain.ExecutionResult{}, nil
		},
	}

	rec := NewExecutor(gw, sink, testLogger()).Execute(context.Background(), opp, testParams(), alwaysRunning)

	assert.Equal(t, domain.ExecStateCompleted, rec.State)
	assert.Equal(t, domain.MustParseAmount("1.2"), rec.ActualProfit)
	assert.Equal(t, "buy-tx", rec.BuyTxID)
	assert.Equal(t, "sell-tx", rec.SellTxID)
	assert.Equal(t, opp.ID, rec.OpportunityID)

	// Leg order and routing: buy on the rich venue, sell back on the other.
	calls := gw.swapCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, opp.Pair, calls[0].Pair)
	assert.Equal(t, opp.BuyFeeTier, calls[0].FeeTier)
	assert.Equal(t, opp.Pair.Reversed(), calls[1].Pair)
	assert.Equal(t, opp.SellFeeTier, calls[1].FeeTier)
	// The sell leg spends exactly the buy leg's fill.
	assert.Equal(t, domain.MustParseAmount("1.55"), calls[1].Amount)

	require.Len(t, sink.records(), 1)
	assert.Equal(t, domain.ExecStateCompleted, sink.records()[0].State)
}

func TestExecuteBuyLegFailure(t *testing.T) {
	opp := testOpportunity()
	sink := &captureSink{}

	gw := &fakeGateway{
		swapFn: func(call swapCall) (domain.ExecutionResult, error) {
			return domain.ExecutionResult{Error: "slippage exceeded"}, nil
		},
	}

	rec := NewExecutor(gw, sink, testLogger()).Execute(context.Background(), opp, testParams(), alwaysRunning)

	assert.Equal(t, domain.ExecStateAbortedBeforeBuy, rec.State)
	assert.Contains(t, rec.Error, "buy leg")
	assert.True(t, rec.ActualProfit.IsZero())
	assert.Len(t, gw.swapCalls(), 1)
}

func TestExecuteSellLegFailureLeavesExposure(t *testing.T) {
	opp := testOpportunity()
	sink := &captureSink{}

	gw := &fakeGateway{
		swapFn: func(call swapCall) (domain.ExecutionResult, error) {
			if call.Pair == opp.Pair {
				return domain.ExecutionResult{Success: true, AmountOut: domain.MustParseAmount("1.55"), TxID: "buy-tx"}, nil
			}
			return domain.ExecutionResult{}, errTransport
		},
	}

	rec := NewExecutor(gw, sink, testLogger()).Execute(context.Background(), opp, testParams(), alwaysRunning)

	assert.Equal(t, domain.ExecStateAbortedAfterBuy, rec.State)
	assert.Equal(t, "buy-tx", rec.BuyTxID)
	assert.Empty(t, rec.SellTxID)
	assert.Contains(t, rec.Error, "sell leg")

	// The terminal record still reaches the sink for the exposure alert.
	require.Len(t, sink.records(), 1)
	assert.Equal(t, domain.ExecStateAbortedAfterBuy, sink.records()[0].State)
}

func TestExecuteStopBeforeBuyIsFree(t *testing.T) {
	opp := testOpportunity()
	gw := &fakeGateway{}

	rec := NewExecutor(gw, nil, testLogger()).Execute(context.Background(), opp, testParams(), func() bool { return false })

	assert.Equal(t, domain.ExecStateAbortedBeforeBuy, rec.State)
	assert.Empty(t, gw.swapCalls())
}

func TestExecuteStopBetweenLegs(t *testing.T) {
	opp := testOpportunity()

	// Running flag flips to false after the first swap.
	var calls int
	running := func() bool { return calls == 0 }

	gw := &fakeGateway{
		swapFn: func(call swapCall) (domain.ExecutionResult, error) {
			calls++
			return domain.ExecutionResult{Success: true, AmountOut: domain.MustParseAmount("1.55"), TxID: "buy-tx"}, nil
		},
	}

	rec := NewExecutor(gw, nil, testLogger()).Execute(context.Background(), opp, testParams(), running)

	assert.Equal(t, domain.ExecStateAbortedAfterBuy, rec.State)
	assert.Len(t, gw.swapCalls(), 1)
}

func TestExecuteInsufficientBalance(t *testing.T) {
	opp := testOpportunity()

	gw := &fakeGateway{
		balanceFn: func(domain.TokenKey) (domain.Amount, error) {
			return domain.MustParseAmount("5"), nil
		},
	}

	rec := NewExecutor(gw, nil, testLogger()).Execute(context.Background(), opp, testParams(), alwaysRunning)

	assert.Equal(t, domain.ExecStateAbortedBeforeBuy, rec.State)
	assert.Contains(t, rec.Error, "insufficient balance")
	assert.Empty(t, gw.swapCalls())
}

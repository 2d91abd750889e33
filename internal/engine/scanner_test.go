package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galachain-tools/galabot/internal/domain"
)

func TestScanDetectsSpread(t *testing.T) {
	params := testParams()
	params.MinProfitPct = 0.05
	pair := params.Pairs[0]

	gw := &fakeGateway{
		quoteFn: quoteTable(pair, map[domain.FeeTier]string{
			domain.FeeTier500:   "1.50",
			domain.FeeTier3000:  "1.48",
			domain.FeeTier10000: "1.55",
		}),
	}

	opps, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, opps, 1)

	opp := opps[0]
	assert.Equal(t, pair, opp.Pair)
	assert.Equal(t, domain.MustParseAmount("100"), opp.Amount)
	// Best venue quotes the highest fill, worst the lowest.
	assert.Equal(t, domain.FeeTier10000, opp.BuyFeeTier)
	assert.Equal(t, domain.FeeTier3000, opp.SellFeeTier)
	assert.Equal(t, domain.MustParseAmount("0.07"), opp.ExpectedProfit)
	// Profit percentage is measured against the input amount.
	assert.InDelta(t, 0.07, opp.ProfitPct, 1e-9)
}

func TestScanRespectsThreshold(t *testing.T) {
	params := testParams()
	params.MinProfitPct = 0.1
	pair := params.Pairs[0]

	gw := &fakeGateway{
		quoteFn: quoteTable(pair, map[domain.FeeTier]string{
			domain.FeeTier500:  "1.50",
			domain.FeeTier3000: "1.55", // spread 0.05 on 100 in = 0.05%
		}),
	}

	opps, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestScanNeedsTwoVenues(t *testing.T) {
	params := testParams()
	pair := params.Pairs[0]

	gw := &fakeGateway{
		quoteFn: quoteTable(pair, map[domain.FeeTier]string{
			domain.FeeTier500: "2.0",
		}),
	}

	opps, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestScanSkipsUnavailableVenues(t *testing.T) {
	params := testParams()
	params.MinProfitPct = 0.01
	pair := params.Pairs[0]

	// 3000 missing entirely; the other two still form a spread.
	gw := &fakeGateway{
		quoteFn: quoteTable(pair, map[domain.FeeTier]string{
			domain.FeeTier500:   "1.40",
			domain.FeeTier10000: "1.60",
		}),
	}

	opps, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, domain.MustParseAmount("0.2"), opps[0].ExpectedProfit)
}

func TestScanAllTransportErrorsFails(t *testing.T) {
	params := testParams()
	gw := &fakeGateway{
		quoteFn: func(domain.Pair, domain.Amount, domain.FeeTier) (domain.Quote, error) {
			return domain.Quote{}, errTransport
		},
	}

	_, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransport)
}

func TestScanSmallestAmountFirst(t *testing.T) {
	params := testParams()
	params.Amounts = []domain.Amount{
		domain.MustParseAmount("10"),
		domain.MustParseAmount("100"),
	}
	pair := params.Pairs[0]

	var probed []domain.Amount
	gw := &fakeGateway{
		quoteFn: func(p domain.Pair, amount domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
			if p != pair {
				return domain.Quote{}, domain.ErrVenueUnavailable
			}
			probed = append(probed, amount)
			// 20% spread at every size; the smallest size must win.
			out := amount.MulFloat(0.5)
			if tier == domain.FeeTier10000 {
				out = amount.MulFloat(0.7)
			}
			return domain.Quote{FeeTier: tier, AmountOut: out}, nil
		},
	}

	opps, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, domain.MustParseAmount("10"), opps[0].Amount)
	// The larger candidate was never probed.
	for _, a := range probed {
		assert.Equal(t, domain.MustParseAmount("10"), a)
	}
}

func TestScanMovesToNextAmountWhenVenuesThin(t *testing.T) {
	params := testParams()
	params.MinProfitPct = 0.05
	params.Amounts = []domain.Amount{
		domain.MustParseAmount("10"),
		domain.MustParseAmount("100"),
	}
	pair := params.Pairs[0]
	small := domain.MustParseAmount("10")

	gw := &fakeGateway{
		quoteFn: func(p domain.Pair, amount domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
			if p != pair {
				return domain.Quote{}, domain.ErrVenueUnavailable
			}
			// Only one venue quotes the small size; the spread needs two.
			if amount == small && tier != domain.FeeTier500 {
				return domain.Quote{}, domain.ErrVenueUnavailable
			}
			out := amount.MulFloat(0.5)
			if tier == domain.FeeTier10000 {
				out = amount.MulFloat(0.7)
			}
			return domain.Quote{FeeTier: tier, AmountOut: out}, nil
		},
	}

	opps, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, domain.MustParseAmount("100"), opps[0].Amount)
}

func TestScanHonorsMaxPositionSize(t *testing.T) {
	params := testParams()
	params.MaxPositionSize = domain.MustParseAmount("50")
	pair := params.Pairs[0]

	gw := &fakeGateway{
		quoteFn: quoteTable(pair, map[domain.FeeTier]string{
			domain.FeeTier500:   "1.0",
			domain.FeeTier10000: "2.0",
		}),
	}

	// The only candidate amount (100) exceeds the cap.
	opps, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, opps)
}

func TestScanBothDirectionsAndRanking(t *testing.T) {
	params := testParams()
	params.Policy = PolicyBestOfVenues
	pair := params.Pairs[0]
	reversed := pair.Reversed()

	gw := &fakeGateway{
		quoteFn: func(p domain.Pair, amount domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
			table := map[domain.FeeTier]string{}
			switch p {
			case pair:
				table = map[domain.FeeTier]string{
					domain.FeeTier500:  "1.0",
					domain.FeeTier3000: "3.0", // 2% on 100
				}
			case reversed:
				table = map[domain.FeeTier]string{
					domain.FeeTier500:  "1.0",
					domain.FeeTier3000: "5.0", // 4% on 100
				}
			}
			out, ok := table[tier]
			if !ok {
				return domain.Quote{}, domain.ErrVenueUnavailable
			}
			return domain.Quote{FeeTier: tier, AmountOut: domain.MustParseAmount(out)}, nil
		},
	}

	opps, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, opps, 2)
	// Higher yield first.
	assert.Equal(t, reversed, opps[0].Pair)
	assert.Greater(t, opps[0].ProfitPct, opps[1].ProfitPct)
}

func TestScanFixedDirectionSkipsReverse(t *testing.T) {
	params := testParams()
	params.Policy = PolicyFixedDirection
	pair := params.Pairs[0]

	var sawReverse bool
	gw := &fakeGateway{
		quoteFn: func(p domain.Pair, _ domain.Amount, tier domain.FeeTier) (domain.Quote, error) {
			if p == pair.Reversed() {
				sawReverse = true
			}
			return domain.Quote{}, domain.ErrVenueUnavailable
		},
	}

	_, err := NewScanner(gw, testLogger()).Scan(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, sawReverse)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/galachain-tools/galabot/internal/domain"
)

// Scanner prices pairs across fee-tier venues and surfaces spread
// opportunities that clear the profit threshold.
type Scanner struct {
	gateway domain.GatewayClient
	logger  *slog.Logger
	now     func() time.Time
}

// NewScanner creates a Scanner.
func NewScanner(gateway domain.GatewayClient, logger *slog.Logger) *Scanner {
	return &Scanner{
		gateway: gateway,
		logger:  logger.With(slog.String("component", "scanner")),
		now:     time.Now,
	}
}

// Scan probes every configured pair (and, outside fixed-direction policy,
// its reverse orientation) and returns opportunities above the threshold
// ranked best-first. A nil slice means no opportunity this cycle.
//
// Individual venue failures wrapping domain.ErrVenueUnavailable are skipped.
// If every quote attempt fails on transport errors the scan itself fails, so
// the loop can back off instead of mistaking an outage for a calm market.
func (s *Scanner) Scan(ctx context.Context, params Params) ([]domain.Opportunity, error) {
	pairs := scanDirections(params)

	var (
		opps      []domain.Opportunity
		usable    int
		transport error
	)

	for _, pair := range pairs {
		opp, quoted, err := s.scanPair(ctx, pair, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			transport = err
			continue
		}
		usable += quoted
		if opp != nil {
			opps = append(opps, *opp)
		}
	}

	if usable == 0 && transport != nil {
		return nil, fmt.Errorf("scan: all venues failed: %w", transport)
	}

	rankOpportunities(opps, params)
	return opps, nil
}

// scanPair probes one oriented pair, smallest candidate amount first, and
// returns the first amount's opportunity that clears the threshold. The
// two-venue minimum applies per amount: an amount with fewer than two usable
// quotes yields no candidate and probing moves on to the next amount. The
// second return value counts venues that produced a usable quote.
func (s *Scanner) scanPair(ctx context.Context, pair domain.Pair, params Params) (*domain.Opportunity, int, error) {
	totalUsable := 0

	for _, amount := range params.Amounts {
		if params.MaxPositionSize.IsPositive() && amount.Cmp(params.MaxPositionSize) > 0 {
			break
		}

		quotes := make([]domain.Quote, 0, len(params.FeeTiers))
		var transport error

		for _, tier := range params.FeeTiers {
			quote, err := s.gateway.GetQuote(ctx, pair, amount, tier)
			if err != nil {
				if errors.Is(err, domain.ErrVenueUnavailable) {
					s.logger.Debug("venue unavailable",
						slog.String("pair", pair.String()),
						slog.Int("fee_tier", int(tier)))
					continue
				}
				if ctx.Err() != nil {
					return nil, totalUsable, ctx.Err()
				}
				transport = err
				continue
			}
			quotes = append(quotes, quote)
		}

		totalUsable += len(quotes)

		// A spread needs at least two venues on the same pair and amount.
		if len(quotes) < 2 {
			if len(quotes) == 0 && transport != nil {
				return nil, totalUsable, transport
			}
			s.logger.Debug("insufficient venues",
				slog.String("pair", pair.String()),
				slog.String("amount", amount.String()),
				slog.Int("usable", len(quotes)))
			continue
		}

		best, worst := quotes[0], quotes[0]
		for _, q := range quotes[1:] {
			if q.AmountOut.Cmp(best.AmountOut) > 0 {
				best = q
			}
			if q.AmountOut.Cmp(worst.AmountOut) < 0 {
				worst = q
			}
		}

		expectedProfit := best.AmountOut.Sub(worst.AmountOut)
		// Profit is measured against the original input amount.
		profitPct := expectedProfit.PctOf(amount)

		if profitPct < params.MinProfitPct {
			continue
		}

		opp := &domain.Opportunity{
			ID:             uuid.New().String(),
			Pair:           pair,
			Amount:         amount,
			BuyFeeTier:     best.FeeTier,
			SellFeeTier:    worst.FeeTier,
			BuyAmountOut:   best.AmountOut,
			SellAmountOut:  worst.AmountOut,
			ExpectedProfit: expectedProfit,
			ProfitPct:      profitPct,
			DetectedAt:     s.now(),
		}

		s.logger.Info("opportunity detected",
			slog.String("pair", pair.String()),
			slog.String("amount", amount.String()),
			slog.String("expected_profit", expectedProfit.String()),
			slog.Float64("profit_pct", profitPct))

		return opp, totalUsable, nil
	}

	return nil, totalUsable, nil
}

// scanDirections expands the configured pairs into the orientations the
// policy wants scanned.
func scanDirections(params Params) []domain.Pair {
	if params.Policy == PolicyFixedDirection {
		return params.Pairs
	}
	out := make([]domain.Pair, 0, len(params.Pairs)*2)
	seen := make(map[domain.Pair]bool, len(params.Pairs)*2)
	for _, p := range params.Pairs {
		for _, dir := range []domain.Pair{p, p.Reversed()} {
			if !seen[dir] {
				seen[dir] = true
				out = append(out, dir)
			}
		}
	}
	return out
}

// rankOpportunities orders candidates best-first. PreferExotic breaks ties
// toward reversed orientations (the rarer direction); otherwise higher
// profit percentage wins.
func rankOpportunities(opps []domain.Opportunity, params Params) {
	configured := make(map[domain.Pair]bool, len(params.Pairs))
	for _, p := range params.Pairs {
		configured[p] = true
	}

	sort.SliceStable(opps, func(i, j int) bool {
		if params.PreferExotic {
			iExotic := !configured[opps[i].Pair]
			jExotic := !configured[opps[j].Pair]
			if iExotic != jExotic {
				return iExotic
			}
		}
		return opps[i].ProfitPct > opps[j].ProfitPct
	})
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galachain-tools/galabot/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
// Every detected opportunity is recorded, executed or not, so the spread
// history can be analyzed offline.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a new OpportunityStore backed by the given pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Insert persists one detected opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO opportunities (
			id, give_token, receive_token, amount,
			buy_fee_tier, sell_fee_tier, buy_amount_out, sell_amount_out,
			expected_profit, profit_pct, detected_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11
		) ON CONFLICT (id) DO NOTHING`,
		opp.ID, opp.Pair.Give, opp.Pair.Receive, opp.Amount,
		opp.BuyFeeTier, opp.SellFeeTier, opp.BuyAmountOut, opp.SellAmountOut,
		opp.ExpectedProfit, opp.ProfitPct, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns the most recently detected opportunities, newest first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, give_token, receive_token, amount,
			buy_fee_tier, sell_fee_tier, buy_amount_out, sell_amount_out,
			expected_profit, profit_pct, detected_at
		FROM opportunities
		ORDER BY detected_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var o domain.Opportunity
		if err := rows.Scan(
			&o.ID, &o.Pair.Give, &o.Pair.Receive, &o.Amount,
			&o.BuyFeeTier, &o.SellFeeTier, &o.BuyAmountOut, &o.SellAmountOut,
			&o.ExpectedProfit, &o.ProfitPct, &o.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opps = append(opps, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	return opps, nil
}

// Compile-time interface check.
var _ domain.OpportunityStore = (*OpportunityStore)(nil)

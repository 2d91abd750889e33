package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galachain-tools/galabot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, opportunity_id, give_token, receive_token, amount,
	buy_fee_tier, sell_fee_tier, state, expected_profit, actual_profit,
	buy_tx_id, sell_tx_id, error, executed_at`

func scanTradeRows(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var recs []domain.TradeRecord
	for rows.Next() {
		var (
			r      domain.TradeRecord
			oppID  *string
			buyTx  *string
			sellTx *string
			errMsg *string
		)
		if err := rows.Scan(
			&r.ID, &oppID, &r.Pair.Give, &r.Pair.Receive, &r.Amount,
			&r.BuyFeeTier, &r.SellFeeTier, &r.State, &r.ExpectedProfit,
			&r.ActualProfit, &buyTx, &sellTx, &errMsg, &r.ExecutedAt,
		); err != nil {
			return nil, err
		}
		if oppID != nil {
			r.OpportunityID = *oppID
		}
		if buyTx != nil {
			r.BuyTxID = *buyTx
		}
		if sellTx != nil {
			r.SellTxID = *sellTx
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// nullable converts zero values to nil so they land as SQL NULL.
func nullStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Insert persists one trade record.
func (s *TradeStore) Insert(ctx context.Context, rec domain.TradeRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO trades (
			id, opportunity_id, give_token, receive_token, amount,
			buy_fee_tier, sell_fee_tier, state, expected_profit, actual_profit,
			buy_tx_id, sell_tx_id, error, executed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14
		) ON CONFLICT (id) DO NOTHING`,
		rec.ID, nullStr(rec.OpportunityID), rec.Pair.Give, rec.Pair.Receive, rec.Amount,
		rec.BuyFeeTier, rec.SellFeeTier, rec.State, rec.ExpectedProfit, rec.ActualProfit,
		nullStr(rec.BuyTxID), nullStr(rec.SellTxID), nullStr(rec.Error), rec.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns the most recent trade records, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades ORDER BY executed_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	recs, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent trades: %w", err)
	}
	return recs, nil
}

// ListBefore returns all trades executed strictly before the given time,
// oldest first (for archiving).
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE executed_at < $1 ORDER BY executed_at ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// DeleteBefore deletes all trades executed before the given time. Returns the
// number deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE executed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SumProfit totals realized profit over completed trades since the given time.
func (s *TradeStore) SumProfit(ctx context.Context, since time.Time) (domain.Amount, error) {
	var sum *int64
	err := s.pool.QueryRow(ctx, `
		SELECT SUM(actual_profit) FROM trades
		WHERE state = $1 AND executed_at >= $2`,
		domain.ExecStateCompleted, since,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum profit: %w", err)
	}
	if sum == nil {
		return 0, nil
	}
	return domain.Amount(*sum), nil
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)

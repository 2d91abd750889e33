package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/galachain-tools/galabot/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `id, give_token, receive_token, amount, entry_out,
	entry_price, stop_loss, take_profit, status, opened_at, closed_at,
	exit_out, close_reason`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var (
		p           domain.Position
		exitOut     *int64
		closeReason *string
	)
	err := row.Scan(
		&p.ID, &p.Pair.Give, &p.Pair.Receive, &p.Amount, &p.EntryOut,
		&p.EntryPrice, &p.StopLoss, &p.TakeProfit, &p.Status, &p.OpenedAt,
		&p.ClosedAt, &exitOut, &closeReason,
	)
	if err != nil {
		return domain.Position{}, err
	}
	if exitOut != nil {
		v := domain.Amount(*exitOut)
		p.ExitOut = &v
	}
	if closeReason != nil {
		p.CloseReason = *closeReason
	}
	return p, nil
}

// Create persists a newly opened position.
func (s *PositionStore) Create(ctx context.Context, pos domain.Position) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO positions (
			id, give_token, receive_token, amount, entry_out,
			entry_price, stop_loss, take_profit, status, opened_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`,
		pos.ID, pos.Pair.Give, pos.Pair.Receive, pos.Amount, pos.EntryOut,
		pos.EntryPrice, pos.StopLoss, pos.TakeProfit, pos.Status, pos.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create position %s: %w", pos.ID, err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing position.
func (s *PositionStore) Update(ctx context.Context, pos domain.Position) error {
	var exitOut *int64
	if pos.ExitOut != nil {
		v := int64(*pos.ExitOut)
		exitOut = &v
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE positions SET
			status = $2, closed_at = $3, exit_out = $4, close_reason = $5,
			stop_loss = $6, take_profit = $7
		WHERE id = $1`,
		pos.ID, pos.Status, pos.ClosedAt, exitOut, nullStr(pos.CloseReason),
		pos.StopLoss, pos.TakeProfit,
	)
	if err != nil {
		return fmt.Errorf("postgres: update position %s: %w", pos.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update position %s: %w", pos.ID, domain.ErrNotFound)
	}
	return nil
}

// GetOpen returns the single open position, or domain.ErrNotFound when the
// engine is flat.
func (s *PositionStore) GetOpen(ctx context.Context) (domain.Position, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+positionSelectCols+` FROM positions
		WHERE status = $1
		ORDER BY opened_at DESC
		LIMIT 1`,
		domain.PositionStatusOpen,
	)
	pos, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get open position: %w", err)
	}
	return pos, nil
}

// ListHistory returns positions ordered by open time descending, with
// pagination and optional time filtering.
func (s *PositionStore) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions WHERE TRUE`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND opened_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND opened_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY opened_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list position history: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list position history: %w", err)
	}
	return positions, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)

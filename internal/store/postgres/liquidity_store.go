package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlayd/parlayd/internal/domain"
)

// LiquidityStore implements domain.LiquidityStore using PostgreSQL. Provider
// positions live in liquidity_positions; the global counters live in a
// single-row ledger_snapshot table.
type LiquidityStore struct {
	pool *pgxpool.Pool
}

// NewLiquidityStore creates a new LiquidityStore backed by the given connection pool.
func NewLiquidityStore(pool *pgxpool.Pool) *LiquidityStore {
	return &LiquidityStore{pool: pool}
}

// UpsertPosition writes a provider's position, keyed by account.
func (s *LiquidityStore) UpsertPosition(ctx context.Context, pos domain.LiquidityPosition) error {
	const query = `
		INSERT INTO liquidity_positions (account, shares, deposited, withdrawn, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account) DO UPDATE SET
			shares = EXCLUDED.shares,
			deposited = EXCLUDED.deposited,
			withdrawn = EXCLUDED.withdrawn,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		pos.Account, pos.Shares, pos.Deposited, pos.Withdrawn, pos.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", pos.Account, err)
	}
	return nil
}

// GetPosition returns the position for an account, or domain.ErrNotFound.
func (s *LiquidityStore) GetPosition(ctx context.Context, account string) (domain.LiquidityPosition, error) {
	var pos domain.LiquidityPosition
	err := s.pool.QueryRow(ctx, `
		SELECT account, shares, deposited, withdrawn, updated_at
		FROM liquidity_positions WHERE account = $1`,
		account,
	).Scan(&pos.Account, &pos.Shares, &pos.Deposited, &pos.Withdrawn, &pos.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LiquidityPosition{}, domain.ErrNotFound
		}
		return domain.LiquidityPosition{}, fmt.Errorf("postgres: get position %s: %w", account, err)
	}
	return pos, nil
}

// SaveSnapshot writes the global ledger counters.
func (s *LiquidityStore) SaveSnapshot(ctx context.Context, snap domain.LedgerSnapshot) error {
	const query = `
		INSERT INTO ledger_snapshot (id, total_liquidity, total_shares, locked, on_loan, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			total_liquidity = EXCLUDED.total_liquidity,
			total_shares = EXCLUDED.total_shares,
			locked = EXCLUDED.locked,
			on_loan = EXCLUDED.on_loan,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		snap.TotalLiquidity, snap.TotalShares, snap.Locked, snap.OnLoan,
	)
	if err != nil {
		return fmt.Errorf("postgres: save ledger snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted global counters. A missing row means the
// ledger has never been written; an empty snapshot is returned.
func (s *LiquidityStore) LoadSnapshot(ctx context.Context) (domain.LedgerSnapshot, error) {
	var snap domain.LedgerSnapshot
	err := s.pool.QueryRow(ctx, `
		SELECT total_liquidity, total_shares, locked, on_loan
		FROM ledger_snapshot WHERE id = 1`,
	).Scan(&snap.TotalLiquidity, &snap.TotalShares, &snap.Locked, &snap.OnLoan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LedgerSnapshot{}, nil
		}
		return domain.LedgerSnapshot{}, fmt.Errorf("postgres: load ledger snapshot: %w", err)
	}
	return snap, nil
}

// ListPositions returns all provider positions ordered by account.
func (s *LiquidityStore) ListPositions(ctx context.Context, opts domain.ListOpts) ([]domain.LiquidityPosition, error) {
	query := `SELECT account, shares, deposited, withdrawn, updated_at
		FROM liquidity_positions ORDER BY account ASC`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.LiquidityPosition
	for rows.Next() {
		var pos domain.LiquidityPosition
		if err := rows.Scan(&pos.Account, &pos.Shares, &pos.Deposited, &pos.Withdrawn, &pos.UpdatedAt); err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

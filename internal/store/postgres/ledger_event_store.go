package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlayd/parlayd/internal/domain"
)

// LedgerEventStore implements domain.LedgerEventStore using PostgreSQL. The
// journal is append-only; rows are never updated or deleted.
type LedgerEventStore struct {
	pool *pgxpool.Pool
}

// NewLedgerEventStore creates a new LedgerEventStore backed by the given connection pool.
func NewLedgerEventStore(pool *pgxpool.Pool) *LedgerEventStore {
	return &LedgerEventStore{pool: pool}
}

// Insert appends one journal row.
func (s *LedgerEventStore) Insert(ctx context.Context, ev domain.LedgerEvent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_events (kind, account, round_id, amount, shares, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.Kind, ev.Account, ev.RoundID, ev.Amount, ev.Shares, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert ledger event: %w", err)
	}
	return nil
}

// ListByRound returns journal rows for a round in insertion order.
func (s *LedgerEventStore) ListByRound(ctx context.Context, roundID uint64, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	query := `SELECT id, kind, account, round_id, amount, shares, created_at
		FROM ledger_events WHERE round_id = $1 ORDER BY id ASC`
	args := []any{roundID}
	argIdx := 2

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
		return nil, fmt.Errorf("postgres: list ledger events by round: %w", err)
	}
	defer rows.Close()
	return scanLedgerEventRows(rows)
}

// ListByAccount returns journal rows for an account in insertion order.
func (s *LedgerEventStore) ListByAccount(ctx context.Context, account string, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	query := `SELECT id, kind, account, round_id, amount, shares, created_at
		FROM ledger_events WHERE account = $1 ORDER BY id ASC`
	args := []any{account}
	argIdx := 2

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
		return nil, fmt.Errorf("postgres: list ledger events by account: %w", err)
	}
	defer rows.Close()
	return scanLedgerEventRows(rows)
}

func scanLedgerEventRows(rows pgx.Rows) ([]domain.LedgerEvent, error) {
	var events []domain.LedgerEvent
	for rows.Next() {
		var ev domain.LedgerEvent
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Account, &ev.RoundID, &ev.Amount, &ev.Shares, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/parlayd/parlayd/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL. Legs are stored as a
// JSONB column; they are immutable after placement and always read together
// with the bet.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

const betSelectCols = `id, account, round_id, stake, stake_after_fee,
	total_allocated, borrowed, multiplier, multiplier_tier, legs,
	settled, claimed, payout, placed_at, claimed_at`

func scanBet(row pgx.Row) (*domain.Bet, error) {
	var (
		b        domain.Bet
		legsJSON []byte
	)
	err := row.Scan(
		&b.ID, &b.Account, &b.RoundID, &b.Stake, &b.StakeAfterFee,
		&b.TotalAllocated, &b.Borrowed, &b.Multiplier, &b.MultiplierTier,
		&legsJSON, &b.Settled, &b.Claimed, &b.Payout, &b.PlacedAt, &b.ClaimedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(legsJSON, &b.Legs); err != nil {
		return nil, fmt.Errorf("decode legs: %w", err)
	}
	return &b, nil
}

// Create inserts a new bet record.
func (s *BetStore) Create(ctx context.Context, bet *domain.Bet) error {
	legsJSON, err := json.Marshal(bet.Legs)
	if err != nil {
		return fmt.Errorf("postgres: encode bet legs: %w", err)
	}

	const query = `
		INSERT INTO bets (
			id, account, round_id, stake, stake_after_fee,
			total_allocated, borrowed, multiplier, multiplier_tier, legs,
			settled, claimed, payout, placed_at, claimed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)`

	_, err = s.pool.Exec(ctx, query,
		bet.ID, bet.Account, bet.RoundID, bet.Stake, bet.StakeAfterFee,
		bet.TotalAllocated, bet.Borrowed, bet.Multiplier, bet.MultiplierTier,
		legsJSON, bet.Settled, bet.Claimed, bet.Payout, bet.PlacedAt,
		bet.ClaimedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create bet %s: %w", bet.ID, err)
	}
	return nil
}

// MarkClaimed records the claim result for a bet.
func (s *BetStore) MarkClaimed(ctx context.Context, id string, payout uint64, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bets
		SET settled = TRUE, claimed = TRUE, payout = $2, claimed_at = $3
		WHERE id = $1`,
		id, payout, at,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark bet %s claimed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBetNotFound
	}
	return nil
}

// GetByID returns the bet with the given ID, or domain.ErrBetNotFound.
func (s *BetStore) GetByID(ctx context.Context, id string) (*domain.Bet, error) {
	query := `SELECT ` + betSelectCols + ` FROM bets WHERE id = $1`
	bet, err := scanBet(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBetNotFound
		}
		return nil, fmt.Errorf("postgres: get bet %s: %w", id, err)
	}
	return bet, nil
}

// ListByRound returns bets for a round in placement order, with pagination.
func (s *BetStore) ListByRound(ctx context.Context, roundID uint64, opts domain.ListOpts) ([]*domain.Bet, error) {
	query := `SELECT ` + betSelectCols + ` FROM bets WHERE round_id = $1 ORDER BY placed_at ASC`
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
		return nil, fmt.Errorf("postgres: list bets by round: %w", err)
	}
	defer rows.Close()
	return scanBetRows(rows)
}

// ListByAccount returns an account's bets newest first, with pagination.
func (s *BetStore) ListByAccount(ctx context.Context, account string, opts domain.ListOpts) ([]*domain.Bet, error) {
	query := `SELECT ` + betSelectCols + ` FROM bets WHERE account = $1 ORDER BY placed_at DESC`
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
		return nil, fmt.Errorf("postgres: list bets by account: %w", err)
	}
	defer rows.Close()
	return scanBetRows(rows)
}

func scanBetRows(rows pgx.Rows) ([]*domain.Bet, error) {
	var bets []*domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

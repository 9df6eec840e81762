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

// RoundStore implements domain.RoundStore using PostgreSQL. The per-event
// pools, deposits and locked odds are stored as a JSONB column since they are
// always read and written as a unit with the round.
type RoundStore struct {
	pool *pgxpool.Pool
}

// NewRoundStore creates a new RoundStore backed by the given connection pool.
func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

const roundSelectCols = `id, phase, events, bet_volume, seed_amount, borrowed,
	balance, owed_to_winners, winning_pools, losing_pools, total_claimed,
	total_paid_out, protocol_fee, season_reward, returned_to_ledger,
	ledger_locked, parlay_count, seeded_at, settled_at, finalized_at`

func scanRound(row pgx.Row) (*domain.Round, error) {
	var (
		r          domain.Round
		eventsJSON []byte
		seededAt   *time.Time
		settledAt  *time.Time
		finalized  *time.Time
	)
	err := row.Scan(
		&r.ID, &r.Phase, &eventsJSON, &r.BetVolume, &r.SeedAmount, &r.Borrowed,
		&r.Balance, &r.OwedToWinners, &r.WinningPools, &r.LosingPools,
		&r.TotalClaimed, &r.TotalPaidOut, &r.ProtocolFee, &r.SeasonReward,
		&r.ReturnedToLedger, &r.LedgerLocked, &r.ParlayCount,
		&seededAt, &settledAt, &finalized,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(eventsJSON, &r.Events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	r.SeededAt = timeVal(seededAt)
	r.SettledAt = timeVal(settledAt)
	r.FinalizedAt = timeVal(finalized)
	return &r, nil
}

// Upsert writes the full round record, inserting or replacing by round ID.
func (s *RoundStore) Upsert(ctx context.Context, round *domain.Round) error {
	eventsJSON, err := json.Marshal(round.Events)
	if err != nil {
		return fmt.Errorf("postgres: encode round events: %w", err)
	}

	const query = `
		INSERT INTO rounds (
			id, phase, events, bet_volume, seed_amount, borrowed,
			balance, owed_to_winners, winning_pools, losing_pools,
			total_claimed, total_paid_out, protocol_fee, season_reward,
			returned_to_ledger, ledger_locked, parlay_count,
			seeded_at, settled_at, finalized_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17,
			$18, $19, $20
		)
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase,
			events = EXCLUDED.events,
			bet_volume = EXCLUDED.bet_volume,
			seed_amount = EXCLUDED.seed_amount,
			borrowed = EXCLUDED.borrowed,
			balance = EXCLUDED.balance,
			owed_to_winners = EXCLUDED.owed_to_winners,
			winning_pools = EXCLUDED.winning_pools,
			losing_pools = EXCLUDED.losing_pools,
			total_claimed = EXCLUDED.total_claimed,
			total_paid_out = EXCLUDED.total_paid_out,
			protocol_fee = EXCLUDED.protocol_fee,
			season_reward = EXCLUDED.season_reward,
			returned_to_ledger = EXCLUDED.returned_to_ledger,
			ledger_locked = EXCLUDED.ledger_locked,
			parlay_count = EXCLUDED.parlay_count,
			seeded_at = EXCLUDED.seeded_at,
			settled_at = EXCLUDED.settled_at,
			finalized_at = EXCLUDED.finalized_at`

	_, err = s.pool.Exec(ctx, query,
		round.ID, round.Phase, eventsJSON, round.BetVolume, round.SeedAmount,
		round.Borrowed, round.Balance, round.OwedToWinners, round.WinningPools,
		round.LosingPools, round.TotalClaimed, round.TotalPaidOut,
		round.ProtocolFee, round.SeasonReward, round.ReturnedToLedger,
		round.LedgerLocked, round.ParlayCount,
		timePtr(round.SeededAt), timePtr(round.SettledAt), timePtr(round.FinalizedAt),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert round %d: %w", round.ID, err)
	}
	return nil
}

// GetByID returns the round with the given ID, or domain.ErrRoundNotFound.
func (s *RoundStore) GetByID(ctx context.Context, id uint64) (*domain.Round, error) {
	query := `SELECT ` + roundSelectCols + ` FROM rounds WHERE id = $1`
	round, err := scanRound(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoundNotFound
		}
		return nil, fmt.Errorf("postgres: get round %d: %w", id, err)
	}
	return round, nil
}

// ListRecent returns rounds ordered by ID descending, with pagination.
func (s *RoundStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]*domain.Round, error) {
	query := `SELECT ` + roundSelectCols + ` FROM rounds ORDER BY id DESC`
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
		return nil, fmt.Errorf("postgres: list recent rounds: %w", err)
	}
	defer rows.Close()
	return scanRoundRows(rows)
}

// ListFinalizedBefore returns revenue-finalized rounds whose finalization time
// is strictly before the given time, ordered oldest first (for archiving).
func (s *RoundStore) ListFinalizedBefore(ctx context.Context, before time.Time) ([]*domain.Round, error) {
	query := `SELECT ` + roundSelectCols + ` FROM rounds
		WHERE finalized_at IS NOT NULL AND finalized_at < $1
		ORDER BY finalized_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list finalized rounds before: %w", err)
	}
	defer rows.Close()
	return scanRoundRows(rows)
}

// Delete removes a round and its bets. Used after archiving to cold storage.
func (s *RoundStore) Delete(ctx context.Context, id uint64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin delete round %d: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM bets WHERE round_id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete bets for round %d: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rounds WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete round %d: %w", id, err)
	}
	return tx.Commit(ctx)
}

func scanRoundRows(rows pgx.Rows) ([]*domain.Round, error) {
	var rounds []*domain.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return *p
}

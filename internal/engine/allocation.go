package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/parlayd/parlayd/internal/domain"
)

// PlaceBet accepts a stake and a list of predictions, computes the locked
// parlay multiplier, and back-solves the per-leg pool deposits so that if
// every leg wins the realized payout matches the target derived from the
// locked odds. Deposits beyond the fee-adjusted stake are borrowed from the
// ledger; the ledger must attest it can cover the excess before anything is
// written.
func (e *Engine) PlaceBet(account string, roundID uint64, stake uint64, legs []LegInput) (domain.Bet, error) {
	if account == "" {
		return domain.Bet{}, domain.ErrUnauthorized
	}
	if stake == 0 {
		return domain.Bet{}, domain.ErrInvalidStake
	}
	if stake > e.cfg.MaxStake {
		return domain.Bet{}, domain.ErrStakeTooLarge
	}

	rs, err := e.roundByID(roundID)
	if err != nil {
		return domain.Bet{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	r := rs.round
	if !r.Seeded() {
		return domain.Bet{}, domain.ErrRoundNotSeeded
	}
	if r.Settled() {
		return domain.Bet{}, domain.ErrRoundSettled
	}
	if err := validateLegs(r, legs); err != nil {
		return domain.Bet{}, err
	}

	fee, err := domain.ApplyRate(stake, e.cfg.FeeRate)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("engine: fee: %w", err)
	}
	stakeAfterFee := stake - fee
	if stakeAfterFee == 0 {
		return domain.Bet{}, domain.ErrInvalidStake
	}

	// The multiplier is computed from the state at this moment and locked
	// onto the bet. The parlay counter increments after, so this bettor
	// sees the tier as it stood when they placed.
	quote := e.parlayMultiplier(r, legs)

	allocs, totalAlloc, err := e.allocateLegs(r, legs, stakeAfterFee, quote.Multiplier)
	if err != nil {
		return domain.Bet{}, err
	}

	var borrowed uint64
	if totalAlloc > stakeAfterFee {
		borrowed = totalAlloc - stakeAfterFee
		if err := e.ledger.Borrow(borrowed); err != nil {
			return domain.Bet{}, fmt.Errorf("engine: borrow allocation top-up: %w", err)
		}
	}

	// Preconditions all passed; mutate.
	betLegs := make([]domain.BetLeg, len(legs))
	for i, leg := range legs {
		ev := &r.Events[leg.EventIndex]
		ev.Pool.Balances[leg.Predicted] += allocs[i]
		ev.BetDeposits[leg.Predicted] += allocs[i]
		betLegs[i] = domain.BetLeg{
			EventIndex: leg.EventIndex,
			Predicted:  leg.Predicted,
			Allocation: allocs[i],
		}
	}

	r.BetVolume += stake
	r.Borrowed += borrowed
	r.Balance += stakeAfterFee + borrowed
	r.ProtocolFee += fee
	if len(legs) > 1 {
		r.ParlayCount++
	}

	e.opMu.Lock()
	e.operatorFees += fee
	e.opMu.Unlock()

	bet := &domain.Bet{
		ID:             uuid.NewString(),
		Account:        account,
		RoundID:        roundID,
		Stake:          stake,
		StakeAfterFee:  stakeAfterFee,
		TotalAllocated: totalAlloc,
		Borrowed:       borrowed,
		Multiplier:     quote.Multiplier,
		MultiplierTier: quote.Tier,
		Legs:           betLegs,
		PlacedAt:       time.Now().UTC(),
	}
	rs.bets[bet.ID] = bet

	e.mu.Lock()
	e.bets[bet.ID] = rs
	e.mu.Unlock()

	e.logger.Info("bet placed",
		slog.String("bet_id", bet.ID),
		slog.String("account", account),
		slog.Uint64("round_id", roundID),
		slog.Uint64("stake", stake),
		slog.Int("legs", len(legs)),
		slog.Uint64("multiplier", quote.Multiplier),
		slog.Uint64("borrowed", borrowed),
	)
	return copyBet(bet), nil
}

// allocateLegs sizes the per-leg pool deposits. The target payout is split
// evenly across legs ("equal contribution") and each leg's deposit is
// back-solved from its locked odds, so no single leg dominates the realized
// payout and the mapping from locked odds to guaranteed payout stays exact.
// Every multiplication is overflow-checked; an overflowing bet is rejected
// outright.
func (e *Engine) allocateLegs(r *domain.Round, legs []LegInput, stakeAfterFee, multiplier uint64) ([]uint64, uint64, error) {
	// Base target: fee-adjusted stake times the product of the legs'
	// locked odds.
	target := stakeAfterFee
	for _, leg := range legs {
		odds := r.Events[leg.EventIndex].Odds.Odds[leg.Predicted]
		var err error
		target, err = domain.MulDiv(target, odds, domain.FixedScale)
		if err != nil {
			return nil, 0, fmt.Errorf("engine: odds product: %w", err)
		}
	}

	// Apply the locked parlay multiplier.
	target, err := domain.MulDiv(target, multiplier, domain.FixedScale)
	if err != nil {
		return nil, 0, fmt.Errorf("engine: apply multiplier: %w", err)
	}

	perLeg := target / uint64(len(legs))
	allocs := make([]uint64, len(legs))
	var total uint64
	for i, leg := range legs {
		odds := r.Events[leg.EventIndex].Odds.Odds[leg.Predicted]
		alloc, err := domain.MulDiv(perLeg, domain.FixedScale, odds)
		if err != nil {
			return nil, 0, fmt.Errorf("engine: back-solve leg %d: %w", i, err)
		}
		allocs[i] = alloc
		total, err = domain.CheckedAdd(total, alloc)
		if err != nil {
			return nil, 0, fmt.Errorf("engine: allocation sum: %w", err)
		}
	}
	return allocs, total, nil
}

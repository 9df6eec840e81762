package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/parlayd/parlayd/internal/domain"
)

// SettleRound records the realized outcome of every event and computes the
// round's total liability to winners up front, before any claim runs. The
// aggregate figure is derived from the bettor deposits into each winning
// pool times the locked odds, so it equals the sum of individual claim base
// payouts exactly — the ledger can never be drained beyond what settlement
// predicted.
func (e *Engine) SettleRound(roundID uint64, outcomes []domain.Outcome) (domain.Round, error) {
	rs, err := e.roundByID(roundID)
	if err != nil {
		return domain.Round{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	r := rs.round
	if !r.Seeded() {
		return domain.Round{}, domain.ErrRoundNotSeeded
	}
	if r.Settled() {
		return domain.Round{}, domain.ErrRoundSettled
	}
	if len(outcomes) != len(r.Events) {
		return domain.Round{}, fmt.Errorf("engine: want %d outcomes, got %d: %w",
			len(r.Events), len(outcomes), domain.ErrInvalidOutcome)
	}
	for _, o := range outcomes {
		if !o.Valid() {
			return domain.Round{}, domain.ErrInvalidOutcome
		}
	}

	var owed, winning, losing uint64
	for i := range r.Events {
		ev := &r.Events[i]
		result := outcomes[i]
		ev.Result = result
		ev.Settled = true

		winPool := ev.Pool.Balances[result]
		winning += winPool
		losing += ev.Pool.Total() - winPool

		legOwed, err := domain.MulDiv(ev.BetDeposits[result], ev.Odds.Odds[result], domain.FixedScale)
		if err != nil {
			return domain.Round{}, fmt.Errorf("engine: owed for event %d: %w", i, err)
		}
		owed, err = domain.CheckedAdd(owed, legOwed)
		if err != nil {
			return domain.Round{}, fmt.Errorf("engine: owed total: %w", err)
		}
	}

	r.OwedToWinners = owed
	r.WinningPools = winning
	r.LosingPools = losing
	r.Phase = domain.RoundPhaseSettled
	r.SettledAt = time.Now().UTC()

	// Reserve the part of the liability the round's own balance cannot
	// cover, so provider withdrawals cannot double-spend it before the
	// claims arrive.
	if owed > r.Balance {
		r.LedgerLocked = owed - r.Balance
		e.ledger.Lock(r.LedgerLocked)
	}

	e.standings.recordRound(r)

	e.logger.Info("round settled",
		slog.Uint64("round_id", roundID),
		slog.Uint64("owed_to_winners", owed),
		slog.Uint64("winning_pools", winning),
		slog.Uint64("losing_pools", losing),
	)
	return copyRound(r), nil
}

// Claim pays out a single bet. The parlay is all-or-nothing: one wrong leg
// and the payout is zero. A winning payout is the sum of leg allocation
// times locked odds, times the multiplier locked at placement — never the
// live recomputed one — clamped to the per-bet maximum, and subject to the
// round's cumulative payout cap (first come, first served among claimants).
// minPayout guards against slippage; on any failure nothing changes.
func (e *Engine) Claim(betID, account string, minPayout uint64) (uint64, error) {
	rs, err := e.betByID(betID)
	if err != nil {
		return 0, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	bet := rs.bets[betID]
	r := rs.round

	if bet.Claimed {
		return 0, domain.ErrAlreadyClaimed
	}
	if !r.Settled() {
		return 0, domain.ErrRoundNotSettled
	}
	if bet.Account != account {
		return 0, domain.ErrNotBetOwner
	}

	// All-or-nothing: a single wrong leg loses the whole bet.
	won := true
	for _, leg := range bet.Legs {
		if r.Events[leg.EventIndex].Result != leg.Predicted {
			won = false
			break
		}
	}
	now := time.Now().UTC()
	if !won {
		bet.Claimed = true
		bet.Settled = true
		bet.Payout = 0
		bet.ClaimedAt = &now
		e.logger.Info("losing bet claimed",
			slog.String("bet_id", betID),
			slog.Uint64("round_id", r.ID),
		)
		return 0, nil
	}

	base, final, err := e.betPayout(r, bet)
	if err != nil {
		return 0, err
	}
	if final < minPayout {
		return 0, domain.ErrSlippage
	}
	if r.TotalPaidOut+final > e.cfg.MaxPayoutPerRound {
		return 0, domain.ErrRoundPayoutCap
	}

	// Pay from the round's own balance first; pull any shortfall from the
	// ledger, releasing the matching exposure reservation.
	fromBalance := final
	if fromBalance > r.Balance {
		fromBalance = r.Balance
	}
	shortfall := final - fromBalance
	if shortfall > 0 {
		release := shortfall
		if release > r.LedgerLocked {
			release = r.LedgerLocked
		}
		e.ledger.Unlock(release)
		if err := e.ledger.PayWinner(shortfall); err != nil {
			e.ledger.Lock(release)
			return 0, fmt.Errorf("engine: pay claim shortfall: %w", err)
		}
		r.LedgerLocked -= release
	}

	r.Balance -= fromBalance
	r.TotalClaimed += base
	r.TotalPaidOut += final

	bet.Claimed = true
	bet.Settled = true
	bet.Payout = final
	bet.ClaimedAt = &now

	e.logger.Info("bet claimed",
		slog.String("bet_id", betID),
		slog.String("account", account),
		slog.Uint64("round_id", r.ID),
		slog.Uint64("base_payout", base),
		slog.Uint64("final_payout", final),
	)
	return final, nil
}

// betPayout computes a winning bet's base and final payout from its frozen
// legs and locked multiplier.
func (e *Engine) betPayout(r *domain.Round, bet *domain.Bet) (base, final uint64, err error) {
	for _, leg := range bet.Legs {
		odds := r.Events[leg.EventIndex].Odds.Odds[leg.Predicted]
		legPayout, merr := domain.MulDiv(leg.Allocation, odds, domain.FixedScale)
		if merr != nil {
			return 0, 0, fmt.Errorf("engine: leg payout: %w", merr)
		}
		base, merr = domain.CheckedAdd(base, legPayout)
		if merr != nil {
			return 0, 0, fmt.Errorf("engine: base payout: %w", merr)
		}
	}
	final, err = domain.MulDiv(base, bet.Multiplier, domain.FixedScale)
	if err != nil {
		return 0, 0, fmt.Errorf("engine: final payout: %w", err)
	}
	if final > e.cfg.MaxPayoutPerBet {
		final = e.cfg.MaxPayoutPerBet
	}
	return base, final, nil
}

// PreviewBetPayout reports what a claim on the bet would currently yield.
// Requires a settled round; does not mutate anything.
func (e *Engine) PreviewBetPayout(betID string) (domain.PayoutPreview, error) {
	rs, err := e.betByID(betID)
	if err != nil {
		return domain.PayoutPreview{}, err
	}

	rs.mu.RLock()
	defer rs.mu.RUnlock()

	bet := rs.bets[betID]
	r := rs.round
	if !r.Settled() {
		return domain.PayoutPreview{}, domain.ErrRoundNotSettled
	}

	for _, leg := range bet.Legs {
		if r.Events[leg.EventIndex].Result != leg.Predicted {
			return domain.PayoutPreview{}, nil
		}
	}
	base, final, err := e.betPayout(r, bet)
	if err != nil {
		return domain.PayoutPreview{}, err
	}
	return domain.PayoutPreview{Won: true, BasePayout: base, FinalPayout: final}, nil
}

// FinalizeRevenue closes the round's books: borrowed capital goes back to
// the ledger first, then the season reward carve-out is taken from user
// deposits, and whatever remains is the ledger's profit — or its loss, when
// payouts exceeded inflow and it receives less than it lent. Callable once,
// any time after settlement; it does not wait for all claims.
func (e *Engine) FinalizeRevenue(roundID uint64) (domain.Round, error) {
	rs, err := e.roundByID(roundID)
	if err != nil {
		return domain.Round{}, err
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	r := rs.round
	if !r.Settled() {
		return domain.Round{}, domain.ErrRoundNotSettled
	}
	if r.Finalized() {
		return domain.Round{}, domain.ErrRevenueFinalized
	}

	// Any exposure still reserved is released; unclaimed winners from here
	// on draw against the general pool.
	if r.LedgerLocked > 0 {
		e.ledger.Unlock(r.LedgerLocked)
		r.LedgerLocked = 0
	}

	lent := r.SeedAmount + r.Borrowed

	// Priority queue over the round balance: borrowed capital first, then
	// the season share, then residual profit.
	var season uint64
	if r.Balance > lent {
		userDeposits := r.BetVolume - r.ProtocolFee
		carve, err := domain.ApplyRate(userDeposits, e.cfg.SeasonRewardRate)
		if err != nil {
			return domain.Round{}, fmt.Errorf("engine: season carve: %w", err)
		}
		if remaining := r.Balance - lent; carve > remaining {
			carve = remaining
		}
		season = carve
	}

	returned := r.Balance - season
	e.ledger.Return(lent, returned)

	e.opMu.Lock()
	e.seasonPool += season
	e.opMu.Unlock()

	r.SeasonReward = season
	r.ReturnedToLedger = returned
	r.Balance = 0
	r.Phase = domain.RoundPhaseRevenueFinalized
	r.FinalizedAt = time.Now().UTC()

	e.logger.Info("revenue finalized",
		slog.Uint64("round_id", roundID),
		slog.Uint64("lent", lent),
		slog.Uint64("returned", returned),
		slog.Uint64("season_reward", season),
	)
	return copyRound(r), nil
}

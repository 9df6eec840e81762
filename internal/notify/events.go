package notify

import (
	"context"
	"fmt"

	"github.com/parlayd/parlayd/internal/domain"
)

// Event types accepted by the notifier's filter list.
const (
	EventRoundSettled     = "round.settled"
	EventRevenueFinalized = "round.finalized"
	EventLargeClaim       = "claim.large"
	EventLiquidityLow     = "liquidity.low"
)

// formatAmount renders a smallest-unit amount with a fixed-point decimal, two
// places, matching the FixedScale convention used for rates.
func formatAmount(amount uint64) string {
	return fmt.Sprintf("%d.%04d", amount/domain.FixedScale, amount%domain.FixedScale)
}

// RoundSettled notifies operators that settlement has locked in a round's
// liability.
func (n *Notifier) RoundSettled(ctx context.Context, round *domain.Round) error {
	title := fmt.Sprintf("Round %d settled", round.ID)
	message := fmt.Sprintf(
		"bet volume %s, owed to winners %s, winning pools %s, losing pools %s",
		formatAmount(round.BetVolume),
		formatAmount(round.OwedToWinners),
		formatAmount(round.WinningPools),
		formatAmount(round.LosingPools),
	)
	return n.Notify(ctx, EventRoundSettled, title, message)
}

// RevenueFinalized notifies operators of the round's final accounting.
func (n *Notifier) RevenueFinalized(ctx context.Context, round *domain.Round) error {
	title := fmt.Sprintf("Round %d revenue finalized", round.ID)
	message := fmt.Sprintf(
		"returned to ledger, season reward %s, protocol fee %s, total paid out %s",
		formatAmount(round.SeasonReward),
		formatAmount(round.ProtocolFee),
		formatAmount(round.TotalPaidOut),
	)
	return n.Notify(ctx, EventRevenueFinalized, title, message)
}

// LargeClaim notifies operators when a single claim crosses the configured
// threshold.
func (n *Notifier) LargeClaim(ctx context.Context, bet *domain.Bet) error {
	title := fmt.Sprintf("Large claim on round %d", bet.RoundID)
	message := fmt.Sprintf(
		"bet %s by %s paid %s at %d legs, multiplier %s",
		bet.ID, bet.Account,
		formatAmount(bet.Payout),
		len(bet.Legs),
		formatAmount(bet.Multiplier),
	)
	return n.Notify(ctx, EventLargeClaim, title, message)
}

// LiquidityLow notifies operators that the ledger's unreserved liquidity has
// fallen below the configured floor.
func (n *Notifier) LiquidityLow(ctx context.Context, snap domain.LedgerSnapshot) error {
	title := "Liquidity running low"
	message := fmt.Sprintf(
		"available %s of %s total, %s locked, %s on loan",
		formatAmount(snap.Available()),
		formatAmount(snap.TotalLiquidity),
		formatAmount(snap.Locked),
		formatAmount(snap.OnLoan),
	)
	return n.Notify(ctx, EventLiquidityLow, title, message)
}

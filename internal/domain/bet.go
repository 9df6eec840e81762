package domain

import "time"

// BetLeg is one (event, predicted outcome) component of a bet together with
// the pool deposit the allocation engine back-solved for it.
type BetLeg struct {
	EventIndex int
	Predicted  Outcome
	Allocation uint64
}

// Bet is a wager on one or more events of a single round. The record is
// immutable once settlement begins; in particular Multiplier is frozen at
// placement and is the sole authority at claim time.
type Bet struct {
	ID             string // UUID
	Account        string
	RoundID        uint64
	Stake          uint64 // gross stake
	StakeAfterFee  uint64
	TotalAllocated uint64 // sum of leg allocations
	Borrowed       uint64 // ledger capital advanced to cover the allocation
	Multiplier     uint64 // locked parlay multiplier, FixedScale units
	MultiplierTier int    // count tier captured at placement
	Legs           []BetLeg
	Settled        bool
	Claimed        bool
	Payout         uint64 // final payout once claimed
	PlacedAt       time.Time
	ClaimedAt      *time.Time
}

// IsParlay reports whether the bet has more than one leg.
func (b *Bet) IsParlay() bool {
	return len(b.Legs) > 1
}

// MultiplierQuote is the result of previewing the parlay multiplier for a
// hypothetical bet at the current moment of the round.
type MultiplierQuote struct {
	Multiplier      uint64 // FixedScale units
	Tier            int    // 0-based count tier the next parlay would fall in
	RemainingInTier uint64 // parlays left before the tier decays
	Gated           bool   // true when the imbalance gate clamped the value
}

// PayoutPreview is the result of previewing a bet's payout after settlement.
type PayoutPreview struct {
	Won         bool
	BasePayout  uint64 // sum of leg allocation x locked odds
	FinalPayout uint64 // base x locked multiplier, capped per bet
}

package domain

import "time"

// FixedScale is the denominator for all fixed-point quantities: odds,
// multipliers, fee rates and imbalance ratios. 10_000 means 1.40x odds are
// stored as 14_000 and a 2% fee as 200.
const FixedScale uint64 = 10_000

// RoundPhase is the lifecycle state of a round. Transitions are
// one-directional: seeded -> accepting_bets -> settled -> revenue_finalized.
type RoundPhase string

const (
	RoundPhaseCreated          RoundPhase = "created"
	RoundPhaseAcceptingBets    RoundPhase = "accepting_bets"
	RoundPhaseSettled          RoundPhase = "settled"
	RoundPhaseRevenueFinalized RoundPhase = "revenue_finalized"
)

// Fixture names the two entities competing in one event of a round.
type Fixture struct {
	Home string
	Away string
}

// EventPool holds the three outcome accumulators for one event. Balances only
// grow: seeding and accepted bet legs deposit into them, settlement reads
// them, nothing withdraws from them.
type EventPool struct {
	Balances [OutcomeCount]uint64
}

// Total returns the sum of the three outcome balances.
func (p EventPool) Total() uint64 {
	return p.Balances[OutcomeHome] + p.Balances[OutcomeAway] + p.Balances[OutcomeDraw]
}

// Largest returns the biggest single outcome balance.
func (p EventPool) Largest() uint64 {
	max := p.Balances[0]
	for _, b := range p.Balances[1:] {
		if b > max {
			max = b
		}
	}
	return max
}

// Imbalance returns largest/total in FixedScale units, or 0 for an empty
// pool. A perfectly balanced three-way pool reports ~3_333.
func (p EventPool) Imbalance() uint64 {
	total := p.Total()
	if total == 0 {
		return 0
	}
	return p.Largest() * FixedScale / total
}

// LockedOdds are the three fixed payout multipliers for one event, written
// exactly once immediately after seeding. Once Locked is true the values
// never change for the life of the round.
type LockedOdds struct {
	Odds   [OutcomeCount]uint64 // FixedScale units, e.g. 14_000 = 1.40x
	Locked bool
}

// Event is the per-event slice of round state: the fixture, the outcome
// pools, the locked odds and, after settlement, the realized result.
// BetDeposits mirrors Pool but counts only bettor allocations, excluding the
// seed capital, so settlement can compute the exact claimable liability.
type Event struct {
	Fixture     Fixture
	Pool        EventPool
	BetDeposits [OutcomeCount]uint64
	Odds        LockedOdds
	Result      Outcome
	Settled     bool
}

// Round is the aggregate accounting record for one betting round. All
// mutation is serialized behind the engine's per-round lock.
type Round struct {
	ID     uint64
	Phase  RoundPhase
	Events []Event

	// Accounting accumulators.
	BetVolume        uint64 // gross stakes accepted
	SeedAmount       uint64 // capital borrowed from the ledger for seeding
	Borrowed         uint64 // ledger capital borrowed for allocation balancing
	Balance          uint64 // funds currently held for the round
	OwedToWinners    uint64 // computed once at settlement, before any claim
	WinningPools     uint64 // sum of winning outcome pools, set at settlement
	LosingPools      uint64 // sum of losing outcome pools, set at settlement
	TotalClaimed     uint64 // cumulative base payouts claimed
	TotalPaidOut     uint64 // cumulative final payouts (bonuses included)
	ProtocolFee      uint64 // fees collected from stakes
	SeasonReward     uint64 // season carve-out, set at revenue finalization
	ReturnedToLedger uint64 // capital handed back at revenue finalization
	LedgerLocked     uint64 // exposure currently reserved on the ledger
	ParlayCount      uint64 // multi-leg bets placed so far; drives tier decay
	SeededAt      time.Time
	SettledAt     time.Time
	FinalizedAt   time.Time
}

// Seeded reports whether the round has been seeded and its odds locked.
func (r *Round) Seeded() bool {
	return r.Phase != RoundPhaseCreated
}

// Settled reports whether outcomes have been recorded for the round.
func (r *Round) Settled() bool {
	return r.Phase == RoundPhaseSettled || r.Phase == RoundPhaseRevenueFinalized
}

// Finalized reports whether revenue has been finalized for the round.
func (r *Round) Finalized() bool {
	return r.Phase == RoundPhaseRevenueFinalized
}

// OddsTriple is a snapshot of one event's locked odds for read queries.
type OddsTriple struct {
	Home uint64
	Away uint64
	Draw uint64
}

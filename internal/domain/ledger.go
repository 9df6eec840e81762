package domain

import "time"

// LiquidityPosition is one provider's lifetime accounting in the shared
// liquidity ledger.
type LiquidityPosition struct {
	Account   string
	Deposited uint64 // lifetime deposits
	Withdrawn uint64 // lifetime withdrawals
	Shares    uint64 // current share count
	UpdatedAt time.Time
}

// LedgerSnapshot is a point-in-time copy of the global ledger counters,
// served to read-only queries without holding the ledger lock.
type LedgerSnapshot struct {
	TotalLiquidity uint64
	TotalShares    uint64
	Locked         uint64 // reserved against pending settlement exposure
	OnLoan         uint64 // capital borrowed out for seeding and allocation
}

// Available returns the liquidity not reserved against pending exposure.
// Deposits into rounds and withdrawals are checked against this figure,
// never against the total.
func (s LedgerSnapshot) Available() uint64 {
	if s.Locked > s.TotalLiquidity {
		return 0
	}
	return s.TotalLiquidity - s.Locked
}

// LedgerEventKind classifies rows in the append-only ledger journal.
type LedgerEventKind string

const (
	LedgerEventDeposit    LedgerEventKind = "deposit"
	LedgerEventWithdraw   LedgerEventKind = "withdraw"
	LedgerEventBorrow     LedgerEventKind = "borrow"
	LedgerEventReturn     LedgerEventKind = "return"
	LedgerEventPayout     LedgerEventKind = "payout"
	LedgerEventFee        LedgerEventKind = "fee"
	LedgerEventSeasonPool LedgerEventKind = "season_pool"
)

// LedgerEvent is one journal row describing a ledger balance movement.
type LedgerEvent struct {
	ID        int64
	Kind      LedgerEventKind
	Account   string // empty for round-level movements
	RoundID   uint64 // zero for pure provider movements
	Amount    uint64
	Shares    uint64 // minted or burned, when applicable
	CreatedAt time.Time
}

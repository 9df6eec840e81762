// Package ledger implements the shared liquidity pool that seeds rounds,
// absorbs losing bets and pays winners. Depositors own the pool
// proportionally via shares; capital advanced to rounds is tracked as
// on-loan and must be reconciled through Return.
package ledger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parlayd/parlayd/internal/domain"
)

// Config holds the ledger's tunable parameters.
type Config struct {
	// WithdrawFeeRate is deducted from every withdrawal and stays in the
	// pool, FixedScale units.
	WithdrawFeeRate uint64
	// MinLiquidity is permanently locked out of the first deposit so the
	// pool can never be fully drained back to a zero-share state.
	MinLiquidity uint64
}

// Ledger is the single shared capital pool. All mutating operations are
// serialized behind one mutex; Snapshot and Position take a read lock and
// serve a consistent copy.
type Ledger struct {
	mu sync.RWMutex

	total  uint64 // pooled liquidity currently held
	shares uint64 // total shares outstanding
	locked uint64 // reserved against pending settlement exposure
	onLoan uint64 // capital advanced to rounds, expected back

	positions map[string]*domain.LiquidityPosition

	cfg    Config
	logger *slog.Logger
}

// New creates an empty ledger.
func New(cfg Config, logger *slog.Logger) *Ledger {
	return &Ledger{
		positions: make(map[string]*domain.LiquidityPosition),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "ledger")),
	}
}

// Restore rebuilds ledger state from a persisted snapshot and positions.
// Intended for process start, before any operation runs.
func (l *Ledger) Restore(snap domain.LedgerSnapshot, positions []domain.LiquidityPosition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total = snap.TotalLiquidity
	l.shares = snap.TotalShares
	l.locked = snap.Locked
	l.onLoan = snap.OnLoan
	for i := range positions {
		p := positions[i]
		l.positions[p.Account] = &p
	}
}

// Deposit adds amount to the pool and mints proportional shares for account.
// The first depositor seeds the share supply: their minted shares equal the
// deposit minus MinLiquidity, which stays in the pool unowned so the share
// ratio is never undefined again.
func (l *Ledger) Deposit(account string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, domain.ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var minted uint64
	if l.shares == 0 {
		if amount <= l.cfg.MinLiquidity {
			return 0, fmt.Errorf("ledger: first deposit must exceed minimum liquidity %d: %w",
				l.cfg.MinLiquidity, domain.ErrInvalidAmount)
		}
		minted = amount - l.cfg.MinLiquidity
		l.shares = amount // MinLiquidity worth of shares stays unowned
	} else {
		var err error
		minted, err = domain.MulDiv(amount, l.shares, l.total)
		if err != nil {
			return 0, fmt.Errorf("ledger: mint shares: %w", err)
		}
		if minted == 0 {
			return 0, fmt.Errorf("ledger: deposit too small to mint a share: %w", domain.ErrInvalidAmount)
		}
		l.shares += minted
	}
	l.total += amount

	pos := l.position(account)
	pos.Deposited += amount
	pos.Shares += minted
	pos.UpdatedAt = time.Now().UTC()

	l.logger.Info("liquidity deposited",
		slog.String("account", account),
		slog.Uint64("amount", amount),
		slog.Uint64("shares", minted),
	)
	return minted, nil
}

// Withdraw burns shares and returns the proportional value minus the
// withdrawal fee, which stays in the pool. Availability is checked against
// unlocked liquidity only.
func (l *Ledger) Withdraw(account string, shares uint64) (uint64, error) {
	if shares == 0 {
		return 0, domain.ErrInvalidShares
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[account]
	if !ok || pos.Shares < shares {
		return 0, domain.ErrInvalidShares
	}

	gross, err := domain.MulDiv(shares, l.total, l.shares)
	if err != nil {
		return 0, fmt.Errorf("ledger: share value: %w", err)
	}
	if gross > l.availableLocked() {
		return 0, domain.ErrInsufficientLiquidity
	}

	fee, err := domain.ApplyRate(gross, l.cfg.WithdrawFeeRate)
	if err != nil {
		return 0, fmt.Errorf("ledger: withdraw fee: %w", err)
	}
	paid := gross - fee

	l.shares -= shares
	l.total -= paid // the fee portion never leaves the pool

	pos.Shares -= shares
	pos.Withdrawn += paid
	pos.UpdatedAt = time.Now().UTC()

	l.logger.Info("liquidity withdrawn",
		slog.String("account", account),
		slog.Uint64("shares", shares),
		slog.Uint64("paid", paid),
		slog.Uint64("fee", fee),
	)
	return paid, nil
}

// CanCover reports whether amount can be debited from unlocked liquidity.
func (l *Ledger) CanCover(amount uint64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return amount <= l.availableLocked()
}

// Borrow advances amount to a round (seeding or allocation balancing) and
// records it as on-loan. Fails without mutation when unlocked liquidity
// cannot cover it.
func (l *Ledger) Borrow(amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.availableLocked() {
		return domain.ErrInsufficientLiquidity
	}
	l.total -= amount
	l.onLoan += amount
	return nil
}

// Return reconciles lent capital: lent comes off the on-loan counter and
// returned is added back to the pool. A shortfall (returned < lent) is the
// loss the pool absorbs; an excess is round profit accruing to the pool.
func (l *Ledger) Return(lent, returned uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lent > l.onLoan {
		lent = l.onLoan
	}
	l.onLoan -= lent
	l.total += returned
}

// PayWinner debits amount to cover a claim shortfall. Unlike Borrow this
// capital leaves the system; it is not expected back.
func (l *Ledger) PayWinner(amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.availableLocked() {
		return domain.ErrInsufficientLiquidity
	}
	l.total -= amount
	return nil
}

// Lock reserves amount against pending settlement exposure so withdrawals
// cannot double-spend capital already promised to winners.
func (l *Ledger) Lock(amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked += amount
}

// Unlock releases a previous reservation.
func (l *Ledger) Unlock(amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.locked {
		amount = l.locked
	}
	l.locked -= amount
}

// Snapshot returns a copy of the global counters.
func (l *Ledger) Snapshot() domain.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return domain.LedgerSnapshot{
		TotalLiquidity: l.total,
		TotalShares:    l.shares,
		Locked:         l.locked,
		OnLoan:         l.onLoan,
	}
}

// Position returns a copy of the account's position and the current value of
// its shares.
func (l *Ledger) Position(account string) (domain.LiquidityPosition, uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.positions[account]
	if !ok {
		return domain.LiquidityPosition{}, 0, domain.ErrNotFound
	}
	value := uint64(0)
	if l.shares > 0 {
		v, err := domain.MulDiv(pos.Shares, l.total, l.shares)
		if err != nil {
			return domain.LiquidityPosition{}, 0, fmt.Errorf("ledger: share value: %w", err)
		}
		value = v
	}
	return *pos, value, nil
}

// Positions returns copies of every provider position.
func (l *Ledger) Positions() []domain.LiquidityPosition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.LiquidityPosition, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	return out
}

// position returns the mutable position for account, creating it if needed.
// Callers must hold the write lock.
func (l *Ledger) position(account string) *domain.LiquidityPosition {
	pos, ok := l.positions[account]
	if !ok {
		pos = &domain.LiquidityPosition{Account: account}
		l.positions[account] = pos
	}
	return pos
}

// availableLocked returns unlocked liquidity. Callers must hold at least a
// read lock.
func (l *Ledger) availableLocked() uint64 {
	if l.locked > l.total {
		return 0
	}
	return l.total - l.locked
}

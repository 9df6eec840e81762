package ledger

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parlayd/parlayd/internal/domain"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	return New(Config{WithdrawFeeRate: 100, MinLiquidity: 1_000},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFirstDepositLocksMinimum(t *testing.T) {
	l := newTestLedger(t)

	shares, err := l.Deposit("alice", 100_000)
	require.NoError(t, err)
	require.Equal(t, uint64(99_000), shares, "first deposit mints amount minus the locked minimum")

	snap := l.Snapshot()
	require.Equal(t, uint64(100_000), snap.TotalLiquidity)
	require.Equal(t, uint64(100_000), snap.TotalShares)
}

func TestFirstDepositBelowMinimumRejected(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Deposit("alice", 1_000)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	require.Zero(t, l.Snapshot().TotalLiquidity)
}

func TestDepositZeroRejected(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Deposit("alice", 0)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

// With no borrow activity, every provider's share value must track their
// fair proportion of the pool at every step.
func TestShareInvariantAcrossDepositsAndWithdrawals(t *testing.T) {
	l := newTestLedger(t)

	aliceShares, err := l.Deposit("alice", 1_000_000)
	require.NoError(t, err)
	bobShares, err := l.Deposit("bob", 500_000)
	require.NoError(t, err)

	check := func() {
		snap := l.Snapshot()
		for _, tc := range []struct {
			account string
			shares  uint64
		}{{"alice", aliceShares}, {"bob", bobShares}} {
			pos, value, err := l.Position(tc.account)
			require.NoError(t, err)
			require.Equal(t, tc.shares, pos.Shares)
			want, err := domain.MulDiv(tc.shares, snap.TotalLiquidity, snap.TotalShares)
			require.NoError(t, err)
			require.Equal(t, want, value)
		}
	}
	check()

	// Bob's deposit at a 1:1 ratio mints share-for-share.
	require.Equal(t, uint64(500_000), bobShares)

	paid, err := l.Withdraw("bob", 200_000)
	require.NoError(t, err)
	// 200_000 gross minus the 1% withdrawal fee, which stays in the pool.
	require.Equal(t, uint64(198_000), paid)
	bobShares -= 200_000
	check()

	// The retained fee dilutes positively: alice's value strictly grew.
	_, aliceValue, err := l.Position("alice")
	require.NoError(t, err)
	require.Greater(t, aliceValue, uint64(1_000_000))
}

func TestWithdrawMoreSharesThanOwnedRejected(t *testing.T) {
	l := newTestLedger(t)
	shares, err := l.Deposit("alice", 100_000)
	require.NoError(t, err)

	_, err = l.Withdraw("alice", shares+1)
	require.ErrorIs(t, err, domain.ErrInvalidShares)
	_, err = l.Withdraw("bob", 10)
	require.ErrorIs(t, err, domain.ErrInvalidShares)
}

// Withdrawals check against unlocked liquidity so capital promised to
// pending settlements cannot be double-spent.
func TestWithdrawBlockedByLockedLiquidity(t *testing.T) {
	l := newTestLedger(t)
	shares, err := l.Deposit("alice", 100_000)
	require.NoError(t, err)

	l.Lock(95_000)
	_, err = l.Withdraw("alice", shares)
	require.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	l.Unlock(95_000)
	_, err = l.Withdraw("alice", shares)
	require.NoError(t, err)
}

func TestBorrowAndReturnReconcile(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Deposit("alice", 1_000_000)
	require.NoError(t, err)

	require.NoError(t, l.Borrow(400_000))
	snap := l.Snapshot()
	require.Equal(t, uint64(600_000), snap.TotalLiquidity)
	require.Equal(t, uint64(400_000), snap.OnLoan)

	// The round comes back with a profit.
	l.Return(400_000, 450_000)
	snap = l.Snapshot()
	require.Equal(t, uint64(1_050_000), snap.TotalLiquidity)
	require.Zero(t, snap.OnLoan)
}

func TestReturnShortfallAbsorbedByPool(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Deposit("alice", 1_000_000)
	require.NoError(t, err)

	require.NoError(t, l.Borrow(400_000))
	l.Return(400_000, 250_000) // the pool eats the 150_000 loss

	snap := l.Snapshot()
	require.Equal(t, uint64(850_000), snap.TotalLiquidity)
	require.Zero(t, snap.OnLoan)
}

func TestBorrowBeyondUnlockedRejected(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Deposit("alice", 1_000_000)
	require.NoError(t, err)
	l.Lock(900_000)

	require.ErrorIs(t, l.Borrow(200_000), domain.ErrInsufficientLiquidity)
	require.True(t, l.CanCover(100_000))
	require.False(t, l.CanCover(100_001))
}

func TestPayWinnerDebitsWithoutLoan(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Deposit("alice", 1_000_000)
	require.NoError(t, err)

	require.NoError(t, l.PayWinner(300_000))
	snap := l.Snapshot()
	require.Equal(t, uint64(700_000), snap.TotalLiquidity)
	require.Zero(t, snap.OnLoan, "winner payouts are not loans")
}

func TestRestoreRoundTrips(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Deposit("alice", 1_000_000)
	require.NoError(t, err)
	require.NoError(t, l.Borrow(100_000))
	snap := l.Snapshot()
	positions := l.Positions()

	restored := newTestLedger(t)
	restored.Restore(snap, positions)
	require.Equal(t, snap, restored.Snapshot())

	pos, _, err := restored.Position("alice")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), pos.Deposited)
}

package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/engine"
	"github.com/parlayd/parlayd/internal/ledger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngineConfig() engine.Config {
	return engine.Config{
		EventsPerRound:    2,
		SeedPerEvent:      1_000_000,
		FeeRate:           0,
		MaxStake:          100_000_000,
		MaxPayoutPerBet:   1_000_000_000,
		MaxPayoutPerRound: 10_000_000_000,
		SeasonRewardRate:  500,
		RawOddsFloor:      15_000,
		RawOddsCeil:       70_000,
		OddsFloor:         13_000,
		OddsCeil:          17_000,
		LegMultipliers: []uint64{
			0, 10_000, 10_500, 11_200, 12_000, 13_000,
			14_200, 15_500, 17_000, 18_500, 20_000,
		},
		TierBounds:          []uint64{10, 20, 30, 50},
		TierFactors:         []uint64{10_000, 8_500, 7_000, 5_500, 4_000},
		GateThreshold:       4_000,
		GateFloor:           10_200,
		StandingsMinMatches: 5,
	}
}

func newServiceEngine(t *testing.T) (*engine.Engine, *ledger.Ledger) {
	t.Helper()
	lgr := ledger.New(ledger.Config{WithdrawFeeRate: 0, MinLiquidity: 1_000}, testLogger())
	_, err := lgr.Deposit("provider", 1_000_000_000)
	require.NoError(t, err)
	eng, err := engine.New(testEngineConfig(), lgr, testLogger())
	require.NoError(t, err)
	return eng, lgr
}

func testFixtures() []domain.Fixture {
	return []domain.Fixture{
		{Home: "arsenal", Away: "spurs"},
		{Home: "chelsea", Away: "villa"},
	}
}

// --- in-memory store fakes ---

type memRoundStore struct {
	mu     sync.Mutex
	rounds map[uint64]domain.Round
}

func newMemRoundStore() *memRoundStore {
	return &memRoundStore{rounds: make(map[uint64]domain.Round)}
}

func (s *memRoundStore) Upsert(_ context.Context, round *domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[round.ID] = *round
	return nil
}

func (s *memRoundStore) GetByID(_ context.Context, id uint64) (*domain.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	round, ok := s.rounds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &round, nil
}

func (s *memRoundStore) ListRecent(context.Context, domain.ListOpts) ([]*domain.Round, error) {
	return nil, nil
}

func (s *memRoundStore) ListFinalizedBefore(context.Context, time.Time) ([]*domain.Round, error) {
	return nil, nil
}

type memBetStore struct {
	mu   sync.Mutex
	bets map[string]domain.Bet
}

func newMemBetStore() *memBetStore {
	return &memBetStore{bets: make(map[string]domain.Bet)}
}

func (s *memBetStore) Create(_ context.Context, bet *domain.Bet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bets[bet.ID] = *bet
	return nil
}

func (s *memBetStore) MarkClaimed(_ context.Context, id string, payout uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bet, ok := s.bets[id]
	if !ok {
		return domain.ErrNotFound
	}
	bet.Claimed = true
	bet.Payout = payout
	bet.ClaimedAt = &at
	s.bets[id] = bet
	return nil
}

func (s *memBetStore) GetByID(_ context.Context, id string) (*domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bet, ok := s.bets[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &bet, nil
}

func (s *memBetStore) ListByRound(context.Context, uint64, domain.ListOpts) ([]*domain.Bet, error) {
	return nil, nil
}

func (s *memBetStore) ListByAccount(context.Context, string, domain.ListOpts) ([]*domain.Bet, error) {
	return nil, nil
}

type memLiquidityStore struct {
	mu        sync.Mutex
	positions map[string]domain.LiquidityPosition
	snapshot  domain.LedgerSnapshot
}

var _ domain.LiquidityStore = (*memLiquidityStore)(nil)

func newMemLiquidityStore() *memLiquidityStore {
	return &memLiquidityStore{positions: make(map[string]domain.LiquidityPosition)}
}

func (s *memLiquidityStore) UpsertPosition(_ context.Context, pos domain.LiquidityPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos.Account] = pos
	return nil
}

func (s *memLiquidityStore) GetPosition(_ context.Context, account string) (domain.LiquidityPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[account]
	if !ok {
		return domain.LiquidityPosition{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *memLiquidityStore) ListPositions(_ context.Context, opts domain.ListOpts) ([]domain.LiquidityPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]domain.LiquidityPosition, 0, len(s.positions))
	for _, pos := range s.positions {
		all = append(all, pos)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Account < all[j].Account })
	if opts.Offset >= len(all) {
		return nil, nil
	}
	all = all[opts.Offset:]
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}
	return all, nil
}

func (s *memLiquidityStore) SaveSnapshot(_ context.Context, snap domain.LedgerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	return nil
}

func (s *memLiquidityStore) LoadSnapshot(context.Context) (domain.LedgerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, nil
}

type memJournal struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (s *memJournal) Insert(_ context.Context, ev domain.LedgerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *memJournal) ListByRound(context.Context, uint64, domain.ListOpts) ([]domain.LedgerEvent, error) {
	return nil, nil
}

func (s *memJournal) ListByAccount(context.Context, string, domain.ListOpts) ([]domain.LedgerEvent, error) {
	return nil, nil
}

func (s *memJournal) byKind(kind domain.LedgerEventKind) []domain.LedgerEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LedgerEvent
	for _, ev := range s.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fakeOddsCache struct {
	mu          sync.Mutex
	invalidated []uint64
}

func (c *fakeOddsCache) SetOdds(context.Context, uint64, int, domain.OddsTriple) error {
	return nil
}

func (c *fakeOddsCache) GetOdds(context.Context, uint64, int) (domain.OddsTriple, error) {
	return domain.OddsTriple{}, domain.ErrNotFound
}

func (c *fakeOddsCache) InvalidateRound(_ context.Context, roundID uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, roundID)
	return nil
}

type fakeNotifier struct {
	mu           sync.Mutex
	liquidityLow []domain.LedgerSnapshot
}

func (n *fakeNotifier) RoundSettled(context.Context, *domain.Round) error     { return nil }
func (n *fakeNotifier) RevenueFinalized(context.Context, *domain.Round) error { return nil }
func (n *fakeNotifier) LargeClaim(context.Context, *domain.Bet) error         { return nil }

func (n *fakeNotifier) LiquidityLow(_ context.Context, snap domain.LedgerSnapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.liquidityLow = append(n.liquidityLow, snap)
	return nil
}

// --- tests ---

// The finalize journal row must carry the amount the ledger actually
// received, not the round balance, which finalization zeroes.
func TestFinalizeRevenueJournalsReturnedAmount(t *testing.T) {
	ctx := context.Background()
	eng, _ := newServiceEngine(t)
	journal := &memJournal{}
	rounds := newMemRoundStore()
	svc := NewRoundService(eng, rounds, journal, nil, nil, nil, testLogger())

	_, err := svc.SeedRound(ctx, 1, testFixtures())
	require.NoError(t, err)
	_, err = eng.PlaceBet("alice", 1, 1_000_000, []engine.LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeHome},
		{EventIndex: 1, Predicted: domain.OutcomeAway},
	})
	require.NoError(t, err)
	_, err = svc.SettleRound(ctx, 1, []domain.Outcome{domain.OutcomeDraw, domain.OutcomeDraw})
	require.NoError(t, err)

	round, err := svc.FinalizeRevenue(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, round.Balance)
	require.NotZero(t, round.ReturnedToLedger)

	returns := journal.byKind(domain.LedgerEventReturn)
	require.Len(t, returns, 1)
	require.Equal(t, round.ReturnedToLedger, returns[0].Amount,
		"journal must record the capital handed back, not the zeroed balance")
	require.Equal(t, round.ID, returns[0].RoundID)
}

func TestFinalizeRevenueInvalidatesOddsCache(t *testing.T) {
	ctx := context.Background()
	eng, _ := newServiceEngine(t)
	odds := &fakeOddsCache{}
	svc := NewRoundService(eng, newMemRoundStore(), &memJournal{}, odds, nil, nil, testLogger())

	_, err := svc.SeedRound(ctx, 3, testFixtures())
	require.NoError(t, err)
	_, err = svc.SettleRound(ctx, 3, []domain.Outcome{domain.OutcomeHome, domain.OutcomeAway})
	require.NoError(t, err)
	_, err = svc.FinalizeRevenue(ctx, 3)
	require.NoError(t, err)

	require.Equal(t, []uint64{3}, odds.invalidated)
}

// A non-zero fee rate produces a fee journal row alongside the bet.
func TestPlaceBetJournalsFee(t *testing.T) {
	ctx := context.Background()
	lgr := ledger.New(ledger.Config{MinLiquidity: 1_000}, testLogger())
	_, err := lgr.Deposit("provider", 1_000_000_000)
	require.NoError(t, err)
	cfg := testEngineConfig()
	cfg.FeeRate = 200 // 2%
	eng, err := engine.New(cfg, lgr, testLogger())
	require.NoError(t, err)
	_, err = eng.SeedRound(1, testFixtures())
	require.NoError(t, err)

	journal := &memJournal{}
	svc := NewWagerService(eng, newMemBetStore(), newMemRoundStore(), journal, nil, nil, 0, testLogger())

	bet, err := svc.PlaceBet(ctx, "alice", 1, 1_000_000, []engine.LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeHome},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(980_000), bet.StakeAfterFee)

	fees := journal.byKind(domain.LedgerEventFee)
	require.Len(t, fees, 1)
	require.Equal(t, uint64(20_000), fees[0].Amount)
	require.Equal(t, "alice", fees[0].Account)
	require.Equal(t, uint64(1), fees[0].RoundID)
}

func TestPlaceBetZeroFeeSkipsFeeJournal(t *testing.T) {
	ctx := context.Background()
	eng, _ := newServiceEngine(t)
	_, err := eng.SeedRound(1, testFixtures())
	require.NoError(t, err)

	journal := &memJournal{}
	svc := NewWagerService(eng, newMemBetStore(), newMemRoundStore(), journal, nil, nil, 0, testLogger())

	_, err = svc.PlaceBet(ctx, "alice", 1, 1_000_000, []engine.LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeHome},
	})
	require.NoError(t, err)
	require.Empty(t, journal.byKind(domain.LedgerEventFee))
}

// Withdrawals that drop available liquidity under the floor alert the
// operator; withdrawals that stay above it do not.
func TestWithdrawLowLiquidityAlert(t *testing.T) {
	ctx := context.Background()
	lgr := ledger.New(ledger.Config{MinLiquidity: 1_000}, testLogger())
	shares, err := lgr.Deposit("alice", 1_000_000)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	svc := NewLiquidityService(lgr, newMemLiquidityStore(), &memJournal{}, nil, notifier, 500_000, testLogger())

	_, err = svc.Withdraw(ctx, "alice", shares/4)
	require.NoError(t, err)
	require.Empty(t, notifier.liquidityLow, "above the floor, no alert")

	_, err = svc.Withdraw(ctx, "alice", shares/2)
	require.NoError(t, err)
	require.Len(t, notifier.liquidityLow, 1)
	require.Less(t, notifier.liquidityLow[0].Available(), uint64(500_000))
}

func TestWithdrawNoAlertWhenDisabled(t *testing.T) {
	ctx := context.Background()
	lgr := ledger.New(ledger.Config{MinLiquidity: 1_000}, testLogger())
	shares, err := lgr.Deposit("alice", 1_000_000)
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	svc := NewLiquidityService(lgr, newMemLiquidityStore(), &memJournal{}, nil, notifier, 0, testLogger())

	_, err = svc.Withdraw(ctx, "alice", shares/2)
	require.NoError(t, err)
	require.Empty(t, notifier.liquidityLow)
}

// Restore must reload every persisted provider position through the store
// interface, not best-effort.
func TestRestoreReloadsPositions(t *testing.T) {
	ctx := context.Background()
	lgr := ledger.New(ledger.Config{MinLiquidity: 1_000}, testLogger())
	eng, err := engine.New(testEngineConfig(), lgr, testLogger())
	require.NoError(t, err)

	store := newMemLiquidityStore()
	store.snapshot = domain.LedgerSnapshot{TotalLiquidity: 3_000_000, TotalShares: 3_000_000}
	for _, acct := range []string{"alice", "bob", "carol"} {
		require.NoError(t, store.UpsertPosition(ctx, domain.LiquidityPosition{
			Account: acct, Deposited: 1_000_000, Shares: 1_000_000,
		}))
	}

	err = Restore(ctx, eng, lgr, newMemRoundStore(), newMemBetStore(), store, testLogger())
	require.NoError(t, err)

	require.Len(t, lgr.Positions(), 3)
	pos, _, err := lgr.Position("bob")
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), pos.Shares)
	require.Equal(t, uint64(3_000_000), lgr.Snapshot().TotalLiquidity)
}

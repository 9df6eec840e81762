package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/ledger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	return Config{
		EventsPerRound:    2,
		SeedPerEvent:      1_000_000,
		FeeRate:           0,
		MaxStake:          100_000_000,
		MaxPayoutPerBet:   1_000_000_000,
		MaxPayoutPerRound: 10_000_000_000,
		SeasonRewardRate:  500, // 5%
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

// newTestEngine builds an engine over a funded ledger.
func newTestEngine(t *testing.T, cfg Config) (*Engine, *ledger.Ledger) {
	t.Helper()
	lgr := ledger.New(ledger.Config{WithdrawFeeRate: 100, MinLiquidity: 1_000}, testLogger())
	_, err := lgr.Deposit("provider", 1_000_000_000)
	require.NoError(t, err)
	eng, err := New(cfg, lgr, testLogger())
	require.NoError(t, err)
	return eng, lgr
}

// ledgerWith builds a ledger holding exactly amount of liquidity.
func ledgerWith(t *testing.T, amount uint64) *ledger.Ledger {
	t.Helper()
	lgr := ledger.New(ledger.Config{MinLiquidity: 100}, testLogger())
	_, err := lgr.Deposit("provider", amount)
	require.NoError(t, err)
	return lgr
}

// restoreRound injects a live round with explicit locked odds, bypassing
// seeding, so scenarios can pin exact prices.
func restoreRound(eng *Engine, id uint64, odds ...[3]uint64) {
	events := make([]domain.Event, len(odds))
	for i, o := range odds {
		events[i] = domain.Event{
			Fixture: domain.Fixture{Home: "home", Away: "away"},
			Pool:    domain.EventPool{Balances: [3]uint64{500_000, 250_000, 250_000}},
			Odds:    domain.LockedOdds{Odds: o, Locked: true},
		}
	}
	eng.Restore([]*domain.Round{{
		ID:     id,
		Phase:  domain.RoundPhaseAcceptingBets,
		Events: events,
	}}, nil)
}

func fixtures(n int) []domain.Fixture {
	out := make([]domain.Fixture, n)
	names := []string{"arsenal", "spurs", "chelsea", "villa", "leeds", "wolves", "everton", "brighton"}
	for i := range out {
		out[i] = domain.Fixture{Home: names[2*i%len(names)], Away: names[(2*i+1)%len(names)]}
	}
	return out
}

func TestSeedRoundLocksOddsInBand(t *testing.T) {
	cfg := testConfig()
	eng, _ := newTestEngine(t, cfg)

	round, err := eng.SeedRound(7, fixtures(2))
	require.NoError(t, err)
	require.Equal(t, domain.RoundPhaseAcceptingBets, round.Phase)
	require.Equal(t, uint64(2_000_000), round.SeedAmount)

	for i, ev := range round.Events {
		require.True(t, ev.Odds.Locked, "event %d odds not locked", i)
		require.Equal(t, cfg.SeedPerEvent, ev.Pool.Total(), "event %d seed split must sum exactly", i)
		for _, o := range ev.Odds.Odds {
			require.GreaterOrEqual(t, o, cfg.OddsFloor)
			require.LessOrEqual(t, o, cfg.OddsCeil)
		}
	}
}

func TestSeedRoundIsDeterministic(t *testing.T) {
	cfg := testConfig()
	a, _ := newTestEngine(t, cfg)
	b, _ := newTestEngine(t, cfg)

	ra, err := a.SeedRound(42, fixtures(2))
	require.NoError(t, err)
	rb, err := b.SeedRound(42, fixtures(2))
	require.NoError(t, err)

	for i := range ra.Events {
		require.Equal(t, ra.Events[i].Pool, rb.Events[i].Pool)
		require.Equal(t, ra.Events[i].Odds, rb.Events[i].Odds)
	}
}

func TestSeedRoundTwiceFails(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	_, err := eng.SeedRound(1, fixtures(2))
	require.NoError(t, err)
	_, err = eng.SeedRound(1, fixtures(2))
	require.ErrorIs(t, err, domain.ErrRoundSeeded)
}

func TestSeedRoundFailsWhenLedgerCannotCover(t *testing.T) {
	cfg := testConfig()
	lgr := ledger.New(ledger.Config{MinLiquidity: 1_000}, testLogger())
	_, err := lgr.Deposit("provider", 10_000) // far below the 2M seed
	require.NoError(t, err)
	eng, err := New(cfg, lgr, testLogger())
	require.NoError(t, err)

	_, err = eng.SeedRound(1, fixtures(2))
	require.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	// No partial seeding: the round must remain unseeded.
	_, err = eng.PreviewOdds(1, 0)
	require.ErrorIs(t, err, domain.ErrRoundNotSeeded)
	require.Equal(t, uint64(10_000), lgr.Snapshot().TotalLiquidity)
}

func TestSeedingDebitsLedger(t *testing.T) {
	eng, lgr := newTestEngine(t, testConfig())
	before := lgr.Snapshot()

	_, err := eng.SeedRound(1, fixtures(2))
	require.NoError(t, err)

	after := lgr.Snapshot()
	require.Equal(t, before.TotalLiquidity-2_000_000, after.TotalLiquidity)
	require.Equal(t, uint64(2_000_000), after.OnLoan)
}

func TestPreviewOddsImmutableUnderBetVolume(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	_, err := eng.SeedRound(1, fixtures(2))
	require.NoError(t, err)

	before, err := eng.PreviewOdds(1, 0)
	require.NoError(t, err)

	for i := 0; i < 25; i++ {
		_, err := eng.PlaceBet("acct", 1, 50_000, []LegInput{
			{EventIndex: 0, Predicted: domain.OutcomeHome},
			{EventIndex: 1, Predicted: domain.OutcomeAway},
		})
		require.NoError(t, err)
	}

	after, err := eng.PreviewOdds(1, 0)
	require.NoError(t, err)
	require.Equal(t, before, after, "locked odds changed after bets were placed")
}

func TestPreviewOddsValidation(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	_, err := eng.PreviewOdds(99, 0)
	require.ErrorIs(t, err, domain.ErrRoundNotFound)

	_, err = eng.SeedRound(1, fixtures(2))
	require.NoError(t, err)
	_, err = eng.PreviewOdds(1, 5)
	require.ErrorIs(t, err, domain.ErrInvalidEventIndex)
}

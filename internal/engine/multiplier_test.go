package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parlayd/parlayd/internal/domain"
)

func twoLegs() []LegInput {
	return []LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeHome},
		{EventIndex: 1, Predicted: domain.OutcomeAway},
	}
}

func TestSingleLegAlwaysOne(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	restoreRound(eng, 1, [3]uint64{14_000, 16_000, 15_000})

	quote, err := eng.CurrentParlayMultiplier(1, []LegInput{{EventIndex: 0, Predicted: domain.OutcomeDraw}})
	require.NoError(t, err)
	require.Equal(t, domain.FixedScale, quote.Multiplier)
	require.False(t, quote.Gated)
}

func TestLegCountBaseTable(t *testing.T) {
	cfg := testConfig()
	cfg.EventsPerRound = 10
	eng, _ := newTestEngine(t, cfg)

	odds := make([][3]uint64, 10)
	for i := range odds {
		odds[i] = [3]uint64{14_000, 16_000, 15_000}
	}
	restoreRound(eng, 1, odds...)

	for legs := 2; legs <= 10; legs++ {
		in := make([]LegInput, legs)
		for i := range in {
			in[i] = LegInput{EventIndex: i, Predicted: domain.OutcomeHome}
		}
		quote, err := eng.CurrentParlayMultiplier(1, in)
		require.NoError(t, err)
		require.Equal(t, cfg.LegMultipliers[legs], quote.Multiplier, "legs=%d", legs)
	}
}

func TestImbalanceGateClampsBalancedPools(t *testing.T) {
	cfg := testConfig()
	eng, _ := newTestEngine(t, cfg)

	// Perfectly balanced pools: imbalance ~3_333, below the 4_000 gate.
	events := []domain.Event{
		{Pool: domain.EventPool{Balances: [3]uint64{300_000, 300_000, 300_000}},
			Odds: domain.LockedOdds{Odds: [3]uint64{15_000, 15_000, 15_000}, Locked: true}},
		{Pool: domain.EventPool{Balances: [3]uint64{300_000, 300_000, 300_000}},
			Odds: domain.LockedOdds{Odds: [3]uint64{15_000, 15_000, 15_000}, Locked: true}},
	}
	eng.Restore([]*domain.Round{{ID: 1, Phase: domain.RoundPhaseAcceptingBets, Events: events}}, nil)

	quote, err := eng.CurrentParlayMultiplier(1, twoLegs())
	require.NoError(t, err)
	require.True(t, quote.Gated)
	require.Equal(t, cfg.GateFloor, quote.Multiplier)
}

func TestCountTierDecay(t *testing.T) {
	cfg := testConfig()
	eng, _ := newTestEngine(t, cfg)
	restoreRound(eng, 1,
		[3]uint64{14_000, 16_000, 15_000},
		[3]uint64{13_000, 16_000, 15_500},
	)

	// Walk the parlay counter through every tier boundary and check the
	// quoted multiplier decays on schedule. 2-leg base is 1.05x.
	wantByTier := []uint64{10_500, 10_425, 10_350, 10_275, 10_200}
	for placed := uint64(0); placed < 60; placed++ {
		quote, err := eng.CurrentParlayMultiplier(1, twoLegs())
		require.NoError(t, err)

		tier, _ := eng.countTier(placed)
		require.Equal(t, tier, quote.Tier, "placed=%d", placed)
		require.Equal(t, wantByTier[tier], quote.Multiplier, "placed=%d", placed)

		_, err = eng.PlaceBet("acct", 1, 10_000, twoLegs())
		require.NoError(t, err)
	}
}

func TestTierRemainingCountsDown(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	restoreRound(eng, 1,
		[3]uint64{14_000, 16_000, 15_000},
		[3]uint64{13_000, 16_000, 15_500},
	)

	quote, err := eng.CurrentParlayMultiplier(1, twoLegs())
	require.NoError(t, err)
	require.Equal(t, 0, quote.Tier)
	require.Equal(t, uint64(10), quote.RemainingInTier)

	_, err = eng.PlaceBet("acct", 1, 10_000, twoLegs())
	require.NoError(t, err)

	quote, err = eng.CurrentParlayMultiplier(1, twoLegs())
	require.NoError(t, err)
	require.Equal(t, uint64(9), quote.RemainingInTier)
}

func TestSingleLegDoesNotAdvanceTier(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	restoreRound(eng, 1,
		[3]uint64{14_000, 16_000, 15_000},
		[3]uint64{13_000, 16_000, 15_500},
	)

	for i := 0; i < 15; i++ {
		_, err := eng.PlaceBet("acct", 1, 10_000, []LegInput{{EventIndex: 0, Predicted: domain.OutcomeHome}})
		require.NoError(t, err)
	}

	round, err := eng.RoundInfo(1)
	require.NoError(t, err)
	require.Zero(t, round.ParlayCount, "single-leg bets must not advance the parlay counter")
}

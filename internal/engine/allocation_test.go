package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parlayd/parlayd/internal/domain"
)

// The worked two-event scenario: odds (home 1.40, away 1.60, draw 1.50) and
// (home 1.30, away 1.60, draw 1.55), a 2-leg home+away parlay of 1_000_000
// units at the first-tier 1.05x multiplier. Base target 1.40*1.60 = 2.24x,
// final 2.352x, split evenly and back-solved per leg.
func TestPlaceBetWorkedScenario(t *testing.T) {
	eng, lgr := newTestEngine(t, testConfig())
	restoreRound(eng, 1,
		[3]uint64{14_000, 16_000, 15_000},
		[3]uint64{13_000, 16_000, 15_500},
	)
	loanBefore := lgr.Snapshot().OnLoan

	bet, err := eng.PlaceBet("alice", 1, 1_000_000, []LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeHome},
		{EventIndex: 1, Predicted: domain.OutcomeAway},
	})
	require.NoError(t, err)

	require.Equal(t, uint64(10_500), bet.Multiplier)
	// target = 1_000_000 * 1.40 * 1.60 * 1.05 = 2_352_000; per leg 1_176_000
	require.Equal(t, uint64(840_000), bet.Legs[0].Allocation) // 1_176_000 / 1.40
	require.Equal(t, uint64(735_000), bet.Legs[1].Allocation) // 1_176_000 / 1.60
	require.Equal(t, uint64(1_575_000), bet.TotalAllocated)
	require.Equal(t, uint64(575_000), bet.Borrowed)
	require.Equal(t, loanBefore+575_000, lgr.Snapshot().OnLoan)

	round, err := eng.RoundInfo(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000_000), round.BetVolume)
	require.Equal(t, uint64(575_000), round.Borrowed)
	require.Equal(t, uint64(840_000), round.Events[0].BetDeposits[domain.OutcomeHome])
	require.Equal(t, uint64(735_000), round.Events[1].BetDeposits[domain.OutcomeAway])
}

func TestPlaceBetDeductsFee(t *testing.T) {
	cfg := testConfig()
	cfg.FeeRate = 200 // 2%
	eng, _ := newTestEngine(t, cfg)
	restoreRound(eng, 1, [3]uint64{14_000, 16_000, 15_000})

	bet, err := eng.PlaceBet("alice", 1, 1_000_000, []LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeHome},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(980_000), bet.StakeAfterFee)
	require.Equal(t, uint64(20_000), eng.OperatorBalance())

	round, err := eng.RoundInfo(1)
	require.NoError(t, err)
	require.Equal(t, uint64(20_000), round.ProtocolFee)
}

// A single-leg bet's allocation back-solves to exactly the fee-adjusted
// stake (multiplier 1.0x), so nothing is borrowed.
func TestPlaceBetSingleLegNoBorrow(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	restoreRound(eng, 1, [3]uint64{14_000, 16_000, 15_000})

	bet, err := eng.PlaceBet("alice", 1, 1_000_000, []LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeAway},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(10_000), bet.Multiplier)
	require.Equal(t, uint64(1_000_000), bet.TotalAllocated)
	require.Zero(t, bet.Borrowed)
}

func TestPlaceBetValidation(t *testing.T) {
	cfg := testConfig()
	eng, _ := newTestEngine(t, cfg)
	restoreRound(eng, 1,
		[3]uint64{14_000, 16_000, 15_000},
		[3]uint64{13_000, 16_000, 15_500},
	)

	leg := []LegInput{{EventIndex: 0, Predicted: domain.OutcomeHome}}

	cases := []struct {
		name    string
		account string
		round   uint64
		stake   uint64
		legs    []LegInput
		want    error
	}{
		{"zero stake", "a", 1, 0, leg, domain.ErrInvalidStake},
		{"stake over max", "a", 1, cfg.MaxStake + 1, leg, domain.ErrStakeTooLarge},
		{"unknown round", "a", 9, 1_000, leg, domain.ErrRoundNotFound},
		{"no legs", "a", 1, 1_000, nil, domain.ErrInvalidLegCount},
		{"too many legs", "a", 1, 1_000, []LegInput{
			{EventIndex: 0, Predicted: domain.OutcomeHome},
			{EventIndex: 1, Predicted: domain.OutcomeHome},
			{EventIndex: 0, Predicted: domain.OutcomeAway},
		}, domain.ErrInvalidLegCount},
		{"bad event index", "a", 1, 1_000, []LegInput{
			{EventIndex: 7, Predicted: domain.OutcomeHome},
		}, domain.ErrInvalidEventIndex},
		{"bad outcome", "a", 1, 1_000, []LegInput{
			{EventIndex: 0, Predicted: domain.Outcome(9)},
		}, domain.ErrInvalidOutcome},
		{"duplicate event", "a", 1, 1_000, []LegInput{
			{EventIndex: 0, Predicted: domain.OutcomeHome},
			{EventIndex: 0, Predicted: domain.OutcomeAway},
		}, domain.ErrDuplicateLegEvent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eng.PlaceBet(tc.account, tc.round, tc.stake, tc.legs)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPlaceBetUnseededRound(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	eng.Restore([]*domain.Round{{ID: 3, Phase: domain.RoundPhaseCreated}}, nil)

	_, err := eng.PlaceBet("a", 3, 1_000, []LegInput{{EventIndex: 0, Predicted: domain.OutcomeHome}})
	require.ErrorIs(t, err, domain.ErrRoundNotSeeded)
}

func TestPlaceBetRejectsOverflowingOddsProduct(t *testing.T) {
	eng, _ := newTestEngine(t, testConfig())
	// Absurd odds force the chained multiplication past 64 bits; the bet
	// must be rejected with the overflow sentinel and nothing written.
	huge := uint64(1) << 62
	restoreRound(eng, 1, [3]uint64{huge, huge, huge}, [3]uint64{huge, huge, huge})

	_, err := eng.PlaceBet("a", 1, 1_000_000, []LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeHome},
		{EventIndex: 1, Predicted: domain.OutcomeHome},
	})
	require.ErrorIs(t, err, domain.ErrOverflow)

	round, err := eng.RoundInfo(1)
	require.NoError(t, err)
	require.Zero(t, round.BetVolume)
}

func TestPlaceBetBorrowFailsWithoutLiquidity(t *testing.T) {
	cfg := testConfig()
	lgr := ledgerWith(t, 1_000) // almost nothing to lend
	eng, err := New(cfg, lgr, testLogger())
	require.NoError(t, err)
	restoreRound(eng, 1,
		[3]uint64{14_000, 16_000, 15_000},
		[3]uint64{13_000, 16_000, 15_500},
	)

	_, err = eng.PlaceBet("a", 1, 1_000_000, []LegInput{
		{EventIndex: 0, Predicted: domain.OutcomeHome},
		{EventIndex: 1, Predicted: domain.OutcomeAway},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientLiquidity)

	round, err := eng.RoundInfo(1)
	require.NoError(t, err)
	require.Zero(t, round.BetVolume, "failed borrow must not mutate the round")
}

package engine

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/parlayd/parlayd/internal/domain"
)

// seedSplit is the percentage allocation of one event's seed across its
// three pools. Percentages always sum to 100.
type seedSplit struct {
	Favorite uint64
	Underdog uint64
	Draw     uint64
}

// splitTiers maps the strength gap between the two entities to a pool
// split. A wider gap concentrates the seed on the favorite, which derives
// into shorter odds for it after compression.
var splitTiers = []struct {
	MinGap uint64
	Split  seedSplit
}{
	{40, seedSplit{Favorite: 55, Underdog: 15, Draw: 30}}, // huge favorite
	{25, seedSplit{Favorite: 48, Underdog: 22, Draw: 30}}, // clear favorite
	{10, seedSplit{Favorite: 42, Underdog: 28, Draw: 30}}, // slight favorite
	{0, seedSplit{Favorite: 35, Underdog: 35, Draw: 30}},  // balanced
}

// drawBoostModulus selects the deterministic subset of matchups whose draw
// pool gets boosted to vary the outcome distribution.
const (
	drawBoostModulus = 5
	drawBoostPct     = 8
)

// SeedRound establishes the round: it borrows the seed capital from the
// ledger, splits it deterministically across each event's three pools, and
// locks the derived odds. The operation is all-or-nothing: if the ledger
// cannot fund the full seed nothing is written.
func (e *Engine) SeedRound(roundID uint64, fixtures []domain.Fixture) (domain.Round, error) {
	if len(fixtures) != e.cfg.EventsPerRound {
		return domain.Round{}, fmt.Errorf("engine: want %d fixtures, got %d: %w",
			e.cfg.EventsPerRound, len(fixtures), domain.ErrInvalidEventIndex)
	}

	e.mu.Lock()
	rs, ok := e.rounds[roundID]
	if !ok {
		rs = &roundState{
			round: &domain.Round{ID: roundID, Phase: domain.RoundPhaseCreated},
			bets:  make(map[string]*domain.Bet),
		}
		e.rounds[roundID] = rs
	}
	e.mu.Unlock()

	rs.mu.Lock()
	defer rs.mu.Unlock()

	r := rs.round
	if r.Seeded() {
		return domain.Round{}, domain.ErrRoundSeeded
	}
	if r.Settled() {
		return domain.Round{}, domain.ErrRoundSettled
	}

	totalSeed, err := domain.CheckedMul(e.cfg.SeedPerEvent, uint64(len(fixtures)))
	if err != nil {
		return domain.Round{}, fmt.Errorf("engine: total seed: %w", err)
	}
	// The whole seeding fails when the ledger cannot cover it; no partial
	// seeding.
	if err := e.ledger.Borrow(totalSeed); err != nil {
		return domain.Round{}, fmt.Errorf("engine: fund seeding: %w", err)
	}

	r.Events = make([]domain.Event, len(fixtures))
	for i, fx := range fixtures {
		pool := e.seedEvent(roundID, i, fx)
		odds, derr := e.deriveOdds(pool)
		if derr != nil {
			// Cannot happen with a positive three-way split, but if it
			// did the seed capital must go straight back.
			e.ledger.Return(totalSeed, totalSeed)
			return domain.Round{}, fmt.Errorf("engine: derive odds for event %d: %w", i, derr)
		}
		r.Events[i] = domain.Event{
			Fixture: fx,
			Pool:    pool,
			Odds:    domain.LockedOdds{Odds: odds, Locked: true},
		}
	}

	r.SeedAmount = totalSeed
	r.Balance = totalSeed
	r.Phase = domain.RoundPhaseAcceptingBets
	r.SeededAt = time.Now().UTC()

	e.logger.Info("round seeded",
		slog.Uint64("round_id", roundID),
		slog.Int("events", len(fixtures)),
		slog.Uint64("seed", totalSeed),
	)
	return copyRound(r), nil
}

// seedEvent splits the per-event seed across the three outcome pools using a
// deterministic function of the fixture and round identity. Reproducible and
// auditable: no randomness enters the split.
func (e *Engine) seedEvent(roundID uint64, eventIndex int, fx domain.Fixture) domain.EventPool {
	digest := seedDigest(roundID, eventIndex, fx)

	home := e.entityStrength(fx.Home)
	away := e.entityStrength(fx.Away)

	var gap uint64
	favoriteIsHome := home >= away
	if favoriteIsHome {
		gap = home - away
	} else {
		gap = away - home
	}

	split := splitTiers[len(splitTiers)-1].Split
	for _, tier := range splitTiers {
		if gap >= tier.MinGap {
			split = tier.Split
			break
		}
	}

	// Boost the draw pool for a deterministic subset of matchups.
	if digest[31]%drawBoostModulus == 0 {
		split.Draw += drawBoostPct
		split.Favorite -= drawBoostPct / 2
		split.Underdog -= drawBoostPct / 2
	}

	seed := e.cfg.SeedPerEvent
	favoriteAmt := seed * split.Favorite / 100
	underdogAmt := seed * split.Underdog / 100

	var pool domain.EventPool
	if favoriteIsHome {
		pool.Balances[domain.OutcomeHome] = favoriteAmt
		pool.Balances[domain.OutcomeAway] = underdogAmt
	} else {
		pool.Balances[domain.OutcomeHome] = underdogAmt
		pool.Balances[domain.OutcomeAway] = favoriteAmt
	}
	// The draw pool takes the remainder so the split sums exactly to the
	// seed despite integer division.
	pool.Balances[domain.OutcomeDraw] = seed - favoriteAmt - underdogAmt
	return pool
}

// entityStrength returns a 0..100 strength figure: the accumulated standing
// when enough history exists, otherwise a stable hash of the identity.
func (e *Engine) entityStrength(entity string) uint64 {
	if s, ok := e.standings.strength(entity); ok {
		return s
	}
	h := crypto.Keccak256([]byte(entity))
	return binary.BigEndian.Uint64(h[:8]) % 101
}

// seedDigest hashes the round, event position and fixture identities into
// the 32-byte digest that drives the deterministic parts of seeding.
func seedDigest(roundID uint64, eventIndex int, fx domain.Fixture) []byte {
	buf := make([]byte, 0, 16+len(fx.Home)+len(fx.Away)+2)
	buf = binary.BigEndian.AppendUint64(buf, roundID)
	buf = binary.BigEndian.AppendUint64(buf, uint64(eventIndex))
	buf = append(buf, fx.Home...)
	buf = append(buf, 0)
	buf = append(buf, fx.Away...)
	return crypto.Keccak256(buf)
}

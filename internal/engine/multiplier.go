package engine

import (
	"github.com/parlayd/parlayd/internal/domain"
)

// parlayMultiplier computes the bonus multiplier for a prospective bet from
// the round's current state. Three layers, in order: the leg-count base
// table, the imbalance gate, and the count-based tier decay. Single-leg bets
// skip all three and receive exactly 1.0x.
//
// The caller locks the result onto the bet at placement; settlement never
// calls back in here. Callers must hold the round lock (read or write).
func (e *Engine) parlayMultiplier(r *domain.Round, legs []LegInput) domain.MultiplierQuote {
	if len(legs) <= 1 {
		return domain.MultiplierQuote{Multiplier: domain.FixedScale, Tier: -1}
	}

	// Layer 1: leg-count base.
	base := e.legBase(len(legs))

	tier, remaining := e.countTier(r.ParlayCount)

	// Layer 2: imbalance gate. When the legs' pools average out too
	// balanced the events look like coin flips and the edge is thin, so
	// the multiplier clamps to the floor regardless of tier. Capital
	// protection, not a reward.
	var imbalanceSum uint64
	for _, leg := range legs {
		imbalanceSum += r.Events[leg.EventIndex].Pool.Imbalance()
	}
	if imbalanceSum/uint64(len(legs)) < e.cfg.GateThreshold {
		return domain.MultiplierQuote{
			Multiplier:      e.cfg.GateFloor,
			Tier:            tier,
			RemainingInTier: remaining,
			Gated:           true,
		}
	}

	// Layer 3: count-based tier decay. Earlier parlays in the round keep
	// more of the bonus; the counter is read before it is incremented so
	// each bettor sees the state at their moment of placement.
	bonus := base - domain.FixedScale
	decayed := domain.FixedScale + bonus*e.cfg.TierFactors[tier]/domain.FixedScale

	return domain.MultiplierQuote{
		Multiplier:      decayed,
		Tier:            tier,
		RemainingInTier: remaining,
	}
}

// legBase looks up the base multiplier for a leg count, capping at the top
// of the table.
func (e *Engine) legBase(legs int) uint64 {
	table := e.cfg.LegMultipliers
	if legs >= len(table) {
		return table[len(table)-1]
	}
	return table[legs]
}

// countTier maps the round's parlay counter onto a decay tier and how many
// placements remain before the next decay. The last tier is the long tail.
func (e *Engine) countTier(count uint64) (int, uint64) {
	for i, bound := range e.cfg.TierBounds {
		if count < bound {
			return i, bound - count
		}
	}
	return len(e.cfg.TierBounds), 0
}

// CurrentParlayMultiplier previews the multiplier a bet with the given legs
// would lock right now. Read-only; the quote is advisory and may be stale by
// the time the bet lands.
func (e *Engine) CurrentParlayMultiplier(roundID uint64, legs []LegInput) (domain.MultiplierQuote, error) {
	rs, err := e.roundByID(roundID)
	if err != nil {
		return domain.MultiplierQuote{}, err
	}
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	r := rs.round
	if !r.Seeded() {
		return domain.MultiplierQuote{}, domain.ErrRoundNotSeeded
	}
	if err := validateLegs(r, legs); err != nil {
		return domain.MultiplierQuote{}, err
	}
	return e.parlayMultiplier(r, legs), nil
}

// validateLegs rejects out-of-range event indices, bad outcome codes,
// duplicate events and leg counts outside [1, event count].
func validateLegs(r *domain.Round, legs []LegInput) error {
	if len(legs) == 0 || len(legs) > len(r.Events) {
		return domain.ErrInvalidLegCount
	}
	seen := make(map[int]bool, len(legs))
	for _, leg := range legs {
		if leg.EventIndex < 0 || leg.EventIndex >= len(r.Events) {
			return domain.ErrInvalidEventIndex
		}
		if !leg.Predicted.Valid() {
			return domain.ErrInvalidOutcome
		}
		if seen[leg.EventIndex] {
			return domain.ErrDuplicateLegEvent
		}
		seen[leg.EventIndex] = true
	}
	return nil
}

// Package engine implements the wagering accounting core: round seeding with
// locked odds, stake allocation across parlay legs, the tiered parlay
// multiplier, settlement, claims and revenue finalization. Every mutating
// operation is serialized behind a per-round lock (plus the ledger's own
// lock); read-only queries take read locks and may serve a slightly stale
// snapshot.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/ledger"
)

// Config holds every tunable constant of the core. All rates, odds and
// multipliers are FixedScale units.
type Config struct {
	EventsPerRound int
	SeedPerEvent   uint64

	FeeRate           uint64 // deducted from every stake before allocation
	MaxStake          uint64 // maximum single-bet stake
	MaxPayoutPerBet   uint64
	MaxPayoutPerRound uint64 // cumulative cap across all claims in a round
	SeasonRewardRate  uint64 // carve-out on user deposits at finalization

	// Odds compression: raw parimutuel odds in [RawOddsFloor, RawOddsCeil]
	// map linearly onto [OddsFloor, OddsCeil]; values outside clamp.
	RawOddsFloor uint64
	RawOddsCeil  uint64
	OddsFloor    uint64
	OddsCeil     uint64

	// LegMultipliers[n] is the base multiplier for an n-leg bet; index 0 is
	// unused and counts above the table length use the last entry.
	LegMultipliers []uint64

	// TierBounds are the cumulative parlay-count boundaries of the decay
	// tiers; TierFactors has one more entry for the long tail. The factor
	// scales the bonus portion (multiplier minus 1.0x) of the base.
	TierBounds  []uint64
	TierFactors []uint64

	// The imbalance gate: when the average pool imbalance across a bet's
	// legs is below GateThreshold the multiplier clamps to GateFloor.
	GateThreshold uint64
	GateFloor     uint64

	// StandingsMinMatches is how many settled matches an entity needs
	// before its accumulated standing replaces the hash-derived strength
	// in seeding.
	StandingsMinMatches uint64
}

// Validate checks internal consistency of the engine constants.
func (c Config) Validate() error {
	if c.EventsPerRound <= 0 {
		return fmt.Errorf("engine: events per round must be positive")
	}
	if c.SeedPerEvent == 0 {
		return fmt.Errorf("engine: seed per event must be positive")
	}
	if c.OddsFloor == 0 || c.OddsCeil <= c.OddsFloor {
		return fmt.Errorf("engine: odds band [%d, %d] invalid", c.OddsFloor, c.OddsCeil)
	}
	if c.RawOddsCeil <= c.RawOddsFloor {
		return fmt.Errorf("engine: raw odds band [%d, %d] invalid", c.RawOddsFloor, c.RawOddsCeil)
	}
	if len(c.LegMultipliers) < 2 {
		return fmt.Errorf("engine: leg multiplier table too short")
	}
	if c.LegMultipliers[1] != domain.FixedScale {
		return fmt.Errorf("engine: single-leg multiplier must be 1.0x")
	}
	for i := 2; i < len(c.LegMultipliers); i++ {
		if c.LegMultipliers[i] < c.LegMultipliers[i-1] {
			return fmt.Errorf("engine: leg multiplier table must be monotonic")
		}
	}
	if len(c.TierFactors) != len(c.TierBounds)+1 {
		return fmt.Errorf("engine: want %d tier factors, got %d", len(c.TierBounds)+1, len(c.TierFactors))
	}
	for i := 1; i < len(c.TierBounds); i++ {
		if c.TierBounds[i] <= c.TierBounds[i-1] {
			return fmt.Errorf("engine: tier bounds must be increasing")
		}
	}
	if c.GateFloor < domain.FixedScale {
		return fmt.Errorf("engine: gate floor below 1.0x")
	}
	return nil
}

// LegInput is a caller-supplied (event, predicted outcome) pair.
type LegInput struct {
	EventIndex int
	Predicted  domain.Outcome
}

// roundState pairs a round with the lock that serializes its mutations and
// the bets placed on it.
type roundState struct {
	mu    sync.RWMutex
	round *domain.Round
	bets  map[string]*domain.Bet
}

// Engine owns all live rounds and bets. The registry map has its own lock;
// individual round mutations take the round's lock so independent rounds do
// not contend.
type Engine struct {
	mu     sync.RWMutex
	rounds map[uint64]*roundState
	bets   map[string]*roundState // bet ID -> owning round

	ledger    *ledger.Ledger
	standings *standings

	opMu         sync.Mutex
	operatorFees uint64
	seasonPool   uint64

	cfg    Config
	logger *slog.Logger
}

// New creates an engine backed by the given liquidity ledger.
func New(cfg Config, lgr *ledger.Ledger, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		rounds:    make(map[uint64]*roundState),
		bets:      make(map[string]*roundState),
		ledger:    lgr,
		standings: newStandings(cfg.StandingsMinMatches),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "engine")),
	}, nil
}

// Restore loads persisted rounds and bets into the registry. Intended for
// process start, before any operation runs.
func (e *Engine) Restore(rounds []*domain.Round, bets []*domain.Bet) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range rounds {
		rs := &roundState{round: r, bets: make(map[string]*domain.Bet)}
		e.rounds[r.ID] = rs
		if r.Settled() {
			e.standings.recordRound(r)
		}
	}
	for _, b := range bets {
		rs, ok := e.rounds[b.RoundID]
		if !ok {
			continue
		}
		rs.bets[b.ID] = b
		e.bets[b.ID] = rs
	}
}

// OperatorBalance returns the protocol fees accrued to the operator account.
func (e *Engine) OperatorBalance() uint64 {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.operatorFees
}

// SeasonPool returns the accumulated season reward carve-out.
func (e *Engine) SeasonPool() uint64 {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.seasonPool
}

// Ledger exposes the backing liquidity ledger.
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// roundByID returns the registry entry for a round.
func (e *Engine) roundByID(id uint64) (*roundState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rs, ok := e.rounds[id]
	if !ok {
		return nil, domain.ErrRoundNotFound
	}
	return rs, nil
}

// betByID returns the registry entry owning a bet.
func (e *Engine) betByID(id string) (*roundState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rs, ok := e.bets[id]
	if !ok {
		return nil, domain.ErrBetNotFound
	}
	return rs, nil
}

// RoundInfo returns a copy of the round's accounting record.
func (e *Engine) RoundInfo(roundID uint64) (domain.Round, error) {
	rs, err := e.roundByID(roundID)
	if err != nil {
		return domain.Round{}, err
	}
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return copyRound(rs.round), nil
}

// Bet returns a copy of the bet record.
func (e *Engine) Bet(betID string) (domain.Bet, error) {
	rs, err := e.betByID(betID)
	if err != nil {
		return domain.Bet{}, err
	}
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	b := rs.bets[betID]
	return copyBet(b), nil
}

// PreviewOdds returns the locked odds for one event. Values are immutable
// once seeding completes, so repeated calls always agree.
func (e *Engine) PreviewOdds(roundID uint64, eventIndex int) (domain.OddsTriple, error) {
	rs, err := e.roundByID(roundID)
	if err != nil {
		return domain.OddsTriple{}, err
	}
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	r := rs.round
	if !r.Seeded() {
		return domain.OddsTriple{}, domain.ErrRoundNotSeeded
	}
	if eventIndex < 0 || eventIndex >= len(r.Events) {
		return domain.OddsTriple{}, domain.ErrInvalidEventIndex
	}
	odds := r.Events[eventIndex].Odds.Odds
	return domain.OddsTriple{
		Home: odds[domain.OutcomeHome],
		Away: odds[domain.OutcomeAway],
		Draw: odds[domain.OutcomeDraw],
	}, nil
}

func copyRound(r *domain.Round) domain.Round {
	out := *r
	out.Events = make([]domain.Event, len(r.Events))
	copy(out.Events, r.Events)
	return out
}

func copyBet(b *domain.Bet) domain.Bet {
	out := *b
	out.Legs = make([]domain.BetLeg, len(b.Legs))
	copy(out.Legs, b.Legs)
	if b.ClaimedAt != nil {
		t := *b.ClaimedAt
		out.ClaimedAt = &t
	}
	return out
}

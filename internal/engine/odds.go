package engine

import (
	"fmt"

	"github.com/parlayd/parlayd/internal/domain"
)

// deriveOdds computes the three fixed odds from the seeded pool ratios. Raw
// parimutuel odds (total/outcome) are compressed into the configured band by
// linear interpolation between the raw floor and ceiling, clamped at both
// ends. Compression bounds the ledger's worst-case exposure no matter how
// skewed the seed split is.
func (e *Engine) deriveOdds(pool domain.EventPool) ([domain.OutcomeCount]uint64, error) {
	var odds [domain.OutcomeCount]uint64
	total := pool.Total()
	for i := 0; i < domain.OutcomeCount; i++ {
		balance := pool.Balances[i]
		if balance == 0 {
			return odds, fmt.Errorf("empty outcome pool %d", i)
		}
		raw, err := domain.MulDiv(total, domain.FixedScale, balance)
		if err != nil {
			return odds, err
		}
		odds[i] = e.compressOdds(raw)
	}
	return odds, nil
}

// compressOdds maps raw odds onto [OddsFloor, OddsCeil].
func (e *Engine) compressOdds(raw uint64) uint64 {
	cfg := e.cfg
	if raw <= cfg.RawOddsFloor {
		return cfg.OddsFloor
	}
	if raw >= cfg.RawOddsCeil {
		return cfg.OddsCeil
	}
	span := cfg.OddsCeil - cfg.OddsFloor
	rawSpan := cfg.RawOddsCeil - cfg.RawOddsFloor
	// raw fits in the band, so the product stays well inside 64 bits.
	return cfg.OddsFloor + (raw-cfg.RawOddsFloor)*span/rawSpan
}

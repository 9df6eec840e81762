package engine

import (
	"sync"

	"github.com/parlayd/parlayd/internal/domain"
)

// standings accumulates per-entity performance from settled rounds. Once an
// entity has enough recorded matches its win rate replaces the hash-derived
// strength in the seeding split, so established entities get pools shaped by
// actual results.
type standings struct {
	mu         sync.RWMutex
	entries    map[string]*standing
	minMatches uint64
}

type standing struct {
	Matches uint64
	Points  uint64 // 3 per win, 1 per draw
}

func newStandings(minMatches uint64) *standings {
	return &standings{
		entries:    make(map[string]*standing),
		minMatches: minMatches,
	}
}

// record books one match result for an entity.
func (s *standings) record(entity string, points uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.entries[entity]
	if !ok {
		st = &standing{}
		s.entries[entity] = st
	}
	st.Matches++
	st.Points += points
}

// recordRound books every settled event of a round.
func (s *standings) recordRound(r *domain.Round) {
	for i := range r.Events {
		ev := &r.Events[i]
		if !ev.Settled {
			continue
		}
		switch ev.Result {
		case domain.OutcomeHome:
			s.record(ev.Fixture.Home, 3)
			s.record(ev.Fixture.Away, 0)
		case domain.OutcomeAway:
			s.record(ev.Fixture.Home, 0)
			s.record(ev.Fixture.Away, 3)
		case domain.OutcomeDraw:
			s.record(ev.Fixture.Home, 1)
			s.record(ev.Fixture.Away, 1)
		}
	}
}

// strength returns the entity's standing as a 0..100 win-rate figure and
// whether enough history exists to use it.
func (s *standings) strength(entity string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[entity]
	if !ok || st.Matches < s.minMatches {
		return 0, false
	}
	return st.Points * 100 / (st.Matches * 3), true
}

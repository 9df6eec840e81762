// Package service orchestrates the wagering engine with persistence, the
// odds cache, the event bus and operator notifications. The in-memory engine
// is authoritative for all accounting; services write results through to the
// stores so state survives restarts and feeds reporting queries.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/engine"
)

// RoundService drives the round lifecycle: seeding, settlement and revenue
// finalization.
type RoundService struct {
	engine   *engine.Engine
	rounds   domain.RoundStore
	journal  domain.LedgerEventStore
	odds     domain.OddsCache
	bus      domain.EventBus
	notifier Notifier
	logger   *slog.Logger
}

// Notifier is the slice of the notification layer the services use. A nil
// implementation disables notifications.
type Notifier interface {
	RoundSettled(ctx context.Context, round *domain.Round) error
	RevenueFinalized(ctx context.Context, round *domain.Round) error
	LargeClaim(ctx context.Context, bet *domain.Bet) error
	LiquidityLow(ctx context.Context, snap domain.LedgerSnapshot) error
}

// NewRoundService creates a RoundService with all required dependencies.
// odds, bus and notifier may be nil when the corresponding backends are not
// configured.
func NewRoundService(
	eng *engine.Engine,
	rounds domain.RoundStore,
	journal domain.LedgerEventStore,
	odds domain.OddsCache,
	bus domain.EventBus,
	notifier Notifier,
	logger *slog.Logger,
) *RoundService {
	return &RoundService{
		engine:   eng,
		rounds:   rounds,
		journal:  journal,
		odds:     odds,
		bus:      bus,
		notifier: notifier,
		logger:   logger,
	}
}

// SeedRound seeds a new round with the given fixtures, locks its odds, and
// persists the result.
func (s *RoundService) SeedRound(ctx context.Context, roundID uint64, fixtures []domain.Fixture) (domain.Round, error) {
	round, err := s.engine.SeedRound(roundID, fixtures)
	if err != nil {
		return domain.Round{}, fmt.Errorf("round_service: seed round %d: %w", roundID, err)
	}

	s.persistRound(ctx, &round)
	s.recordJournal(ctx, domain.LedgerEvent{
		Kind:      domain.LedgerEventBorrow,
		RoundID:   round.ID,
		Amount:    round.SeedAmount,
		CreatedAt: round.SeededAt,
	})

	if s.odds != nil {
		for i, ev := range round.Events {
			triple := domain.OddsTriple{
				Home: ev.Odds.Odds[domain.OutcomeHome],
				Away: ev.Odds.Odds[domain.OutcomeAway],
				Draw: ev.Odds.Odds[domain.OutcomeDraw],
			}
			if err := s.odds.SetOdds(ctx, round.ID, i, triple); err != nil {
				s.logger.WarnContext(ctx, "round_service: odds cache write failed",
					slog.Uint64("round_id", round.ID),
					slog.Int("event_index", i),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	s.publish(ctx, domain.ChannelRounds, domain.RoundEvent{
		Type:    "seeded",
		RoundID: round.ID,
		At:      round.SeededAt.Unix(),
	})

	s.logger.InfoContext(ctx, "round_service: round seeded",
		slog.Uint64("round_id", round.ID),
		slog.Int("events", len(round.Events)),
		slog.Uint64("seed_amount", round.SeedAmount),
	)

	return round, nil
}

// SettleRound records event outcomes, computes the round's liability and
// persists the result.
func (s *RoundService) SettleRound(ctx context.Context, roundID uint64, outcomes []domain.Outcome) (domain.Round, error) {
	round, err := s.engine.SettleRound(roundID, outcomes)
	if err != nil {
		return domain.Round{}, fmt.Errorf("round_service: settle round %d: %w", roundID, err)
	}

	s.persistRound(ctx, &round)
	s.publish(ctx, domain.ChannelRounds, domain.RoundEvent{
		Type:    "settled",
		RoundID: round.ID,
		At:      round.SettledAt.Unix(),
	})

	if s.notifier != nil {
		if err := s.notifier.RoundSettled(ctx, &round); err != nil {
			s.logger.WarnContext(ctx, "round_service: settle notification failed",
				slog.Uint64("round_id", round.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "round_service: round settled",
		slog.Uint64("round_id", round.ID),
		slog.Uint64("owed_to_winners", round.OwedToWinners),
		slog.Uint64("winning_pools", round.WinningPools),
		slog.Uint64("losing_pools", round.LosingPools),
	)

	return round, nil
}

// FinalizeRevenue closes the round's books, returning ledger capital and
// carving the season reward, then persists the result.
func (s *RoundService) FinalizeRevenue(ctx context.Context, roundID uint64) (domain.Round, error) {
	round, err := s.engine.FinalizeRevenue(roundID)
	if err != nil {
		return domain.Round{}, fmt.Errorf("round_service: finalize round %d: %w", roundID, err)
	}

	s.persistRound(ctx, &round)
	s.recordJournal(ctx, domain.LedgerEvent{
		Kind:      domain.LedgerEventReturn,
		RoundID:   round.ID,
		Amount:    round.ReturnedToLedger,
		CreatedAt: round.FinalizedAt,
	})
	if round.SeasonReward > 0 {
		s.recordJournal(ctx, domain.LedgerEvent{
			Kind:      domain.LedgerEventSeasonPool,
			RoundID:   round.ID,
			Amount:    round.SeasonReward,
			CreatedAt: round.FinalizedAt,
		})
	}

	// The round is closed; its cached odds no longer serve previews.
	if s.odds != nil {
		if err := s.odds.InvalidateRound(ctx, round.ID); err != nil {
			s.logger.WarnContext(ctx, "round_service: odds cache invalidation failed",
				slog.Uint64("round_id", round.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.publish(ctx, domain.ChannelRounds, domain.RoundEvent{
		Type:    "finalized",
		RoundID: round.ID,
		At:      round.FinalizedAt.Unix(),
	})

	if s.notifier != nil {
		if err := s.notifier.RevenueFinalized(ctx, &round); err != nil {
			s.logger.WarnContext(ctx, "round_service: finalize notification failed",
				slog.Uint64("round_id", round.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "round_service: revenue finalized",
		slog.Uint64("round_id", round.ID),
		slog.Uint64("season_reward", round.SeasonReward),
		slog.Uint64("protocol_fee", round.ProtocolFee),
	)

	return round, nil
}

// GetRound returns a round, preferring the live engine copy and falling back
// to the persistent store for archived rounds.
func (s *RoundService) GetRound(ctx context.Context, roundID uint64) (domain.Round, error) {
	round, err := s.engine.RoundInfo(roundID)
	if err == nil {
		return round, nil
	}

	stored, storeErr := s.rounds.GetByID(ctx, roundID)
	if storeErr != nil {
		return domain.Round{}, fmt.Errorf("round_service: get round %d: %w", roundID, storeErr)
	}
	return *stored, nil
}

// ListRecent returns recently stored rounds, newest first.
func (s *RoundService) ListRecent(ctx context.Context, opts domain.ListOpts) ([]*domain.Round, error) {
	rounds, err := s.rounds.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("round_service: list recent: %w", err)
	}
	return rounds, nil
}

// PreviewOdds returns the locked odds for one event, serving from the cache
// when possible.
func (s *RoundService) PreviewOdds(ctx context.Context, roundID uint64, eventIndex int) (domain.OddsTriple, error) {
	if s.odds != nil {
		if triple, err := s.odds.GetOdds(ctx, roundID, eventIndex); err == nil {
			return triple, nil
		}
	}

	triple, err := s.engine.PreviewOdds(roundID, eventIndex)
	if err != nil {
		return domain.OddsTriple{}, fmt.Errorf("round_service: preview odds %d/%d: %w", roundID, eventIndex, err)
	}

	if s.odds != nil {
		if cacheErr := s.odds.SetOdds(ctx, roundID, eventIndex, triple); cacheErr != nil {
			s.logger.WarnContext(ctx, "round_service: odds cache backfill failed",
				slog.Uint64("round_id", roundID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return triple, nil
}

// OperatorBalance returns the accumulated protocol fees.
func (s *RoundService) OperatorBalance() uint64 {
	return s.engine.OperatorBalance()
}

// SeasonPool returns the accumulated season reward pool.
func (s *RoundService) SeasonPool() uint64 {
	return s.engine.SeasonPool()
}

// persistRound writes the round through to the store. The engine remains
// authoritative; a failed write is logged and retried on the next mutation
// of the same round.
func (s *RoundService) persistRound(ctx context.Context, round *domain.Round) {
	if err := s.rounds.Upsert(ctx, round); err != nil {
		s.logger.ErrorContext(ctx, "round_service: persist round failed",
			slog.Uint64("round_id", round.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RoundService) recordJournal(ctx context.Context, ev domain.LedgerEvent) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if err := s.journal.Insert(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "round_service: journal write failed",
			slog.String("kind", string(ev.Kind)),
			slog.Uint64("round_id", ev.RoundID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *RoundService) publish(ctx context.Context, channel string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "round_service: publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

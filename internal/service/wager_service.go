package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/engine"
)

// WagerService handles bet placement, payout claims and previews.
type WagerService struct {
	engine              *engine.Engine
	bets                domain.BetStore
	rounds              domain.RoundStore
	journal             domain.LedgerEventStore
	bus                 domain.EventBus
	notifier            Notifier
	largeClaimThreshold uint64
	logger              *slog.Logger
}

// NewWagerService creates a WagerService with all required dependencies.
// bus and notifier may be nil when the corresponding backends are not
// configured; largeClaimThreshold of zero disables large-claim alerts.
func NewWagerService(
	eng *engine.Engine,
	bets domain.BetStore,
	rounds domain.RoundStore,
	journal domain.LedgerEventStore,
	bus domain.EventBus,
	notifier Notifier,
	largeClaimThreshold uint64,
	logger *slog.Logger,
) *WagerService {
	return &WagerService{
		engine:              eng,
		bets:                bets,
		rounds:              rounds,
		journal:             journal,
		bus:                 bus,
		notifier:            notifier,
		largeClaimThreshold: largeClaimThreshold,
		logger:              logger,
	}
}

// PlaceBet accepts a wager at the round's locked odds and persists it.
func (s *WagerService) PlaceBet(ctx context.Context, account string, roundID uint64, stake uint64, legs []engine.LegInput) (domain.Bet, error) {
	bet, err := s.engine.PlaceBet(account, roundID, stake, legs)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("wager_service: place bet: %w", err)
	}

	if err := s.bets.Create(ctx, &bet); err != nil {
		s.logger.ErrorContext(ctx, "wager_service: persist bet failed",
			slog.String("bet_id", bet.ID),
			slog.String("error", err.Error()),
		)
	}
	s.persistRound(ctx, roundID)

	if fee := bet.Stake - bet.StakeAfterFee; fee > 0 {
		s.recordJournal(ctx, domain.LedgerEvent{
			Kind:      domain.LedgerEventFee,
			Account:   account,
			RoundID:   roundID,
			Amount:    fee,
			CreatedAt: bet.PlacedAt,
		})
	}
	if bet.Borrowed > 0 {
		s.recordJournal(ctx, domain.LedgerEvent{
			Kind:      domain.LedgerEventBorrow,
			RoundID:   roundID,
			Amount:    bet.Borrowed,
			CreatedAt: bet.PlacedAt,
		})
	}

	s.publish(ctx, domain.ChannelBets, domain.BetEvent{
		Type:       "placed",
		BetID:      bet.ID,
		RoundID:    roundID,
		Account:    account,
		Stake:      stake,
		Legs:       len(bet.Legs),
		Multiplier: bet.Multiplier,
		At:         bet.PlacedAt.Unix(),
	})

	s.logger.InfoContext(ctx, "wager_service: bet placed",
		slog.String("bet_id", bet.ID),
		slog.Uint64("round_id", roundID),
		slog.String("account", account),
		slog.Uint64("stake", stake),
		slog.Int("legs", len(bet.Legs)),
		slog.Uint64("multiplier", bet.Multiplier),
	)

	return bet, nil
}

// Claim pays out a settled bet. minPayout guards the caller against payouts
// reduced by caps between preview and claim.
func (s *WagerService) Claim(ctx context.Context, betID, account string, minPayout uint64) (uint64, error) {
	payout, err := s.engine.Claim(betID, account, minPayout)
	if err != nil {
		return 0, fmt.Errorf("wager_service: claim bet %s: %w", betID, err)
	}

	now := time.Now().UTC()
	if err := s.bets.MarkClaimed(ctx, betID, payout, now); err != nil {
		s.logger.ErrorContext(ctx, "wager_service: persist claim failed",
			slog.String("bet_id", betID),
			slog.String("error", err.Error()),
		)
	}

	bet, betErr := s.engine.Bet(betID)
	if betErr == nil {
		s.persistRound(ctx, bet.RoundID)

		if payout > 0 {
			s.recordJournal(ctx, domain.LedgerEvent{
				Kind:      domain.LedgerEventPayout,
				Account:   account,
				RoundID:   bet.RoundID,
				Amount:    payout,
				CreatedAt: now,
			})
		}

		s.publish(ctx, domain.ChannelClaims, domain.BetEvent{
			Type:    "claimed",
			BetID:   betID,
			RoundID: bet.RoundID,
			Account: account,
			Payout:  payout,
			At:      now.Unix(),
		})

		if s.notifier != nil && s.largeClaimThreshold > 0 && payout >= s.largeClaimThreshold {
			if err := s.notifier.LargeClaim(ctx, &bet); err != nil {
				s.logger.WarnContext(ctx, "wager_service: large claim notification failed",
					slog.String("bet_id", betID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	s.logger.InfoContext(ctx, "wager_service: bet claimed",
		slog.String("bet_id", betID),
		slog.String("account", account),
		slog.Uint64("payout", payout),
	)

	return payout, nil
}

// GetBet returns a bet, preferring the live engine copy and falling back to
// the persistent store.
func (s *WagerService) GetBet(ctx context.Context, betID string) (domain.Bet, error) {
	bet, err := s.engine.Bet(betID)
	if err == nil {
		return bet, nil
	}

	stored, storeErr := s.bets.GetByID(ctx, betID)
	if storeErr != nil {
		return domain.Bet{}, fmt.Errorf("wager_service: get bet %s: %w", betID, storeErr)
	}
	return *stored, nil
}

// ListByRound returns a round's bets in placement order.
func (s *WagerService) ListByRound(ctx context.Context, roundID uint64, opts domain.ListOpts) ([]*domain.Bet, error) {
	bets, err := s.bets.ListByRound(ctx, roundID, opts)
	if err != nil {
		return nil, fmt.Errorf("wager_service: list bets by round: %w", err)
	}
	return bets, nil
}

// ListByAccount returns an account's bets, newest first.
func (s *WagerService) ListByAccount(ctx context.Context, account string, opts domain.ListOpts) ([]*domain.Bet, error) {
	bets, err := s.bets.ListByAccount(ctx, account, opts)
	if err != nil {
		return nil, fmt.Errorf("wager_service: list bets by account: %w", err)
	}
	return bets, nil
}

// PreviewPayout returns a settled bet's payout without claiming it.
func (s *WagerService) PreviewPayout(ctx context.Context, betID string) (domain.PayoutPreview, error) {
	preview, err := s.engine.PreviewBetPayout(betID)
	if err != nil {
		return domain.PayoutPreview{}, fmt.Errorf("wager_service: preview payout %s: %w", betID, err)
	}
	return preview, nil
}

// PreviewMultiplier quotes the parlay multiplier a hypothetical bet would
// lock at this moment.
func (s *WagerService) PreviewMultiplier(ctx context.Context, roundID uint64, legs []engine.LegInput) (domain.MultiplierQuote, error) {
	quote, err := s.engine.CurrentParlayMultiplier(roundID, legs)
	if err != nil {
		return domain.MultiplierQuote{}, fmt.Errorf("wager_service: preview multiplier: %w", err)
	}
	return quote, nil
}

func (s *WagerService) persistRound(ctx context.Context, roundID uint64) {
	round, err := s.engine.RoundInfo(roundID)
	if err != nil {
		return
	}
	if err := s.rounds.Upsert(ctx, &round); err != nil {
		s.logger.ErrorContext(ctx, "wager_service: persist round failed",
			slog.Uint64("round_id", roundID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *WagerService) recordJournal(ctx context.Context, ev domain.LedgerEvent) {
	if err := s.journal.Insert(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "wager_service: journal write failed",
			slog.String("kind", string(ev.Kind)),
			slog.Uint64("round_id", ev.RoundID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *WagerService) publish(ctx context.Context, channel string, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, channel, payload); err != nil {
		s.logger.WarnContext(ctx, "wager_service: publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/ledger"
)

// LiquidityService handles provider deposits and withdrawals against the
// shared ledger.
type LiquidityService struct {
	ledger       *ledger.Ledger
	positions    domain.LiquidityStore
	journal      domain.LedgerEventStore
	bus          domain.EventBus
	notifier     Notifier
	lowWaterMark uint64
	logger       *slog.Logger
}

// NewLiquidityService creates a LiquidityService with all required
// dependencies. bus and notifier may be nil when the corresponding backends
// are not configured; a lowWaterMark of zero disables low-liquidity alerts.
func NewLiquidityService(
	lgr *ledger.Ledger,
	positions domain.LiquidityStore,
	journal domain.LedgerEventStore,
	bus domain.EventBus,
	notifier Notifier,
	lowWaterMark uint64,
	logger *slog.Logger,
) *LiquidityService {
	return &LiquidityService{
		ledger:       lgr,
		positions:    positions,
		journal:      journal,
		bus:          bus,
		notifier:     notifier,
		lowWaterMark: lowWaterMark,
		logger:       logger,
	}
}

// Deposit adds liquidity for an account, mints shares, and persists the
// updated position and global counters.
func (s *LiquidityService) Deposit(ctx context.Context, account string, amount uint64) (uint64, error) {
	shares, err := s.ledger.Deposit(account, amount)
	if err != nil {
		return 0, fmt.Errorf("liquidity_service: deposit: %w", err)
	}

	now := time.Now().UTC()
	s.persistPosition(ctx, account)
	s.persistSnapshot(ctx)
	s.recordJournal(ctx, domain.LedgerEvent{
		Kind:      domain.LedgerEventDeposit,
		Account:   account,
		Amount:    amount,
		Shares:    shares,
		CreatedAt: now,
	})
	s.publish(ctx, domain.LiquidityEvent{
		Type:    "deposit",
		Account: account,
		Amount:  amount,
		Shares:  shares,
		At:      now.Unix(),
	})

	s.logger.InfoContext(ctx, "liquidity_service: deposit",
		slog.String("account", account),
		slog.Uint64("amount", amount),
		slog.Uint64("shares", shares),
	)

	return shares, nil
}

// Withdraw burns shares for an account and pays out the proportional value
// less the withdrawal fee, then persists the updated state.
func (s *LiquidityService) Withdraw(ctx context.Context, account string, shares uint64) (uint64, error) {
	paid, err := s.ledger.Withdraw(account, shares)
	if err != nil {
		return 0, fmt.Errorf("liquidity_service: withdraw: %w", err)
	}

	now := time.Now().UTC()
	s.persistPosition(ctx, account)
	s.persistSnapshot(ctx)
	s.recordJournal(ctx, domain.LedgerEvent{
		Kind:      domain.LedgerEventWithdraw,
		Account:   account,
		Amount:    paid,
		Shares:    shares,
		CreatedAt: now,
	})
	s.publish(ctx, domain.LiquidityEvent{
		Type:    "withdraw",
		Account: account,
		Amount:  paid,
		Shares:  shares,
		At:      now.Unix(),
	})
	s.checkLowWater(ctx)

	s.logger.InfoContext(ctx, "liquidity_service: withdraw",
		slog.String("account", account),
		slog.Uint64("shares", shares),
		slog.Uint64("paid", paid),
	)

	return paid, nil
}

// Position returns an account's position and its current redemption value.
func (s *LiquidityService) Position(ctx context.Context, account string) (domain.LiquidityPosition, uint64, error) {
	pos, value, err := s.ledger.Position(account)
	if err != nil {
		return domain.LiquidityPosition{}, 0, fmt.Errorf("liquidity_service: position %s: %w", account, err)
	}
	return pos, value, nil
}

// Snapshot returns the global ledger counters.
func (s *LiquidityService) Snapshot(ctx context.Context) domain.LedgerSnapshot {
	return s.ledger.Snapshot()
}

// Journal returns ledger journal rows for an account.
func (s *LiquidityService) Journal(ctx context.Context, account string, opts domain.ListOpts) ([]domain.LedgerEvent, error) {
	events, err := s.journal.ListByAccount(ctx, account, opts)
	if err != nil {
		return nil, fmt.Errorf("liquidity_service: journal %s: %w", account, err)
	}
	return events, nil
}

// PersistAll flushes the current ledger state: every provider position and
// the global counters. Called on graceful shutdown.
func (s *LiquidityService) PersistAll(ctx context.Context) error {
	for _, pos := range s.ledger.Positions() {
		if err := s.positions.UpsertPosition(ctx, pos); err != nil {
			return fmt.Errorf("liquidity_service: persist position %s: %w", pos.Account, err)
		}
	}
	if err := s.positions.SaveSnapshot(ctx, s.ledger.Snapshot()); err != nil {
		return fmt.Errorf("liquidity_service: persist snapshot: %w", err)
	}
	return nil
}

// checkLowWater alerts operators when the unreserved liquidity falls below
// the configured floor. Fires on every qualifying withdrawal; the notifier's
// event filter is the place to mute it.
func (s *LiquidityService) checkLowWater(ctx context.Context) {
	if s.notifier == nil || s.lowWaterMark == 0 {
		return
	}
	snap := s.ledger.Snapshot()
	if snap.Available() >= s.lowWaterMark {
		return
	}
	if err := s.notifier.LiquidityLow(ctx, snap); err != nil {
		s.logger.WarnContext(ctx, "liquidity_service: low liquidity notification failed",
			slog.Uint64("available", snap.Available()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *LiquidityService) persistPosition(ctx context.Context, account string) {
	pos, _, err := s.ledger.Position(account)
	if err != nil {
		// Full withdrawal removes the position; persist a zeroed record.
		pos = domain.LiquidityPosition{Account: account, UpdatedAt: time.Now().UTC()}
	}
	if err := s.positions.UpsertPosition(ctx, pos); err != nil {
		s.logger.ErrorContext(ctx, "liquidity_service: persist position failed",
			slog.String("account", account),
			slog.String("error", err.Error()),
		)
	}
}

func (s *LiquidityService) persistSnapshot(ctx context.Context) {
	if err := s.positions.SaveSnapshot(ctx, s.ledger.Snapshot()); err != nil {
		s.logger.ErrorContext(ctx, "liquidity_service: persist snapshot failed",
			slog.String("error", err.Error()),
		)
	}
}

func (s *LiquidityService) recordJournal(ctx context.Context, ev domain.LedgerEvent) {
	if err := s.journal.Insert(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "liquidity_service: journal write failed",
			slog.String("kind", string(ev.Kind)),
			slog.String("account", ev.Account),
			slog.String("error", err.Error()),
		)
	}
}

func (s *LiquidityService) publish(ctx context.Context, payload any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelLiquidity, payload); err != nil {
		s.logger.WarnContext(ctx, "liquidity_service: publish failed",
			slog.String("error", err.Error()),
		)
	}
}

package domain

import (
	"context"
	"time"
)

// OddsCache serves locked-odds snapshots to read-only queries. Entries are
// written once when a round's odds lock; readers tolerate a slightly stale
// copy per the engine's concurrency model.
type OddsCache interface {
	SetOdds(ctx context.Context, roundID uint64, eventIndex int, odds OddsTriple) error
	GetOdds(ctx context.Context, roundID uint64, eventIndex int) (OddsTriple, error)
	InvalidateRound(ctx context.Context, roundID uint64) error
}

// EventBus publishes round lifecycle events for downstream consumers (the
// websocket hub relays them to clients).
type EventBus interface {
	Publish(ctx context.Context, channel string, payload any) error
	Subscribe(ctx context.Context, channels ...string) (<-chan BusMessage, func(), error)
}

// BusMessage is one message received from the event bus.
type BusMessage struct {
	Channel string
	Payload []byte
}

// LockManager provides distributed locking for singleton jobs.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter throttles request rates per key across server instances.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Well-known event bus channels.
const (
	ChannelRounds    = "ch:rounds"
	ChannelBets      = "ch:bets"
	ChannelClaims    = "ch:claims"
	ChannelLiquidity = "ch:liquidity"
)

// RoundEvent is the payload published on round lifecycle transitions.
type RoundEvent struct {
	Type    string `json:"type"` // "seeded", "settled", "finalized"
	RoundID uint64 `json:"round_id"`
	At      int64  `json:"at"` // unix seconds
}

// BetEvent is the payload published when a bet is accepted or claimed.
type BetEvent struct {
	Type       string `json:"type"` // "placed", "claimed"
	BetID      string `json:"bet_id"`
	RoundID    uint64 `json:"round_id"`
	Account    string `json:"account"`
	Stake      uint64 `json:"stake,omitempty"`
	Legs       int    `json:"legs,omitempty"`
	Multiplier uint64 `json:"multiplier,omitempty"`
	Payout     uint64 `json:"payout,omitempty"`
	At         int64  `json:"at"`
}

// LiquidityEvent is the payload published on deposits and withdrawals.
type LiquidityEvent struct {
	Type    string `json:"type"` // "deposit", "withdraw"
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
	Shares  uint64 `json:"shares"`
	At      int64  `json:"at"`
}

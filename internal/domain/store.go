package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// RoundStore persists round accounting records. The in-memory engine is
// authoritative while a round is live; stores are write-through so state
// survives restarts and feeds reporting queries.
type RoundStore interface {
	Upsert(ctx context.Context, round *Round) error
	GetByID(ctx context.Context, id uint64) (*Round, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]*Round, error)
	ListFinalizedBefore(ctx context.Context, before time.Time) ([]*Round, error)
}

// BetStore persists bet records.
type BetStore interface {
	Create(ctx context.Context, bet *Bet) error
	MarkClaimed(ctx context.Context, id string, payout uint64, at time.Time) error
	GetByID(ctx context.Context, id string) (*Bet, error)
	ListByRound(ctx context.Context, roundID uint64, opts ListOpts) ([]*Bet, error)
	ListByAccount(ctx context.Context, account string, opts ListOpts) ([]*Bet, error)
}

// LiquidityStore persists provider positions and the global ledger counters.
type LiquidityStore interface {
	UpsertPosition(ctx context.Context, pos LiquidityPosition) error
	GetPosition(ctx context.Context, account string) (LiquidityPosition, error)
	ListPositions(ctx context.Context, opts ListOpts) ([]LiquidityPosition, error)
	SaveSnapshot(ctx context.Context, snap LedgerSnapshot) error
	LoadSnapshot(ctx context.Context) (LedgerSnapshot, error)
}

// LedgerEventStore persists the append-only ledger journal.
type LedgerEventStore interface {
	Insert(ctx context.Context, ev LedgerEvent) error
	ListByRound(ctx context.Context, roundID uint64, opts ListOpts) ([]LedgerEvent, error)
	ListByAccount(ctx context.Context, account string, opts ListOpts) ([]LedgerEvent, error)
}

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// Archiver moves finalized rounds and their bets to cold storage.
type Archiver interface {
	ArchiveRounds(ctx context.Context, before time.Time) (int64, error)
}

package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parlayd/parlayd/internal/domain"
)

// RoundArchiveStore is the narrow slice of the round store the archiver
// needs: finalized-round queries plus deletion of archived rounds from hot
// storage.
type RoundArchiveStore interface {
	ListFinalizedBefore(ctx context.Context, before time.Time) ([]*domain.Round, error)
	Delete(ctx context.Context, id uint64) error
}

// BetArchiveStore provides read access to a round's bets for archival.
type BetArchiveStore interface {
	ListByRound(ctx context.Context, roundID uint64, opts domain.ListOpts) ([]*domain.Bet, error)
}

// Archiver implements domain.Archiver. It moves revenue-finalized rounds and
// their bets out of Postgres into S3 as JSONL, one object pair per round:
//
//	rounds/{id}/round.jsonl
//	rounds/{id}/bets.jsonl
//
// A round is deleted from hot storage only after both uploads succeed, so a
// partial failure leaves the round queued for the next sweep.
type Archiver struct {
	writer domain.BlobWriter
	rounds RoundArchiveStore
	bets   BetArchiveStore
	ledger domain.LedgerEventStore
}

// NewArchiver creates an Archiver writing through the given blob writer.
func NewArchiver(writer domain.BlobWriter, rounds RoundArchiveStore, bets BetArchiveStore, ledger domain.LedgerEventStore) *Archiver {
	return &Archiver{
		writer: writer,
		rounds: rounds,
		bets:   bets,
		ledger: ledger,
	}
}

// ArchiveRounds uploads every revenue-finalized round older than the cutoff
// and removes it from hot storage. It returns the number of rounds archived.
func (a *Archiver) ArchiveRounds(ctx context.Context, before time.Time) (int64, error) {
	rounds, err := a.rounds.ListFinalizedBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list finalized rounds: %w", err)
	}

	var archived int64
	for _, round := range rounds {
		if err := a.archiveRound(ctx, round); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}

func (a *Archiver) archiveRound(ctx context.Context, round *domain.Round) error {
	roundBuf, err := marshalJSONL([]*domain.Round{round})
	if err != nil {
		return fmt.Errorf("s3blob: encode round %d: %w", round.ID, err)
	}
	path := roundArchivePath(round.ID, "round.jsonl")
	if err := a.writer.Put(ctx, path, bytes.NewReader(roundBuf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: upload round %d: %w", round.ID, err)
	}

	bets, err := a.bets.ListByRound(ctx, round.ID, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("s3blob: list bets for round %d: %w", round.ID, err)
	}
	betsBuf, err := marshalJSONL(bets)
	if err != nil {
		return fmt.Errorf("s3blob: encode bets for round %d: %w", round.ID, err)
	}
	path = roundArchivePath(round.ID, "bets.jsonl")
	if err := a.writer.Put(ctx, path, bytes.NewReader(betsBuf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: upload bets for round %d: %w", round.ID, err)
	}

	events, err := a.ledger.ListByRound(ctx, round.ID, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("s3blob: list ledger events for round %d: %w", round.ID, err)
	}
	if len(events) > 0 {
		eventsBuf, err := marshalJSONL(events)
		if err != nil {
			return fmt.Errorf("s3blob: encode ledger events for round %d: %w", round.ID, err)
		}
		path = roundArchivePath(round.ID, "ledger.jsonl")
		if err := a.writer.Put(ctx, path, bytes.NewReader(eventsBuf), "application/x-ndjson"); err != nil {
			return fmt.Errorf("s3blob: upload ledger events for round %d: %w", round.ID, err)
		}
	}

	if err := a.rounds.Delete(ctx, round.ID); err != nil {
		return fmt.Errorf("s3blob: delete archived round %d: %w", round.ID, err)
	}
	return nil
}

func roundArchivePath(roundID uint64, file string) string {
	return fmt.Sprintf("rounds/%d/%s", roundID, file)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*Archiver)(nil)

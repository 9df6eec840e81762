package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/engine"
	"github.com/parlayd/parlayd/internal/ledger"
)

// restoreBatch is the page size used when reloading state at boot.
const restoreBatch = 500

// Restore reloads the ledger and every non-archived round (with its bets)
// from the stores into the in-memory engine. Archived rounds stay in cold
// storage and are served read-only from S3.
func Restore(
	ctx context.Context,
	eng *engine.Engine,
	lgr *ledger.Ledger,
	rounds domain.RoundStore,
	bets domain.BetStore,
	liquidity domain.LiquidityStore,
	logger *slog.Logger,
) error {
	snap, err := liquidity.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("restore: load ledger snapshot: %w", err)
	}

	var positions []domain.LiquidityPosition
	for offset := 0; ; offset += restoreBatch {
		page, err := liquidity.ListPositions(ctx, domain.ListOpts{Limit: restoreBatch, Offset: offset})
		if err != nil {
			return fmt.Errorf("restore: list positions: %w", err)
		}
		positions = append(positions, page...)
		if len(page) < restoreBatch {
			break
		}
	}
	lgr.Restore(snap, positions)

	var (
		allRounds []*domain.Round
		allBets   []*domain.Bet
	)
	for offset := 0; ; offset += restoreBatch {
		page, err := rounds.ListRecent(ctx, domain.ListOpts{Limit: restoreBatch, Offset: offset})
		if err != nil {
			return fmt.Errorf("restore: list rounds: %w", err)
		}
		allRounds = append(allRounds, page...)
		if len(page) < restoreBatch {
			break
		}
	}

	for _, round := range allRounds {
		for offset := 0; ; offset += restoreBatch {
			page, err := bets.ListByRound(ctx, round.ID, domain.ListOpts{Limit: restoreBatch, Offset: offset})
			if err != nil {
				return fmt.Errorf("restore: list bets for round %d: %w", round.ID, err)
			}
			allBets = append(allBets, page...)
			if len(page) < restoreBatch {
				break
			}
		}
	}

	eng.Restore(allRounds, allBets)

	logger.InfoContext(ctx, "restore: state reloaded",
		slog.Int("rounds", len(allRounds)),
		slog.Int("bets", len(allBets)),
		slog.Int("positions", len(positions)),
		slog.Uint64("total_liquidity", snap.TotalLiquidity),
	)

	return nil
}

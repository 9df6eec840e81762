package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/pipeline"
	"github.com/parlayd/parlayd/internal/server"
	"github.com/parlayd/parlayd/internal/server/handler"
	"github.com/parlayd/parlayd/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP shutdown and the final state flush.
const shutdownTimeout = 10 * time.Second

// archiveLockTTL bounds how long one instance may hold the sweep lock.
const archiveLockTTL = 30 * time.Minute

// ServeMode starts the HTTP API, the WebSocket hub, and (when enabled) the
// background archive sweeper. It blocks until the context is cancelled, then
// drains the server and flushes ledger state to the store.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode", slog.Int("port", a.cfg.Server.Port))

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(deps.EventBus, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		HMACSecret:  a.cfg.Server.HMACSecret,
		RateLimit:   a.cfg.Server.RateLimit,
	}, server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Rounds:    handler.NewRoundHandler(deps.RoundService, a.logger),
		Bets:      handler.NewBetHandler(deps.WagerService, a.logger),
		Liquidity: handler.NewLiquidityHandler(deps.LiquidityService, a.logger),
	}, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", slog.String("error", err.Error()))
		}
		// Flush ledger positions so a restart restores exact share balances.
		if err := deps.LiquidityService.PersistAll(shutdownCtx); err != nil {
			a.logger.Error("final state flush failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})

	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		sweeper := a.newSweeper(deps)
		g.Go(func() error {
			return a.runSweeps(ctx, sweeper)
		})
	}

	return g.Wait()
}

// ArchiveMode runs the cold-storage sweeper as a standalone process: one
// sweep immediately, then on the configured schedule until cancelled.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return fmt.Errorf("app: archive mode requires s3 configuration")
	}
	a.logger.InfoContext(ctx, "starting archive mode",
		slog.Int("retention_days", a.cfg.Archive.RetentionDays),
	)

	sweeper := a.newSweeper(deps)
	if err := sweeper.Run(ctx); err != nil {
		a.logger.Error("initial archive sweep failed", slog.String("error", err.Error()))
	}
	return a.runSweeps(ctx, sweeper)
}

// newSweeper builds the periodic archiver with distributed-lock protection so
// overlapping instances never sweep concurrently.
func (a *App) newSweeper(deps *Dependencies) *pipeline.Archiver {
	guarded := &lockedArchiver{
		inner:  deps.Archiver,
		locks:  deps.LockManager,
		logger: a.logger,
	}
	return pipeline.NewArchiver(guarded, a.cfg.Archive.RetentionDays, a.logger)
}

// runSweeps blocks running the sweeper on the configured schedule. A cron
// expression takes precedence over the fixed interval.
func (a *App) runSweeps(ctx context.Context, sweeper *pipeline.Archiver) error {
	if a.cfg.Archive.Cron != "" {
		return sweeper.RunCron(ctx, a.cfg.Archive.Cron)
	}
	return sweeper.RunInterval(ctx, a.cfg.Archive.Interval.Duration)
}

// lockedArchiver wraps an Archiver with a distributed lock so only one
// instance performs a sweep at a time. A held lock skips the sweep instead of
// failing it.
type lockedArchiver struct {
	inner  domain.Archiver
	locks  domain.LockManager
	logger *slog.Logger
}

func (la *lockedArchiver) ArchiveRounds(ctx context.Context, before time.Time) (int64, error) {
	unlock, err := la.locks.Acquire(ctx, "archive-sweep", archiveLockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			la.logger.Info("archive sweep already running elsewhere, skipping")
			return 0, nil
		}
		return 0, fmt.Errorf("app: acquire archive lock: %w", err)
	}
	defer unlock()

	return la.inner.ArchiveRounds(ctx, before)
}

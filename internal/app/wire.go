package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/parlayd/parlayd/internal/blob/s3"
	"github.com/parlayd/parlayd/internal/cache/redis"
	"github.com/parlayd/parlayd/internal/config"
	"github.com/parlayd/parlayd/internal/domain"
	"github.com/parlayd/parlayd/internal/engine"
	"github.com/parlayd/parlayd/internal/ledger"
	"github.com/parlayd/parlayd/internal/notify"
	"github.com/parlayd/parlayd/internal/service"
	"github.com/parlayd/parlayd/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	RoundStore       domain.RoundStore
	BetStore         domain.BetStore
	LiquidityStore   domain.LiquidityStore
	LedgerEventStore domain.LedgerEventStore

	// Caches
	OddsCache   domain.OddsCache
	EventBus    domain.EventBus
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Core accounting
	Ledger *ledger.Ledger
	Engine *engine.Engine

	// Services
	RoundService     *service.RoundService
	WagerService     *service.WagerService
	LiquidityService *service.LiquidityService

	// Notifications
	Notifier *notify.Notifier
}

// needsS3 returns true when the configuration requires object storage: either
// the dedicated archive mode or a serve instance with background sweeps
// enabled.
func needsS3(cfg *config.Config) bool {
	return cfg.Mode == "archive" || cfg.Archive.Enabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	roundStore := postgres.NewRoundStore(pool)
	betStore := postgres.NewBetStore(pool)
	liquidityStore := postgres.NewLiquidityStore(pool)
	ledgerEventStore := postgres.NewLedgerEventStore(pool)

	deps.RoundStore = roundStore
	deps.BetStore = betStore
	deps.LiquidityStore = liquidityStore
	deps.LedgerEventStore = ledgerEventStore

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.OddsCache = redis.NewOddsCache(redisClient)
	deps.EventBus = redis.NewEventBus(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- S3 blob storage (archive mode or background sweeps) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, roundStore, betStore, ledgerEventStore)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Ledger and engine ---
	deps.Ledger = ledger.New(ledger.Config{
		WithdrawFeeRate: cfg.Ledger.WithdrawFeeRate,
		MinLiquidity:    cfg.Ledger.MinLiquidity,
	}, logger)

	eng, err := engine.New(engine.Config{
		EventsPerRound:      cfg.Engine.EventsPerRound,
		SeedPerEvent:        cfg.Engine.SeedPerEvent,
		FeeRate:             cfg.Engine.FeeRate,
		MaxStake:            cfg.Engine.MaxStake,
		MaxPayoutPerBet:     cfg.Engine.MaxPayoutPerBet,
		MaxPayoutPerRound:   cfg.Engine.MaxPayoutPerRound,
		SeasonRewardRate:    cfg.Engine.SeasonRewardRate,
		RawOddsFloor:        cfg.Engine.RawOddsFloor,
		RawOddsCeil:         cfg.Engine.RawOddsCeil,
		OddsFloor:           cfg.Engine.OddsFloor,
		OddsCeil:            cfg.Engine.OddsCeil,
		LegMultipliers:      cfg.Engine.LegMultipliers,
		TierBounds:          cfg.Engine.TierBounds,
		TierFactors:         cfg.Engine.TierFactors,
		GateThreshold:       cfg.Engine.GateThreshold,
		GateFloor:           cfg.Engine.GateFloor,
		StandingsMinMatches: cfg.Engine.StandingsMinMatches,
	}, deps.Ledger, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: engine: %w", err)
	}
	deps.Engine = eng

	// Reload persisted state so the in-memory engine picks up where the last
	// process left off.
	if err := service.Restore(ctx, eng, deps.Ledger, roundStore, betStore, liquidityStore, logger); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: restore state: %w", err)
	}

	// --- Services ---
	deps.RoundService = service.NewRoundService(
		eng, roundStore, ledgerEventStore, deps.OddsCache, deps.EventBus, deps.Notifier, logger,
	)
	deps.WagerService = service.NewWagerService(
		eng, betStore, roundStore, ledgerEventStore, deps.EventBus, deps.Notifier,
		cfg.Notify.LargeClaimThreshold, logger,
	)
	deps.LiquidityService = service.NewLiquidityService(
		deps.Ledger, liquidityStore, ledgerEventStore, deps.EventBus, deps.Notifier,
		cfg.Notify.LowLiquidityThreshold, logger,
	)

	return deps, cleanup, nil
}

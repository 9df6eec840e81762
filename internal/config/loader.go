package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/parlayd/parlayd/internal/crypto"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PARLAYD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	// Resolve an encrypted API key file into the plaintext key.
	if cfg.Server.APIKeyFile != "" {
		key, err := crypto.LoadSecret(crypto.SecretConfig{
			EncryptedPath: cfg.Server.APIKeyFile,
			Password:      cfg.Server.APIKeyPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("config: resolve api key: %w", err)
		}
		cfg.Server.APIKey = key
	}

	return &cfg, nil
}

// applyEnvOverrides reads well-known PARLAYD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Engine ──
	setUint64(&cfg.Engine.SeedPerEvent, "PARLAYD_ENGINE_SEED_PER_EVENT")
	setUint64(&cfg.Engine.FeeRate, "PARLAYD_ENGINE_FEE_RATE")
	setUint64(&cfg.Engine.MaxStake, "PARLAYD_ENGINE_MAX_STAKE")
	setUint64(&cfg.Engine.MaxPayoutPerBet, "PARLAYD_ENGINE_MAX_PAYOUT_PER_BET")
	setUint64(&cfg.Engine.MaxPayoutPerRound, "PARLAYD_ENGINE_MAX_PAYOUT_PER_ROUND")
	setUint64(&cfg.Engine.SeasonRewardRate, "PARLAYD_ENGINE_SEASON_REWARD_RATE")
	setInt(&cfg.Engine.EventsPerRound, "PARLAYD_ENGINE_EVENTS_PER_ROUND")

	// ── Ledger ──
	setUint64(&cfg.Ledger.WithdrawFeeRate, "PARLAYD_LEDGER_WITHDRAW_FEE_RATE")
	setUint64(&cfg.Ledger.MinLiquidity, "PARLAYD_LEDGER_MIN_LIQUIDITY")

	// ── Database ──
	setStr(&cfg.Database.DSN, "PARLAYD_DATABASE_DSN")
	setStr(&cfg.Database.Host, "PARLAYD_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PARLAYD_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PARLAYD_DATABASE_NAME")
	setStr(&cfg.Database.User, "PARLAYD_DATABASE_USER")
	setStr(&cfg.Database.Password, "PARLAYD_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PARLAYD_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "PARLAYD_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PARLAYD_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "PARLAYD_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PARLAYD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PARLAYD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PARLAYD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PARLAYD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PARLAYD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PARLAYD_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PARLAYD_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PARLAYD_S3_REGION")
	setStr(&cfg.S3.Bucket, "PARLAYD_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PARLAYD_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PARLAYD_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PARLAYD_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PARLAYD_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PARLAYD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PARLAYD_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "PARLAYD_SERVER_API_KEY")
	setStr(&cfg.Server.APIKeyFile, "PARLAYD_SERVER_API_KEY_FILE")
	setStr(&cfg.Server.APIKeyPassword, "PARLAYD_SERVER_API_KEY_PASSWORD")
	setStr(&cfg.Server.HMACSecret, "PARLAYD_SERVER_HMAC_SECRET")
	setInt(&cfg.Server.RateLimit, "PARLAYD_SERVER_RATE_LIMIT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PARLAYD_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PARLAYD_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PARLAYD_NOTIFY_DISCORD_WEBHOOK_URL")
	setUint64(&cfg.Notify.LargeClaimThreshold, "PARLAYD_NOTIFY_LARGE_CLAIM_THRESHOLD")
	setUint64(&cfg.Notify.LowLiquidityThreshold, "PARLAYD_NOTIFY_LOW_LIQUIDITY_THRESHOLD")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "PARLAYD_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Cron, "PARLAYD_ARCHIVE_CRON")
	setInt(&cfg.Archive.RetentionDays, "PARLAYD_ARCHIVE_RETENTION_DAYS")

	// ── Mode / logging ──
	setStr(&cfg.Mode, "PARLAYD_MODE")
	setStr(&cfg.LogLevel, "PARLAYD_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
}

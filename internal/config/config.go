// Package config defines the top-level configuration for the parlayd
// wagering engine and provides validation helpers.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PARLAYD_* environment
// variables.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Archive  ArchiveConfig  `toml:"archive"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EngineConfig holds the wagering core's tunable constants. All rates, odds
// and multipliers are fixed-point values scaled by 10_000.
type EngineConfig struct {
	EventsPerRound int    `toml:"events_per_round"`
	SeedPerEvent   uint64 `toml:"seed_per_event"`

	FeeRate           uint64 `toml:"fee_rate"`
	MaxStake          uint64 `toml:"max_stake"`
	MaxPayoutPerBet   uint64 `toml:"max_payout_per_bet"`
	MaxPayoutPerRound uint64 `toml:"max_payout_per_round"`
	SeasonRewardRate  uint64 `toml:"season_reward_rate"`

	RawOddsFloor uint64 `toml:"raw_odds_floor"`
	RawOddsCeil  uint64 `toml:"raw_odds_ceil"`
	OddsFloor    uint64 `toml:"odds_floor"`
	OddsCeil     uint64 `toml:"odds_ceil"`

	// LegMultipliers[n] is the base multiplier for an n-leg bet; index 0
	// is unused.
	LegMultipliers []uint64 `toml:"leg_multipliers"`
	TierBounds     []uint64 `toml:"tier_bounds"`
	TierFactors    []uint64 `toml:"tier_factors"`

	GateThreshold uint64 `toml:"gate_threshold"`
	GateFloor     uint64 `toml:"gate_floor"`

	StandingsMinMatches uint64 `toml:"standings_min_matches"`
}

// LedgerConfig holds liquidity ledger parameters.
type LedgerConfig struct {
	WithdrawFeeRate uint64 `toml:"withdraw_fee_rate"`
	MinLiquidity    uint64 `toml:"min_liquidity"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the round
// archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// APIKeyFile points at an encrypted secret file; decrypted with
	// APIKeyPassword it replaces APIKey at load time.
	APIKeyFile     string `toml:"api_key_file"`
	APIKeyPassword string `toml:"api_key_password"`
	// HMACSecret, when set, requires requests to carry a valid
	// X-Parlayd-Signature header.
	HMACSecret string `toml:"hmac_secret"`
	// RateLimit is requests per minute per client; zero disables limiting.
	RateLimit int `toml:"rate_limit"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
	// LargeClaimThreshold triggers an alert when a claim pays at least
	// this amount; zero disables the alert.
	LargeClaimThreshold uint64 `toml:"large_claim_threshold"`
	// LowLiquidityThreshold triggers an alert when the ledger's available
	// liquidity drops below this amount; zero disables the alert.
	LowLiquidityThreshold uint64 `toml:"low_liquidity_threshold"`
}

// ArchiveConfig holds the cold-storage archiver parameters.
type ArchiveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
	// Cron, when set, overrides Interval with a 5-field cron schedule.
	Cron          string `toml:"cron"`
	RetentionDays int    `toml:"retention_days"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Validate checks the configuration for obvious mistakes. Engine constant
// consistency is checked again by the engine itself.
func (c *Config) Validate() error {
	switch c.Mode {
	case "serve", "archive":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Engine.EventsPerRound <= 0 {
		return fmt.Errorf("config: engine.events_per_round must be positive")
	}
	if c.Engine.SeedPerEvent == 0 {
		return fmt.Errorf("config: engine.seed_per_event must be positive")
	}
	if c.Engine.MaxStake == 0 {
		return fmt.Errorf("config: engine.max_stake must be positive")
	}
	if c.Engine.MaxPayoutPerBet == 0 || c.Engine.MaxPayoutPerRound == 0 {
		return fmt.Errorf("config: payout caps must be positive")
	}
	if c.Engine.MaxPayoutPerBet > c.Engine.MaxPayoutPerRound {
		return fmt.Errorf("config: per-bet payout cap exceeds the round cap")
	}
	if len(c.Engine.TierFactors) != len(c.Engine.TierBounds)+1 {
		return fmt.Errorf("config: engine.tier_factors must have one more entry than tier_bounds")
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}

	if c.Database.DSN == "" && c.Database.Host == "" {
		return fmt.Errorf("config: database requires dsn or host")
	}

	if c.Archive.Enabled || c.Mode == "archive" {
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: archive enabled but s3.bucket empty")
		}
		if c.Archive.Cron == "" && c.Archive.Interval.Duration <= 0 {
			return fmt.Errorf("config: archive.interval must be positive")
		}
	}
	return nil
}

// Defaults returns the built-in configuration. Values mirror the deployed
// protocol constants; everything is overridable from TOML or environment.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			EventsPerRound:    5,
			SeedPerEvent:      3_000_000,
			FeeRate:           200,                // 2%
			MaxStake:          100_000_000,        // 100 units at 1e6 decimals
			MaxPayoutPerBet:   2_000_000_000,      // 2_000 units
			MaxPayoutPerRound: 20_000_000_000,     // 20_000 units
			SeasonRewardRate:  500,                // 5% of user deposits
			RawOddsFloor:      15_000,             // 1.5x raw
			RawOddsCeil:       70_000,             // 7.0x raw
			OddsFloor:         13_000,             // 1.3x locked
			OddsCeil:          17_000,             // 1.7x locked
			LegMultipliers: []uint64{
				0, 10_000, 10_500, 11_200, 12_000, 13_000,
				14_200, 15_500, 17_000, 18_500, 20_000,
			},
			TierBounds:          []uint64{10, 20, 30, 50},
			TierFactors:         []uint64{10_000, 8_500, 7_000, 5_500, 4_000},
			GateThreshold:       4_000, // avg pool imbalance below 0.40 gates
			GateFloor:           10_200,
			StandingsMinMatches: 5,
		},
		Ledger: LedgerConfig{
			WithdrawFeeRate: 100, // 1%
			MinLiquidity:    1_000,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "parlayd",
			User:         "parlayd",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8080,
			CORSOrigins: []string{"*"},
			RateLimit:   240,
		},
		Archive: ArchiveConfig{
			Interval:      duration{6 * time.Hour},
			RetentionDays: 7,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

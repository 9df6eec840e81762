package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/parlayd/parlayd/internal/crypto"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "serve"
log_level = "debug"

[engine]
events_per_round = 7
fee_rate = 300

[server]
port = 9090

[archive]
enabled = true
interval = "2h"
retention_days = 14
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 7, cfg.Engine.EventsPerRound)
	require.Equal(t, uint64(300), cfg.Engine.FeeRate)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 2*time.Hour, cfg.Archive.Interval.Duration)
	require.Equal(t, 14, cfg.Archive.RetentionDays)

	// Untouched fields keep the defaults.
	require.Equal(t, Defaults().Engine.SeedPerEvent, cfg.Engine.SeedPerEvent)
	require.Equal(t, Defaults().Redis.Addr, cfg.Redis.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `mode = "serve"`)

	t.Setenv("PARLAYD_DATABASE_PASSWORD", "hunter2")
	t.Setenv("PARLAYD_SERVER_RATE_LIMIT", "60")
	t.Setenv("PARLAYD_REDIS_TLS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "hunter2", cfg.Database.Password)
	require.Equal(t, 60, cfg.Server.RateLimit)
	require.True(t, cfg.Redis.TLSEnabled)
}

func TestLoadResolvesEncryptedAPIKey(t *testing.T) {
	blob, err := crypto.EncryptSecret("real-api-key", "pw")
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "apikey.json")
	require.NoError(t, os.WriteFile(keyPath, blob, 0o600))

	path := writeConfig(t, `
mode = "serve"

[server]
api_key_file = "`+keyPath+`"
api_key_password = "pw"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "real-api-key", cfg.Server.APIKey)
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedPayoutCaps(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.MaxPayoutPerBet = cfg.Engine.MaxPayoutPerRound + 1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTierShapeMismatch(t *testing.T) {
	cfg := Defaults()
	cfg.Engine.TierFactors = cfg.Engine.TierFactors[:len(cfg.Engine.TierBounds)]
	require.Error(t, cfg.Validate())
}

func TestValidateArchiveModeRequiresBucket(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "archive"
	cfg.S3.Bucket = ""
	require.Error(t, cfg.Validate())

	cfg.S3.Bucket = "parlayd-archive"
	require.NoError(t, cfg.Validate())
}

func TestValidateArchiveCronSkipsIntervalCheck(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.S3.Bucket = "parlayd-archive"
	cfg.Archive.Interval = duration{}
	require.Error(t, cfg.Validate())

	cfg.Archive.Cron = "0 3 * * *"
	require.NoError(t, cfg.Validate())
}

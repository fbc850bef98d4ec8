package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Exchanges = []ExchangeConfig{
		{Name: "Bitstamp", WsURL: "wss://feed.example", ApiURL: "https://api.example"},
	}
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Main.PublishingInterval = duration{0}
	cfg.Sanitizer.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "publishing_interval")
	assert.Contains(t, err.Error(), "sanitizer: port")
}

func TestValidateRequiresExchangesUnlessFake(t *testing.T) {
	cfg := Defaults()
	require.Error(t, cfg.Validate(), "no exchanges configured")

	cfg.FakeExchanges.Enabled = true
	assert.NoError(t, cfg.Validate(), "fake mode needs no real exchanges")
}

func TestValidateEnabledSinks(t *testing.T) {
	cfg := Defaults()
	cfg.FakeExchanges.Enabled = true

	cfg.Postgres.Enabled = true
	cfg.Postgres.Table = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: table")

	cfg = Defaults()
	cfg.FakeExchanges.Enabled = true
	cfg.S3.Enabled = true
	cfg.S3.Bucket = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"

[main]
symbols = ["BTC/USD"]
publishing_interval = "2s"

[[main.asset_mappings]]
canonical = "USD"
exchange = "USDT"

[[exchanges]]
name = "Bitstamp"
ws_url = "wss://feed.example"
api_url = "https://api.example"

[sanitizer]
host = "sanitizer.internal"
port = 6000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"BTC/USD"}, cfg.Main.Symbols)
	assert.Equal(t, 2*time.Second, cfg.Main.PublishingInterval.Duration)
	require.Len(t, cfg.Main.AssetMappings, 1)
	assert.Equal(t, "USDT", cfg.Main.AssetMappings[0].Exchange)
	assert.Equal(t, "sanitizer.internal", cfg.Sanitizer.Host)
	assert.Equal(t, 6000, cfg.Sanitizer.Port)

	// Untouched sections keep their defaults.
	assert.Equal(t, "(w)", cfg.Main.ExchangeNamesSuffix)
	assert.Equal(t, 5100, cfg.Server.Port)
	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MARKETFEED_SANITIZER_HOST", "override.internal")
	t.Setenv("MARKETFEED_SANITIZER_PORT", "7000")
	t.Setenv("MARKETFEED_REDIS_ENABLED", "true")
	t.Setenv("MARKETFEED_MAIN_SYMBOLS", "BTC/USD, ETH/USD")
	t.Setenv("MARKETFEED_MAIN_PUBLISHING_INTERVAL", "10s")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "override.internal", cfg.Sanitizer.Host)
	assert.Equal(t, 7000, cfg.Sanitizer.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"BTC/USD", "ETH/USD"}, cfg.Main.Symbols)
	assert.Equal(t, 10*time.Second, cfg.Main.PublishingInterval.Duration)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.Password = "hunter2"
	cfg.Postgres.Password = "hunter2"
	cfg.S3.AccessKey = "AKIA123"
	cfg.S3.SecretKey = "secret"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.S3.AccessKey)
	assert.Equal(t, "***", red.S3.SecretKey)

	// The original is untouched.
	assert.Equal(t, "hunter2", cfg.Redis.Password)

	// Empty secrets stay empty rather than being replaced.
	assert.Equal(t, "", red.Postgres.DSN)
}

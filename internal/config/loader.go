package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKETFEED_* environment variable overrides, and
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

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKETFEED_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// Main
	setStringSlice(&cfg.Main.Symbols, "MARKETFEED_MAIN_SYMBOLS")
	setDuration(&cfg.Main.PublishingInterval, "MARKETFEED_MAIN_PUBLISHING_INTERVAL")
	setStr(&cfg.Main.ExchangeNamesSuffix, "MARKETFEED_MAIN_EXCHANGE_NAMES_SUFFIX")

	// Sanitizer
	setStr(&cfg.Sanitizer.Host, "MARKETFEED_SANITIZER_HOST")
	setInt(&cfg.Sanitizer.Port, "MARKETFEED_SANITIZER_PORT")
	setDuration(&cfg.Sanitizer.ReconnectInterval, "MARKETFEED_SANITIZER_RECONNECT_INTERVAL")
	setDuration(&cfg.Sanitizer.Timeout, "MARKETFEED_SANITIZER_TIMEOUT")

	// Redis
	setBool(&cfg.Redis.Enabled, "MARKETFEED_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "MARKETFEED_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKETFEED_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKETFEED_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKETFEED_REDIS_POOL_SIZE")

	// Postgres
	setBool(&cfg.Postgres.Enabled, "MARKETFEED_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "MARKETFEED_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MARKETFEED_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARKETFEED_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARKETFEED_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARKETFEED_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARKETFEED_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARKETFEED_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARKETFEED_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARKETFEED_POSTGRES_POOL_MIN_CONNS")
	setStr(&cfg.Postgres.Table, "MARKETFEED_POSTGRES_TABLE")

	// S3
	setBool(&cfg.S3.Enabled, "MARKETFEED_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "MARKETFEED_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKETFEED_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKETFEED_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKETFEED_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKETFEED_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKETFEED_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKETFEED_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "MARKETFEED_S3_PREFIX")

	// Server
	setBool(&cfg.Server.Enabled, "MARKETFEED_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "MARKETFEED_SERVER_PORT")

	// FakeExchanges
	setBool(&cfg.FakeExchanges.Enabled, "MARKETFEED_FAKE_EXCHANGES_ENABLED")
	setInt(&cfg.FakeExchanges.ExchangesCount, "MARKETFEED_FAKE_EXCHANGES_EXCHANGES_COUNT")
	setInt(&cfg.FakeExchanges.SymbolsCount, "MARKETFEED_FAKE_EXCHANGES_SYMBOLS_COUNT")

	// Top-level
	setStr(&cfg.LogLevel, "MARKETFEED_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

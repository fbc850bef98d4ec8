// Package config defines the top-level configuration for the marketfeed
// connector and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantex/marketfeed/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKETFEED_* environment
// variables.
type Config struct {
	Main          MainConfig       `toml:"main"`
	Exchanges     []ExchangeConfig `toml:"exchanges"`
	Sanitizer     SanitizerConfig  `toml:"sanitizer"`
	Redis         RedisConfig      `toml:"redis"`
	Postgres      PostgresConfig   `toml:"postgres"`
	S3            S3Config         `toml:"s3"`
	Server        ServerConfig     `toml:"server"`
	FakeExchanges FakeConfig       `toml:"fake_exchanges"`
	LogLevel      string           `toml:"log_level"`
}

// MainConfig holds pipeline-wide parameters.
type MainConfig struct {
	// Symbols are the canonical asset pairs to subscribe, e.g. "BTC/USD".
	Symbols []string `toml:"symbols"`

	// PublishingInterval throttles order book snapshot publication per
	// market. Update-driven publication is always throttled at one second.
	PublishingInterval duration `toml:"publishing_interval"`

	// ExchangeNamesSuffix is appended to the exchange name in published
	// sources, marking the connector variant.
	ExchangeNamesSuffix string `toml:"exchange_names_suffix"`

	// AssetMappings translate canonical asset names into exchange-specific
	// ones, e.g. USD -> USDT.
	AssetMappings []domain.AssetMapping `toml:"asset_mappings"`
}

// ExchangeConfig holds the endpoints of one exchange connection.
type ExchangeConfig struct {
	Name   string `toml:"name"`
	WsURL  string `toml:"ws_url"`
	ApiURL string `toml:"api_url"`
}

// SanitizerConfig holds the downstream raw-socket sink parameters.
type SanitizerConfig struct {
	Host              string   `toml:"host"`
	Port              int      `toml:"port"`
	ReconnectInterval duration `toml:"reconnect_interval"`

	// Timeout is the inactivity window after which the connection is
	// considered dead. Zero disables the inactivity check.
	Timeout duration `toml:"timeout"`
}

// RedisConfig holds Redis connection parameters for the pub/sub fanout sink.
type RedisConfig struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
}

// PostgresConfig holds PostgreSQL connection parameters for the tick table
// sink.
type PostgresConfig struct {
	Enabled      bool   `toml:"enabled"`
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
	Table        string `toml:"table"`
}

// S3Config holds object storage parameters for the tick archive sink.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// ServerConfig holds the diagnostic HTTP server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// FakeConfig enables the synthetic exchange mode used for local runs.
type FakeConfig struct {
	Enabled        bool `toml:"enabled"`
	ExchangesCount int  `toml:"exchanges_count"`
	SymbolsCount   int  `toml:"symbols_count"`
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

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Main: MainConfig{
			Symbols:             []string{"BTC/USD", "ETH/USD"},
			PublishingInterval:  duration{5 * time.Second},
			ExchangeNamesSuffix: "(w)",
		},
		Sanitizer: SanitizerConfig{
			Host:              "localhost",
			Port:              5050,
			ReconnectInterval: duration{5 * time.Second},
			Timeout:           duration{0},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 20,
		},
		Postgres: PostgresConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "marketfeed",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
			Table:        "tick_prices",
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "marketfeed-data",
			UseSSL:         false,
			ForcePathStyle: true,
			Prefix:         "ticks",
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    5100,
		},
		FakeExchanges: FakeConfig{
			Enabled:        false,
			ExchangesCount: 3,
			SymbolsCount:   5,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Main
	if c.Main.PublishingInterval.Duration <= 0 {
		errs = append(errs, "main: publishing_interval must be > 0")
	}
	if !c.FakeExchanges.Enabled {
		if len(c.Main.Symbols) == 0 {
			errs = append(errs, "main: at least one symbol is required")
		}
		if len(c.Exchanges) == 0 {
			errs = append(errs, "at least one [[exchanges]] entry is required")
		}
	}
	for i, e := range c.Exchanges {
		if e.Name == "" {
			errs = append(errs, fmt.Sprintf("exchanges[%d]: name must not be empty", i))
		}
		if !c.FakeExchanges.Enabled && (e.WsURL == "" || e.ApiURL == "") {
			errs = append(errs, fmt.Sprintf("exchanges[%d]: ws_url and api_url must not be empty", i))
		}
	}

	// Sanitizer
	if c.Sanitizer.Host == "" {
		errs = append(errs, "sanitizer: host must not be empty")
	}
	if c.Sanitizer.Port <= 0 || c.Sanitizer.Port > 65535 {
		errs = append(errs, fmt.Sprintf("sanitizer: port must be 1-65535, got %d", c.Sanitizer.Port))
	}
	if c.Sanitizer.ReconnectInterval.Duration <= 0 {
		errs = append(errs, "sanitizer: reconnect_interval must be > 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
		if c.Postgres.Table == "" {
			errs = append(errs, "postgres: table must not be empty")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// FakeExchanges
	if c.FakeExchanges.Enabled {
		if c.FakeExchanges.ExchangesCount < 1 {
			errs = append(errs, "fake_exchanges: exchanges_count must be >= 1")
		}
		if c.FakeExchanges.SymbolsCount < 1 {
			errs = append(errs, "fake_exchanges: symbols_count must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

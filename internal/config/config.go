// Package config loads keeper settings from a TOML file with environment
// overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"stablebond-keeper/internal/solana"
)

// Config is the root configuration. It is populated from a TOML file and
// then optionally overridden by STABLEBOND_* environment variables.
type Config struct {
	Solana     SolanaConfig     `toml:"solana"`
	Programs   ProgramsConfig   `toml:"programs"`
	Keeper     KeeperConfig     `toml:"keeper"`
	Postgres   PostgresConfig   `toml:"postgres"`
	ClickHouse ClickHouseConfig `toml:"clickhouse"`
	Redis      RedisConfig      `toml:"redis"`
	Server     ServerConfig     `toml:"server"`
	Log        LogConfig        `toml:"log"`
}

// SolanaConfig holds cluster endpoints and the keeper identity.
type SolanaConfig struct {
	RPCURL      string   `toml:"rpc_url"`
	WSURL       string   `toml:"ws_url"`
	KeypairPath string   `toml:"keypair_path"`
	Commitment  string   `toml:"commitment"`
	Timeout     duration `toml:"timeout"`
	MaxRetries  int      `toml:"max_retries"`
	// RateLimit caps RPC requests per second. Zero disables pacing.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// ProgramsConfig holds the deployed program IDs in base58.
type ProgramsConfig struct {
	Core  string `toml:"core"`
	Yield string `toml:"yield"`
}

// KeeperConfig holds keeper loop parameters.
type KeeperConfig struct {
	ConversionInterval duration `toml:"conversion_interval"`
	NavInterval        duration `toml:"nav_interval"`
	ConfirmTimeout     duration `toml:"confirm_timeout"`
	EnableConversion   bool     `toml:"enable_conversion"`
	EnableNav          bool     `toml:"enable_nav"`
	EnableWatcher      bool     `toml:"enable_watcher"`
}

// PostgresConfig holds keeper history storage settings. An empty DSN keeps
// history in memory.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	RunMigrations bool   `toml:"run_migrations"`
}

// ClickHouseConfig holds event time-series settings. An empty DSN keeps
// events in memory.
type ClickHouseConfig struct {
	DSN           string `toml:"dsn"`
	Database      string `toml:"database"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds lease settings. With neither URL nor Addr set, leases
// are process-local.
type RedisConfig struct {
	URL      string   `toml:"url"`
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	Prefix   string   `toml:"prefix"`
	LeaseTTL duration `toml:"lease_ttl"`
}

// Enabled reports whether a redis server is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Addr != ""
}

// ServerConfig holds the health/metrics HTTP listener.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// LogConfig holds logging settings. When File is set, output is rotated.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config with the deployed program IDs and local endpoints.
func Defaults() Config {
	return Config{
		Solana: SolanaConfig{
			RPCURL:      "http://127.0.0.1:8899",
			WSURL:       "ws://127.0.0.1:8900",
			KeypairPath: "~/.config/solana/id.json",
			Commitment:  string(solana.CommitmentConfirmed),
			Timeout:     duration{30 * time.Second},
			MaxRetries:  3,
			RateLimit:   10,
			RateBurst:   5,
		},
		Programs: ProgramsConfig{
			Core:  "3fnWkVPz51AJjYodQY5VCzteD5enRmkWBTsu3gPedaYs",
			Yield: "DLFUfzV4iqCzxmmXmCpR7qH6nhvPSLUekq7JCezV1LeE",
		},
		Keeper: KeeperConfig{
			ConversionInterval: duration{time.Minute},
			NavInterval:        duration{time.Hour},
			ConfirmTimeout:     duration{60 * time.Second},
			EnableConversion:   true,
			EnableNav:          true,
			EnableWatcher:      true,
		},
		Postgres: PostgresConfig{
			RunMigrations: true,
		},
		ClickHouse: ClickHouseConfig{
			Database:      "default",
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Prefix:   "stablebond",
			LeaseTTL: duration{5 * time.Minute},
		},
		Server: ServerConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
	}
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validCommitments = map[string]bool{
	string(solana.CommitmentProcessed): true,
	string(solana.CommitmentConfirmed): true,
	string(solana.CommitmentFinalized): true,
}

// Validate checks the config for missing or contradictory settings. All
// problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Solana.RPCURL == "" {
		errs = append(errs, "solana: rpc_url must not be empty")
	}
	if !validCommitments[c.Solana.Commitment] {
		errs = append(errs, fmt.Sprintf("solana: unknown commitment %q (valid: processed, confirmed, finalized)", c.Solana.Commitment))
	}
	if c.Solana.RateLimit < 0 {
		errs = append(errs, "solana: rate_limit must not be negative")
	}
	if c.Solana.MaxRetries < 0 {
		errs = append(errs, "solana: max_retries must not be negative")
	}
	if c.Keeper.EnableConversion || c.Keeper.EnableNav {
		if c.Solana.KeypairPath == "" {
			errs = append(errs, "solana: keypair_path is required when a keeper is enabled")
		}
	}
	if c.Keeper.EnableWatcher && c.Solana.WSURL == "" {
		errs = append(errs, "solana: ws_url is required when the watcher is enabled")
	}

	if _, err := solana.ParsePublicKey(c.Programs.Core); err != nil {
		errs = append(errs, fmt.Sprintf("programs: core: %v", err))
	}
	if _, err := solana.ParsePublicKey(c.Programs.Yield); err != nil {
		errs = append(errs, fmt.Sprintf("programs: yield: %v", err))
	}

	if c.Keeper.ConversionInterval.Duration <= 0 {
		errs = append(errs, "keeper: conversion_interval must be positive")
	}
	if c.Keeper.NavInterval.Duration <= 0 {
		errs = append(errs, "keeper: nav_interval must be positive")
	}
	if c.Keeper.ConfirmTimeout.Duration <= 0 {
		errs = append(errs, "keeper: confirm_timeout must be positive")
	}

	if c.Redis.Enabled() && c.Redis.LeaseTTL.Duration <= 0 {
		errs = append(errs, "redis: lease_ttl must be positive")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log: unknown level %q (valid: debug, info, warn, error)", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("log: unknown format %q (valid: json, text)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// CorePublicKey returns the parsed core program ID. Call after Validate.
func (c *Config) CorePublicKey() solana.PublicKey {
	return solana.MustPublicKey(c.Programs.Core)
}

// YieldPublicKey returns the parsed yield program ID. Call after Validate.
func (c *Config) YieldPublicKey() solana.PublicKey {
	return solana.MustPublicKey(c.Programs.Yield)
}

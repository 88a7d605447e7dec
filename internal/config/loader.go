package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path over Defaults, applies STABLEBOND_*
// environment overrides and returns the result. An empty path skips the
// file. The returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	cfg.Solana.KeypairPath = expandHome(cfg.Solana.KeypairPath)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// ── Solana ──
	setStr(&cfg.Solana.RPCURL, "STABLEBOND_SOLANA_RPC_URL")
	setStr(&cfg.Solana.WSURL, "STABLEBOND_SOLANA_WS_URL")
	setStr(&cfg.Solana.KeypairPath, "STABLEBOND_SOLANA_KEYPAIR_PATH")
	setStr(&cfg.Solana.Commitment, "STABLEBOND_SOLANA_COMMITMENT")
	setDuration(&cfg.Solana.Timeout, "STABLEBOND_SOLANA_TIMEOUT")
	setInt(&cfg.Solana.MaxRetries, "STABLEBOND_SOLANA_MAX_RETRIES")
	setFloat64(&cfg.Solana.RateLimit, "STABLEBOND_SOLANA_RATE_LIMIT")
	setInt(&cfg.Solana.RateBurst, "STABLEBOND_SOLANA_RATE_BURST")

	// ── Programs ──
	setStr(&cfg.Programs.Core, "STABLEBOND_PROGRAMS_CORE")
	setStr(&cfg.Programs.Yield, "STABLEBOND_PROGRAMS_YIELD")

	// ── Keeper ──
	setDuration(&cfg.Keeper.ConversionInterval, "STABLEBOND_KEEPER_CONVERSION_INTERVAL")
	setDuration(&cfg.Keeper.NavInterval, "STABLEBOND_KEEPER_NAV_INTERVAL")
	setDuration(&cfg.Keeper.ConfirmTimeout, "STABLEBOND_KEEPER_CONFIRM_TIMEOUT")
	setBool(&cfg.Keeper.EnableConversion, "STABLEBOND_KEEPER_ENABLE_CONVERSION")
	setBool(&cfg.Keeper.EnableNav, "STABLEBOND_KEEPER_ENABLE_NAV")
	setBool(&cfg.Keeper.EnableWatcher, "STABLEBOND_KEEPER_ENABLE_WATCHER")

	// ── Storage ──
	setStr(&cfg.Postgres.DSN, "STABLEBOND_POSTGRES_DSN")
	setBool(&cfg.Postgres.RunMigrations, "STABLEBOND_POSTGRES_RUN_MIGRATIONS")
	setStr(&cfg.ClickHouse.DSN, "STABLEBOND_CLICKHOUSE_DSN")
	setStr(&cfg.ClickHouse.Database, "STABLEBOND_CLICKHOUSE_DATABASE")
	setBool(&cfg.ClickHouse.RunMigrations, "STABLEBOND_CLICKHOUSE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.URL, "STABLEBOND_REDIS_URL")
	setStr(&cfg.Redis.Addr, "STABLEBOND_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STABLEBOND_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STABLEBOND_REDIS_DB")
	setStr(&cfg.Redis.Prefix, "STABLEBOND_REDIS_PREFIX")
	setDuration(&cfg.Redis.LeaseTTL, "STABLEBOND_REDIS_LEASE_TTL")

	// ── Server ──
	setStr(&cfg.Server.Addr, "STABLEBOND_SERVER_ADDR")

	// ── Log ──
	setStr(&cfg.Log.Level, "STABLEBOND_LOG_LEVEL")
	setStr(&cfg.Log.Format, "STABLEBOND_LOG_FORMAT")
	setStr(&cfg.Log.File, "STABLEBOND_LOG_FILE")
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Each helper only mutates the target when the variable is set and parses.

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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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

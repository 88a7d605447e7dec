// Package postgres stores keeper run history in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Keepers write a handful of rows per tick, so a small pool is plenty.
const (
	maxConns        = 4
	maxConnIdleTime = 5 * time.Minute
	applicationName = "stablebond-keeper"
)

// Pool is the shared connection pool for the keeper stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and checks the server is reachable. Settings given
// in the DSN take precedence over the keeper defaults.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid dsn: %w", err)
	}
	if cfg.MaxConns > maxConns {
		cfg.MaxConns = maxConns
	}
	cfg.MaxConnIdleTime = maxConnIdleTime
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: unreachable: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// isDuplicateKeyError reports a unique_violation, raised when a run or
// action ID is inserted twice.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"stablebond-keeper/internal/config"
	"stablebond-keeper/internal/storage"
	chstore "stablebond-keeper/internal/storage/clickhouse"
	"stablebond-keeper/internal/storage/memory"
	"stablebond-keeper/internal/storage/migrations"
	pgstore "stablebond-keeper/internal/storage/postgres"
	redisstore "stablebond-keeper/internal/storage/redis"
)

// stores holds the keeper's persistence. Each backend falls back to memory
// when its DSN is empty.
type stores struct {
	runs        storage.KeeperRunStore
	actions     storage.KeeperActionStore
	navs        storage.NavSnapshotStore
	conversions storage.ConversionEventStore
	locker      storage.Locker
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, func(), error) {
	st := &stores{}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*stores, func(), error) {
		cleanup()
		return nil, nil, err
	}

	if cfg.Postgres.DSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fail(fmt.Errorf("connect to postgres: %w", err))
		}
		closers = append(closers, pool.Close)
		if cfg.Postgres.RunMigrations {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				return fail(fmt.Errorf("postgres migrations: %w", err))
			}
		}
		st.runs = pgstore.NewKeeperRunStore(pool)
		st.actions = pgstore.NewKeeperActionStore(pool)
		logger.Info("keeper history in postgres")
	} else {
		st.runs = memory.NewKeeperRunStore()
		st.actions = memory.NewKeeperActionStore()
		logger.Warn("postgres dsn not set, keeper history kept in memory")
	}

	if cfg.ClickHouse.DSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		switch {
		case cfg.ClickHouse.RunMigrations:
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
		case cfg.ClickHouse.Database != "":
			conn, err = chstore.NewConnWithDatabase(ctx, cfg.ClickHouse.DSN, cfg.ClickHouse.Database)
		default:
			conn, err = chstore.NewConn(ctx, cfg.ClickHouse.DSN)
		}
		if err != nil {
			return fail(fmt.Errorf("connect to clickhouse: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })
		st.navs = chstore.NewNavSnapshotStore(conn)
		st.conversions = chstore.NewConversionEventStore(conn)
		logger.Info("events in clickhouse")
	} else {
		st.navs = memory.NewNavSnapshotStore()
		st.conversions = memory.NewConversionEventStore()
	}

	if cfg.Redis.Enabled() {
		var (
			rc  *redisstore.Client
			err error
		)
		if cfg.Redis.URL != "" {
			rc, err = redisstore.NewFromURL(ctx, cfg.Redis.URL)
		} else {
			rc, err = redisstore.New(ctx, redisstore.ClientConfig{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
		}
		if err != nil {
			return fail(fmt.Errorf("connect to redis: %w", err))
		}
		closers = append(closers, func() { _ = rc.Close() })
		st.locker = redisstore.NewLocker(rc, cfg.Redis.Prefix, cfg.Redis.LeaseTTL.Duration)
	} else {
		st.locker = memory.NewLocker(cfg.Redis.LeaseTTL.Duration)
	}

	return st, cleanup, nil
}

// Package main prints protocol state as JSON: the config and bond registry,
// a user's portfolio and pending deposits, tier checks and NAV projections.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"stablebond-keeper/internal/address"
	"stablebond-keeper/internal/config"
	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/solana"
	"stablebond-keeper/internal/stablebond"
	"stablebond-keeper/internal/stablebond/fixture"
	"stablebond-keeper/internal/storage"
	pgstore "stablebond-keeper/internal/storage/postgres"
)

const usage = `usage: inspect [flags] <command> [args]

commands:
  protocol                         protocol config and registry consistency
  bonds                            registered bonds with yield source and vault NAV
  portfolio <owner>                open positions and valuation summary
  pending <user> <bond>            recent deposits of user in bond
  tier <tier> <bond> <amount> [deposited]
                                   check a deposit against tier limits
  check <user> <bond> <amount>     check a deposit against the user's on-chain tier
  project <bond> <days>            project vault NAV forward
  runs <keeper> [limit]            recent keeper runs (requires postgres)
`

func main() {
	configPath := flag.String("config", os.Getenv("STABLEBOND_CONFIG"), "Path to TOML config file")
	useFixtures := flag.Bool("use-fixtures", false, "Read from an in-memory demo deployment instead of RPC")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	in, cleanup, err := newInspector(ctx, *configPath, *useFixtures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := in.run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newInspector(ctx context.Context, configPath string, useFixtures bool) (*inspector, func(), error) {
	if useFixtures {
		return &inspector{
			client: demoClient(),
			now:    time.Now,
			out:    os.Stdout,
		}, func() {}, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	// Inspection is read-only.
	cfg.Keeper.EnableConversion = false
	cfg.Keeper.EnableNav = false
	cfg.Keeper.EnableWatcher = false
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL,
		solana.WithTimeout(cfg.Solana.Timeout.Duration),
		solana.WithCommitment(solana.Commitment(cfg.Solana.Commitment)),
		solana.WithRateLimit(cfg.Solana.RateLimit, cfg.Solana.RateBurst),
	)
	in := &inspector{
		client: stablebond.NewClient(rpc, address.NewDeriver(cfg.CorePublicKey(), cfg.YieldPublicKey())),
		now:    time.Now,
		out:    os.Stdout,
	}
	cleanup := func() {}
	if cfg.Postgres.DSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		in.runs = pgstore.NewKeeperRunStore(pool)
		cleanup = pool.Close
	}
	return in, cleanup, nil
}

// demoClient serves a deployment with the sovereign bonds registered, for
// trying the commands without a cluster.
func demoClient() *stablebond.Client {
	w := fixture.NewWorld()
	for _, bt := range domain.AllBondTypes {
		if bt != domain.BondCustom {
			w.AddBond(bt)
		}
	}
	return stablebond.NewClient(w.RPC, w.Deriver)
}

// inspector runs one command against the query client and writes JSON.
type inspector struct {
	client *stablebond.Client
	runs   storage.KeeperRunStore
	now    func() time.Time
	out    io.Writer
}

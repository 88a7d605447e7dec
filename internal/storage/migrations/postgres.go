package migrations

import (
	"context"
	"fmt"

	"stablebond-keeper/internal/storage/postgres"
)

// RunPostgresMigrations creates the keeper_runs and keeper_actions tables.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		// pgx runs a multi-statement string through the simple protocol.
		if _, err := pool.Exec(ctx, m.body); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

// KeeperRunStore implements storage.KeeperRunStore using PostgreSQL.
type KeeperRunStore struct {
	pool *Pool
}

// NewKeeperRunStore creates a new KeeperRunStore.
func NewKeeperRunStore(pool *Pool) *KeeperRunStore {
	return &KeeperRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.KeeperRunStore = (*KeeperRunStore)(nil)

const keeperRunColumns = `run_id, keeper, started_at, finished_at, found, submitted, failed, skipped, error`

// Insert adds a finished run. Returns ErrDuplicateKey if run_id exists.
func (s *KeeperRunStore) Insert(ctx context.Context, r *domain.KeeperRun) error {
	if r == nil || r.RunID == "" || r.Keeper == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO keeper_runs (` + keeperRunColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, string(r.Keeper), r.StartedAt, r.FinishedAt,
		r.Found, r.Submitted, r.Failed, r.Skipped, r.Err,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert keeper run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *KeeperRunStore) GetByID(ctx context.Context, runID string) (*domain.KeeperRun, error) {
	query := `SELECT ` + keeperRunColumns + ` FROM keeper_runs WHERE run_id = $1`

	r, err := scanKeeperRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get keeper run by id: %w", err)
	}
	return r, nil
}

// ListRecent retrieves the most recent runs of a keeper, newest first.
func (s *KeeperRunStore) ListRecent(ctx context.Context, keeper domain.KeeperName, limit int) ([]*domain.KeeperRun, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT ` + keeperRunColumns + `
		FROM keeper_runs
		WHERE keeper = $1
		ORDER BY started_at DESC, run_id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, string(keeper), limit)
	if err != nil {
		return nil, fmt.Errorf("list recent keeper runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.KeeperRun
	for rows.Next() {
		r, err := scanKeeperRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keeper run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keeper runs: %w", err)
	}
	return result, nil
}

func scanKeeperRun(row pgx.Row) (*domain.KeeperRun, error) {
	var r domain.KeeperRun
	var keeper string
	err := row.Scan(
		&r.RunID, &keeper, &r.StartedAt, &r.FinishedAt,
		&r.Found, &r.Submitted, &r.Failed, &r.Skipped, &r.Err,
	)
	if err != nil {
		return nil, err
	}
	r.Keeper = domain.KeeperName(keeper)
	return &r, nil
}

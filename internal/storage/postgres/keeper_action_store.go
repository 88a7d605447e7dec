package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

// KeeperActionStore implements storage.KeeperActionStore using PostgreSQL.
type KeeperActionStore struct {
	pool *Pool
}

// NewKeeperActionStore creates a new KeeperActionStore.
func NewKeeperActionStore(pool *Pool) *KeeperActionStore {
	return &KeeperActionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.KeeperActionStore = (*KeeperActionStore)(nil)

const keeperActionColumns = `run_id, seq, keeper, instruction, target, bond_type, outcome, signature, error, created_at`

// InsertBulk adds actions atomically. Fails entire batch on duplicate (run_id, seq).
func (s *KeeperActionStore) InsertBulk(ctx context.Context, actions []*domain.KeeperAction) error {
	if len(actions) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO keeper_actions (` + keeperActionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for _, a := range actions {
		if a == nil || a.RunID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			a.RunID, a.Seq, string(a.Keeper), a.Instruction, a.Target,
			int16(a.BondType), string(a.Outcome), a.Signature, a.Err, a.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert keeper action in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run's actions ordered by seq ASC.
func (s *KeeperActionStore) GetByRunID(ctx context.Context, runID string) ([]*domain.KeeperAction, error) {
	query := `
		SELECT ` + keeperActionColumns + `
		FROM keeper_actions
		WHERE run_id = $1
		ORDER BY seq ASC
	`
	return s.query(ctx, query, runID)
}

// GetByTarget retrieves every action taken on an account, oldest first.
func (s *KeeperActionStore) GetByTarget(ctx context.Context, target string) ([]*domain.KeeperAction, error) {
	query := `
		SELECT ` + keeperActionColumns + `
		FROM keeper_actions
		WHERE target = $1
		ORDER BY created_at ASC, run_id ASC, seq ASC
	`
	return s.query(ctx, query, target)
}

func (s *KeeperActionStore) query(ctx context.Context, query string, arg string) ([]*domain.KeeperAction, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query keeper actions: %w", err)
	}
	defer rows.Close()

	var result []*domain.KeeperAction
	for rows.Next() {
		a, err := scanKeeperAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan keeper action: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keeper actions: %w", err)
	}
	return result, nil
}

func scanKeeperAction(row pgx.Row) (*domain.KeeperAction, error) {
	var a domain.KeeperAction
	var keeper, outcome string
	var bondType int16
	err := row.Scan(
		&a.RunID, &a.Seq, &keeper, &a.Instruction, &a.Target,
		&bondType, &outcome, &a.Signature, &a.Err, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Keeper = domain.KeeperName(keeper)
	a.Outcome = domain.ActionOutcome(outcome)
	a.BondType = domain.BondType(bondType)
	return &a, nil
}

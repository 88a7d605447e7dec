package storage

import (
	"context"

	"stablebond-keeper/internal/domain"
)

// KeeperRunStore provides access to keeper_runs storage.
type KeeperRunStore interface {
	// Insert adds a finished run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.KeeperRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.KeeperRun, error)

	// ListRecent retrieves the most recent runs of a keeper, newest first.
	ListRecent(ctx context.Context, keeper domain.KeeperName, limit int) ([]*domain.KeeperRun, error)
}

// KeeperActionStore provides access to keeper_actions storage.
type KeeperActionStore interface {
	// InsertBulk adds the actions of one run atomically. Fails entire batch
	// on duplicate (run_id, seq).
	InsertBulk(ctx context.Context, actions []*domain.KeeperAction) error

	// GetByRunID retrieves a run's actions ordered by seq ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.KeeperAction, error)

	// GetByTarget retrieves every action taken on an account, oldest first.
	GetByTarget(ctx context.Context, target string) ([]*domain.KeeperAction, error)
}

// NavSnapshotStore provides access to nav_snapshots storage.
type NavSnapshotStore interface {
	// Insert adds a snapshot. Returns ErrDuplicateKey if (bond_type, signature) exists.
	Insert(ctx context.Context, s *domain.NavSnapshot) error

	// GetByTimeRange retrieves snapshots for a bond within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, bondType domain.BondType, start, end int64) ([]*domain.NavSnapshot, error)

	// Latest retrieves the newest snapshot for a bond. Returns ErrNotFound if none.
	Latest(ctx context.Context, bondType domain.BondType) (*domain.NavSnapshot, error)
}

// ConversionEventStore provides access to conversion_events storage.
type ConversionEventStore interface {
	// Insert adds an event. Returns ErrDuplicateKey if (user, nonce) exists.
	Insert(ctx context.Context, e *domain.ConversionEvent) error

	// GetByUser retrieves a user's conversions ordered by nonce ASC.
	GetByUser(ctx context.Context, user string) ([]*domain.ConversionEvent, error)
}

// Locker grants short exclusive leases so replicas do not run the same
// keeper tick concurrently.
type Locker interface {
	// Acquire takes the lease for key. It returns ErrLeaseHeld when another
	// holder has it. The returned release func is safe to call more than once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

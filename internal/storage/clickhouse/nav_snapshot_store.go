package clickhouse

import (
	"context"
	"fmt"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

// NavSnapshotStore implements storage.NavSnapshotStore using ClickHouse.
type NavSnapshotStore struct {
	conn *Conn
}

// NewNavSnapshotStore creates a new NavSnapshotStore.
func NewNavSnapshotStore(conn *Conn) *NavSnapshotStore {
	return &NavSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.NavSnapshotStore = (*NavSnapshotStore)(nil)

// Insert adds a snapshot. Returns ErrDuplicateKey if (bond_type, signature) exists.
func (s *NavSnapshotStore) Insert(ctx context.Context, snap *domain.NavSnapshot) error {
	if snap == nil || snap.Signature == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, snap.BondType, snap.Signature)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO nav_snapshots (
			bond_type, yield_source, old_nav, new_nav, slot, signature, timestamp_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		uint8(snap.BondType), snap.YieldSource, snap.OldNav, snap.NewNav,
		snap.Slot, snap.Signature, snap.TimestampMs,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves snapshots for a bond within [start, end] (inclusive), ordered by timestamp ASC.
func (s *NavSnapshotStore) GetByTimeRange(ctx context.Context, bondType domain.BondType, start, end int64) ([]*domain.NavSnapshot, error) {
	query := `
		SELECT bond_type, yield_source, old_nav, new_nav, slot, signature, timestamp_ms
		FROM nav_snapshots FINAL
		WHERE bond_type = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC, slot ASC
	`

	rows, err := s.conn.Query(ctx, query, uint8(bondType), start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanNavSnapshots(rows)
}

// Latest retrieves the newest snapshot for a bond. Returns ErrNotFound if none.
func (s *NavSnapshotStore) Latest(ctx context.Context, bondType domain.BondType) (*domain.NavSnapshot, error) {
	query := `
		SELECT bond_type, yield_source, old_nav, new_nav, slot, signature, timestamp_ms
		FROM nav_snapshots FINAL
		WHERE bond_type = ?
		ORDER BY timestamp_ms DESC, slot DESC
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, uint8(bondType))
	if err != nil {
		return nil, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	snaps, err := scanNavSnapshots(rows)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, storage.ErrNotFound
	}
	return snaps[0], nil
}

// exists checks if a snapshot with the given key exists.
func (s *NavSnapshotStore) exists(ctx context.Context, bondType domain.BondType, signature string) (bool, error) {
	query := `
		SELECT count(*) FROM nav_snapshots
		WHERE bond_type = ? AND signature = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, uint8(bondType), signature).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanNavSnapshots(rows chRows) ([]*domain.NavSnapshot, error) {
	var result []*domain.NavSnapshot
	for rows.Next() {
		var snap domain.NavSnapshot
		var bondType uint8
		err := rows.Scan(
			&bondType, &snap.YieldSource, &snap.OldNav, &snap.NewNav,
			&snap.Slot, &snap.Signature, &snap.TimestampMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan nav snapshot: %w", err)
		}
		snap.BondType = domain.BondType(bondType)
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nav snapshots: %w", err)
	}
	return result, nil
}

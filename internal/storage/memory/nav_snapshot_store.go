package memory

import (
	"context"
	"sort"
	"sync"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

type navKey struct {
	bondType  domain.BondType
	signature string
}

// NavSnapshotStore is an in-memory implementation of storage.NavSnapshotStore.
type NavSnapshotStore struct {
	mu   sync.RWMutex
	data map[navKey]*domain.NavSnapshot
}

// NewNavSnapshotStore creates a new in-memory NAV snapshot store.
func NewNavSnapshotStore() *NavSnapshotStore {
	return &NavSnapshotStore{
		data: make(map[navKey]*domain.NavSnapshot),
	}
}

// Insert adds a snapshot. Returns ErrDuplicateKey if (bond_type, signature) exists.
func (s *NavSnapshotStore) Insert(_ context.Context, snap *domain.NavSnapshot) error {
	if snap == nil || snap.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := navKey{bondType: snap.BondType, signature: snap.Signature}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}
	snapCopy := *snap
	s.data[k] = &snapCopy
	return nil
}

// GetByTimeRange retrieves snapshots for a bond within [start, end] (inclusive), ordered by timestamp ASC.
func (s *NavSnapshotStore) GetByTimeRange(_ context.Context, bondType domain.BondType, start, end int64) ([]*domain.NavSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.NavSnapshot
	for _, snap := range s.data {
		if snap.BondType == bondType && snap.TimestampMs >= start && snap.TimestampMs <= end {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}
	sortSnapshots(result)
	return result, nil
}

// Latest retrieves the newest snapshot for a bond. Returns ErrNotFound if none.
func (s *NavSnapshotStore) Latest(_ context.Context, bondType domain.BondType) (*domain.NavSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.NavSnapshot
	for _, snap := range s.data {
		if snap.BondType != bondType {
			continue
		}
		if latest == nil || snap.TimestampMs > latest.TimestampMs ||
			(snap.TimestampMs == latest.TimestampMs && snap.Slot > latest.Slot) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	snapCopy := *latest
	return &snapCopy, nil
}

func sortSnapshots(s []*domain.NavSnapshot) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].TimestampMs != s[j].TimestampMs {
			return s[i].TimestampMs < s[j].TimestampMs
		}
		return s[i].Slot < s[j].Slot
	})
}

var _ storage.NavSnapshotStore = (*NavSnapshotStore)(nil)

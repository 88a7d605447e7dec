package memory

import (
	"context"
	"sort"
	"sync"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

// KeeperRunStore is an in-memory implementation of storage.KeeperRunStore.
type KeeperRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.KeeperRun // keyed by run_id
}

// NewKeeperRunStore creates a new in-memory keeper run store.
func NewKeeperRunStore() *KeeperRunStore {
	return &KeeperRunStore{
		data: make(map[string]*domain.KeeperRun),
	}
}

// Insert adds a finished run. Returns ErrDuplicateKey if run_id exists.
func (s *KeeperRunStore) Insert(_ context.Context, r *domain.KeeperRun) error {
	if r == nil || r.RunID == "" || r.Keeper == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	runCopy := *r
	s.data[r.RunID] = &runCopy
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *KeeperRunStore) GetByID(_ context.Context, runID string) (*domain.KeeperRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	runCopy := *r
	return &runCopy, nil
}

// ListRecent retrieves the most recent runs of a keeper, newest first.
func (s *KeeperRunStore) ListRecent(_ context.Context, keeper domain.KeeperName, limit int) ([]*domain.KeeperRun, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.KeeperRun
	for _, r := range s.data {
		if r.Keeper == keeper {
			runCopy := *r
			result = append(result, &runCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt > result[j].StartedAt
		}
		return result[i].RunID > result[j].RunID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.KeeperRunStore = (*KeeperRunStore)(nil)

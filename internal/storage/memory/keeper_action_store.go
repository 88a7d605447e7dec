package memory

import (
	"context"
	"sort"
	"sync"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

type actionKey struct {
	runID string
	seq   int
}

// KeeperActionStore is an in-memory implementation of storage.KeeperActionStore.
type KeeperActionStore struct {
	mu   sync.RWMutex
	data map[actionKey]*domain.KeeperAction
}

// NewKeeperActionStore creates a new in-memory keeper action store.
func NewKeeperActionStore() *KeeperActionStore {
	return &KeeperActionStore{
		data: make(map[actionKey]*domain.KeeperAction),
	}
}

// InsertBulk adds actions atomically. Fails entire batch on duplicate (run_id, seq).
func (s *KeeperActionStore) InsertBulk(_ context.Context, actions []*domain.KeeperAction) error {
	if len(actions) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before writing anything
	batch := make(map[actionKey]struct{}, len(actions))
	for _, a := range actions {
		if a == nil || a.RunID == "" {
			return storage.ErrInvalidInput
		}
		k := actionKey{runID: a.RunID, seq: a.Seq}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, dup := batch[k]; dup {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, a := range actions {
		actionCopy := *a
		s.data[actionKey{runID: a.RunID, seq: a.Seq}] = &actionCopy
	}
	return nil
}

// GetByRunID retrieves a run's actions ordered by seq ASC.
func (s *KeeperActionStore) GetByRunID(_ context.Context, runID string) ([]*domain.KeeperAction, error) {
	return s.filter(func(a *domain.KeeperAction) bool { return a.RunID == runID }, func(a, b *domain.KeeperAction) bool {
		return a.Seq < b.Seq
	}), nil
}

// GetByTarget retrieves every action taken on an account, oldest first.
func (s *KeeperActionStore) GetByTarget(_ context.Context, target string) ([]*domain.KeeperAction, error) {
	return s.filter(func(a *domain.KeeperAction) bool { return a.Target == target }, func(a, b *domain.KeeperAction) bool {
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		if a.RunID != b.RunID {
			return a.RunID < b.RunID
		}
		return a.Seq < b.Seq
	}), nil
}

func (s *KeeperActionStore) filter(keep func(*domain.KeeperAction) bool, less func(a, b *domain.KeeperAction) bool) []*domain.KeeperAction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.KeeperAction
	for _, a := range s.data {
		if keep(a) {
			actionCopy := *a
			result = append(result, &actionCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return less(result[i], result[j]) })
	return result
}

var _ storage.KeeperActionStore = (*KeeperActionStore)(nil)

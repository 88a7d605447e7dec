package memory

import (
	"context"
	"sort"
	"sync"

	"stablebond-keeper/internal/domain"
	"stablebond-keeper/internal/storage"
)

type conversionKey struct {
	user  string
	nonce uint64
}

// ConversionEventStore is an in-memory implementation of storage.ConversionEventStore.
type ConversionEventStore struct {
	mu   sync.RWMutex
	data map[conversionKey]*domain.ConversionEvent
}

// NewConversionEventStore creates a new in-memory conversion event store.
func NewConversionEventStore() *ConversionEventStore {
	return &ConversionEventStore{
		data: make(map[conversionKey]*domain.ConversionEvent),
	}
}

// Insert adds an event. Returns ErrDuplicateKey if (user, nonce) exists.
func (s *ConversionEventStore) Insert(_ context.Context, e *domain.ConversionEvent) error {
	if e == nil || e.User == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := conversionKey{user: e.User, nonce: e.Nonce}
	if _, exists := s.data[k]; exists {
		return storage.ErrDuplicateKey
	}
	eventCopy := *e
	s.data[k] = &eventCopy
	return nil
}

// GetByUser retrieves a user's conversions ordered by nonce ASC.
func (s *ConversionEventStore) GetByUser(_ context.Context, user string) ([]*domain.ConversionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ConversionEvent
	for _, e := range s.data {
		if e.User == user {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Nonce < result[j].Nonce
	})
	return result, nil
}

var _ storage.ConversionEventStore = (*ConversionEventStore)(nil)

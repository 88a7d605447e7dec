package memory

import (
	"context"
	"sync"
	"time"

	"stablebond-keeper/internal/storage"
)

// Locker is an in-process storage.Locker. Leases expire after ttl even if
// never released.
type Locker struct {
	mu   sync.Mutex
	ttl  time.Duration
	now  func() time.Time
	held map[string]leaseEntry
	next uint64
}

type leaseEntry struct {
	token   uint64
	expires time.Time
}

// NewLocker creates a locker whose leases last ttl.
func NewLocker(ttl time.Duration) *Locker {
	return &Locker{ttl: ttl, now: time.Now, held: make(map[string]leaseEntry)}
}

// Acquire takes the lease for key or returns storage.ErrLeaseHeld.
func (l *Locker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, storage.ErrLeaseHeld
	}
	l.next++
	token := l.next
	l.held[key] = leaseEntry{token: token, expires: now.Add(l.ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// Only release if we still own it
			if e, ok := l.held[key]; ok && e.token == token {
				delete(l.held, key)
			}
		})
	}, nil
}

var _ storage.Locker = (*Locker)(nil)

package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"stablebond-keeper/internal/storage"
)

// releaseLua deletes a lease only if the caller still holds it.
const releaseLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// Locker implements storage.Locker with SET NX and a TTL. A holder that
// crashes loses the lease when the TTL runs out.
type Locker struct {
	rdb     *redis.Client
	ttl     time.Duration
	prefix  string
	release *redis.Script
}

// NewLocker creates a Locker whose leases last ttl. Keys are namespaced
// under prefix.
func NewLocker(c *Client, prefix string, ttl time.Duration) *Locker {
	return &Locker{
		rdb:     c.rdb,
		ttl:     ttl,
		prefix:  prefix,
		release: redis.NewScript(releaseLua),
	}
}

// Acquire takes the lease for key or returns storage.ErrLeaseHeld.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lk := l.prefix + key

	ok, err := l.rdb.SetNX(ctx, lk, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, storage.ErrLeaseHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled at shutdown.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = l.release.Run(releaseCtx, l.rdb, []string{lk}, token).Err()
		})
	}, nil
}

// Compile-time interface check.
var _ storage.Locker = (*Locker)(nil)

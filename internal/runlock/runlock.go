package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"order_syncer/internal/domain"
)

// releaseScript deletes the lease only when it still belongs to the
// holder that acquired it, so an expired lease taken over by another
// run is never released from here.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker hands out per-channel run leases backed by Redis SET NX. A
// lease expires on its own after ttl, so a crashed run never blocks the
// channel forever.
type Locker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{
		client: client,
		prefix: "order_syncer:lease:",
		ttl:    ttl,
	}
}

// Acquire takes the lease for the given key. It returns
// domain.ErrSyncInProgress when another run already holds it.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	leaseKey := l.prefix + key
	holder := uuid.NewString()

	ok, err := l.client.SetNX(ctx, leaseKey, holder, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.client.Eval(ctx, releaseScript, []string{leaseKey}, holder)
	}
	return release, nil
}

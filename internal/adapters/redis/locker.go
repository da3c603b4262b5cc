package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/tripgate/pkg/ports"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	backend "github.com/redis/go-redis/v9"
)

// ErrLockLost is returned by an UnlockFunc when the lock expired before release.
var ErrLockLost = errors.New("lock expired before release")

// Locker implements ports.DistributedLocker with redsync.
type Locker struct {
	rs     *redsync.Redsync
	prefix string
}

var _ ports.DistributedLocker = (*Locker)(nil)

// NewLocker creates a locker whose keys are prefix + "lock:" + key.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: prefix,
	}
}

// Lock blocks until the lock is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	mutex := l.rs.NewMutex(l.prefix+"lock:"+key, redsync.WithExpiry(ttl))

	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failed to acquire lock %q: %w", key, ctxErr)
		}
		return nil, fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}

	return func(ctx context.Context) error {
		ok, err := mutex.UnlockContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to release lock %q: %w", key, err)
		}
		if !ok {
			return ErrLockLost
		}
		return nil
	}, nil
}

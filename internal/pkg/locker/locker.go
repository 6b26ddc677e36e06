package locker

import (
	"context"
	"time"

	"github.com/go-redsync/redsync/v4"
)

const defaultExpiry = 10 * time.Second

// Redsync hands out single-attempt redis mutexes.
type Redsync struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

func NewRedsync(rs *redsync.Redsync) *Redsync {
	return &Redsync{rs: rs, expiry: defaultExpiry}
}

func (l *Redsync) Obtain(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(key, redsync.WithExpiry(l.expiry), redsync.WithTries(1))
	if err := mutex.TryLockContext(ctx); err != nil {
		return nil, err
	}

	return func() {
		// nolint:errcheck
		mutex.UnlockContext(context.Background())
	}, nil
}

package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes the messages of one conversation across replicas,
// so two of them never read the same parked execution.
type DistributedLocker interface {
	// Lock blocks until the key is owned or ctx ends. The lock expires after ttl
	// even if never released. The returned UnlockFunc must always be called.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

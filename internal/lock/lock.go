// Package lock provides cross-instance mutual exclusion for scheduled jobs.
//
// The contract is deliberately small: TryAcquire never blocks, and a failed
// acquisition means "someone else is running this job" — callers skip the
// tick rather than retry. TTLs bound the blast radius of a crashed holder:
// once the TTL lapses another instance may acquire the key, so job bodies
// must stay idempotent.
package lock

import (
	"context"
	"time"
)

// Lock is the mutual exclusion capability guarding each scheduled job.
type Lock interface {
	// TryAcquire attempts to take the key for ttl. It returns false without
	// blocking when the key is already held.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees the key. Releasing a key that is not held is a no-op.
	Release(ctx context.Context, key string) error
}

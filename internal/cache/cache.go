package cache

import (
	"context"
	"time"
)

// Cache is the read-through cache used for hot lookups such as the guard's
// subscription reads.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

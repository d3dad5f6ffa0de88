package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLock is a process-local Lock. It is correct only for
// single-instance deployments: two processes each holding their own
// MemoryLock will happily run the same job concurrently. Deployments with
// more than one instance must configure the redis backend instead.
type MemoryLock struct {
	mu   sync.Mutex
	held map[string]time.Time
}

// NewMemoryLock creates a process-local lock set.
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[string]time.Time)}
}

func (l *MemoryLock) TryAcquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if expiry, ok := l.held[key]; ok && now.Before(expiry) {
		return false, nil
	}

	l.held[key] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

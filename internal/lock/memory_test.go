package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLock()

	ok, err := l.TryAcquire(ctx, "billing:issue_invoices", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.TryAcquire(ctx, "billing:issue_invoices", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire on held key must fail")

	// A different key is independent.
	ok, err = l.TryAcquire(ctx, "billing:send_reminders", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(ctx, "billing:issue_invoices"))

	ok, err = l.TryAcquire(ctx, "billing:issue_invoices", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "key must be acquirable after release")
}

func TestMemoryLockTTLExpiry(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLock()

	ok, err := l.TryAcquire(ctx, "k", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	ok, err = l.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired key must be acquirable without release")
}

func TestMemoryLockReleaseUnheldIsNoop(t *testing.T) {
	l := NewMemoryLock()
	assert.NoError(t, l.Release(context.Background(), "never-held"))
}

func TestMemoryLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLock()

	const goroutines = 32
	var wg sync.WaitGroup
	var acquired int64
	var mu sync.Mutex

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.TryAcquire(ctx, "contended", time.Minute)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, acquired, "exactly one concurrent caller may win the lock")
}

package testutil

import (
	"context"
	"sync"

	"github.com/loopbill/loopbill/internal/notification"
)

// FakeTxManager satisfies the service transaction surface without a
// database. WithTx simply runs the function; TryLockKey grants every lock
// unless the key is marked denied.
type FakeTxManager struct {
	mu     sync.Mutex
	denied map[string]bool
}

// NewFakeTxManager creates a fake that grants every lock.
func NewFakeTxManager() *FakeTxManager {
	return &FakeTxManager{denied: make(map[string]bool)}
}

func (f *FakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *FakeTxManager) TryLockKey(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.denied[key], nil
}

// DenyLock makes future TryLockKey calls for key report the lock as held.
func (f *FakeTxManager) DenyLock(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.denied[key] = true
}

// RecordingNotifier implements notification.Notifier and captures every
// reminder batch for assertions.
type RecordingNotifier struct {
	mu        sync.Mutex
	reminders []notification.Reminder
}

// NewRecordingNotifier creates an empty recording notifier.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{}
}

func (n *RecordingNotifier) SendReminders(_ context.Context, reminders []notification.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, reminders...)
	return nil
}

// Reminders returns every reminder delivered so far.
func (n *RecordingNotifier) Reminders() []notification.Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]notification.Reminder, len(n.reminders))
	copy(out, n.reminders)
	return out
}

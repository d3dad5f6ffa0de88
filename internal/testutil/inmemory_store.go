// Package testutil provides in-memory repository fakes for service tests.
// The fakes copy on read and write so tests cannot mutate stored state
// through shared pointers, mirroring what a real database round trip does.
package testutil

import (
	"context"
	"sync"

	ierr "github.com/loopbill/loopbill/internal/errors"
)

// InMemoryStore is a generic mutex-protected map used as the base of every
// repository fake.
type InMemoryStore[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore[T any]() *InMemoryStore[T] {
	return &InMemoryStore[T]{items: make(map[string]T)}
}

func (s *InMemoryStore[T]) Create(_ context.Context, key string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; ok {
		return ierr.NewErrorf("item already exists: %s", key).
			Mark(ierr.ErrAlreadyExists)
	}
	s.items[key] = item
	return nil
}

func (s *InMemoryStore[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		var zero T
		return zero, ierr.NewErrorf("item not found: %s", key).
			Mark(ierr.ErrNotFound)
	}
	return item, nil
}

func (s *InMemoryStore[T]) Update(_ context.Context, key string, item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return ierr.NewErrorf("item not found: %s", key).
			Mark(ierr.ErrNotFound)
	}
	s.items[key] = item
	return nil
}

// All returns every stored item in map iteration order; callers filter and
// sort themselves.
func (s *InMemoryStore[T]) All(_ context.Context) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	return out
}

// Count returns the number of stored items.
func (s *InMemoryStore[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

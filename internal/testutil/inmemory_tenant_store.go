package testutil

import (
	"context"

	"github.com/loopbill/loopbill/internal/domain/tenant"
)

// InMemoryTenantStore implements tenant.Repository.
type InMemoryTenantStore struct {
	*InMemoryStore[*tenant.Tenant]
}

// NewInMemoryTenantStore creates a new in-memory tenant directory.
func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		InMemoryStore: NewInMemoryStore[*tenant.Tenant](),
	}
}

// Add seeds a tenant into the directory.
func (s *InMemoryTenantStore) Add(t *tenant.Tenant) {
	copied := *t
	_ = s.InMemoryStore.Create(context.Background(), t.ID, &copied)
}

func (s *InMemoryTenantStore) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	copied := *t
	return &copied, nil
}

func (s *InMemoryTenantStore) GetByIDs(ctx context.Context, ids []string) (map[string]*tenant.Tenant, error) {
	out := make(map[string]*tenant.Tenant, len(ids))
	for _, id := range ids {
		t, err := s.InMemoryStore.Get(ctx, id)
		if err != nil {
			// Directory misses are tolerated: aggregation renders what it has.
			continue
		}
		copied := *t
		out[id] = &copied
	}
	return out, nil
}

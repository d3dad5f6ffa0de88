package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/loopbill/loopbill/internal/domain/billing"
	ierr "github.com/loopbill/loopbill/internal/errors"
)

// InMemoryBillingConfigStore implements billing.ConfigRepository.
type InMemoryBillingConfigStore struct {
	*InMemoryStore[*billing.TenantBillingConfig]
}

// NewInMemoryBillingConfigStore creates a new in-memory config store.
func NewInMemoryBillingConfigStore() *InMemoryBillingConfigStore {
	return &InMemoryBillingConfigStore{
		InMemoryStore: NewInMemoryStore[*billing.TenantBillingConfig](),
	}
}

func copyConfig(cfg *billing.TenantBillingConfig) *billing.TenantBillingConfig {
	if cfg == nil {
		return nil
	}
	copied := *cfg
	if cfg.MonthlyPriceUsd != nil {
		price := *cfg.MonthlyPriceUsd
		copied.MonthlyPriceUsd = &price
	}
	return &copied
}

func (s *InMemoryBillingConfigStore) Get(ctx context.Context, tenantID string) (*billing.TenantBillingConfig, error) {
	cfg, err := s.InMemoryStore.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return copyConfig(cfg), nil
}

func (s *InMemoryBillingConfigStore) Create(ctx context.Context, cfg *billing.TenantBillingConfig) error {
	return s.InMemoryStore.Create(ctx, cfg.TenantID, copyConfig(cfg))
}

func (s *InMemoryBillingConfigStore) Update(ctx context.Context, cfg *billing.TenantBillingConfig) error {
	return s.InMemoryStore.Update(ctx, cfg.TenantID, copyConfig(cfg))
}

func (s *InMemoryBillingConfigStore) ListAll(ctx context.Context) ([]*billing.TenantBillingConfig, error) {
	configs := s.All(ctx)
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].TenantID < configs[j].TenantID
	})
	out := make([]*billing.TenantBillingConfig, len(configs))
	for i, cfg := range configs {
		out[i] = copyConfig(cfg)
	}
	return out, nil
}

// InMemorySubscriptionStore implements billing.SubscriptionRepository.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*billing.TenantSubscription]
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store.
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*billing.TenantSubscription](),
	}
}

func copySubscription(sub *billing.TenantSubscription) *billing.TenantSubscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	copied.NextDueAt = copyTimePtr(sub.NextDueAt)
	copied.LastPaidAt = copyTimePtr(sub.LastPaidAt)
	copied.SuspendAt = copyTimePtr(sub.SuspendAt)
	if sub.SuspendReason != nil {
		reason := *sub.SuspendReason
		copied.SuspendReason = &reason
	}
	return &copied
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, tenantID string) (*billing.TenantSubscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *billing.TenantSubscription) error {
	return s.InMemoryStore.Create(ctx, sub.TenantID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *billing.TenantSubscription) error {
	return s.InMemoryStore.Update(ctx, sub.TenantID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) List(ctx context.Context, filter *billing.SubscriptionFilter) ([]*billing.TenantSubscription, error) {
	subs := s.All(ctx)
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].TenantID < subs[j].TenantID
	})

	var matched []*billing.TenantSubscription
	for _, sub := range subs {
		if filter != nil {
			if filter.SubscriptionStatus != nil && sub.SubscriptionStatus != *filter.SubscriptionStatus {
				continue
			}
			if len(filter.TenantIDs) > 0 && !containsString(filter.TenantIDs, sub.TenantID) {
				continue
			}
		}
		matched = append(matched, copySubscription(sub))
	}

	if filter != nil && filter.QueryFilter != nil {
		matched = paginate(matched, filter.GetOffset(), filter.GetLimit())
	}
	return matched, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// InMemoryInvoiceStore implements billing.InvoiceRepository, including the
// unique (tenant, period_start, period_end) constraint that issuance
// idempotence depends on.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*billing.BillingInvoice]

	mu      sync.Mutex
	periods map[string]string
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store.
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*billing.BillingInvoice](),
		periods:       make(map[string]string),
	}
}

func copyInvoice(inv *billing.BillingInvoice) *billing.BillingInvoice {
	if inv == nil {
		return nil
	}
	copied := *inv
	copied.PaidAt = copyTimePtr(inv.PaidAt)
	if inv.DepositID != nil {
		dep := *inv.DepositID
		copied.DepositID = &dep
	}
	return &copied
}

func periodKey(inv *billing.BillingInvoice) string {
	return fmt.Sprintf("%s|%s|%s",
		inv.TenantID,
		inv.PeriodStart.Format("2006-01-02"),
		inv.PeriodEnd.Format("2006-01-02"))
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *billing.BillingInvoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := periodKey(inv)
	if existing, ok := s.periods[key]; ok {
		return ierr.NewErrorf("invoice already exists for period: %s", existing).
			Mark(ierr.ErrAlreadyExists)
	}
	if err := s.InMemoryStore.Create(ctx, inv.ID, copyInvoice(inv)); err != nil {
		return err
	}
	s.periods[key] = inv.ID
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*billing.BillingInvoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *billing.BillingInvoice) error {
	return s.InMemoryStore.Update(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *billing.InvoiceFilter) ([]*billing.BillingInvoice, error) {
	invoices := s.All(ctx)
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].DueAt.Equal(invoices[j].DueAt) {
			return invoices[i].DueAt.Before(invoices[j].DueAt)
		}
		return invoices[i].ID < invoices[j].ID
	})

	var matched []*billing.BillingInvoice
	for _, inv := range invoices {
		if filter != nil {
			if filter.TenantID != "" && inv.TenantID != filter.TenantID {
				continue
			}
			if filter.InvoiceStatus != nil && inv.InvoiceStatus != *filter.InvoiceStatus {
				continue
			}
			if filter.OverdueAsOf != nil && !(inv.IsOpen() && inv.DueAt.Before(*filter.OverdueAsOf)) {
				continue
			}
			if filter.DueBefore != nil && !inv.DueAt.Before(*filter.DueBefore) {
				continue
			}
		}
		matched = append(matched, copyInvoice(inv))
	}

	if filter != nil && filter.QueryFilter != nil {
		matched = paginate(matched, filter.GetOffset(), filter.GetLimit())
	}
	return matched, nil
}

func (s *InMemoryInvoiceStore) CountOpenByTenant(ctx context.Context, now time.Time) (map[string]billing.OpenCounts, error) {
	counts := make(map[string]billing.OpenCounts)
	for _, inv := range s.All(ctx) {
		if !inv.IsOpen() {
			continue
		}
		c := counts[inv.TenantID]
		c.Open++
		if inv.DueAt.Before(now) {
			c.Overdue++
		}
		counts[inv.TenantID] = c
	}
	return counts, nil
}

package billing

import (
	"context"
	"time"

	"github.com/loopbill/loopbill/internal/types"
)

// ConfigRepository persists tenant billing configs.
type ConfigRepository interface {
	Get(ctx context.Context, tenantID string) (*TenantBillingConfig, error)
	Create(ctx context.Context, cfg *TenantBillingConfig) error
	Update(ctx context.Context, cfg *TenantBillingConfig) error
	// ListAll returns every tenant config. Scheduled runs iterate the full
	// set sequentially; see the scheduler for why this is acceptable today.
	ListAll(ctx context.Context) ([]*TenantBillingConfig, error)
}

// SubscriptionRepository persists tenant subscriptions.
type SubscriptionRepository interface {
	Get(ctx context.Context, tenantID string) (*TenantSubscription, error)
	Create(ctx context.Context, sub *TenantSubscription) error
	Update(ctx context.Context, sub *TenantSubscription) error
	List(ctx context.Context, filter *SubscriptionFilter) ([]*TenantSubscription, error)
}

// InvoiceRepository persists the invoice ledger.
type InvoiceRepository interface {
	// Create inserts a new invoice. Inserting a second invoice for the same
	// (tenant, period_start, period_end) returns an error marked
	// ierr.ErrAlreadyExists, which issuance treats as "already issued".
	Create(ctx context.Context, inv *BillingInvoice) error
	Get(ctx context.Context, id string) (*BillingInvoice, error)
	Update(ctx context.Context, inv *BillingInvoice) error
	List(ctx context.Context, filter *InvoiceFilter) ([]*BillingInvoice, error)
	// CountOpenByTenant returns per-tenant open and overdue invoice counts
	// for the admin aggregation.
	CountOpenByTenant(ctx context.Context, now time.Time) (map[string]OpenCounts, error)
}

// OpenCounts is the per-tenant open/overdue tally used by admin aggregation.
type OpenCounts struct {
	Open    int
	Overdue int
}

// SubscriptionFilter narrows subscription listings.
type SubscriptionFilter struct {
	*types.QueryFilter
	SubscriptionStatus *types.SubscriptionStatus
	TenantIDs          []string
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	*types.QueryFilter
	TenantID      string
	InvoiceStatus *types.InvoiceStatus
	// OverdueAsOf, when set, keeps only OPEN invoices with due_at before it.
	OverdueAsOf *time.Time
	// DueBefore, when set, keeps invoices with due_at strictly before it.
	DueBefore *time.Time
}

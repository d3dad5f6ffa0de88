// Package tenant exposes the read-only tenant directory. Billing only ever
// reads it: tenant onboarding and lifecycle belong to another service.
package tenant

import (
	"context"
	"time"
)

// Tenant is a directory entry for one customer account.
type Tenant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// ContactEmail is the billing contact; empty means no reminders are
	// deliverable for this tenant.
	ContactEmail string    `json:"contact_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Repository is the read-only tenant directory.
type Repository interface {
	Get(ctx context.Context, id string) (*Tenant, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*Tenant, error)
}

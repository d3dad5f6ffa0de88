package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/loopbill/loopbill/internal/domain/billing"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/types"
)

// IssueRunResult reports one issuance run. Locked is set by the manual
// trigger path when the distributed lock was held.
type IssueRunResult struct {
	Created int  `json:"created"`
	Skipped int  `json:"skipped"`
	Locked  bool `json:"locked,omitempty"`
}

// ReminderRunResult reports one reminder run.
type ReminderRunResult struct {
	Matches int  `json:"matches"`
	Locked  bool `json:"locked,omitempty"`
}

// EnforcementRunResult reports one enforcement run.
type EnforcementRunResult struct {
	Suspended int  `json:"suspended"`
	Locked    bool `json:"locked,omitempty"`
}

// MarkPaidRequest marks an invoice paid, optionally linking the deposit that
// settled it.
type MarkPaidRequest struct {
	DepositID *string `json:"deposit_id,omitempty"`
}

// CreateDepositRequest creates a pending deposit against a stored payment
// method. InvoiceID tags the deposit to a specific invoice; without it the
// deposit is a generic top-up.
type CreateDepositRequest struct {
	AmountUsd decimal.Decimal `json:"amount_usd"`
	MethodID  string          `json:"method_id"`
	InvoiceID *string         `json:"invoice_id,omitempty"`
	Note      string          `json:"note,omitempty"`
}

func (r *CreateDepositRequest) Validate() error {
	if !r.AmountUsd.IsPositive() {
		return ierr.NewError("amount must be greater than zero").
			WithDisplayCode(ierr.CodeInvalidAmount).
			WithHint("Deposit amount must be a positive value").
			Mark(ierr.ErrValidation)
	}
	if r.MethodID == "" {
		return ierr.NewError("method_id is required").
			WithDisplayCode(ierr.CodeMethodRequired).
			WithHint("A payment method is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// UpdateBillingConfigRequest is the typed config patch. Nil fields are left
// unchanged.
type UpdateBillingConfigRequest struct {
	MonthlyPriceUsd    *decimal.Decimal `json:"monthly_price_usd,omitempty"`
	GraceDays          *int             `json:"grace_days,omitempty"`
	EnforcementEnabled *bool            `json:"enforcement_enabled,omitempty"`
}

func (r *UpdateBillingConfigRequest) Validate() error {
	if r.MonthlyPriceUsd != nil && r.MonthlyPriceUsd.IsNegative() {
		return ierr.NewError("monthly_price_usd cannot be negative").
			WithDisplayCode(ierr.CodeInvalidAmount).
			WithHint("Monthly price must be 0 or greater").
			Mark(ierr.ErrValidation)
	}
	if r.GraceDays != nil && *r.GraceDays < 0 {
		return ierr.NewError("grace_days cannot be negative").
			WithHint("Grace days must be 0 or greater").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TenantOverviewResponse is the derived billing overview for one tenant.
// Everything here is recomputable from stored state.
type TenantOverviewResponse struct {
	TenantID           string                   `json:"tenant_id"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	OpenInvoices       int                      `json:"open_invoices"`
	HasOverdue         bool                     `json:"has_overdue"`
	// DaysUntilDue is days from now to the earliest open invoice's due date;
	// negative values are reported via DaysOverdue instead.
	DaysUntilDue *int `json:"days_until_due,omitempty"`
	DaysOverdue  *int `json:"days_overdue,omitempty"`
	// PeriodProgressPct is elapsed/span through the current period, clamped
	// to [0,100].
	PeriodProgressPct  int        `json:"period_progress_pct"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	NextDueAt          *time.Time `json:"next_due_at,omitempty"`
}

// InvoiceResponse is one ledger entry in API responses. Amounts are
// fixed-point decimal strings.
type InvoiceResponse struct {
	ID            string              `json:"id"`
	TenantID      string              `json:"tenant_id"`
	PeriodStart   string              `json:"period_start"`
	PeriodEnd     string              `json:"period_end"`
	AmountUsd     string              `json:"amount_usd"`
	InvoiceStatus types.InvoiceStatus `json:"status"`
	IssuedAt      time.Time           `json:"issued_at"`
	DueAt         time.Time           `json:"due_at"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	DepositID     *string             `json:"deposit_id,omitempty"`
}

// NewInvoiceResponse converts a domain invoice to its API shape.
func NewInvoiceResponse(inv *billing.BillingInvoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:            inv.ID,
		TenantID:      inv.TenantID,
		PeriodStart:   inv.PeriodStart.Format("2006-01-02"),
		PeriodEnd:     inv.PeriodEnd.Format("2006-01-02"),
		AmountUsd:     inv.AmountString(),
		InvoiceStatus: inv.InvoiceStatus,
		IssuedAt:      inv.IssuedAt,
		DueAt:         inv.DueAt,
		PaidAt:        inv.PaidAt,
		DepositID:     inv.DepositID,
	}
}

// ListInvoicesRequest filters a tenant's invoice listing.
type ListInvoicesRequest struct {
	InvoiceStatus *types.InvoiceStatus `form:"status"`
	Overdue       *bool                `form:"overdue"`
	*types.QueryFilter
}

func (r *ListInvoicesRequest) Validate() error {
	if r.InvoiceStatus != nil {
		return r.InvoiceStatus.Validate()
	}
	return nil
}

// ListInvoicesResponse is a page of invoices.
type ListInvoicesResponse struct {
	Items []*InvoiceResponse `json:"items"`
	Total int                `json:"total"`
}

// DepositResponse is the created deposit returned to the caller.
type DepositResponse struct {
	ID            string              `json:"id"`
	TenantID      string              `json:"tenant_id"`
	MethodID      string              `json:"method_id"`
	AmountUsd     string              `json:"amount_usd"`
	DepositStatus types.DepositStatus `json:"status"`
	InvoiceID     *string             `json:"invoice_id,omitempty"`
	Note          string              `json:"note,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// BillingConfigResponse is the per-tenant config in API responses.
type BillingConfigResponse struct {
	TenantID           string              `json:"tenant_id"`
	MonthlyPriceUsd    *string             `json:"monthly_price_usd,omitempty"`
	BillingAnchor      types.BillingAnchor `json:"billing_anchor"`
	GraceDays          int                 `json:"grace_days"`
	EnforcementEnabled bool                `json:"enforcement_enabled"`
}

// NewBillingConfigResponse converts a domain config to its API shape.
func NewBillingConfigResponse(cfg *billing.TenantBillingConfig) *BillingConfigResponse {
	resp := &BillingConfigResponse{
		TenantID:           cfg.TenantID,
		BillingAnchor:      cfg.BillingAnchor,
		GraceDays:          cfg.GraceDays,
		EnforcementEnabled: cfg.EnforcementEnabled,
	}
	if cfg.MonthlyPriceUsd != nil {
		s := cfg.MonthlyPriceUsd.StringFixed(billing.AmountPrecision)
		resp.MonthlyPriceUsd = &s
	}
	return resp
}

// AdminTenantsRequest filters the admin tenant aggregation.
type AdminTenantsRequest struct {
	SubscriptionStatus *types.SubscriptionStatus `form:"status"`
	Overdue            *bool                     `form:"overdue"`
	*types.QueryFilter
}

func (r *AdminTenantsRequest) Validate() error {
	if r.SubscriptionStatus != nil {
		return r.SubscriptionStatus.Validate()
	}
	return nil
}

// AdminTenantRow is one aggregated tenant in the admin listing.
type AdminTenantRow struct {
	TenantID           string                   `json:"tenant_id"`
	TenantName         string                   `json:"tenant_name,omitempty"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	OpenInvoices       int                      `json:"open_invoices"`
	OverdueInvoices    int                      `json:"overdue_invoices"`
	NextDueAt          *time.Time               `json:"next_due_at,omitempty"`
	SuspendAt          *time.Time               `json:"suspend_at,omitempty"`
}

// AdminTenantsResponse is a page of aggregated tenants. Total reflects the
// post-filter count, not the page size.
type AdminTenantsResponse struct {
	Items []*AdminTenantRow `json:"items"`
	Total int               `json:"total"`
}

package billing

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/types"
)

// AmountPrecision is the number of fractional digits money is stored with.
// Amounts travel as fixed-point decimal strings to avoid float drift.
const AmountPrecision = 6

// TenantBillingConfig holds the per-tenant billing knobs. It is created
// lazily with safe defaults on first read, so a missing row is never an
// error condition.
type TenantBillingConfig struct {
	// MonthlyPriceUsd is the flat monthly price. Nil or zero means the
	// tenant is never billed.
	MonthlyPriceUsd    *decimal.Decimal    `json:"monthly_price_usd,omitempty"`
	BillingAnchor      types.BillingAnchor `json:"billing_anchor"`
	GraceDays          int                 `json:"grace_days"`
	EnforcementEnabled bool                `json:"enforcement_enabled"`
	types.BaseModel
}

// NewDefaultConfig returns the config a tenant gets on first read.
func NewDefaultConfig(tenantID string) *TenantBillingConfig {
	return &TenantBillingConfig{
		BillingAnchor:      types.BillingAnchorEndOfMonth,
		GraceDays:          types.DefaultGraceDays,
		EnforcementEnabled: true,
		BaseModel:          types.GetDefaultBaseModel(tenantID, ""),
	}
}

// IsBillable reports whether issuance should create invoices for this tenant.
func (c *TenantBillingConfig) IsBillable() bool {
	return c.MonthlyPriceUsd != nil && c.MonthlyPriceUsd.IsPositive()
}

func (c *TenantBillingConfig) Validate() error {
	if c.TenantID == "" {
		return ierr.NewError("tenant_id is required").Mark(ierr.ErrValidation)
	}
	if c.GraceDays < 0 {
		return ierr.NewError("grace_days cannot be negative").
			WithHint("Grace days must be 0 or greater").
			Mark(ierr.ErrValidation)
	}
	if c.MonthlyPriceUsd != nil && c.MonthlyPriceUsd.IsNegative() {
		return ierr.NewError("monthly_price_usd cannot be negative").
			WithHint("Monthly price must be 0 or greater").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TenantSubscription tracks a tenant's billing state machine.
//
// Invariant: Status == SUSPENDED iff SuspendAt and SuspendReason are both
// set; any transition to ACTIVE clears both atomically with the status.
type TenantSubscription struct {
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	CurrentPeriodStart time.Time                `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                `json:"current_period_end"`
	NextDueAt          *time.Time               `json:"next_due_at,omitempty"`
	LastPaidAt         *time.Time               `json:"last_paid_at,omitempty"`
	SuspendAt          *time.Time               `json:"suspend_at,omitempty"`
	SuspendReason      *string                  `json:"suspend_reason,omitempty"`
	types.BaseModel
}

// IsSuspended reports whether the tenant is currently suspended.
func (s *TenantSubscription) IsSuspended() bool {
	return s.SubscriptionStatus == types.SubscriptionStatusSuspended
}

// Suspend transitions the subscription to SUSPENDED, stamping both suspend
// fields with the status change. No-op semantics belong to the caller.
func (s *TenantSubscription) Suspend(at time.Time, reason string) {
	s.SubscriptionStatus = types.SubscriptionStatusSuspended
	s.SuspendAt = &at
	s.SuspendReason = &reason
	s.UpdatedAt = at
}

// Activate transitions the subscription to ACTIVE and clears the suspend
// fields, keeping the suspension invariant.
func (s *TenantSubscription) Activate(at time.Time) {
	s.SubscriptionStatus = types.SubscriptionStatusActive
	s.SuspendAt = nil
	s.SuspendReason = nil
	s.UpdatedAt = at
}

func (s *TenantSubscription) Validate() error {
	if s.TenantID == "" {
		return ierr.NewError("tenant_id is required").Mark(ierr.ErrValidation)
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	suspended := s.SubscriptionStatus == types.SubscriptionStatusSuspended
	if suspended != (s.SuspendAt != nil && s.SuspendReason != nil) {
		return ierr.NewError("suspend fields inconsistent with status").
			WithHint("suspend_at and suspend_reason must be set exactly when status is SUSPENDED").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillingInvoice is one entry in a tenant's invoice ledger.
//
// Invariant: at most one invoice exists per (tenant, period_start,
// period_end); the unique constraint violation on insert means "already
// issued" and is not an error.
type BillingInvoice struct {
	ID            string              `json:"id"`
	PeriodStart   time.Time           `json:"period_start"`
	PeriodEnd     time.Time           `json:"period_end"`
	AmountUsd     decimal.Decimal     `json:"amount_usd"`
	InvoiceStatus types.InvoiceStatus `json:"invoice_status"`
	IssuedAt      time.Time           `json:"issued_at"`
	DueAt         time.Time           `json:"due_at"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
	DepositID     *string             `json:"deposit_id,omitempty"`
	types.BaseModel
}

// AmountString returns the amount as a fixed-point decimal string.
func (i *BillingInvoice) AmountString() string {
	return i.AmountUsd.StringFixed(AmountPrecision)
}

// IsOpen reports whether the invoice can still be paid.
func (i *BillingInvoice) IsOpen() bool {
	return i.InvoiceStatus == types.InvoiceStatusOpen
}

// IsOverdue reports whether the invoice is OPEN and past its due date.
func (i *BillingInvoice) IsOverdue(now time.Time) bool {
	return i.IsOpen() && now.After(i.DueAt)
}

// MarkPaid transitions the invoice to PAID. PAID is terminal for the
// automated flows; it never reverts to OPEN.
func (i *BillingInvoice) MarkPaid(at time.Time, depositID *string) {
	i.InvoiceStatus = types.InvoiceStatusPaid
	i.PaidAt = &at
	i.DepositID = depositID
	i.UpdatedAt = at
}

func (i *BillingInvoice) Validate() error {
	if i.TenantID == "" {
		return ierr.NewError("tenant_id is required").Mark(ierr.ErrValidation)
	}
	if err := i.InvoiceStatus.Validate(); err != nil {
		return err
	}
	if i.AmountUsd.IsNegative() {
		return ierr.NewError("amount_usd cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if i.PeriodEnd.Before(i.PeriodStart) {
		return ierr.NewError("period_end before period_start").
			Mark(ierr.ErrValidation)
	}
	return nil
}

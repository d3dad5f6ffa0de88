package types

import (
	"time"

	ierr "github.com/loopbill/loopbill/internal/errors"
)

// InvoiceStatus is the lifecycle state of a billing invoice.
// OPEN → PAID is the only automated transition; VOID is a manual terminal
// state and a PAID invoice never reverts to OPEN.
type InvoiceStatus string

const (
	InvoiceStatusOpen InvoiceStatus = "OPEN"
	InvoiceStatusPaid InvoiceStatus = "PAID"
	InvoiceStatusVoid InvoiceStatus = "VOID"
)

func (s InvoiceStatus) Validate() error {
	switch s {
	case InvoiceStatusOpen, InvoiceStatusPaid, InvoiceStatusVoid:
		return nil
	default:
		return ierr.NewErrorf("invalid invoice status: %s", s).
			WithHint("Invoice status must be one of OPEN, PAID, VOID").
			Mark(ierr.ErrValidation)
	}
}

// SubscriptionStatus is the lifecycle state of a tenant subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusSuspended SubscriptionStatus = "SUSPENDED"
)

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusSuspended:
		return nil
	default:
		return ierr.NewErrorf("invalid subscription status: %s", s).
			WithHint("Subscription status must be one of ACTIVE, SUSPENDED").
			Mark(ierr.ErrValidation)
	}
}

// BillingAnchor determines where in the calendar month invoices are issued.
// Only end-of-month anchoring is supported today.
type BillingAnchor string

const (
	BillingAnchorEndOfMonth BillingAnchor = "END_OF_MONTH"
)

// SuspendReasonPaymentOverdue is the fixed reason code stamped by enforcement.
const SuspendReasonPaymentOverdue = "payment_overdue"

// DefaultGraceDays applies when a tenant config is lazily created.
const DefaultGraceDays = 3

// PaymentMethodStatus is the state of a stored payment method.
type PaymentMethodStatus string

const (
	PaymentMethodStatusActive   PaymentMethodStatus = "ACTIVE"
	PaymentMethodStatusDisabled PaymentMethodStatus = "DISABLED"
)

// DepositStatus is the state of a billing deposit handed to the payments
// collaborator. Approval happens outside this service.
type DepositStatus string

const (
	DepositStatusPending DepositStatus = "PENDING"
)

// Scheduled job identities and their lock TTLs. TTLs bound the blast radius
// of a crashed holder; the next tick is the retry mechanism.
const (
	JobIssueInvoices    = "billing:issue_invoices"
	JobApplyEnforcement = "billing:apply_enforcement"
	JobSendReminders    = "billing:send_reminders"
)

const (
	LockTTLIssueInvoices    = 5 * time.Minute
	LockTTLApplyEnforcement = 15 * time.Minute
	LockTTLSendReminders    = 5 * time.Minute
)

// SubscriptionCacheKey is the shared cache key for a tenant's subscription.
// The billing service invalidates it on every status transition.
func SubscriptionCacheKey(tenantID string) string {
	return "billing:subscription:" + tenantID
}

// Package payment models the bridge into the external payments collaborator.
// Billing creates pending deposits here; approval and settlement happen in
// the payments service, which later calls back into billing to mark invoices
// paid.
package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/loopbill/loopbill/internal/types"
)

// Method is a stored payment method owned by a tenant.
type Method struct {
	ID           string                    `json:"id"`
	MethodStatus types.PaymentMethodStatus `json:"method_status"`
	Label        string                    `json:"label"`
	types.BaseModel
}

// IsUsable reports whether deposits may be created against this method.
func (m *Method) IsUsable(tenantID string) bool {
	return m.MethodStatus == types.PaymentMethodStatusActive && m.TenantID == tenantID
}

// Deposit is a pending payment handed to the payments collaborator.
type Deposit struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	MethodID      string              `json:"method_id"`
	AmountUsd     decimal.Decimal     `json:"amount_usd"`
	DepositStatus types.DepositStatus `json:"deposit_status"`
	// InvoiceID links the deposit to the invoice it should settle; nil for
	// a generic top-up.
	InvoiceID *string `json:"invoice_id,omitempty"`
	Note      string  `json:"note,omitempty"`
	types.BaseModel
}

// Repository is the payments collaborator surface billing depends on:
// method lookup plus deposit creation, nothing more.
type Repository interface {
	GetMethod(ctx context.Context, id string) (*Method, error)
	CreateDeposit(ctx context.Context, dep *Deposit) error
}

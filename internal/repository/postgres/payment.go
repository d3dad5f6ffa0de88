package postgres

import (
	"context"
	"database/sql"

	"github.com/loopbill/loopbill/internal/domain/billing"
	"github.com/loopbill/loopbill/internal/domain/payment"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/postgres"
)

type paymentRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

// NewPaymentRepository returns the payments collaborator bridge: method
// lookups plus pending deposit inserts. Deposit approval lives in the
// payments service.
func NewPaymentRepository(client *postgres.Client, log *logger.Logger) payment.Repository {
	return &paymentRepository{client: client, log: log}
}

func (r *paymentRepository) GetMethod(ctx context.Context, id string) (*payment.Method, error) {
	row := r.client.Runner(ctx).QueryRowContext(ctx, `
		SELECT id, tenant_id, method_status, label, created_at, updated_at
		FROM payment_methods
		WHERE id = $1
	`, id)

	var m payment.Method
	err := row.Scan(&m.ID, &m.TenantID, &m.MethodStatus, &m.Label, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("payment method not found").
			WithReportableDetails(map[string]interface{}{"method_id": id}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment method").
			Mark(ierr.ErrDatabase)
	}
	return &m, nil
}

func (r *paymentRepository) CreateDeposit(ctx context.Context, dep *payment.Deposit) error {
	_, err := r.client.Runner(ctx).ExecContext(ctx, `
		INSERT INTO billing_deposits (
			id, tenant_id, user_id, method_id, amount_usd, deposit_status,
			invoice_id, note, status, created_at, updated_at, created_by, updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		dep.ID, dep.TenantID, dep.UserID, dep.MethodID,
		dep.AmountUsd.StringFixed(billing.AmountPrecision), dep.DepositStatus,
		dep.InvoiceID, dep.Note, dep.Status, dep.CreatedAt, dep.UpdatedAt,
		dep.CreatedBy, dep.UpdatedBy,
	)
	if postgres.IsUniqueViolation(err) {
		return ierr.WithError(err).
			WithHint("Deposit already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create deposit").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

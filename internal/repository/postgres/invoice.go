package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loopbill/loopbill/internal/domain/billing"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/postgres"
	"github.com/loopbill/loopbill/internal/types"
)

type invoiceRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

// NewInvoiceRepository returns the postgres-backed invoice repository.
func NewInvoiceRepository(client *postgres.Client, log *logger.Logger) billing.InvoiceRepository {
	return &invoiceRepository{client: client, log: log}
}

const invoiceColumns = `
	id, tenant_id, period_start, period_end, amount_usd, invoice_status,
	issued_at, due_at, paid_at, deposit_id,
	status, created_at, updated_at, created_by, updated_by`

func (r *invoiceRepository) Create(ctx context.Context, inv *billing.BillingInvoice) error {
	_, err := r.client.Runner(ctx).ExecContext(ctx, `
		INSERT INTO billing_invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		inv.ID, inv.TenantID, inv.PeriodStart, inv.PeriodEnd, inv.AmountString(),
		inv.InvoiceStatus, inv.IssuedAt, inv.DueAt, inv.PaidAt, inv.DepositID,
		inv.Status, inv.CreatedAt, inv.UpdatedAt, inv.CreatedBy, inv.UpdatedBy,
	)
	if postgres.IsUniqueViolation(err) {
		// The (tenant, period) unique constraint fired: the period was
		// already issued. Callers treat this as a skip, not a failure.
		return ierr.WithError(err).
			WithHint("Invoice already issued for this period").
			WithReportableDetails(map[string]interface{}{
				"tenant_id":    inv.TenantID,
				"period_start": inv.PeriodStart.Format(time.RFC3339),
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*billing.BillingInvoice, error) {
	row := r.client.Runner(ctx).QueryRowContext(ctx, `
		SELECT `+invoiceColumns+`
		FROM billing_invoices
		WHERE id = $1 AND status = $2
	`, id, types.StatusPublished)

	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("invoice not found").
			WithReportableDetails(map[string]interface{}{"invoice_id": id}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	return inv, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *billing.BillingInvoice) error {
	res, err := r.client.Runner(ctx).ExecContext(ctx, `
		UPDATE billing_invoices
		SET invoice_status = $2, paid_at = $3, deposit_id = $4,
		    updated_at = $5, updated_by = $6
		WHERE id = $1 AND status = $7
	`,
		inv.ID, inv.InvoiceStatus, inv.PaidAt, inv.DepositID,
		inv.UpdatedAt, inv.UpdatedBy, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("invoice not found").
			WithReportableDetails(map[string]interface{}{"invoice_id": inv.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filter *billing.InvoiceFilter) ([]*billing.BillingInvoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM billing_invoices
		WHERE status = $1`
	args := []interface{}{types.StatusPublished}

	if filter != nil {
		if filter.TenantID != "" {
			args = append(args, filter.TenantID)
			query += fmt.Sprintf(" AND tenant_id = $%d", len(args))
		}
		if filter.InvoiceStatus != nil {
			args = append(args, *filter.InvoiceStatus)
			query += fmt.Sprintf(" AND invoice_status = $%d", len(args))
		}
		if filter.OverdueAsOf != nil {
			args = append(args, types.InvoiceStatusOpen, *filter.OverdueAsOf)
			query += fmt.Sprintf(" AND invoice_status = $%d AND due_at < $%d", len(args)-1, len(args))
		}
		if filter.DueBefore != nil {
			args = append(args, *filter.DueBefore)
			query += fmt.Sprintf(" AND due_at < $%d", len(args))
		}
	}

	query += ` ORDER BY due_at ASC, id ASC`

	if filter != nil && filter.QueryFilter != nil {
		args = append(args, filter.GetLimit(), filter.GetOffset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.client.Runner(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var invoices []*billing.BillingInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan invoice").
				Mark(ierr.ErrDatabase)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

func (r *invoiceRepository) CountOpenByTenant(ctx context.Context, now time.Time) (map[string]billing.OpenCounts, error) {
	rows, err := r.client.Runner(ctx).QueryContext(ctx, `
		SELECT tenant_id,
		       COUNT(*) AS open_count,
		       COUNT(*) FILTER (WHERE due_at < $1) AS overdue_count
		FROM billing_invoices
		WHERE invoice_status = $2 AND status = $3
		GROUP BY tenant_id
	`, now, types.InvoiceStatusOpen, types.StatusPublished)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to count open invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	counts := make(map[string]billing.OpenCounts)
	for rows.Next() {
		var tenantID string
		var c billing.OpenCounts
		if err := rows.Scan(&tenantID, &c.Open, &c.Overdue); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan open invoice counts").
				Mark(ierr.ErrDatabase)
		}
		counts[tenantID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate open invoice counts").
			Mark(ierr.ErrDatabase)
	}
	return counts, nil
}

func scanInvoice(row rowScanner) (*billing.BillingInvoice, error) {
	var inv billing.BillingInvoice
	var amount string
	var paidAt sql.NullTime
	var depositID, createdBy, updatedBy sql.NullString

	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.PeriodStart, &inv.PeriodEnd, &amount,
		&inv.InvoiceStatus, &inv.IssuedAt, &inv.DueAt, &paidAt, &depositID,
		&inv.Status, &inv.CreatedAt, &inv.UpdatedAt, &createdBy, &updatedBy,
	)
	if err != nil {
		return nil, err
	}

	inv.AmountUsd, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		t := paidAt.Time.UTC()
		inv.PaidAt = &t
	}
	if depositID.Valid {
		inv.DepositID = &depositID.String
	}
	inv.CreatedBy = createdBy.String
	inv.UpdatedBy = updatedBy.String
	inv.PeriodStart = inv.PeriodStart.UTC()
	inv.PeriodEnd = inv.PeriodEnd.UTC()
	inv.IssuedAt = inv.IssuedAt.UTC()
	inv.DueAt = inv.DueAt.UTC()
	return &inv, nil
}

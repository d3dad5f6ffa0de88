package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/loopbill/loopbill/internal/domain/billing"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/postgres"
	"github.com/loopbill/loopbill/internal/types"
)

type billingConfigRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

// NewBillingConfigRepository returns the postgres-backed config repository.
func NewBillingConfigRepository(client *postgres.Client, log *logger.Logger) billing.ConfigRepository {
	return &billingConfigRepository{client: client, log: log}
}

const configColumns = `
	tenant_id, monthly_price_usd, billing_anchor, grace_days, enforcement_enabled,
	status, created_at, updated_at, created_by, updated_by`

func (r *billingConfigRepository) Get(ctx context.Context, tenantID string) (*billing.TenantBillingConfig, error) {
	row := r.client.Runner(ctx).QueryRowContext(ctx, `
		SELECT `+configColumns+`
		FROM tenant_billing_configs
		WHERE tenant_id = $1 AND status = $2
	`, tenantID, types.StatusPublished)

	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("billing config not found").
			WithReportableDetails(map[string]interface{}{"tenant_id": tenantID}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get billing config").
			Mark(ierr.ErrDatabase)
	}
	return cfg, nil
}

func (r *billingConfigRepository) Create(ctx context.Context, cfg *billing.TenantBillingConfig) error {
	_, err := r.client.Runner(ctx).ExecContext(ctx, `
		INSERT INTO tenant_billing_configs (`+configColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		cfg.TenantID, priceArg(cfg.MonthlyPriceUsd), cfg.BillingAnchor, cfg.GraceDays,
		cfg.EnforcementEnabled, cfg.Status, cfg.CreatedAt, cfg.UpdatedAt,
		cfg.CreatedBy, cfg.UpdatedBy,
	)
	if postgres.IsUniqueViolation(err) {
		return ierr.WithError(err).
			WithHint("Billing config already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create billing config").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billingConfigRepository) Update(ctx context.Context, cfg *billing.TenantBillingConfig) error {
	res, err := r.client.Runner(ctx).ExecContext(ctx, `
		UPDATE tenant_billing_configs
		SET monthly_price_usd = $2, billing_anchor = $3, grace_days = $4,
		    enforcement_enabled = $5, updated_at = $6, updated_by = $7
		WHERE tenant_id = $1 AND status = $8
	`,
		cfg.TenantID, priceArg(cfg.MonthlyPriceUsd), cfg.BillingAnchor, cfg.GraceDays,
		cfg.EnforcementEnabled, cfg.UpdatedAt, cfg.UpdatedBy, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update billing config").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("billing config not found").
			WithReportableDetails(map[string]interface{}{"tenant_id": cfg.TenantID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *billingConfigRepository) ListAll(ctx context.Context) ([]*billing.TenantBillingConfig, error) {
	rows, err := r.client.Runner(ctx).QueryContext(ctx, `
		SELECT `+configColumns+`
		FROM tenant_billing_configs
		WHERE status = $1
		ORDER BY tenant_id
	`, types.StatusPublished)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billing configs").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var configs []*billing.TenantBillingConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan billing config").
				Mark(ierr.ErrDatabase)
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate billing configs").
			Mark(ierr.ErrDatabase)
	}
	return configs, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfig(row rowScanner) (*billing.TenantBillingConfig, error) {
	var cfg billing.TenantBillingConfig
	var price sql.NullString
	var createdBy, updatedBy sql.NullString

	err := row.Scan(
		&cfg.TenantID, &price, &cfg.BillingAnchor, &cfg.GraceDays,
		&cfg.EnforcementEnabled, &cfg.Status, &cfg.CreatedAt, &cfg.UpdatedAt,
		&createdBy, &updatedBy,
	)
	if err != nil {
		return nil, err
	}

	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return nil, err
		}
		cfg.MonthlyPriceUsd = &d
	}
	cfg.CreatedBy = createdBy.String
	cfg.UpdatedBy = updatedBy.String
	return &cfg, nil
}

func priceArg(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.StringFixed(billing.AmountPrecision)
}

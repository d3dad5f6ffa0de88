package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/loopbill/loopbill/internal/domain/tenant"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/postgres"
)

type tenantRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

// NewTenantRepository returns the read-only tenant directory backed by the
// shared tenants table. Billing never writes to it.
func NewTenantRepository(client *postgres.Client, log *logger.Logger) tenant.Repository {
	return &tenantRepository{client: client, log: log}
}

func (r *tenantRepository) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	row := r.client.Runner(ctx).QueryRowContext(ctx, `
		SELECT id, name, COALESCE(contact_email, ''), created_at FROM tenants WHERE id = $1
	`, id)

	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.ContactEmail, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("tenant not found").
			WithReportableDetails(map[string]interface{}{"tenant_id": id}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get tenant").
			Mark(ierr.ErrDatabase)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

func (r *tenantRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*tenant.Tenant, error) {
	if len(ids) == 0 {
		return map[string]*tenant.Tenant{}, nil
	}

	rows, err := r.client.Runner(ctx).QueryContext(ctx, `
		SELECT id, name, COALESCE(contact_email, ''), created_at FROM tenants WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list tenants").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	tenants := make(map[string]*tenant.Tenant, len(ids))
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.ContactEmail, &t.CreatedAt); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan tenant").
				Mark(ierr.ErrDatabase)
		}
		t.CreatedAt = t.CreatedAt.UTC()
		tenants[t.ID] = &t
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate tenants").
			Mark(ierr.ErrDatabase)
	}
	return tenants, nil
}

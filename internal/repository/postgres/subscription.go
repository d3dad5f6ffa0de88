package postgres

import (
	"context"
	"database/sql"

	"github.com/loopbill/loopbill/internal/domain/billing"
	ierr "github.com/loopbill/loopbill/internal/errors"
	"github.com/loopbill/loopbill/internal/logger"
	"github.com/loopbill/loopbill/internal/postgres"
	"github.com/loopbill/loopbill/internal/types"
)

type subscriptionRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

// NewSubscriptionRepository returns the postgres-backed subscription repository.
func NewSubscriptionRepository(client *postgres.Client, log *logger.Logger) billing.SubscriptionRepository {
	return &subscriptionRepository{client: client, log: log}
}

const subscriptionColumns = `
	tenant_id, subscription_status, current_period_start, current_period_end,
	next_due_at, last_paid_at, suspend_at, suspend_reason,
	status, created_at, updated_at, created_by, updated_by`

func (r *subscriptionRepository) Get(ctx context.Context, tenantID string) (*billing.TenantSubscription, error) {
	row := r.client.Runner(ctx).QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM tenant_subscriptions
		WHERE tenant_id = $1 AND status = $2
	`, tenantID, types.StatusPublished)

	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("subscription not found").
			WithReportableDetails(map[string]interface{}{"tenant_id": tenantID}).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return sub, nil
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *billing.TenantSubscription) error {
	_, err := r.client.Runner(ctx).ExecContext(ctx, `
		INSERT INTO tenant_subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		sub.TenantID, sub.SubscriptionStatus, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.NextDueAt, sub.LastPaidAt, sub.SuspendAt, sub.SuspendReason,
		sub.Status, sub.CreatedAt, sub.UpdatedAt, sub.CreatedBy, sub.UpdatedBy,
	)
	if postgres.IsUniqueViolation(err) {
		return ierr.WithError(err).
			WithHint("Subscription already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *billing.TenantSubscription) error {
	res, err := r.client.Runner(ctx).ExecContext(ctx, `
		UPDATE tenant_subscriptions
		SET subscription_status = $2, current_period_start = $3, current_period_end = $4,
		    next_due_at = $5, last_paid_at = $6, suspend_at = $7, suspend_reason = $8,
		    updated_at = $9, updated_by = $10
		WHERE tenant_id = $1 AND status = $11
	`,
		sub.TenantID, sub.SubscriptionStatus, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.NextDueAt, sub.LastPaidAt, sub.SuspendAt, sub.SuspendReason,
		sub.UpdatedAt, sub.UpdatedBy, types.StatusPublished,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ierr.NewError("subscription not found").
			WithReportableDetails(map[string]interface{}{"tenant_id": sub.TenantID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepository) List(ctx context.Context, filter *billing.SubscriptionFilter) ([]*billing.TenantSubscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM tenant_subscriptions
		WHERE status = $1`
	args := []interface{}{types.StatusPublished}

	if filter != nil && filter.SubscriptionStatus != nil {
		args = append(args, *filter.SubscriptionStatus)
		query += ` AND subscription_status = $2`
	}
	query += ` ORDER BY tenant_id`

	rows, err := r.client.Runner(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subs []*billing.TenantSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to scan subscription").
				Mark(ierr.ErrDatabase)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to iterate subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func scanSubscription(row rowScanner) (*billing.TenantSubscription, error) {
	var sub billing.TenantSubscription
	var nextDueAt, lastPaidAt, suspendAt sql.NullTime
	var suspendReason, createdBy, updatedBy sql.NullString

	err := row.Scan(
		&sub.TenantID, &sub.SubscriptionStatus, &sub.CurrentPeriodStart, &sub.CurrentPeriodEnd,
		&nextDueAt, &lastPaidAt, &suspendAt, &suspendReason,
		&sub.Status, &sub.CreatedAt, &sub.UpdatedAt, &createdBy, &updatedBy,
	)
	if err != nil {
		return nil, err
	}

	if nextDueAt.Valid {
		t := nextDueAt.Time.UTC()
		sub.NextDueAt = &t
	}
	if lastPaidAt.Valid {
		t := lastPaidAt.Time.UTC()
		sub.LastPaidAt = &t
	}
	if suspendAt.Valid {
		t := suspendAt.Time.UTC()
		sub.SuspendAt = &t
	}
	if suspendReason.Valid {
		sub.SuspendReason = &suspendReason.String
	}
	sub.CreatedBy = createdBy.String
	sub.UpdatedBy = updatedBy.String
	return &sub, nil
}

package postgres

import (
	"context"
	"errors"

	"github.com/lib/pq"

	ierr "github.com/loopbill/loopbill/internal/errors"
)

// TryLockKey tries acquiring a postgres advisory lock immediately. Returns
// ok=false if the lock is already held elsewhere. The lock is scoped to the
// ambient transaction and auto released on commit/rollback; it serializes
// per-tenant multi-row transitions (mark-paid vs enforcement) without any
// application-side lock table.
//
// Must be called inside a transaction.
func (c *Client) TryLockKey(ctx context.Context, key string) (bool, error) {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return false, ierr.NewError("TryLockKey must be called inside transaction").
			Mark(ierr.ErrInvalidOperation)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT pg_try_advisory_xact_lock(hashtext($1))
	`, key)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to acquire advisory lock").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return false, nil
	}

	var ok bool
	if err := rows.Scan(&ok); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to read advisory lock result").
			Mark(ierr.ErrDatabase)
	}

	return ok, nil
}

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation. Issuance relies on this to turn duplicate-period inserts into
// "already issued" skips.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// PostgreSQL error code 23505 = unique_violation
		return pqErr.Code == "23505"
	}

	return false
}

package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolationCode is the Postgres SQLSTATE for a unique-constraint
// violation, used to detect UNIQUE(reconciliation_key, gateway) hits
// inside a per-row savepoint.
const uniqueViolationCode = "23505"

// WithTransaction runs fn inside one database transaction, committing on
// success and rolling back on any error fn returns.
func WithTransaction(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("persistence: begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("persistence: rollback after %w: %w", err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// WithSavepoint runs fn inside a nested transaction (a Postgres
// savepoint). If fn's error is a unique-constraint violation, the
// savepoint is rolled back and WithSavepoint reports duplicate=true with
// a nil error so the caller can count it as skipped, per §4.6's
// per-row-savepoint duplicate-skip policy. Any other error propagates and
// is expected to abort the outer transaction.
func WithSavepoint(ctx context.Context, tx pgx.Tx, fn func(savepoint pgx.Tx) error) (duplicate bool, err error) {
	savepoint, err := tx.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("persistence: begin savepoint: %w", err)
	}
	if err := fn(savepoint); err != nil {
		if isUniqueViolation(err) {
			if rbErr := savepoint.Rollback(ctx); rbErr != nil {
				return false, fmt.Errorf("persistence: rollback savepoint after duplicate: %w", rbErr)
			}
			return true, nil
		}
		_ = savepoint.Rollback(ctx)
		return false, err
	}
	if err := savepoint.Commit(ctx); err != nil {
		return false, fmt.Errorf("persistence: commit savepoint: %w", err)
	}
	return false, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

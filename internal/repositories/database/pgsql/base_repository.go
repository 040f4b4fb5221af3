package pgsql

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres SQLSTATE codes the repositories react to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgExclusionViolation   = "23P01"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx the query helpers need.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool       *pgxpool.Pool
	MaxRetries int
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err, "failed to commit transaction")
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// inTx runs fn in a transaction and commits when fn succeeds.
func (r *BaseRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// withRetry re-runs op on transient faults only: serialization failures, deadlocks
// and connection errors that pgconn reports as safe to retry. Every other error is
// returned after the first attempt.
func (r *BaseRepository) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 25 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second

	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(max(r.MaxRetries, 0)))
	b = backoff.WithContext(b, ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil || isTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, b)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return pgconn.SafeToRetry(err)
}

// mapPgError converts driver errors into the application taxonomy.
// Errors that already carry an application meaning pass through untouched.
func mapPgError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	var modErr *apperrors.ModificationForbiddenError
	if errors.As(err, &appErr) || errors.As(err, &modErr) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewAppError(http.StatusNotFound, message, apperrors.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperrors.NewAppError(http.StatusConflict, message+": "+pgErr.ConstraintName+" already exists", apperrors.ErrDuplicate)
		case pgExclusionViolation:
			return apperrors.NewAppError(http.StatusConflict, message+": overlaps an existing row", apperrors.ErrConflict)
		case pgForeignKeyViolation, pgCheckViolation:
			return apperrors.NewAppError(http.StatusBadRequest, message+": "+pgErr.ConstraintName, apperrors.ErrValidation)
		case pgSerializationFailure, pgDeadlockDetected:
			// isTransient still finds the PgError underneath
			return apperrors.NewAppError(http.StatusServiceUnavailable, message, err)
		}
	}
	return apperrors.NewAppError(http.StatusInternalServerError, message, err)
}

package pgsql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/campusbooks/fee_ledger_app/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
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
		return apperrors.NewAppError(500, "failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, sql.ErrTxDone) && !errors.Is(err, pgx.ErrTxClosed) {
		return apperrors.NewAppError(500, "failed to rollback transaction", err)
	}
	return nil
}

// translateWriteError maps database constraint failures to typed application
// errors so callers can distinguish a bad write (unknown student/session,
// violated amount check) from an internal failure.
func translateWriteError(err error, message string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return apperrors.NewAppError(400, message+": referenced student or session does not exist", apperrors.ErrValidation)
		case "23514": // check_violation
			return apperrors.NewAppError(400, message+": entry amounts violate the debit/credit rules", apperrors.ErrValidation)
		case "23505": // unique_violation
			return apperrors.NewAppError(409, message, apperrors.ErrDuplicate)
		}
	}
	return apperrors.NewAppError(500, message, err)
}

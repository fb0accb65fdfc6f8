package pgsql

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/campusbooks/fee_ledger_app/internal/apperrors"
	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/campusbooks/fee_ledger_app/internal/core/ports/repositories"
	"github.com/campusbooks/fee_ledger_app/internal/models"
	"github.com/campusbooks/fee_ledger_app/internal/utils/accounting"
	"github.com/campusbooks/fee_ledger_app/internal/utils/mapping"
	"github.com/campusbooks/fee_ledger_app/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// pgxQuerier is the query surface shared by *pgxpool.Pool and pgx.Tx, so the
// chronological walk and the balance overwrite run identically from the port
// methods and from inside the recompute transaction.
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const entryColumns = `entry_id, student_id, session_id, entry_date, particulars, entry_type,
	       debit_amount, credit_amount, balance, reference_type, reference_id, is_reversed,
	       created_at, created_by, last_updated_at, last_updated_by`

type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new repository for the student fee journal.
func newPgxLedgerRepository(pool *pgxpool.Pool) portsrepo.LedgerRepositoryFacade {
	return &PgxLedgerRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerRepositoryFacade
var _ portsrepo.LedgerRepositoryFacade = (*PgxLedgerRepository)(nil)

// lockStudentLedger serialises ledger writes for one student for the
// duration of the transaction. An advisory lock is used because the unit of
// exclusion is "all of this student's entries", not any single row; writes
// for different students do not serialise against each other.
func lockStudentLedger(ctx context.Context, tx pgx.Tx, studentID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, studentID)
	if err != nil {
		return apperrors.NewAppError(500, "failed to lock student ledger "+studentID, err)
	}
	return nil
}

// batchNeedsRecompute reports whether any batch line falls before an entry
// that already precedes it chronologically, either the latest entry of the
// existing history or an earlier line of the same batch. Such a line
// invalidates every cached balance after its position, so the append-order
// fold alone cannot produce correct balances. Equal dates are fine: entry_id
// ascending preserves insertion order as the tie-breaker.
func batchNeedsRecompute(lastDate time.Time, hasHistory bool, entries []domain.LedgerEntry) bool {
	var maxDate time.Time
	if hasHistory {
		maxDate = lastDate
	}
	for _, e := range entries {
		if e.EntryDate.Before(maxDate) {
			return true
		}
		if e.EntryDate.After(maxDate) {
			maxDate = e.EntryDate
		}
	}
	return false
}

// SaveEntries appends a batch of entries for one student atomically. The
// running balance of each new entry is computed inside the transaction from
// the student's current balance; if any entry is backdated relative to the
// existing history, the whole history is recomputed before commit so the
// cached balances never survive a commit in a stale state.
func (r *PgxLedgerRepository) SaveEntries(ctx context.Context, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error) {
	if len(entries) == 0 {
		return nil, apperrors.NewAppError(400, "no entries to save", apperrors.ErrValidation)
	}
	studentID := entries[0].StudentID
	for _, e := range entries {
		if e.StudentID != studentID {
			return nil, apperrors.NewAppError(400, "all entries in a batch must belong to one student", apperrors.ErrValidation)
		}
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx) // Will be ignored if transaction is committed successfully

	if err := lockStudentLedger(ctx, tx, studentID); err != nil {
		return nil, err
	}

	// Current balance and latest entry date, from the active set only.
	var prior decimal.Decimal
	var lastDate time.Time
	hasHistory := true
	err = tx.QueryRow(ctx, `
		SELECT balance, entry_date
		FROM ledger_entries
		WHERE student_id = $1 AND NOT is_reversed
		ORDER BY entry_date DESC, entry_id DESC
		LIMIT 1;
	`, studentID).Scan(&prior, &lastDate)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewAppError(500, "failed to read current balance for student "+studentID, err)
		}
		prior = decimal.Zero
		hasHistory = false
	}

	// A batch line dated before the latest existing entry, or before an
	// earlier line of the same batch, lands in the middle of the history; the
	// fold below is then insufficient and a full chronological recompute runs
	// before commit.
	backdated := batchNeedsRecompute(lastDate, hasHistory, entries)

	insertQuery := `
		INSERT INTO ledger_entries (
			student_id, session_id, entry_date, particulars, entry_type,
			debit_amount, credit_amount, balance, reference_type, reference_id, is_reversed,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING entry_id;
	`

	batch := &pgx.Batch{}
	running := prior
	saved := make([]domain.LedgerEntry, len(entries))
	for i, e := range entries {
		running = accounting.NextBalance(running, e)
		e.Balance = running
		saved[i] = e

		modelEntry := mapping.ToModelLedgerEntry(e)
		batch.Queue(insertQuery,
			modelEntry.StudentID,
			modelEntry.SessionID,
			modelEntry.EntryDate,
			modelEntry.Particulars,
			modelEntry.EntryType,
			modelEntry.DebitAmount,
			modelEntry.CreditAmount,
			modelEntry.Balance,
			modelEntry.ReferenceType,
			modelEntry.ReferenceID,
			modelEntry.IsReversed,
			modelEntry.CreatedAt,
			modelEntry.CreatedBy,
			modelEntry.LastUpdatedAt,
			modelEntry.LastUpdatedBy,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range saved {
		if err := br.QueryRow().Scan(&saved[i].EntryID); err != nil {
			br.Close()
			return nil, translateWriteError(err, "failed to insert ledger entry for student "+studentID)
		}
	}
	if err := br.Close(); err != nil {
		return nil, translateWriteError(err, "failed to execute ledger entry batch for student "+studentID)
	}

	if backdated {
		updatedBy := entries[0].CreatedBy
		if _, err := recomputeBalancesInTx(ctx, tx, studentID, updatedBy, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}

	return saved, nil
}

// FindEntriesByStudent retrieves a page of non-reversed entries for a
// student in chronological order, optionally scoped to one session, using
// token-based pagination over the (entry_date, entry_id) ordering key.
func (r *PgxLedgerRepository) FindEntriesByStudent(ctx context.Context, studentID string, sessionID *string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error) {
	if limit <= 0 {
		limit = 50
	}
	// We fetch one extra item to determine if there's a next page.
	fetchLimit := limit + 1

	baseQuery := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE student_id = $1 AND NOT is_reversed
	`
	args := []interface{}{studentID}

	if sessionID != nil && *sessionID != "" {
		baseQuery += ` AND session_id = $` + strconv.Itoa(len(args)+1)
		args = append(args, *sessionID)
	}

	if nextToken != nil && *nextToken != "" {
		lastDate, lastEntryID, decodeErr := pagination.DecodeEntryToken(*nextToken)
		if decodeErr != nil {
			return nil, nil, apperrors.NewAppError(400, "invalid nextToken", decodeErr)
		}
		// Tuple comparison keeps the cursor consistent with the ordering key
		baseQuery += ` AND (entry_date, entry_id) > ($` + strconv.Itoa(len(args)+1) + `, $` + strconv.Itoa(len(args)+2) + `)`
		args = append(args, lastDate, lastEntryID)
	}

	query := baseQuery + ` ORDER BY entry_date ASC, entry_id ASC LIMIT $` + strconv.Itoa(len(args)+1) + `;`
	args = append(args, fetchLimit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, apperrors.NewAppError(500, "failed to query ledger entries for student "+studentID, err)
	}
	defer rows.Close()

	modelEntries, err := scanEntryRows(rows, studentID)
	if err != nil {
		return nil, nil, err
	}

	var nextTokenVal *string
	results := modelEntries
	if len(modelEntries) > limit {
		lastEntry := modelEntries[limit-1] // The actual last item of the current page
		token := pagination.EncodeEntryToken(lastEntry.EntryDate, lastEntry.EntryID)
		nextTokenVal = &token
		results = modelEntries[:limit]
	}

	return mapping.ToDomainLedgerEntrySlice(results), nextTokenVal, nil
}

// FindAllChronological retrieves every non-reversed entry for the student
// across all sessions. Balance is a whole-account concept, so this drives
// recomputation and must never be session-scoped.
func (r *PgxLedgerRepository) FindAllChronological(ctx context.Context, studentID string) ([]domain.LedgerEntry, error) {
	modelEntries, err := findAllChronological(ctx, r.Pool, studentID, false)
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainLedgerEntrySlice(modelEntries), nil
}

// findAllChronological is the single chronological query, shared by the
// pooled port method and the transactional recompute (which adds FOR UPDATE).
func findAllChronological(ctx context.Context, q pgxQuerier, studentID string, forUpdate bool) ([]models.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE student_id = $1 AND NOT is_reversed
		ORDER BY entry_date ASC, entry_id ASC`
	if forUpdate {
		query += `
		FOR UPDATE`
	}
	query += `;`

	rows, err := q.Query(ctx, query, studentID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query chronological entries for student "+studentID, err)
	}
	defer rows.Close()

	return scanEntryRows(rows, studentID)
}

// FindLastEntry retrieves the most recent entry, reversed or not. Used for
// diagnostics, never for balance computation.
func (r *PgxLedgerRepository) FindLastEntry(ctx context.Context, studentID string) (*domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE student_id = $1
		ORDER BY entry_date DESC, entry_id DESC
		LIMIT 1;
	`
	row := r.Pool.QueryRow(ctx, query, studentID)
	modelEntry, err := scanEntryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find last entry for student "+studentID, err)
	}

	entry := mapping.ToDomainLedgerEntry(modelEntry)
	return &entry, nil
}

// FindEntriesByReference retrieves all entries tied to one originating
// record, including already-reversed ones, so history stays retrievable
// after a reversal.
func (r *PgxLedgerRepository) FindEntriesByReference(ctx context.Context, referenceType domain.ReferenceType, referenceID int64) ([]domain.LedgerEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY entry_date ASC, entry_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, string(referenceType), referenceID)
	if err != nil {
		return nil, apperrors.NewAppError(500, "failed to query entries by reference", err)
	}
	defer rows.Close()

	modelEntries, err := scanEntryRows(rows, "")
	if err != nil {
		return nil, err
	}
	return mapping.ToDomainLedgerEntrySlice(modelEntries), nil
}

// CurrentBalance returns the balance of the chronologically last
// non-reversed entry. The partial index on (student_id, entry_date DESC,
// entry_id DESC) makes this a single index probe, not a scan.
func (r *PgxLedgerRepository) CurrentBalance(ctx context.Context, studentID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.Pool.QueryRow(ctx, `
		SELECT balance
		FROM ledger_entries
		WHERE student_id = $1 AND NOT is_reversed
		ORDER BY entry_date DESC, entry_id DESC
		LIMIT 1;
	`, studentID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// No entries means a settled account, not an error.
			return decimal.Zero, nil
		}
		return decimal.Zero, apperrors.NewAppError(500, "failed to read current balance for student "+studentID, err)
	}
	return balance, nil
}

// MarkReversedByReference flags all active entries of one originating record
// as reversed. Matching rows that are already reversed are untouched, which
// makes repeated reversals of the same reference no-ops.
func (r *PgxLedgerRepository) MarkReversedByReference(ctx context.Context, referenceType domain.ReferenceType, referenceID int64, updatedBy string, updatedAt time.Time) (int64, error) {
	cmdTag, err := r.Pool.Exec(ctx, `
		UPDATE ledger_entries
		SET is_reversed = TRUE,
		    last_updated_at = $3,
		    last_updated_by = $4
		WHERE reference_type = $1 AND reference_id = $2 AND NOT is_reversed;
	`, string(referenceType), referenceID, updatedAt, updatedBy)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to mark entries reversed", err)
	}
	return cmdTag.RowsAffected(), nil
}

// UpdateEntryBalance overwrites the cached balance of one row. Only the
// recompute path calls this.
func (r *PgxLedgerRepository) UpdateEntryBalance(ctx context.Context, entryID int64, balance decimal.Decimal, updatedBy string, updatedAt time.Time) error {
	affected, err := updateEntryBalance(ctx, r.Pool, entryID, balance, updatedBy, updatedAt)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("ledger entry " + strconv.FormatInt(entryID, 10) + " not found for balance update")
	}
	return nil
}

// updateEntryBalance is the single balance overwrite, shared by the pooled
// port method and the transactional recompute.
func updateEntryBalance(ctx context.Context, q pgxQuerier, entryID int64, balance decimal.Decimal, updatedBy string, updatedAt time.Time) (int64, error) {
	cmdTag, err := q.Exec(ctx, `
		UPDATE ledger_entries
		SET balance = $2,
		    last_updated_at = $3,
		    last_updated_by = $4
		WHERE entry_id = $1;
	`, entryID, balance, updatedAt, updatedBy)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to update balance for entry "+strconv.FormatInt(entryID, 10), err)
	}
	return cmdTag.RowsAffected(), nil
}

// RecomputeStudentBalances re-derives the cached balance of every
// non-reversed entry for the student, in one transaction holding the
// per-student lock. Idempotent: a second run finds nothing to change.
func (r *PgxLedgerRepository) RecomputeStudentBalances(ctx context.Context, studentID string, updatedBy string) (int64, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	if err := lockStudentLedger(ctx, tx, studentID); err != nil {
		return 0, err
	}

	updated, err := recomputeBalancesInTx(ctx, tx, studentID, updatedBy, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		return 0, err
	}
	return updated, nil
}

// recomputeBalancesInTx walks the student's non-reversed entries in
// chronological order, folds the running balance from zero, and persists
// only the balances that changed. Shared by the standalone recompute and the
// backdated-append path so both run under the same transaction discipline;
// the walk and the writes go through the same implementations that back
// FindAllChronological and UpdateEntryBalance, bound to the transaction.
func recomputeBalancesInTx(ctx context.Context, tx pgx.Tx, studentID string, updatedBy string, updatedAt time.Time) (int64, error) {
	modelEntries, err := findAllChronological(ctx, tx, studentID, true)
	if err != nil {
		return 0, err
	}

	var updated int64
	running := decimal.Zero
	for _, m := range modelEntries {
		running = accounting.NextBalance(running, mapping.ToDomainLedgerEntry(m))
		if running.Equal(m.Balance) {
			continue
		}
		if _, err := updateEntryBalance(ctx, tx, m.EntryID, running, updatedBy, updatedAt); err != nil {
			return 0, err
		}
		updated++
	}
	return updated, nil
}

// DeleteEntriesForStudent purges the student's full journal. The only
// destructive operation the ledger supports; used on student deletion.
func (r *PgxLedgerRepository) DeleteEntriesForStudent(ctx context.Context, studentID string) (int64, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	if err := lockStudentLedger(ctx, tx, studentID); err != nil {
		return 0, err
	}

	cmdTag, err := tx.Exec(ctx, `DELETE FROM ledger_entries WHERE student_id = $1;`, studentID)
	if err != nil {
		return 0, apperrors.NewAppError(500, "failed to delete ledger entries for student "+studentID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

// scanEntryRow scans a single entry row into the database model.
func scanEntryRow(row pgx.Row) (models.LedgerEntry, error) {
	var m models.LedgerEntry
	err := row.Scan(
		&m.EntryID,
		&m.StudentID,
		&m.SessionID,
		&m.EntryDate,
		&m.Particulars,
		&m.EntryType,
		&m.DebitAmount,
		&m.CreditAmount,
		&m.Balance,
		&m.ReferenceType,
		&m.ReferenceID,
		&m.IsReversed,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
	)
	return m, err
}

// scanEntryRows drains rows into database models.
func scanEntryRows(rows pgx.Rows, studentID string) ([]models.LedgerEntry, error) {
	modelEntries := []models.LedgerEntry{}
	for rows.Next() {
		var m models.LedgerEntry
		if err := rows.Scan(
			&m.EntryID,
			&m.StudentID,
			&m.SessionID,
			&m.EntryDate,
			&m.Particulars,
			&m.EntryType,
			&m.DebitAmount,
			&m.CreditAmount,
			&m.Balance,
			&m.ReferenceType,
			&m.ReferenceID,
			&m.IsReversed,
			&m.CreatedAt,
			&m.CreatedBy,
			&m.LastUpdatedAt,
			&m.LastUpdatedBy,
		); err != nil {
			return nil, apperrors.NewAppError(500, "failed to scan ledger entry row for student "+studentID, err)
		}
		modelEntries = append(modelEntries, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewAppError(500, "error iterating ledger entry rows for student "+studentID, err)
	}
	return modelEntries, nil
}

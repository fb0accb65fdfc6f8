package repositories

import (
	"context"
	"time"

	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LedgerReader defines read operations over the student fee journal.
type LedgerReader interface {
	// FindEntriesByStudent retrieves non-reversed entries for a student in
	// chronological order (entry_date, entry_id), optionally scoped to one
	// session, using token-based pagination. It returns the entries, a token
	// for the next page, and an error.
	FindEntriesByStudent(ctx context.Context, studentID string, sessionID *string, limit int, nextToken *string) ([]domain.LedgerEntry, *string, error)

	// FindAllChronological retrieves every non-reversed entry for a student
	// across all sessions in chronological order. Balance is a whole-account
	// concept, so recomputation always walks this sequence.
	FindAllChronological(ctx context.Context, studentID string) ([]domain.LedgerEntry, error)

	// FindLastEntry retrieves the most recent entry (entry_date desc,
	// entry_id desc), reversed or not. Diagnostics only, never balance math.
	FindLastEntry(ctx context.Context, studentID string) (*domain.LedgerEntry, error)

	// FindEntriesByReference retrieves all entries tied to one originating
	// record, e.g. every line of a receipt, including reversed ones.
	FindEntriesByReference(ctx context.Context, referenceType domain.ReferenceType, referenceID int64) ([]domain.LedgerEntry, error)

	// CurrentBalance returns the balance of the chronologically last
	// non-reversed entry, or zero when the student has no entries.
	CurrentBalance(ctx context.Context, studentID string) (decimal.Decimal, error)
}

// LedgerWriter defines write operations over the student fee journal.
type LedgerWriter interface {
	// SaveEntries appends a batch of entries for one student atomically.
	// Running balances are computed inside the same transaction; a backdated
	// entry triggers an in-transaction chronological recompute. The returned
	// entries carry their assigned IDs and balances in append order.
	SaveEntries(ctx context.Context, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error)

	// MarkReversedByReference flags every entry matching the reference as
	// reversed. Idempotent; returns the number of newly flagged rows, which
	// is zero for an unknown or already-reversed reference.
	MarkReversedByReference(ctx context.Context, referenceType domain.ReferenceType, referenceID int64, updatedBy string, updatedAt time.Time) (int64, error)

	// UpdateEntryBalance overwrites the cached balance of one row. Reserved
	// for the recompute path; business logic never calls it directly.
	UpdateEntryBalance(ctx context.Context, entryID int64, balance decimal.Decimal, updatedBy string, updatedAt time.Time) error

	// RecomputeStudentBalances walks the student's non-reversed entries
	// chronologically, re-deriving each cached balance and persisting only
	// the ones that changed. Safe to call repeatedly. Returns the number of
	// rows updated.
	RecomputeStudentBalances(ctx context.Context, studentID string, updatedBy string) (int64, error)

	// DeleteEntriesForStudent purges the student's full journal. Used only
	// by the student-deletion workflow.
	DeleteEntriesForStudent(ctx context.Context, studentID string) (int64, error)
}

// LedgerRepositoryFacade combines all ledger repository interfaces.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}

// DuesReader defines the aggregate queries the reporting layer reads dues
// from. Every sum considers non-reversed entries only and returns zero, not
// absence, when there is nothing to sum.
type DuesReader interface {
	// SumDebits returns the total non-reversed debit amount for a student.
	SumDebits(ctx context.Context, studentID string) (decimal.Decimal, error)

	// SumCredits returns the total non-reversed credit amount for a student.
	SumCredits(ctx context.Context, studentID string) (decimal.Decimal, error)

	// SumCreditsForSession scopes SumCredits to a single academic session.
	SumCreditsForSession(ctx context.Context, studentID string, sessionID string) (decimal.Decimal, error)

	// TotalPendingDues returns the institution-wide net receivable position
	// as one cross-student aggregate: sum of debits minus credits over all
	// non-reversed entries. Advances (negative nets) reduce the total.
	TotalPendingDues(ctx context.Context) (decimal.Decimal, error)

	// StudentIDsWithDues returns the students whose non-reversed debit sum
	// exceeds their credit sum.
	StudentIDsWithDues(ctx context.Context) ([]string, error)

	// HasFeeChargeEntries reports whether at least one non-reversed
	// FEE_CHARGE entry exists for the student/session pair.
	HasFeeChargeEntries(ctx context.Context, studentID string, sessionID string) (bool, error)
}

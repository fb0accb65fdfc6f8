package services

import (
	"context"

	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	"github.com/campusbooks/fee_ledger_app/internal/dto"
	"github.com/shopspring/decimal"
)

// LedgerSvcFacade is the ledger core: append, statement reads, the balance
// engine, and the reversal protocol.
type LedgerSvcFacade interface {
	// AppendEntry records one charge or payment and returns the stored entry
	// with its assigned ID and running balance.
	AppendEntry(ctx context.Context, studentID string, req dto.CreateLedgerEntryRequest, creatorUserID string) (*domain.LedgerEntry, error)

	// AppendEntries records all lines of one business event atomically.
	AppendEntries(ctx context.Context, studentID string, req dto.CreateLedgerEntryBatchRequest, creatorUserID string) ([]domain.LedgerEntry, error)

	// GetStatement returns a chronologically ordered page of the student's
	// non-reversed entries, optionally scoped to one session.
	GetStatement(ctx context.Context, studentID string, params dto.ListLedgerEntriesParams) (*dto.LedgerStatementResponse, error)

	// GetLastEntry returns the most recent entry regardless of reversal
	// state, or ErrNotFound when the ledger is empty. Diagnostics only.
	GetLastEntry(ctx context.Context, studentID string) (*domain.LedgerEntry, error)

	// GetEntriesByReference returns every entry tied to one originating
	// record, reversed entries included.
	GetEntriesByReference(ctx context.Context, referenceType domain.ReferenceType, referenceID int64) ([]domain.LedgerEntry, error)

	// CurrentBalance returns the student's running balance, zero when the
	// student has no entries.
	CurrentBalance(ctx context.Context, studentID string) (decimal.Decimal, error)

	// GetBalanceSummary returns the current balance with total non-reversed
	// debits and credits.
	GetBalanceSummary(ctx context.Context, studentID string) (*domain.StudentBalanceTotals, error)

	// TotalCreditsForSession sums non-reversed credits for one session.
	TotalCreditsForSession(ctx context.Context, studentID string, sessionID string) (decimal.Decimal, error)

	// RecomputeChronological re-derives every cached balance for the student
	// and returns the number of entries whose balance changed. Idempotent.
	RecomputeChronological(ctx context.Context, studentID string, userID string) (int64, error)

	// ReversePayment flags all entries of the referenced record as reversed
	// and recomputes the owning student's balances. Reversing an unknown or
	// already-reversed reference is a no-op returning zero.
	ReversePayment(ctx context.Context, referenceType domain.ReferenceType, referenceID int64, userID string) (int64, error)

	// PurgeStudentLedger deletes the student's full journal.
	PurgeStudentLedger(ctx context.Context, studentID string) (int64, error)
}

// DuesSvcFacade exposes the cross-student aggregate reads built on the
// balance invariant.
type DuesSvcFacade interface {
	// TotalPendingDues returns the institution-wide net receivable sum.
	TotalPendingDues(ctx context.Context) (decimal.Decimal, error)

	// StudentIDsWithDues returns students with a net positive balance.
	StudentIDsWithDues(ctx context.Context) ([]string, error)

	// HasFeeChargeEntries reports whether the session already carries a
	// non-reversed fee charge for the student.
	HasFeeChargeEntries(ctx context.Context, studentID string, sessionID string) (bool, error)
}

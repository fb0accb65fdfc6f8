package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusbooks/fee_ledger_app/internal/apperrors"
	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/campusbooks/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/campusbooks/fee_ledger_app/internal/core/ports/services"
	"github.com/campusbooks/fee_ledger_app/internal/dto"
	"github.com/campusbooks/fee_ledger_app/internal/middleware"
	"github.com/campusbooks/fee_ledger_app/internal/platform/events"
	"github.com/shopspring/decimal"
)

var (
	ErrBatchEmpty        = errors.New("batch must contain at least one entry")
	ErrAmountNotPositive = errors.New("entry amount must be positive")
	ErrStudentRequired   = errors.New("student ID is required")
	ErrReferenceRequired = errors.New("reference ID must be positive for a reversal")
)

// ledgerService implements the ledger core: append, statement reads, the
// balance engine, and the reversal protocol.
type ledgerService struct {
	ledgerRepo portsrepo.LedgerRepositoryFacade
	duesRepo   portsrepo.DuesReader
	notifier   events.BalanceNotifier
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryFacade, duesRepo portsrepo.DuesReader, notifier events.BalanceNotifier) portssvc.LedgerSvcFacade {
	if notifier == nil {
		notifier = events.NewNoopBalanceNotifier()
	}
	return &ledgerService{
		ledgerRepo: ledgerRepo,
		duesRepo:   duesRepo,
		notifier:   notifier,
	}
}

// Ensure ledgerService implements the portssvc.LedgerSvcFacade interface
var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// entryFromRequest builds a domain entry from one request line, placing the
// amount on the side named by the entry type. Entry dates are truncated to
// the day, matching the DATE column and the chronological comparator.
func (s *ledgerService) entryFromRequest(studentID string, req dto.CreateLedgerEntryRequest, userID string, now time.Time) (domain.LedgerEntry, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return domain.LedgerEntry{}, fmt.Errorf("%w: got %s", ErrAmountNotPositive, req.Amount.String())
	}

	entry := domain.LedgerEntry{
		StudentID:     studentID,
		SessionID:     req.SessionID,
		EntryDate:     truncateToDay(req.EntryDate),
		Particulars:   req.Particulars,
		EntryType:     req.EntryType,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     userID,
			LastUpdatedAt: now,
			LastUpdatedBy: userID,
		},
	}
	switch req.EntryType {
	case domain.Debit:
		entry.DebitAmount = req.Amount
		entry.CreditAmount = decimal.Zero
	case domain.Credit:
		entry.CreditAmount = req.Amount
		entry.DebitAmount = decimal.Zero
	}

	if err := entry.Validate(); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	return entry, nil
}

// AppendEntry records a single charge or payment.
func (s *ledgerService) AppendEntry(ctx context.Context, studentID string, req dto.CreateLedgerEntryRequest, creatorUserID string) (*domain.LedgerEntry, error) {
	batch := dto.CreateLedgerEntryBatchRequest{Entries: []dto.CreateLedgerEntryRequest{req}}
	saved, err := s.AppendEntries(ctx, studentID, batch, creatorUserID)
	if err != nil {
		return nil, err
	}
	return &saved[0], nil
}

// AppendEntries records all ledger lines of one business event atomically.
// The store computes running balances inside the same transaction and
// recomputes the student's history when a line is backdated.
func (s *ledgerService) AppendEntries(ctx context.Context, studentID string, req dto.CreateLedgerEntryBatchRequest, creatorUserID string) ([]domain.LedgerEntry, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if studentID == "" {
		return nil, fmt.Errorf("%w", ErrStudentRequired)
	}
	if len(req.Entries) == 0 {
		return nil, ErrBatchEmpty
	}

	now := time.Now().UTC()
	entries := make([]domain.LedgerEntry, len(req.Entries))
	for i, lineReq := range req.Entries {
		entry, err := s.entryFromRequest(studentID, lineReq, creatorUserID, now)
		if err != nil {
			return nil, err
		}
		entries[i] = entry
	}

	saved, err := s.ledgerRepo.SaveEntries(ctx, entries)
	if err != nil {
		logger.Error("Failed to save ledger entries", slog.String("student_id", studentID), slog.Int("count", len(entries)), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save ledger entries: %w", err)
	}

	s.notifyBalance(ctx, studentID)

	logger.Info("Ledger entries appended", slog.String("student_id", studentID), slog.Int("count", len(saved)))
	return saved, nil
}

// GetStatement returns one page of the student's non-reversed entries in
// chronological order.
func (s *ledgerService) GetStatement(ctx context.Context, studentID string, params dto.ListLedgerEntriesParams) (*dto.LedgerStatementResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 50 // Default statement page size
	}

	entries, nextToken, err := s.ledgerRepo.FindEntriesByStudent(ctx, studentID, params.SessionID, limit, params.NextToken)
	if err != nil {
		logger.Error("Failed to list ledger entries", slog.String("student_id", studentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve statement: %w", err)
	}

	return &dto.LedgerStatementResponse{
		Entries:   dto.ToLedgerEntryResponses(entries),
		NextToken: nextToken,
	}, nil
}

// GetLastEntry returns the most recent entry regardless of reversal state.
func (s *ledgerService) GetLastEntry(ctx context.Context, studentID string) (*domain.LedgerEntry, error) {
	entry, err := s.ledgerRepo.FindLastEntry(ctx, studentID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			middleware.GetLoggerFromCtx(ctx).Error("Failed to find last ledger entry", slog.String("student_id", studentID), slog.String("error", err.Error()))
		}
		return nil, err
	}
	return entry, nil
}

// GetEntriesByReference returns every entry tied to one originating record,
// reversed entries included.
func (s *ledgerService) GetEntriesByReference(ctx context.Context, referenceType domain.ReferenceType, referenceID int64) ([]domain.LedgerEntry, error) {
	return s.ledgerRepo.FindEntriesByReference(ctx, referenceType, referenceID)
}

// CurrentBalance returns the running balance of the chronologically last
// non-reversed entry, zero when the student has none.
func (s *ledgerService) CurrentBalance(ctx context.Context, studentID string) (decimal.Decimal, error) {
	return s.ledgerRepo.CurrentBalance(ctx, studentID)
}

// GetBalanceSummary returns the current balance with the non-reversed debit
// and credit totals.
func (s *ledgerService) GetBalanceSummary(ctx context.Context, studentID string) (*domain.StudentBalanceTotals, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	balance, err := s.ledgerRepo.CurrentBalance(ctx, studentID)
	if err != nil {
		logger.Error("Failed to read current balance", slog.String("student_id", studentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to read current balance: %w", err)
	}
	debits, err := s.duesRepo.SumDebits(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum debits: %w", err)
	}
	credits, err := s.duesRepo.SumCredits(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum credits: %w", err)
	}

	return &domain.StudentBalanceTotals{
		StudentID:    studentID,
		TotalDebits:  debits,
		TotalCredits: credits,
		Balance:      balance,
	}, nil
}

// TotalCreditsForSession sums non-reversed credits for one session.
func (s *ledgerService) TotalCreditsForSession(ctx context.Context, studentID string, sessionID string) (decimal.Decimal, error) {
	return s.duesRepo.SumCreditsForSession(ctx, studentID, sessionID)
}

// RecomputeChronological re-derives every cached balance for the student.
// Collaborators performing backdated inserts call this before relying on any
// balance read; calling it again is harmless.
func (s *ledgerService) RecomputeChronological(ctx context.Context, studentID string, userID string) (int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	updated, err := s.ledgerRepo.RecomputeStudentBalances(ctx, studentID, userID)
	if err != nil {
		logger.Error("Failed to recompute balances", slog.String("student_id", studentID), slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to recompute balances: %w", err)
	}

	if updated > 0 {
		s.notifyBalance(ctx, studentID)
	}

	logger.Info("Balances recomputed", slog.String("student_id", studentID), slog.Int64("updated_entries", updated))
	return updated, nil
}

// ReversePayment undoes the ledger effect of a cancelled payment without
// deleting history: matching entries are flagged reversed and the owning
// students' balances recomputed. A reference with no active entries is a
// no-op, not an error.
func (s *ledgerService) ReversePayment(ctx context.Context, referenceType domain.ReferenceType, referenceID int64, userID string) (int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if referenceID <= 0 {
		return 0, ErrReferenceRequired
	}
	if !domain.ValidReferenceType(string(referenceType)) {
		return 0, fmt.Errorf("%w: unknown reference type %q", apperrors.ErrValidation, referenceType)
	}

	entries, err := s.ledgerRepo.FindEntriesByReference(ctx, referenceType, referenceID)
	if err != nil {
		logger.Error("Failed to find entries for reversal", slog.String("reference_type", string(referenceType)), slog.Int64("reference_id", referenceID), slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to find entries for reversal: %w", err)
	}
	if len(entries) == 0 {
		logger.Info("Reversal had no matching entries", slog.String("reference_type", string(referenceType)), slog.Int64("reference_id", referenceID))
		return 0, nil
	}

	now := time.Now().UTC()
	reversed, err := s.ledgerRepo.MarkReversedByReference(ctx, referenceType, referenceID, userID, now)
	if err != nil {
		logger.Error("Failed to mark entries reversed", slog.Int64("reference_id", referenceID), slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to mark entries reversed: %w", err)
	}
	if reversed == 0 {
		// Already reversed earlier; nothing changed.
		logger.Info("Reversal was a no-op, entries already reversed", slog.Int64("reference_id", referenceID))
		return 0, nil
	}

	// Removing entries from the active set changes every subsequent balance
	// for the owning students.
	for _, studentID := range distinctStudentIDs(entries) {
		if _, err := s.ledgerRepo.RecomputeStudentBalances(ctx, studentID, userID); err != nil {
			logger.Error("Failed to recompute after reversal", slog.String("student_id", studentID), slog.String("error", err.Error()))
			return reversed, fmt.Errorf("failed to recompute after reversal: %w", err)
		}
		s.notifyBalance(ctx, studentID)
	}

	logger.Info("Payment reversed", slog.String("reference_type", string(referenceType)), slog.Int64("reference_id", referenceID), slog.Int64("reversed_entries", reversed))
	return reversed, nil
}

// PurgeStudentLedger deletes the student's full journal. Used only by the
// student-deletion workflow.
func (s *ledgerService) PurgeStudentLedger(ctx context.Context, studentID string) (int64, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if studentID == "" {
		return 0, ErrStudentRequired
	}

	deleted, err := s.ledgerRepo.DeleteEntriesForStudent(ctx, studentID)
	if err != nil {
		logger.Error("Failed to purge student ledger", slog.String("student_id", studentID), slog.String("error", err.Error()))
		return 0, fmt.Errorf("failed to purge student ledger: %w", err)
	}

	logger.Info("Student ledger purged", slog.String("student_id", studentID), slog.Int64("deleted_entries", deleted))
	return deleted, nil
}

// notifyBalance publishes the student's committed balance. Best-effort: a
// failed read only skips the notification.
func (s *ledgerService) notifyBalance(ctx context.Context, studentID string) {
	balance, err := s.ledgerRepo.CurrentBalance(ctx, studentID)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Skipping balance notification", slog.String("student_id", studentID), slog.String("error", err.Error()))
		return
	}
	s.notifier.BalanceChanged(ctx, studentID, balance)
}

// truncateToDay drops the time-of-day component, matching the DATE column.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// distinctStudentIDs returns the unique owning students of the entries.
func distinctStudentIDs(entries []domain.LedgerEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	result := make([]string, 0, 1)
	for _, e := range entries {
		if _, ok := seen[e.StudentID]; !ok {
			seen[e.StudentID] = struct{}{}
			result = append(result, e.StudentID)
		}
	}
	return result
}

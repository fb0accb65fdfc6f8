package services

import (
	"context"
	"fmt"
	"log/slog"

	portsrepo "github.com/campusbooks/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/campusbooks/fee_ledger_app/internal/core/ports/services"
	"github.com/campusbooks/fee_ledger_app/internal/middleware"
	"github.com/shopspring/decimal"
)

// duesService implements the cross-student aggregate reads. Everything here
// is derived from the balance invariant through the dues repository; it
// never sums entries ad hoc in application code.
type duesService struct {
	duesRepo portsrepo.DuesReader
}

// NewDuesService creates a new DuesService.
func NewDuesService(duesRepo portsrepo.DuesReader) portssvc.DuesSvcFacade {
	return &duesService{duesRepo: duesRepo}
}

// Ensure duesService implements the portssvc.DuesSvcFacade interface
var _ portssvc.DuesSvcFacade = (*duesService)(nil)

// TotalPendingDues returns the institution-wide net receivable sum over all
// non-reversed entries. A student holding an advance reduces the total; this
// is the true net position, not a sum of positive balances.
func (s *duesService) TotalPendingDues(ctx context.Context) (decimal.Decimal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	total, err := s.duesRepo.TotalPendingDues(ctx)
	if err != nil {
		logger.Error("Failed to compute total pending dues", slog.String("error", err.Error()))
		return decimal.Zero, fmt.Errorf("failed to compute total pending dues: %w", err)
	}
	return total, nil
}

// StudentIDsWithDues returns the students whose non-reversed debits exceed
// their credits.
func (s *duesService) StudentIDsWithDues(ctx context.Context) ([]string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	studentIDs, err := s.duesRepo.StudentIDsWithDues(ctx)
	if err != nil {
		logger.Error("Failed to list students with dues", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list students with dues: %w", err)
	}
	return studentIDs, nil
}

// HasFeeChargeEntries reports whether the session already carries a
// non-reversed fee charge for the student.
func (s *duesService) HasFeeChargeEntries(ctx context.Context, studentID string, sessionID string) (bool, error) {
	return s.duesRepo.HasFeeChargeEntries(ctx, studentID, sessionID)
}

package dto

import (
	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceSummaryResponse is the sanctioned read path for "how much is owed"
// for a single student.
type BalanceSummaryResponse struct {
	StudentID      string          `json:"studentID"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
	TotalDebits    decimal.Decimal `json:"totalDebits"`
	TotalCredits   decimal.Decimal `json:"totalCredits"`
}

// DuesSummaryResponse is the institution-wide net receivable position.
type DuesSummaryResponse struct {
	TotalPendingDues decimal.Decimal `json:"totalPendingDues"`
}

// DefaultersResponse lists the students with a net positive balance.
type DefaultersResponse struct {
	StudentIDs []string `json:"studentIDs"`
}

// SessionCreditsResponse is the credit total for one student in one session.
type SessionCreditsResponse struct {
	StudentID    string          `json:"studentID"`
	SessionID    string          `json:"sessionID"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
}

// FeeChargeExistsResponse reports whether a session already carries fee
// charges for a student, used by the fee-charge generator to avoid
// double-charging.
type FeeChargeExistsResponse struct {
	StudentID string `json:"studentID"`
	SessionID string `json:"sessionID"`
	Exists    bool   `json:"exists"`
}

// ToBalanceSummaryResponse converts student balance totals to the DTO.
func ToBalanceSummaryResponse(t *domain.StudentBalanceTotals) BalanceSummaryResponse {
	return BalanceSummaryResponse{
		StudentID:      t.StudentID,
		CurrentBalance: t.Balance,
		TotalDebits:    t.TotalDebits,
		TotalCredits:   t.TotalCredits,
	}
}

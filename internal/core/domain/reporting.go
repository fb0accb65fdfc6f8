package domain

import (
	"github.com/shopspring/decimal"
)

// StudentBalanceTotals holds the non-reversed debit/credit sums and the net
// position for one student.
type StudentBalanceTotals struct {
	StudentID    string          `json:"studentID"`
	TotalDebits  decimal.Decimal `json:"totalDebits"`
	TotalCredits decimal.Decimal `json:"totalCredits"`
	Balance      decimal.Decimal `json:"balance"`
}

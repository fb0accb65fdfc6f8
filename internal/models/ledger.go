package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is the database model for one row of the student fee journal.
type LedgerEntry struct {
	EntryID       int64           `db:"entry_id"`
	StudentID     string          `db:"student_id"`
	SessionID     string          `db:"session_id"`
	EntryDate     time.Time       `db:"entry_date"`
	Particulars   string          `db:"particulars"`
	EntryType     string          `db:"entry_type"`
	DebitAmount   decimal.Decimal `db:"debit_amount"`
	CreditAmount  decimal.Decimal `db:"credit_amount"`
	Balance       decimal.Decimal `db:"balance"`
	ReferenceType string          `db:"reference_type"`
	ReferenceID   int64           `db:"reference_id"`
	IsReversed    bool            `db:"is_reversed"`
	CreatedAt     time.Time       `db:"created_at"`
	CreatedBy     string          `db:"created_by"`
	LastUpdatedAt time.Time       `db:"last_updated_at"`
	LastUpdatedBy string          `db:"last_updated_by"`
}

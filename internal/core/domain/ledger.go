package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType indicates whether a ledger entry is a Debit or a Credit.
type EntryType string

const (
	Debit  EntryType = "DEBIT"  // increases what the student owes
	Credit EntryType = "CREDIT" // decreases what the student owes
)

// ReferenceType identifies the kind of business event that produced a
// ledger entry.
type ReferenceType string

const (
	RefFeeCharge      ReferenceType = "FEE_CHARGE"
	RefReceipt        ReferenceType = "RECEIPT"
	RefAdjustment     ReferenceType = "ADJUSTMENT"
	RefReversal       ReferenceType = "REVERSAL"
	RefOpeningBalance ReferenceType = "OPENING_BALANCE"
	RefDiscount       ReferenceType = "DISCOUNT"
)

// ValidReferenceType reports whether s names a known reference type.
func ValidReferenceType(s string) bool {
	switch ReferenceType(s) {
	case RefFeeCharge, RefReceipt, RefAdjustment, RefReversal, RefOpeningBalance, RefDiscount:
		return true
	}
	return false
}

// LedgerEntry is one row in a student's append-only fee journal.
// Balance is the cached running balance immediately after this entry,
// considering only non-reversed entries in chronological order.
type LedgerEntry struct {
	EntryID       int64           `json:"entryID"`   // Primary key, monotonically assigned
	StudentID     string          `json:"studentID"` // FK -> students
	SessionID     string          `json:"sessionID"` // FK -> sessions (academic year)
	EntryDate     time.Time       `json:"entryDate"` // Date the event is attributed to; may be backdated
	Particulars   string          `json:"particulars"`
	EntryType     EntryType       `json:"entryType"`
	DebitAmount   decimal.Decimal `json:"debitAmount"`
	CreditAmount  decimal.Decimal `json:"creditAmount"`
	Balance       decimal.Decimal `json:"balance"`
	ReferenceType ReferenceType   `json:"referenceType"`
	ReferenceID   int64           `json:"referenceID"` // 0 when there is no originating record
	IsReversed    bool            `json:"isReversed"`
	AuditFields
}

// EntryOrder is the composite chronological sort key for ledger entries.
// Entries sharing an entry date are ordered by ascending entry ID, i.e.
// insertion order is the deterministic tie-breaker. All read and recompute
// paths must order through this comparator (in SQL: entry_date, entry_id).
type EntryOrder struct {
	EntryDate time.Time
	EntryID   int64
}

// Before reports whether o sorts strictly before other.
func (o EntryOrder) Before(other EntryOrder) bool {
	if !o.EntryDate.Equal(other.EntryDate) {
		return o.EntryDate.Before(other.EntryDate)
	}
	return o.EntryID < other.EntryID
}

// Order returns the entry's chronological sort key.
func (e LedgerEntry) Order() EntryOrder {
	return EntryOrder{EntryDate: e.EntryDate, EntryID: e.EntryID}
}

// SignedAmount is the entry's effect on the running balance: debit minus credit.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	return e.DebitAmount.Sub(e.CreditAmount)
}

// Validate checks the debit/credit consistency rules: both amounts
// non-negative, and exactly the side named by EntryType non-zero.
func (e LedgerEntry) Validate() error {
	if e.DebitAmount.IsNegative() || e.CreditAmount.IsNegative() {
		return fmt.Errorf("ledger entry amounts must be non-negative (debit %s, credit %s)",
			e.DebitAmount.String(), e.CreditAmount.String())
	}
	switch e.EntryType {
	case Debit:
		if !e.CreditAmount.IsZero() {
			return fmt.Errorf("DEBIT entry must have zero credit amount, got %s", e.CreditAmount.String())
		}
		if e.DebitAmount.IsZero() {
			return fmt.Errorf("DEBIT entry must have a positive debit amount")
		}
	case Credit:
		if !e.DebitAmount.IsZero() {
			return fmt.Errorf("CREDIT entry must have zero debit amount, got %s", e.DebitAmount.String())
		}
		if e.CreditAmount.IsZero() {
			return fmt.Errorf("CREDIT entry must have a positive credit amount")
		}
	default:
		return fmt.Errorf("unknown entry type %q", e.EntryType)
	}
	if !ValidReferenceType(string(e.ReferenceType)) {
		return fmt.Errorf("unknown reference type %q", e.ReferenceType)
	}
	return nil
}

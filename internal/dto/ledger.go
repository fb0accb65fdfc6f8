package dto

import (
	"time"

	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateLedgerEntryRequest is one charge or payment line to append to a
// student's ledger. Amount is the single positive amount of the entry; the
// service places it on the debit or credit side according to EntryType.
type CreateLedgerEntryRequest struct {
	SessionID     string               `json:"sessionID" binding:"required"`
	EntryDate     time.Time            `json:"entryDate" binding:"required"`
	Particulars   string               `json:"particulars"`
	EntryType     domain.EntryType     `json:"entryType" binding:"required,oneof=DEBIT CREDIT"`
	Amount        decimal.Decimal      `json:"amount" binding:"required"`
	ReferenceType domain.ReferenceType `json:"referenceType" binding:"required,referencetype"`
	ReferenceID   int64                `json:"referenceID"` // 0 when there is no originating record
}

// CreateLedgerEntryBatchRequest appends several lines produced by one
// business event (e.g. a receipt paying multiple fee types) atomically.
type CreateLedgerEntryBatchRequest struct {
	Entries []CreateLedgerEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// ReverseReferenceRequest identifies the originating record whose ledger
// effect should be reversed.
type ReverseReferenceRequest struct {
	ReferenceType domain.ReferenceType `json:"referenceType" binding:"required,referencetype"`
	ReferenceID   int64                `json:"referenceID" binding:"required,gt=0"`
}

// LedgerEntryResponse defines the data returned for a single ledger entry.
type LedgerEntryResponse struct {
	EntryID       int64           `json:"entryID"`
	StudentID     string          `json:"studentID"`
	SessionID     string          `json:"sessionID"`
	EntryDate     time.Time       `json:"entryDate"`
	Particulars   string          `json:"particulars"`
	EntryType     string          `json:"entryType"`
	DebitAmount   decimal.Decimal `json:"debitAmount"`
	CreditAmount  decimal.Decimal `json:"creditAmount"`
	Balance       decimal.Decimal `json:"balance"`
	ReferenceType string          `json:"referenceType"`
	ReferenceID   int64           `json:"referenceID"`
	IsReversed    bool            `json:"isReversed"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// LedgerStatementResponse is a page of a student's statement.
type LedgerStatementResponse struct {
	Entries   []LedgerEntryResponse `json:"entries"`
	NextToken *string               `json:"nextToken,omitempty"`
}

// ListLedgerEntriesParams holds query parameters for listing a statement.
type ListLedgerEntriesParams struct {
	SessionID *string `form:"sessionID"`
	Limit     int     `form:"limit"`
	NextToken *string `form:"nextToken"`
}

// RecomputeResponse reports the outcome of a chronological recompute.
type RecomputeResponse struct {
	StudentID      string          `json:"studentID"`
	UpdatedEntries int64           `json:"updatedEntries"`
	CurrentBalance decimal.Decimal `json:"currentBalance"`
}

// ReversalResponse reports the outcome of reversing a reference. A zero
// ReversedCount means the reference had no active ledger effect.
type ReversalResponse struct {
	ReversedCount int64 `json:"reversedCount"`
}

// ToLedgerEntryResponse converts a domain ledger entry to its response DTO.
func ToLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		EntryID:       e.EntryID,
		StudentID:     e.StudentID,
		SessionID:     e.SessionID,
		EntryDate:     e.EntryDate,
		Particulars:   e.Particulars,
		EntryType:     string(e.EntryType),
		DebitAmount:   e.DebitAmount,
		CreditAmount:  e.CreditAmount,
		Balance:       e.Balance,
		ReferenceType: string(e.ReferenceType),
		ReferenceID:   e.ReferenceID,
		IsReversed:    e.IsReversed,
		CreatedAt:     e.CreatedAt,
	}
}

// ToLedgerEntryResponses converts a slice of domain entries.
func ToLedgerEntryResponses(entries []domain.LedgerEntry) []LedgerEntryResponse {
	responses := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		responses[i] = ToLedgerEntryResponse(&entries[i])
	}
	return responses
}

package mapping

import (
	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	"github.com/campusbooks/fee_ledger_app/internal/models"
)

// ToModelLedgerEntry converts a domain ledger entry to its database model.
func ToModelLedgerEntry(e domain.LedgerEntry) models.LedgerEntry {
	return models.LedgerEntry{
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
		CreatedBy:     e.CreatedBy,
		LastUpdatedAt: e.LastUpdatedAt,
		LastUpdatedBy: e.LastUpdatedBy,
	}
}

// ToDomainLedgerEntry converts a database model back to the domain type.
func ToDomainLedgerEntry(m models.LedgerEntry) domain.LedgerEntry {
	return domain.LedgerEntry{
		EntryID:       m.EntryID,
		StudentID:     m.StudentID,
		SessionID:     m.SessionID,
		EntryDate:     m.EntryDate,
		Particulars:   m.Particulars,
		EntryType:     domain.EntryType(m.EntryType),
		DebitAmount:   m.DebitAmount,
		CreditAmount:  m.CreditAmount,
		Balance:       m.Balance,
		ReferenceType: domain.ReferenceType(m.ReferenceType),
		ReferenceID:   m.ReferenceID,
		IsReversed:    m.IsReversed,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

// ToDomainLedgerEntrySlice converts a slice of database models.
func ToDomainLedgerEntrySlice(ms []models.LedgerEntry) []domain.LedgerEntry {
	entries := make([]domain.LedgerEntry, len(ms))
	for i, m := range ms {
		entries[i] = ToDomainLedgerEntry(m)
	}
	return entries
}

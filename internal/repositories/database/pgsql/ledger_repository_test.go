package pgsql

import (
	"testing"
	"time"

	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC)
}

func chargeOn(d int, amount int64) domain.LedgerEntry {
	return domain.LedgerEntry{
		StudentID:     "STU-1001",
		SessionID:     "2025-26",
		EntryDate:     day(d),
		Particulars:   "Tuition fee",
		EntryType:     domain.Debit,
		DebitAmount:   decimal.NewFromInt(amount),
		ReferenceType: domain.RefFeeCharge,
	}
}

func TestBatchNeedsRecompute_EmptyLedgerInOrder(t *testing.T) {
	batch := []domain.LedgerEntry{chargeOn(1, 100), chargeOn(2, 50)}

	assert.False(t, batchNeedsRecompute(time.Time{}, false, batch))
}

func TestBatchNeedsRecompute_EmptyLedgerDisorderedBatch(t *testing.T) {
	// First line dated after the second: the append-order fold would cache a
	// wrong balance on the Jun 1 line even though nothing predates the batch.
	batch := []domain.LedgerEntry{chargeOn(2, 100), chargeOn(1, 50)}

	assert.True(t, batchNeedsRecompute(time.Time{}, false, batch))
}

func TestBatchNeedsRecompute_LineBeforeExistingHistory(t *testing.T) {
	batch := []domain.LedgerEntry{chargeOn(3, 100)}

	assert.True(t, batchNeedsRecompute(day(10), true, batch))
}

func TestBatchNeedsRecompute_AllLinesAfterHistoryInOrder(t *testing.T) {
	batch := []domain.LedgerEntry{chargeOn(11, 100), chargeOn(12, 50)}

	assert.False(t, batchNeedsRecompute(day(10), true, batch))
}

func TestBatchNeedsRecompute_LinesAfterHistoryButDisordered(t *testing.T) {
	batch := []domain.LedgerEntry{chargeOn(12, 100), chargeOn(11, 50)}

	assert.True(t, batchNeedsRecompute(day(10), true, batch))
}

func TestBatchNeedsRecompute_EqualDatesKeepInsertionOrder(t *testing.T) {
	// Same-day lines are tie-broken by entry id, so no recompute is needed.
	batch := []domain.LedgerEntry{chargeOn(10, 100), chargeOn(10, 50)}

	assert.False(t, batchNeedsRecompute(day(10), true, batch))
}

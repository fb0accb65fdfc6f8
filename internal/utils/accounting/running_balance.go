package accounting

import (
	"sort"

	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// NextBalance applies one ledger entry to a prior running balance.
// This is the single balance rule: balance[k] = balance[k-1] + debit[k] - credit[k].
// Both the append path and the recompute path fold this function over the
// chronologically ordered non-reversed entries, baseline zero.
func NextBalance(prior decimal.Decimal, entry domain.LedgerEntry) decimal.Decimal {
	return prior.Add(entry.SignedAmount())
}

// RunningBalances folds NextBalance left over entries, which must already be
// in chronological order, and returns the balance after each entry.
func RunningBalances(prior decimal.Decimal, entries []domain.LedgerEntry) []decimal.Decimal {
	balances := make([]decimal.Decimal, len(entries))
	running := prior
	for i, entry := range entries {
		running = NextBalance(running, entry)
		balances[i] = running
	}
	return balances
}

// SortChronological sorts entries in place by the ledger ordering key
// (entry date ascending, entry ID ascending).
func SortChronological(entries []domain.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Order().Before(entries[j].Order())
	})
}

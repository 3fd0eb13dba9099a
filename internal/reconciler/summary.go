package reconciler

import (
	"reconciliation-engine/internal/classifier"
	"reconciliation-engine/internal/domain"
)

// summarize builds the run summary block returned to the caller, per
// SPEC_FULL.md §6.2.
func summarize(set classifier.Set, pool Pool, match MatchResult, reclassifiedCount int) Summary {
	return Summary{
		TotalExternal:                    len(set.Deposits) + len(set.Charges) + len(set.Debits),
		TotalInternal:                    len(set.Payouts) + len(set.Refunds) + len(set.Topups),
		Matched:                          len(match.MatchedKeys),
		UnmatchedExternal:                countUnreconciled(set.Debits),
		UnmatchedInternal:                countUnreconciled(set.Payouts),
		Deposits:                         len(set.Deposits),
		Charges:                          len(set.Charges),
		CarryForwardMatched:              len(match.CarryForwardMatchedKeys),
		CarryForwardReclassifiedCharges:  reclassifiedCount,
	}
}

func countUnreconciled(rows []domain.Transaction) int {
	n := 0
	for _, row := range rows {
		if row.ReconciliationStatus == domain.StatusUnreconciled {
			n++
		}
	}
	return n
}

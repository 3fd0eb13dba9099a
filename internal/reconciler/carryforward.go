package reconciler

import (
	"fmt"
	"strings"

	"reconciliation-engine/internal/domain"
)

// Pool is the split carry-forward state §4.5.2 step 2 produces: the key
// sets a new run's E_debits/I_payouts rows are matched against, plus the
// external rows reclassified to charge as a side effect of loading it.
type Pool struct {
	ExternalKeys map[string]domain.Transaction
	InternalKeys map[string]domain.Transaction
	Reclassified []domain.Transaction
}

// SplitCarryForward partitions rows — already filtered by the caller to
// reconciliation_key IS NOT NULL, status=unreconciled, not pending
// authorization, not manually reconciled, per §4.5.2 step 2 — into the
// carry-forward pool, reclassifying external rows whose narrative or
// transaction_id now matches a charge keyword.
//
// Reclassified rows are returned with their new type/category/status/note
// already applied, ready for the persister to UPDATE; run_id is
// deliberately left untouched since the new run's row does not exist yet.
func SplitCarryForward(rows []domain.Transaction, chargeKeywords []string, runID string) Pool {
	pool := Pool{
		ExternalKeys: make(map[string]domain.Transaction),
		InternalKeys: make(map[string]domain.Transaction),
	}
	note := fmt.Sprintf(domain.NoteCarryForwardChargeNoteFmt, runID)

	for _, row := range rows {
		if row.GatewayType == domain.SideExternal {
			if hasChargeKeyword(row.Narrative, chargeKeywords) || hasChargeKeyword(row.TransactionID, chargeKeywords) {
				reclassified := row
				if row.TransactionType != domain.TypeCharge {
					reclassified.TransactionType = domain.TypeCharge
					reclassified.ReconciliationCategory = domain.CategoryAutoReconciled
				}
				if reclassified.ReconciliationStatus == domain.StatusUnreconciled {
					reclassified.ReconciliationStatus = domain.StatusReconciled
					reclassified.ReconciliationNote = &note
					pool.Reclassified = append(pool.Reclassified, reclassified)
				}
				continue // reclassified rows do not enter the match pool
			}
			if row.ReconciliationCategory == domain.CategoryReconcilable && row.ReconciliationKey != nil {
				pool.ExternalKeys[*row.ReconciliationKey] = row
			}
			continue
		}
		if row.ReconciliationCategory == domain.CategoryReconcilable && row.ReconciliationKey != nil {
			pool.InternalKeys[*row.ReconciliationKey] = row
		}
	}
	return pool
}

func hasChargeKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

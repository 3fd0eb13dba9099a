package reconciler

import (
	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/classifier"
	"reconciliation-engine/internal/config"
	"reconciliation-engine/internal/domain"
	"reconciliation-engine/pkg/logger"
)

// Summary is the run result's summary block, per SPEC_FULL.md §6.2.
type Summary struct {
	TotalExternal                int `json:"total_external"`
	TotalInternal                int `json:"total_internal"`
	Matched                      int `json:"matched"`
	UnmatchedExternal            int `json:"unmatched_external"`
	UnmatchedInternal            int `json:"unmatched_internal"`
	Deposits                     int `json:"deposits"`
	Charges                      int `json:"charges"`
	CarryForwardMatched          int `json:"carry_forward_matched"`
	CarryForwardReclassifiedCharges int `json:"carry_forward_reclassified_charges"`
}

// Result bundles everything the persister needs for one run: the fully
// keyed and status-tagged classifier.Set, the carry-forward updates to
// apply, and the summary to return to the caller.
type Result struct {
	Gateway                string
	RunID                  string
	Set                    classifier.Set
	CarryForwardReclassified []domain.Transaction
	CarryForwardMatchedRows []domain.Transaction
	Summary                Summary
}

// Reconciler runs the pure, DB-free matching algorithm of §4.5.2 steps
// 3-6 on already classified rows. Step 1 (file validation) and the
// read/normalize/classify part of step 3 live in load.go; step 2 (loading
// the carry-forward pool) is driven by Service.Run in service.go, with the
// split done by SplitCarryForward in carryforward.go; step 7 (persistence)
// is internal/persistence's job.
type Reconciler struct {
	logger logger.Logger
}

// New constructs a Reconciler.
func New(log logger.Logger) *Reconciler {
	return &Reconciler{logger: log.WithComponent("reconciler")}
}

// Reconcile assigns reconciliation keys to set, validates E_debits and
// I_payouts have no in-partition duplicate keys, matches against pool, and
// summarizes the run. It returns a *rerrors.Error of kind
// ReconciliationError on duplicate-key validation failure.
func (r *Reconciler) Reconcile(set classifier.Set, pool Pool, pair config.GatewayPair, base, runID string) (*Result, error) {
	assignKeys(set.Deposits, base, true)
	assignKeys(set.Charges, base, true)
	assignKeys(set.Debits, base, false)
	assignKeys(set.Payouts, base, false)

	dedupeInRun(set.Deposits)
	dedupeInRun(set.Charges)

	if err := ValidateNoDuplicateKeys(set.Debits, "external debits"); err != nil {
		return nil, err
	}
	if err := ValidateNoDuplicateKeys(set.Payouts, "internal payouts"); err != nil {
		return nil, err
	}

	matchResult := Match(set.Debits, set.Payouts, pool)

	var carryForwardMatchedRows []domain.Transaction
	for key := range matchResult.CarryForwardMatchedKeys {
		if row, ok := pool.ExternalKeys[key]; ok {
			carryForwardMatchedRows = append(carryForwardMatchedRows, row)
		}
		if row, ok := pool.InternalKeys[key]; ok {
			carryForwardMatchedRows = append(carryForwardMatchedRows, row)
		}
	}

	summary := summarize(set, pool, matchResult, len(pool.Reclassified))

	r.logger.WithField("gateway", base).WithField("run_id", runID).
		WithField("matched", summary.Matched).WithField("carry_forward_matched", summary.CarryForwardMatched).
		Info("reconciliation computed")

	return &Result{
		Gateway:                  base,
		RunID:                    runID,
		Set:                      set,
		CarryForwardReclassified: pool.Reclassified,
		CarryForwardMatchedRows:  carryForwardMatchedRows,
		Summary:                  summary,
	}, nil
}

// assignKeys sets ReconciliationKey on every row, using the date-suffixed
// variant for auto-reconciled rows (deposits, charges) and the bare key
// for reconcilable rows (debits, payouts), per §3.2.
func assignKeys(rows []domain.Transaction, base string, dateSuffixed bool) {
	for i := range rows {
		row := &rows[i]
		amount := row.Debit
		if amount == nil {
			amount = row.Credit
		}
		var key string
		if dateSuffixed {
			key = BuildDateSuffixedKey(row.TransactionID, valueOr(amount), base, row.Date)
		} else {
			key = BuildKey(row.TransactionID, valueOr(amount), base)
		}
		row.ReconciliationKey = &key
	}
}

// dedupeInRun applies §3.2's in-run suffixing to an auto-reconciled
// partition, whose keys are allowed to collide (e.g. two identical-amount
// charges on the same day) and must still satisfy UNIQUE(reconciliation_key, gateway).
func dedupeInRun(rows []domain.Transaction) {
	keys := make([]string, len(rows))
	for i, row := range rows {
		if row.ReconciliationKey != nil {
			keys[i] = *row.ReconciliationKey
		}
	}
	deduped := DeduplicateKeys(keys)
	for i := range rows {
		rows[i].ReconciliationKey = &deduped[i]
	}
}

func valueOr(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

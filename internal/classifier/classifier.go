// Package classifier implements SPEC_FULL.md §4.4: it partitions a
// normalized external table and a normalized internal table into the six
// transaction-type partitions the reconciler and persister operate on, and
// tags every row with the gateway/type/category/status metadata those
// downstream stages need.
//
// The teacher has no notion of charges, deposits, or refunds as distinct
// from plain debits/credits — this partitioning logic is new — but the
// keyword-substring matching style follows the case-insensitive
// normalization idiom in the teacher's internal/models.NormalizeIdentifier.
package classifier

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/config"
	"reconciliation-engine/internal/domain"
	"reconciliation-engine/internal/gatewayfile"
	"reconciliation-engine/pkg/logger"
)

const systemReconciledNote = "System Reconciled"

// Set holds the partitioned, tagged rows produced from one gateway's
// external and internal tables for one run.
type Set struct {
	Deposits []domain.Transaction // auto_reconciled, reconciled
	Debits   []domain.Transaction // reconcilable, unreconciled
	Charges  []domain.Transaction // auto_reconciled, reconciled
	Payouts  []domain.Transaction // reconcilable, unreconciled
	Refunds  []domain.Transaction // non_reconcilable, unreconciled
	Topups   []domain.Transaction // non_reconcilable, unreconciled
}

// Classifier partitions normalized gateway tables into the Set above.
type Classifier struct {
	logger logger.Logger
}

// NewClassifier constructs a Classifier.
func NewClassifier(log logger.Logger) *Classifier {
	return &Classifier{logger: log.WithComponent("classifier")}
}

// Classify partitions ext (the normalized external table) and intl (the
// normalized internal table) for base gateway pair, tagging every row with
// gateway, source file, and run_id.
func (c *Classifier) Classify(ext, intl *gatewayfile.Table, pair config.GatewayPair, base, runID, extSourceFile, intlSourceFile string) Set {
	keywords := pair.ChargeKeywords()

	set := Set{}
	if ext != nil {
		set.Charges, set.Deposits, set.Debits = c.classifyExternal(ext, pair.External.Layout, keywords, base, runID, extSourceFile)
	}
	if intl != nil {
		set.Payouts, set.Refunds, set.Topups = c.classifyInternal(intl, pair.Internal.Layout, base, runID, intlSourceFile)
	}

	c.logger.WithFields(logger.Fields{
		"gateway":  base,
		"run_id":   runID,
		"charges":  len(set.Charges),
		"deposits": len(set.Deposits),
		"debits":   len(set.Debits),
		"payouts":  len(set.Payouts),
		"refunds":  len(set.Refunds),
		"topups":   len(set.Topups),
	}).Info("classified gateway tables")
	return set
}

func (c *Classifier) classifyExternal(t *gatewayfile.Table, layout config.ColumnLayout, keywords []string, base, runID, sourceFile string) (charges, deposits, debits []domain.Transaction) {
	narratives := t.Col(layout.NarrativeColumn)
	refs := t.Col(layout.ReferenceColumn)
	debitCol := t.Col(layout.DebitColumn)
	creditCol := t.Col(layout.CreditColumn)
	dateCol := t.Col(layout.DateColumn)

	for i := 0; i < t.Rows(); i++ {
		narrative := cellAt(narratives, i)
		ref := cellAt(refs, i)
		debit := decimalAt(debitCol, i)
		credit := decimalAt(creditCol, i)
		date := dateAt(dateCol, i)
		charge := hasChargeKeyword(narrative, keywords) || hasChargeKeyword(ref, keywords)

		switch {
		case charge && debit.GreaterThan(decimal.Zero):
			charges = append(charges, c.tag(domain.TypeCharge, base, domain.SideExternal, runID, sourceFile, date, ref, narrative, &debit, nil, true))
		case credit.GreaterThanOrEqual(decimal.NewFromInt(1)):
			deposits = append(deposits, c.tag(domain.TypeDeposit, base, domain.SideExternal, runID, sourceFile, date, ref, narrative, nil, &credit, true))
		case !charge && debit.GreaterThanOrEqual(decimal.NewFromInt(1)):
			debits = append(debits, c.tag(domain.TypeDebit, base, domain.SideExternal, runID, sourceFile, date, ref, narrative, &debit, nil, false))
		default:
			// zero-amount informational line; discarded, matching
			// GatewayFileClass.get_equity_{charges,credits,debits}' masks,
			// none of which retain a row with no debit or credit movement.
		}
	}
	return charges, deposits, debits
}

func (c *Classifier) classifyInternal(t *gatewayfile.Table, layout config.ColumnLayout, base, runID, sourceFile string) (payouts, refunds, topups []domain.Transaction) {
	narratives := t.Col(layout.NarrativeColumn)
	refs := t.Col(layout.ReferenceColumn)
	debitCol := t.Col(layout.DebitColumn)
	dateCol := t.Col(layout.DateColumn)
	var statusCol []string
	if layout.StatusColumn != "" {
		statusCol = t.Col(layout.StatusColumn)
	}

	for i := 0; i < t.Rows(); i++ {
		narrative := cellAt(narratives, i)
		ref := cellAt(refs, i)
		status := cellAt(statusCol, i)
		debit := decimalAt(debitCol, i)
		date := dateAt(dateCol, i)

		switch {
		case layout.TopupMarker != "" && strings.EqualFold(strings.TrimSpace(narrative), layout.TopupMarker):
			topups = append(topups, c.tag(domain.TypeRefund, base, domain.SideInternal, runID, sourceFile, date, ref, narrative, &debit, nil, false))
		case strings.Contains(strings.ToLower(status), "refund") || strings.Contains(strings.ToLower(narrative), "refund"):
			refunds = append(refunds, c.tag(domain.TypeRefund, base, domain.SideInternal, runID, sourceFile, date, ref, narrative, &debit, nil, false))
		default:
			payouts = append(payouts, c.tag(domain.TypePayout, base, domain.SideInternal, runID, sourceFile, date, ref, narrative, &debit, nil, false))
		}
	}
	return payouts, refunds, topups
}

// tag builds a Transaction with the gateway/type/category/status/note
// metadata §4.4 requires. autoReconciled is true only for deposit/charge
// partitions, which are reconciled and noted at classification time;
// every other partition is left unreconciled with no note until the
// reconciler or persister's carry-forward pass says otherwise.
func (c *Classifier) tag(t domain.TransactionType, base string, side domain.GatewaySide, runID, sourceFile string, date *time.Time, ref, narrative string, debit, credit *decimal.Decimal, autoReconciled bool) domain.Transaction {
	status := domain.StatusUnreconciled
	var note *string
	if autoReconciled {
		status = domain.StatusReconciled
		n := systemReconciledNote
		note = &n
	}
	return domain.Transaction{
		Gateway:                domain.GatewayName(base, side),
		GatewayType:            side,
		TransactionType:        t,
		ReconciliationCategory: domain.CategoryForType(t),
		Date:                   date,
		TransactionID:          ref,
		Narrative:              narrative,
		Debit:                  debit,
		Credit:                 credit,
		ReconciliationStatus:   status,
		ReconciliationNote:     note,
		RunID:                  runID,
		SourceFile:             sourceFile,
	}
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

func cellAt(col []string, i int) string {
	if i < len(col) {
		return col[i]
	}
	return ""
}

func decimalAt(col []string, i int) decimal.Decimal {
	cell := cellAt(col, i)
	if cell == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func dateAt(col []string, i int) *time.Time {
	cell := cellAt(col, i)
	if cell == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, cell)
	if err != nil {
		return nil
	}
	return &t
}

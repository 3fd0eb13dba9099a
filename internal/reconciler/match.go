package reconciler

import (
	"sort"
	"strconv"

	"reconciliation-engine/internal/domain"
	"reconciliation-engine/pkg/rerrors"
)

const maxReportedDuplicates = 10

// ValidateNoDuplicateKeys implements §4.5.2 step 4: within one reconcilable
// partition (E_debits or I_payouts), excluding rows whose reference is
// "NA" or empty, no key may appear more than once. Duplicate keys among
// reconcilable rows would cause silent undercounting or arbitrary match
// ordering, so this fails the whole run rather than silently picking one.
func ValidateNoDuplicateKeys(rows []domain.Transaction, source string) error {
	counts := make(map[string]int)
	for _, row := range rows {
		if row.ReconciliationKey == nil || isEmptyReference(row.TransactionID) {
			continue
		}
		counts[*row.ReconciliationKey]++
	}

	var duplicateKeys []string
	for key, n := range counts {
		if n >= 2 {
			duplicateKeys = append(duplicateKeys, key)
		}
	}
	if len(duplicateKeys) == 0 {
		return nil
	}
	sort.Strings(duplicateKeys)

	type offender struct {
		reference string
		amount    string
		count     int
		source    string
	}
	var offenders []offender
	for _, key := range duplicateKeys {
		if len(offenders) >= maxReportedDuplicates {
			break
		}
		for _, row := range rows {
			if row.ReconciliationKey != nil && *row.ReconciliationKey == key {
				amount := "0"
				if row.Debit != nil {
					amount = row.Debit.String()
				}
				offenders = append(offenders, offender{row.TransactionID, amount, counts[key], source})
				break
			}
		}
	}

	msg := rerrors.New(rerrors.KindReconciliationError, "duplicate reconciliation keys within a partition").
		WithSuggestion("re-export the source file; duplicate reconcilable references/amounts cannot be matched deterministically")
	for i, o := range offenders {
		msg = msg.WithContext(keyForIndex(i), o)
	}
	return msg
}

func keyForIndex(i int) string {
	return "duplicate_" + strconv.Itoa(i)
}

func isEmptyReference(ref string) bool {
	return ref == "" || ref == "NA"
}

// MatchResult is the outcome of §4.5.2 step 5.
type MatchResult struct {
	MatchedKeys             map[string]bool
	CarryForwardMatchedKeys map[string]bool
}

// Match computes the matched key set between new external debits and new
// internal payouts (each unioned with their carry-forward counterparts),
// and flips matched rows' status/note in place.
func Match(debits, payouts []domain.Transaction, pool Pool) MatchResult {
	newExternal := keySet(debits)
	newInternal := keySet(payouts)

	allExternal := unionKeys(newExternal, pool.ExternalKeys)
	allInternal := unionKeys(newInternal, pool.InternalKeys)

	matched := intersect(allExternal, allInternal)

	applyMatchStatus(debits, matched)
	applyMatchStatus(payouts, matched)

	carryForwardMatched := make(map[string]bool)
	for key := range matched {
		_, inExternal := pool.ExternalKeys[key]
		_, inInternal := pool.InternalKeys[key]
		if inExternal || inInternal {
			carryForwardMatched[key] = true
		}
	}

	return MatchResult{MatchedKeys: matched, CarryForwardMatchedKeys: carryForwardMatched}
}

func applyMatchStatus(rows []domain.Transaction, matched map[string]bool) {
	for i := range rows {
		row := &rows[i]
		if row.ReconciliationKey == nil || isEmptyReference(row.TransactionID) {
			continue
		}
		if matched[*row.ReconciliationKey] {
			note := domain.NoteSystemReconciled
			row.ReconciliationStatus = domain.StatusReconciled
			row.ReconciliationNote = &note
		}
	}
}

func keySet(rows []domain.Transaction) map[string]bool {
	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.ReconciliationKey == nil || isEmptyReference(row.TransactionID) {
			continue
		}
		set[*row.ReconciliationKey] = true
	}
	return set
}

func unionKeys(a map[string]bool, b map[string]domain.Transaction) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

func intersect(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for k := range small {
		if large[k] {
			out[k] = true
		}
	}
	return out
}

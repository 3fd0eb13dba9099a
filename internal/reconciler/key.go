// Package reconciler implements SPEC_FULL.md §4.5: reconciliation-key
// generation, carry-forward pool splitting, duplicate-key validation,
// set-intersection matching, and run summarization. It is deliberately
// free of blob-store, file, and database access — LoadGatewayTables in
// load.go is the thin I/O shell around it — so the matching algorithm
// itself stays unit-testable without a database.
package reconciler

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// normalizeReference implements §3.2's normalize(R): trim, uppercase,
// strip a trailing ".0" (common when a numeric reference round-trips
// through a spreadsheet cell and gains a float suffix).
func normalizeReference(ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.ToUpper(ref)
	ref = strings.TrimSuffix(ref, ".0")
	return ref
}

// wholeAmount implements §3.2's whole(A): the absolute integer part of the
// amount. Matching is at whole-unit granularity; fractional cents are not
// part of the key.
func wholeAmount(a decimal.Decimal) string {
	return a.Abs().Truncate(0).String()
}

// BuildKey builds the base reconciliation key for a reconcilable row:
// {normalize(reference)}|{whole(amount)}|{base_gateway}.
func BuildKey(reference string, amount decimal.Decimal, baseGateway string) string {
	return fmt.Sprintf("%s|%s|%s", normalizeReference(reference), wholeAmount(amount), baseGateway)
}

// BuildDateSuffixedKey builds the date-suffixed variant used only for
// auto-reconciled rows (deposits, charges), so recurring same-amount
// charges on different days don't collide across statement periods.
func BuildDateSuffixedKey(reference string, amount decimal.Decimal, baseGateway string, date *time.Time) string {
	base := BuildKey(reference, amount, baseGateway)
	suffix := "nodate"
	if date != nil {
		suffix = date.UTC().Format("20060102")
	}
	return base + "|" + suffix
}

// DeduplicateKeys implements §3.2's in-run deduplication: when the same
// key appears N>1 times in keys (in order), the 2nd, 3rd, ... occurrence
// is suffixed with "|1", "|2", ... This is applied only to auto-reconciled
// partitions; reconcilable partitions are validated to have no collisions
// instead (see ValidateNoDuplicateKeys).
func DeduplicateKeys(keys []string) []string {
	seen := make(map[string]int, len(keys))
	out := make([]string, len(keys))
	for i, k := range keys {
		n := seen[k]
		seen[k] = n + 1
		if n == 0 {
			out[i] = k
		} else {
			out[i] = fmt.Sprintf("%s|%d", k, n)
		}
	}
	return out
}

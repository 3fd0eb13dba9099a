package gatewayfile

import (
	"testing"

	"reconciliation-engine/internal/config"
	"reconciliation-engine/pkg/logger"
	"reconciliation-engine/pkg/rerrors"
)

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	log, err := logger.NewLogger(logger.DefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	return NewNormalizer(log)
}

func equityGrid() [][]string {
	return [][]string{
		{"Spacer1", "Spacer2", "Date", "Narrative", "Customer Reference", "Debit", "Credit"},
		{"x", "y", "01-01-2026", "  JENGA CHARGE  ", "REF1", "1,234.50", ""},
		{"x", "y", "02-01-2026", "Deposit", "", "", "500"},
		{"x", "y", "----- End of Statement -----", "", "", "", ""},
		{"x", "y", "03-01-2026", "Should be dropped", "REF3", "10", ""},
	}
}

func equityLayout() config.ColumnLayout {
	return config.ColumnLayout{
		RequiredColumns:      []string{"Date", "Narrative", "Customer Reference", "Debit", "Credit"},
		DateColumn:           "Date",
		DateFormat:           "02-01-2006",
		ReferenceColumn:      "Customer Reference",
		NarrativeColumn:      "Narrative",
		NumericColumns:       []string{"Debit", "Credit"},
		StringColumns:        []string{"Narrative", "Customer Reference"},
		EndOfDataSignal:      "----- End of Statement -----",
		LeadingSpacerColumns: 2,
	}
}

func TestNormalizeDropsTrailerAndSlicesLeadingColumns(t *testing.T) {
	n := newTestNormalizer(t)
	table := NewTable(equityGrid())
	if err := n.Normalize(table, equityLayout(), "equity"); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if table.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2 (trailer row and everything after dropped)", table.Rows())
	}
	if table.HasColumn("Spacer1") || table.HasColumn("Spacer2") {
		t.Errorf("expected leading spacer columns removed, got headers %v", table.Headers)
	}
}

func TestNormalizeHandlesNumericsAndDates(t *testing.T) {
	n := newTestNormalizer(t)
	table := NewTable(equityGrid())
	if err := n.Normalize(table, equityLayout(), "equity"); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	debit := table.Col("Debit")
	if debit[0] != "1234.5" {
		t.Errorf("Debit[0] = %s, want 1234.5", debit[0])
	}
	date := table.Col("Date")
	if date[0] != "2026-01-01T00:00:00Z" {
		t.Errorf("Date[0] = %s, want 2026-01-01T00:00:00Z", date[0])
	}
}

func TestNormalizeFillsNullReferenceWithSyntheticValue(t *testing.T) {
	n := newTestNormalizer(t)
	table := NewTable(equityGrid())
	if err := n.Normalize(table, equityLayout(), "equity"); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	ref := table.Col("Customer Reference")
	if ref[1] == "" || ref[1] == "NA" {
		t.Errorf("expected row 1's blank reference to be replaced with a synthetic reference, got %q", ref[1])
	}
}

func TestNormalizeStringColumnNullSentinel(t *testing.T) {
	layout := equityLayout()
	layout.StringColumns = []string{"Narrative"}
	grid := [][]string{
		{"Date", "Narrative", "Customer Reference", "Debit", "Credit"},
		{"01-01-2026", "null", "REF1", "10", ""},
	}
	layout.LeadingSpacerColumns = 0
	n := newTestNormalizer(t)
	table := NewTable(grid)
	if err := n.Normalize(table, layout, "equity"); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got := table.Col("Narrative")[0]; got != "NA" {
		t.Errorf("Narrative[0] = %q, want NA", got)
	}
}

func TestNormalizeMissingRequiredColumn(t *testing.T) {
	n := newTestNormalizer(t)
	grid := [][]string{{"Date", "Narrative"}, {"01-01-2026", "x"}}
	table := NewTable(grid)
	layout := config.ColumnLayout{RequiredColumns: []string{"Date", "Narrative", "Customer Reference"}}
	err := n.Normalize(table, layout, "equity")
	if !rerrors.Is(err, rerrors.KindColumnValidation) {
		t.Fatalf("expected KindColumnValidation, got %v", err)
	}
}

func TestNormalizeMarksTopups(t *testing.T) {
	layout := config.ColumnLayout{
		RequiredColumns: []string{"Date", "Narrative", "Reference", "Debit", "Credit"},
		DateColumn:      "Date",
		ReferenceColumn: "Reference",
		NarrativeColumn: "Narrative",
		NumericColumns:  []string{"Debit", "Credit"},
		StringColumns:   []string{"Narrative"},
		TopupMarker:     "Wallet Top Up",
	}
	grid := [][]string{
		{"Date", "Narrative", "Reference", "Debit", "Credit"},
		{"2026-01-01", "Wallet Top Up", "", "0", "100"},
	}
	n := newTestNormalizer(t)
	table := NewTable(grid)
	if err := n.Normalize(table, layout, "workpay"); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	ref := table.Col("Reference")[0]
	if ref == "" {
		t.Fatalf("expected top-up reference to be filled")
	}
}

package classifier

import (
	"testing"

	"reconciliation-engine/internal/config"
	"reconciliation-engine/internal/domain"
	"reconciliation-engine/internal/gatewayfile"
	"reconciliation-engine/pkg/logger"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	log, err := logger.NewLogger(logger.DefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	return NewClassifier(log)
}

func externalLayout() config.ColumnLayout {
	return config.ColumnLayout{
		NarrativeColumn: "Narrative",
		ReferenceColumn: "Reference",
		DebitColumn:     "Debit",
		CreditColumn:    "Credit",
		DateColumn:      "Date",
	}
}

func internalLayout() config.ColumnLayout {
	return config.ColumnLayout{
		NarrativeColumn: "Narrative",
		ReferenceColumn: "Reference",
		DebitColumn:     "Debit",
		DateColumn:      "Date",
		StatusColumn:    "Status",
		TopupMarker:     "Wallet Top Up",
	}
}

func TestClassifyExternalPartitions(t *testing.T) {
	c := newTestClassifier(t)
	ext := gatewayfile.NewTable([][]string{
		{"Date", "Narrative", "Reference", "Debit", "Credit"},
		{"2026-01-01T00:00:00Z", "Jenga Charge", "REF1", "5", "0"},
		{"2026-01-01T00:00:00Z", "Customer Deposit", "REF2", "0", "500"},
		{"2026-01-01T00:00:00Z", "Payout to vendor", "REF3", "100", "0"},
		{"2026-01-01T00:00:00Z", "Zero movement", "REF4", "0", "0"},
	})
	pair := config.GatewayPair{
		External: config.GatewayFileConfig{Layout: externalLayout(), ChargeKeywords: []string{"Jenga Charge"}},
	}
	set := c.Classify(ext, nil, pair, "equity", "RUN-1", "equity_external.csv", "")

	if len(set.Charges) != 1 {
		t.Errorf("Charges = %d, want 1", len(set.Charges))
	}
	if len(set.Deposits) != 1 {
		t.Errorf("Deposits = %d, want 1", len(set.Deposits))
	}
	if len(set.Debits) != 1 {
		t.Errorf("Debits = %d, want 1", len(set.Debits))
	}
	if set.Charges[0].ReconciliationStatus != domain.StatusReconciled {
		t.Errorf("charge status = %s, want reconciled", set.Charges[0].ReconciliationStatus)
	}
	if set.Debits[0].ReconciliationStatus != domain.StatusUnreconciled {
		t.Errorf("debit status = %s, want unreconciled", set.Debits[0].ReconciliationStatus)
	}
}

func TestClassifyInternalPartitions(t *testing.T) {
	c := newTestClassifier(t)
	intl := gatewayfile.NewTable([][]string{
		{"Date", "Narrative", "Reference", "Debit", "Status"},
		{"2026-01-01T00:00:00Z", "Payment to vendor", "REF1", "100", "completed"},
		{"2026-01-01T00:00:00Z", "Refund issued", "REF2", "50", "refunded"},
		{"2026-01-01T00:00:00Z", "Wallet Top Up", "REF3", "20", "completed"},
	})
	pair := config.GatewayPair{Internal: config.GatewayFileConfig{Layout: internalLayout()}}
	set := c.Classify(nil, intl, pair, "workpay", "RUN-1", "", "workpay_payouts.csv")

	if len(set.Payouts) != 1 {
		t.Errorf("Payouts = %d, want 1", len(set.Payouts))
	}
	if len(set.Refunds) != 1 {
		t.Errorf("Refunds = %d, want 1", len(set.Refunds))
	}
	if len(set.Topups) != 1 {
		t.Errorf("Topups = %d, want 1", len(set.Topups))
	}
	for _, tx := range append(append([]domain.Transaction{}, set.Refunds...), set.Topups...) {
		if tx.ReconciliationCategory != domain.CategoryNonReconcilable {
			t.Errorf("category = %s, want non_reconcilable", tx.ReconciliationCategory)
		}
	}
}

func TestClassifyTagsGatewayAndRunMetadata(t *testing.T) {
	c := newTestClassifier(t)
	ext := gatewayfile.NewTable([][]string{
		{"Date", "Narrative", "Reference", "Debit", "Credit"},
		{"2026-01-01T00:00:00Z", "Payout to vendor", "REF3", "100", "0"},
	})
	pair := config.GatewayPair{External: config.GatewayFileConfig{Layout: externalLayout()}}
	set := c.Classify(ext, nil, pair, "equity", "RUN-1", "equity_external.csv", "")

	if len(set.Debits) != 1 {
		t.Fatalf("Debits = %d, want 1", len(set.Debits))
	}
	got := set.Debits[0]
	if got.Gateway != "equity_external" {
		t.Errorf("Gateway = %s, want equity_external", got.Gateway)
	}
	if got.RunID != "RUN-1" {
		t.Errorf("RunID = %s, want RUN-1", got.RunID)
	}
	if got.SourceFile != "equity_external.csv" {
		t.Errorf("SourceFile = %s, want equity_external.csv", got.SourceFile)
	}
}

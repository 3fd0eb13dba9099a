package reconciler

import (
	"testing"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/domain"
	"reconciliation-engine/pkg/rerrors"
)

func txWithKey(ref string, amount int64, key string) domain.Transaction {
	d := decimal.NewFromInt(amount)
	return domain.Transaction{TransactionID: ref, Debit: &d, ReconciliationKey: &key, ReconciliationStatus: domain.StatusUnreconciled}
}

func TestValidateNoDuplicateKeysPasses(t *testing.T) {
	rows := []domain.Transaction{
		txWithKey("REF1", 100, "REF1|100|equity"),
		txWithKey("REF2", 200, "REF2|200|equity"),
	}
	if err := ValidateNoDuplicateKeys(rows, "external debits"); err != nil {
		t.Fatalf("ValidateNoDuplicateKeys() error = %v, want nil", err)
	}
}

func TestValidateNoDuplicateKeysFails(t *testing.T) {
	rows := []domain.Transaction{
		txWithKey("REF1", 100, "REF1|100|equity"),
		txWithKey("REF1", 100, "REF1|100|equity"),
	}
	err := ValidateNoDuplicateKeys(rows, "external debits")
	if !rerrors.Is(err, rerrors.KindReconciliationError) {
		t.Fatalf("expected KindReconciliationError, got %v", err)
	}
}

func TestValidateNoDuplicateKeysIgnoresNAReferences(t *testing.T) {
	rows := []domain.Transaction{
		txWithKey("NA", 100, "NA|100|equity"),
		txWithKey("NA", 100, "NA|100|equity"),
	}
	if err := ValidateNoDuplicateKeys(rows, "external debits"); err != nil {
		t.Fatalf("ValidateNoDuplicateKeys() error = %v, want nil (NA excluded)", err)
	}
}

func TestMatchFlipsStatusOnIntersection(t *testing.T) {
	debits := []domain.Transaction{txWithKey("REF1", 100, "REF1|100|equity")}
	payouts := []domain.Transaction{txWithKey("REF1", 100, "REF1|100|equity")}

	result := Match(debits, payouts, Pool{ExternalKeys: map[string]domain.Transaction{}, InternalKeys: map[string]domain.Transaction{}})

	if !result.MatchedKeys["REF1|100|equity"] {
		t.Fatalf("expected key to be matched")
	}
	if debits[0].ReconciliationStatus != domain.StatusReconciled {
		t.Errorf("debit status = %s, want reconciled", debits[0].ReconciliationStatus)
	}
	if payouts[0].ReconciliationStatus != domain.StatusReconciled {
		t.Errorf("payout status = %s, want reconciled", payouts[0].ReconciliationStatus)
	}
}

func TestMatchAgainstCarryForwardPool(t *testing.T) {
	debits := []domain.Transaction{txWithKey("REF1", 100, "REF1|100|equity")}
	var payouts []domain.Transaction // nothing new on the internal side this run

	pool := Pool{
		ExternalKeys: map[string]domain.Transaction{},
		InternalKeys: map[string]domain.Transaction{"REF1|100|equity": txWithKey("REF1", 100, "REF1|100|equity")},
	}
	result := Match(debits, payouts, pool)

	if !result.MatchedKeys["REF1|100|equity"] {
		t.Fatalf("expected carry-forward match")
	}
	if !result.CarryForwardMatchedKeys["REF1|100|equity"] {
		t.Fatalf("expected key recorded as a carry-forward match")
	}
	if debits[0].ReconciliationStatus != domain.StatusReconciled {
		t.Errorf("debit status = %s, want reconciled", debits[0].ReconciliationStatus)
	}
}

func TestMatchLeavesUnmatchedRowsUnreconciled(t *testing.T) {
	debits := []domain.Transaction{txWithKey("REF1", 100, "REF1|100|equity")}
	payouts := []domain.Transaction{txWithKey("REF2", 200, "REF2|200|equity")}

	Match(debits, payouts, Pool{ExternalKeys: map[string]domain.Transaction{}, InternalKeys: map[string]domain.Transaction{}})

	if debits[0].ReconciliationStatus != domain.StatusUnreconciled {
		t.Errorf("debit status = %s, want unreconciled", debits[0].ReconciliationStatus)
	}
	if payouts[0].ReconciliationStatus != domain.StatusUnreconciled {
		t.Errorf("payout status = %s, want unreconciled", payouts[0].ReconciliationStatus)
	}
}

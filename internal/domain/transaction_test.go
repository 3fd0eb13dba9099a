package domain

import (
	"strings"
	"testing"
	"time"
)

func TestCategoryForType(t *testing.T) {
	cases := map[TransactionType]ReconciliationCategory{
		TypeDebit:   CategoryReconcilable,
		TypePayout:  CategoryReconcilable,
		TypeDeposit: CategoryAutoReconciled,
		TypeCharge:  CategoryAutoReconciled,
		TypeRefund:  CategoryNonReconcilable,
	}
	for typ, want := range cases {
		if got := CategoryForType(typ); got != want {
			t.Errorf("CategoryForType(%s) = %s, want %s", typ, got, want)
		}
	}
}

func TestBaseGatewayAndGatewayName(t *testing.T) {
	if got := BaseGateway("equity_external"); got != "equity" {
		t.Errorf("BaseGateway(equity_external) = %s, want equity", got)
	}
	if got := BaseGateway("equity_internal"); got != "equity" {
		t.Errorf("BaseGateway(equity_internal) = %s, want equity", got)
	}
	if got := GatewayName("equity", SideExternal); got != "equity_external" {
		t.Errorf("GatewayName = %s, want equity_external", got)
	}
}

// TestSideOfInvariant exercises invariant I4: gateway_type = external iff
// gateway ends in "_external".
func TestSideOfInvariant(t *testing.T) {
	if SideOf("equity_external") != SideExternal {
		t.Fatalf("expected external side")
	}
	if SideOf("equity_internal") != SideInternal {
		t.Fatalf("expected internal side")
	}
	if SideOf("workpay_equity_internal") != SideInternal {
		t.Fatalf("expected internal side for workpay-prefixed gateway")
	}
}

func TestNewRunIDFormat(t *testing.T) {
	now := time.Date(2026, 7, 30, 14, 5, 9, 0, time.UTC)
	id := NewRunID(now)
	if !strings.HasPrefix(id, "RUN-20260730-140509-") {
		t.Fatalf("unexpected run id format: %s", id)
	}
	parts := strings.Split(id, "-")
	if len(parts) != 4 || len(parts[3]) != 8 {
		t.Fatalf("expected 8-hex suffix, got %q", id)
	}
}

func TestSyntheticReferenceUnique(t *testing.T) {
	a := SyntheticReference("equity")
	b := SyntheticReference("equity")
	if a == b {
		t.Fatalf("expected distinct synthetic references, got %s twice", a)
	}
	if !strings.Contains(a, "-random_ref-") {
		t.Fatalf("unexpected synthetic reference shape: %s", a)
	}
}

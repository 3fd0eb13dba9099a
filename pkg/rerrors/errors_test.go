package rerrors

import (
	"errors"
	"testing"
)

func TestExitCodes(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindInvalidPath, 2},
		{KindNotFound, 3},
		{KindReadError, 4},
		{KindColumnValidation, 5},
		{KindReconciliationError, 6},
		{KindDbUniqueViolation, 0},
		{KindDbOperationError, 7},
	}
	for _, c := range cases {
		err := New(c.kind, "boom")
		if got := err.ExitCode(); got != c.want {
			t.Errorf("ExitCode(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := DbOperationError("insert transaction", cause)

	if wrapped.Unwrap() != cause {
		t.Fatalf("Unwrap() = %v, want %v", wrapped.Unwrap(), cause)
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("errors.Is(wrapped, cause) = false, want true")
	}
}

func TestWithContextAndSuggestion(t *testing.T) {
	err := InvalidPath("equity", "../etc/passwd", "contains '..'")
	if err.Context["gateway"] != "equity" {
		t.Fatalf("expected gateway context to be set")
	}
	if err.Suggestion == "" {
		t.Fatalf("expected a suggestion to be set")
	}
}

func TestIsAndAs(t *testing.T) {
	err := DbUniqueViolation("REF1|100|equity", "equity_external", errors.New("duplicate key value"))

	if !Is(err, KindDbUniqueViolation) {
		t.Fatalf("Is(err, KindDbUniqueViolation) = false, want true")
	}

	extracted, ok := As(err)
	if !ok {
		t.Fatalf("As(err) returned ok=false")
	}
	if extracted.Context["reconciliation_key"] != "REF1|100|equity" {
		t.Fatalf("expected reconciliation_key in context")
	}
}

func TestColumnValidationMessage(t *testing.T) {
	err := ColumnValidation("equity.csv", []string{"Date", "Credit"})
	want := "missing required columns in equity.csv: Date, Credit"
	if err.Message != want {
		t.Fatalf("Message = %q, want %q", err.Message, want)
	}
}

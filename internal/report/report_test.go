package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"reconciliation-engine/internal/domain"
)

func sampleRow(side domain.GatewaySide, txType domain.TransactionType, status domain.ReconciliationStatus, manual bool) domain.Transaction {
	d := decimal.NewFromInt(100)
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	key := "REF1|100|equity"
	return domain.Transaction{
		Gateway:              "equity_" + string(side),
		GatewayType:          side,
		TransactionType:      txType,
		ReconciliationStatus: status,
		IsManuallyReconciled: manual,
		Date:                 &date,
		TransactionID:        "REF1",
		Narrative:            "test narrative",
		Debit:                &d,
		ReconciliationKey:    &key,
		RunID:                "RUN-1",
	}
}

func TestWriteCSVPrefersManualReconNote(t *testing.T) {
	row := sampleRow(domain.SideExternal, domain.TypeDebit, domain.StatusReconciled, false)
	manualNote := "manually confirmed"
	row.ManualReconNote = &manualNote
	systemNote := "System Reconciled"
	row.ReconciliationNote = &systemNote

	var buf bytes.Buffer
	if err := writeCSV([]domain.Transaction{row}, &buf); err != nil {
		t.Fatalf("writeCSV() error = %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("parsing csv output: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 (header + row)", len(records))
	}
	if records[1][6] != manualNote {
		t.Errorf("reconciliation note column = %q, want %q", records[1][6], manualNote)
	}
}

func TestSheetForAssignsByTypeThenManualThenSideAndStatus(t *testing.T) {
	cases := []struct {
		name string
		row  domain.Transaction
		want string
	}{
		{"charge", sampleRow(domain.SideExternal, domain.TypeCharge, domain.StatusReconciled, false), "Charges"},
		{"deposit", sampleRow(domain.SideExternal, domain.TypeDeposit, domain.StatusReconciled, false), "Deposits"},
		{"manual external", sampleRow(domain.SideExternal, domain.TypeDebit, domain.StatusUnreconciled, true), "Manual External"},
		{"manual internal", sampleRow(domain.SideInternal, domain.TypePayout, domain.StatusUnreconciled, true), "Manual Internal"},
		{"reconciled external", sampleRow(domain.SideExternal, domain.TypeDebit, domain.StatusReconciled, false), "Reconciled External"},
		{"unreconciled internal", sampleRow(domain.SideInternal, domain.TypePayout, domain.StatusUnreconciled, false), "Unreconciled Internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sheetFor(tc.row); got != tc.want {
				t.Errorf("sheetFor() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestWriteXLSXAlwaysProducesEightSheetsInOrder(t *testing.T) {
	rows := []domain.Transaction{
		sampleRow(domain.SideExternal, domain.TypeCharge, domain.StatusReconciled, false),
	}
	var buf bytes.Buffer
	if err := writeXLSX(rows, &buf); err != nil {
		t.Fatalf("writeXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopening xlsx output: %v", err)
	}
	defer f.Close()

	got := f.GetSheetList()
	if len(got) != len(sheetNames) {
		t.Fatalf("got %d sheets, want %d", len(got), len(sheetNames))
	}
	for i, name := range sheetNames {
		if got[i] != name {
			t.Errorf("sheet[%d] = %q, want %q", i, got[i], name)
		}
	}
}

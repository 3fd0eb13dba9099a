package cmd

import (
	"testing"
	"time"

	"reconciliation-engine/internal/report"
)

func TestReportFilenameIncludesOptionalSegmentsInOrder(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter report.Filter
		format report.Format
		want   string
	}{
		{
			name:   "gateway only",
			filter: report.Filter{GatewayBase: "equity"},
			format: report.FormatCSV,
			want:   "reconciliation_equity.csv",
		},
		{
			name:   "with date range",
			filter: report.Filter{GatewayBase: "equity", DateFrom: &from, DateTo: &to},
			format: report.FormatXLSX,
			want:   "reconciliation_equity_from_2026-01-01_to_2026-01-31.xlsx",
		},
		{
			name:   "with run id",
			filter: report.Filter{GatewayBase: "kcb", RunID: "RUN-20260130-101500-abcd1234"},
			format: report.FormatCSV,
			want:   "reconciliation_kcb_RUN-20260130-101500-abcd1234.csv",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := reportFilename(tc.filter, tc.format); got != tc.want {
				t.Errorf("reportFilename() = %q, want %q", got, tc.want)
			}
		})
	}
}

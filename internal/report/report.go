// Package report implements SPEC_FULL.md §4.7: querying Transactions for
// one gateway and emitting either a flat CSV or an eight-sheet XLSX
// workbook. It is grounded on the teacher's internal/reporter dispatch
// shape (OutputFormat, ReportGenerator) and on original_source's
// app/reports/download_report.py, which assembles one dataframe per
// partition and writes each to its own sheet.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"reconciliation-engine/internal/domain"
	"reconciliation-engine/pkg/logger"
	"reconciliation-engine/pkg/rerrors"
)

// Format is the supported report output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// sheetNames lists the eight XLSX sheets in the fixed order §4.7 requires,
// always present even when the underlying partition is empty.
var sheetNames = []string{
	"Unreconciled External",
	"Unreconciled Internal",
	"Reconciled External",
	"Reconciled Internal",
	"Manual External",
	"Manual Internal",
	"Charges",
	"Deposits",
}

// Filter selects the rows a report covers: the base gateway plus optional
// date range and run_id narrowing.
type Filter struct {
	GatewayBase string
	DateFrom    *time.Time
	DateTo      *time.Time
	RunID       string
}

// Writer queries transactions and renders a report in the requested
// format.
type Writer struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewWriter constructs a Writer.
func NewWriter(pool *pgxpool.Pool, log logger.Logger) *Writer {
	return &Writer{pool: pool, logger: log.WithComponent("report")}
}

// Write queries rows matching filter and renders them to out in the
// requested format.
func (w *Writer) Write(ctx context.Context, filter Filter, format Format, out io.Writer) error {
	rows, err := w.query(ctx, filter)
	if err != nil {
		return err
	}
	switch format {
	case FormatCSV:
		return writeCSV(rows, out)
	case FormatXLSX:
		return writeXLSX(rows, out)
	default:
		return rerrors.New(rerrors.KindInvalidPath, fmt.Sprintf("unsupported report format: %s", format))
	}
}

// query selects every Transaction whose gateway matches filter.GatewayBase
// under any of its four forms (bare base, base_external, base_internal,
// *_base — the last covering workpay_equity-style internal gateway names
// that embed the base as a suffix) and applies the date/run narrowing.
func (w *Writer) query(ctx context.Context, filter Filter) ([]domain.Transaction, error) {
	sql := `
		SELECT id, gateway, gateway_type, transaction_type, reconciliation_category,
		       date, transaction_id, narrative, debit, credit,
		       reconciliation_status, reconciliation_note, reconciliation_key,
		       run_id, source_file, is_manually_reconciled,
		       manual_recon_note, manual_recon_by_id, manual_recon_at,
		       authorization_status, created_at
		FROM transactions
		WHERE (gateway = $1 OR gateway = $1 || '_external' OR gateway = $1 || '_internal' OR gateway LIKE '%_' || $1)
	`
	args := []interface{}{filter.GatewayBase}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		sql += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		sql += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	if filter.RunID != "" {
		args = append(args, filter.RunID)
		sql += fmt.Sprintf(" AND run_id = $%d", len(args))
	}
	sql += " ORDER BY date NULLS LAST, id"

	rows, err := w.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "querying report transactions")
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanReportRow(rows)
		if err != nil {
			return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "scanning report row")
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "reading report rows")
	}
	return out, nil
}

type pgxRows interface {
	Scan(dest ...interface{}) error
}

func scanReportRow(rows pgxRows) (domain.Transaction, error) {
	var (
		t                   domain.Transaction
		gatewayType, txType string
		category, status    string
	)
	err := rows.Scan(
		&t.ID, &t.Gateway, &gatewayType, &txType, &category,
		&t.Date, &t.TransactionID, &t.Narrative, &t.Debit, &t.Credit,
		&status, &t.ReconciliationNote, &t.ReconciliationKey,
		&t.RunID, &t.SourceFile, &t.IsManuallyReconciled,
		&t.ManualReconNote, &t.ManualReconByID, &t.ManualReconAt,
		&t.AuthorizationStatus, &t.CreatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	t.GatewayType = domain.GatewaySide(gatewayType)
	t.TransactionType = domain.TransactionType(txType)
	t.ReconciliationCategory = domain.ReconciliationCategory(category)
	t.ReconciliationStatus = domain.ReconciliationStatus(status)
	return t, nil
}

// writeCSV emits the flat file per §4.7: one row per transaction, the
// reconciliation note column preferring manual_recon_note over
// reconciliation_note when both are present.
func writeCSV(rows []domain.Transaction, out io.Writer) error {
	w := csv.NewWriter(out)
	header := []string{
		"Date", "Transaction Reference", "Details", "Debit", "Credit",
		"Reconciliation Status", "Reconciliation Note", "Reconciliation Key", "Run ID",
	}
	if err := w.Write(header); err != nil {
		return rerrors.Wrap(err, rerrors.KindReadError, "writing csv header")
	}
	for _, row := range rows {
		if err := w.Write(csvRecord(row)); err != nil {
			return rerrors.Wrap(err, rerrors.KindReadError, "writing csv row")
		}
	}
	w.Flush()
	return w.Error()
}

func csvRecord(row domain.Transaction) []string {
	return []string{
		formatDate(row.Date),
		row.TransactionID,
		row.Narrative,
		formatAmount(row.Debit),
		formatAmount(row.Credit),
		string(row.ReconciliationStatus),
		reconciliationNote(row),
		stringOrEmpty(row.ReconciliationKey),
		row.RunID,
	}
}

// reconciliationNote prefers manual_recon_note over reconciliation_note,
// per §4.7's CSV column rule.
func reconciliationNote(row domain.Transaction) string {
	if row.ManualReconNote != nil && *row.ManualReconNote != "" {
		return *row.ManualReconNote
	}
	return stringOrEmpty(row.ReconciliationNote)
}

// writeXLSX emits the eight-sheet workbook per §4.7's assignment rule,
// grounded on original_source's per-partition-dataframe pattern.
func writeXLSX(rows []domain.Transaction, out io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range sheetNames {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return rerrors.Wrap(err, rerrors.KindReadError, "renaming default sheet")
			}
			continue
		}
		if _, err := f.NewSheet(name); err != nil {
			return rerrors.Wrap(err, rerrors.KindReadError, "creating report sheet")
		}
	}

	buckets := make(map[string][]domain.Transaction, len(sheetNames))
	for _, row := range rows {
		buckets[sheetFor(row)] = append(buckets[sheetFor(row)], row)
	}

	header := []string{
		"Date", "Transaction Reference", "Details", "Debit", "Credit",
		"Reconciliation Status", "Reconciliation Note", "Reconciliation Key", "Run ID",
	}
	for _, name := range sheetNames {
		if err := writeSheet(f, name, header, buckets[name]); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(out); err != nil {
		return rerrors.Wrap(err, rerrors.KindReadError, "writing xlsx output")
	}
	return nil
}

// sheetFor implements §4.7's XLSX assignment rule, checked in priority
// order: charge/deposit type first, then manual overlay, then side and
// reconciliation status.
func sheetFor(row domain.Transaction) string {
	switch row.TransactionType {
	case domain.TypeCharge:
		return "Charges"
	case domain.TypeDeposit:
		return "Deposits"
	}
	if row.IsManuallyReconciled {
		if row.GatewayType == domain.SideExternal {
			return "Manual External"
		}
		return "Manual Internal"
	}
	switch row.GatewayType {
	case domain.SideExternal:
		if row.ReconciliationStatus == domain.StatusReconciled {
			return "Reconciled External"
		}
		return "Unreconciled External"
	default:
		if row.ReconciliationStatus == domain.StatusReconciled {
			return "Reconciled Internal"
		}
		return "Unreconciled Internal"
	}
}

func writeSheet(f *excelize.File, sheet string, header []string, rows []domain.Transaction) error {
	for col, title := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return rerrors.Wrap(err, rerrors.KindReadError, "writing sheet header").WithContext("sheet", sheet)
		}
	}
	for r, row := range rows {
		record := csvRecord(row)
		for col, value := range record {
			cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return rerrors.Wrap(err, rerrors.KindReadError, "writing sheet row").WithContext("sheet", sheet)
			}
		}
	}
	return nil
}

func formatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}

func formatAmount(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package gatewayfile

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"reconciliation-engine/internal/config"
	"reconciliation-engine/internal/domain"
	"reconciliation-engine/pkg/logger"
	"reconciliation-engine/pkg/rerrors"
)

var (
	numericStrip  = regexp.MustCompile(`[^0-9.\-]`)
	leadingMinus  = regexp.MustCompile(`^-+`)
	nullLikeCells = map[string]bool{"": true, "none": true, "null": true, "nan": true}
)

// candidateDateLayouts is tried in order whenever a configured date_format
// fails to parse a cell, the same "try several known formats" idiom the
// teacher's models.ParseTimeWithFormats uses for incoming transaction rows.
var candidateDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"01/02/2006",
	"01/02/2006 15:04:05",
	"2-Jan-2006",
}

const topupReferenceFill = "WALLET-TOPUP"

// Normalizer runs the column-cleanup pipeline a raw gateway table must pass
// through before classification: validate required columns, trim
// layout-specific leading columns and trailer rows, coerce date and
// numeric columns, normalize string columns, and backfill the reference
// column, in that order — the Go equivalent of GatewayFileClass's
// normalize_data method.
type Normalizer struct {
	logger logger.Logger
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{logger: log.WithComponent("gatewayfile")}
}

// Normalize mutates table in place, applying the full pipeline for one
// gateway file side (external or internal), named gatewayName for
// synthetic-reference generation.
func (n *Normalizer) Normalize(table *Table, layout config.ColumnLayout, gatewayName string) error {
	if err := n.validateColumns(table, layout.RequiredColumns); err != nil {
		return err
	}
	if layout.LeadingSpacerColumns > 0 {
		if err := table.SliceColumns(layout.LeadingSpacerColumns, 0); err != nil {
			return rerrors.Wrap(err, rerrors.KindColumnValidation, "slicing leading spacer columns")
		}
	}
	if layout.EndOfDataSignal != "" {
		n.dropTrailerRows(table, layout.EndOfDataSignal)
	}
	if layout.DateColumn != "" {
		if err := n.handleDateColumn(table, layout.DateColumn, layout.DateFormat); err != nil {
			return err
		}
	}
	if err := n.handleNumericColumns(table, layout.NumericColumns); err != nil {
		return err
	}
	if err := n.handleStringColumns(table, layout.StringColumns); err != nil {
		return err
	}
	if layout.ReferenceColumn != "" {
		n.assignReferenceColumn(table, layout.ReferenceColumn, layout.NarrativeColumn)
		if err := n.handleNullReferences(table, layout.ReferenceColumn, gatewayName); err != nil {
			return err
		}
		if layout.TopupMarker != "" && layout.NarrativeColumn != "" {
			n.markTopups(table, layout.ReferenceColumn, layout.NarrativeColumn, layout.TopupMarker)
		}
	}
	n.logger.WithField("gateway", gatewayName).WithField("rows", table.Rows()).Debug("normalized gateway file")
	return nil
}

// validateColumns mirrors GatewayFileClass.validate_columns: every required
// column must be present, or the file is rejected outright.
func (n *Normalizer) validateColumns(table *Table, required []string) error {
	var missing []string
	for _, col := range required {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return rerrors.ColumnValidation("gateway file", missing)
	}
	return nil
}

// dropTrailerRows mirrors drop_bottom_rows: once any cell in a row
// contains the end-of-data marker, that row and everything after it is
// discarded.
func (n *Normalizer) dropTrailerRows(table *Table, signal string) {
	for i := 0; i < table.Rows(); i++ {
		if table.RowContains(i, signal) {
			table.Truncate(i)
			return
		}
	}
}

// handleDateColumn mirrors handle_date_columns: every cell is reparsed to
// a canonical RFC3339 date string, falling back through
// candidateDateLayouts when the configured format doesn't match. Cells
// that fail every layout become "" (pandas' pd.to_datetime(errors="coerce")
// equivalent) rather than aborting the whole file.
func (n *Normalizer) handleDateColumn(table *Table, column, format string) error {
	if !table.HasColumn(column) {
		return rerrors.ColumnValidation("gateway file", []string{column})
	}
	layouts := candidateDateLayouts
	if format != "" {
		layouts = append([]string{format}, candidateDateLayouts...)
	}
	col := table.Col(column)
	out := make([]string, len(col))
	for i, cell := range col {
		cell = strings.TrimSpace(cell)
		var parsed time.Time
		var ok bool
		for _, layout := range layouts {
			if t, err := time.Parse(layout, cell); err == nil {
				parsed, ok = t, true
				break
			}
		}
		if ok {
			out[i] = parsed.Format(time.RFC3339)
		} else {
			out[i] = ""
		}
	}
	table.SetColumn(column, out)
	return nil
}

// handleNumericColumns mirrors handle_numerics: strip everything but
// digits, '.', and '-', drop a leading run of minus signs, parse as a
// decimal, take the absolute value, default to zero on failure.
func (n *Normalizer) handleNumericColumns(table *Table, columns []string) error {
	for _, column := range columns {
		if !table.HasColumn(column) {
			return rerrors.ColumnValidation("gateway file", []string{column})
		}
		col := table.Col(column)
		out := make([]string, len(col))
		for i, cell := range col {
			cell = strings.TrimSpace(cell)
			cell = numericStrip.ReplaceAllString(cell, "")
			cell = leadingMinus.ReplaceAllString(cell, "")
			if cell == "" {
				out[i] = "0"
				continue
			}
			d, err := decimal.NewFromString(cell)
			if err != nil {
				out[i] = "0"
				continue
			}
			out[i] = d.Abs().String()
		}
		table.SetColumn(column, out)
	}
	return nil
}

// handleStringColumns mirrors handle_string_columns: trim whitespace, map
// null-like sentinels ("", "none", "null", "nan") to the literal "NA".
func (n *Normalizer) handleStringColumns(table *Table, columns []string) error {
	for _, column := range columns {
		if !table.HasColumn(column) {
			return rerrors.ColumnValidation("gateway file", []string{column})
		}
		col := table.Col(column)
		out := make([]string, len(col))
		for i, cell := range col {
			cell = strings.TrimSpace(cell)
			if nullLikeCells[strings.ToLower(cell)] {
				out[i] = "NA"
			} else {
				out[i] = cell
			}
		}
		table.SetColumn(column, out)
	}
	return nil
}

// assignReferenceColumn mirrors assign_ref_column.assign_reference_column:
// when a file has no dedicated reference column, the narrative column
// stands in for it.
func (n *Normalizer) assignReferenceColumn(table *Table, refColumn, fillColumn string) {
	if table.HasColumn(refColumn) || fillColumn == "" || !table.HasColumn(fillColumn) {
		return
	}
	table.SetColumn(refColumn, append([]string{}, table.Col(fillColumn)...))
}

// handleNullReferences mirrors handle_null_refs.handle_null_references_column:
// any still-missing reference is replaced with a synthetic, uniquely
// identifiable reference rather than left blank, so every row remains
// addressable by the reconciliation key.
func (n *Normalizer) handleNullReferences(table *Table, refColumn, gatewayName string) error {
	if !table.HasColumn(refColumn) {
		return rerrors.ColumnValidation("gateway file", []string{refColumn})
	}
	col := table.Col(refColumn)
	out := make([]string, len(col))
	for i, cell := range col {
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" || trimmed == "NA" || nullLikeCells[strings.ToLower(trimmed)] {
			out[i] = domain.SyntheticReference(gatewayName)
		} else {
			out[i] = cell
		}
	}
	table.SetColumn(refColumn, out)
	return nil
}

// markTopups mirrors handle_workpay_topups.handle_workpay_wallet_top_ups:
// rows whose narrative is an exact match for the configured marker get a
// fixed reference so repeat top-ups don't collide on a shared synthetic
// reference.
func (n *Normalizer) markTopups(table *Table, refColumn, narrativeColumn, marker string) {
	refs := table.Col(refColumn)
	narratives := table.Col(narrativeColumn)
	out := append([]string{}, refs...)
	for i, narrative := range narratives {
		if i < len(out) && strings.EqualFold(strings.TrimSpace(narrative), marker) {
			out[i] = fmt.Sprintf("%s-%d", topupReferenceFill, i)
		}
	}
	table.SetColumn(refColumn, out)
}

// Package fileio dispatches a raw gateway file (as read from a
// blobstore.Store) to the reader matching its extension and returns its
// first sheet as a plain string grid, per SPEC_FULL.md §4.2. Callers are
// responsible for everything downstream of the grid: header detection,
// column validation, and normalization live in internal/gatewayfile.
package fileio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"reconciliation-engine/pkg/logger"
	"reconciliation-engine/pkg/rerrors"
)

// Reader turns raw file bytes into a row-major grid of string cells, taken
// from the first sheet for spreadsheet formats.
type Reader struct {
	logger logger.Logger
}

// NewReader constructs a Reader.
func NewReader(log logger.Logger) *Reader {
	return &Reader{logger: log.WithComponent("fileio")}
}

// headerRowConfigKey maps a file extension to the key a gateway's
// HeaderRowConfig uses for it, mirroring the original system's separate
// BANK_EXCEL_SKIP_ROWS/BANK_CSV_SKIP_ROWS counters.
func headerRowConfigKey(ext string) string {
	switch ext {
	case ".xlsx", ".xls":
		return "xlsx"
	default:
		return "csv"
	}
}

// Read dispatches on filename's extension: ".csv" is parsed with the
// standard library CSV reader; ".xlsx" and ".xls" are parsed with
// excelize, reading only the first sheet (workbooks with additional
// sheets are out of scope per SPEC_FULL.md's Non-goals). headerRowConfig
// supplies, per extension, the number of leading banner rows a gateway's
// export carries before the real header row; those rows are dropped
// before the grid is returned so internal/gatewayfile.NewTable never
// mistakes a banner row for the header.
func (r *Reader) Read(filename string, data []byte, headerRowConfig map[string]int) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	skip := headerRowConfig[headerRowConfigKey(ext)]

	var rows [][]string
	var err error
	switch ext {
	case ".csv":
		rows, err = r.readCSV(filename, data)
	case ".xlsx", ".xls":
		rows, err = r.readSpreadsheet(filename, data)
	default:
		return nil, rerrors.New(rerrors.KindInvalidPath, fmt.Sprintf("unsupported file extension %q for %s", ext, filename)).
			WithSuggestion("only .csv, .xlsx, and .xls files are accepted")
	}
	if err != nil {
		return nil, err
	}
	if skip > 0 {
		if skip >= len(rows) {
			return nil, rerrors.New(rerrors.KindReadError, fmt.Sprintf("header_row_config skip of %d rows leaves no data in %s", skip, filename)).
				WithContext("filename", filename)
		}
		rows = rows[skip:]
	}
	return rows, nil
}

func (r *Reader) readCSV(filename string, data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // gateway exports frequently have ragged trailer/header rows
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerrors.Wrap(err, rerrors.KindReadError, "parsing CSV").WithContext("filename", filename)
		}
		rows = append(rows, record)
	}
	r.logger.WithField("filename", filename).WithField("rows", len(rows)).Debug("read CSV file")
	return rows, nil
}

// readSpreadsheet reads the first sheet of an XLSX workbook. excelize does
// not parse legacy binary XLS; files with that extension are expected to
// actually be XLSX content saved under an .xls name, which is the common
// case for the gateway exports this package handles. If the file is
// genuinely legacy binary XLS, OpenReader returns an error and the caller
// sees a ReadError rather than a silent misparse.
func (r *Reader) readSpreadsheet(filename string, data []byte) ([][]string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.KindReadError, "parsing spreadsheet").WithContext("filename", filename)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, rerrors.New(rerrors.KindReadError, "spreadsheet contains no sheets").WithContext("filename", filename)
	}
	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.KindReadError, "reading spreadsheet rows").WithContext("filename", filename)
	}
	r.logger.WithField("filename", filename).WithField("sheet", sheets[0]).WithField("rows", len(rows)).Debug("read spreadsheet file")
	return rows, nil
}

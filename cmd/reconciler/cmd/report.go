package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"reconciliation-engine/internal/persistence"
	"reconciliation-engine/internal/report"
)

var (
	reportGateway string
	reportFormat  string
	reportFrom    string
	reportTo      string
	reportRunID   string
	reportOutput  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Emit a CSV or XLSX report for one gateway",
	Long: `report queries persisted transactions for one base gateway and
writes either a flat CSV or an eight-sheet XLSX workbook, per the
filename pattern reconciliation_{gateway}[_from_{d}][_to_{d}][_{run_id}].{ext}.

Examples:
  reconciler report --gateway equity --format csv
  reconciler report --gateway equity --format xlsx --from 2026-01-01 --to 2026-01-31
  reconciler report --gateway equity --format xlsx --run-id RUN-20260130-101500-abcd1234`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportGateway, "gateway", "g", "", "base gateway name (required)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "csv", "report format: csv or xlsx")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "filter start date (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "filter end date (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportRunID, "run-id", "", "filter to a single run")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "output file path (default: derived from the filename pattern)")
	reportCmd.MarkFlagRequired("gateway")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	format := report.Format(reportFormat)
	if format != report.FormatCSV && format != report.FormatXLSX {
		return fmt.Errorf("invalid format %q: must be csv or xlsx", reportFormat)
	}

	filter := report.Filter{GatewayBase: reportGateway, RunID: reportRunID}
	if reportFrom != "" {
		t, err := time.Parse("2006-01-02", reportFrom)
		if err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
		filter.DateFrom = &t
	}
	if reportTo != "" {
		t, err := time.Parse("2006-01-02", reportTo)
		if err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
		filter.DateTo = &t
	}

	pool, err := persistence.NewPool(ctx, appConfig.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	path := reportOutput
	if path == "" {
		path = reportFilename(filter, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	writer := report.NewWriter(pool, log)
	if err := writer.Write(ctx, filter, format, f); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

// reportFilename derives reconciliation_{gateway}[_from_{d}][_to_{d}][_{run_id}].{ext}
// per SPEC_FULL.md §6.2.
func reportFilename(filter report.Filter, format report.Format) string {
	name := "reconciliation_" + filter.GatewayBase
	if filter.DateFrom != nil {
		name += "_from_" + filter.DateFrom.Format("2006-01-02")
	}
	if filter.DateTo != nil {
		name += "_to_" + filter.DateTo.Format("2006-01-02")
	}
	if filter.RunID != "" {
		name += "_" + filter.RunID
	}
	return name + "." + string(format)
}

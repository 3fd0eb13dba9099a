package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"reconciliation-engine/internal/blobstore"
	"reconciliation-engine/internal/classifier"
	"reconciliation-engine/internal/domain"
	"reconciliation-engine/internal/fileio"
	"reconciliation-engine/internal/gatewayfile"
	"reconciliation-engine/internal/persistence"
	"reconciliation-engine/internal/reconciler"
)

var (
	reconcileGateway string
	reconcilePreview bool
	reconcileUserID  string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile one gateway's external and internal files",
	Long: `reconcile loads a gateway's paired external statement and internal
ledger from the blob store, matches them against the carry-forward pool
and each other, and persists the result as one run.

Examples:
  reconciler reconcile --gateway equity
  reconciler reconcile --gateway equity --preview
  reconciler reconcile --gateway equity --user-id ops-42`,
	RunE: runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().StringVarP(&reconcileGateway, "gateway", "g", "", "base gateway name, e.g. equity (required)")
	reconcileCmd.Flags().BoolVar(&reconcilePreview, "preview", false, "compute the run without persisting it")
	reconcileCmd.Flags().StringVar(&reconcileUserID, "user-id", "", "identifier of the operator triggering this run")
	reconcileCmd.MarkFlagRequired("gateway")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	pair, err := appConfig.GatewayPair(reconcileGateway)
	if err != nil {
		return fmt.Errorf("resolving gateway configuration: %w", err)
	}

	blob, err := blobstore.NewFilesystemStore(appConfig.BlobRoot, log)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	pool, err := persistence.NewPool(ctx, appConfig.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	persister := persistence.NewPersister(pool, log)
	loader := reconciler.NewLoader(blob, fileio.NewReader(log), gatewayfile.NewNormalizer(log), classifier.NewClassifier(log), log)
	core := reconciler.New(log)
	service := reconciler.NewService(loader, persister, core, log)

	runID := domain.NewRunID(time.Now())
	result, err := service.Run(ctx, reconcileGateway, pair, runID)
	if err != nil {
		return err
	}

	output := reconcileOutput{RunID: result.RunID, Gateway: result.Gateway, Summary: result.Summary}

	if reconcilePreview {
		output.Status = "preview"
		return printReconcileOutput(output)
	}

	var createdBy *string
	if reconcileUserID != "" {
		createdBy = &reconcileUserID
	}
	stats, err := persister.Persist(ctx, result, createdBy)
	if err != nil {
		return err
	}
	output.Status = "completed"
	output.Saved = &stats
	return printReconcileOutput(output)
}

// reconcileOutput mirrors the run result shape SPEC_FULL.md §6.2 defines.
type reconcileOutput struct {
	RunID   string                  `json:"run_id"`
	Gateway string                  `json:"gateway"`
	Status  string                  `json:"status"`
	Summary reconciler.Summary      `json:"summary"`
	Saved   *persistence.SavedStats `json:"saved,omitempty"`
}

func printReconcileOutput(out reconcileOutput) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

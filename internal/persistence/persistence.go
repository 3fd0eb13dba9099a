package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reconciliation-engine/internal/domain"
	"reconciliation-engine/internal/reconciler"
	"reconciliation-engine/pkg/logger"
	"reconciliation-engine/pkg/rerrors"
)

// SavedStats is §6.2's "saved" block: how many rows actually landed per
// partition, and how many were skipped as exact-key duplicates.
type SavedStats struct {
	ExternalRecords     int `json:"external_records"`
	InternalRecords     int `json:"internal_records"`
	Deposits             int `json:"deposits"`
	Debits               int `json:"debits"`
	Charges              int `json:"charges"`
	Payouts              int `json:"payouts"`
	Total                int `json:"total"`
	DuplicatesSkipped    int `json:"duplicates_skipped"`
	CarryForwardUpdated  int `json:"carry_forward_updated"`
}

// Persister runs §4.6: one DB transaction per run — advisory lock on the
// gateway, run record insert, per-row-savepointed partition inserts, a
// batched carry-forward status update, and commit.
type Persister struct {
	pool   *pgxpool.Pool
	logger logger.Logger
}

// NewPersister constructs a Persister.
func NewPersister(pool *pgxpool.Pool, log logger.Logger) *Persister {
	return &Persister{pool: pool, logger: log.WithComponent("persistence")}
}

// LoadCarryForwardPool implements reconciler.CarryForwardLoader: it reads
// every row eligible to carry forward into a new run for either side of
// one gateway, per §4.5.2 step 2's filter.
func (p *Persister) LoadCarryForwardPool(ctx context.Context, baseExternal, baseInternal string) ([]domain.Transaction, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, gateway, gateway_type, transaction_type, reconciliation_category,
		       date, transaction_id, narrative, debit, credit,
		       reconciliation_status, reconciliation_note, reconciliation_key,
		       run_id, source_file, is_manually_reconciled,
		       manual_recon_note, manual_recon_by_id, manual_recon_at,
		       authorization_status, created_at
		FROM transactions
		WHERE gateway IN ($1, $2)
		  AND reconciliation_key IS NOT NULL
		  AND reconciliation_status = 'unreconciled'
		  AND (authorization_status IS NULL OR authorization_status <> 'pending')
		  AND is_manually_reconciled = false
	`, baseExternal, baseInternal)
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "loading carry-forward pool")
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "scanning carry-forward row")
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, rerrors.Wrap(err, rerrors.KindDbOperationError, "reading carry-forward pool")
	}
	return out, nil
}

// Persist implements §4.6's transactional write: advisory lock, run
// record, six savepointed partition inserts (deposits, debits, charges,
// payouts, refunds, topups), carry-forward update, commit. On any non-duplicate error the whole transaction rolls back and
// no partial state is visible.
func (p *Persister) Persist(ctx context.Context, result *reconciler.Result, createdByID *string) (SavedStats, error) {
	var stats SavedStats

	err := WithTransaction(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, result.Gateway); err != nil {
			return rerrors.Wrap(err, rerrors.KindDbOperationError, "acquiring gateway advisory lock")
		}

		if err := insertRun(ctx, tx, result, createdByID); err != nil {
			return err
		}

		var nonReconcilableInternal int
		partitions := []struct {
			rows  []domain.Transaction
			count *int
		}{
			{result.Set.Deposits, &stats.Deposits},
			{result.Set.Debits, &stats.Debits},
			{result.Set.Charges, &stats.Charges},
			{result.Set.Payouts, &stats.Payouts},
			{result.Set.Refunds, &nonReconcilableInternal},
			{result.Set.Topups, &nonReconcilableInternal},
		}
		for _, partition := range partitions {
			inserted, skipped, err := insertPartition(ctx, tx, partition.rows)
			if err != nil {
				return err
			}
			*partition.count += inserted
			stats.Total += inserted
			stats.DuplicatesSkipped += skipped
		}
		stats.ExternalRecords = stats.Deposits + stats.Charges + stats.Debits
		stats.InternalRecords = stats.Payouts + nonReconcilableInternal

		if err := applyCarryForwardReclassification(ctx, tx, result.CarryForwardReclassified); err != nil {
			return err
		}

		updated, err := applyCarryForwardUpdates(ctx, tx, result)
		if err != nil {
			return err
		}
		stats.CarryForwardUpdated = updated
		return nil
	})
	if err != nil {
		return SavedStats{}, err
	}

	p.logger.WithField("gateway", result.Gateway).WithField("run_id", result.RunID).
		WithField("total", stats.Total).WithField("duplicates_skipped", stats.DuplicatesSkipped).
		Info("persisted reconciliation run")
	return stats, nil
}

func insertRun(ctx context.Context, tx pgx.Tx, result *reconciler.Result, createdByID *string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO reconciliation_runs
			(run_id, gateway, status, total_external, total_internal, matched,
			 unmatched_external, unmatched_internal, carry_forward_matched, created_by_id)
		VALUES ($1, $2, 'completed', $3, $4, $5, $6, $7, $8, $9)
	`,
		result.RunID, result.Gateway,
		result.Summary.TotalExternal, result.Summary.TotalInternal, result.Summary.Matched,
		result.Summary.UnmatchedExternal, result.Summary.UnmatchedInternal, result.Summary.CarryForwardMatched,
		createdByID,
	)
	if err != nil {
		return rerrors.Wrap(err, rerrors.KindDbOperationError, "inserting reconciliation run").WithContext("run_id", result.RunID)
	}
	return nil
}

func insertPartition(ctx context.Context, tx pgx.Tx, rows []domain.Transaction) (inserted, skipped int, err error) {
	for _, row := range rows {
		duplicate, err := WithSavepoint(ctx, tx, func(savepoint pgx.Tx) error {
			return insertTransaction(ctx, savepoint, row)
		})
		if err != nil {
			return inserted, skipped, rerrors.Wrap(err, rerrors.KindDbOperationError, "inserting transaction").
				WithContext("transaction_id", row.TransactionID).WithContext("gateway", row.Gateway)
		}
		if duplicate {
			skipped++
			continue
		}
		inserted++
	}
	return inserted, skipped, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, row domain.Transaction) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO transactions
			(gateway, gateway_type, transaction_type, reconciliation_category,
			 date, transaction_id, narrative, debit, credit,
			 reconciliation_status, reconciliation_note, reconciliation_key,
			 run_id, source_file, is_manually_reconciled,
			 manual_recon_note, manual_recon_by_id, manual_recon_at, authorization_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		row.Gateway, string(row.GatewayType), string(row.TransactionType), string(row.ReconciliationCategory),
		row.Date, row.TransactionID, row.Narrative, row.Debit, row.Credit,
		string(row.ReconciliationStatus), row.ReconciliationNote, row.ReconciliationKey,
		row.RunID, row.SourceFile, row.IsManuallyReconciled,
		row.ManualReconNote, row.ManualReconByID, row.ManualReconAt, row.AuthorizationStatus,
	)
	return err
}

// applyCarryForwardReclassification writes §4.5.2's charge-reclassification
// side effect for carry-forward rows whose narrative now matches a charge
// keyword: transaction_type, reconciliation_category, status, and note
// change, but run_id deliberately does not (P5: it stays the run that
// first inserted the row).
func applyCarryForwardReclassification(ctx context.Context, tx pgx.Tx, rows []domain.Transaction) error {
	for _, row := range rows {
		_, err := tx.Exec(ctx, `
			UPDATE transactions
			SET transaction_type = $1, reconciliation_category = $2,
			    reconciliation_status = $3, reconciliation_note = $4
			WHERE id = $5
		`, string(row.TransactionType), string(row.ReconciliationCategory),
			string(row.ReconciliationStatus), row.ReconciliationNote, row.ID)
		if err != nil {
			return rerrors.Wrap(err, rerrors.KindDbOperationError, "applying carry-forward charge reclassification").
				WithContext("transaction_id", row.ID)
		}
	}
	return nil
}

func applyCarryForwardUpdates(ctx context.Context, tx pgx.Tx, result *reconciler.Result) (int, error) {
	if len(result.CarryForwardMatchedRows) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(result.CarryForwardMatchedRows))
	seen := make(map[string]bool)
	for _, row := range result.CarryForwardMatchedRows {
		if row.ReconciliationKey == nil || seen[*row.ReconciliationKey] {
			continue
		}
		seen[*row.ReconciliationKey] = true
		keys = append(keys, *row.ReconciliationKey)
	}
	note := fmt.Sprintf(domain.NoteCarryForwardReconciledFmt, result.RunID)
	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET reconciliation_status = 'reconciled', reconciliation_note = $1, run_id = $2
		WHERE reconciliation_key = ANY($3)
		  AND gateway IN ($4, $5)
		  AND reconciliation_status = 'unreconciled'
	`, note, result.RunID, keys,
		domain.GatewayName(result.Gateway, domain.SideExternal),
		domain.GatewayName(result.Gateway, domain.SideInternal))
	if err != nil {
		return 0, rerrors.Wrap(err, rerrors.KindDbOperationError, "applying carry-forward status updates")
	}
	return int(tag.RowsAffected()), nil
}

func scanTransaction(rows pgx.Rows) (domain.Transaction, error) {
	var (
		t                      domain.Transaction
		gatewayType, txType    string
		category, status       string
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

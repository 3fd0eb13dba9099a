// Package domain defines the core entities of the reconciliation engine:
// Transaction, ReconciliationRun, and the enumerations that classify them.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GatewaySide distinguishes the external (bank/mobile-money) record from
// the internal (payout ledger) record of the same gateway.
type GatewaySide string

const (
	SideExternal GatewaySide = "external"
	SideInternal GatewaySide = "internal"
)

// TransactionType is the kind of row a Transaction represents.
type TransactionType string

const (
	TypeDeposit TransactionType = "deposit"
	TypeDebit   TransactionType = "debit"
	TypeCharge  TransactionType = "charge"
	TypePayout  TransactionType = "payout"
	TypeRefund  TransactionType = "refund"
)

// ReconciliationCategory groups transaction types by how they participate
// in matching.
type ReconciliationCategory string

const (
	// CategoryReconcilable rows (debit, payout) must find a counterpart to
	// move from unreconciled to reconciled.
	CategoryReconcilable ReconciliationCategory = "reconcilable"
	// CategoryAutoReconciled rows (deposit, charge) are real but have no
	// counterpart and are considered reconciled at insert time.
	CategoryAutoReconciled ReconciliationCategory = "auto_reconciled"
	// CategoryNonReconcilable rows (refund) never participate in matching.
	CategoryNonReconcilable ReconciliationCategory = "non_reconcilable"
)

// CategoryForType derives the reconciliation category implied by a
// transaction type, per the Transaction.reconciliation_category rule.
func CategoryForType(t TransactionType) ReconciliationCategory {
	switch t {
	case TypeDebit, TypePayout:
		return CategoryReconcilable
	case TypeDeposit, TypeCharge:
		return CategoryAutoReconciled
	case TypeRefund:
		return CategoryNonReconcilable
	default:
		return CategoryNonReconcilable
	}
}

// ReconciliationStatus is whether a row has found its counterpart.
type ReconciliationStatus string

const (
	StatusReconciled   ReconciliationStatus = "reconciled"
	StatusUnreconciled ReconciliationStatus = "unreconciled"
)

// Provenance notes recorded on Transaction.reconciliation_note. These are
// conventions, not an exhaustive enum — the column is free text.
const (
	NoteSystemReconciled           = "System Reconciled"
	NoteCarryForwardReconciledFmt  = "System Reconciled (carry-forward, run: %s)"
	NoteCarryForwardChargeNoteFmt  = "System Reconciled - Charge (carry-forward reclassified, run: %s)"
)

// Transaction is the single unified row: every ingested or matched line
// becomes one Transaction. See SPEC_FULL.md §3.1 for the full invariant
// set (I1-I5).
type Transaction struct {
	ID                     int64
	Gateway                string
	GatewayType            GatewaySide
	TransactionType        TransactionType
	ReconciliationCategory ReconciliationCategory
	Date                   *time.Time
	TransactionID          string
	Narrative              string
	Debit                  *decimal.Decimal
	Credit                 *decimal.Decimal
	ReconciliationStatus   ReconciliationStatus
	ReconciliationNote     *string
	ReconciliationKey      *string
	RunID                  string
	SourceFile             string
	IsManuallyReconciled   bool
	ManualReconNote        *string
	ManualReconByID        *string
	ManualReconAt          *time.Time
	AuthorizationStatus    *string
	CreatedAt              time.Time
}

// BaseGateway strips the _external/_internal suffix, returning the family
// name (e.g. "equity_external" -> "equity").
func BaseGateway(gateway string) string {
	switch {
	case len(gateway) > len("_external") && gateway[len(gateway)-len("_external"):] == "_external":
		return gateway[:len(gateway)-len("_external")]
	case len(gateway) > len("_internal") && gateway[len(gateway)-len("_internal"):] == "_internal":
		return gateway[:len(gateway)-len("_internal")]
	default:
		return gateway
	}
}

// GatewayName composes the composite gateway string from a base name and a
// side, e.g. GatewayName("equity", SideExternal) -> "equity_external".
func GatewayName(base string, side GatewaySide) string {
	return base + "_" + string(side)
}

// SideOf derives gateway_type from a composite gateway string, enforcing
// invariant I4: gateway_type = external iff gateway ends in "_external".
func SideOf(gateway string) GatewaySide {
	if len(gateway) >= len("_external") && gateway[len(gateway)-len("_external"):] == "_external" {
		return SideExternal
	}
	return SideInternal
}

// ReconciliationRun is a lightweight record created after a successful
// save — one execution of the pipeline for one base gateway.
type ReconciliationRun struct {
	RunID                string
	Gateway              string
	Status               RunStatus
	TotalExternal        int
	TotalInternal        int
	Matched              int
	UnmatchedExternal    int
	UnmatchedInternal    int
	CarryForwardMatched  int
	CreatedByID          *string
	CreatedAt            time.Time
}

// RunStatus is the terminal state of a ReconciliationRun. Only completed
// runs are persisted by the core.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

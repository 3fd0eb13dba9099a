package reconciler

import (
	"context"

	"reconciliation-engine/internal/config"
	"reconciliation-engine/internal/domain"
	"reconciliation-engine/pkg/logger"
)

// CarryForwardLoader loads the carry-forward pool for a gateway pair, per
// §4.5.2 step 2's query. internal/persistence implements this against
// Postgres as a read-only query; loading the pool writes nothing, so
// preview (§4.5.3) needs no rollback here.
type CarryForwardLoader interface {
	LoadCarryForwardPool(ctx context.Context, baseExternal, baseInternal string) ([]domain.Transaction, error)
}

// Service ties the I/O shell (Loader, CarryForwardLoader) to the pure
// Reconciler core, producing one Result per (gateway, run_id).
type Service struct {
	loader       *Loader
	carryForward CarryForwardLoader
	core         *Reconciler
	logger       logger.Logger
}

// NewService constructs a Service.
func NewService(loader *Loader, carryForward CarryForwardLoader, core *Reconciler, log logger.Logger) *Service {
	return &Service{loader: loader, carryForward: carryForward, core: core, logger: log.WithComponent("reconciler.service")}
}

// Run executes §4.5.2 steps 1-6 for one gateway and run_id: load the
// carry-forward pool, read/normalize/classify the new files, assign keys,
// validate, match, and summarize. Nothing is written to the database here:
// step 7 is a separate call to persistence.Persister.Persist, which the
// caller (cmd/reconciler) skips in preview mode.
func (s *Service) Run(ctx context.Context, base string, pair config.GatewayPair, runID string) (*Result, error) {
	carryForwardRows, err := s.carryForward.LoadCarryForwardPool(ctx,
		domain.GatewayName(base, domain.SideExternal), domain.GatewayName(base, domain.SideInternal))
	if err != nil {
		return nil, err
	}
	pool := SplitCarryForward(carryForwardRows, pair.ChargeKeywords(), runID)

	set, err := s.loader.LoadGatewayTables(ctx, base, pair, runID)
	if err != nil {
		return nil, err
	}

	return s.core.Reconcile(set, pool, pair, base, runID)
}

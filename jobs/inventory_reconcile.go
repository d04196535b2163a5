package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/ledger/internal/inventory"
	jobmetrics "github.com/odyssey-erp/ledger/internal/jobs"
)

const checkInventoryDrift = "inventory_drift"

// Rebuilder recomputes stored inventory balances from the transaction log.
type Rebuilder interface {
	RebuildBalances(ctx context.Context, orgID int64) (inventory.RebuildReport, error)
}

// InventoryReconcileJob rebuilds balances org by org. Rebuilds take an
// exclusive per-org lock, so organisations are processed sequentially.
type InventoryReconcileJob struct {
	orgs    OrgSource
	rebuild Rebuilder
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

func NewInventoryReconcileJob(orgs OrgSource, rebuild Rebuilder, logger *slog.Logger, metrics *jobmetrics.Metrics) *InventoryReconcileJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &InventoryReconcileJob{orgs: orgs, rebuild: rebuild, logger: logger, metrics: metrics}
}

// Handle implements the asynq handler for TaskInventoryReconcile.
func (j *InventoryReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeOrgPayload(t)
	if err != nil {
		return err
	}
	tracker := j.metrics.Track("inventory_reconcile")
	_, err = j.Run(ctx, payload)
	return tracker.End(err)
}

// Run returns the number of drifted rows repaired per organisation.
func (j *InventoryReconcileJob) Run(ctx context.Context, payload OrgPayload) (map[int64]int, error) {
	orgIDs, err := resolveOrgs(ctx, j.orgs, payload)
	if err != nil {
		return nil, err
	}
	drifted := make(map[int64]int, len(orgIDs))
	for _, orgID := range orgIDs {
		if err := ctx.Err(); err != nil {
			return drifted, err
		}
		report, err := j.rebuild.RebuildBalances(ctx, orgID)
		if err != nil {
			j.logger.Error("inventory reconcile failed", slog.Int64("org_id", orgID), slog.Any("error", err))
			return drifted, fmt.Errorf("inventory reconcile org %d: %w", orgID, err)
		}
		drifted[orgID] = len(report.Drifted)
		if len(report.Drifted) == 0 {
			continue
		}
		j.metrics.AddAnomalies(checkInventoryDrift, orgID, len(report.Drifted))
		j.logger.Warn("inventory balances drifted",
			slog.Int64("org_id", orgID),
			slog.Int("drifted", len(report.Drifted)),
			slog.Int("transactions", report.Transactions),
		)
	}
	j.logger.Info("inventory reconcile executed", slog.String("job", "inventory_reconcile"), slog.Int("orgs", len(orgIDs)))
	return drifted, nil
}

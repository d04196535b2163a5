package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	jobmetrics "github.com/odyssey-erp/ledger/internal/jobs"
)

const checkLedgerImbalance = "ledger_imbalance"

// TrialBalancer computes the trial balance of one organisation.
type TrialBalancer interface {
	TrialBalance(ctx context.Context, orgID int64, asOf *time.Time) (reports.TrialBalance, error)
}

// GLIntegrityJob re-derives the trial balance of every ledger organisation.
// Imbalances are logged and counted; the job never corrects data.
type GLIntegrityJob struct {
	orgs        OrgSource
	balances    TrialBalancer
	logger      *slog.Logger
	metrics     *jobmetrics.Metrics
	concurrency int
}

func NewGLIntegrityJob(orgs OrgSource, balances TrialBalancer, logger *slog.Logger, metrics *jobmetrics.Metrics) *GLIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GLIntegrityJob{orgs: orgs, balances: balances, logger: logger, metrics: metrics, concurrency: 4}
}

// IntegrityResult is the outcome for one organisation.
type IntegrityResult struct {
	OrgID   int64
	Balance reports.TrialBalance
}

// Handle implements the asynq handler for TaskGLIntegrity.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeOrgPayload(t)
	if err != nil {
		return err
	}
	tracker := j.metrics.Track("gl_integrity")
	_, err = j.Run(ctx, payload)
	return tracker.End(err)
}

// Run checks the requested organisations and returns the unbalanced ones.
func (j *GLIntegrityJob) Run(ctx context.Context, payload OrgPayload) ([]IntegrityResult, error) {
	orgIDs, err := resolveOrgs(ctx, j.orgs, payload)
	if err != nil {
		return nil, err
	}
	results := make([]IntegrityResult, len(orgIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for i, orgID := range orgIDs {
		g.Go(func() error {
			tb, err := j.balances.TrialBalance(gctx, orgID, nil)
			if err != nil {
				return fmt.Errorf("gl integrity org %d: %w", orgID, err)
			}
			results[i] = IntegrityResult{OrgID: orgID, Balance: tb}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		j.logger.Error("gl integrity check failed", slog.Any("error", err))
		return nil, err
	}

	var unbalanced []IntegrityResult
	for _, res := range results {
		if res.Balance.IsBalanced {
			continue
		}
		unbalanced = append(unbalanced, res)
		j.metrics.AddAnomalies(checkLedgerImbalance, res.OrgID, 1)
		j.logger.Error("ledger out of balance",
			slog.Int64("org_id", res.OrgID),
			slog.String("total_debits", res.Balance.TotalDebits.StringFixed(2)),
			slog.String("total_credits", res.Balance.TotalCredits.StringFixed(2)),
			slog.String("difference", res.Balance.Difference.StringFixed(2)),
		)
	}
	j.logger.Info("gl integrity check executed",
		slog.String("job", "gl_integrity"),
		slog.Int("orgs", len(orgIDs)),
		slog.Int("unbalanced", len(unbalanced)),
	)
	return unbalanced, nil
}

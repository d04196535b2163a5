package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/inventory"
	jobmetrics "github.com/odyssey-erp/ledger/internal/jobs"
	_ "github.com/odyssey-erp/ledger/testing"
)

type stubBalances struct {
	mu   sync.Mutex
	seen []int64
	tb   map[int64]reports.TrialBalance
	err  error
}

func (s *stubBalances) TrialBalance(ctx context.Context, orgID int64, asOf *time.Time) (reports.TrialBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, orgID)
	if s.err != nil {
		return reports.TrialBalance{}, s.err
	}
	return s.tb[orgID], nil
}

func staticOrgs(ids ...int64) OrgSource {
	return OrgSourceFunc(func(context.Context) ([]int64, error) { return ids, nil })
}

func balanced(amount string) reports.TrialBalance {
	d := decimal.RequireFromString(amount)
	return reports.TrialBalance{TotalDebits: d, TotalCredits: d, IsBalanced: true}
}

func TestGLIntegrityReportsUnbalancedOrgs(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	balances := &stubBalances{tb: map[int64]reports.TrialBalance{
		1: balanced("100"),
		2: {
			TotalDebits:  decimal.RequireFromString("100"),
			TotalCredits: decimal.RequireFromString("90"),
			Difference:   decimal.RequireFromString("10"),
		},
		3: balanced("0"),
	}}
	job := NewGLIntegrityJob(staticOrgs(1, 2, 3), balances, nil, metrics)

	unbalanced, err := job.Run(context.Background(), OrgPayload{})
	require.NoError(t, err)
	require.Len(t, unbalanced, 1)
	require.Equal(t, int64(2), unbalanced[0].OrgID)
	require.ElementsMatch(t, []int64{1, 2, 3}, balances.seen)

	count, err := testutil.GatherAndCount(registry, "odyssey_finance_anomalies_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestGLIntegrityPayloadScopesToOneOrg(t *testing.T) {
	balances := &stubBalances{tb: map[int64]reports.TrialBalance{9: balanced("5")}}
	job := NewGLIntegrityJob(OrgSourceFunc(func(context.Context) ([]int64, error) {
		return nil, errors.New("org source must not be queried")
	}), balances, nil, nil)

	task, err := NewOrgTask(TaskGLIntegrity, 9)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []int64{9}, balances.seen)
}

func TestGLIntegrityFailsOnStoreError(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewGLIntegrityJob(staticOrgs(1), &stubBalances{err: errors.New("db down")}, nil, metrics)

	task, err := NewOrgTask(TaskGLIntegrity, 0)
	require.NoError(t, err)
	require.Error(t, job.Handle(context.Background(), task))

	count, err := testutil.GatherAndCount(registry, "odyssey_jobs_failures_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	job := NewGLIntegrityJob(staticOrgs(), &stubBalances{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskGLIntegrity, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewOrgTaskRejectsUnknownType(t *testing.T) {
	_, err := NewOrgTask("mail:send", 1)
	require.Error(t, err)

	task, err := NewOrgTask(TaskInventoryReconcile, 4)
	require.NoError(t, err)
	var payload OrgPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(4), payload.OrgID)
}

type stubRebuilder struct {
	reports map[int64]inventory.RebuildReport
	failOn  int64
	calls   []int64
}

func (s *stubRebuilder) RebuildBalances(ctx context.Context, orgID int64) (inventory.RebuildReport, error) {
	s.calls = append(s.calls, orgID)
	if orgID == s.failOn {
		return inventory.RebuildReport{}, errors.New("lock timeout")
	}
	return s.reports[orgID], nil
}

func TestInventoryReconcileCountsDrift(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	rebuild := &stubRebuilder{reports: map[int64]inventory.RebuildReport{
		1: {Transactions: 10, Balances: 3},
		2: {Transactions: 4, Balances: 2, Drifted: []inventory.Drift{{ItemID: 1, WarehouseID: 1}, {ItemID: 2, WarehouseID: 1}}},
	}}
	job := NewInventoryReconcileJob(staticOrgs(1, 2), rebuild, nil, metrics)

	drifted, err := job.Run(context.Background(), OrgPayload{})
	require.NoError(t, err)
	require.Equal(t, map[int64]int{1: 0, 2: 2}, drifted)
	require.Equal(t, []int64{1, 2}, rebuild.calls)

	count, err := testutil.GatherAndCount(registry, "odyssey_finance_anomalies_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestInventoryReconcileStopsAtFirstFailure(t *testing.T) {
	rebuild := &stubRebuilder{failOn: 2}
	job := NewInventoryReconcileJob(staticOrgs(1, 2, 3), rebuild, nil, nil)

	drifted, err := job.Run(context.Background(), OrgPayload{})
	require.Error(t, err)
	require.Equal(t, map[int64]int{1: 0}, drifted)
	require.Equal(t, []int64{1, 2}, rebuild.calls)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthReportsQueueStats(t *testing.T) {
	h := NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Failed: 1}}, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Success bool       `json:"success"`
		Data    QueueStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, 3, body.Data.Pending)
	require.Equal(t, 1, body.Data.Failed)
}

func TestHealthUnavailableWhenRedisFails(t *testing.T) {
	h := NewHandler(stubInspector{err: errors.New("dial tcp")}, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

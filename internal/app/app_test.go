package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/accounting/reports"
	"github.com/odyssey-erp/ledger/internal/observability"
	"github.com/odyssey-erp/ledger/internal/shared"
	_ "github.com/odyssey-erp/ledger/testing"
)

type totalsByOrg map[int64][]reports.AccountTotal

func (t totalsByOrg) AccountTotals(ctx context.Context, orgID int64, filter reports.Filter) ([]reports.AccountTotal, error) {
	return t[orgID], nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	repo := totalsByOrg{
		7: {
			{AccountID: 1, AccountNumber: "1000", AccountName: "Cash", AccountType: accounts.AccountTypeAsset,
				DebitTotal: decimal.NewFromInt(250), CreditTotal: decimal.Zero},
			{AccountID: 2, AccountNumber: "3000", AccountName: "Capital", AccountType: accounts.AccountTypeEquity,
				DebitTotal: decimal.Zero, CreditTotal: decimal.NewFromInt(250)},
		},
	}
	cfg := &Config{AppRequestTimeout: 5 * time.Second, RateLimitPerMinute: 1000}
	return NewRouter(RouterParams{
		Logger:         NewLogger(cfg),
		Config:         cfg,
		ReportsHandler: reports.NewHandler(NewLogger(cfg), reports.NewService(repo, nil)),
		Metrics:        observability.NewMetrics(),
	})
}

func TestHealthzIsPublic(t *testing.T) {
	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestLedgerRoutesRequireOrganisation(t *testing.T) {
	for _, header := range []string{"", "abc", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/accounting/reports/trial-balance", nil)
		if header != "" {
			req.Header.Set(HeaderOrgID, header)
		}
		rr := httptest.NewRecorder()
		testRouter(t).ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, header)

		var body shared.Result[struct{}]
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		require.False(t, body.Success)
		require.Equal(t, shared.KindValidation, body.Kind)
	}
}

func TestTrialBalanceRouteScopesByOrganisation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/accounting/reports/trial-balance", nil)
	req.Header.Set(HeaderOrgID, "7")
	req.Header.Set(HeaderActorID, "alice")
	rr := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var body shared.Result[reports.TrialBalance]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.True(t, body.Data.IsBalanced)
	require.Len(t, body.Data.Balances, 2)
	require.Equal(t, "250", body.Data.TotalDebits.String())
}

func TestIdentityMiddlewareStoresActor(t *testing.T) {
	var org int64
	var actor string
	h := IdentityMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org = shared.OrgFromContext(r.Context())
		actor = shared.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderOrgID, " 12 ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, int64(12), org)
	require.Equal(t, "system", actor)

	req.Header.Set(HeaderActorID, "bob")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "bob", actor)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("PERIOD_LOCK_TTL", "45s")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 45*time.Second, cfg.PeriodLockTTL)
	require.Equal(t, 60, cfg.RateLimitPerMinute)
	require.True(t, cfg.DefaultDimensionRules)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsNonPositiveRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	_, err := LoadConfig()
	require.Error(t, err)
}

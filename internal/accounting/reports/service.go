package reports

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/ledger/internal/shared"
)

// Options configures an account balance query.
type Options struct {
	AsOf        *time.Time
	AccountIDs  []int64
	IncludeZero bool
}

// Service computes balances from posted journal lines on every call.
type Service struct {
	repo   Repository
	logger *slog.Logger
	group  singleflight.Group
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

func (s *Service) AccountBalances(ctx context.Context, orgID int64, opts Options) ([]AccountBalance, error) {
	totals, err := s.totals(ctx, orgID, Filter{AsOf: opts.AsOf, AccountIDs: opts.AccountIDs})
	if err != nil {
		return nil, err
	}
	return BuildBalances(totals, opts.IncludeZero), nil
}

// TrialBalance reports every account with posted activity. An unbalanced
// ledger is returned as is and logged at error level.
func (s *Service) TrialBalance(ctx context.Context, orgID int64, asOf *time.Time) (TrialBalance, error) {
	totals, err := s.totals(ctx, orgID, Filter{AsOf: asOf})
	if err != nil {
		return TrialBalance{}, err
	}
	tb := BuildTrialBalance(totals)
	if !tb.IsBalanced {
		s.logger.Error("trial balance out of balance",
			slog.Int64("org_id", orgID),
			slog.String("total_debits", shared.Money(tb.TotalDebits)),
			slog.String("total_credits", shared.Money(tb.TotalCredits)),
			slog.String("difference", shared.Money(tb.Difference)))
	}
	return tb, nil
}

func (s *Service) BalancesByType(ctx context.Context, orgID int64, asOf *time.Time) (BalancesByType, error) {
	totals, err := s.totals(ctx, orgID, Filter{AsOf: asOf})
	if err != nil {
		return BalancesByType{}, err
	}
	return BuildBalancesByType(totals), nil
}

// queryTimeout bounds a shared query once it no longer follows any caller's
// cancellation.
const queryTimeout = 30 * time.Second

// totals collapses identical concurrent reads into one query. The query is
// detached from the caller that started it; each caller stops waiting when its
// own context ends.
func (s *Service) totals(ctx context.Context, orgID int64, filter Filter) ([]AccountTotal, error) {
	ch := s.group.DoChan(filterKey(orgID, filter), func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), queryTimeout)
		defer cancel()
		return s.repo.AccountTotals(qctx, orgID, filter)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, shared.Unexpected(res.Err)
		}
		return res.Val.([]AccountTotal), nil
	}
}

func filterKey(orgID int64, filter Filter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|", orgID)
	if filter.AsOf != nil {
		b.WriteString(filter.AsOf.Format(time.DateOnly))
	}
	b.WriteByte('|')
	ids := slices.Clone(filter.AccountIDs)
	slices.Sort(ids)
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

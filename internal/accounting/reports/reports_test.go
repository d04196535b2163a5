package reports

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/shared"
	_ "github.com/odyssey-erp/ledger/testing"
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func total(id int64, number, name string, typ accounts.AccountType, debit, credit string) AccountTotal {
	return AccountTotal{
		AccountID:     id,
		AccountNumber: number,
		AccountName:   name,
		AccountType:   typ,
		DebitTotal:    amt(debit),
		CreditTotal:   amt(credit),
	}
}

// ledger after: cash sale 500, rent 200 paid in cash, owner capital 1000.
func sampleTotals() []AccountTotal {
	return []AccountTotal{
		total(4, "4000", "Sales", accounts.AccountTypeRevenue, "0", "500"),
		total(1, "1000", "Cash", accounts.AccountTypeAsset, "1500", "200"),
		total(6, "6000", "Rent", accounts.AccountTypeExpense, "200", "0"),
		total(3, "3000", "Capital", accounts.AccountTypeEquity, "0", "1000"),
		total(2, "2000", "Payables", accounts.AccountTypeLiability, "50", "50"),
	}
}

func TestBuildBalancesAppliesNormalSide(t *testing.T) {
	balances := BuildBalances(sampleTotals(), false)

	numbers := make([]string, 0, len(balances))
	for _, b := range balances {
		numbers = append(numbers, b.AccountNumber)
	}
	require.Equal(t, []string{"1000", "3000", "4000", "6000"}, numbers)
	require.True(t, balances[0].Balance.Equal(amt("1300")))
	require.True(t, balances[1].Balance.Equal(amt("1000")))
	require.True(t, balances[2].Balance.Equal(amt("500")))
	require.True(t, balances[3].Balance.Equal(amt("200")))
}

func TestBuildBalancesIncludeZero(t *testing.T) {
	balances := BuildBalances(sampleTotals(), true)
	require.Len(t, balances, 5)
	require.Equal(t, "2000", balances[1].AccountNumber)
	require.True(t, balances[1].Balance.IsZero())

	dust := []AccountTotal{total(9, "9000", "Rounding", accounts.AccountTypeExpense, "0.01", "0")}
	require.Empty(t, BuildBalances(dust, false))
}

func TestBuildBalancesSortsLexicographically(t *testing.T) {
	totals := []AccountTotal{
		total(1, "200", "B", accounts.AccountTypeAsset, "1", "0"),
		total(2, "1000", "A", accounts.AccountTypeAsset, "1", "0"),
	}
	balances := BuildBalances(totals, false)
	require.Equal(t, "1000", balances[0].AccountNumber)
	require.Equal(t, "200", balances[1].AccountNumber)
}

func TestBuildTrialBalance(t *testing.T) {
	tb := BuildTrialBalance(sampleTotals())
	require.Len(t, tb.Balances, 5)
	require.True(t, tb.TotalDebits.Equal(amt("1750")))
	require.True(t, tb.TotalCredits.Equal(amt("1750")))
	require.True(t, tb.Difference.IsZero())
	require.True(t, tb.IsBalanced)

	broken := append(sampleTotals(), total(7, "7000", "Orphan", accounts.AccountTypeExpense, "0.02", "0"))
	tb = BuildTrialBalance(broken)
	require.False(t, tb.IsBalanced)
	require.Equal(t, "0.02", shared.Money(tb.Difference))
}

func TestBuildBalancesByType(t *testing.T) {
	out := BuildBalancesByType(sampleTotals())

	require.Len(t, out.Groups, 5)
	require.Equal(t, accounts.AccountTypeAsset, out.Groups[0].Type)
	require.Equal(t, "Asset", out.Groups[0].Label)
	require.Empty(t, out.Groups[1].Accounts)

	require.True(t, out.Totals.Assets.Equal(amt("1300")))
	require.True(t, out.Totals.Liabilities.IsZero())
	require.True(t, out.Totals.Equity.Equal(amt("1300")))
	require.True(t, out.IncomeStatement.NetIncome.Equal(amt("300")))
	require.True(t, out.BalanceSheet.Balanced)
}

type stubRepo struct {
	calls   atomic.Int32
	release chan struct{}
	totals  []AccountTotal
	err     error

	mu   sync.Mutex
	last Filter
}

func (s *stubRepo) AccountTotals(ctx context.Context, orgID int64, filter Filter) ([]AccountTotal, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = filter
	s.mu.Unlock()
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.totals, s.err
}

func TestServiceTrialBalance(t *testing.T) {
	repo := &stubRepo{totals: sampleTotals()}
	svc := NewService(repo, nil)
	asOf := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)

	tb, err := svc.TrialBalance(context.Background(), 1, &asOf)
	require.NoError(t, err)
	require.True(t, tb.IsBalanced)
	require.Equal(t, &asOf, repo.last.AsOf)
}

func TestServiceWrapsStoreErrors(t *testing.T) {
	repo := &stubRepo{err: errors.New("connection refused")}
	svc := NewService(repo, nil)

	_, err := svc.AccountBalances(context.Background(), 1, Options{})
	require.Error(t, err)
	require.Equal(t, shared.KindUnexpected, shared.KindOf(err))
	require.Equal(t, shared.UnexpectedMessage, shared.PublicMessage(err))
}

func TestServiceCollapsesConcurrentReads(t *testing.T) {
	repo := &stubRepo{totals: sampleTotals(), release: make(chan struct{})}
	svc := NewService(repo, nil)

	var wg sync.WaitGroup
	results := make([]BalancesByType, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.BalancesByType(context.Background(), 1, nil)
		}(i)
	}
	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.release)
	wg.Wait()

	for i, out := range results {
		require.NoError(t, errs[i])
		require.True(t, out.BalanceSheet.Balanced)
	}
}

func TestServiceHonoursCancellation(t *testing.T) {
	repo := &stubRepo{release: make(chan struct{})}
	defer close(repo.release)
	svc := NewService(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.TrialBalance(ctx, 1, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestServiceSharedReadSurvivesFirstCallerCancelling(t *testing.T) {
	repo := &stubRepo{totals: sampleTotals(), release: make(chan struct{})}
	svc := NewService(repo, nil)

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.TrialBalance(leaderCtx, 1, nil)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool { return repo.calls.Load() == 1 }, time.Second, time.Millisecond)

	type outcome struct {
		tb  TrialBalance
		err error
	}
	follower := make(chan outcome, 1)
	go func() {
		tb, err := svc.TrialBalance(context.Background(), 1, nil)
		follower <- outcome{tb, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(repo.release)
	got := <-follower
	require.NoError(t, got.err)
	require.True(t, got.tb.IsBalanced)
	require.Equal(t, int32(1), repo.calls.Load())
}

func TestFilterKeyIgnoresIDOrder(t *testing.T) {
	a := filterKey(1, Filter{AccountIDs: []int64{3, 1, 2}})
	b := filterKey(1, Filter{AccountIDs: []int64{1, 2, 3}})
	require.Equal(t, a, b)
	require.NotEqual(t, a, filterKey(2, Filter{AccountIDs: []int64{1, 2, 3}}))
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("1, 2,3")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = parseIDs("")
	require.NoError(t, err)
	require.Nil(t, ids)

	_, err = parseIDs("1,x")
	require.Equal(t, shared.KindValidation, shared.KindOf(err))
}

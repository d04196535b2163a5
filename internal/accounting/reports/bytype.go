package reports

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/shared"
)

var titleCase = cases.Title(language.English)

// TypeGroup holds the non-zero balances of one account type.
type TypeGroup struct {
	Type     accounts.AccountType `json:"type"`
	Label    string               `json:"label"`
	Accounts []AccountBalance     `json:"accounts"`
	Total    decimal.Decimal      `json:"total"`
}

// TypeTotals sums balances per type. Equity includes net income.
type TypeTotals struct {
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	Equity      decimal.Decimal `json:"equity"`
	Revenue     decimal.Decimal `json:"revenue"`
	Expenses    decimal.Decimal `json:"expenses"`
}

type BalanceSheetSummary struct {
	TotalAssets      decimal.Decimal `json:"totalAssets"`
	TotalLiabilities decimal.Decimal `json:"totalLiabilities"`
	TotalEquity      decimal.Decimal `json:"totalEquity"`
	Balanced         bool            `json:"balanced"`
}

type IncomeStatementSummary struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetIncome     decimal.Decimal `json:"netIncome"`
}

// BalancesByType groups balances for statement preparation.
type BalancesByType struct {
	Groups          []TypeGroup            `json:"groups"`
	Totals          TypeTotals             `json:"totals"`
	BalanceSheet    BalanceSheetSummary    `json:"balanceSheet"`
	IncomeStatement IncomeStatementSummary `json:"incomeStatement"`
}

// BuildBalancesByType groups non-zero balances by the five account types and
// folds net income (revenue minus expenses) into equity in place of a closing
// entry.
func BuildBalancesByType(totals []AccountTotal) BalancesByType {
	balances := BuildBalances(totals, false)
	groups := make([]TypeGroup, 0, len(accounts.AccountTypes))
	sums := make(map[accounts.AccountType]decimal.Decimal, len(accounts.AccountTypes))
	for _, typ := range accounts.AccountTypes {
		grp := TypeGroup{Type: typ, Label: titleCase.String(string(typ)), Accounts: []AccountBalance{}}
		for _, b := range balances {
			if b.AccountType == typ {
				grp.Accounts = append(grp.Accounts, b)
				grp.Total = grp.Total.Add(b.Balance)
			}
		}
		sums[typ] = grp.Total
		groups = append(groups, grp)
	}

	netIncome := sums[accounts.AccountTypeRevenue].Sub(sums[accounts.AccountTypeExpense])
	t := TypeTotals{
		Assets:      sums[accounts.AccountTypeAsset],
		Liabilities: sums[accounts.AccountTypeLiability],
		Equity:      sums[accounts.AccountTypeEquity].Add(netIncome),
		Revenue:     sums[accounts.AccountTypeRevenue],
		Expenses:    sums[accounts.AccountTypeExpense],
	}
	return BalancesByType{
		Groups: groups,
		Totals: t,
		BalanceSheet: BalanceSheetSummary{
			TotalAssets:      t.Assets,
			TotalLiabilities: t.Liabilities,
			TotalEquity:      t.Equity,
			Balanced:         t.Assets.Sub(t.Liabilities.Add(t.Equity)).Abs().LessThan(shared.BalanceTolerance),
		},
		IncomeStatement: IncomeStatementSummary{
			TotalRevenue:  t.Revenue,
			TotalExpenses: t.Expenses,
			NetIncome:     netIncome,
		},
	}
}

package reports

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// AccountTotal is the raw debit and credit sum of one account's posted lines.
type AccountTotal struct {
	AccountID     int64                `db:"account_id"`
	AccountNumber string               `db:"account_number"`
	AccountName   string               `db:"account_name"`
	AccountType   accounts.AccountType `db:"account_type"`
	DebitTotal    decimal.Decimal      `db:"debit_total"`
	CreditTotal   decimal.Decimal      `db:"credit_total"`
}

// AccountBalance is an account's totals with its normal-side balance.
type AccountBalance struct {
	AccountID     int64                `json:"accountId"`
	AccountNumber string               `json:"accountNumber"`
	AccountName   string               `json:"accountName"`
	AccountType   accounts.AccountType `json:"accountType"`
	DebitTotal    decimal.Decimal      `json:"debitTotal"`
	CreditTotal   decimal.Decimal      `json:"creditTotal"`
	Balance       decimal.Decimal      `json:"balance"`
}

// TrialBalance lists every account with posted activity and the ledger totals.
type TrialBalance struct {
	Balances     []AccountBalance `json:"balances"`
	TotalDebits  decimal.Decimal  `json:"totalDebits"`
	TotalCredits decimal.Decimal  `json:"totalCredits"`
	Difference   decimal.Decimal  `json:"difference"`
	IsBalanced   bool             `json:"isBalanced"`
}

// BuildBalances applies the normal balance convention to totals: debit-normal
// accounts report debit minus credit, the rest the negation. Balances within
// 0.01 of zero are dropped unless includeZero is set. Rows are ordered by
// account number as a string.
func BuildBalances(totals []AccountTotal, includeZero bool) []AccountBalance {
	out := make([]AccountBalance, 0, len(totals))
	for _, t := range totals {
		net := t.DebitTotal.Sub(t.CreditTotal)
		if !t.AccountType.DebitNormal() {
			net = net.Neg()
		}
		if !includeZero && net.Abs().LessThanOrEqual(shared.BalanceTolerance) {
			continue
		}
		out = append(out, AccountBalance{
			AccountID:     t.AccountID,
			AccountNumber: t.AccountNumber,
			AccountName:   t.AccountName,
			AccountType:   t.AccountType,
			DebitTotal:    t.DebitTotal,
			CreditTotal:   t.CreditTotal,
			Balance:       net,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AccountNumber < out[j].AccountNumber
	})
	return out
}

// BuildTrialBalance totals both sides. The ledger balances when the absolute
// difference is under 0.01.
func BuildTrialBalance(totals []AccountTotal) TrialBalance {
	balances := BuildBalances(totals, true)
	var debit, credit decimal.Decimal
	for _, b := range balances {
		debit = debit.Add(b.DebitTotal)
		credit = credit.Add(b.CreditTotal)
	}
	diff := debit.Sub(credit).Abs()
	return TrialBalance{
		Balances:     balances,
		TotalDebits:  debit,
		TotalCredits: credit,
		Difference:   diff,
		IsBalanced:   diff.LessThan(shared.BalanceTolerance),
	}
}

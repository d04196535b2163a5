package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountTypes lists every type in statement order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// Valid reports whether t is one of the five account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether the type accumulates on the debit side.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account models a chart of accounts node.
type Account struct {
	ID          int64       `db:"id" json:"id"`
	OrgID       int64       `db:"org_id" json:"orgId"`
	Number      string      `db:"number" json:"number"`
	Name        string      `db:"name" json:"name"`
	Type        AccountType `db:"type" json:"type"`
	Description string      `db:"description" json:"description"`
	IsActive    bool        `db:"is_active" json:"isActive"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

// Label renders "number - name".
func (a Account) Label() string {
	return a.Number + " - " + a.Name
}

// Input carries the editable account fields.
type Input struct {
	Number      string      `json:"number" validate:"required,max=32"`
	Name        string      `json:"name" validate:"required,max=200"`
	Type        AccountType `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Description string      `json:"description"`
}

// ListFilter narrows account listings.
type ListFilter struct {
	Type       AccountType
	ActiveOnly bool
}

package journals

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/accounting/accounts"
)

// Status enumerates journal lifecycle values.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
)

// Entry is a journal entry header with its ordered lines.
type Entry struct {
	ID          int64           `db:"id" json:"id"`
	OrgID       int64           `db:"org_id" json:"orgId"`
	JournalNo   string          `db:"journal_no" json:"journalNo"`
	Description string          `db:"description" json:"description"`
	PostingDate time.Time       `db:"posting_date" json:"postingDate"`
	Status      Status          `db:"status" json:"status"`
	ReversalOf  *int64          `db:"reversal_of" json:"reversalOf,omitempty"`
	CreatedBy   string          `db:"created_by" json:"createdBy"`
	PostedBy    *string         `db:"posted_by" json:"postedBy,omitempty"`
	PostedAt    *time.Time      `db:"posted_at" json:"postedAt,omitempty"`
	TotalDebit  decimal.Decimal `db:"total_debit" json:"totalDebit"`
	TotalCredit decimal.Decimal `db:"total_credit" json:"totalCredit"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
	Lines       []Line          `db:"-" json:"lines,omitempty"`
}

// Line stores a debit or credit amount against one account.
type Line struct {
	ID            int64                `db:"id" json:"id"`
	EntryID       int64                `db:"entry_id" json:"entryId"`
	LineNo        int                  `db:"line_no" json:"lineNo"`
	AccountID     int64                `db:"account_id" json:"accountId"`
	AccountNumber string               `db:"account_number" json:"accountNumber"`
	AccountName   string               `db:"account_name" json:"accountName"`
	AccountType   accounts.AccountType `db:"account_type" json:"accountType"`
	Debit         decimal.Decimal      `db:"debit" json:"debit"`
	Credit        decimal.Decimal      `db:"credit" json:"credit"`
	Memo          string               `db:"memo" json:"memo"`
	Dimensions    map[string]string    `db:"dimensions" json:"dimensions,omitempty"`
}

// ListFilter narrows journal listings.
type ListFilter struct {
	Status  Status
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

// Totals sums the debit and credit sides of lines.
func Totals(lines []Line) (debit, credit decimal.Decimal) {
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

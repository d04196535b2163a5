package journals

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/ledger/internal/platform/httpx"
	"github.com/odyssey-erp/ledger/internal/shared"
)

// LineInput describes one journal line of a create or update request. Line
// numbers follow slice order.
type LineInput struct {
	AccountID  int64
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	Memo       string
	Dimensions map[string]string
}

// Input groups the editable fields of a journal entry.
type Input struct {
	Description string
	PostingDate time.Time
	Lines       []LineInput
}

func linesFromEntry(lines []Line) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, LineInput{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Memo: l.Memo, Dimensions: l.Dimensions})
	}
	return out
}

type lineRequest struct {
	AccountID  int64             `json:"accountId" validate:"required,gt=0"`
	Debit      decimal.Decimal   `json:"debit"`
	Credit     decimal.Decimal   `json:"credit"`
	Memo       string            `json:"memo" validate:"max=500"`
	Dimensions map[string]string `json:"dimensions"`
}

type entryRequest struct {
	Description string        `json:"description" validate:"max=500"`
	PostingDate string        `json:"postingDate" validate:"required"`
	Lines       []lineRequest `json:"lines" validate:"dive"`
}

func (req entryRequest) input() (Input, error) {
	date, err := httpx.ParseDate(req.PostingDate)
	if err != nil {
		return Input{}, err
	}
	lines := make([]LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, LineInput{
			AccountID:  l.AccountID,
			Debit:      l.Debit,
			Credit:     l.Credit,
			Memo:       strings.TrimSpace(l.Memo),
			Dimensions: l.Dimensions,
		})
	}
	return Input{Description: strings.TrimSpace(req.Description), PostingDate: date, Lines: lines}, nil
}

type reverseRequest struct {
	ReversalDate string `json:"reversalDate"`
}

// NextNumber is the preview returned by the next-number route.
type NextNumber struct {
	JournalNo string `json:"journalNo"`
}

// Page is a paginated journal listing.
type Page struct {
	Entries    []Entry           `json:"entries"`
	Pagination shared.Pagination `json:"pagination"`
}

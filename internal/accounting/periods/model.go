package periods

import (
	"time"

	"github.com/odyssey-erp/ledger/internal/shared"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = shared.PeriodStatusOpen
	PeriodStatusClosed PeriodStatus = shared.PeriodStatusClosed
	PeriodStatusLocked PeriodStatus = shared.PeriodStatusLocked
)

// Period represents a fiscal period window. Both dates are inclusive.
type Period struct {
	ID           int64        `db:"id" json:"id"`
	OrgID        int64        `db:"org_id" json:"orgId"`
	Name         string       `db:"name" json:"name"`
	StartDate    time.Time    `db:"start_date" json:"startDate"`
	EndDate      time.Time    `db:"end_date" json:"endDate"`
	FiscalYear   int          `db:"fiscal_year" json:"fiscalYear"`
	PeriodNumber int          `db:"period_number" json:"periodNumber"`
	Status       PeriodStatus `db:"status" json:"status"`
	ClosedAt     *time.Time   `db:"closed_at" json:"closedAt,omitempty"`
	ClosedBy     *string      `db:"closed_by" json:"closedBy,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// Covers reports whether date falls inside the period.
func (p Period) Covers(date time.Time) bool {
	d := dateOnly(date)
	return !d.Before(dateOnly(p.StartDate)) && !d.After(dateOnly(p.EndDate))
}

// Overlaps reports whether the inclusive ranges of p and [start, end] intersect.
func (p Period) Overlaps(start, end time.Time) bool {
	return !dateOnly(p.StartDate).After(dateOnly(end)) && !dateOnly(p.EndDate).Before(dateOnly(start))
}

// Input carries the editable period fields.
type Input struct {
	Name         string
	StartDate    time.Time
	EndDate      time.Time
	FiscalYear   int
	PeriodNumber int
}

// ListFilter narrows period listings.
type ListFilter struct {
	FiscalYear int
	Status     PeriodStatus
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

package reports

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/ledger/internal/accounting/journals"
)

// Filter narrows which posted lines contribute to balances.
type Filter struct {
	AsOf       *time.Time
	AccountIDs []int64
}

// Repository reads aggregated ledger activity.
type Repository interface {
	AccountTotals(ctx context.Context, orgID int64, filter Filter) ([]AccountTotal, error)
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a pgx backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// AccountTotals sums debit and credit per account over POSTED entries only.
func (r *repository) AccountTotals(ctx context.Context, orgID int64, filter Filter) ([]AccountTotal, error) {
	where := sq.And{
		sq.Eq{"e.org_id": orgID},
		sq.Eq{"e.status": journals.StatusPosted},
	}
	if filter.AsOf != nil {
		where = append(where, sq.LtOrEq{"e.posting_date": *filter.AsOf})
	}
	if len(filter.AccountIDs) > 0 {
		where = append(where, sq.Eq{"l.account_id": filter.AccountIDs})
	}

	query, args, err := psql.
		Select(
			"a.id AS account_id",
			"a.number AS account_number",
			"a.name AS account_name",
			"a.type AS account_type",
			"COALESCE(SUM(l.debit), 0) AS debit_total",
			"COALESCE(SUM(l.credit), 0) AS credit_total",
		).
		From("journal_lines l").
		Join("journal_entries e ON e.id = l.entry_id").
		Join("accounts a ON a.id = l.account_id").
		Where(where).
		GroupBy("a.id", "a.number", "a.name", "a.type").
		OrderBy("a.number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("reports: build totals: %w", err)
	}

	var rows []AccountTotal
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("reports: account totals: %w", err)
	}
	return rows, nil
}
